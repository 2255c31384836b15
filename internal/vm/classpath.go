/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package vm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/test-jitcomp/Artemis/internal/process"
)

// classpathJVM is the shared implementation behind hotspot, openj9 and
// graal: all three are javac/java toolchains that only differ in the flags
// used to force interpretation or JIT, and (for graal) in how long a forced
// run is allowed to take.
type classpathJVM struct {
	label     string
	home      string
	javac     string
	java      string
	classpath []string

	forceFlags func(ForceMode) []string
	// jitTimeoutScale multiplies the caller's timeout when mode is
	// ForceJIT; graal's eager compilation is slow enough to need it.
	jitTimeoutScale time.Duration
}

func newClasspathJVM(label, home string, classpath []string, forceFlags func(ForceMode) []string) (*classpathJVM, error) {
	javac := filepath.Join(home, "bin", "javac")
	java := filepath.Join(home, "bin", "java")
	if _, err := os.Stat(javac); err != nil {
		return nil, fmt.Errorf("command javac does not exist in %s: %w", home, err)
	}
	if _, err := os.Stat(java); err != nil {
		return nil, fmt.Errorf("command java does not exist in %s: %w", home, err)
	}

	return &classpathJVM{
		label:           label,
		home:            home,
		javac:           javac,
		java:            java,
		classpath:       classpath,
		forceFlags:      forceFlags,
		jitTimeoutScale: 1,
	}, nil
}

func (j *classpathJVM) Compile(ctx context.Context, source string, classpath []string, timeout time.Duration) (CompiledArtifact, error) {
	classDir, _ := filepath.Abs(filepath.Dir(source))
	cp := append(append([]string{}, classpath...), classDir)
	cp = append(cp, j.classpath...)

	absSource, _ := filepath.Abs(source)
	res, err := process.Run(ctx, classDir, j.javac, []string{"-cp", strings.Join(cp, ":"), absSource}, timeout)
	if err != nil {
		return CompiledArtifact{}, err
	}
	if res.ExitCode != 0 {
		return CompiledArtifact{}, &CompileError{Diagnostic: string(res.Output)}
	}

	className := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	return CompiledArtifact{Dir: classDir, Main: className}, nil
}

func (j *classpathJVM) Run(ctx context.Context, artifact CompiledArtifact, args string, mode ForceMode, extraOpts []string, timeout time.Duration) (RunResult, error) {
	opts := []string{"-cp", artifact.Dir}
	opts = append(opts, j.forceFlags(mode)...)
	opts = append(opts, extraOpts...)

	effectiveTimeout := timeout
	if mode == ForceJIT && j.jitTimeoutScale > 1 {
		effectiveTimeout = timeout * j.jitTimeoutScale
	}

	cmdArgs := append(append([]string{}, opts...), artifact.Main)
	if args != "" {
		cmdArgs = append(cmdArgs, strings.Fields(args)...)
	}

	res, err := process.Run(ctx, artifact.Dir, j.java, cmdArgs, effectiveTimeout)
	if err != nil {
		return RunResult{}, err
	}

	return toRunResult(res), nil
}

func (j *classpathJVM) IsAlive(_ context.Context) bool {
	return true
}

func (j *classpathJVM) Describe() string {
	return fmt.Sprintf("%s:%s", j.label, j.home)
}

// NewHotSpot builds the reference HotSpot adapter: -Xint forces the
// interpreter, -Xcomp forces eager compilation.
func NewHotSpot(javaHome string, classpath []string) (Vm, error) {
	return newClasspathJVM("hotspot", javaHome, classpath, func(m ForceMode) []string {
		switch m {
		case ForceInterpret:
			return []string{"-Xint"}
		case ForceJIT:
			return []string{"-Xcomp"}
		default:
			return nil
		}
	})
}

// NewOpenJ9 builds the OpenJ9 adapter: -Xjit:count=0 forces eager
// compilation by disabling the invocation-count threshold.
func NewOpenJ9(javaHome string, classpath []string) (Vm, error) {
	return newClasspathJVM("openj9", javaHome, classpath, func(m ForceMode) []string {
		switch m {
		case ForceInterpret:
			return []string{"-Xint"}
		case ForceJIT:
			return []string{"-Xjit:count=0"}
		default:
			return nil
		}
	})
}

// NewGraal builds the Graal adapter. Graal's forced-JIT runs are slow
// enough that they get double the configured timeout.
func NewGraal(javaHome string, classpath []string) (Vm, error) {
	jvm, err := newClasspathJVM("graal", javaHome, classpath, func(m ForceMode) []string {
		switch m {
		case ForceInterpret:
			return []string{"-Xint"}
		case ForceJIT:
			return []string{"-Xcomp"}
		default:
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	jvm.jitTimeoutScale = 2

	return jvm, nil
}
