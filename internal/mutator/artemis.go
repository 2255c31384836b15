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

package mutator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/test-jitcomp/Artemis/internal/config"
	"github.com/test-jitcomp/Artemis/internal/process"
)

// artemis wraps the Artemis mutator jar: a single "java -jar artemis.jar
// ..." invocation per mutation attempt, configured with a policy, a
// loop-trip range, a code-bricks directory, and arbitrary policy-specific
// -X key:value options.
type artemis struct {
	java        string
	jar         string
	classpath   []string
	policy      string
	minLoopTrip int
	maxLoopTrip int
	bricks      string
	extraOpts   map[string]interface{}
}

// NewArtemis builds the Artemis mutator adapter. java is the JAVA_HOME used
// to compile and run reference/mutant programs (artemis.py reuses the same
// Java toolchain to run the mutator jar itself).
func NewArtemis(java config.Java, ax config.Artemis) (Mutator, error) {
	if ax.Policy != "artemis" {
		return nil, fmt.Errorf("artemis: unsupported policy: %q", ax.Policy)
	}
	if ax.MinLoopTrip < 0 || ax.MaxLoopTrip < ax.MinLoopTrip {
		return nil, fmt.Errorf("artemis: invalid min_loop_trip/max_loop_trip: %d/%d", ax.MinLoopTrip, ax.MaxLoopTrip)
	}

	javaBin := filepath.Join(java.Home, "bin", "java")
	if _, err := os.Stat(javaBin); err != nil {
		return nil, fmt.Errorf("artemis: command java does not exist in java.home %q: %w", java.Home, err)
	}

	return &artemis{
		java:        javaBin,
		jar:         ax.Jar,
		classpath:   java.Classpath,
		policy:      ax.Policy,
		minLoopTrip: ax.MinLoopTrip,
		maxLoopTrip: ax.MaxLoopTrip,
		bricks:      ax.CodeBricks,
		extraOpts:   ax.ExtraOpts,
	}, nil
}

// Mutate invokes the Artemis jar against reference, writing the mutant
// under outDir on success. A non-zero exit from the jar is a mutation
// failure (MutationError), reported as an error with the jar's combined
// output attached, not a Go-level error from running java itself.
func (a *artemis) Mutate(ctx context.Context, reference, outDir string, seed int64, timeout time.Duration) (Result, error) {
	absRef, err := filepath.Abs(reference)
	if err != nil {
		return Result{}, err
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return Result{}, err
	}

	args := []string{"-jar", a.jar, "-v"}
	if xOpt := a.xOpt(); xOpt != "" {
		args = append(args, xOpt)
	}
	args = append(args,
		"-s", strconv.FormatInt(seed, 10),
		"-p", a.policy,
		"-m", strconv.Itoa(a.minLoopTrip),
		"-M", strconv.Itoa(a.maxLoopTrip),
	)
	if a.bricks != "" {
		args = append(args, "-b", a.bricks)
	}
	args = append(args, "-o", absOut, "-i", absRef)

	res, err := process.Run(ctx, absOut, a.java, args, timeout)
	if err != nil {
		return Result{}, err
	}
	if res.ExitCode != 0 {
		return Result{Output: string(res.Output)}, fmt.Errorf("artemis: mutation of %s failed", reference)
	}

	return Result{
		MutantPath: filepath.Join(absOut, filepath.Base(reference)),
		Output:     string(res.Output),
	}, nil
}

// xOpt builds the "-Xk1:v1,k2:v2" policy-options flag, with keys sorted so
// a given extraOpts map always produces the same command line.
func (a *artemis) xOpt() string {
	if len(a.extraOpts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(a.extraOpts))
	for k := range a.extraOpts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s:%v", k, a.extraOpts[k]))
	}

	return "-X" + strings.Join(pairs, ",")
}
