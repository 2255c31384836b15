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

	"github.com/google/uuid"

	"github.com/test-jitcomp/Artemis/internal/process"
)

// compileToDex runs javac then d8 over the resulting .class files, producing
// a jar suitable for dalvikvm/art, shared by HostArt and TargetArt.
func compileToDex(ctx context.Context, javac, d8 string, extraClasspath []string, minAPI int, source string, timeout time.Duration) (CompiledArtifact, error) {
	classDir, _ := filepath.Abs(filepath.Dir(source))
	cp := append(append([]string{}, extraClasspath...), classDir)
	absSource, _ := filepath.Abs(source)

	res, err := process.Run(ctx, classDir, javac, []string{"-cp", strings.Join(cp, ":"), absSource}, timeout)
	if err != nil {
		return CompiledArtifact{}, err
	}
	if res.ExitCode != 0 {
		return CompiledArtifact{}, &CompileError{Diagnostic: string(res.Output)}
	}

	className := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	entries, err := os.ReadDir(classDir)
	if err != nil {
		return CompiledArtifact{}, err
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".class" || ext == ".dex" {
			classes = append(classes, filepath.Join(classDir, e.Name()))
		}
	}

	jarPath := filepath.Join(classDir, "test.jar")
	d8Args := []string{"--output", jarPath, "--min-api", fmt.Sprintf("%d", minAPI)}
	d8Args = append(d8Args, classes...)
	res, err = process.Run(ctx, classDir, d8, d8Args, timeout)
	if err != nil {
		return CompiledArtifact{}, err
	}
	if res.ExitCode != 0 {
		return CompiledArtifact{}, &CompileError{Diagnostic: string(res.Output)}
	}

	return CompiledArtifact{Dir: jarPath, Main: className}, nil
}

func forceFlagsArt(m ForceMode, jitFlag, intFlag string) []string {
	switch m {
	case ForceInterpret:
		return []string{intFlag}
	case ForceJIT:
		return []string{jitFlag}
	default:
		return nil
	}
}

// hostArt runs dex-compiled artifacts under the host (desktop) build of ART
// through the `art` launcher script, with dex2oat ahead-of-time compilation
// turned off (--no-compile).
type hostArt struct {
	hostHome string
	art      string
	javac    string
	d8       string
	libart   string
	openjdk  string
	minAPI   int
}

// NewHostArt builds the host-ART adapter.
func NewHostArt(hostHome string, minAPI int) (Vm, error) {
	art := filepath.Join(hostHome, "host", "linux-x86", "bin", "art")
	if _, err := os.Stat(art); err != nil {
		return nil, fmt.Errorf("command art does not exist in host home %s: %w", hostHome, err)
	}
	d8 := filepath.Join(hostHome, "host", "linux-x86", "bin", "d8")
	if _, err := os.Stat(d8); err != nil {
		return nil, fmt.Errorf("command d8 does not exist in host home %s: %w", hostHome, err)
	}

	return &hostArt{
		hostHome: hostHome,
		art:      art,
		javac:    filepath.Join(hostHome, "host", "linux-x86", "bin", "javac"),
		d8:       d8,
		libart:   filepath.Join(hostHome, "host", "common", "obj", "JAVA_LIBRARIES", "core-libart-hostdex_intermediates", "classes.jar"),
		openjdk:  filepath.Join(hostHome, "host", "common", "obj", "JAVA_LIBRARIES", "core-oj-hostdex_intermediates", "classes.jar"),
		minAPI:   minAPI,
	}, nil
}

func (h *hostArt) Compile(ctx context.Context, source string, classpath []string, timeout time.Duration) (CompiledArtifact, error) {
	cp := append(append([]string{}, classpath...), h.libart, h.openjdk)

	return compileToDex(ctx, h.javac, h.d8, cp, h.minAPI, source, timeout)
}

func (h *hostArt) Run(ctx context.Context, artifact CompiledArtifact, args string, mode ForceMode, extraOpts []string, timeout time.Duration) (RunResult, error) {
	opts := []string{"-cp", artifact.Dir}
	opts = append(opts, forceFlagsArt(mode, "-Xjitthreshold:0", "-Xint")...)
	opts = append(opts, extraOpts...)

	dataDir, err := os.MkdirTemp(filepath.Dir(artifact.Dir), "android-data-")
	if err != nil {
		return RunResult{}, err
	}
	defer func() { _ = os.RemoveAll(dataDir) }()

	cmdArgs := []string{
		"ANDROID_LOG_TAGS=*:f",
		"ANDROID_DATA=" + dataDir,
		h.art, "--64", "--no-compile", "--",
	}
	cmdArgs = append(cmdArgs, opts...)
	cmdArgs = append(cmdArgs, artifact.Main)
	if args != "" {
		cmdArgs = append(cmdArgs, strings.Fields(args)...)
	}

	res, err := process.Run(ctx, filepath.Dir(artifact.Dir), "env", cmdArgs, timeout)
	if err != nil {
		return RunResult{}, err
	}

	return toRunResult(res), nil
}

func (h *hostArt) IsAlive(_ context.Context) bool {
	return true
}

func (h *hostArt) Describe() string {
	return "art:host:" + h.hostHome
}

// targetArt pushes a dex-compiled jar to a connected Android device over adb
// and runs it with dalvikvm (or app_process).
type targetArt struct {
	androidHome string
	buildTools  string
	javac       string
	d8          string
	adb         string
	serialNo    string
	appProcess  bool
	minAPI      int
}

const targetArtWorkDir = "/sdcard/ax.art"

// NewTargetArt builds the on-device ART adapter. It probes adb connectivity
// to serialNo as part of construction.
func NewTargetArt(androidHome, buildTools, serialNo string, appProcess bool, minAPI int) (Vm, error) {
	d8 := filepath.Join(androidHome, "build-tools", buildTools, "d8")
	if _, err := os.Stat(d8); err != nil {
		return nil, fmt.Errorf("command d8 does not exist in build tools %s: %w", buildTools, err)
	}
	adb := filepath.Join(androidHome, "platform-tools", "adb")
	if _, err := os.Stat(adb); err != nil {
		return nil, fmt.Errorf("command adb does not exist in ANDROID_HOME %s: %w", androidHome, err)
	}

	// Sources are compiled on the host with whatever javac is on PATH;
	// only dexing needs the device build tools.
	ta := &targetArt{
		androidHome: androidHome,
		buildTools:  buildTools,
		javac:       "javac",
		d8:          d8,
		adb:         adb,
		serialNo:    serialNo,
		appProcess:  appProcess,
		minAPI:      minAPI,
	}

	res, err := process.Run(context.Background(), "", adb, []string{"-s", serialNo, "shell", "mkdir", "-p", targetArtWorkDir}, 10*time.Second)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("failed to connect to android device: %s", string(res.Output))
	}

	return ta, nil
}

func (t *targetArt) Compile(ctx context.Context, source string, classpath []string, timeout time.Duration) (CompiledArtifact, error) {
	return compileToDex(ctx, t.javac, t.d8, classpath, t.minAPI, source, timeout)
}

func (t *targetArt) Run(ctx context.Context, artifact CompiledArtifact, args string, mode ForceMode, extraOpts []string, timeout time.Duration) (RunResult, error) {
	jarName := uuid.NewString() + ".jar"
	onDeviceJarPath := targetArtWorkDir + "/" + jarName
	traceName := uuid.NewString() + ".txt"
	onDeviceTracePath := targetArtWorkDir + "/" + traceName

	pushRes, err := process.Run(ctx, "", t.adb, []string{"-s", t.serialNo, "push", artifact.Dir, onDeviceJarPath}, timeout)
	if err != nil {
		return RunResult{}, err
	}
	if pushRes.ExitCode != 0 {
		return toRunResult(pushRes), nil
	}

	opts := []string{"-cp", onDeviceJarPath}
	opts = append(opts, forceFlagsArt(mode, "-Xjitthreshold:0", "-Xint")...)
	opts = append(opts, extraOpts...)

	artBin := "dalvikvm"
	artArgs := append(append([]string{}, opts...), artifact.Main)
	if t.appProcess {
		artBin = "app_process"
		artArgs = append([]string{}, opts...)
		artArgs = append(artArgs, targetArtWorkDir)
		artArgs = append(artArgs, artifact.Main)
	}
	if args != "" {
		artArgs = append(artArgs, strings.Fields(args)...)
	}

	shellArgs := append([]string{"-s", t.serialNo, "shell", artBin}, artArgs...)
	res, runErr := process.Run(ctx, "", t.adb, shellArgs, timeout)

	_, _ = process.Run(context.Background(), "", t.adb,
		[]string{"-s", t.serialNo, "shell", "rm", "-rf", onDeviceJarPath, onDeviceTracePath}, 10*time.Second)

	if runErr != nil {
		return RunResult{}, runErr
	}

	return toRunResult(res), nil
}

func (t *targetArt) IsAlive(ctx context.Context) bool {
	res, err := process.Run(ctx, "", t.adb, []string{"devices"}, 10*time.Second)
	if err != nil || res.ExitCode != 0 || !strings.Contains(string(res.Output), t.serialNo+"\tdevice") {
		return false
	}
	res, err = process.Run(ctx, "", t.adb, []string{"-s", t.serialNo, "shell", "touch", targetArtWorkDir + "/.artemis.aliveness"}, 10*time.Second)

	return err == nil && res.ExitCode == 0
}

func (t *targetArt) Describe() string {
	return "art:target:" + t.serialNo
}
