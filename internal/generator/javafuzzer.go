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

package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/test-jitcomp/Artemis/internal/config"
)

const javaFuzzerGenTimeout = time.Minute

// javaFuzzer wraps Java*Fuzzer, a Ruby random-program generator bundled as
// home/rb/Fuzzer.rb plus a sibling home/rb/FuzzerUtils.java every generated
// test depends on.
type javaFuzzer struct {
	loadPath  string
	fuzzerRb  string
	utilJava  string
	confPath  string
	outDir    string
	nextIndex int
}

// NewJavaFuzzer builds the Java*Fuzzer generator adapter. cfg.Home must hold
// Fuzzer.rb and FuzzerUtils.java under an rb/ subdirectory. Fuzzer.rb draws
// its own randomness from the configuration file, so unlike jfuzz it takes
// no seed from the run.
func NewJavaFuzzer(cfg config.Generator, _ int64) (Generator, error) {
	loadPath := filepath.Join(cfg.Home, "rb")
	fuzzerRb := filepath.Join(loadPath, "Fuzzer.rb")
	if _, err := os.Stat(fuzzerRb); err != nil {
		return nil, fmt.Errorf("java-fuzzer: Fuzzer.rb does not exist in generator.home %q: %w", cfg.Home, err)
	}
	utilJava := filepath.Join(loadPath, "FuzzerUtils.java")
	if _, err := os.Stat(utilJava); err != nil {
		return nil, fmt.Errorf("java-fuzzer: FuzzerUtils.java does not exist in generator.home %q: %w", cfg.Home, err)
	}

	confPath := cfg.Conf
	if confPath == "" {
		return nil, fmt.Errorf("java-fuzzer: generator.conf must be set")
	}

	return &javaFuzzer{
		loadPath: loadPath,
		fuzzerRb: fuzzerRb,
		utilJava: utilJava,
		confPath: confPath,
		outDir:   cfg.OutDir,
	}, nil
}

// Next runs Fuzzer.rb into a freshly numbered subdirectory of outDir,
// capturing its stdout as Test.java, then copies FuzzerUtils.java alongside
// it so the generated test compiles.
func (g *javaFuzzer) Next(ctx context.Context) (string, bool, error) {
	g.nextIndex++
	classDir := filepath.Join(g.outDir, strconv.Itoa(g.nextIndex))
	if err := os.MkdirAll(classDir, 0o755); err != nil {
		return "", false, fmt.Errorf("java-fuzzer: mkdir %s: %w", classDir, err)
	}

	javaFile := filepath.Join(classDir, "Test.java")
	out, err := os.Create(javaFile)
	if err != nil {
		return "", false, fmt.Errorf("java-fuzzer: create %s: %w", javaFile, err)
	}
	defer out.Close()

	runCtx, cancel := context.WithTimeout(ctx, javaFuzzerGenTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "ruby", "-I", g.loadPath, g.fuzzerRb, "-f", g.confPath)
	cmd.Stdout = out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", false, fmt.Errorf("java-fuzzer: generating %s failed: %v: %s", javaFile, err, stderr.String())
	}

	if err := copyFile(g.utilJava, filepath.Join(classDir, "FuzzerUtils.java")); err != nil {
		return "", false, fmt.Errorf("java-fuzzer: copying FuzzerUtils.java: %w", err)
	}

	return javaFile, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, in, 0o644)
}
