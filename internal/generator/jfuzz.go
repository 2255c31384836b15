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
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/test-jitcomp/Artemis/internal/config"
)

const jfuzzGenTimeout = time.Minute

// jFuzz wraps the JFuzz native binary generator. Only the linux/amd64 and
// darwin/amd64 binary layouts shipped by the upstream distribution are
// supported.
type jFuzz struct {
	bin               string
	outDir            string
	maxExprDepth      int
	maxStmtListSize   int
	maxNestedBranch   int
	maxNestedLoop     int
	maxNestedTryCatch int
	rnd               *rand.Rand
	nextIndex         int
}

// NewJFuzz builds the JFuzz generator adapter. cfg.Home must hold the
// jfuzz binary under bin/<os>/<arch>/jfuzz.
func NewJFuzz(cfg config.Generator, randSeed int64) (Generator, error) {
	if runtime.GOARCH != "amd64" {
		return nil, fmt.Errorf("jfuzz: unsupported architecture %q, jfuzz requires amd64", runtime.GOARCH)
	}

	var osDir string
	switch runtime.GOOS {
	case "linux", "darwin":
		osDir = runtime.GOOS
	default:
		return nil, fmt.Errorf("jfuzz: unsupported platform %q", runtime.GOOS)
	}

	bin := filepath.Join(cfg.Home, "bin", osDir, "x86_64", "jfuzz")
	if _, err := os.Stat(bin); err != nil {
		return nil, fmt.Errorf("jfuzz: binary does not exist in generator.home %q: %w", cfg.Home, err)
	}

	maxExprDepth := cfg.MaxExprDepth
	if maxExprDepth == 0 {
		maxExprDepth = 5
	}

	return &jFuzz{
		bin:               bin,
		outDir:            cfg.OutDir,
		maxExprDepth:      maxExprDepth,
		maxStmtListSize:   cfg.MaxStmtListSize,
		maxNestedBranch:   cfg.MaxNestedBranch,
		maxNestedLoop:     cfg.MaxNestedLoop,
		maxNestedTryCatch: cfg.MaxNestedTryCatch,
		rnd:               rand.New(rand.NewSource(randSeed)),
	}, nil
}

// Next invokes the jfuzz binary with a fresh 32-bit seed drawn from this
// generator's own PRNG, capturing stdout into a freshly numbered Test.java.
func (g *jFuzz) Next(ctx context.Context) (string, bool, error) {
	g.nextIndex++
	classDir := filepath.Join(g.outDir, strconv.Itoa(g.nextIndex))
	if err := os.MkdirAll(classDir, 0o755); err != nil {
		return "", false, fmt.Errorf("jfuzz: mkdir %s: %w", classDir, err)
	}

	javaFile := filepath.Join(classDir, "Test.java")
	out, err := os.Create(javaFile)
	if err != nil {
		return "", false, fmt.Errorf("jfuzz: create %s: %w", javaFile, err)
	}
	defer out.Close()

	runCtx, cancel := context.WithTimeout(ctx, jfuzzGenTimeout)
	defer cancel()

	seed := g.rnd.Uint32()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, g.bin,
		"-s", strconv.FormatUint(uint64(seed), 10),
		"-d", strconv.Itoa(g.maxExprDepth),
		"-l", strconv.Itoa(g.maxStmtListSize),
		"-i", strconv.Itoa(g.maxNestedBranch),
		"-n", strconv.Itoa(g.maxNestedLoop),
		"-t", strconv.Itoa(g.maxNestedTryCatch),
	)
	cmd.Stdout = out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", false, fmt.Errorf("jfuzz: generating %s failed: %v: %s", javaFile, err, stderr.String())
	}

	return javaFile, true, nil
}
