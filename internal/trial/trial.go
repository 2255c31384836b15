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

// Package trial implements the per-reference state machine: compile the
// reference, run it, then mutate/compile/run it in a loop until enough
// mutants have executed successfully, classifying every outcome along the
// way. It is the heart of the differential-testing pipeline: everything
// upstream (the Generator) and downstream (the Writer) exists to feed it
// work and persist what it finds.
package trial

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/test-jitcomp/Artemis/internal/mutator"
	"github.com/test-jitcomp/Artemis/internal/vm"
	"github.com/test-jitcomp/Artemis/internal/workdir"
)

const (
	compileTimeout = 30 * time.Second
	mutateTimeout  = 30 * time.Second

	mutantsDirName = "mutants"
)

// SourceExtensions is the sibling-file filter for the reference Java
// toolchain: only these file kinds are copied from a reference directory
// into a mutant sub-directory. It is a property of the target ecosystem's
// adapter layer, not of the trial state machine itself, but the state
// machine is the only caller that needs it.
var SourceExtensions = []string{".java", ".class", ".dex"}

// Config tunes a single trial: K is the number of mutants that must execute
// successfully before the mutation loop stops (at most 2K attempts); T
// bounds how long the reference (and, doubled, each mutant) may run; Seed
// seeds the trial-local PRNG that draws mutation seeds, so that parallel
// trials run from the same root seed do not draw colliding sequences.
type Config struct {
	K    int
	T    time.Duration
	Seed int64
}

// Outcome is the tagged result of running a single reference through the
// trial state machine.
type Outcome struct {
	// ReferenceTimedOut is true when the reference's own run hit the
	// timeout; when true, every other field is zero and the trial is
	// discarded silently (no mutants were ever attempted).
	ReferenceTimedOut bool

	RefRun  vm.RunResult
	Mutants []MutantOutcome
}

// MutantKind discriminates the variants of MutantOutcome.
type MutantKind int

const (
	// MutationError: the mutator rejected the reference.
	MutationError MutantKind = iota
	// CompileError: the mutant did not compile.
	CompileError
	// BothTimedOut: reference and mutant runs both hit the timeout sentinel.
	BothTimedOut
	// Executed: the mutant ran to completion.
	Executed
)

// MutantOutcome is the tagged result of one mutation attempt. Dir is always
// populated; the remaining fields are meaningful per Kind: Diagnostic for
// MutationError/CompileError, MutationLog for every variant except
// MutationError (which has no mutator stdout to show), and Run for Executed.
type MutantOutcome struct {
	Kind        MutantKind
	Dir         string
	Diagnostic  string
	MutationLog string
	Run         vm.RunResult
}

// successful reports whether this attempt counts toward the K successfully
// executed mutants the trial is targeting.
func (o MutantOutcome) successful() bool {
	return o.Kind == Executed || o.Kind == BothTimedOut
}

// ErrReservedMutantsDir is returned when the reference directory already
// contains a "mutants" entry: the name is reserved for this trial's own
// bookkeeping, so a generator that produces one is violating its contract.
var ErrReservedMutantsDir = fmt.Errorf("reference directory already contains a reserved %q entry", mutantsDirName)

// Run executes the full per-reference state machine against refDir, a
// directory containing the nominated main source file plus any sibling
// dependency files. classpath is passed through to every Vm.Compile call.
//
// A non-nil error is fatal to the whole run: references are presumed to
// always compile because their generators are trusted, so a reference
// compile failure aborts rather than being recorded as a trial outcome.
// Expected child-process failures
// (mutation failure, mutant compile failure, timeouts) are never returned as
// errors; they appear as MutantOutcome variants in the returned Outcome.
func Run(ctx context.Context, refDir, mainFile string, classpath []string, v vm.Vm, m mutator.Mutator, cfg Config) (Outcome, error) {
	if _, err := os.Stat(filepath.Join(refDir, mutantsDirName)); err == nil {
		return Outcome{}, ErrReservedMutantsDir
	}

	refSource := filepath.Join(refDir, mainFile)
	refArtifact, err := v.Compile(ctx, refSource, classpath, compileTimeout)
	if err != nil {
		return Outcome{}, fmt.Errorf("reference %s failed to compile: %w", refSource, err)
	}

	refRun, err := v.Run(ctx, refArtifact, "", vm.ForceNone, nil, cfg.T)
	if err != nil {
		return Outcome{}, fmt.Errorf("reference %s failed to run: %w", refSource, err)
	}
	if refRun.TimedOut() {
		return Outcome{ReferenceTimedOut: true}, nil
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))

	mutantsDir := filepath.Join(refDir, mutantsDirName)
	successes := 0
	var outcomes []MutantOutcome
	for i := 0; i < 2*cfg.K && successes < cfg.K; i++ {
		outcome, err := attemptMutant(ctx, refDir, mainFile, mutantsDir, i, classpath, v, m, cfg, int64(rnd.Uint32()), refRun)
		if err != nil {
			return Outcome{}, err
		}
		outcomes = append(outcomes, outcome)
		if outcome.successful() {
			successes++
		}
	}

	return Outcome{RefRun: refRun, Mutants: outcomes}, nil
}

// attemptMutant runs a single iteration of the mutation loop: create the
// sub-directory, mutate, copy siblings, compile, run, classify.
// The only errors it returns are adapter invariant violations (mkdir/copy
// failures); every expected child-process failure becomes a MutantOutcome.
func attemptMutant(ctx context.Context, refDir, mainFile, mutantsDir string, i int, classpath []string, v vm.Vm, m mutator.Mutator, cfg Config, seed int64, refRun vm.RunResult) (MutantOutcome, error) {
	dir := filepath.Join(mutantsDir, fmt.Sprintf("%d", i))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return MutantOutcome{}, fmt.Errorf("creating mutant directory %s: %w", dir, err)
	}

	refSource := filepath.Join(refDir, mainFile)
	mutRes, err := m.Mutate(ctx, refSource, dir, seed, mutateTimeout)
	if err != nil {
		return MutantOutcome{Kind: MutationError, Dir: dir, Diagnostic: mutRes.Output}, nil
	}

	filter := workdir.ExtensionFilter(SourceExtensions...)
	mutantFile := filepath.Base(mutRes.MutantPath)
	if err := workdir.CopyTopLevelFiles(refDir, dir, filter, mutantFile); err != nil {
		return MutantOutcome{}, fmt.Errorf("copying sibling files for mutant %s: %w", dir, err)
	}

	artifact, err := v.Compile(ctx, mutRes.MutantPath, classpath, compileTimeout)
	if err != nil {
		var compErr *vm.CompileError
		if !errors.As(err, &compErr) {
			return MutantOutcome{}, fmt.Errorf("compiling mutant %s: %w", dir, err)
		}

		return MutantOutcome{Kind: CompileError, Dir: dir, Diagnostic: compErr.Diagnostic, MutationLog: mutRes.Output}, nil
	}

	run, err := v.Run(ctx, artifact, "", vm.ForceNone, nil, 2*cfg.T)
	if err != nil {
		return MutantOutcome{}, fmt.Errorf("running mutant %s: %w", dir, err)
	}

	// Only a timeout on *both* the reference and the mutant is classified
	// BothTimedOut; a mutant-only timeout is recorded as Executed and left
	// for the writer to single out as a mutant-only timeout rather than a
	// difference.
	if refRun.TimedOut() && run.TimedOut() {
		return MutantOutcome{Kind: BothTimedOut, Dir: dir, MutationLog: mutRes.Output, Run: run}, nil
	}

	return MutantOutcome{Kind: Executed, Dir: dir, MutationLog: mutRes.Output, Run: run}, nil
}
