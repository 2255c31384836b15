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

package writer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/test-jitcomp/Artemis/internal/log"
	"github.com/test-jitcomp/Artemis/internal/stats"
	"github.com/test-jitcomp/Artemis/internal/trial"
	"github.com/test-jitcomp/Artemis/internal/vm"
	"github.com/test-jitcomp/Artemis/internal/writer"
)

// newRef builds a reference directory with one top-level source file and a
// mutants/0 sub-directory, mimicking what internal/trial leaves behind.
func newRef(t *testing.T) (refDir, mutDir string) {
	t.Helper()
	refDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(refDir, "Test.java"), []byte("class Test {}"), 0o644); err != nil {
		t.Fatalf("failed to seed reference file: %v", err)
	}
	mutDir = filepath.Join(refDir, "mutants", "0")
	if err := os.MkdirAll(mutDir, 0o755); err != nil {
		t.Fatalf("failed to seed mutant dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mutDir, "Test.java"), []byte("class Test { /* mutated */ }"), 0o644); err != nil {
		t.Fatalf("failed to seed mutant file: %v", err)
	}

	return refDir, mutDir
}

func newWriter(t *testing.T, outDir string, saveTimeouts bool) (*writer.Writer, *stats.Counters) {
	t.Helper()
	c := stats.New()
	w, err := writer.New(outDir, saveTimeouts, c, log.NewTrialLogger(""))
	if err != nil {
		t.Fatalf("writer.New failed: %v", err)
	}
	t.Cleanup(func() {
		_ = w.Close()
	})

	return w, c
}

func readDiffsCSV(t *testing.T, outDir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, "differences", "diffs.csv"))
	if err != nil {
		t.Fatalf("failed to read diffs.csv: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	return lines
}

func TestWriter_matchingExecutedOutcomeIsDiscarded(t *testing.T) {
	outDir := t.TempDir()
	refDir, mutDir := newRef(t)
	w, c := newWriter(t, outDir, false)

	out := trial.Outcome{
		RefRun: vm.RunResult{ExitCode: 0, Output: []byte("hi\n")},
		Mutants: []trial.MutantOutcome{
			{Kind: trial.Executed, Dir: mutDir, MutationLog: "ok", Run: vm.RunResult{ExitCode: 0, Output: []byte("hi\n")}},
		},
	}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	lines := readDiffsCSV(t, outDir)
	if len(lines) != 1 {
		t.Fatalf("expected only the header row for a matching run, got %d lines", len(lines))
	}
	if c.Snapshot().DiffCount != 0 {
		t.Fatalf("expected no differences recorded")
	}
	if _, err := os.Stat(refDir); !os.IsNotExist(err) {
		t.Fatalf("expected reference directory to be removed, stat err: %v", err)
	}
}

func TestWriter_progOutputDifference(t *testing.T) {
	outDir := t.TempDir()
	refDir, mutDir := newRef(t)
	w, c := newWriter(t, outDir, false)

	out := trial.Outcome{
		RefRun: vm.RunResult{ExitCode: 0, Output: []byte("hi\n")},
		Mutants: []trial.MutantOutcome{
			{Kind: trial.Executed, Dir: mutDir, MutationLog: "log", Run: vm.RunResult{ExitCode: 0, Output: []byte("bye\n")}},
		},
	}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if c.Snapshot().DiffCount != 1 {
		t.Fatalf("expected 1 difference recorded")
	}
	bucket := filepath.Join(outDir, "differences", "0")
	if _, err := os.Stat(filepath.Join(bucket, "Test.java")); err != nil {
		t.Fatalf("expected reference top-level file copied into bucket: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bucket, "mutant", "Test.java")); err != nil {
		t.Fatalf("expected mutant sub-directory copied under bucket/mutant: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bucket, "mutant", "mutation.txt")); err != nil {
		t.Fatalf("expected mutation.txt under bucket/mutant: %v", err)
	}

	refTxt, err := os.ReadFile(filepath.Join(bucket, "reference.txt"))
	if err != nil {
		t.Fatalf("failed to read reference.txt: %v", err)
	}
	if string(refTxt) != "Return code: 0\nhi\n" {
		t.Fatalf("unexpected reference.txt contents: %q", refTxt)
	}

	mutTxt, err := os.ReadFile(filepath.Join(bucket, "mutant.txt"))
	if err != nil {
		t.Fatalf("failed to read mutant.txt: %v", err)
	}
	if string(mutTxt) != "Return code: 0\nbye\n" {
		t.Fatalf("unexpected mutant.txt contents: %q", mutTxt)
	}

	lines := readDiffsCSV(t, outDir)
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	row := strings.Split(lines[1], ",")
	// diff_id,ref_id,mut_id,diff_type,reference_return_code,reference_output_length,mutant_return_code,mutant_output_length
	if row[3] != "prog-output" {
		t.Fatalf("expected diff_type prog-output, got %q", row[3])
	}
	if row[5] != "3" || row[7] != "4" {
		t.Fatalf("expected output lengths 3/4 (len(\"hi\\n\")/len(\"bye\\n\")), got %s/%s", row[5], row[7])
	}
}

func TestWriter_returnCodeDifference(t *testing.T) {
	outDir := t.TempDir()
	refDir, mutDir := newRef(t)
	w, _ := newWriter(t, outDir, false)

	out := trial.Outcome{
		RefRun: vm.RunResult{ExitCode: 0, Output: []byte("hi\n")},
		Mutants: []trial.MutantOutcome{
			{Kind: trial.Executed, Dir: mutDir, MutationLog: "log", Run: vm.RunResult{ExitCode: 1, Output: []byte("hi\n")}},
		},
	}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	lines := readDiffsCSV(t, outDir)
	row := strings.Split(lines[1], ",")
	if row[3] != "return-code" {
		t.Fatalf("expected diff_type return-code, got %q", row[3])
	}
}

func TestWriter_mutationFailure(t *testing.T) {
	outDir := t.TempDir()
	refDir, mutDir := newRef(t)
	w, c := newWriter(t, outDir, false)

	out := trial.Outcome{
		RefRun: vm.RunResult{ExitCode: 0, Output: []byte("hi\n")},
		Mutants: []trial.MutantOutcome{
			{Kind: trial.MutationError, Dir: mutDir, Diagnostic: "boom"},
		},
	}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if c.Snapshot().MutationFailureCount != 1 {
		t.Fatalf("expected 1 mutation failure recorded")
	}

	got, err := os.ReadFile(filepath.Join(outDir, "mutation-failures", "0", "mutant", "mutation.err.txt"))
	if err != nil {
		t.Fatalf("failed to read mutation.err.txt: %v", err)
	}
	if string(got) != "boom" {
		t.Fatalf("expected mutation.err.txt contents %q, got %q", "boom", got)
	}
}

func TestWriter_compileFailure(t *testing.T) {
	outDir := t.TempDir()
	refDir, mutDir := newRef(t)
	w, c := newWriter(t, outDir, false)

	out := trial.Outcome{
		RefRun: vm.RunResult{ExitCode: 0, Output: []byte("hi\n")},
		Mutants: []trial.MutantOutcome{
			{Kind: trial.CompileError, Dir: mutDir, Diagnostic: "javac: error", MutationLog: "mutated ok"},
		},
	}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if c.Snapshot().CompilationFailureCount != 1 {
		t.Fatalf("expected 1 compilation failure recorded")
	}

	bucket := filepath.Join(outDir, "compilation-failures", "0", "mutant")
	diag, err := os.ReadFile(filepath.Join(bucket, "compilation.err.txt"))
	if err != nil || string(diag) != "javac: error" {
		t.Fatalf("unexpected compilation.err.txt: %q, err %v", diag, err)
	}
	mutLog, err := os.ReadFile(filepath.Join(bucket, "mutation.txt"))
	if err != nil || string(mutLog) != "mutated ok" {
		t.Fatalf("unexpected mutation.txt: %q, err %v", mutLog, err)
	}
}

func TestWriter_bothTimedOutCountsWithoutPersistingByDefault(t *testing.T) {
	outDir := t.TempDir()
	refDir, mutDir := newRef(t)
	w, c := newWriter(t, outDir, false)

	out := trial.Outcome{
		RefRun: vm.RunResult{ExitCode: 0xC0FFEE},
		Mutants: []trial.MutantOutcome{
			{Kind: trial.BothTimedOut, Dir: mutDir, MutationLog: "log", Run: vm.RunResult{ExitCode: 0xC0FFEE}},
		},
	}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if c.Snapshot().AllTimeoutCount != 1 {
		t.Fatalf("expected all-timeout count to be bumped regardless of save_timeouts")
	}
	if _, err := os.Stat(filepath.Join(outDir, "all-timeouts")); !os.IsNotExist(err) {
		t.Fatalf("expected no all-timeouts bucket to be persisted when save_timeouts is false")
	}
}

func TestWriter_mutantOnlyTimeoutPersistedWhenSaveTimeouts(t *testing.T) {
	outDir := t.TempDir()
	refDir, mutDir := newRef(t)
	w, c := newWriter(t, outDir, true)

	out := trial.Outcome{
		RefRun: vm.RunResult{ExitCode: 0, Output: []byte("hi\n")},
		Mutants: []trial.MutantOutcome{
			{Kind: trial.Executed, Dir: mutDir, MutationLog: "log", Run: vm.RunResult{ExitCode: 0xC0FFEE}},
		},
	}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if c.Snapshot().MutantTimeoutCount != 1 {
		t.Fatalf("expected mutant timeout count to be bumped")
	}
	if _, err := os.Stat(filepath.Join(outDir, "mutant-timeouts", "0", "mutant", "mutation.txt")); err != nil {
		t.Fatalf("expected mutant-timeouts bucket to be persisted: %v", err)
	}
	// A mutant-only timeout must never be reported as a difference.
	if c.Snapshot().DiffCount != 0 {
		t.Fatalf("expected no difference recorded for a mutant-only timeout")
	}
}

func TestWriter_referenceTimeoutIsDiscardedSilently(t *testing.T) {
	outDir := t.TempDir()
	refDir, _ := newRef(t)
	w, c := newWriter(t, outDir, true)

	out := trial.Outcome{ReferenceTimedOut: true}
	if err := w.Process(writer.Item{RefDir: refDir, Outcome: out}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	snap := c.Snapshot()
	if snap.MutCount != 0 || snap.DiffCount != 0 {
		t.Fatalf("expected a reference timeout to produce no mutant-level bookkeeping, got %+v", snap)
	}
	if _, err := os.Stat(refDir); !os.IsNotExist(err) {
		t.Fatalf("expected reference directory to be removed even on a reference timeout")
	}
}
