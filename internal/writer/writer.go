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

// Package writer implements the single-threaded classifier/writer: it
// consumes a trial's outcome, assigns it ids under the stats counters, lays
// its artifacts out on disk per the persisted bucket layout, appends the
// differences CSV, and finally reclaims the reference directory. It is the
// only component that is allowed to mutate persisted state, which is why it
// is built to be driven from a single goroutine rather than shared across
// workers.
package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/test-jitcomp/Artemis/internal/log"
	"github.com/test-jitcomp/Artemis/internal/stats"
	"github.com/test-jitcomp/Artemis/internal/trial"
	"github.com/test-jitcomp/Artemis/internal/vm"
	"github.com/test-jitcomp/Artemis/internal/workdir"
)

const timeoutSentinel = 0xC0FFEE

const (
	differencesDir         = "differences"
	mutationFailuresDir    = "mutation-failures"
	compilationFailuresDir = "compilation-failures"
	mutantTimeoutsDir      = "mutant-timeouts"
	allTimeoutsDir         = "all-timeouts"

	diffsCSVName = "diffs.csv"
)

var csvHeader = []string{
	"diff_id", "ref_id", "mut_id", "diff_type",
	"reference_return_code", "reference_output_length",
	"mutant_return_code", "mutant_output_length",
}

// Item is one completed trial handed to the Writer, carrying the reference
// directory the trial ran in (and is now done with) alongside its outcome.
type Item struct {
	RefDir  string
	Outcome trial.Outcome
}

// Writer is the classifier/writer. It is not safe for concurrent use:
// exactly one goroutine (the pipeline's collector) may call Process.
type Writer struct {
	outDir       string
	saveTimeouts bool
	counters     *stats.Counters
	logger       log.TrialLogger

	diffsCSV *csv.Writer
	diffsF   *os.File
}

// New creates a Writer rooted at outDir, creating the differences/ bucket
// and its diffs.csv (header only) up front so that a run producing zero
// differences still leaves a well-formed output tree.
func New(outDir string, saveTimeouts bool, counters *stats.Counters, logger log.TrialLogger) (*Writer, error) {
	diffDir := filepath.Join(outDir, differencesDir)
	if err := os.MkdirAll(diffDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", diffDir, err)
	}

	f, err := os.Create(filepath.Join(diffDir, diffsCSVName))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", diffsCSVName, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("writing %s header: %w", diffsCSVName, err)
	}
	w.Flush()

	return &Writer{
		outDir:       outDir,
		saveTimeouts: saveTimeouts,
		counters:     counters,
		logger:       logger,
		diffsCSV:     w,
		diffsF:       f,
	}, nil
}

// Close flushes and closes the diffs.csv file. Call once, after the
// pipeline has stopped feeding the Writer.
func (w *Writer) Close() error {
	w.diffsCSV.Flush()

	return w.diffsF.Close()
}

// Process classifies one trial's outcome, persists whatever it decides is
// interesting, and removes the reference directory once it has finished
// copying anything it wishes to retain.
func (w *Writer) Process(item Item) error {
	refID := w.counters.NextRefID()
	defer func() {
		if err := os.RemoveAll(item.RefDir); err != nil {
			log.Errorf("failed to remove reference directory %s: %s\n", item.RefDir, err)
		}
	}()

	if item.Outcome.ReferenceTimedOut {
		return nil
	}

	for i, m := range item.Outcome.Mutants {
		mutID := w.counters.NextMutID()
		if err := w.classify(item.RefDir, refID, mutID, item.Outcome.RefRun, m); err != nil {
			return fmt.Errorf("classifying mutant %d of reference %s: %w", i, item.RefDir, err)
		}
	}

	return nil
}

func (w *Writer) classify(refDir string, refID, mutID int, refRun vm.RunResult, m trial.MutantOutcome) error {
	switch m.Kind {
	case trial.MutationError:
		id := w.counters.NextMutationFailureID()
		w.logger.Log(log.MutationFailure, id, m.Dir)

		return w.persistFailure(refDir, mutationFailuresDir, id, m, "", "mutation.err.txt", m.Diagnostic)
	case trial.CompileError:
		id := w.counters.NextCompilationFailureID()
		w.logger.Log(log.CompilationFailure, id, m.Dir)

		return w.persistFailure(refDir, compilationFailuresDir, id, m, "mutation.txt", "compilation.err.txt", m.Diagnostic)
	case trial.BothTimedOut:
		id := w.counters.NextAllTimeoutID()
		w.logger.Log(log.AllTimeout, id, m.Dir)
		if !w.saveTimeouts {
			return nil
		}

		return w.persistFailure(refDir, allTimeoutsDir, id, m, "mutation.txt", "", "")
	case trial.Executed:
		return w.classifyExecuted(refDir, refID, mutID, refRun, m)
	}

	return fmt.Errorf("unknown mutant outcome kind: %v", m.Kind)
}

func (w *Writer) classifyExecuted(refDir string, refID, mutID int, refRun vm.RunResult, m trial.MutantOutcome) error {
	rcR, outR := refRun.ExitCode, refRun.Output
	rcM, outM := m.Run.ExitCode, m.Run.Output

	if rcR == rcM && string(outR) == string(outM) {
		w.logger.Log(log.Normal, mutID, m.Dir)

		return nil
	}

	if rcM == timeoutSentinel {
		id := w.counters.NextMutantTimeoutID()
		w.logger.Log(log.MutantTimeout, id, m.Dir)
		if !w.saveTimeouts {
			return nil
		}

		return w.persistFailure(refDir, mutantTimeoutsDir, id, m, "mutation.txt", "", "")
	}

	diffType := "prog-output"
	if rcR != rcM {
		diffType = "return-code"
	}

	diffID := w.counters.NextDiffID()
	w.logger.Log(log.Difference, diffID, m.Dir)

	return w.persistDifference(refDir, diffID, refID, mutID, diffType, m, rcR, outR, rcM, outM)
}

func (w *Writer) persistFailure(refDir, bucket string, id int, m trial.MutantOutcome, mutationLogName, diagName, diag string) error {
	bucketDir := filepath.Join(w.outDir, bucket, strconv.Itoa(id))
	if err := w.stageBucket(refDir, bucketDir, m.Dir); err != nil {
		return err
	}
	mutantDir := filepath.Join(bucketDir, "mutant")
	if mutationLogName != "" {
		if err := os.WriteFile(filepath.Join(mutantDir, mutationLogName), []byte(m.MutationLog), 0o644); err != nil {
			return err
		}
	}
	if diagName != "" {
		if err := os.WriteFile(filepath.Join(mutantDir, diagName), []byte(diag), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) persistDifference(refDir string, diffID, refID, mutID int, diffType string, m trial.MutantOutcome, rcR int, outR []byte, rcM int, outM []byte) error {
	bucketDir := filepath.Join(w.outDir, differencesDir, strconv.Itoa(diffID))
	if err := w.stageBucket(refDir, bucketDir, m.Dir); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(bucketDir, "mutant", "mutation.txt"), []byte(m.MutationLog), 0o644); err != nil {
		return err
	}
	if err := writeRunFile(filepath.Join(bucketDir, "reference.txt"), rcR, outR); err != nil {
		return err
	}
	if err := writeRunFile(filepath.Join(bucketDir, "mutant.txt"), rcM, outM); err != nil {
		return err
	}

	return w.diffsCSVRow(diffID, refID, mutID, diffType, rcR, len(outR), rcM, len(outM))
}

// stageBucket copies the reference's top-level files (not its mutants/
// sub-tree, not any other sub-directory) into bucketDir, then copies the
// offending mutant sub-directory under bucketDir/mutant.
func (w *Writer) stageBucket(refDir, bucketDir, mutantSrcDir string) error {
	if err := workdir.CopyTopLevelFiles(refDir, bucketDir, workdir.AcceptAll, ""); err != nil {
		return fmt.Errorf("staging bucket %s: %w", bucketDir, err)
	}

	return workdir.CopyDir(mutantSrcDir, filepath.Join(bucketDir, "mutant"))
}

func writeRunFile(path string, rc int, output []byte) error {
	content := fmt.Sprintf("Return code: %d\n%s", rc, output)

	return os.WriteFile(path, []byte(content), 0o644)
}

func (w *Writer) diffsCSVRow(diffID, refID, mutID int, diffType string, rcR, lenR, rcM, lenM int) error {
	row := []string{
		strconv.Itoa(diffID),
		strconv.Itoa(refID),
		strconv.Itoa(mutID),
		diffType,
		strconv.Itoa(rcR),
		strconv.Itoa(lenR),
		strconv.Itoa(rcM),
		strconv.Itoa(lenM),
	}
	if err := w.diffsCSV.Write(row); err != nil {
		return err
	}
	w.diffsCSV.Flush()

	return w.diffsCSV.Error()
}
