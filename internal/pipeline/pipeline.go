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

// Package pipeline wires the generator, the trial workers, and the writer
// together: a single producer goroutine pulls references off the generator
// and submits them through a bounded work queue to a fixed-size worker
// pool, each worker runs one trial at a time and reports its outcome onto a
// bounded result queue, and a single collector goroutine (this package's
// Run) hands every outcome to the writer in arrival order.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/test-jitcomp/Artemis/internal/config"
	"github.com/test-jitcomp/Artemis/internal/generator"
	"github.com/test-jitcomp/Artemis/internal/log"
	"github.com/test-jitcomp/Artemis/internal/mutator"
	"github.com/test-jitcomp/Artemis/internal/pipeline/workerpool"
	"github.com/test-jitcomp/Artemis/internal/stats"
	"github.com/test-jitcomp/Artemis/internal/trial"
	"github.com/test-jitcomp/Artemis/internal/vm"
	"github.com/test-jitcomp/Artemis/internal/writer"
)

// defaultWriterGrace is the bounded period the pipeline waits for the
// writer to drain whatever is already in flight once a shutdown begins.
const defaultWriterGrace = 15 * time.Second

// Pipeline owns the producer/worker-pool/collector orchestration for one
// run. It does not own the Writer's lifecycle (New's caller creates and
// closes it) so the caller can flush and report on it after Run returns
// regardless of how the run ended.
type Pipeline struct {
	gen      generator.Generator
	mut      mutator.Mutator
	vms      []vm.Vm
	writer   *writer.Writer
	counters *stats.Counters

	numProc         int
	workQueueSize   int
	resultQueueSize int
	writerGrace     time.Duration
	trialCfg        trial.Config
	classpath       []string
	rootSeed        int64
}

// VmFactory builds one Vm handle. New calls it once per worker so that
// each worker owns its own handle; device-backed adapters encapsulate
// exclusive access this way.
type VmFactory func() (vm.Vm, error)

// New builds a Pipeline from a loaded Config. w and counters must be the
// same Writer/Counters pair; New does not call w.Close.
func New(cfg config.Config, gen generator.Generator, mut mutator.Mutator, vmf VmFactory, w *writer.Writer, counters *stats.Counters) (*Pipeline, error) {
	if cfg.NumProc <= 0 {
		return nil, fmt.Errorf("pipeline: num_proc must be positive, got %d", cfg.NumProc)
	}

	vms := make([]vm.Vm, cfg.NumProc)
	for i := range vms {
		v, err := vmf()
		if err != nil {
			return nil, fmt.Errorf("pipeline: building vm handle for worker %d: %w", i, err)
		}
		vms[i] = v
	}

	return &Pipeline{
		gen:             gen,
		mut:             mut,
		vms:             vms,
		writer:          w,
		counters:        counters,
		numProc:         cfg.NumProc,
		workQueueSize:   2 * cfg.NumProc,
		resultQueueSize: 128,
		writerGrace:     defaultWriterGrace,
		trialCfg: trial.Config{
			K: cfg.NumMutation,
			T: time.Duration(cfg.ProgTimeout) * time.Second,
		},
		classpath: cfg.Java.Classpath,
		rootSeed:  cfg.RandSeed,
	}, nil
}

// Summary is the end-of-run report: a point-in-time counter snapshot, the
// wall-clock elapsed time, and whether the run ended because the generator
// was exhausted (true) or because of a VM death, a signal, or a fatal
// adapter error (false).
type Summary struct {
	stats.Snapshot
	Elapsed         time.Duration
	StoppedNormally bool
}

type jobResult struct {
	refDir  string
	outcome trial.Outcome
	err     error
}

// Run drives the pipeline to completion or to cancellation of ctx,
// whichever comes first. A non-nil error return means a fatal adapter
// invariant violation was hit: the caller should treat this as an
// abnormal termination.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := workerpool.Initialise("trial", p.numProc, p.workQueueSize)
	pool.Start()

	resultCh := make(chan jobResult, p.resultQueueSize)

	var wg sync.WaitGroup
	var stoppedNormally atomic.Bool
	stoppedNormally.Store(true)

	// The producer holds a count on wg for as long as it runs, so resultCh
	// cannot be closed before its first job has been submitted.
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.produce(runCtx, cancel, pool, resultCh, &wg, &stoppedNormally)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	fatalErr := p.collect(runCtx, cancel, resultCh, &stoppedNormally)

	pool.Stop()

	return Summary{
		Snapshot:        p.counters.Snapshot(),
		Elapsed:         time.Since(start),
		StoppedNormally: stoppedNormally.Load(),
	}, fatalErr
}

func (p *Pipeline) produce(ctx context.Context, cancel context.CancelFunc, pool *workerpool.Pool, resultCh chan<- jobResult, wg *sync.WaitGroup, stoppedNormally *atomic.Bool) {
	rnd := rand.New(rand.NewSource(p.rootSeed))

	for {
		if ctx.Err() != nil {
			stoppedNormally.Store(false)

			return
		}
		if !p.vms[0].IsAlive(ctx) {
			log.Errorf("target vm %s is no longer reachable, shutting down\n", p.vms[0].Describe())
			stoppedNormally.Store(false)
			cancel()

			return
		}

		path, ok, err := p.gen.Next(ctx)
		if err != nil {
			log.Errorf("generator failed to produce the next reference: %s\n", err)
			stoppedNormally.Store(false)
			cancel()

			return
		}
		if !ok {
			return
		}

		j := &trialJob{
			p:        p,
			refDir:   filepath.Dir(path),
			mainFile: filepath.Base(path),
			seed:     rnd.Int63(),
			ctx:      ctx,
			resultCh: resultCh,
			wg:       wg,
		}
		wg.Add(1)
		if !pool.SubmitContext(ctx, j) {
			wg.Done()
			stoppedNormally.Store(false)

			return
		}
	}
}

// collect is the single-threaded writer-feeding loop. It returns a non-nil
// error the first time a trial reports a fatal adapter invariant violation,
// after which it keeps draining (so counters stay consistent) but no longer
// accepts new work (cancel has already been called).
func (p *Pipeline) collect(ctx context.Context, cancel context.CancelFunc, resultCh <-chan jobResult, stoppedNormally *atomic.Bool) error {
	var fatalErr error
	var graceCh <-chan time.Time

	for {
		select {
		case res, ok := <-resultCh:
			if !ok {
				return fatalErr
			}
			if res.err != nil {
				if ctx.Err() != nil {
					// Shutdown is already underway (signal, VM death, or an
					// earlier fatal trial); this error is just that
					// cancellation reaching an in-flight trial, not a new
					// adapter invariant violation.
					log.Errorf("trial %s abandoned during shutdown: %s\n", res.refDir, res.err)

					continue
				}
				if fatalErr == nil {
					fatalErr = res.err
					stoppedNormally.Store(false)
					cancel()
				}
				log.Errorf("trial aborted: %s\n", res.err)

				continue
			}
			if err := p.writer.Process(writer.Item{RefDir: res.refDir, Outcome: res.outcome}); err != nil {
				log.Errorf("writer failed to process a trial: %s\n", err)
			}
		case <-ctx.Done():
			if graceCh == nil {
				timer := time.NewTimer(p.writerGrace)
				defer timer.Stop()
				graceCh = timer.C
			}
		case <-graceCh:
			log.Errorf("writer grace period (%s) expired; abandoning any results still in flight\n", p.writerGrace)

			return fatalErr
		}
	}
}

// trialJob adapts a single reference into a workerpool.Job: run its trial
// against the worker's own Vm handle and report the outcome.
type trialJob struct {
	p        *Pipeline
	refDir   string
	mainFile string
	seed     int64
	ctx      context.Context
	resultCh chan<- jobResult
	wg       *sync.WaitGroup
}

// Start runs the trial and reports its outcome. A panic here is a
// worker-internal exception: it is recovered, logged, and swallowed so
// one malformed reference cannot kill a worker; only an error returned by
// trial.Run itself (an adapter invariant violation) is reported upstream as
// fatal.
func (j *trialJob) Start(w *workerpool.Worker) {
	defer j.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("worker %s #%d panicked on %s: %v\n", w.Name, w.Id, j.refDir, r)
		}
	}()

	cfg := j.p.trialCfg
	cfg.Seed = j.seed
	v := j.p.vms[w.Id]

	out, err := trial.Run(j.ctx, j.refDir, j.mainFile, j.p.classpath, v, j.p.mut, cfg)
	j.resultCh <- jobResult{refDir: j.refDir, outcome: out, err: err}
}
