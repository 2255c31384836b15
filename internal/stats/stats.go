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

// Package stats holds the process-wide counters the writer maintains while
// classifying trial outcomes. There is exactly one writer goroutine and it
// is the only one that ever increments these counters, so the Next* methods
// need no locking of their own; they are atomic only so that concurrent
// readers (the final summary line, a future progress indicator) never
// observe a torn value.
package stats

import "sync/atomic"

// Counters is the single process-wide instance the Writer owns and
// increments, and that anything else in the process may read concurrently.
type Counters struct {
	refID                atomic.Int64
	mutID                atomic.Int64
	diffID               atomic.Int64
	mutationFailureID    atomic.Int64
	compilationFailureID atomic.Int64
	mutantTimeoutID      atomic.Int64
	allTimeoutID         atomic.Int64
	mutantTimeoutCount   atomic.Int64
	allTimeoutCount      atomic.Int64
}

// New builds a zeroed Counters, ids starting at 0 and dense from there.
func New() *Counters {
	return &Counters{}
}

// NextRefID returns the next dense, zero-based id for a classified trial.
func (c *Counters) NextRefID() int { return next(&c.refID) }

// NextMutID returns the next dense, zero-based id for a mutant outcome,
// assigned regardless of how that outcome is ultimately classified.
func (c *Counters) NextMutID() int { return next(&c.mutID) }

// NextDiffID returns the next dense, zero-based id for a persisted
// difference bucket.
func (c *Counters) NextDiffID() int { return next(&c.diffID) }

// NextMutationFailureID returns the next id for a mutation-failures bucket.
func (c *Counters) NextMutationFailureID() int { return next(&c.mutationFailureID) }

// NextCompilationFailureID returns the next id for a compilation-failures
// bucket.
func (c *Counters) NextCompilationFailureID() int { return next(&c.compilationFailureID) }

// NextMutantTimeoutID returns the next id for a mutant-timeouts bucket and
// bumps the mutant-only timeout count, whether or not save_timeouts keeps
// the bucket on disk.
func (c *Counters) NextMutantTimeoutID() int {
	c.mutantTimeoutCount.Add(1)

	return next(&c.mutantTimeoutID)
}

// NextAllTimeoutID returns the next id for an all-timeouts bucket and bumps
// the both-timed-out count, whether or not save_timeouts keeps the bucket
// on disk.
func (c *Counters) NextAllTimeoutID() int {
	c.allTimeoutCount.Add(1)

	return next(&c.allTimeoutID)
}

func next(counter *atomic.Int64) int {
	return int(counter.Add(1) - 1)
}

// Snapshot is a point-in-time, concurrency-safe copy of every counter, used
// to render the end-of-run summary line.
type Snapshot struct {
	RefCount                int
	MutCount                int
	DiffCount               int
	MutationFailureCount    int
	CompilationFailureCount int
	MutantTimeoutCount      int
	AllTimeoutCount         int
}

// Snapshot takes a consistent-enough read of every counter. It may be called
// from any goroutine at any time.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RefCount:                int(c.refID.Load()),
		MutCount:                int(c.mutID.Load()),
		DiffCount:               int(c.diffID.Load()),
		MutationFailureCount:    int(c.mutationFailureID.Load()),
		CompilationFailureCount: int(c.compilationFailureID.Load()),
		MutantTimeoutCount:      int(c.mutantTimeoutCount.Load()),
		AllTimeoutCount:         int(c.allTimeoutCount.Load()),
	}
}
