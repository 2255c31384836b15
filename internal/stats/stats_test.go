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

package stats_test

import (
	"sync"
	"testing"

	"github.com/test-jitcomp/Artemis/internal/stats"
)

func TestCounters_idsAreDenseAndZeroBased(t *testing.T) {
	c := stats.New()
	for i := 0; i < 3; i++ {
		if got := c.NextDiffID(); got != i {
			t.Fatalf("expected diff id %d, got %d", i, got)
		}
	}
	if got := c.Snapshot().DiffCount; got != 3 {
		t.Errorf("expected diff count 3, got %d", got)
	}
}

func TestCounters_timeoutIDsBumpTheirCount(t *testing.T) {
	c := stats.New()
	c.NextMutantTimeoutID()
	c.NextMutantTimeoutID()
	c.NextAllTimeoutID()

	snap := c.Snapshot()
	if snap.MutantTimeoutCount != 2 {
		t.Errorf("expected mutant timeout count 2, got %d", snap.MutantTimeoutCount)
	}
	if snap.AllTimeoutCount != 1 {
		t.Errorf("expected all timeout count 1, got %d", snap.AllTimeoutCount)
	}
}

func TestCounters_concurrentIncrementsNeverCollide(t *testing.T) {
	c := stats.New()
	const n = 200

	var wg sync.WaitGroup
	seen := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.NextMutID()
		}()
	}
	wg.Wait()
	close(seen)

	ids := make(map[int]struct{}, n)
	for id := range seen {
		ids[id] = struct{}{}
	}
	if len(ids) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(ids))
	}
}
