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

// Package generator implements the reference-program producers: a
// random-fuzzer script wrapper, a bounded-grammar native fuzzer wrapper, and
// a directory-replay adapter. All three produce a freshly prepared directory
// containing a nominated main .java file (Test.java for the two fuzzers, the
// MANIFEST-named file for directory replay) plus any sibling dependency
// files.
package generator

import (
	"context"
	"fmt"

	"github.com/test-jitcomp/Artemis/internal/config"
)

// Generator is a single-consumer iterator yielding reference paths. Next
// returns io.EOF-like end-of-iteration via the ok return being false; a
// non-nil error means the generator failed to produce the next item, which
// is an adapter invariant violation (fatal to the run).
type Generator interface {
	Next(ctx context.Context) (path string, ok bool, err error)
}

// New builds the Generator adapter selected by cfg.Name.
func New(cfg config.Generator, randSeed int64) (Generator, error) {
	switch cfg.Name {
	case config.GeneratorJavaFuzzer:
		return NewJavaFuzzer(cfg, randSeed)
	case config.GeneratorJFuzz:
		return NewJFuzz(cfg, randSeed)
	case config.GeneratorExistingTests:
		return NewExistingTests(cfg)
	default:
		return nil, fmt.Errorf("unsupported generator.name: %q", cfg.Name)
	}
}
