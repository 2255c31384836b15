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

// Package mutator implements the semantics-preserving source mutator: given
// a reference .java file, it produces a mutant .java file in an output
// directory that a correct JVM must treat identically to the reference.
package mutator

import (
	"context"
	"time"
)

// Result is the outcome of a single mutation attempt. A nil error with a
// non-empty MutantPath means the mutator produced a mutant; a non-nil error
// means mutation itself failed (a MutationError trial outcome, distinct
// from a JVM or compiler failure further down the pipeline), and Output
// carries whatever diagnostic the mutator printed.
type Result struct {
	MutantPath string
	Output     string
}

// Mutator produces a mutant of reference under outDir, deterministically
// reproducible given the same seed. timeout bounds the mutation attempt
// itself, independent of any downstream compile/run timeout.
type Mutator interface {
	Mutate(ctx context.Context, reference, outDir string, seed int64, timeout time.Duration) (Result, error)
}
