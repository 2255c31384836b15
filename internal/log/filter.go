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

package log

import "errors"

// Kind is the classification the writer gives one mutant outcome of a
// completed trial.
type Kind int

const (
	// Normal is a mutant whose run agrees with the reference's: no
	// divergence found.
	Normal Kind = iota
	// Difference is a mutant whose return code or output diverged from the
	// reference's.
	Difference
	// MutationFailure is a mutation attempt where the mutator itself failed
	// to produce a mutant.
	MutationFailure
	// CompilationFailure is a mutant that failed to compile.
	CompilationFailure
	// MutantTimeout is a mutant whose run hit the timeout while the
	// reference's did not.
	MutantTimeout
	// AllTimeout is a mutant whose run hit the timeout along with the
	// reference's.
	AllTimeout
)

// String renders the Kind's label as printed in the console output.
func (k Kind) String() string {
	switch k {
	case Normal:
		return "MATCH"
	case Difference:
		return "DIFFERENCE"
	case MutationFailure:
		return "MUTATION-FAILURE"
	case CompilationFailure:
		return "COMPILATION-FAILURE"
	case MutantTimeout:
		return "MUTANT-TIMEOUT"
	case AllTimeout:
		return "ALL-TIMEOUT"
	}
	panic("this should not happen")
}

// Filter maps the Kinds that should be logged. A nil Filter means
// "log everything".
type Filter map[Kind]struct{}

// ErrInvalidFilter is returned when an invalid kind filter string is given.
var ErrInvalidFilter = errors.New("invalid kind filter, only 'ndmcta' letters allowed")

// ParseFilter parses a filter string into a Filter map. Valid characters:
// n (normal), d (difference), m (mutation-failure), c (compilation-failure),
// t (mutant-timeout), a (all-timeout).
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return nil, nil
	}

	result := Filter{}
	for _, r := range s {
		switch r {
		case 'n':
			result[Normal] = struct{}{}
		case 'd':
			result[Difference] = struct{}{}
		case 'm':
			result[MutationFailure] = struct{}{}
		case 'c':
			result[CompilationFailure] = struct{}{}
		case 't':
			result[MutantTimeout] = struct{}{}
		case 'a':
			result[AllTimeout] = struct{}{}
		default:
			return nil, ErrInvalidFilter
		}
	}

	return result, nil
}

// TrialLogger logs trial classifications that pass its Filter.
type TrialLogger struct {
	Filter
}

// NewTrialLogger builds a TrialLogger from a filter string (see ParseFilter).
// An invalid filter string disables filtering (logs everything) and reports
// the parse error via Infof rather than failing the run.
func NewTrialLogger(filterSpec string) TrialLogger {
	f, err := ParseFilter(filterSpec)
	if err != nil {
		Infof("kind filter not applied: %s\n", err)
	}

	return TrialLogger{Filter: f}
}

// Log logs a trial classification if it passes the filter.
func (l TrialLogger) Log(k Kind, id int, detail string) {
	if l.Filter == nil {
		Trial(k, id, detail)

		return
	}
	if _, ok := l.Filter[k]; ok {
		Trial(k, id, detail)
	}
}
