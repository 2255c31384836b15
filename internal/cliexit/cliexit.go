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

// Package cliexit maps the outcomes a run can end in to the process exit
// codes required by the CLI surface: 0 on normal completion, 1 on
// configuration error, non-zero on abnormal termination.
package cliexit

// ErrorType is the kind of error that drives a specific exit status.
type ErrorType int

const (
	// ConfigurationError is raised when the configuration file is missing,
	// malformed, or fails startup validation.
	ConfigurationError ErrorType = iota

	// AbnormalTermination is raised when the run is interrupted by a signal
	// or stops because the target Vm died mid-run.
	AbnormalTermination
)

// String produces the human readable sentence for the ErrorType.
func (e ErrorType) String() string {
	switch e {
	case ConfigurationError:
		return "configuration error"
	case AbnormalTermination:
		return "exited abnormally"
	}
	panic("this should not happen")
}

var errorMapping = map[ErrorType]int{
	ConfigurationError:  1,
	AbnormalTermination: 2,
}

// ExitError is a special error raised when a specific condition requires
// Artemis to exit with a specific, non-zero code. If returned (or properly
// wrapped) up to main, its ExitCode becomes the process exit status.
type ExitError struct {
	errorType ErrorType
	exitCode  int
	cause     error
}

// NewExitErr instantiates a new ExitError for the given ErrorType, optionally
// wrapping an underlying cause.
func NewExitErr(et ErrorType, cause error) *ExitError {
	return &ExitError{exitCode: errorMapping[et], errorType: et, cause: cause}
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.cause != nil {
		return e.errorType.String() + ": " + e.cause.Error()
	}

	return e.errorType.String()
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *ExitError) Unwrap() error {
	return e.cause
}

// ExitCode returns the exit code associated with the ErrorType.
func (e *ExitError) ExitCode() int {
	return e.exitCode
}
