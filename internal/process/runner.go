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

// Package process runs subprocesses in their own process group and kills
// the whole group, not just the immediate child, on timeout or cancellation.
package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// TimeoutExitCode is the sentinel value reported in place of a real exit
// code when a subprocess is killed for exceeding its deadline. It is chosen
// to be implausible as a genuine process exit status.
const TimeoutExitCode = 0xC0FFEE

// Result is the outcome of running a subprocess to completion or to its
// deadline: an exit code (possibly TimeoutExitCode) plus its combined
// stdout/stderr.
type Result struct {
	ExitCode int
	Output   []byte
	TimedOut bool
}

// Run executes name with args under dir, bounded by timeout. The process is
// placed in its own process group; if the deadline is hit, the whole group
// is killed with SIGKILL (best effort on Windows) so no grandchild is left
// behind. stdout and stderr are combined into Result.Output.
func Run(ctx context.Context, dir, name string, args []string, timeout time.Duration) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	Setup(cmd)
	// On deadline or cancellation, kill the whole group at once: killing only
	// the immediate child would leave a grandchild holding the output pipe
	// open, and cmd.Run would wait for it.
	cmd.Cancel = func() error { return Kill(cmd) }

	err := cmd.Run()
	if cctx.Err() != nil {
		// Either the deadline fired or an ancestor context (shutdown on
		// signal or VM death) was canceled; either way the whole process
		// group must go, not just the immediate child.
		_ = Kill(cmd)
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return Result{ExitCode: TimeoutExitCode, Output: buf.Bytes(), TimedOut: true}, nil
		}

		return Result{}, cctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: buf.Bytes()}, nil
	}
	if err != nil {
		return Result{}, err
	}

	return Result{ExitCode: 0, Output: buf.Bytes()}, nil
}
