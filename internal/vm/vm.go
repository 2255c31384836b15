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

// Package vm implements the target-VM adapters: hotspot, openj9, graal,
// host-art and target-art. Every adapter compiles a source file into a
// runnable artifact and runs it, translating a ForceMode hint into the
// flags that force interpretation or JIT compilation on that VM.
package vm

import (
	"context"
	"time"

	"github.com/test-jitcomp/Artemis/internal/process"
)

// ForceMode is a hint translated by each adapter into VM-specific flags.
type ForceMode int

const (
	// ForceNone runs the VM with its default execution strategy.
	ForceNone ForceMode = iota
	// ForceInterpret forces pure interpretation, no JIT.
	ForceInterpret
	// ForceJIT forces eager JIT compilation.
	ForceJIT
)

// RunResult is the outcome of executing a compiled artifact: its exit code
// (process.TimeoutExitCode on timeout) and combined stdout/stderr.
type RunResult struct {
	ExitCode int
	Output   []byte
}

// TimedOut reports whether this result is the reserved timeout sentinel.
func (r RunResult) TimedOut() bool {
	return r.ExitCode == process.TimeoutExitCode
}

// CompiledArtifact is the opaque handle a Vm returns after a successful
// compile; only the adapter that produced it knows how to interpret it.
type CompiledArtifact struct {
	// Dir locates the compiled output: the class directory for the
	// classpath JVMs, the dexed jar file for the ART adapters.
	Dir string
	// Main is the class or entry identifier to run.
	Main string
}

// CompileError carries the diagnostic text when compilation fails.
type CompileError struct {
	Diagnostic string
}

func (e *CompileError) Error() string {
	return e.Diagnostic
}

// Vm is the narrow adapter contract the core depends on: compile, run,
// liveness probe, and a human-readable identity.
type Vm interface {
	Compile(ctx context.Context, source string, classpath []string, timeout time.Duration) (CompiledArtifact, error)
	Run(ctx context.Context, artifact CompiledArtifact, args string, mode ForceMode, extraOpts []string, timeout time.Duration) (RunResult, error)
	IsAlive(ctx context.Context) bool
	Describe() string
}

func toRunResult(res process.Result) RunResult {
	return RunResult{ExitCode: res.ExitCode, Output: res.Output}
}
