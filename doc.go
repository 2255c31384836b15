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

/*
Artemis is a differential testing harness for JIT-compiling JVMs.

It feeds fuzzer-generated Java programs to a reference run of the target
VM, applies semantics-preserving mutations to each program, runs every
mutant against the same VM, and reports any divergence between the
reference and a mutant run as a candidate compiler bug: a correctness
regression that standard conformance test suites do not catch because
the mutant and the reference are expected to behave identically.

Usage

To execute a run, point Artemis at a YAML configuration file describing
the generator, the mutator, and the target VM:

	$ artemis config.yaml

Only trial kinds matching a filter can be printed to the console, leaving
every bucket on disk untouched:

	$ artemis --filter=d config.yaml

Artemis reports each mutant attempt of a trial as one of:
  - MATCH: the mutant agreed with the reference; no divergence found.
  - DIFFERENCE: the mutant's return code or program output diverged from
    the reference.
  - MUTATION-FAILURE: the mutator failed to produce a mutant.
  - COMPILATION-FAILURE: the mutant failed to compile.
  - MUTANT-TIMEOUT: the mutant run exceeded the timeout while the
    reference did not.
  - ALL-TIMEOUT: both the reference and the mutant run exceeded the
    timeout.

Configuration

Artemis uses Viper (https://github.com/spf13/viper) to load its YAML
configuration file, naming the target VM, the generator and mutator
adapters, the output directory, and the run's resource limits (worker
count, per-program timeout, mutations per reference). See
internal/config for the full set of fields.

Every difference, mutation failure, compilation failure, and (optionally)
timeout is persisted as its own directory under the configured output
directory, so a run can be inspected after the fact without re-running
anything; internal/writer documents the exact layout.
*/
package artemis
