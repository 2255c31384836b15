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

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/hako/durafmt"

	"github.com/test-jitcomp/Artemis/internal/cliexit"
	"github.com/test-jitcomp/Artemis/internal/config"
	"github.com/test-jitcomp/Artemis/internal/generator"
	"github.com/test-jitcomp/Artemis/internal/log"
	"github.com/test-jitcomp/Artemis/internal/mutator"
	"github.com/test-jitcomp/Artemis/internal/pipeline"
	"github.com/test-jitcomp/Artemis/internal/stats"
	"github.com/test-jitcomp/Artemis/internal/vm"
	"github.com/test-jitcomp/Artemis/internal/writer"
)

// Run loads cfgPath, wires the generator, mutator, and target Vm adapters it
// names, and drives the pipeline to completion or to ctx's cancellation. It
// returns a *cliexit.ExitError so main can map the failure to the right
// process exit code.
func Run(ctx context.Context, cfgPath, filterSpec string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cliexit.NewExitErr(cliexit.ConfigurationError, fmt.Errorf("loading configuration: %w", err))
	}

	gen, err := generator.New(cfg.Generator, cfg.RandSeed)
	if err != nil {
		return cliexit.NewExitErr(cliexit.ConfigurationError, fmt.Errorf("building generator: %w", err))
	}

	mut, err := mutator.New(cfg.Java, cfg.Artemis)
	if err != nil {
		return cliexit.NewExitErr(cliexit.ConfigurationError, fmt.Errorf("building mutator: %w", err))
	}

	vmf := func() (vm.Vm, error) { return vm.New(cfg.Jvm) }
	probe, err := vmf()
	if err != nil {
		return cliexit.NewExitErr(cliexit.ConfigurationError, fmt.Errorf("building target vm: %w", err))
	}
	if !probe.IsAlive(ctx) {
		return cliexit.NewExitErr(cliexit.ConfigurationError, fmt.Errorf("target vm %s is not reachable", probe.Describe()))
	}

	counters := stats.New()
	logger := log.NewTrialLogger(filterSpec)

	w, err := writer.New(cfg.OutDir, cfg.SaveTimeouts, counters, logger)
	if err != nil {
		return cliexit.NewExitErr(cliexit.ConfigurationError, fmt.Errorf("preparing output directory: %w", err))
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Errorf("closing writer: %s\n", err)
		}
	}()

	p, err := pipeline.New(cfg, gen, mut, vmf, w, counters)
	if err != nil {
		return cliexit.NewExitErr(cliexit.ConfigurationError, fmt.Errorf("building pipeline: %w", err))
	}

	summary, runErr := p.Run(ctx)
	printSummary(summary)

	if runErr != nil {
		return cliexit.NewExitErr(cliexit.AbnormalTermination, runErr)
	}
	if !summary.StoppedNormally {
		return cliexit.NewExitErr(cliexit.AbnormalTermination, errors.New("run did not complete normally"))
	}

	return nil
}

func printSummary(s pipeline.Summary) {
	elapsed := durafmt.Parse(s.Elapsed).LimitFirstN(2)
	log.Infof("References: %d, Mutants: %d, Differences: %d\n", s.RefCount, s.MutCount, s.DiffCount)
	log.Infof("Mutation failures: %d, Compilation failures: %d\n", s.MutationFailureCount, s.CompilationFailureCount)
	log.Infof("Mutant timeouts: %d, Both timed out: %d\n", s.MutantTimeoutCount, s.AllTimeoutCount)
	log.Infof("Completed in %s\n", elapsed.String())
	if !s.StoppedNormally {
		log.Errorln("Exited abnormally")
	}
}
