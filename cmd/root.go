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

// Package cmd wires the cobra CLI surface onto the rest of Artemis: a
// single command taking the path to a run's YAML configuration, running
// the pipeline to completion or to cancellation, and printing the
// end-of-run summary.
package cmd

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/test-jitcomp/Artemis/cmd/internal/flags"
)

const paramFilter = "filter"

// Execute builds the root command and runs it against os.Args (as set up by
// cobra), with ctx driving cancellation of the underlying pipeline run.
func Execute(ctx context.Context, version string) error {
	if version == "" {
		return fmt.Errorf("cmd: version must be set")
	}

	cmd, err := newRootCmd(ctx, version)
	if err != nil {
		return err
	}

	return cmd.Execute()
}

func newRootCmd(ctx context.Context, version string) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           "artemis <config.yaml>",
		Short:         shortExplainer(),
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return Run(ctx, args[0], viper.GetString(paramFilter))
		},
	}

	filterFlag := &flags.Flag{
		Name:     paramFilter,
		CfgKey:   paramFilter,
		DefaultV: "",
		Usage:    "only print trial kinds matching these letters (n,d,m,c,t,a); empty prints everything",
	}
	if err := flags.SetPersistent(cmd, filterFlag); err != nil {
		return nil, err
	}

	return cmd, nil
}

func shortExplainer() string {
	return heredoc.Doc(`
		Artemis differentially tests a JVM.

		It feeds fuzzer-generated Java programs to a reference run of the
		target VM, mutates each program with semantics-preserving rewrites,
		runs every mutant against the same VM, and reports any divergence
		between the reference and a mutant as a candidate compiler bug.`)
}
