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

// Package flags declares a cobra flag and binds it to viper in one step, so
// the command layer reads every flag back through viper regardless of how
// the value was supplied.
package flags

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag describes one command flag: its name on the command line, the viper
// key it is read back through, and its default value, whose type decides
// the flag's type.
type Flag struct {
	Name      string
	CfgKey    string
	Shorthand string
	DefaultV  any
	Usage     string
}

// Set declares flag on cmd and binds it to viper.
func Set(cmd *cobra.Command, flag *Flag) error {
	return bind(flag, cmd.Flags())
}

// SetPersistent declares flag as a persistent flag on cmd, inherited by any
// sub-commands, and binds it to viper.
func SetPersistent(cmd *cobra.Command, flag *Flag) error {
	return bind(flag, cmd.PersistentFlags())
}

func bind(flag *Flag, fs *pflag.FlagSet) error {
	switch dv := flag.DefaultV.(type) {
	case string:
		fs.StringP(flag.Name, flag.Shorthand, dv, flag.Usage)
	case bool:
		fs.BoolP(flag.Name, flag.Shorthand, dv, flag.Usage)
	case int:
		fs.IntP(flag.Name, flag.Shorthand, dv, flag.Usage)
	default:
		return fmt.Errorf("flag %q has unsupported default type %T", flag.Name, flag.DefaultV)
	}

	return viper.BindPFlag(flag.CfgKey, fs.Lookup(flag.Name))
}
