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

// Package config loads and validates the single YAML configuration file that
// drives a run: the JVM under test, the generator and mutator adapters to
// use, and the run's resource limits.
package config

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// JvmType enumerates the supported target-VM adapters.
type JvmType string

const (
	JvmHotSpot   JvmType = "hotspot"
	JvmOpenJ9    JvmType = "openj9"
	JvmGraal     JvmType = "graal"
	JvmHostArt   JvmType = "host-art"
	JvmTargetArt JvmType = "target-art"
)

// GeneratorName enumerates the supported generator adapters.
type GeneratorName string

const (
	GeneratorJavaFuzzer    GeneratorName = "java-fuzzer"
	GeneratorJFuzz         GeneratorName = "jfuzz"
	GeneratorExistingTests GeneratorName = "existing-tests"
)

// Java describes the desktop toolchain used to compile and run generated
// and mutated programs.
type Java struct {
	Home      string   `mapstructure:"home"`
	Classpath []string `mapstructure:"classpath"`
}

// Jvm describes the target VM under test, selected by Type. Only the fields
// relevant to Type are populated and validated; the rest are zero.
type Jvm struct {
	Type    JvmType  `mapstructure:"type"`
	Options []string `mapstructure:"options"`

	// hotspot / openj9 / graal
	JavaHome  string   `mapstructure:"java_home"`
	Classpath []string `mapstructure:"classpath"`

	// host-art
	HostHome string `mapstructure:"host_home"`
	MinAPI   int    `mapstructure:"min_api"`

	// target-art
	AndroidHome string `mapstructure:"android_home"`
	BuildTools  string `mapstructure:"build_tools"`
	SerialNo    string `mapstructure:"serial_no"`
	AppProcess  bool   `mapstructure:"app_process"`
}

// Generator describes which test-program generator adapter to run and its
// adapter-specific knobs.
type Generator struct {
	Name   GeneratorName `mapstructure:"name"`
	OutDir string        `mapstructure:"out_dir"`

	// java-fuzzer / jfuzz: the generator's install directory, holding
	// either rb/Fuzzer.rb+rb/FuzzerUtils.java (java-fuzzer) or
	// bin/<os>/<arch>/jfuzz (jfuzz).
	Home string `mapstructure:"home"`

	// java-fuzzer
	Conf string `mapstructure:"conf"`

	// jfuzz
	MaxExprDepth      int `mapstructure:"max_expr_depth"`
	MaxStmtListSize   int `mapstructure:"max_stmt_list_size"`
	MaxNestedBranch   int `mapstructure:"max_nested_branch"`
	MaxNestedLoop     int `mapstructure:"max_nested_loop"`
	MaxNestedTryCatch int `mapstructure:"max_nested_try_catch"`

	// existing-tests
	ExistDir string `mapstructure:"exist_dir"`
}

// Artemis describes the mutator adapter.
type Artemis struct {
	Jar         string                 `mapstructure:"jar"`
	CodeBricks  string                 `mapstructure:"code_bricks"`
	Policy      string                 `mapstructure:"policy"`
	MinLoopTrip int                    `mapstructure:"min_loop_trip"`
	MaxLoopTrip int                    `mapstructure:"max_loop_trip"`
	ExtraOpts   map[string]interface{} `mapstructure:"extra_opts"`
}

// Config is the fully parsed, validated, and path-expanded run configuration,
// unmarshalled from the single YAML file named on the command line.
type Config struct {
	NumProc      int       `mapstructure:"num_proc"`
	ProgTimeout  int       `mapstructure:"prog_timeout"`
	RandSeed     int64     `mapstructure:"rand_seed"`
	NumMutation  int       `mapstructure:"num_mutation"`
	SaveTimeouts bool      `mapstructure:"save_timeouts"`
	OutDir       string    `mapstructure:"out_dir"`
	Java         Java      `mapstructure:"java"`
	Jvm          Jvm       `mapstructure:"jvm"`
	Generator    Generator `mapstructure:"generator"`
	Artemis      Artemis   `mapstructure:"artemis"`
}

// Load reads the YAML file at path, resolves $VAR environment references and
// ~-prefixed home-directory paths, unmarshals it into a Config, and runs
// startup validation. The returned error, if any, is a configuration error:
// the caller should exit with code 1.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading configuration %s: %w", path, err)
	}

	resolveEnvVars(v, "", v.AllSettings())

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration %s: %w", path, err)
	}

	if err := expandPaths(&cfg); err != nil {
		return Config{}, err
	}

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// resolveEnvVars walks every string value reachable from settings and, for
// any value beginning with "$", substitutes it with the corresponding
// environment variable's value. AllSettings returns a fresh copy on
// every call, so the resolved value is pushed back into v itself (via Set,
// which takes precedence over the file value) rather than mutated in place,
// so that the later Unmarshal actually observes it.
func resolveEnvVars(v *viper.Viper, prefix string, settings map[string]interface{}) {
	for k, val := range settings {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := val.(type) {
		case string:
			if strings.HasPrefix(t, "$") {
				v.Set(key, os.Getenv(strings.TrimPrefix(t, "$")))
			}
		case []interface{}:
			resolved := false
			items := make([]interface{}, len(t))
			for i, item := range t {
				items[i] = item
				if s, ok := item.(string); ok && strings.HasPrefix(s, "$") {
					items[i] = os.Getenv(strings.TrimPrefix(s, "$"))
					resolved = true
				}
			}
			if resolved {
				v.Set(key, items)
			}
		case map[string]interface{}:
			resolveEnvVars(v, key, t)
		}
	}
}

// expandPaths expands a leading "~" to the user's home directory in every
// path-shaped field.
func expandPaths(cfg *Config) error {
	fields := []*string{
		&cfg.OutDir,
		&cfg.Java.Home,
		&cfg.Jvm.JavaHome,
		&cfg.Jvm.HostHome,
		&cfg.Jvm.AndroidHome,
		&cfg.Generator.OutDir,
		&cfg.Generator.Home,
		&cfg.Generator.Conf,
		&cfg.Generator.ExistDir,
		&cfg.Artemis.Jar,
		&cfg.Artemis.CodeBricks,
	}
	for _, f := range fields {
		if *f == "" {
			continue
		}
		expanded, err := homedir.Expand(*f)
		if err != nil {
			return fmt.Errorf("expanding path %q: %w", *f, err)
		}
		*f = expanded
	}

	return nil
}
