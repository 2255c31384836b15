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

package config

import (
	"fmt"
	"os"
)

// validate checks that every path/dir/file field exists and is the right
// kind, and that the jvm sub-config carries the fields its declared type
// needs, before the pipeline starts: a misconfigured target aborts at
// startup with a diagnostic, not partway through the run. It does not check
// whether the target is reachable.
func validate(cfg *Config) error {
	if cfg.NumProc <= 0 {
		return fmt.Errorf("num_proc must be a positive integer, got %d", cfg.NumProc)
	}
	if cfg.ProgTimeout <= 0 {
		return fmt.Errorf("prog_timeout must be a positive integer, got %d", cfg.ProgTimeout)
	}
	if cfg.NumMutation <= 0 {
		return fmt.Errorf("num_mutation must be a positive integer, got %d", cfg.NumMutation)
	}
	if err := checkDir("out_dir", cfg.OutDir, false); err != nil {
		return err
	}

	if err := checkDir("java.home", cfg.Java.Home, true); err != nil {
		return err
	}

	if err := validateJvm(&cfg.Jvm); err != nil {
		return err
	}

	if err := validateGenerator(&cfg.Generator); err != nil {
		return err
	}

	return validateArtemis(&cfg.Artemis)
}

func validateJvm(jvm *Jvm) error {
	switch jvm.Type {
	case JvmHotSpot, JvmOpenJ9, JvmGraal:
		if err := checkDir("jvm.java_home", jvm.JavaHome, true); err != nil {
			return err
		}
	case JvmHostArt:
		if err := checkDir("jvm.host_home", jvm.HostHome, true); err != nil {
			return err
		}
		if jvm.MinAPI <= 0 {
			return fmt.Errorf("jvm.min_api must be a positive integer, got %d", jvm.MinAPI)
		}
	case JvmTargetArt:
		if err := checkDir("jvm.android_home", jvm.AndroidHome, true); err != nil {
			return err
		}
		if jvm.BuildTools == "" {
			return fmt.Errorf("jvm.build_tools must be set")
		}
		if jvm.SerialNo == "" {
			return fmt.Errorf("jvm.serial_no must be set")
		}
		if jvm.MinAPI <= 0 {
			return fmt.Errorf("jvm.min_api must be a positive integer, got %d", jvm.MinAPI)
		}
	default:
		return fmt.Errorf("unsupported jvm.type: %q", jvm.Type)
	}

	return nil
}

func validateGenerator(gen *Generator) error {
	switch gen.Name {
	case GeneratorJavaFuzzer:
		if err := checkDir("generator.home", gen.Home, true); err != nil {
			return err
		}
		if gen.Conf != "" {
			if err := checkFileOrDir("generator.conf", gen.Conf); err != nil {
				return err
			}
		}
	case GeneratorJFuzz:
		if err := checkDir("generator.home", gen.Home, true); err != nil {
			return err
		}
		if gen.MaxStmtListSize <= 0 || gen.MaxNestedBranch <= 0 || gen.MaxNestedLoop <= 0 || gen.MaxNestedTryCatch <= 0 {
			return fmt.Errorf("generator.max_stmt_list_size, max_nested_branch, max_nested_loop and max_nested_try_catch must all be positive")
		}
		if gen.MaxExprDepth < 0 {
			return fmt.Errorf("generator.max_expr_depth must not be negative, got %d", gen.MaxExprDepth)
		}
	case GeneratorExistingTests:
		if err := checkDir("generator.exist_dir", gen.ExistDir, true); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported generator.name: %q", gen.Name)
	}

	return checkDir("generator.out_dir", gen.OutDir, false)
}

func validateArtemis(ax *Artemis) error {
	if err := checkFile("artemis.jar", ax.Jar, true); err != nil {
		return err
	}
	if err := checkDir("artemis.code_bricks", ax.CodeBricks, true); err != nil {
		return err
	}
	if ax.Policy != "artemis" {
		return fmt.Errorf("unsupported artemis.policy: %q", ax.Policy)
	}
	if ax.MinLoopTrip < 0 || ax.MaxLoopTrip < ax.MinLoopTrip {
		return fmt.Errorf("artemis.min_loop_trip/max_loop_trip are invalid: %d/%d", ax.MinLoopTrip, ax.MaxLoopTrip)
	}

	return nil
}

func checkDir(keyPath, val string, mustExist bool) error {
	if val == "" {
		if mustExist {
			return fmt.Errorf("%s must be set", keyPath)
		}

		return nil
	}
	info, err := os.Stat(val)
	if mustExist && err != nil {
		return fmt.Errorf("%s does not exist: %s", keyPath, val)
	}
	if err == nil && !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %s", keyPath, val)
	}

	return nil
}

func checkFile(keyPath, val string, mustExist bool) error {
	if val == "" {
		if mustExist {
			return fmt.Errorf("%s must be set", keyPath)
		}

		return nil
	}
	info, err := os.Stat(val)
	if mustExist && err != nil {
		return fmt.Errorf("%s does not exist: %s", keyPath, val)
	}
	if err == nil && info.IsDir() {
		return fmt.Errorf("%s is not a file: %s", keyPath, val)
	}

	return nil
}

func checkFileOrDir(keyPath, val string) error {
	if _, err := os.Stat(val); err != nil {
		return fmt.Errorf("%s does not exist: %s", keyPath, val)
	}

	return nil
}
