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

package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/test-jitcomp/Artemis/internal/config"
)

func writeConfig(t *testing.T, dir string, yaml string) string {
	t.Helper()
	path := filepath.Join(dir, "artemis.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("unable to write fixture config: %v", err)
	}

	return path
}

func baseFixtures(t *testing.T) (dir string, javaHome, jar, bricks, genOut string) {
	t.Helper()
	dir = t.TempDir()

	javaHome = filepath.Join(dir, "java")
	if err := os.MkdirAll(filepath.Join(javaHome, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}

	jar = filepath.Join(dir, "artemis.jar")
	if err := os.WriteFile(jar, []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	bricks = filepath.Join(dir, "bricks")
	if err := os.MkdirAll(bricks, 0o755); err != nil {
		t.Fatal(err)
	}

	genOut = filepath.Join(dir, "generated")

	return dir, javaHome, jar, bricks, genOut
}

func validYAML(javaHome, jar, bricks, genOut, outDir string) string {
	return fmt.Sprintf(`
num_proc: 4
prog_timeout: 2
rand_seed: 42
num_mutation: 1
save_timeouts: true
out_dir: %s
java:
  home: %s
  classpath: []
jvm:
  type: hotspot
  options: []
  java_home: %s
  classpath: []
generator:
  name: existing-tests
  out_dir: %s
  exist_dir: %s
artemis:
  jar: %s
  code_bricks: %s
  policy: artemis
  min_loop_trip: 1
  max_loop_trip: 4
  extra_opts: {}
`, outDir, javaHome, javaHome, genOut, genOut, jar, bricks)
}

func TestLoad_valid(t *testing.T) {
	dir, javaHome, jar, bricks, genOut := baseFixtures(t)
	if err := os.MkdirAll(genOut, 0o755); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	path := writeConfig(t, dir, validYAML(javaHome, jar, bricks, genOut, outDir))

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NumProc != 4 {
		t.Errorf("expected num_proc 4, got %d", cfg.NumProc)
	}
	if cfg.Jvm.Type != config.JvmHotSpot {
		t.Errorf("expected jvm type hotspot, got %s", cfg.Jvm.Type)
	}
	if cfg.Artemis.Policy != "artemis" {
		t.Errorf("expected artemis policy, got %s", cfg.Artemis.Policy)
	}
}

func TestLoad_envVarResolution(t *testing.T) {
	dir, javaHome, jar, bricks, genOut := baseFixtures(t)
	if err := os.MkdirAll(genOut, 0o755); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	t.Setenv("ARTEMIS_SEED_SOURCE", "hotspot")
	yaml := validYAML(javaHome, jar, bricks, genOut, outDir)
	yaml = replaceOnce(yaml, "type: hotspot", "type: $ARTEMIS_SEED_SOURCE")
	path := writeConfig(t, dir, yaml)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Jvm.Type != config.JvmHotSpot {
		t.Errorf("expected $ARTEMIS_SEED_SOURCE to resolve to hotspot, got %q", cfg.Jvm.Type)
	}
}

func TestLoad_envVarResolutionInLists(t *testing.T) {
	dir, javaHome, jar, bricks, genOut := baseFixtures(t)
	if err := os.MkdirAll(genOut, 0o755); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ARTEMIS_EXTRA_CP", "/opt/libs/utils.jar")
	yaml := validYAML(javaHome, jar, bricks, genOut, filepath.Join(dir, "out"))
	yaml = replaceOnce(yaml, "classpath: []", `classpath: ["$ARTEMIS_EXTRA_CP"]`)
	path := writeConfig(t, dir, yaml)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Java.Classpath) != 1 || cfg.Java.Classpath[0] != "/opt/libs/utils.jar" {
		t.Errorf("expected $ARTEMIS_EXTRA_CP to resolve inside the classpath list, got %v", cfg.Java.Classpath)
	}
}

func TestLoad_missingFileIsAnError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing configuration file")
	}
}

func TestLoad_rejectsUnsupportedJvmType(t *testing.T) {
	dir, javaHome, jar, bricks, genOut := baseFixtures(t)
	if err := os.MkdirAll(genOut, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := validYAML(javaHome, jar, bricks, genOut, filepath.Join(dir, "out"))
	yaml = replaceOnce(yaml, "type: hotspot", "type: commodore64")
	path := writeConfig(t, dir, yaml)

	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected an error for an unsupported jvm type")
	}
}

func TestLoad_rejectsMissingJavaHome(t *testing.T) {
	dir, javaHome, jar, bricks, genOut := baseFixtures(t)
	if err := os.MkdirAll(genOut, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := validYAML(javaHome, jar, bricks, genOut, filepath.Join(dir, "out"))
	yaml = replaceOnce(yaml, "home: "+javaHome, "home: "+filepath.Join(dir, "does-not-exist"))
	path := writeConfig(t, dir, yaml)

	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected an error for a missing java.home directory")
	}
}

func replaceOnce(s, old, new string) string {
	return strings.Replace(s, old, new, 1)
}
