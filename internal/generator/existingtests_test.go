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

package generator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/test-jitcomp/Artemis/internal/config"
	"github.com/test-jitcomp/Artemis/internal/generator"
)

func writeTestPackage(t *testing.T, testDir, name, manifestName, depFile string) {
	t.Helper()
	pkgDir := filepath.Join(testDir, name)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "MANIFEST"), []byte(manifestName+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, manifestName+".java"), []byte("class "+manifestName+" {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if depFile != "" {
		if err := os.WriteFile(filepath.Join(pkgDir, depFile), []byte("class Dep {}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExistingTests_NextCopiesPackageAndWritesLocation(t *testing.T) {
	testDir := t.TempDir()
	writeTestPackage(t, testDir, "pkg1", "Test", "Dep.java")
	outDir := t.TempDir()

	g, err := generator.NewExistingTests(config.Generator{ExistDir: testDir, OutDir: outDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, ok, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for the first test")
	}
	if filepath.Base(path) != "Test.java" {
		t.Errorf("expected Test.java, got %s", path)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "Dep.java")); err != nil {
		t.Errorf("expected Dep.java to be copied alongside Test.java: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "LOCATION")); err != nil {
		t.Errorf("expected a LOCATION file: %v", err)
	}

	_, ok, err = g.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false once every packaged test has been consumed")
	}
}

func TestExistingTests_missingDir(t *testing.T) {
	_, err := generator.NewExistingTests(config.Generator{ExistDir: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatal("expected an error for a missing exist_dir")
	}
}

func TestExistingTests_skipsDirsWithoutManifest(t *testing.T) {
	testDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(testDir, "not-a-package"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestPackage(t, testDir, "pkg1", "Test", "")

	g, err := generator.NewExistingTests(config.Generator{ExistDir: testDir, OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, ok, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected the manifest-bearing package to still be found")
	}
}
