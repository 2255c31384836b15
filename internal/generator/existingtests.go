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

package generator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/test-jitcomp/Artemis/internal/config"
	"github.com/test-jitcomp/Artemis/internal/workdir"
)

// existingTests replays a directory of pre-packaged tests instead of
// generating fresh ones. Every immediate sub-directory of testDir containing
// a MANIFEST file is a test package: MANIFEST lists one test name per line
// (without the .java suffix), and every other .java file in the package
// directory is a dependency.
type existingTests struct {
	testDir   string
	outDir    string
	nextIndex int
	entries   []os.DirEntry
	pending   []pendingTest
}

type pendingTest struct {
	classDir string
	fileName string
}

// NewExistingTests builds the directory-replay generator adapter.
func NewExistingTests(cfg config.Generator) (Generator, error) {
	info, err := os.Stat(cfg.ExistDir)
	if err != nil {
		return nil, fmt.Errorf("existing-tests: generator.exist_dir does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("existing-tests: generator.exist_dir is not a directory: %s", cfg.ExistDir)
	}

	entries, err := os.ReadDir(cfg.ExistDir)
	if err != nil {
		return nil, fmt.Errorf("existing-tests: reading generator.exist_dir: %w", err)
	}

	return &existingTests{
		testDir: cfg.ExistDir,
		outDir:  cfg.OutDir,
		entries: entries,
	}, nil
}

// Next pops the next pending test out of the current test package,
// refilling the package queue from the next MANIFEST-bearing sub-directory
// of testDir once it runs dry. The package is copied wholesale into a
// freshly numbered out-dir directory so sibling dependency files travel
// with it, and a LOCATION file records the original path for diagnostics.
func (g *existingTests) Next(ctx context.Context) (string, bool, error) {
	for len(g.pending) == 0 {
		if len(g.entries) == 0 {
			return "", false, nil
		}
		entry := g.entries[0]
		g.entries = g.entries[1:]
		if !entry.IsDir() {
			continue
		}

		classDir := filepath.Join(g.testDir, entry.Name())
		manifestPath := filepath.Join(classDir, "MANIFEST")
		names, err := readManifest(manifestPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return "", false, fmt.Errorf("existing-tests: reading %s: %w", manifestPath, err)
		}

		for _, name := range names {
			javaFile := filepath.Join(classDir, name+".java")
			if st, err := os.Stat(javaFile); err != nil || st.IsDir() {
				return "", false, fmt.Errorf("existing-tests: MANIFEST entry %q has no matching file in %s", name, classDir)
			}
			g.pending = append(g.pending, pendingTest{classDir: classDir, fileName: name + ".java"})
		}
	}

	next := g.pending[len(g.pending)-1]
	g.pending = g.pending[:len(g.pending)-1]
	g.nextIndex++

	outClassDir := filepath.Join(g.outDir, strconv.Itoa(g.nextIndex))
	if err := workdir.CopyDir(next.classDir, outClassDir); err != nil {
		return "", false, fmt.Errorf("existing-tests: copying %s to %s: %w", next.classDir, outClassDir, err)
	}

	location := filepath.Join(next.classDir, next.fileName)
	if err := os.WriteFile(filepath.Join(outClassDir, "LOCATION"), []byte(location), 0o644); err != nil {
		return "", false, fmt.Errorf("existing-tests: writing LOCATION: %w", err)
	}

	return filepath.Join(outClassDir, next.fileName), true, nil
}

func readManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			names = append(names, line)
		}
	}

	return names, scanner.Err()
}
