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

// Package workdir copies the files that make up a reference or a mutant
// between directories on disk.
package workdir

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Filter decides whether a file name (without its directory component)
// should be copied.
type Filter func(name string) bool

// AcceptAll is a Filter that copies every regular file.
func AcceptAll(string) bool { return true }

// ExtensionFilter builds a Filter that accepts files whose extension
// (including the leading dot) is in exts. The set of extensions is a
// property of the target ecosystem's adapter, not of this package.
func ExtensionFilter(exts ...string) Filter {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[e] = struct{}{}
	}

	return func(name string) bool {
		_, ok := set[filepath.Ext(name)]

		return ok
	}
}

// CopyTopLevelFiles copies every regular file directly inside srcDir
// (non-recursively, so neither sub-directories nor their contents) into
// dstDir, skipping any file named skip and any file rejected by filter.
// dstDir is created if it does not exist.
func CopyTopLevelFiles(srcDir, dstDir string, filter Filter, skip string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == skip {
			continue
		}
		if filter != nil && !filter(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if err := copyFile(filepath.Join(srcDir, entry.Name()), filepath.Join(dstDir, entry.Name()), info.Mode()); err != nil {
			return err
		}
	}

	return nil
}

// CopyDir recursively copies every file and directory under srcDir into
// dstDir, preserving the tree structure. Used to relocate an entire mutant
// sub-directory (or reference directory) into a persisted bucket.
func CopyDir(srcDir, dstDir string) error {
	return filepath.Walk(srcDir, func(srcPath string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(srcDir, srcPath)
		if err != nil {
			return err
		}
		if relPath == "." {
			return os.MkdirAll(dstDir, info.Mode())
		}
		dstPath := filepath.Join(dstDir, relPath)
		if info.IsDir() {
			return os.MkdirAll(dstPath, info.Mode())
		}

		return copyFile(srcPath, dstPath, info.Mode())
	})
}

func copyFile(srcPath, dstPath string, mode fs.FileMode) error {
	//nolint:gosec // srcPath is internally controlled, not user input
	s, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	//nolint:gosec // dstPath is internally controlled, not user input
	d, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, mode)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	_, err = io.Copy(d, s)

	return err
}
