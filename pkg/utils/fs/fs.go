// Copyright (c) 2025 TidesDB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fs holds small filesystem helpers shared by the supervisor and the
// storage inspector.
package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DirSizeBytes returns the total byte size of all regular files below the
// given directory. A missing directory yields 0 and no error; sizes must be
// measurable even before the engine created its files.
func DirSizeBytes(dir string) (int64, error) {
	var total int64

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Files may disappear mid-walk when the engine compacts.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "cannot measure size of %q", dir)
	}

	return total, nil
}

// GlobSizeBytes returns the total byte size of all files matching the given
// glob patterns. Missing files are skipped.
func GlobSizeBytes(patterns ...string) (int64, error) {
	var total int64

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return 0, errors.Wrapf(err, "bad size measurement pattern %q", pattern)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return 0, errors.Wrapf(err, "cannot stat %q", match)
			}
			if info.Mode().IsRegular() {
				total += info.Size()
			}
		}
	}

	return total, nil
}

// TailFile returns up to maxLines last lines of the given file. It is used to
// enrich server start errors with the tail of the error log. A missing file
// yields an empty string.
func TailFile(path string, maxLines int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}

// RemoveIfExists removes the given path if it exists. Removing an absent path
// is not an error; stop and cleanup paths must be idempotent.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot remove %q", path)
	}
	return nil
}
