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

// Package storage measures the on-disk footprint of each engine's data
// artifacts. Sizes are taken right after data load and right after the timed
// run so growth and compaction efficiency can be compared between engines
// without waiting for background compaction beyond the run window.
package storage

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/tidesdb/sqlbench/pkg/engine"
	"github.com/tidesdb/sqlbench/pkg/utils/fs"
)

// StaleDataThresholdBytes is the residue size above which a log-structured
// engine's data directory is wiped before the next cell (1 MiB).
const StaleDataThresholdBytes = 1 << 20

// PathSet locates the measurable artifacts inside the server data directory.
type PathSet struct {
	// DataDir is the MySQL server data directory.
	DataDir string
	// TidesDBDir is the directory holding all TidesDB column families and
	// SSTables. Usually a subdirectory of DataDir.
	TidesDBDir string
	// Database is the benchmark schema name, used to find per-table InnoDB
	// files.
	Database string
}

// Inspector measures on-disk footprint of engine data.
type Inspector struct {
	paths PathSet
}

// NewInspector returns an Inspector for the given path set.
func NewInspector(paths PathSet) Inspector {
	return Inspector{paths: paths}
}

// MeasureSize returns the byte size of the engine's on-disk artifacts.
// For the log-structured engine that is the whole engine directory; for the
// page-based engine the per-table file set plus the shared system files.
// Missing directories measure as 0; measurement never fails the benchmark.
func (i Inspector) MeasureSize(e engine.Engine) int64 {
	var size int64
	var err error

	if e.IsLogStructured() {
		size, err = fs.DirSizeBytes(i.paths.TidesDBDir)
	} else {
		size, err = fs.GlobSizeBytes(
			filepath.Join(i.paths.DataDir, i.paths.Database, "*.ibd"),
			filepath.Join(i.paths.DataDir, "ibdata*"),
			filepath.Join(i.paths.DataDir, "ib_logfile*"),
			filepath.Join(i.paths.DataDir, "undo_*"),
			filepath.Join(i.paths.DataDir, "#innodb_redo", "*"),
		)
	}
	if err != nil {
		log.Debugf("size measurement for %s failed, reporting 0: %v", e, err)
		return 0
	}

	return size
}

// StaleLSMData reports whether the log-structured engine directory holds
// more residue than the given threshold. Residue from a previous cell would
// pollute the next cell's size delta.
func (i Inspector) StaleLSMData(threshold int64) bool {
	size, err := fs.DirSizeBytes(i.paths.TidesDBDir)
	if err != nil {
		log.Debugf("stale data check failed, assuming clean: %v", err)
		return false
	}
	return size > threshold
}

// LSMDir exposes the log-structured engine directory for wipe operations.
func (i Inspector) LSMDir() string {
	return i.paths.TidesDBDir
}
