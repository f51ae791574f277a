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

// Package engine identifies the storage engines under test.
package engine

import (
	"strings"

	"github.com/pkg/errors"
)

// Engine is a pluggable storage backend exposed by the MySQL server under test.
type Engine string

const (
	// InnoDB is the page-based engine: fixed-size pages, buffer pool,
	// write-ahead logging.
	InnoDB Engine = "InnoDB"
	// TidesDB is the log-structured merge engine plugin: buffered writes
	// merged into sorted on-disk structures by background compaction.
	TidesDB Engine = "TidesDB"
)

// All lists the engines in a stable comparison order.
var All = []Engine{InnoDB, TidesDB}

// Parse resolves a case-insensitive engine name.
func Parse(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "innodb":
		return InnoDB, nil
	case "tidesdb":
		return TidesDB, nil
	}
	return "", errors.Errorf("unknown storage engine %q", name)
}

// String returns the canonical engine name.
func (e Engine) String() string {
	return string(e)
}

// Selector returns the engine name as passed to the load tool's
// storage-engine option.
func (e Engine) Selector() string {
	return strings.ToLower(string(e))
}

// IsLogStructured reports whether the engine keeps its data in
// log-structured merge storage. Such engines accumulate residue between
// benchmark cells and hold an exclusive handle on their data directory.
func (e Engine) IsLogStructured() bool {
	return e == TidesDB
}
