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

// Package experiment drives the benchmark matrix: it enumerates test cells,
// keeps the server alive between cells, runs each cell through its phase
// sequence and hands results to the recorders.
package experiment

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tidesdb/sqlbench/pkg/conf"
	"github.com/tidesdb/sqlbench/pkg/engine"
)

var (
	enginesFlag = conf.NewSliceFlag(
		"engines",
		"Storage engines to compare (comma-separated).",
		"innodb", "tidesdb",
	)
	workloadsFlag = conf.NewSliceFlag(
		"workloads",
		"Load tool workload scripts to run (comma-separated).",
		"oltp_read_only", "oltp_read_write", "oltp_write_only",
	)
	tableSizesFlag = conf.NewIntSliceFlag(
		"table_sizes",
		"Target row counts per table (comma-separated).",
		10000, 100000,
	)
	threadCountsFlag = conf.NewIntSliceFlag(
		"thread_counts",
		"Client thread counts (comma-separated).",
		1, 4, 8,
	)
	iterationsFlag = conf.NewIntFlag(
		"iterations",
		"How many times each configuration is repeated.",
		3,
	)
	runDurationFlag = conf.NewDurationFlag(
		"run_duration",
		"Duration of the timed run of each cell.",
		60*time.Second,
	)
	warmupDurationFlag = conf.NewDurationFlag(
		"warmup_duration",
		"Duration of the unmeasured warmup before each timed run. Zero skips warmup.",
		10*time.Second,
	)
)

// Cell is one fully specified benchmark configuration. Immutable once
// enumerated; it identifies one row in each output table.
type Cell struct {
	Engine    engine.Engine
	Workload  string
	Threads   int
	TableSize int
	Iteration int
}

func (c Cell) String() string {
	return fmt.Sprintf("%s/%s threads=%d tableSize=%d iteration=%d",
		c.Engine, c.Workload, c.Threads, c.TableSize, c.Iteration)
}

// MatrixConfig holds the benchmark axes and per-cell timing.
type MatrixConfig struct {
	Engines        []engine.Engine
	Workloads      []string
	TableSizes     []int
	ThreadCounts   []int
	Iterations     int
	RunDuration    time.Duration
	WarmupDuration time.Duration
}

// DefaultMatrixConfig builds a MatrixConfig from the command line flags.
func DefaultMatrixConfig() (MatrixConfig, error) {
	engines := make([]engine.Engine, 0, len(enginesFlag.Value()))
	for _, name := range enginesFlag.Value() {
		parsed, err := engine.Parse(name)
		if err != nil {
			return MatrixConfig{}, err
		}
		engines = append(engines, parsed)
	}

	config := MatrixConfig{
		Engines:        engines,
		Workloads:      workloadsFlag.Value(),
		TableSizes:     tableSizesFlag.Value(),
		ThreadCounts:   threadCountsFlag.Value(),
		Iterations:     iterationsFlag.Value(),
		RunDuration:    runDurationFlag.Value(),
		WarmupDuration: warmupDurationFlag.Value(),
	}
	return config, config.Validate()
}

// Validate rejects configurations that would enumerate an empty or
// nonsensical matrix.
func (c MatrixConfig) Validate() error {
	switch {
	case len(c.Engines) == 0:
		return errors.New("no storage engines configured")
	case len(c.Workloads) == 0:
		return errors.New("no workloads configured")
	case len(c.TableSizes) == 0:
		return errors.New("no table sizes configured")
	case len(c.ThreadCounts) == 0:
		return errors.New("no thread counts configured")
	case c.Iterations < 1:
		return errors.New("iterations must be at least 1")
	case c.RunDuration <= 0:
		return errors.New("run duration must be positive")
	}
	for _, size := range c.TableSizes {
		if size < 1 {
			return errors.Errorf("table size must be positive, got %d", size)
		}
	}
	for _, threads := range c.ThreadCounts {
		if threads < 1 {
			return errors.Errorf("thread count must be positive, got %d", threads)
		}
	}
	return nil
}

// EnumerateCells expands the full Cartesian product of the axes. The nesting
// order, outer to inner, is table size, thread count, engine, workload,
// iteration; iteration varies fastest. The order is deterministic so
// interrupted runs can be compared and resumed by eye.
func (c MatrixConfig) EnumerateCells() []Cell {
	cells := make([]Cell, 0, c.TotalCells())
	for _, tableSize := range c.TableSizes {
		for _, threads := range c.ThreadCounts {
			for _, eng := range c.Engines {
				for _, workload := range c.Workloads {
					for iteration := 1; iteration <= c.Iterations; iteration++ {
						cells = append(cells, Cell{
							Engine:    eng,
							Workload:  workload,
							Threads:   threads,
							TableSize: tableSize,
							Iteration: iteration,
						})
					}
				}
			}
		}
	}
	return cells
}

// TotalCells returns the matrix size, used for progress reporting.
func (c MatrixConfig) TotalCells() int {
	return len(c.TableSizes) * len(c.ThreadCounts) * len(c.Engines) *
		len(c.Workloads) * c.Iterations
}
