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

// Package sysbench wraps the sysbench OLTP load generation tool.
// https://github.com/akopytov/sysbench
//
// The wrapper covers the three sysbench verbs the benchmark driver needs:
// prepare (data load), run (timed load, also used for warmup) and cleanup
// (schema teardown). Output of the timed run is captured and scraped by the
// parser in this package.
package sysbench

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/tidesdb/sqlbench/pkg/conf"
	"github.com/tidesdb/sqlbench/pkg/executor"
)

const (
	name                     = "sysbench"
	defaultPath              = "/usr/bin/sysbench"
	defaultPercentile        = "95"
	defaultReportIntervalSec = 10
)

var (
	pathFlag = conf.NewStringFlag(
		"sysbench_path",
		"Path to the sysbench binary.",
		defaultPath,
	)
	databaseFlag = conf.NewStringFlag(
		"sysbench_db",
		"MySQL schema used for benchmark tables.",
		"sbtest",
	)
	userFlag = conf.NewStringFlag(
		"sysbench_user",
		"MySQL user for the benchmark connection.",
		"root",
	)
	tablesFlag = conf.NewIntFlag(
		"sysbench_tables",
		"Number of benchmark tables per cell.",
		1,
	)
	percentileFlag = conf.NewStringFlag(
		"sysbench_percentile",
		"Latency percentile reported by sysbench.",
		defaultPercentile,
	)
	reportIntervalFlag = conf.NewIntFlag(
		"sysbench_report_interval",
		"Seconds between sysbench interval report lines (0 disables them).",
		defaultReportIntervalSec,
	)
	histogramFlag = conf.NewBoolFlag(
		"sysbench_histogram",
		"Collect and parse the sysbench latency histogram.",
		true,
	)
	ignoredErrorsFlag = conf.NewSliceFlag(
		"sysbench_ignore_errors",
		"MySQL error codes sysbench should ignore (expected transient lock/timeout conditions).",
	)
)

// defaultIgnoredErrors are error codes every run tolerates: lock wait timeout
// (1205), deadlock (1213) and server-gone-away during engine stalls (2013).
var defaultIgnoredErrors = []string{"1205", "1213", "2013"}

// Config contains all data for running sysbench against one target schema.
type Config struct {
	PathToBinary string
	Socket       string
	User         string
	Database     string

	Tables             int
	StorageEngine      string
	CreateTableOptions string

	ReportInterval    time.Duration
	Histogram         bool
	LatencyPercentile decimal.Decimal
	IgnoredErrors     []string
}

// DefaultConfig is a constructor for sysbench Config with parameters from
// flags and environment variables. The storage engine selector and the table
// creation options are per-engine and filled by the caller.
func DefaultConfig() Config {
	percentile, err := decimal.NewFromString(percentileFlag.Value())
	if err != nil {
		percentile, _ = decimal.NewFromString(defaultPercentile)
	}

	ignored := ignoredErrorsFlag.Value()
	if len(ignored) == 0 {
		ignored = defaultIgnoredErrors
	}

	return Config{
		PathToBinary:      pathFlag.Value(),
		User:              userFlag.Value(),
		Database:          databaseFlag.Value(),
		Tables:            tablesFlag.Value(),
		ReportInterval:    time.Duration(reportIntervalFlag.Value()) * time.Second,
		Histogram:         histogramFlag.Value(),
		LatencyPercentile: percentile,
		IgnoredErrors:     ignored,
	}
}

// Sysbench is a load generator for MySQL OLTP workloads.
type Sysbench struct {
	exec   executor.Executor
	config Config
}

// New returns a new Sysbench load generator instance.
func New(exec executor.Executor, config Config) Sysbench {
	return Sysbench{
		exec:   exec,
		config: config,
	}
}

// Name returns human readable name for the load generator.
func (s Sysbench) Name() string {
	return name
}

// Prepare creates and loads the benchmark tables for the given workload.
// Data load is single-threaded; engine-specific table creation options are
// part of the CREATE TABLE statement and cannot be applied afterwards.
func (s Sysbench) Prepare(workload string, tableSize int) error {
	command := getPrepareCommand(s.config, workload, tableSize)
	output, exitCode, err := s.execute(command)
	if err != nil {
		return errors.Wrapf(err, "sysbench prepare failed for workload %q", workload)
	}
	if exitCode != 0 {
		return errors.Errorf("sysbench prepare for workload %q exited with code %d: %s",
			workload, exitCode, lastLines(output, 5))
	}
	return nil
}

// Warmup runs the workload for the given duration to bring caches to steady
// state. Output is discarded and failures are ignored; a warmup result is
// never recorded.
func (s Sysbench) Warmup(workload string, threads, tableSize int, duration time.Duration) {
	if duration <= 0 {
		return
	}

	command := getWarmupCommand(s.config, workload, threads, tableSize, duration)
	_, exitCode, err := s.execute(command)
	if err != nil {
		log.Debugf("sysbench warmup failed (ignored): %v", err)
		return
	}
	if exitCode != 0 {
		log.Debugf("sysbench warmup exited with code %d (ignored)", exitCode)
	}
}

// Run executes the timed measurement run and parses the captured output.
func (s Sysbench) Run(workload string, threads, tableSize int, duration time.Duration) (Results, error) {
	command := getRunCommand(s.config, workload, threads, tableSize, duration)
	output, exitCode, err := s.execute(command)
	if err != nil {
		return Results{}, errors.Wrapf(err, "sysbench run failed for workload %q", workload)
	}
	if exitCode != 0 {
		return Results{}, errors.Errorf("sysbench run for workload %q exited with code %d: %s",
			workload, exitCode, lastLines(output, 5))
	}

	return ParseOutput(output), nil
}

// Cleanup drops the benchmark tables for the given workload. The caller is
// expected to tolerate failure; the schema may legitimately not exist yet.
func (s Sysbench) Cleanup(workload string) error {
	command := getCleanupCommand(s.config, workload)
	output, exitCode, err := s.execute(command)
	if err != nil {
		return errors.Wrapf(err, "sysbench cleanup failed for workload %q", workload)
	}
	if exitCode != 0 {
		return errors.Errorf("sysbench cleanup for workload %q exited with code %d: %s",
			workload, exitCode, lastLines(output, 3))
	}
	return nil
}

// execute runs a sysbench command to completion and returns its captured
// stdout and exit code. Output files are erased before returning.
func (s Sysbench) execute(command string) (output string, exitCode int, err error) {
	task, err := s.exec.Execute(command)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if cleanErr := task.Clean(); cleanErr != nil {
			log.Errorf("cannot clean sysbench task resources: %v", cleanErr)
		}
		if eraseErr := task.EraseOutput(); eraseErr != nil {
			log.Errorf("cannot erase sysbench task output: %v", eraseErr)
		}
	}()

	task.Wait(0)

	exitCode, err = task.ExitCode()
	if err != nil {
		return "", 0, err
	}

	output, err = executor.ReadOutput(task)
	if err != nil {
		return "", exitCode, err
	}

	return output, exitCode, nil
}

// lastLines returns up to n last non-empty lines of output for error messages.
func lastLines(output string, n int) string {
	lines := []string{}
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// percentileArg renders the configured percentile for the sysbench CLI.
// sysbench accepts integer percentiles only, so 99.9 is clamped to 99.
func percentileArg(percentile decimal.Decimal) string {
	return strconv.Itoa(int(percentile.IntPart()))
}
