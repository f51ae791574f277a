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

package sysbench

import (
	"fmt"
	"strings"
	"time"
)

// getBaseCommand returns the options shared by every sysbench verb: binary,
// workload script, connection target and table layout.
func getBaseCommand(config Config, workload string, tableSize int) string {
	command := fmt.Sprint(
		config.PathToBinary,
		" ", workload,
		" --db-driver=mysql",
		fmt.Sprintf(" --mysql-socket=%s", config.Socket),
		fmt.Sprintf(" --mysql-user=%s", config.User),
		fmt.Sprintf(" --mysql-db=%s", config.Database),
		fmt.Sprintf(" --tables=%d", config.Tables),
		fmt.Sprintf(" --table-size=%d", tableSize),
	)

	if config.StorageEngine != "" {
		command += fmt.Sprintf(" --mysql-storage-engine=%s", config.StorageEngine)
	}
	// Table creation options are baked in at CREATE TABLE time; they are only
	// meaningful for prepare but sysbench tolerates them on every verb.
	if config.CreateTableOptions != "" {
		command += fmt.Sprintf(" --create_table_options=%q", config.CreateTableOptions)
	}
	if len(config.IgnoredErrors) > 0 {
		command += fmt.Sprintf(" --mysql-ignore-errors=%s", strings.Join(config.IgnoredErrors, ","))
	}

	return command
}

// getPrepareCommand returns the data load command. Prepare is always
// single-threaded so both engines receive rows in identical order.
func getPrepareCommand(config Config, workload string, tableSize int) string {
	return fmt.Sprintf("%s --threads=1 prepare", getBaseCommand(config, workload, tableSize))
}

// getWarmupCommand returns a timed run without interval reporting or
// histogram collection; its output is thrown away.
func getWarmupCommand(config Config, workload string, threads, tableSize int, duration time.Duration) string {
	return fmt.Sprint(
		getBaseCommand(config, workload, tableSize),
		fmt.Sprintf(" --threads=%d", threads),
		fmt.Sprintf(" --time=%d", int(duration.Seconds())),
		" run",
	)
}

// getRunCommand returns the measured run command with periodic interval
// reporting and percentile/histogram collection enabled.
func getRunCommand(config Config, workload string, threads, tableSize int, duration time.Duration) string {
	command := fmt.Sprint(
		getBaseCommand(config, workload, tableSize),
		fmt.Sprintf(" --threads=%d", threads),
		fmt.Sprintf(" --time=%d", int(duration.Seconds())),
		fmt.Sprintf(" --report-interval=%d", int(config.ReportInterval.Seconds())),
		fmt.Sprintf(" --percentile=%s", percentileArg(config.LatencyPercentile)),
	)

	if config.Histogram {
		command += " --histogram"
	}

	return command + " run"
}

// getCleanupCommand returns the schema teardown command.
func getCleanupCommand(config Config, workload string) string {
	// Table size is irrelevant for cleanup but the option is required by
	// some workload scripts, so pass a stable value.
	return fmt.Sprintf("%s cleanup", getBaseCommand(config, workload, 1))
}
