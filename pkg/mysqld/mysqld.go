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

// Package mysqld launches and supervises the MySQL server under test.
package mysqld

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidesdb/sqlbench/pkg/conf"
)

var (
	pathFlag = conf.NewFileFlag(
		"mysqld_path",
		"Path to the mysqld binary under test.",
		"/usr/sbin/mysqld",
	)
	dataDirFlag = conf.NewStringFlag(
		"mysqld_datadir",
		"Initialized MySQL data directory dedicated to the benchmark.",
		"/var/lib/mysql-sqlbench",
	)
	socketFlag = conf.NewStringFlag(
		"mysqld_socket",
		"Unix socket the server listens on. Networking is disabled.",
		"/tmp/sqlbench-mysqld.sock",
	)
	pluginLoadFlag = conf.NewStringFlag(
		"mysqld_plugin_load",
		"Value of --plugin-load-add, loading the TidesDB engine plugin.",
		"tidesdb=ha_tidesdb.so",
	)
	optionsFlag = conf.NewSliceFlag(
		"mysqld_options",
		"Additional server options appended verbatim (comma-separated).",
	)
	startTimeoutFlag = conf.NewDurationFlag(
		"mysqld_start_timeout",
		"Time to wait for the server socket to accept connections after start.",
		60*time.Second,
	)
)

// Config holds the server launch parameters.
type Config struct {
	PathToBinary string
	DataDir      string
	Socket       string
	PidFile      string
	ErrorLog     string
	PluginLoad   string
	User         string
	Database     string
	// ExtraOptions are appended to the command line verbatim, for
	// per-engine tuning such as buffer pool or write buffer sizes.
	ExtraOptions []string
	StartTimeout time.Duration
}

// DefaultConfig builds a Config from the command line flags. The pid file and
// error log live inside the data directory so Stop can clean them up together.
func DefaultConfig() Config {
	dataDir := dataDirFlag.Value()
	return Config{
		PathToBinary: pathFlag.Value(),
		DataDir:      dataDir,
		Socket:       socketFlag.Value(),
		PidFile:      fmt.Sprintf("%s/mysqld.pid", dataDir),
		ErrorLog:     fmt.Sprintf("%s/mysqld-error.log", dataDir),
		PluginLoad:   pluginLoadFlag.Value(),
		User:         "root",
		Database:     "sbtest",
		ExtraOptions: optionsFlag.Value(),
		StartTimeout: startTimeoutFlag.Value(),
	}
}

// buildCommand returns the mysqld invocation. The server is socket-only so a
// stray benchmark host service on port 3306 can never be measured by mistake.
func buildCommand(config Config) string {
	var cmd strings.Builder

	cmd.WriteString(config.PathToBinary)
	cmd.WriteString(fmt.Sprintf(" --datadir=%s", config.DataDir))
	cmd.WriteString(fmt.Sprintf(" --socket=%s", config.Socket))
	cmd.WriteString(fmt.Sprintf(" --pid-file=%s", config.PidFile))
	cmd.WriteString(fmt.Sprintf(" --log-error=%s", config.ErrorLog))
	cmd.WriteString(" --skip-networking")
	if config.PluginLoad != "" {
		cmd.WriteString(fmt.Sprintf(" --plugin-load-add=%s", config.PluginLoad))
	}
	for _, option := range config.ExtraOptions {
		cmd.WriteString(" ")
		cmd.WriteString(option)
	}

	return cmd.String()
}
