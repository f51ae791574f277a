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

package mysqld

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	// Registers the "mysql" driver for the health probe connection.
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tidesdb/sqlbench/pkg/executor"
	"github.com/tidesdb/sqlbench/pkg/utils/fs"
)

const (
	healthProbeInterval = 500 * time.Millisecond
	errorLogTailLines   = 20
)

// isMysqldUp checks whether the server accepts connections on its socket and
// answers a trivial query. Injected so tests can run without a server.
var isMysqldUp = func(config Config) bool {
	db, err := sql.Open("mysql", probeDSN(config))
	if err != nil {
		return false
	}
	defer db.Close()

	var one int
	if err := db.QueryRow("SELECT 1").Scan(&one); err != nil {
		return false
	}
	return one == 1
}

// createSchema recreates the benchmark database after a restart. Also
// injected for tests.
var createSchema = func(config Config) error {
	db, err := sql.Open("mysql", probeDSN(config))
	if err != nil {
		return errors.Wrap(err, "cannot connect to recreate schema")
	}
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", config.Database))
	return errors.Wrapf(err, "cannot recreate database %q", config.Database)
}

func probeDSN(config Config) string {
	return fmt.Sprintf("%s@unix(%s)/?timeout=1s", config.User, config.Socket)
}

// Supervisor owns the server process lifecycle for the whole benchmark
// matrix. It is not safe for concurrent use; the matrix runs cells serially.
type Supervisor struct {
	exec   executor.Executor
	config Config
	handle executor.TaskHandle

	// restarts counts how many times the server had to be brought back
	// after dying mid-matrix. Recorded in the run metadata.
	restarts int
}

// NewSupervisor returns a Supervisor launching the server via the given
// executor.
func NewSupervisor(exec executor.Executor, config Config) *Supervisor {
	return &Supervisor{exec: exec, config: config}
}

// Start launches the server and polls the socket until it answers or the
// start timeout elapses. On timeout the process is stopped and the returned
// error carries the tail of the server error log.
func (s *Supervisor) Start() (executor.TaskHandle, error) {
	command := buildCommand(s.config)
	log.Debugf("starting mysqld: %s", command)

	task, err := s.exec.Execute(command)
	if err != nil {
		return nil, errors.Wrap(err, "cannot launch mysqld")
	}

	deadline := time.Now().Add(s.config.StartTimeout)
	for time.Now().Before(deadline) {
		if isMysqldUp(s.config) {
			s.handle = task
			return task, nil
		}
		if task.Status() == executor.TERMINATED {
			break
		}
		time.Sleep(healthProbeInterval)
	}

	// The server never became healthy; collect diagnostics before cleanup.
	logTail := fs.TailFile(s.config.ErrorLog, errorLogTailLines)
	if stopErr := executor.StopAndEraseOutput(task); stopErr != nil {
		log.Errorf("cannot stop mysqld after failed startup: %v", stopErr)
	}

	return nil, errors.Errorf(
		"mysqld did not accept connections on %q within %s; error log tail:\n%s",
		s.config.Socket, s.config.StartTimeout, logTail)
}

// Stop terminates the server and removes runtime artifacts a dead server can
// leave behind: pid file, socket, and the engine's directory lock. Safe to
// call when the server is already gone.
func (s *Supervisor) Stop() error {
	if s.handle != nil {
		if err := executor.StopAndEraseOutput(s.handle); err != nil {
			return errors.Wrap(err, "cannot stop mysqld")
		}
		s.handle = nil
	}
	return s.removeStaleArtifacts()
}

func (s *Supervisor) removeStaleArtifacts() error {
	for _, path := range []string{
		s.config.PidFile,
		s.config.Socket,
		filepath.Join(s.config.DataDir, "tidesdb", "LOCK"),
	} {
		if err := fs.RemoveIfExists(path); err != nil {
			return err
		}
	}
	return nil
}

// HealthCheck reports whether the supervised server currently answers
// queries. It never panics and never restarts anything.
func (s *Supervisor) HealthCheck() bool {
	return isMysqldUp(s.config)
}

// EnsureAlive verifies the server is healthy before a cell runs. A healthy
// server is left untouched. A dead one has its stale artifacts removed, is
// started again and gets the benchmark schema recreated. Returns whether a
// restart happened.
func (s *Supervisor) EnsureAlive() (bool, error) {
	if s.HealthCheck() {
		return false, nil
	}

	log.Warn("mysqld is not responding, restarting")
	if s.handle != nil {
		if err := s.handle.Stop(); err != nil {
			log.Debugf("stopping dead mysqld task: %v", err)
		}
		s.handle = nil
	}
	if err := s.removeStaleArtifacts(); err != nil {
		return false, err
	}

	if _, err := s.Start(); err != nil {
		return false, errors.Wrap(err, "cannot restart mysqld")
	}
	s.restarts++

	if err := createSchema(s.config); err != nil {
		return true, err
	}
	return true, nil
}

// Restarts returns how many mid-matrix restarts happened so far.
func (s *Supervisor) Restarts() int {
	return s.restarts
}
