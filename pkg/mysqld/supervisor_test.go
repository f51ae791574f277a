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
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"github.com/tidesdb/sqlbench/pkg/executor"
	"github.com/tidesdb/sqlbench/pkg/executor/mocks"
)

// withProbes swaps the injected health and schema functions for a test and
// restores them afterwards.
func withProbes(up func(Config) bool, schema func(Config) error, body func()) {
	origUp, origSchema := isMysqldUp, createSchema
	defer func() { isMysqldUp, createSchema = origUp, origSchema }()
	isMysqldUp = up
	if schema != nil {
		createSchema = schema
	}
	body()
}

func runningTask() *mocks.TaskHandle {
	task := new(mocks.TaskHandle)
	task.On("Status").Return(executor.RUNNING)
	task.On("Stop").Return(nil)
	task.On("Clean").Return(nil)
	task.On("EraseOutput").Return(nil)
	return task
}

func TestSupervisor(t *testing.T) {
	log.SetLevel(log.ErrorLevel)

	Convey("While supervising mysqld", t, func() {
		mockedExecutor := new(mocks.Executor)
		config := testMysqldConfig()

		Convey("Start succeeds once the health probe answers", func() {
			task := runningTask()
			mockedExecutor.On("Execute", mock.Anything).Return(task, nil).Once()

			withProbes(func(Config) bool { return true }, nil, func() {
				supervisor := NewSupervisor(mockedExecutor, config)
				handle, err := supervisor.Start()
				So(err, ShouldBeNil)
				So(handle, ShouldEqual, task)
				So(supervisor.HealthCheck(), ShouldBeTrue)
			})
		})

		Convey("Start fails fast when the process dies before becoming healthy", func() {
			task := new(mocks.TaskHandle)
			task.On("Status").Return(executor.TERMINATED)
			task.On("Stop").Return(nil)
			task.On("Clean").Return(nil)
			task.On("EraseOutput").Return(nil)
			mockedExecutor.On("Execute", mock.Anything).Return(task, nil).Once()

			withProbes(func(Config) bool { return false }, nil, func() {
				supervisor := NewSupervisor(mockedExecutor, config)
				_, err := supervisor.Start()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "did not accept connections")
				task.AssertCalled(t, "Stop")
			})
		})

		Convey("Start error carries the tail of the error log", func() {
			dir := t.TempDir()
			config.ErrorLog = filepath.Join(dir, "mysqld-error.log")
			So(os.WriteFile(config.ErrorLog,
				[]byte("[ERROR] unknown variable 'bogus'\n"), 0644), ShouldBeNil)
			config.StartTimeout = 10 * time.Millisecond

			task := runningTask()
			mockedExecutor.On("Execute", mock.Anything).Return(task, nil).Once()

			withProbes(func(Config) bool { return false }, nil, func() {
				supervisor := NewSupervisor(mockedExecutor, config)
				_, err := supervisor.Start()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown variable 'bogus'")
			})
		})

		Convey("Stop removes stale runtime artifacts and is idempotent", func() {
			dir := t.TempDir()
			config.PidFile = filepath.Join(dir, "mysqld.pid")
			config.Socket = filepath.Join(dir, "mysqld.sock")
			config.DataDir = dir
			So(os.WriteFile(config.PidFile, []byte("1234\n"), 0644), ShouldBeNil)

			task := runningTask()
			mockedExecutor.On("Execute", mock.Anything).Return(task, nil).Once()

			withProbes(func(Config) bool { return true }, nil, func() {
				supervisor := NewSupervisor(mockedExecutor, config)
				_, err := supervisor.Start()
				So(err, ShouldBeNil)

				So(supervisor.Stop(), ShouldBeNil)
				_, statErr := os.Stat(config.PidFile)
				So(os.IsNotExist(statErr), ShouldBeTrue)

				So(supervisor.Stop(), ShouldBeNil)
			})
		})

		Convey("EnsureAlive leaves a healthy server untouched", func() {
			withProbes(func(Config) bool { return true }, nil, func() {
				supervisor := NewSupervisor(mockedExecutor, config)
				restarted, err := supervisor.EnsureAlive()
				So(err, ShouldBeNil)
				So(restarted, ShouldBeFalse)
				So(supervisor.Restarts(), ShouldEqual, 0)
				mockedExecutor.AssertNotCalled(t, "Execute", mock.Anything)
			})
		})

		Convey("EnsureAlive restarts a dead server and recreates the schema", func() {
			dir := t.TempDir()
			config.PidFile = filepath.Join(dir, "mysqld.pid")
			config.Socket = filepath.Join(dir, "mysqld.sock")
			config.DataDir = dir

			task := runningTask()
			mockedExecutor.On("Execute", mock.Anything).Return(task, nil).Once()

			// Unhealthy on the first probe, healthy once restarted.
			probes := 0
			schemaCreated := false
			withProbes(
				func(Config) bool {
					probes++
					return probes > 1
				},
				func(Config) error {
					schemaCreated = true
					return nil
				},
				func() {
					supervisor := NewSupervisor(mockedExecutor, config)
					restarted, err := supervisor.EnsureAlive()
					So(err, ShouldBeNil)
					So(restarted, ShouldBeTrue)
					So(schemaCreated, ShouldBeTrue)
					So(supervisor.Restarts(), ShouldEqual, 1)
					mockedExecutor.AssertExpectations(t)
				})
		})
	})
}
