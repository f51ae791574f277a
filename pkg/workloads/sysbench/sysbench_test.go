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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"github.com/tidesdb/sqlbench/pkg/executor/mocks"
)

// stdoutFixture writes content to a temp file and returns an open handle,
// mimicking a task's captured stdout.
func stdoutFixture(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdout")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return file
}

func succeedingTask(t *testing.T, output string) *mocks.TaskHandle {
	task := new(mocks.TaskHandle)
	task.On("Wait", time.Duration(0)).Return(true)
	task.On("ExitCode").Return(0, nil)
	task.On("StdoutFile").Return(stdoutFixture(t, output), nil)
	task.On("Clean").Return(nil)
	task.On("EraseOutput").Return(nil)
	return task
}

func TestSysbenchWithMockedExecutor(t *testing.T) {
	log.SetLevel(log.ErrorLevel)

	Convey("While using the Sysbench load generator", t, func() {
		mockedExecutor := new(mocks.Executor)
		loadGenerator := New(mockedExecutor, testConfig())

		Convey("Prepare should execute the prepare verb and succeed on exit code 0", func() {
			task := succeedingTask(t, "creating tables...")
			mockedExecutor.On("Execute", mock.MatchedBy(func(command string) bool {
				return len(command) > 0
			})).Return(task, nil).Once()

			err := loadGenerator.Prepare("oltp_read_only", 1000)
			So(err, ShouldBeNil)
			mockedExecutor.AssertExpectations(t)
		})

		Convey("Prepare should fail on non-zero exit code", func() {
			task := new(mocks.TaskHandle)
			task.On("Wait", time.Duration(0)).Return(true)
			task.On("ExitCode").Return(1, nil)
			task.On("StdoutFile").Return(stdoutFixture(t, "FATAL: unable to connect"), nil)
			task.On("Clean").Return(nil)
			task.On("EraseOutput").Return(nil)
			mockedExecutor.On("Execute", mock.Anything).Return(task, nil).Once()

			err := loadGenerator.Prepare("oltp_read_only", 1000)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "exited with code 1")
		})

		Convey("Prepare should fail when the executor cannot start the tool", func() {
			mockedExecutor.On("Execute", mock.Anything).Return(nil, errors.New("no such binary")).Once()

			err := loadGenerator.Prepare("oltp_read_only", 1000)
			So(err, ShouldNotBeNil)
		})

		Convey("Run should parse the captured output", func() {
			task := succeedingTask(t, fullOutput)
			mockedExecutor.On("Execute", mock.Anything).Return(task, nil).Once()

			results, err := loadGenerator.Run("oltp_read_write", 8, 1000, 30*time.Second)
			So(err, ShouldBeNil)
			So(results.Transactions, ShouldEqual, 1234)
			So(results.Intervals, ShouldHaveLength, 3)
		})

		Convey("Warmup with zero duration should not execute anything", func() {
			loadGenerator.Warmup("oltp_read_write", 8, 1000, 0)
			mockedExecutor.AssertNotCalled(t, "Execute", mock.Anything)
		})

		Convey("Warmup failures should be swallowed", func() {
			mockedExecutor.On("Execute", mock.Anything).Return(nil, errors.New("boom")).Once()
			loadGenerator.Warmup("oltp_read_write", 8, 1000, 10*time.Second)
			mockedExecutor.AssertExpectations(t)
		})

		Convey("Cleanup should execute the cleanup verb", func() {
			task := succeedingTask(t, "dropping tables...")
			mockedExecutor.On("Execute", getCleanupCommand(testConfig(), "oltp_read_only")).Return(task, nil).Once()

			err := loadGenerator.Cleanup("oltp_read_only")
			So(err, ShouldBeNil)
		})
	})
}
