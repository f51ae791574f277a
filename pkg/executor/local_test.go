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

package executor

import (
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

// TestLocal tests the Local executor against real processes.
func TestLocal(t *testing.T) {
	log.SetLevel(log.ErrorLevel)

	Convey("While using Local executor", t, func() {
		l := NewLocal()

		Convey("When command exits successfully", func() {
			task, err := l.Execute("echo output")
			So(err, ShouldBeNil)
			defer task.EraseOutput()
			defer task.Clean()

			Convey("The task should terminate with zero exit code and captured output", func() {
				terminated := task.Wait(5 * time.Second)
				So(terminated, ShouldBeTrue)
				So(task.Status(), ShouldEqual, TERMINATED)

				exitCode, err := task.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, 0)

				output, err := ReadOutput(task)
				So(err, ShouldBeNil)
				So(strings.TrimSpace(output), ShouldEqual, "output")
			})
		})

		Convey("When command exits with an error", func() {
			task, err := l.Execute("exit 4")
			So(err, ShouldBeNil)
			defer task.EraseOutput()
			defer task.Clean()

			task.Wait(0)
			exitCode, err := task.ExitCode()
			So(err, ShouldBeNil)
			So(exitCode, ShouldEqual, 4)
		})

		Convey("When command is still running", func() {
			task, err := l.Execute("sleep 30")
			So(err, ShouldBeNil)
			defer task.EraseOutput()
			defer task.Clean()

			Convey("Status should be RUNNING and ExitCode should error", func() {
				So(task.Status(), ShouldEqual, RUNNING)

				_, err := task.ExitCode()
				So(err, ShouldNotBeNil)

				So(task.Stop(), ShouldBeNil)
			})

			Convey("Wait with a short timeout should give up", func() {
				terminated := task.Wait(10 * time.Millisecond)
				So(terminated, ShouldBeFalse)

				So(task.Stop(), ShouldBeNil)
			})

			Convey("Stop should terminate the process group", func() {
				So(task.Stop(), ShouldBeNil)
				So(task.Status(), ShouldEqual, TERMINATED)

				exitCode, err := task.ExitCode()
				So(err, ShouldBeNil)
				// Terminated by SIGTERM.
				So(exitCode, ShouldEqual, -15)

				Convey("Stopping a stopped task is a no-op", func() {
					So(task.Stop(), ShouldBeNil)
				})
			})
		})
	})
}
