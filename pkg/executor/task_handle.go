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
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// TaskState is an enum presenting current task state.
type TaskState int

const (
	// RUNNING task state means that task is still running.
	RUNNING TaskState = iota
	// TERMINATED task state means that task completed or was stopped.
	TERMINATED
)

// TaskHandle represents a process which can be stopped or monitored.
type TaskHandle interface {
	// Stop stops the task. First a graceful termination signal is sent; if
	// the task is still alive after the stop timeout it is killed. Stopping
	// an already terminated task is a no-op.
	Stop() error
	// Status returns the state of the task.
	Status() TaskState
	// ExitCode returns the exit code. If the task is not terminated it
	// returns an error.
	ExitCode() (int, error)
	// StdoutFile returns a file handle to the task's stdout file.
	StdoutFile() (*os.File, error)
	// StderrFile returns a file handle to the task's stderr file.
	StderrFile() (*os.File, error)
	// Wait blocks until the task terminates or the timeout elapses.
	// Zero timeout means wait indefinitely. It returns true if the task is
	// terminated.
	Wait(timeout time.Duration) bool
	// Clean closes the task's stdout and stderr files.
	Clean() error
	// EraseOutput removes the task's stdout and stderr files.
	EraseOutput() error
	// Address returns the address where the task was located.
	Address() string
}

// ReadOutput reads the whole stdout of a terminated task. The file offset is
// rewound first so output is complete regardless of earlier reads.
func ReadOutput(handle TaskHandle) (string, error) {
	stdoutFile, err := handle.StdoutFile()
	if err != nil {
		return "", err
	}

	if _, err := stdoutFile.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrapf(err, "cannot rewind stdout file %q", stdoutFile.Name())
	}

	output, err := io.ReadAll(stdoutFile)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read stdout file %q", stdoutFile.Name())
	}

	return string(output), nil
}

// StopAndEraseOutput stops the task and removes its output files. Helper for
// the common teardown sequence; errors from the erase step are returned only
// when the stop itself succeeded.
func StopAndEraseOutput(handle TaskHandle) error {
	if handle == nil {
		return nil
	}
	if err := handle.Stop(); err != nil {
		return err
	}
	if err := handle.Clean(); err != nil {
		return err
	}
	return handle.EraseOutput()
}
