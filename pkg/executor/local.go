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
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// stopGracePeriod is how long Stop waits after SIGTERM before escalating to
// SIGKILL.
const stopGracePeriod = 10 * time.Second

// Local provides the execution environment on the local machine via
// exec.Command. It runs commands as the current user.
type Local struct{}

// NewLocal returns a Local instance.
func NewLocal() Local {
	return Local{}
}

// Name returns user-friendly name of the executor.
func (l Local) Name() string {
	return "Local Executor"
}

// Execute runs the command given as input.
// The returned TaskHandle is able to stop and monitor the provisioned process.
func (l Local) Execute(command string) (TaskHandle, error) {
	log.Debug("Local executor: starting ", command)

	stdoutFile, err := os.CreateTemp("", "sqlbench_local_stdout_")
	if err != nil {
		return nil, errors.Wrap(err, "cannot create stdout file")
	}
	stderrFile, err := os.CreateTemp("", "sqlbench_local_stderr_")
	if err != nil {
		return nil, errors.Wrap(err, "cannot create stderr file")
	}

	cmd := exec.Command("sh", "-c", command)
	// An additional process group for the command and its children gives the
	// ability to kill the whole process tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "cannot start %q", command)
	}

	log.Debug("Local executor: started with pid ", cmd.Process.Pid)

	task := &localTaskHandle{
		cmd:            cmd,
		command:        command,
		stdoutFile:     stdoutFile,
		stderrFile:     stderrFile,
		waitEndChannel: make(chan struct{}),
	}

	// Wait for the task termination in the background and record exit state.
	go func() {
		// Grab the process state in any case; the error from Wait carries
		// less information than ProcessState below.
		cmd.Wait()

		waitStatus := cmd.ProcessState.Sys().(syscall.WaitStatus)
		if waitStatus.Exited() {
			task.exitCode = waitStatus.ExitStatus()
		} else {
			// Termination by signal is reported as a negative exit code.
			task.exitCode = -int(waitStatus.Signal())
		}

		log.Debug(
			"Local executor: ended ", command,
			" with output in ", stdoutFile.Name(),
			" with err output in ", stderrFile.Name(),
			" with exit code ", task.exitCode)

		close(task.waitEndChannel)
	}()

	return task, nil
}

// localTaskHandle implements the TaskHandle interface.
type localTaskHandle struct {
	cmd        *exec.Cmd
	command    string
	stdoutFile *os.File
	stderrFile *os.File

	// waitEndChannel is closed by the waiter goroutine after exitCode is set.
	waitEndChannel chan struct{}
	exitCode       int

	stopMutex sync.Mutex
}

// isTerminated returns true when the waiter goroutine recorded termination.
func (task *localTaskHandle) isTerminated() bool {
	select {
	case <-task.waitEndChannel:
		return true
	default:
		return false
	}
}

func (task *localTaskHandle) signal(signal syscall.Signal) error {
	// The kill syscall interprets a negated PID N as the process group N.
	return syscall.Kill(-task.cmd.Process.Pid, signal)
}

// Stop terminates the task gracefully, escalating to SIGKILL after the grace
// period. Stopping an already terminated task is a no-op.
func (task *localTaskHandle) Stop() error {
	task.stopMutex.Lock()
	defer task.stopMutex.Unlock()

	if task.isTerminated() {
		return nil
	}

	log.Debug("Local executor: sending SIGTERM to process group ", task.cmd.Process.Pid)
	if err := task.signal(syscall.SIGTERM); err != nil {
		return errors.Wrapf(err, "cannot send SIGTERM to %q", task.command)
	}

	if task.Wait(stopGracePeriod) {
		return nil
	}

	log.Warn("Local executor: SIGTERM timed out, sending SIGKILL to process group ", task.cmd.Process.Pid)
	if err := task.signal(syscall.SIGKILL); err != nil {
		return errors.Wrapf(err, "cannot send SIGKILL to %q", task.command)
	}

	task.Wait(0)
	return nil
}

// Status returns the state of the task.
func (task *localTaskHandle) Status() TaskState {
	if task.isTerminated() {
		return TERMINATED
	}
	return RUNNING
}

// ExitCode returns the exit code. If the task is not terminated it returns an error.
func (task *localTaskHandle) ExitCode() (int, error) {
	if !task.isTerminated() {
		return 0, errors.Errorf("task %q is not terminated", task.command)
	}
	return task.exitCode, nil
}

// StdoutFile returns a file handle to the task's stdout file.
func (task *localTaskHandle) StdoutFile() (*os.File, error) {
	if _, err := os.Stat(task.stdoutFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stdout file is missing")
	}
	return task.stdoutFile, nil
}

// StderrFile returns a file handle to the task's stderr file.
func (task *localTaskHandle) StderrFile() (*os.File, error) {
	if _, err := os.Stat(task.stderrFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stderr file is missing")
	}
	return task.stderrFile, nil
}

// Wait blocks until the task terminates or the timeout elapses.
// Zero timeout means wait indefinitely. It returns true if the task is terminated.
func (task *localTaskHandle) Wait(timeout time.Duration) bool {
	if task.isTerminated() {
		return true
	}

	if timeout == 0 {
		<-task.waitEndChannel
		return true
	}

	select {
	case <-task.waitEndChannel:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Clean closes the task's stdout and stderr files.
func (task *localTaskHandle) Clean() error {
	if err := task.stdoutFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close stdout file %q", task.stdoutFile.Name())
	}
	if err := task.stderrFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close stderr file %q", task.stderrFile.Name())
	}
	return nil
}

// EraseOutput removes the task's stdout and stderr files.
func (task *localTaskHandle) EraseOutput() error {
	for _, file := range []*os.File{task.stdoutFile, task.stderrFile} {
		if err := os.Remove(file.Name()); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "cannot remove output file %q", file.Name())
		}
	}
	return nil
}

// Address returns the address where the task was located.
func (task *localTaskHandle) Address() string {
	return "127.0.0.1"
}
