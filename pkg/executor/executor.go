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

// Package executor provides the execution environment for external processes:
// the database server under test and the load generation tool. Commands are
// executed asynchronously and monitored through a TaskHandle.
package executor

// Executor is responsible for creating an execution environment for a given
// command. It returns a TaskHandle when the command started gracefully.
type Executor interface {
	// Execute executes command on the underlying platform.
	Execute(command string) (TaskHandle, error)
	// Name returns user-friendly name of the executor.
	Name() string
}
