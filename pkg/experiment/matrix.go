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

package experiment

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tidesdb/sqlbench/pkg/recorder"
)

// CellRunner abstracts per-cell execution for the controller. Satisfied by
// Runner.
type CellRunner interface {
	RunCell(cell Cell) error
	Summaries() []recorder.SummaryRow
}

// Controller walks the benchmark matrix strictly sequentially. Cells share
// one server process and one data directory, so no two cells ever overlap.
type Controller struct {
	config        MatrixConfig
	runner        CellRunner
	supervisor    ServerSupervisor
	summaryWriter io.Writer
}

// NewController returns a Controller rendering its final summary table to
// the given writer.
func NewController(config MatrixConfig, runner CellRunner, supervisor ServerSupervisor, summaryWriter io.Writer) *Controller {
	return &Controller{
		config:        config,
		runner:        runner,
		supervisor:    supervisor,
		summaryWriter: summaryWriter,
	}
}

// Run executes every cell of the matrix in enumeration order. Before each
// cell the server is verified alive. A fatal failure breaks out of the whole
// matrix, not just the current axis value. The summary table is rendered
// from whatever completed, even after an abort.
func (c *Controller) Run() error {
	cells := c.config.EnumerateCells()
	total := len(cells)
	log.Infof("benchmark matrix holds %d cells", total)

	var fatal error
	for i, cell := range cells {
		log.Infof("cell %d of %d: %s", i+1, total, cell)

		restarted, err := c.supervisor.EnsureAlive()
		if err != nil {
			fatal = errors.Wrap(err, "server cannot be kept alive, aborting matrix")
			break
		}
		if restarted {
			log.Warnf("server restarted before cell %d of %d", i+1, total)
		}

		if err := c.runner.RunCell(cell); err != nil {
			fatal = errors.Wrap(err, "aborting matrix")
			break
		}
	}

	RenderSummary(c.summaryWriter, c.runner.Summaries())

	if fatal != nil {
		log.Errorf("matrix aborted: %v", fatal)
	}
	return fatal
}
