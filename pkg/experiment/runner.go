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
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tidesdb/sqlbench/pkg/engine"
	"github.com/tidesdb/sqlbench/pkg/recorder"
	"github.com/tidesdb/sqlbench/pkg/storage"
	"github.com/tidesdb/sqlbench/pkg/workloads/sysbench"
)

// LoadGenerator abstracts the load tool for one engine. Satisfied by
// sysbench.Sysbench.
type LoadGenerator interface {
	Prepare(workload string, tableSize int) error
	Warmup(workload string, threads, tableSize int, duration time.Duration)
	Run(workload string, threads, tableSize int, duration time.Duration) (sysbench.Results, error)
	Cleanup(workload string) error
}

// ServerSupervisor abstracts the server lifecycle owner. Satisfied by
// mysqld.Supervisor.
type ServerSupervisor interface {
	EnsureAlive() (restarted bool, err error)
	Stop() error
	Restarts() int
}

// StorageInspector abstracts on-disk size measurement. Satisfied by
// storage.Inspector.
type StorageInspector interface {
	MeasureSize(e engine.Engine) int64
	StaleLSMData(threshold int64) bool
	LSMDir() string
}

// Runner executes single cells through their phase sequence. Errors returned
// from RunCell are fatal to the whole matrix; per-cell failures are recorded
// in the cell's summary row instead.
type Runner struct {
	generators map[engine.Engine]LoadGenerator
	supervisor ServerSupervisor
	inspector  StorageInspector
	rec        recorder.Recorder
	config     MatrixConfig

	experimentID string
	runTimestamp time.Time
	summaries    []recorder.SummaryRow
}

// NewRunner wires the runner's collaborators. The generators map must hold
// one load generator per configured engine, each preconfigured with that
// engine's selector and table-creation options.
func NewRunner(
	experimentID string,
	runTimestamp time.Time,
	config MatrixConfig,
	generators map[engine.Engine]LoadGenerator,
	supervisor ServerSupervisor,
	inspector StorageInspector,
	rec recorder.Recorder,
) *Runner {
	return &Runner{
		generators:   generators,
		supervisor:   supervisor,
		inspector:    inspector,
		rec:          rec,
		config:       config,
		experimentID: experimentID,
		runTimestamp: runTimestamp,
	}
}

func (r *Runner) identity(cell Cell) recorder.Identity {
	return recorder.Identity{
		ExperimentID: r.experimentID,
		RunTimestamp: r.runTimestamp,
		Engine:       cell.Engine.String(),
		Workload:     cell.Workload,
		Threads:      cell.Threads,
		TableSize:    cell.TableSize,
		Iteration:    cell.Iteration,
	}
}

// RunCell takes one cell through cleanup, prepare, warmup, timed run and
// recording. Exactly one summary row is recorded per call, failed cells
// included. A non-nil return means the matrix cannot continue.
func (r *Runner) RunCell(cell Cell) error {
	gen, ok := r.generators[cell.Engine]
	if !ok {
		return errors.Errorf("no load generator configured for engine %s", cell.Engine)
	}
	id := r.identity(cell)

	// Leftover tables from an interrupted run; absence is fine.
	if err := gen.Cleanup(cell.Workload); err != nil {
		log.Debugf("pre-cell cleanup: %v", err)
	}

	if cell.Engine.IsLogStructured() && r.inspector.StaleLSMData(storage.StaleDataThresholdBytes) {
		log.Infof("stale engine data above threshold, wiping %s", r.inspector.LSMDir())
		if err := r.wipeAndRestart(); err != nil {
			return errors.Wrap(err, "cannot wipe stale engine data")
		}
	}

	if err := gen.Prepare(cell.Workload, cell.TableSize); err != nil {
		return r.recordFailedCell(id, errors.Wrap(err, "prepare failed"))
	}

	afterPrepare := r.inspector.MeasureSize(cell.Engine)
	r.recordDataSize(id, recorder.PhaseAfterPrepare, afterPrepare)

	gen.Warmup(cell.Workload, cell.Threads, cell.TableSize, r.config.WarmupDuration)

	results, err := gen.Run(cell.Workload, cell.Threads, cell.TableSize, r.config.RunDuration)
	if err != nil {
		if recordErr := r.recordFailedCell(id, errors.Wrap(err, "timed run failed")); recordErr != nil {
			return recordErr
		}
		r.cleanupCell(gen, cell)
		return nil
	}

	afterRun := r.inspector.MeasureSize(cell.Engine)
	r.recordDataSize(id, recorder.PhaseAfterRun, afterRun)

	summary := buildSummary(id, results, afterPrepare, afterRun)
	if err := r.rec.RecordSummary(summary); err != nil {
		return errors.Wrap(err, "cannot record summary row")
	}
	r.summaries = append(r.summaries, summary)

	r.recordDetails(id, results)
	r.cleanupCell(gen, cell)
	return nil
}

// Summaries returns the summary rows recorded so far, in execution order.
func (r *Runner) Summaries() []recorder.SummaryRow {
	return r.summaries
}

// wipeAndRestart removes the log-structured engine directory. The server
// holds an exclusive handle on it, so it must be stopped first and brought
// back afterwards.
func (r *Runner) wipeAndRestart() error {
	if err := r.supervisor.Stop(); err != nil {
		return err
	}
	if err := os.RemoveAll(r.inspector.LSMDir()); err != nil {
		return errors.Wrapf(err, "cannot remove %q", r.inspector.LSMDir())
	}
	_, err := r.supervisor.EnsureAlive()
	return err
}

// recordFailedCell writes the mandatory summary row for a cell that did not
// produce results. Only a recording failure is returned; the cell failure
// itself is logged and absorbed so the matrix continues.
func (r *Runner) recordFailedCell(id recorder.Identity, cause error) error {
	log.Errorf("cell %s/%s threads=%d tableSize=%d iteration=%d failed: %v",
		id.Engine, id.Workload, id.Threads, id.TableSize, id.Iteration, cause)

	summary := recorder.SummaryRow{
		Identity:      id,
		Failed:        true,
		FailureReason: cause.Error(),
	}
	if err := r.rec.RecordSummary(summary); err != nil {
		return errors.Wrap(err, "cannot record summary row")
	}
	r.summaries = append(r.summaries, summary)
	return nil
}

func (r *Runner) recordDataSize(id recorder.Identity, phase string, size int64) {
	err := r.rec.RecordDataSize(recorder.DataSizeRow{
		Identity:  id,
		Phase:     phase,
		SizeBytes: size,
	})
	if err != nil {
		log.Errorf("cannot record %s data size: %v", phase, err)
	}
}

func (r *Runner) recordDetails(id recorder.Identity, results sysbench.Results) {
	for _, sample := range results.Intervals {
		err := r.rec.RecordInterval(recorder.IntervalRow{
			Identity:          id,
			TimeOffsetSeconds: sample.TimeOffsetSeconds,
			ActiveThreads:     sample.Threads,
			TPS:               sample.TPS,
			QPS:               sample.QPS,
			LatencyAvgMs:      sample.LatencyAvgMs,
			LatencyP95Ms:      sample.LatencyP95Ms,
		})
		if err != nil {
			log.Errorf("cannot record interval sample: %v", err)
		}
	}
	for _, bucket := range results.Histogram {
		err := r.rec.RecordHistogram(recorder.HistogramRow{
			Identity:        id,
			PercentileLabel: bucket.PercentileLabel,
			LatencyMs:       bucket.LatencyMs,
		})
		if err != nil {
			log.Errorf("cannot record histogram bucket: %v", err)
		}
	}
}

func (r *Runner) cleanupCell(gen LoadGenerator, cell Cell) {
	if err := gen.Cleanup(cell.Workload); err != nil {
		log.Debugf("post-cell cleanup: %v", err)
	}
}

func buildSummary(id recorder.Identity, results sysbench.Results, afterPrepare, afterRun int64) recorder.SummaryRow {
	return recorder.SummaryRow{
		Identity:                  id,
		Transactions:              int(results.Transactions),
		TPS:                       results.TPS,
		Queries:                   int(results.Queries),
		QPS:                       results.QPS,
		ReadsPerSec:               results.ReadsPerSec,
		WritesPerSec:              results.WritesPerSec,
		LatencyMinMs:              results.LatencyMinMs,
		LatencyAvgMs:              results.LatencyAvgMs,
		LatencyMaxMs:              results.LatencyMaxMs,
		LatencyP95Ms:              results.LatencyP95Ms,
		IgnoredErrors:             int(results.IgnoredErrors),
		Reconnects:                int(results.Reconnects),
		ElapsedSeconds:            results.ElapsedSeconds,
		DataSizeAfterPrepareBytes: afterPrepare,
		DataSizeAfterRunBytes:     afterRun,
	}
}
