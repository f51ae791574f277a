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
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/tidesdb/sqlbench/pkg/engine"
	"github.com/tidesdb/sqlbench/pkg/recorder"
	"github.com/tidesdb/sqlbench/pkg/workloads/sysbench"
)

// captureRecorder stores every row it receives and can be forced to fail.
type captureRecorder struct {
	summaries  []recorder.SummaryRow
	intervals  []recorder.IntervalRow
	histograms []recorder.HistogramRow
	dataSizes  []recorder.DataSizeRow
	err        error
}

func (c *captureRecorder) RecordSummary(row recorder.SummaryRow) error {
	if c.err != nil {
		return c.err
	}
	c.summaries = append(c.summaries, row)
	return nil
}

func (c *captureRecorder) RecordInterval(row recorder.IntervalRow) error {
	c.intervals = append(c.intervals, row)
	return c.err
}

func (c *captureRecorder) RecordHistogram(row recorder.HistogramRow) error {
	c.histograms = append(c.histograms, row)
	return c.err
}

func (c *captureRecorder) RecordDataSize(row recorder.DataSizeRow) error {
	c.dataSizes = append(c.dataSizes, row)
	return c.err
}

func (c *captureRecorder) Close() error { return c.err }

type fakeGenerator struct {
	prepareErr error
	runErr     error
	cleanupErr error
	results    sysbench.Results

	prepares, warmups, runs, cleanups int
}

func (f *fakeGenerator) Prepare(workload string, tableSize int) error {
	f.prepares++
	return f.prepareErr
}

func (f *fakeGenerator) Warmup(workload string, threads, tableSize int, duration time.Duration) {
	f.warmups++
}

func (f *fakeGenerator) Run(workload string, threads, tableSize int, duration time.Duration) (sysbench.Results, error) {
	f.runs++
	return f.results, f.runErr
}

func (f *fakeGenerator) Cleanup(workload string) error {
	f.cleanups++
	return f.cleanupErr
}

type fakeSupervisor struct {
	aliveErr  error
	stops     int
	ensures   int
	restarts  int
	wasDead   bool
	restarted bool
}

func (f *fakeSupervisor) EnsureAlive() (bool, error) {
	f.ensures++
	if f.aliveErr != nil {
		return false, f.aliveErr
	}
	if f.wasDead {
		f.wasDead = false
		f.restarts++
		f.restarted = true
		return true, nil
	}
	return false, nil
}

func (f *fakeSupervisor) Stop() error {
	f.stops++
	f.wasDead = true
	return nil
}

func (f *fakeSupervisor) Restarts() int { return f.restarts }

type fakeInspector struct {
	sizes  map[engine.Engine]int64
	stale  bool
	lsmDir string
}

func (f *fakeInspector) MeasureSize(e engine.Engine) int64 { return f.sizes[e] }

func (f *fakeInspector) StaleLSMData(threshold int64) bool {
	// A wipe clears the residue.
	if _, err := os.Stat(f.lsmDir); os.IsNotExist(err) {
		return false
	}
	return f.stale
}

func (f *fakeInspector) LSMDir() string { return f.lsmDir }

func singleCellConfig() MatrixConfig {
	return MatrixConfig{
		Engines:        []engine.Engine{engine.TidesDB},
		Workloads:      []string{"oltp_read_only"},
		TableSizes:     []int{1000},
		ThreadCounts:   []int{1},
		Iterations:     1,
		RunDuration:    time.Minute,
		WarmupDuration: 10 * time.Second,
	}
}

func newTestRunner(gen LoadGenerator, supervisor ServerSupervisor, inspector StorageInspector, rec recorder.Recorder) *Runner {
	return NewRunner(
		"test-experiment",
		time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		singleCellConfig(),
		map[engine.Engine]LoadGenerator{
			engine.TidesDB: gen,
			engine.InnoDB:  gen,
		},
		supervisor,
		inspector,
		rec,
	)
}

func testCell() Cell {
	return Cell{
		Engine:    engine.TidesDB,
		Workload:  "oltp_read_only",
		Threads:   1,
		TableSize: 1000,
		Iteration: 1,
	}
}

func TestRunner(t *testing.T) {
	log.SetLevel(log.ErrorLevel)

	Convey("While running a single cell", t, func() {
		gen := &fakeGenerator{results: sysbench.Results{
			Transactions: 1234,
			TPS:          41.1,
			Intervals: []sysbench.IntervalSample{
				{TimeOffsetSeconds: 10, Threads: 1, TPS: 40},
			},
			Histogram: []sysbench.HistogramBucket{
				{PercentileLabel: "95", LatencyMs: 9.91},
			},
		}}
		supervisor := &fakeSupervisor{}
		inspector := &fakeInspector{
			sizes:  map[engine.Engine]int64{engine.TidesDB: 4096},
			lsmDir: filepath.Join(t.TempDir(), "tidesdb"),
		}
		rec := &captureRecorder{}
		runner := newTestRunner(gen, supervisor, inspector, rec)

		Convey("A healthy cell walks the full phase sequence", func() {
			So(runner.RunCell(testCell()), ShouldBeNil)

			So(gen.prepares, ShouldEqual, 1)
			So(gen.warmups, ShouldEqual, 1)
			So(gen.runs, ShouldEqual, 1)
			// Stale cleanup before and table drop after.
			So(gen.cleanups, ShouldEqual, 2)

			So(rec.summaries, ShouldHaveLength, 1)
			So(rec.summaries[0].TPS, ShouldEqual, 41.1)
			So(rec.summaries[0].Failed, ShouldBeFalse)
			So(rec.intervals, ShouldHaveLength, 1)
			So(rec.histograms, ShouldHaveLength, 1)
			So(rec.dataSizes, ShouldHaveLength, 2)
			So(rec.dataSizes[0].Phase, ShouldEqual, recorder.PhaseAfterPrepare)
			So(rec.dataSizes[1].Phase, ShouldEqual, recorder.PhaseAfterRun)
		})

		Convey("A failed prepare records one failed summary and continues", func() {
			gen.prepareErr = errors.New("connection refused")
			So(runner.RunCell(testCell()), ShouldBeNil)

			So(gen.runs, ShouldEqual, 0)
			So(rec.summaries, ShouldHaveLength, 1)
			So(rec.summaries[0].Failed, ShouldBeTrue)
			So(rec.summaries[0].FailureReason, ShouldContainSubstring, "prepare failed")
		})

		Convey("A failed run still records exactly one summary and cleans up", func() {
			gen.runErr = errors.New("server has gone away")
			So(runner.RunCell(testCell()), ShouldBeNil)

			So(rec.summaries, ShouldHaveLength, 1)
			So(rec.summaries[0].Failed, ShouldBeTrue)
			So(gen.cleanups, ShouldEqual, 2)
		})

		Convey("Stale LSM residue triggers a wipe and server restart", func() {
			So(os.MkdirAll(inspector.lsmDir, 0755), ShouldBeNil)
			inspector.stale = true

			So(runner.RunCell(testCell()), ShouldBeNil)

			So(supervisor.stops, ShouldEqual, 1)
			So(supervisor.restarted, ShouldBeTrue)
			_, err := os.Stat(inspector.lsmDir)
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("A clean LSM directory never restarts the server", func() {
			inspector.stale = false
			So(runner.RunCell(testCell()), ShouldBeNil)
			So(supervisor.stops, ShouldEqual, 0)
		})

		Convey("A summary recording failure is fatal", func() {
			rec.err = errors.New("disk full")
			So(runner.RunCell(testCell()), ShouldNotBeNil)
		})
	})
}
