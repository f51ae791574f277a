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

// Package recorder persists benchmark results into append-only result
// tables. Results are never updated in place; each run appends rows tagged
// with the experiment id and run timestamp so repeated runs accumulate.
package recorder

import (
	"time"

	"github.com/pkg/errors"
)

// Data size measurement phases.
const (
	PhaseAfterPrepare = "after_prepare"
	PhaseAfterRun     = "after_run"
)

// Identity keys every result row to one cell of the benchmark matrix.
type Identity struct {
	ExperimentID string
	RunTimestamp time.Time
	Engine       string
	Workload     string
	Threads      int
	TableSize    int
	Iteration    int
}

// SummaryRow holds the end-of-run statistics of one cell. Exactly one
// summary row is recorded per attempted cell, failed cells included.
type SummaryRow struct {
	Identity

	Transactions   int
	TPS            float64
	Queries        int
	QPS            float64
	ReadsPerSec    float64
	WritesPerSec   float64
	LatencyMinMs   float64
	LatencyAvgMs   float64
	LatencyMaxMs   float64
	LatencyP95Ms   float64
	IgnoredErrors  int
	Reconnects     int
	ElapsedSeconds float64

	DataSizeAfterPrepareBytes int64
	DataSizeAfterRunBytes     int64

	Failed        bool
	FailureReason string
}

// IntervalRow holds one in-flight report tick of a cell's timed run.
type IntervalRow struct {
	Identity

	TimeOffsetSeconds int
	ActiveThreads     int
	TPS               float64
	QPS               float64
	LatencyAvgMs      float64
	LatencyP95Ms      float64
}

// HistogramRow holds one derived latency percentile of a cell.
type HistogramRow struct {
	Identity

	PercentileLabel string
	LatencyMs       float64
}

// DataSizeRow holds one on-disk size measurement of a cell.
type DataSizeRow struct {
	Identity

	Phase     string
	SizeBytes int64
}

// Recorder persists result rows. Implementations append only.
type Recorder interface {
	RecordSummary(row SummaryRow) error
	RecordInterval(row IntervalRow) error
	RecordHistogram(row HistogramRow) error
	RecordDataSize(row DataSizeRow) error
	Close() error
}

// Multi fans every row out to all underlying recorders. All recorders are
// attempted even when one fails; the first error is returned.
type Multi struct {
	recorders []Recorder
}

// NewMulti returns a Recorder writing to all the given recorders.
func NewMulti(recorders ...Recorder) *Multi {
	return &Multi{recorders: recorders}
}

func (m *Multi) each(record func(Recorder) error) error {
	var firstErr error
	for _, r := range m.recorders {
		if err := record(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RecordSummary implements Recorder.
func (m *Multi) RecordSummary(row SummaryRow) error {
	return m.each(func(r Recorder) error { return r.RecordSummary(row) })
}

// RecordInterval implements Recorder.
func (m *Multi) RecordInterval(row IntervalRow) error {
	return m.each(func(r Recorder) error { return r.RecordInterval(row) })
}

// RecordHistogram implements Recorder.
func (m *Multi) RecordHistogram(row HistogramRow) error {
	return m.each(func(r Recorder) error { return r.RecordHistogram(row) })
}

// RecordDataSize implements Recorder.
func (m *Multi) RecordDataSize(row DataSizeRow) error {
	return m.each(func(r Recorder) error { return r.RecordDataSize(row) })
}

// Close implements Recorder.
func (m *Multi) Close() error {
	return errors.Wrap(
		m.each(func(r Recorder) error { return r.Close() }),
		"cannot close result recorder")
}
