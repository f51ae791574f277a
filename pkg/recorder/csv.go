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

package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const bytesPerMB = 1024 * 1024

var summaryHeader = []string{
	"experiment_id", "run_ts", "engine", "workload", "threads", "table_size",
	"iteration", "transactions", "tps", "queries", "qps", "reads_per_sec",
	"writes_per_sec", "latency_min_ms", "latency_avg_ms", "latency_max_ms",
	"latency_p95_ms", "ignored_errors", "reconnects", "elapsed_s",
	"data_size_after_prepare_mb", "data_size_after_run_mb",
	"failed", "failure_reason",
}

var detailHeader = []string{
	"experiment_id", "run_ts", "engine", "workload", "threads", "table_size",
	"iteration", "time_s", "active_threads", "tps", "qps", "latency_avg_ms",
	"latency_p95_ms",
}

var histogramHeader = []string{
	"experiment_id", "run_ts", "engine", "workload", "threads", "table_size",
	"iteration", "percentile", "latency_ms",
}

var dataSizeHeader = []string{
	"experiment_id", "run_ts", "engine", "workload", "threads", "table_size",
	"iteration", "phase", "size_bytes",
}

type csvTable struct {
	file   *os.File
	writer *csv.Writer
}

func newCSVTable(path string, header []string) (*csvTable, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open result table %q", path)
	}

	table := &csvTable{file: file, writer: csv.NewWriter(file)}

	// Write the header only when appending to a fresh file.
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "cannot stat result table %q", path)
	}
	if info.Size() == 0 {
		if err := table.append(header); err != nil {
			file.Close()
			return nil, err
		}
	}

	return table, nil
}

// append writes one record and flushes, so a crash mid-matrix loses at most
// the row being written.
func (t *csvTable) append(record []string) error {
	if err := t.writer.Write(record); err != nil {
		return errors.Wrapf(err, "cannot append to result table %q", t.file.Name())
	}
	t.writer.Flush()
	return errors.Wrapf(t.writer.Error(), "cannot flush result table %q", t.file.Name())
}

func (t *csvTable) close() error {
	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		t.file.Close()
		return err
	}
	return t.file.Close()
}

// CSV records results into four CSV tables inside a directory. The file
// names carry the run timestamp so consecutive runs never collide and the
// plotting tools can glob them.
type CSV struct {
	summary   *csvTable
	detail    *csvTable
	histogram *csvTable
	dataSize  *csvTable
}

// NewCSV opens the four result tables in outputDir, creating the directory
// when needed.
func NewCSV(outputDir string, runTimestamp time.Time) (*CSV, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create results directory %q", outputDir)
	}

	stamp := runTimestamp.Format("20060102_150405")
	recorder := &CSV{}

	tables := []struct {
		target **csvTable
		name   string
		header []string
	}{
		{&recorder.summary, "summary", summaryHeader},
		{&recorder.detail, "detail", detailHeader},
		{&recorder.histogram, "histogram", histogramHeader},
		{&recorder.dataSize, "datasize", dataSizeHeader},
	}
	for _, t := range tables {
		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.csv", t.name, stamp))
		table, err := newCSVTable(path, t.header)
		if err != nil {
			recorder.Close()
			return nil, err
		}
		*t.target = table
	}

	return recorder, nil
}

func identityFields(id Identity) []string {
	return []string{
		id.ExperimentID,
		id.RunTimestamp.UTC().Format(time.RFC3339),
		id.Engine,
		id.Workload,
		strconv.Itoa(id.Threads),
		strconv.Itoa(id.TableSize),
		strconv.Itoa(id.Iteration),
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func bytesToMB(size int64) string {
	return strconv.FormatFloat(float64(size)/bytesPerMB, 'f', 2, 64)
}

// RecordSummary implements Recorder.
func (c *CSV) RecordSummary(row SummaryRow) error {
	record := append(identityFields(row.Identity),
		strconv.Itoa(row.Transactions),
		formatFloat(row.TPS),
		strconv.Itoa(row.Queries),
		formatFloat(row.QPS),
		formatFloat(row.ReadsPerSec),
		formatFloat(row.WritesPerSec),
		formatFloat(row.LatencyMinMs),
		formatFloat(row.LatencyAvgMs),
		formatFloat(row.LatencyMaxMs),
		formatFloat(row.LatencyP95Ms),
		strconv.Itoa(row.IgnoredErrors),
		strconv.Itoa(row.Reconnects),
		formatFloat(row.ElapsedSeconds),
		bytesToMB(row.DataSizeAfterPrepareBytes),
		bytesToMB(row.DataSizeAfterRunBytes),
		strconv.FormatBool(row.Failed),
		row.FailureReason,
	)
	return c.summary.append(record)
}

// RecordInterval implements Recorder.
func (c *CSV) RecordInterval(row IntervalRow) error {
	record := append(identityFields(row.Identity),
		strconv.Itoa(row.TimeOffsetSeconds),
		strconv.Itoa(row.ActiveThreads),
		formatFloat(row.TPS),
		formatFloat(row.QPS),
		formatFloat(row.LatencyAvgMs),
		formatFloat(row.LatencyP95Ms),
	)
	return c.detail.append(record)
}

// RecordHistogram implements Recorder.
func (c *CSV) RecordHistogram(row HistogramRow) error {
	record := append(identityFields(row.Identity),
		row.PercentileLabel,
		formatFloat(row.LatencyMs),
	)
	return c.histogram.append(record)
}

// RecordDataSize implements Recorder.
func (c *CSV) RecordDataSize(row DataSizeRow) error {
	record := append(identityFields(row.Identity),
		row.Phase,
		strconv.FormatInt(row.SizeBytes, 10),
	)
	return c.dataSize.append(record)
}

// Close implements Recorder.
func (c *CSV) Close() error {
	var firstErr error
	for _, table := range []*csvTable{c.summary, c.detail, c.histogram, c.dataSize} {
		if table == nil {
			continue
		}
		if err := table.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
