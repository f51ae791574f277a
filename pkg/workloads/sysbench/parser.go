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
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Results holds everything scraped from the output of one timed sysbench run.
// Fields that are missing from the output stay at their zero value; a
// malformed report never aborts the benchmark cell.
type Results struct {
	Transactions int64
	TPS          float64
	Queries      int64
	QPS          float64

	Reads  int64
	Writes int64
	Other  int64
	// ReadsPerSec and WritesPerSec are derived from the operation counts and
	// the elapsed time; with zero elapsed time they stay 0.
	ReadsPerSec  float64
	WritesPerSec float64

	LatencyMinMs float64
	LatencyAvgMs float64
	LatencyMaxMs float64
	LatencyP95Ms float64

	IgnoredErrors  int64
	Reconnects     int64
	ElapsedSeconds float64

	Intervals []IntervalSample
	Histogram []HistogramBucket
}

// IntervalSample is one periodic report line of the timed run.
type IntervalSample struct {
	TimeOffsetSeconds int
	Threads           int
	TPS               float64
	QPS               float64
	// LatencyAvgMs is not reported per interval by sysbench and stays 0.
	LatencyAvgMs float64
	LatencyP95Ms float64
}

// HistogramBucket maps a percentile label to the latency at which the
// cumulative histogram crosses it.
type HistogramBucket struct {
	PercentileLabel string
	LatencyMs       float64
}

var (
	transactionsRegex = regexp.MustCompile(`transactions:\s+(\d+)\s+\(([\d.]+) per sec\.\)`)
	queriesRegex      = regexp.MustCompile(`queries:\s+(\d+)\s+\(([\d.]+) per sec\.\)`)
	readRegex         = regexp.MustCompile(`read:\s+(\d+)`)
	writeRegex        = regexp.MustCompile(`write:\s+(\d+)`)
	otherRegex        = regexp.MustCompile(`other:\s+(\d+)`)
	ignoredRegex      = regexp.MustCompile(`ignored errors:\s+(\d+)`)
	reconnectsRegex   = regexp.MustCompile(`reconnects:\s+(\d+)`)
	totalTimeRegex    = regexp.MustCompile(`total time:\s+([\d.]+)s`)
	latencyMinRegex   = regexp.MustCompile(`min:\s+([\d.]+)`)
	latencyAvgRegex   = regexp.MustCompile(`avg:\s+([\d.]+)`)
	latencyMaxRegex   = regexp.MustCompile(`max:\s+([\d.]+)`)
	percentileRegex   = regexp.MustCompile(`\d+th percentile:\s+([\d.]+)`)

	// [ 10s ] thds: 8 tps: 2088.77 qps: 33420.41 (r/w/o: 29242.27/0.00/4178.14) lat (ms,95%): 4.91 err/s: 0.00 reconn/s: 0.00
	intervalRegex = regexp.MustCompile(
		`\[\s*(\d+)s\s*\]\s+thds:\s*(\d+)\s+tps:\s*([\d.]+)\s+qps:\s*([\d.]+)\s+\(r/w/o:\s*[\d./]+\)\s+lat\s*\(ms,\s*[\d.]+%\):\s*([\d.]+)`)

	// Histogram rows: "       0.113 |****                  42"
	histogramRowRegex = regexp.MustCompile(`^\s*([\d.]+)\s+\|[\s*]*(\d+)\s*$`)
)

// histogramPercentiles are the canonical percentile labels derived from the
// cumulative latency histogram. Column semantics of the raw histogram are
// tool-version dependent, so this derivation is best-effort enrichment.
var histogramPercentiles = []decimal.Decimal{
	decimal.NewFromInt(50),
	decimal.NewFromInt(90),
	decimal.NewFromInt(95),
	decimal.NewFromInt(99),
	decimal.RequireFromString("99.9"),
}

// ParseOutput scrapes the captured sysbench output into Results. Missing or
// unparseable fields populate as zero rather than failing; the caller decides
// whether a fully zeroed result is worth keeping.
func ParseOutput(output string) Results {
	results := Results{
		Transactions:   matchInt(transactionsRegex, output, 1),
		TPS:            matchFloat(transactionsRegex, output, 2),
		Queries:        matchInt(queriesRegex, output, 1),
		QPS:            matchFloat(queriesRegex, output, 2),
		Reads:          matchInt(readRegex, output, 1),
		Writes:         matchInt(writeRegex, output, 1),
		Other:          matchInt(otherRegex, output, 1),
		IgnoredErrors:  matchInt(ignoredRegex, output, 1),
		Reconnects:     matchInt(reconnectsRegex, output, 1),
		ElapsedSeconds: matchFloat(totalTimeRegex, output, 1),
		LatencyMinMs:   matchFloat(latencyMinRegex, output, 1),
		LatencyAvgMs:   matchFloat(latencyAvgRegex, output, 1),
		LatencyMaxMs:   matchFloat(latencyMaxRegex, output, 1),
		LatencyP95Ms:   matchFloat(percentileRegex, output, 1),
	}

	// Guard the zero divisor; rates default to 0 when elapsed is unknown.
	if results.ElapsedSeconds > 0 {
		results.ReadsPerSec = float64(results.Reads) / results.ElapsedSeconds
		results.WritesPerSec = float64(results.Writes) / results.ElapsedSeconds
	}

	results.Intervals = parseIntervals(output)
	results.Histogram = parseHistogram(output)

	return results
}

func matchInt(regex *regexp.Regexp, output string, group int) int64 {
	match := regex.FindStringSubmatch(output)
	if match == nil || len(match) <= group {
		return 0
	}
	value, err := strconv.ParseInt(match[group], 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func matchFloat(regex *regexp.Regexp, output string, group int) float64 {
	match := regex.FindStringSubmatch(output)
	if match == nil || len(match) <= group {
		return 0
	}
	value, err := strconv.ParseFloat(match[group], 64)
	if err != nil {
		return 0
	}
	return value
}

// parseIntervals extracts one sample per report tick.
func parseIntervals(output string) []IntervalSample {
	samples := []IntervalSample{}

	for _, match := range intervalRegex.FindAllStringSubmatch(output, -1) {
		offset, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		threads, _ := strconv.Atoi(match[2])
		tps, _ := strconv.ParseFloat(match[3], 64)
		qps, _ := strconv.ParseFloat(match[4], 64)
		p95, _ := strconv.ParseFloat(match[5], 64)

		samples = append(samples, IntervalSample{
			TimeOffsetSeconds: offset,
			Threads:           threads,
			TPS:               tps,
			QPS:               qps,
			LatencyP95Ms:      p95,
		})
	}

	return samples
}

// parseHistogram reads the raw latency histogram and derives the canonical
// percentile buckets from the cumulative event counts.
func parseHistogram(output string) []HistogramBucket {
	type row struct {
		latencyMs float64
		count     int64
	}

	rows := []row{}
	inHistogram := false
	var total int64

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Latency histogram") {
			inHistogram = true
			continue
		}
		if !inHistogram {
			continue
		}
		match := histogramRowRegex.FindStringSubmatch(line)
		if match == nil {
			// First non-row line ends the histogram block.
			if len(rows) > 0 {
				break
			}
			continue
		}
		latency, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			continue
		}
		rows = append(rows, row{latencyMs: latency, count: count})
		total += count
	}

	if total == 0 {
		return []HistogramBucket{}
	}

	buckets := []HistogramBucket{}
	var cumulative int64
	next := 0

	totalDec := decimal.NewFromInt(total)
	for _, r := range rows {
		cumulative += r.count
		reached := decimal.NewFromInt(cumulative).Mul(decimal.NewFromInt(100)).Div(totalDec)
		for next < len(histogramPercentiles) && reached.GreaterThanOrEqual(histogramPercentiles[next]) {
			buckets = append(buckets, HistogramBucket{
				PercentileLabel: histogramPercentiles[next].String(),
				LatencyMs:       r.latencyMs,
			})
			next++
		}
		if next == len(histogramPercentiles) {
			break
		}
	}

	return buckets
}
