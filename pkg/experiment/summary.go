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
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/tidesdb/sqlbench/pkg/recorder"
)

// RenderSummary prints the collected summary rows as a table, best
// throughput first. Failed cells sink to the bottom with their reason.
func RenderSummary(w io.Writer, summaries []recorder.SummaryRow) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No cells completed.")
		return
	}

	sorted := make([]recorder.SummaryRow, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Failed != sorted[j].Failed {
			return !sorted[i].Failed
		}
		return sorted[i].TPS > sorted[j].TPS
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{
		"Engine", "Workload", "Threads", "Table Size", "Iter",
		"TPS", "QPS", "Lat avg (ms)", "Lat p95 (ms)", "Size after run (MB)", "Status",
	})
	table.SetBorder(false)

	for _, row := range sorted {
		status := "ok"
		if row.Failed {
			status = row.FailureReason
		}
		table.Append([]string{
			row.Engine,
			row.Workload,
			fmt.Sprintf("%d", row.Threads),
			fmt.Sprintf("%d", row.TableSize),
			fmt.Sprintf("%d", row.Iteration),
			fmt.Sprintf("%.2f", row.TPS),
			fmt.Sprintf("%.2f", row.QPS),
			fmt.Sprintf("%.2f", row.LatencyAvgMs),
			fmt.Sprintf("%.2f", row.LatencyP95Ms),
			fmt.Sprintf("%.2f", float64(row.DataSizeAfterRunBytes)/(1024*1024)),
			status,
		})
	}

	table.Render()
}
