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
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

// Keys in the platform metrics map.
const (
	CPUModelNameKey   = "cpu_model"
	CPUCoresKey       = "cpu_cores"
	KernelVersionKey  = "kernel_version"
	OSKey             = "os"
	TotalMemoryKey    = "total_memory_bytes"
	DataDirDeviceKey  = "datadir_fs_type"
	DataDirFreeKey    = "datadir_free_bytes"
	HostnameKey       = "hostname"
	VirtualizationKey = "virtualization"
)

// GetPlatformMetrics snapshots the host the benchmark runs on. Results from
// two machines are not comparable, so the snapshot is stored next to the
// results. A metric that cannot be read yields an empty value, never an
// error.
func GetPlatformMetrics(dataDir string) map[string]string {
	metrics := make(map[string]string)

	hostInfo, err := host.Info()
	if err != nil {
		log.Warnf("cannot read host info: %v", err)
	} else {
		metrics[HostnameKey] = hostInfo.Hostname
		metrics[KernelVersionKey] = hostInfo.KernelVersion
		metrics[OSKey] = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		metrics[VirtualizationKey] = hostInfo.VirtualizationSystem
	}

	cpuInfo, err := cpu.Info()
	if err != nil || len(cpuInfo) == 0 {
		log.Warnf("cannot read cpu info: %v", err)
	} else {
		metrics[CPUModelNameKey] = cpuInfo[0].ModelName
		metrics[CPUCoresKey] = strconv.Itoa(len(cpuInfo))
	}

	memory, err := mem.VirtualMemory()
	if err != nil {
		log.Warnf("cannot read memory info: %v", err)
	} else {
		metrics[TotalMemoryKey] = strconv.FormatUint(memory.Total, 10)
	}

	usage, err := disk.Usage(dataDir)
	if err != nil {
		log.Warnf("cannot read disk usage of %q: %v", dataDir, err)
	} else {
		metrics[DataDirDeviceKey] = usage.Fstype
		metrics[DataDirFreeKey] = strconv.FormatUint(usage.Free, 10)
	}

	return metrics
}
