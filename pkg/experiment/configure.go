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
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/tidesdb/sqlbench/pkg/conf"
	"github.com/tidesdb/sqlbench/pkg/recorder"
	"github.com/tidesdb/sqlbench/pkg/utils/errutil"
)

// Exit codes, following sysexits conventions.
const (
	// ExUsage signals a command line or environment usage error.
	ExUsage = 64
	// ExSoftware signals an internal failure.
	ExSoftware = 70
	// ExIOErr signals a failure writing results.
	ExIOErr = 74
)

var (
	// Flag names include a dash to exclude them from dumping.
	dumpConfigFlag = conf.NewBoolFlag(
		"config-dump",
		"Dump configuration as environment script.",
		false,
	)
	dumpConfigExperimentIDFlag = conf.NewStringFlag(
		"config-dump-experiment-id",
		"Dump the configuration a previous experiment ran with, by experiment ID.",
		"",
	)
)

// Configure handles configuration parsing, generation and restoration based
// on the config-* flags. Exits if a configuration dump was requested.
func Configure() {
	err := conf.ParseFlags()
	if err != nil {
		log.Errorf("Cannot parse flags: %q", err.Error())
		os.Exit(ExUsage)
	}
	log.SetLevel(conf.LogLevel())

	if dumpConfigFlag.Value() {
		previousExperimentID := dumpConfigExperimentIDFlag.Value()
		if previousExperimentID != "" {
			metadata, err := NewMetadata(previousExperimentID, recorder.DefaultCassandraConfig())
			errutil.Check(err)
			flags, err := metadata.GetByKind(MetadataKindFlags)
			errutil.Check(err)
			fmt.Println(conf.DumpConfigMap(flags))
		} else {
			fmt.Println(conf.DumpConfig())
		}
		os.Exit(0)
	}
}
