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

package main

import (
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tidesdb/sqlbench/pkg/conf"
	"github.com/tidesdb/sqlbench/pkg/engine"
	"github.com/tidesdb/sqlbench/pkg/executor"
	"github.com/tidesdb/sqlbench/pkg/experiment"
	"github.com/tidesdb/sqlbench/pkg/mysqld"
	"github.com/tidesdb/sqlbench/pkg/recorder"
	"github.com/tidesdb/sqlbench/pkg/storage"
	"github.com/tidesdb/sqlbench/pkg/utils/errutil"
	"github.com/tidesdb/sqlbench/pkg/utils/uuid"
	"github.com/tidesdb/sqlbench/pkg/workloads/sysbench"
)

const appName = "mysql-engine-comparison"

var (
	resultsDirFlag = conf.NewStringFlag(
		"results_dir",
		"Directory the CSV result tables are written to.",
		"results",
	)
	innodbTableOptionsFlag = conf.NewStringFlag(
		"innodb_table_options",
		"Table creation options baked into InnoDB benchmark tables.",
		"",
	)
	tidesdbTableOptionsFlag = conf.NewStringFlag(
		"tidesdb_table_options",
		"Table creation options baked into TidesDB benchmark tables.",
		"",
	)
)

func tableOptions(e engine.Engine) string {
	if e.IsLogStructured() {
		return tidesdbTableOptionsFlag.Value()
	}
	return innodbTableOptionsFlag.Value()
}

// validateEnvironment rejects configurations that cannot possibly run.
// Missing binaries or data directories are startup-time fatal errors, never
// per-cell ones.
func validateEnvironment(mysqldConfig mysqld.Config, sysbenchConfig sysbench.Config) {
	for _, binary := range []string{mysqldConfig.PathToBinary, sysbenchConfig.PathToBinary} {
		if _, err := os.Stat(binary); err != nil {
			log.Fatalf("required binary %q is not usable: %v", binary, err)
		}
	}
	info, err := os.Stat(mysqldConfig.DataDir)
	if err != nil || !info.IsDir() {
		log.Fatalf("data directory %q does not exist; initialize it before benchmarking", mysqldConfig.DataDir)
	}
}

func main() {
	conf.SetAppName(appName)
	conf.SetHelp("Compares the InnoDB and TidesDB storage engines across a sysbench benchmark matrix.")
	experiment.Configure()

	experimentID := uuid.New()
	runTimestamp := time.Now()
	log.Infof("starting experiment %s", experimentID)

	matrixConfig, err := experiment.DefaultMatrixConfig()
	errutil.Check(err)

	mysqldConfig := mysqld.DefaultConfig()
	sysbenchConfig := sysbench.DefaultConfig()
	sysbenchConfig.Socket = mysqldConfig.Socket
	validateEnvironment(mysqldConfig, sysbenchConfig)

	local := executor.NewLocal()
	supervisor := mysqld.NewSupervisor(local, mysqldConfig)
	_, err = supervisor.Start()
	errutil.CheckWithContext(err, "server did not come up")
	defer func() {
		if err := supervisor.Stop(); err != nil {
			log.Errorf("cannot stop mysqld: %v", err)
		}
	}()

	inspector := storage.NewInspector(storage.PathSet{
		DataDir:    mysqldConfig.DataDir,
		TidesDBDir: filepath.Join(mysqldConfig.DataDir, "tidesdb"),
		Database:   mysqldConfig.Database,
	})

	generators := make(map[engine.Engine]experiment.LoadGenerator, len(matrixConfig.Engines))
	for _, e := range matrixConfig.Engines {
		config := sysbenchConfig
		config.StorageEngine = e.Selector()
		config.CreateTableOptions = tableOptions(e)
		generators[e] = sysbench.New(local, config)
	}

	csvRecorder, err := recorder.NewCSV(resultsDirFlag.Value(), runTimestamp)
	errutil.CheckWithContext(err, "cannot open result tables")
	recorders := []recorder.Recorder{csvRecorder}

	if recorder.CassandraEnabled() {
		cassandraConfig := recorder.DefaultCassandraConfig()
		cassandraRecorder, err := recorder.NewCassandra(cassandraConfig)
		errutil.CheckWithContext(err, "cannot connect to Cassandra")
		recorders = append(recorders, cassandraRecorder)

		metadata, err := experiment.NewMetadata(experimentID, cassandraConfig)
		errutil.CheckWithContext(err, "cannot connect to metadata storage")
		errutil.Check(metadata.RecordMap(conf.GetFlags(), experiment.MetadataKindFlags))
		errutil.Check(metadata.RecordMap(
			experiment.GetPlatformMetrics(mysqldConfig.DataDir),
			experiment.MetadataKindPlatform))
		metadata.Close()
	}

	results := recorder.NewMulti(recorders...)
	defer func() {
		if err := results.Close(); err != nil {
			log.Errorf("cannot close result recorders: %v", err)
		}
	}()

	runner := experiment.NewRunner(experimentID, runTimestamp, matrixConfig,
		generators, supervisor, inspector, results)
	controller := experiment.NewController(matrixConfig, runner, supervisor, os.Stdout)

	if err := controller.Run(); err != nil {
		log.Errorf("experiment %s failed: %v", experimentID, err)
		supervisor.Stop()
		results.Close()
		os.Exit(experiment.ExSoftware)
	}

	log.Infof("experiment %s finished, results in %s", experimentID, resultsDirFlag.Value())
}
