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
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/tidesdb/sqlbench/pkg/conf"
)

var (
	cassandraEnabledFlag = conf.NewBoolFlag(
		"cassandra_enabled",
		"Publish results to a Cassandra cluster in addition to local CSV files.",
		false,
	)
	cassandraAddressFlag = conf.NewStringFlag(
		"cassandra_address",
		"Address of the Cassandra cluster used for result storage.",
		"127.0.0.1",
	)
	cassandraKeyspaceFlag = conf.NewStringFlag(
		"cassandra_keyspace",
		"Keyspace holding the result tables.",
		"sqlbench",
	)
	cassandraUsernameFlag = conf.NewStringFlag(
		"cassandra_username",
		"Username for Cassandra authentication. Leave empty to disable.",
		"",
	)
	cassandraPasswordFlag = conf.NewStringFlag(
		"cassandra_password",
		"Password for Cassandra authentication.",
		"",
	)
	cassandraTimeoutFlag = conf.NewDurationFlag(
		"cassandra_timeout",
		"Query timeout for result inserts.",
		5*time.Second,
	)
	cassandraConnectionTimeoutFlag = conf.NewDurationFlag(
		"cassandra_connection_timeout",
		"Connection timeout for the Cassandra session.",
		10*time.Second,
	)
	cassandraSslEnabledFlag = conf.NewBoolFlag(
		"cassandra_ssl",
		"Enable SSL for the Cassandra connection.",
		false,
	)
	cassandraSslCAPathFlag = conf.NewStringFlag(
		"cassandra_ssl_ca_path",
		"Path to the CA certificate for the Cassandra connection.",
		"",
	)
	cassandraSslCertPathFlag = conf.NewStringFlag(
		"cassandra_ssl_cert_path",
		"Path to the client certificate for the Cassandra connection.",
		"",
	)
	cassandraSslKeyPathFlag = conf.NewStringFlag(
		"cassandra_ssl_key_path",
		"Path to the client key for the Cassandra connection.",
		"",
	)
)

// CassandraConfig encodes the settings for connecting to the result cluster.
type CassandraConfig struct {
	Address           string
	Keyspace          string
	Username          string
	Password          string
	Timeout           time.Duration
	ConnectionTimeout time.Duration
	SslEnabled        bool
	SslCAPath         string
	SslCertPath       string
	SslKeyPath        string
}

// CassandraEnabled reports whether Cassandra publishing was requested.
func CassandraEnabled() bool {
	return cassandraEnabledFlag.Value()
}

// DefaultCassandraConfig applies the Cassandra settings from the command
// line flags and environment variables.
func DefaultCassandraConfig() CassandraConfig {
	return CassandraConfig{
		Address:           cassandraAddressFlag.Value(),
		Keyspace:          cassandraKeyspaceFlag.Value(),
		Username:          cassandraUsernameFlag.Value(),
		Password:          cassandraPasswordFlag.Value(),
		Timeout:           cassandraTimeoutFlag.Value(),
		ConnectionTimeout: cassandraConnectionTimeoutFlag.Value(),
		SslEnabled:        cassandraSslEnabledFlag.Value(),
		SslCAPath:         cassandraSslCAPathFlag.Value(),
		SslCertPath:       cassandraSslCertPathFlag.Value(),
		SslKeyPath:        cassandraSslKeyPathFlag.Value(),
	}
}

// Cassandra records results into four append-only tables. Rows are keyed by
// the cell identity and clustered by insertion time, so repeated runs of the
// same matrix accumulate instead of overwriting.
type Cassandra struct {
	config  CassandraConfig
	session *gocql.Session
}

var resultTableSchemas = []string{
	`CREATE TABLE IF NOT EXISTS summary (
		experiment_id text, run_ts timestamp, engine text, workload text,
		threads int, table_size int, iteration int,
		transactions int, tps double, queries int, qps double,
		reads_per_sec double, writes_per_sec double,
		latency_min_ms double, latency_avg_ms double, latency_max_ms double,
		latency_p95_ms double, ignored_errors int, reconnects int,
		elapsed_s double, data_size_after_prepare bigint,
		data_size_after_run bigint, failed boolean, failure_reason text,
		timeuuid TIMEUUID,
		PRIMARY KEY ((experiment_id), timeuuid)
	) WITH CLUSTERING ORDER BY (timeuuid DESC);`,
	`CREATE TABLE IF NOT EXISTS detail (
		experiment_id text, run_ts timestamp, engine text, workload text,
		threads int, table_size int, iteration int,
		time_s int, active_threads int, tps double, qps double,
		latency_avg_ms double, latency_p95_ms double,
		timeuuid TIMEUUID,
		PRIMARY KEY ((experiment_id), timeuuid)
	) WITH CLUSTERING ORDER BY (timeuuid DESC);`,
	`CREATE TABLE IF NOT EXISTS histogram (
		experiment_id text, run_ts timestamp, engine text, workload text,
		threads int, table_size int, iteration int,
		percentile text, latency_ms double,
		timeuuid TIMEUUID,
		PRIMARY KEY ((experiment_id), timeuuid)
	) WITH CLUSTERING ORDER BY (timeuuid DESC);`,
	`CREATE TABLE IF NOT EXISTS datasize (
		experiment_id text, run_ts timestamp, engine text, workload text,
		threads int, table_size int, iteration int,
		phase text, size_bytes bigint,
		timeuuid TIMEUUID,
		PRIMARY KEY ((experiment_id), timeuuid)
	) WITH CLUSTERING ORDER BY (timeuuid DESC);`,
}

// NewCassandra connects to the cluster and prepares the keyspace and result
// tables.
func NewCassandra(config CassandraConfig) (*Cassandra, error) {
	recorder := &Cassandra{config: config}
	if err := recorder.connect(); err != nil {
		return nil, err
	}
	return recorder, nil
}

func (c *Cassandra) clusterConfig() *gocql.ClusterConfig {
	cluster := gocql.NewCluster(c.config.Address)
	cluster.Consistency = gocql.LocalOne
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.ProtoVersion = 4
	cluster.ConnectTimeout = c.config.ConnectionTimeout
	cluster.Timeout = c.config.Timeout

	if c.config.Username != "" && c.config.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.config.Username,
			Password: c.config.Password,
		}
	}
	if c.config.SslEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:   c.config.SslCAPath,
			CertPath: c.config.SslCertPath,
			KeyPath:  c.config.SslKeyPath,
		}
	}

	return cluster
}

func (c *Cassandra) connect() error {
	// The keyspace must exist before a keyspace-bound session can open.
	bootstrap, err := c.clusterConfig().CreateSession()
	if err != nil {
		return errors.Wrap(err, "cannot connect to Cassandra")
	}
	query := fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 1};",
		c.config.Keyspace)
	err = bootstrap.Query(query).Exec()
	bootstrap.Close()
	if err != nil {
		return errors.Wrap(err, "cannot create keyspace")
	}

	cluster := c.clusterConfig()
	cluster.Keyspace = c.config.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return errors.Wrap(err, "cannot create Cassandra session")
	}

	for _, schema := range resultTableSchemas {
		if err := session.Query(schema).Exec(); err != nil {
			session.Close()
			return errors.Wrap(err, "cannot create result table")
		}
	}

	c.session = session
	return nil
}

// RecordSummary implements Recorder.
func (c *Cassandra) RecordSummary(row SummaryRow) error {
	err := c.session.Query(
		`INSERT INTO summary (experiment_id, run_ts, engine, workload, threads,
			table_size, iteration, transactions, tps, queries, qps,
			reads_per_sec, writes_per_sec, latency_min_ms, latency_avg_ms,
			latency_max_ms, latency_p95_ms, ignored_errors, reconnects,
			elapsed_s, data_size_after_prepare, data_size_after_run, failed,
			failure_reason, timeuuid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ExperimentID, row.RunTimestamp, row.Engine, row.Workload,
		row.Threads, row.TableSize, row.Iteration, row.Transactions, row.TPS,
		row.Queries, row.QPS, row.ReadsPerSec, row.WritesPerSec,
		row.LatencyMinMs, row.LatencyAvgMs, row.LatencyMaxMs, row.LatencyP95Ms,
		row.IgnoredErrors, row.Reconnects, row.ElapsedSeconds,
		row.DataSizeAfterPrepareBytes, row.DataSizeAfterRunBytes, row.Failed,
		row.FailureReason, gocql.TimeUUID()).Exec()
	return errors.Wrap(err, "cannot publish summary row")
}

// RecordInterval implements Recorder.
func (c *Cassandra) RecordInterval(row IntervalRow) error {
	err := c.session.Query(
		`INSERT INTO detail (experiment_id, run_ts, engine, workload, threads,
			table_size, iteration, time_s, active_threads, tps, qps,
			latency_avg_ms, latency_p95_ms, timeuuid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ExperimentID, row.RunTimestamp, row.Engine, row.Workload,
		row.Threads, row.TableSize, row.Iteration, row.TimeOffsetSeconds,
		row.ActiveThreads, row.TPS, row.QPS, row.LatencyAvgMs,
		row.LatencyP95Ms, gocql.TimeUUID()).Exec()
	return errors.Wrap(err, "cannot publish interval row")
}

// RecordHistogram implements Recorder.
func (c *Cassandra) RecordHistogram(row HistogramRow) error {
	err := c.session.Query(
		`INSERT INTO histogram (experiment_id, run_ts, engine, workload,
			threads, table_size, iteration, percentile, latency_ms, timeuuid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ExperimentID, row.RunTimestamp, row.Engine, row.Workload,
		row.Threads, row.TableSize, row.Iteration, row.PercentileLabel,
		row.LatencyMs, gocql.TimeUUID()).Exec()
	return errors.Wrap(err, "cannot publish histogram row")
}

// RecordDataSize implements Recorder.
func (c *Cassandra) RecordDataSize(row DataSizeRow) error {
	err := c.session.Query(
		`INSERT INTO datasize (experiment_id, run_ts, engine, workload,
			threads, table_size, iteration, phase, size_bytes, timeuuid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ExperimentID, row.RunTimestamp, row.Engine, row.Workload,
		row.Threads, row.TableSize, row.Iteration, row.Phase, row.SizeBytes,
		gocql.TimeUUID()).Exec()
	return errors.Wrap(err, "cannot publish data size row")
}

// Close implements Recorder.
func (c *Cassandra) Close() error {
	c.session.Close()
	return nil
}
