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
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/tidesdb/sqlbench/pkg/recorder"
)

// Metadata kinds stored per experiment.
const (
	MetadataKindFlags    = "flags"
	MetadataKindPlatform = "platform"
)

// Metadata stores run context (flags, platform snapshot) in Cassandra,
// keyed by the experiment id. It shares the cluster settings with the
// result recorder.
type Metadata struct {
	experimentID string
	session      *gocql.Session
}

// NewMetadata connects to the cluster and prepares the metadata table.
func NewMetadata(experimentID string, config recorder.CassandraConfig) (*Metadata, error) {
	cluster := gocql.NewCluster(config.Address)
	cluster.Consistency = gocql.LocalOne
	cluster.ProtoVersion = 4
	cluster.ConnectTimeout = config.ConnectionTimeout
	cluster.Timeout = config.Timeout
	cluster.Keyspace = config.Keyspace
	if config.Username != "" && config.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	if config.SslEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:   config.SslCAPath,
			CertPath: config.SslCertPath,
			KeyPath:  config.SslKeyPath,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to metadata storage")
	}

	err = session.Query(`CREATE TABLE IF NOT EXISTS metadata (
		experiment_id text, kind text, time timestamp, timeuuid TIMEUUID,
		metadata map<text,text>,
		PRIMARY KEY ((experiment_id), timeuuid)
	) WITH CLUSTERING ORDER BY (timeuuid DESC);`).Exec()
	if err != nil {
		session.Close()
		return nil, errors.Wrap(err, "cannot create metadata table")
	}

	return &Metadata{experimentID: experimentID, session: session}, nil
}

// RecordMap stores a key value map under the given kind.
func (m *Metadata) RecordMap(metadata map[string]string, kind string) error {
	err := m.session.Query(
		`INSERT INTO metadata (experiment_id, kind, time, timeuuid, metadata) VALUES (?, ?, ?, ?, ?)`,
		m.experimentID, kind, time.Now(), gocql.TimeUUID(), metadata).Exec()
	return errors.Wrapf(err, "cannot publish metadata of kind %q", kind)
}

// GetByKind retrieves a single metadata map of the given kind. It fails when
// the kind is absent or ambiguous.
func (m *Metadata) GetByKind(kind string) (map[string]string, error) {
	var metadata map[string]string
	maps := []map[string]string{}

	iter := m.session.Query(
		`SELECT metadata FROM metadata WHERE experiment_id = ? AND kind = ? ALLOW FILTERING`,
		m.experimentID, kind).Iter()
	for iter.Scan(&metadata) {
		maps = append(maps, metadata)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	if len(maps) != 1 {
		return nil, fmt.Errorf("cannot retrieve metadata of kind %q for experiment %q", kind, m.experimentID)
	}
	return maps[0], nil
}

// Close shuts the metadata session down.
func (m *Metadata) Close() {
	m.session.Close()
}
