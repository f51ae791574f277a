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

package mysqld

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func testMysqldConfig() Config {
	return Config{
		PathToBinary: "/usr/sbin/mysqld",
		DataDir:      "/var/lib/mysql-sqlbench",
		Socket:       "/tmp/sqlbench-mysqld.sock",
		PidFile:      "/var/lib/mysql-sqlbench/mysqld.pid",
		ErrorLog:     "/var/lib/mysql-sqlbench/mysqld-error.log",
		PluginLoad:   "tidesdb=ha_tidesdb.so",
		User:         "root",
		Database:     "sbtest",
		ExtraOptions: []string{"--innodb-buffer-pool-size=1G"},
		StartTimeout: time.Second,
	}
}

func TestBuildCommand(t *testing.T) {
	Convey("The server command disables networking and loads the plugin", t, func() {
		command := buildCommand(testMysqldConfig())
		So(command, ShouldEqual,
			`/usr/sbin/mysqld --datadir=/var/lib/mysql-sqlbench`+
				` --socket=/tmp/sqlbench-mysqld.sock`+
				` --pid-file=/var/lib/mysql-sqlbench/mysqld.pid`+
				` --log-error=/var/lib/mysql-sqlbench/mysqld-error.log`+
				` --skip-networking --plugin-load-add=tidesdb=ha_tidesdb.so`+
				` --innodb-buffer-pool-size=1G`)
	})

	Convey("Plugin loading is omitted when unset", t, func() {
		config := testMysqldConfig()
		config.PluginLoad = ""
		So(buildCommand(config), ShouldNotContainSubstring, "--plugin-load-add")
	})
}
