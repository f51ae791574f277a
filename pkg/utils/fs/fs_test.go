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

package fs

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDirSizeBytes(t *testing.T) {
	Convey("While measuring directory sizes", t, func() {
		dir := t.TempDir()

		Convey("An empty directory should measure zero bytes", func() {
			size, err := DirSizeBytes(dir)
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 0)
		})

		Convey("A missing directory should measure zero bytes without error", func() {
			size, err := DirSizeBytes(filepath.Join(dir, "no-such-dir"))
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 0)
		})

		Convey("Nested files should be summed", func() {
			So(os.MkdirAll(filepath.Join(dir, "sub"), 0755), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, "a.sst"), make([]byte, 100), 0644), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, "sub", "b.sst"), make([]byte, 50), 0644), ShouldBeNil)

			size, err := DirSizeBytes(dir)
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 150)
		})
	})
}

func TestGlobSizeBytes(t *testing.T) {
	Convey("While measuring glob patterns", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "sbtest1.ibd"), make([]byte, 10), 0644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "sbtest2.ibd"), make([]byte, 20), 0644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "other.frm"), make([]byte, 40), 0644), ShouldBeNil)

		Convey("Only matching files should be summed", func() {
			size, err := GlobSizeBytes(filepath.Join(dir, "sbtest*.ibd"))
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 30)
		})

		Convey("Patterns without matches contribute nothing", func() {
			size, err := GlobSizeBytes(filepath.Join(dir, "ibdata*"), filepath.Join(dir, "sbtest*.ibd"))
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 30)
		})
	})
}

func TestTailFile(t *testing.T) {
	Convey("While tailing a file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "error.log")
		So(os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0644), ShouldBeNil)

		Convey("The last lines should be returned", func() {
			So(TailFile(path, 2), ShouldEqual, "three\nfour")
		})

		Convey("Asking for more lines than present returns the whole file", func() {
			So(TailFile(path, 100), ShouldEqual, "one\ntwo\nthree\nfour")
		})

		Convey("A missing file yields an empty string", func() {
			So(TailFile(filepath.Join(dir, "absent.log"), 5), ShouldEqual, "")
		})
	})
}

func TestRemoveIfExists(t *testing.T) {
	Convey("While removing files", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "mysqld.pid")
		So(os.WriteFile(path, []byte("1234"), 0644), ShouldBeNil)

		Convey("An existing file should be removed", func() {
			So(RemoveIfExists(path), ShouldBeNil)
			_, err := os.Stat(path)
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("Removing it twice is a no-op", func() {
			So(RemoveIfExists(path), ShouldBeNil)
			So(RemoveIfExists(path), ShouldBeNil)
		})
	})
}
