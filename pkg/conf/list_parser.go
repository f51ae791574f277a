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

package conf

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"
)

const listDelimiter = ","

// StringListVar is a custom kingpin parser which resolves flag's parameters
// which consist of a string slice delimited by `listDelimiter`.
// For instance for a flag defined like this:
// `flag = StringList(kingpin.Flag("flag_name", "help").Short("f"))`
//
// When user specifies options: `-f=A,B,C -f=D,E,F` the `flag` variable is a
// slice with A,B,C,D,E,F items.
type StringListVar []string

// Set parses the input string and appends it to the slice. Implements kingpin.Value.
func (s *StringListVar) Set(value string) error {
	*s = append(*s, strings.Split(value, listDelimiter)...)
	return nil
}

// String returns string value from StringListVar. Implements kingpin.Value.
func (s *StringListVar) String() string {
	return strings.Join(*s, listDelimiter)
}

// IsCumulative implements optional interface (kingpin.repeatableFlag) for
// flags that can be repeated.
func (s *StringListVar) IsCumulative() bool {
	return true
}

// StringList is a helper for defining kingpin flags.
func StringList(s kingpin.Settings) (target *[]string) {
	target = new([]string)
	s.SetValue((*StringListVar)(target))
	return
}

// IntListVar is a custom kingpin parser which resolves flag's parameters
// which consist of an int slice delimited by `listDelimiter`.
type IntListVar []int

// Set parses the input string and appends it to the slice. Implements kingpin.Value.
func (s *IntListVar) Set(value string) error {
	for _, item := range strings.Split(value, listDelimiter) {
		number, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			return fmt.Errorf("cannot parse %q as integer list element", item)
		}
		*s = append(*s, number)
	}
	return nil
}

// String returns string value from IntListVar. Implements kingpin.Value.
func (s *IntListVar) String() string {
	items := make([]string, 0, len(*s))
	for _, number := range *s {
		items = append(items, strconv.Itoa(number))
	}
	return strings.Join(items, listDelimiter)
}

// IsCumulative implements optional interface (kingpin.repeatableFlag) for
// flags that can be repeated.
func (s *IntListVar) IsCumulative() bool {
	return true
}

// IntList is a helper for defining kingpin flags.
func IntList(s kingpin.Settings) (target *[]int) {
	target = new([]int)
	s.SetValue((*IntListVar)(target))
	return
}
