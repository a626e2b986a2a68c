// Copyright (C) 2017 Google Inc.
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

// repeatedFlag accumulates every occurrence of a flag.Value string flag
// (spec §6: `-Idir`, `-Dname[=value]`, `-U name`, each repeatable),
// grounded on core/app/flags' reflect-based newRepeatedFlag — trimmed to
// the one type (string) this CLI's three repeated flags ever need.
type repeatedFlag struct {
	values *[]string
}

func (f *repeatedFlag) String() string {
	if f.values == nil {
		return ""
	}
	out := ""
	for i, v := range *f.values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

func (f *repeatedFlag) Set(value string) error {
	*f.values = append(*f.values, value)
	return nil
}
