/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package kernelbench indexes the KernelBench problem suite: directories of
// reference PyTorch modules, one file per problem, named <id>_<title>.py.
package kernelbench

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/kernelforge/internal/log"
	"github.com/cloudwego/kernelforge/internal/utils"
)

// Problem is one reference architecture in the suite.
type Problem struct {
	ID   int    `json:"id"`   // integer prefix of the filename
	Name string `json:"name"` // filename without directory
	Path string `json:"path"` // absolute or dataset-relative path
}

// Dataset is the indexed content of one problem directory (one level).
type Dataset struct {
	Dir      string
	problems []Problem
	byID     map[int]*Problem
}

// NewDataset scans dir for *.py problem files and indexes them sorted by the
// numeric prefix of the basename. Files without a numeric prefix are skipped.
func NewDataset(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, utils.WrapErrorf(err, "read problem dir %s", dir)
	}
	ds := &Dataset{Dir: dir, byID: make(map[int]*Problem)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".py") {
			continue
		}
		id, ok := problemID(e.Name())
		if !ok {
			log.Warn("skipping problem file without numeric prefix: %s", e.Name())
			continue
		}
		ds.problems = append(ds.problems, Problem{
			ID:   id,
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(ds.problems, func(i, j int) bool {
		return ds.problems[i].ID < ds.problems[j].ID
	})
	for i := range ds.problems {
		p := &ds.problems[i]
		ds.byID[p.ID] = p
	}
	return ds, nil
}

// problemID parses the integer prefix of a problem filename
// ("17_Matmul_with_transposed_B.py" -> 17).
func problemID(name string) (int, bool) {
	base := strings.TrimSuffix(name, ".py")
	idx := strings.Index(base, "_")
	if idx <= 0 {
		return 0, false
	}
	id, err := strconv.Atoi(base[:idx])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Problems returns all problems sorted by ID.
func (d *Dataset) Problems() []Problem {
	return d.problems
}

// Len returns the number of indexed problems.
func (d *Dataset) Len() int {
	return len(d.problems)
}

// Lookup returns the problem with the given ID.
func (d *Dataset) Lookup(id int) (*Problem, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// LookupName returns the problem with the given filename.
func (d *Dataset) LookupName(name string) (*Problem, bool) {
	for i := range d.problems {
		if d.problems[i].Name == name {
			return &d.problems[i], true
		}
	}
	return nil, false
}

// FetchRefArch reads the reference architecture source for a problem ID.
func (d *Dataset) FetchRefArch(id int) (string, error) {
	p, ok := d.byID[id]
	if !ok {
		return "", fmt.Errorf("problem %d not found in %s", id, d.Dir)
	}
	bs, err := os.ReadFile(p.Path)
	if err != nil {
		return "", utils.WrapErrorf(err, "read reference architecture %s", p.Path)
	}
	return string(bs), nil
}
