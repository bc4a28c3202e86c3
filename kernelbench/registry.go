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

package kernelbench

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/cloudwego/kernelforge/internal/log"
	"github.com/cloudwego/kernelforge/internal/utils"
)

// Registry holds the datasets of every level directory under a KernelBench
// root and keeps them fresh while a long experiment run is in flight.
type Registry struct {
	root     string
	datasets sync.Map // level dir name -> *Dataset
}

// NewRegistry indexes every subdirectory of root as a dataset and watches
// root for *.py changes, reindexing an affected level in place. The first
// indexing error is fatal; watch errors only log.
func NewRegistry(root string) (*Registry, error) {
	r := &Registry{root: root}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, utils.WrapErrorf(err, "read KernelBench root %s", root)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ds, err := NewDataset(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		r.datasets.Store(e.Name(), ds)
		// fsnotify does not recurse, so each level dir gets its own watch.
		if err := utils.WatchDir(filepath.Join(root, e.Name()), r.onEvent); err != nil {
			log.Warn("dataset watch disabled for %s: %v", e.Name(), err)
		}
	}
	if err := utils.WatchDir(root, r.onRootEvent); err != nil {
		// Indexing succeeded; a missing watcher only means no live refresh.
		log.Warn("dataset watch disabled: %v", err)
	}
	return r, nil
}

// onRootEvent picks up level directories created after startup.
func (r *Registry) onRootEvent(op fsnotify.Op, file string) {
	if op&fsnotify.Create == 0 {
		return
	}
	fi, err := os.Stat(file)
	if err != nil || !fi.IsDir() {
		return
	}
	level := filepath.Base(file)
	ds, err := NewDataset(file)
	if err != nil {
		log.Error("index new level %s failed: %v", level, err)
		return
	}
	r.datasets.Store(level, ds)
	if err := utils.WatchDir(file, r.onEvent); err != nil {
		log.Warn("dataset watch disabled for %s: %v", level, err)
	}
	log.Debug("indexed new level %s (%d problems)", level, ds.Len())
}

func (r *Registry) onEvent(op fsnotify.Op, file string) {
	if !strings.HasSuffix(file, ".py") {
		return
	}
	if op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	level := filepath.Base(filepath.Dir(file))
	ds, err := NewDataset(filepath.Join(r.root, level))
	if err != nil {
		log.Error("reindex level %s failed: %v", level, err)
		return
	}
	r.datasets.Store(level, ds)
	log.Debug("reindexed level %s (%d problems) after %s", level, ds.Len(), op)
}

// Dataset returns the dataset for a level directory name, e.g. "level1".
func (r *Registry) Dataset(level string) (*Dataset, bool) {
	v, ok := r.datasets.Load(level)
	if !ok {
		return nil, false
	}
	return v.(*Dataset), true
}

// Levels returns the indexed level directory names.
func (r *Registry) Levels() []string {
	var out []string
	r.datasets.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	return out
}
