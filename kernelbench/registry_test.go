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
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IndexesLevels(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"level1/1_A.py", "level1/2_B.py", "level2/1_C.py"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("class Model: pass\n"), 0o644))
	}
	// non-directory entries are ignored
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	r, err := NewRegistry(root)
	require.NoError(t, err)

	levels := r.Levels()
	sort.Strings(levels)
	assert.Equal(t, []string{"level1", "level2"}, levels)

	d, ok := r.Dataset("level1")
	require.True(t, ok)
	assert.Equal(t, 2, d.Len())

	_, ok = r.Dataset("level3")
	assert.False(t, ok)
}

func TestRegistry_ReindexesOnNewProblem(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "level1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_A.py"), []byte("class Model: pass\n"), 0o644))

	r, err := NewRegistry(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2_B.py"), []byte("class Model: pass\n"), 0o644))

	assert.Eventually(t, func() bool {
		d, ok := r.Dataset("level1")
		return ok && d.Len() == 2
	}, 3*time.Second, 20*time.Millisecond, "new problem file not picked up")
}
