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

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/kernelforge/eval"
)

type stubEvaluator struct {
	res *eval.KernelExecResult
	err error
}

func (s *stubEvaluator) Eval(_ context.Context, _, _ string, _ eval.EvalOptions) (*eval.KernelExecResult, error) {
	return s.res, s.err
}

func writeBenchDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"level1/1_Square_matrix_multiplication_.py": "class Model: pass\n",
		"level1/23_Softmax.py":                      "class Model: pass\n",
		"level2/1_Conv2D_ReLU_BiasAdd.py":           "class Model: pass\n",
	}
	for name, src := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestBenchTools(t *testing.T) {
	ctx := context.Background()
	bt := NewBenchTools(BenchToolsOptions{
		BenchDir:  writeBenchDir(t),
		Evaluator: &stubEvaluator{res: &eval.KernelExecResult{Compiled: true, Correctness: true, Runtime: -1}},
	})

	if got := len(bt.GetTools()); got != 4 {
		t.Fatalf("got %d tools, want 4", got)
	}

	levels, err := bt.ListLevels(ctx, ListLevelsReq{})
	if err != nil {
		t.Fatal(err)
	}
	if len(levels.Levels) != 2 {
		t.Fatalf("levels = %v", levels.Levels)
	}

	probs, err := bt.ListProblems(ctx, ListProblemsReq{Level: "level1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(probs.Problems) != 2 || probs.Problems[0].ID != 1 || probs.Problems[1].ID != 23 {
		t.Fatalf("problems = %+v", probs.Problems)
	}

	ref, err := bt.GetRefArch(ctx, GetRefArchReq{Level: "level1", ProblemID: 23})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ref.Source, "class Model") {
		t.Fatalf("ref arch = %q", ref.Source)
	}

	missing, err := bt.GetRefArch(ctx, GetRefArchReq{Level: "level9", ProblemID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if missing.Error == "" {
		t.Fatal("want error for unknown level")
	}

	res, err := bt.EvalKernel(ctx, EvalKernelReq{Level: "level1", ProblemID: 23, Kernel: "class ModelNew: pass"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Result == nil || !res.Result.Correctness {
		t.Fatalf("eval result = %+v", res.Result)
	}
}

func TestBenchTools_EvalErrorFoldedIntoResult(t *testing.T) {
	bt := NewBenchTools(BenchToolsOptions{
		BenchDir:  writeBenchDir(t),
		Evaluator: &stubEvaluator{err: errors.New("worker unavailable")},
	})
	res, err := bt.EvalKernel(context.Background(), EvalKernelReq{Level: "level1", ProblemID: 1, Kernel: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Result == nil || res.Result.Compiled {
		t.Fatalf("result = %+v", res.Result)
	}
	if res.Result.Metadata["eval_error"] != "worker unavailable" {
		t.Fatalf("metadata = %v", res.Result.Metadata)
	}
}

func TestBenchTools_NoEvaluatorOmitsEvalTool(t *testing.T) {
	bt := NewBenchTools(BenchToolsOptions{BenchDir: writeBenchDir(t)})
	if got := len(bt.GetTools()); got != 3 {
		t.Fatalf("got %d tools, want 3", got)
	}
	if bt.GetTool(ToolEvalKernel) != nil {
		t.Fatal("eval_kernel should be absent without an evaluator")
	}
}

func TestGetJSONSchema(t *testing.T) {
	js := GetJSONSchema(GetRefArchReq{})
	var schema map[string]any
	if err := json.Unmarshal(js, &schema); err != nil {
		t.Fatal(err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %s", js)
	}
	for _, field := range []string{"level", "problem_id"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing field %q", field)
		}
	}
}
