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

package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/cloudwego/kernelforge/eval"
)

const refArch = `import torch.nn as nn

class Model(nn.Module):
    def forward(self, x):
        return x + x
`

// fakeGen replays canned replies and records the prompts it saw.
type fakeGen struct {
	replies []string
	prompts []string
}

func (g *fakeGen) Call(_ context.Context, input string) (string, error) {
	g.prompts = append(g.prompts, input)
	if len(g.replies) == 0 {
		return "", errors.New("no replies left")
	}
	out := g.replies[0]
	g.replies = g.replies[1:]
	return out, nil
}

// fakeEval replays canned results, one per Eval call.
type fakeEval struct {
	results []*eval.KernelExecResult
	errs    []error
	kernels []string
	opts    []eval.EvalOptions
}

func (e *fakeEval) Eval(_ context.Context, _, kernel string, opts eval.EvalOptions) (*eval.KernelExecResult, error) {
	e.kernels = append(e.kernels, kernel)
	e.opts = append(e.opts, opts)
	i := len(e.kernels) - 1
	if i < len(e.errs) && e.errs[i] != nil {
		return nil, e.errs[i]
	}
	if i < len(e.results) {
		return e.results[i], nil
	}
	return &eval.KernelExecResult{Compiled: true, Correctness: true, Runtime: -1}, nil
}

func reply(kernel string) string {
	return fmt.Sprintf("Here is the kernel:\n```python\n%s\n```\n", kernel)
}

func TestRun_SingleTurn(t *testing.T) {
	gen := &fakeGen{replies: []string{reply("class ModelNew: pass")}}
	ev := &fakeEval{results: []*eval.KernelExecResult{
		{Compiled: true, Correctness: true, Runtime: 1.5},
	}}
	r := NewRunner(gen, ev, Options{})

	res, err := r.Run(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Attempts) != 1 {
		t.Fatalf("got %d attempts, want 1", len(res.Attempts))
	}
	if res.Best == nil || !res.Best.Result.Correctness {
		t.Fatalf("best = %+v, want correct", res.Best)
	}
	if !strings.Contains(gen.prompts[0], refArch) {
		t.Fatal("generate prompt does not carry the reference architecture")
	}
	if ev.kernels[0] != "class ModelNew: pass" {
		t.Fatalf("evaluated kernel = %q", ev.kernels[0])
	}
}

func TestRunMultiTurn_FixCompileThenCorrectness(t *testing.T) {
	gen := &fakeGen{replies: []string{
		reply("v1"),
		reply("v2"),
		reply("v3"),
	}}
	ev := &fakeEval{results: []*eval.KernelExecResult{
		{Compiled: false, Runtime: -1, Metadata: map[string]string{"compile_error": "nvcc: boom"}},
		{Compiled: true, Correctness: false, Runtime: -1, Metadata: map[string]string{"mismatch": "max diff 0.5"}},
		{Compiled: true, Correctness: true, Runtime: -1},
	}}
	r := NewRunner(gen, ev, Options{Turns: 10})

	res, err := r.RunMultiTurn(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	// 3 model calls: generate, fix compile, fix correctness, then early stop.
	if len(gen.prompts) != 3 {
		t.Fatalf("got %d model calls, want 3", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[1], "nvcc: boom") {
		t.Fatal("compile-fix prompt does not carry the compiler error")
	}
	if !strings.Contains(gen.prompts[1], "v1") {
		t.Fatal("compile-fix prompt does not carry the failing kernel")
	}
	if !strings.Contains(gen.prompts[2], "max diff 0.5") {
		t.Fatal("correctness-fix prompt does not carry the mismatch details")
	}
	if res.Best.Kernel != "v3" {
		t.Fatalf("best kernel = %q, want v3", res.Best.Kernel)
	}
	got := []Action{res.State.Turns[0].Action, res.State.Turns[1].Action, res.State.Turns[2].Action}
	want := []Action{ActionGenerate, ActionFixCompile, ActionFixCorrectness}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("turn %d action = %s, want %s", i+1, got[i], want[i])
		}
	}
}

func TestRunMultiTurn_StopsAtTurnBudget(t *testing.T) {
	var replies []string
	for i := 0; i < 10; i++ {
		replies = append(replies, reply(fmt.Sprintf("v%d", i)))
	}
	gen := &fakeGen{replies: replies}
	// Never compiles: every turn should be a compile fix until the budget.
	ev := &fakeEval{}
	for i := 0; i < 10; i++ {
		ev.results = append(ev.results, &eval.KernelExecResult{Runtime: -1})
	}
	r := NewRunner(gen, ev, Options{Turns: 4})

	res, err := r.RunMultiTurn(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.prompts) != 4 {
		t.Fatalf("got %d model calls, want 4", len(gen.prompts))
	}
	if len(res.State.Turns) != 4 {
		t.Fatalf("got %d turn records, want 4", len(res.State.Turns))
	}
}

func TestRunMultiTurn_NoCodeBlockKeepsIncumbent(t *testing.T) {
	gen := &fakeGen{replies: []string{
		reply("v1"),
		"sorry, I cannot write kernels today",
		reply("v2"),
	}}
	ev := &fakeEval{results: []*eval.KernelExecResult{
		{Runtime: -1},
		{Compiled: true, Correctness: true, Runtime: -1},
	}}
	r := NewRunner(gen, ev, Options{Turns: 3})

	res, err := r.RunMultiTurn(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	// Turn 2 produced no code: it must not be evaluated, and turn 3 must
	// still repair v1, not the empty reply.
	if len(ev.kernels) != 2 {
		t.Fatalf("evaluator saw %d kernels, want 2", len(ev.kernels))
	}
	if !strings.Contains(gen.prompts[2], "v1") {
		t.Fatal("turn 3 prompt does not repair the incumbent kernel")
	}
	if res.State.Turns[1].Err == "" {
		t.Fatal("failed turn not recorded")
	}
	if res.Best.Kernel != "v2" {
		t.Fatalf("best kernel = %q, want v2", res.Best.Kernel)
	}
}

func TestRunMultiTurn_EvalErrorBecomesMetadata(t *testing.T) {
	gen := &fakeGen{replies: []string{reply("v1"), reply("v2")}}
	ev := &fakeEval{
		errs:    []error{errors.New("worker died")},
		results: []*eval.KernelExecResult{nil, {Compiled: true, Correctness: true, Runtime: -1}},
	}
	r := NewRunner(gen, ev, Options{Turns: 2})

	res, err := r.RunMultiTurn(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	first := res.Attempts[0].Result
	if first.Compiled {
		t.Fatal("evaluator error should read as not compiled")
	}
	if first.Metadata["eval_error"] != "worker died" {
		t.Fatalf("metadata = %v", first.Metadata)
	}
	// The error text must flow into the next repair prompt.
	if !strings.Contains(gen.prompts[1], "worker died") {
		t.Fatal("repair prompt does not carry the evaluator error")
	}
}

func TestRunMultiTurn_SyntaxCheckShortCircuits(t *testing.T) {
	gen := &fakeGen{replies: []string{reply("def f(x:"), reply("v2")}}
	ev := &fakeEval{results: []*eval.KernelExecResult{
		{Compiled: true, Correctness: true, Runtime: -1},
	}}
	r := NewRunner(gen, ev, Options{Turns: 2, SyntaxCheck: true})

	res, err := r.RunMultiTurn(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	// The broken kernel never reaches the evaluator.
	if len(ev.kernels) != 1 || ev.kernels[0] != "v2" {
		t.Fatalf("evaluator saw %v", ev.kernels)
	}
	if res.Attempts[0].Result.Metadata["syntax_error"] == "" {
		t.Fatal("syntax error not recorded in metadata")
	}
}

func TestRunMultiTurn_OptimizePerf(t *testing.T) {
	gen := &fakeGen{replies: []string{reply("v1"), reply("v2")}}
	ev := &fakeEval{results: []*eval.KernelExecResult{
		{Compiled: true, Correctness: true, Runtime: 4.0},
		{Compiled: true, Correctness: true, Runtime: 2.0},
	}}
	r := NewRunner(gen, ev, Options{Turns: 2, OptimizePerf: true, MeasurePerformance: true})

	res, err := r.RunMultiTurn(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("got %d model calls, want 2", len(gen.prompts))
	}
	if res.State.Turns[1].Action != ActionImprovePerf {
		t.Fatalf("turn 2 action = %s, want %s", res.State.Turns[1].Action, ActionImprovePerf)
	}
	if !strings.Contains(gen.prompts[1], "4.000 ms") {
		t.Fatal("optimization prompt does not carry the measured runtime")
	}
}

func TestBetterResult(t *testing.T) {
	compiled := &eval.KernelExecResult{Compiled: true, Runtime: -1}
	correct := &eval.KernelExecResult{Compiled: true, Correctness: true, Runtime: -1}
	failed := &eval.KernelExecResult{Runtime: -1}

	cases := []struct {
		name       string
		best, cand *eval.KernelExecResult
		want       bool
	}{
		{"anything beats nil", nil, failed, true},
		{"nil never wins", failed, nil, false},
		{"compiled beats failed", failed, compiled, true},
		{"correct beats compiled", compiled, correct, true},
		{"tie keeps incumbent", correct, correct, false},
		{"no downgrade", correct, compiled, false},
	}
	for _, c := range cases {
		if got := BetterResult(c.best, c.cand); got != c.want {
			t.Errorf("%s: BetterResult = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestScorer(t *testing.T) {
	s, err := NewScorer("(correctness ? 10 : 0) - runtime")
	if err != nil {
		t.Fatal(err)
	}
	fast := &eval.KernelExecResult{Compiled: true, Correctness: true, Runtime: 1.0}
	slow := &eval.KernelExecResult{Compiled: true, Correctness: true, Runtime: 3.0}

	if !s.better(slow, fast) {
		t.Fatal("faster correct kernel should win under the score expression")
	}
	if s.better(fast, slow) {
		t.Fatal("slower kernel must not replace a faster one")
	}

	if _, err := NewScorer("compiled +"); err == nil {
		t.Fatal("want parse error for malformed expression")
	}
}

func TestRun_ArtifactsWritten(t *testing.T) {
	dir := t.TempDir()
	gen := &fakeGen{replies: []string{reply("class ModelNew: pass")}}
	ev := &fakeEval{results: []*eval.KernelExecResult{
		{Compiled: true, Correctness: true, Runtime: -1},
	}}
	r := NewRunner(gen, ev, Options{
		ProblemID:   23,
		ProblemName: "23_Softmax.py",
		ScratchDir:  dir,
		SavePrompt:  true,
	})

	res, err := r.Run(context.Background(), refArch)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"model", "model_new", "model_best", "runstate", "prompt_1"} {
		if res.State.Artifacts[name] == "" {
			t.Errorf("artifact %q not recorded", name)
		}
	}

	// The run state file carries the problem identity.
	bs, err := os.ReadFile(res.State.Artifacts["runstate"])
	if err != nil {
		t.Fatal(err)
	}
	var saved RunState
	if err := json.Unmarshal(bs, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.ProblemID != 23 || saved.ProblemName != "23_Softmax.py" {
		t.Fatalf("run state problem = %d %q, want 23 %q", saved.ProblemID, saved.ProblemName, "23_Softmax.py")
	}
}

func TestNewRunner_EvalMeasureFlag(t *testing.T) {
	run := func(opts Options) eval.EvalOptions {
		gen := &fakeGen{replies: []string{reply("class ModelNew: pass")}}
		ev := &fakeEval{}
		if _, err := NewRunner(gen, ev, opts).Run(context.Background(), refArch); err != nil {
			t.Fatal(err)
		}
		return ev.opts[0]
	}

	if got := run(Options{MeasurePerformance: true}); !got.MeasurePerformance {
		t.Fatal("top-level flag should reach the evaluator")
	}
	// A caller who sets the eval option directly must not be clobbered.
	if got := run(Options{Eval: eval.EvalOptions{MeasurePerformance: true}}); !got.MeasurePerformance {
		t.Fatal("eval option set directly should survive NewRunner")
	}
}
