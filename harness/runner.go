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

// Package harness drives kernel-generation experiments: prompt the model,
// extract the produced kernel, evaluate it against the reference module, and
// iterate with targeted repair prompts until the turn budget runs out.
package harness

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/kernelforge/codeblock"
	"github.com/cloudwego/kernelforge/eval"
	"github.com/cloudwego/kernelforge/internal/log"
	"github.com/cloudwego/kernelforge/internal/utils"
	"github.com/cloudwego/kernelforge/llm"
	"github.com/cloudwego/kernelforge/llm/prompt"
)

// Options configures a Runner.
type Options struct {
	// ProblemID and ProblemName identify the benchmark problem and are
	// carried into the run state.
	ProblemID   int
	ProblemName string
	// Turns is the total turn budget of a multi-turn run, including the
	// initial generation. Defaults to 10.
	Turns int
	// Lang is the fence tag expected on the model output. Defaults to
	// "python".
	Lang string
	// ScratchDir receives run artifacts (model.py, model_new.py, prompts,
	// runstate.json). Empty means no artifacts are written.
	ScratchDir string
	// SavePrompt also writes each rendered prompt next to the artifacts.
	SavePrompt bool
	// SyntaxCheck parses extracted kernels before submitting them to the
	// evaluator, turning syntax errors into cheap compile failures.
	SyntaxCheck bool
	// OptimizePerf keeps prompting for faster kernels once one passes
	// correctness. Off by default: a passing kernel ends the loop early.
	OptimizePerf bool
	// MeasurePerformance asks the evaluator to time correct kernels.
	MeasurePerformance bool
	// Eval carries per-request evaluator knobs (trial counts, verbosity).
	Eval eval.EvalOptions
	// Score overrides the lexicographic best-result policy.
	Score *Scorer
}

// Attempt is one evaluated kernel candidate.
type Attempt struct {
	Turn   int
	Action Action
	Kernel string
	Result *eval.KernelExecResult
}

// RunResult is the outcome of a (multi-turn) run: every attempt plus the
// best one under the ranking policy.
type RunResult struct {
	State    *RunState
	Attempts []Attempt
	Best     *Attempt
}

// Runner owns one generator/evaluator pair and runs experiments with them.
// It is not safe for concurrent use; Sweep creates one per worker.
type Runner struct {
	gen  llm.Generator
	eval eval.Evaluator
	opts Options
}

func NewRunner(gen llm.Generator, ev eval.Evaluator, opts Options) *Runner {
	if opts.Turns <= 0 {
		opts.Turns = 10
	}
	if opts.Lang == "" {
		opts.Lang = "python"
	}
	if opts.MeasurePerformance {
		opts.Eval.MeasurePerformance = true
	}
	return &Runner{gen: gen, eval: ev, opts: opts}
}

func (r *Runner) newState() *RunState {
	state := NewRunState()
	state.ProblemID = r.opts.ProblemID
	state.ProblemName = r.opts.ProblemName
	return state
}

// ErrNoCodeBlock is returned when the model reply carries no fenced code
// block to extract a kernel from.
var ErrNoCodeBlock = errors.New("model output contains no code block")

// Run performs a single generate-and-evaluate pass over refArch.
func (r *Runner) Run(ctx context.Context, refArch string) (*RunResult, error) {
	state := r.newState()
	att, err := r.turn(ctx, state, refArch, 1, ActionGenerate, prompt.GenerateCustomKernel(refArch))
	if err != nil {
		return nil, err
	}
	res := &RunResult{State: state, Attempts: []Attempt{*att}, Best: att}
	r.saveArtifacts(state, refArch, att, att)
	return res, nil
}

// RunMultiTurn performs the full repair loop: generate once, then spend the
// remaining turn budget fixing compilation, fixing correctness, or (when
// enabled) improving performance. A turn whose reply has no code block or
// whose evaluation errors out keeps the incumbent kernel and moves on; only
// a failed initial generation aborts the run.
func (r *Runner) RunMultiTurn(ctx context.Context, refArch string) (*RunResult, error) {
	state := r.newState()
	cur, err := r.turn(ctx, state, refArch, 1, ActionGenerate, prompt.GenerateCustomKernel(refArch))
	if err != nil {
		return nil, err
	}
	res := &RunResult{State: state, Attempts: []Attempt{*cur}, Best: cur}

	for turn := 2; turn <= r.opts.Turns; turn++ {
		action, p := r.nextAction(refArch, cur)
		if action == ActionNoop {
			log.Info("run %s: kernel passes after turn %d, stopping early", state.RunID, turn-1)
			break
		}
		att, err := r.turn(ctx, state, refArch, turn, action, p)
		if err != nil {
			// Keep iterating from the incumbent; the failure is already
			// recorded in the turn log.
			log.Warn("run %s turn %d (%s): %v", state.RunID, turn, action, err)
			continue
		}
		res.Attempts = append(res.Attempts, *att)
		cur = att
		if r.better(res.Best, att) {
			res.Best = att
		}
	}

	r.saveArtifacts(state, refArch, cur, res.Best)
	return res, nil
}

// nextAction picks the repair prompt for the current attempt.
func (r *Runner) nextAction(refArch string, cur *Attempt) (Action, prompt.Prompt) {
	meta := metadataText(cur.Result)
	switch {
	case !cur.Result.Compiled:
		return ActionFixCompile, prompt.FixCompile(refArch, cur.Kernel, meta)
	case !cur.Result.Correctness:
		return ActionFixCorrectness, prompt.FixCorrectness(refArch, cur.Kernel, meta)
	case r.opts.OptimizePerf:
		return ActionImprovePerf, prompt.ImprovePerformance(refArch, cur.Kernel, runtimeText(cur.Result))
	default:
		return ActionNoop, nil
	}
}

// turn runs one prompt through the model and evaluates the extracted kernel.
func (r *Runner) turn(ctx context.Context, state *RunState, refArch string, n int, action Action, p prompt.Prompt) (*Attempt, error) {
	input := p.String()
	if r.opts.SavePrompt && r.opts.ScratchDir != "" {
		path := filepath.Join(r.opts.ScratchDir, fmt.Sprintf("prompt_%d.txt", n))
		if err := utils.MustWriteFile(path, []byte(input)); err != nil {
			log.Warn("save prompt: %v", err)
		} else {
			state.Artifacts[fmt.Sprintf("prompt_%d", n)] = path
		}
	}

	raw, err := r.gen.Call(ctx, input)
	if err != nil {
		state.record(TurnRecord{Turn: n, Action: action, Runtime: -1, Err: err.Error()})
		return nil, utils.WrapErrorf(err, "turn %d (%s): model call failed", n, action)
	}

	kernel := codeblock.ExtractFirstCode(raw, r.opts.Lang)
	if kernel == "" {
		state.record(TurnRecord{Turn: n, Action: action, Runtime: -1, Err: ErrNoCodeBlock.Error()})
		return nil, utils.WrapErrorf(ErrNoCodeBlock, "turn %d (%s)", n, action)
	}

	result := r.evaluate(ctx, refArch, kernel)
	state.record(TurnRecord{
		Turn:     n,
		Action:   action,
		Compiled: result.Compiled,
		Correct:  result.Correctness,
		Runtime:  result.Runtime,
	})
	log.Info("run %s turn %d (%s): %s", state.RunID, n, action, result)
	return &Attempt{Turn: n, Action: action, Kernel: kernel, Result: result}, nil
}

// evaluate runs the syntax pre-check and the external evaluator. It always
// returns a result: evaluator failures are folded into metadata so the
// repair loop can feed them back to the model.
func (r *Runner) evaluate(ctx context.Context, refArch, kernel string) *eval.KernelExecResult {
	if r.opts.SyntaxCheck {
		if err := codeblock.CheckPython(ctx, kernel); err != nil {
			return &eval.KernelExecResult{
				Runtime:  -1,
				Metadata: map[string]string{"syntax_error": err.Error()},
			}
		}
	}
	res, err := r.eval.Eval(ctx, refArch, kernel, r.opts.Eval)
	if err != nil {
		return eval.ErrorResult(err)
	}
	if res == nil {
		return eval.ErrorResult(errors.New("evaluator returned no result"))
	}
	return res
}

func (r *Runner) better(best, cand *Attempt) bool {
	if r.opts.Score != nil {
		return r.opts.Score.better(resultOf(best), resultOf(cand))
	}
	return BetterResult(resultOf(best), resultOf(cand))
}

func resultOf(a *Attempt) *eval.KernelExecResult {
	if a == nil {
		return nil
	}
	return a.Result
}

// saveArtifacts writes the reference module, the last and best kernels, and
// the run state into the scratch directory.
func (r *Runner) saveArtifacts(state *RunState, refArch string, last, best *Attempt) {
	if r.opts.ScratchDir == "" {
		return
	}
	files := map[string]string{
		"model.py": refArch,
	}
	if last != nil {
		files["model_new.py"] = last.Kernel
	}
	if best != nil {
		files["model_best.py"] = best.Kernel
	}
	for name, content := range files {
		path := filepath.Join(r.opts.ScratchDir, name)
		if err := utils.MustWriteFile(path, []byte(content)); err != nil {
			log.Warn("save artifact %s: %v", name, err)
			continue
		}
		state.Artifacts[strings.TrimSuffix(name, filepath.Ext(name))] = path
	}
	statePath := filepath.Join(r.opts.ScratchDir, "runstate.json")
	if err := state.SaveToFile(statePath); err != nil {
		log.Warn("save run state: %v", err)
	} else {
		state.Artifacts["runstate"] = statePath
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func metadataText(res *eval.KernelExecResult) string {
	if res == nil || len(res.Metadata) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, k := range sortedKeys(res.Metadata) {
		fmt.Fprintf(&sb, "%s: %s\n", k, res.Metadata[k])
	}
	return sb.String()
}

func runtimeText(res *eval.KernelExecResult) string {
	if res == nil {
		return ""
	}
	var sb strings.Builder
	if res.Runtime >= 0 {
		fmt.Fprintf(&sb, "mean runtime: %.3f ms\n", res.Runtime)
	}
	for _, k := range sortedKeys(res.RuntimeStats) {
		fmt.Fprintf(&sb, "%s: %.3f\n", k, res.RuntimeStats[k])
	}
	return sb.String()
}
