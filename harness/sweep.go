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
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"github.com/cloudwego/kernelforge/eval"
	"github.com/cloudwego/kernelforge/internal/log"
	"github.com/cloudwego/kernelforge/kernelbench"
	"github.com/cloudwego/kernelforge/llm"
)

// SweepResult is the outcome of a multi-turn run over one problem.
type SweepResult struct {
	Problem kernelbench.Problem
	Turns   int
	Best    *eval.KernelExecResult
	Err     error
}

// SweepConfig configures a subset sweep.
type SweepConfig struct {
	// Runner options applied per problem; ScratchDir becomes the parent of
	// one subdirectory per problem.
	Options Options
	// Parallel bounds concurrent problems. Defaults to 1, which preserves
	// strictly sequential evaluation.
	Parallel int
	// NewGenerator builds the generator for one worker. A nil factory
	// shares gen across workers, which is only safe with Parallel == 1.
	NewGenerator func() (llm.Generator, error)
	// NewEvaluator builds the evaluator for one worker, same contract.
	NewEvaluator func() (eval.Evaluator, error)
}

// Sweep runs the multi-turn loop over every problem in the level subset and
// returns per-problem results ordered by problem ID. Individual problem
// failures are recorded, not fatal.
func Sweep(ctx context.Context, d *kernelbench.Dataset, level int, gen llm.Generator, ev eval.Evaluator, cfg SweepConfig) ([]SweepResult, error) {
	problems, err := kernelbench.Subset(d, level)
	if err != nil {
		return nil, err
	}
	parallel := cfg.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	var (
		mu      sync.Mutex
		results []SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, p := range problems {
		p := p
		g.Go(func() error {
			wgen, wev, err := cfg.workerPair(gen, ev)
			if err != nil {
				return err
			}
			opts := cfg.Options
			opts.ProblemID = p.ID
			opts.ProblemName = p.Name
			if opts.ScratchDir != "" {
				opts.ScratchDir = filepath.Join(opts.ScratchDir, p.Name)
			}
			runner := NewRunner(wgen, wev, opts)

			sr := SweepResult{Problem: p}
			refArch, err := d.FetchRefArch(p.ID)
			if err != nil {
				sr.Err = err
			} else if run, err := runner.RunMultiTurn(gctx, refArch); err != nil {
				sr.Err = err
			} else {
				sr.Turns = len(run.Attempts)
				sr.Best = resultOf(run.Best)
			}
			if sr.Err != nil {
				log.Warn("sweep problem %d (%s): %v", p.ID, p.Name, sr.Err)
			}

			mu.Lock()
			results = append(results, sr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Problem.ID < results[j].Problem.ID
	})
	return results, nil
}

func (cfg SweepConfig) workerPair(gen llm.Generator, ev eval.Evaluator) (llm.Generator, eval.Evaluator, error) {
	if cfg.NewGenerator != nil {
		g, err := cfg.NewGenerator()
		if err != nil {
			return nil, nil, err
		}
		gen = g
	}
	if cfg.NewEvaluator != nil {
		e, err := cfg.NewEvaluator()
		if err != nil {
			return nil, nil, err
		}
		ev = e
	}
	return gen, ev, nil
}

// WriteReport renders the sweep results as a table plus a summary line.
func WriteReport(w io.Writer, results []SweepResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Problem", "Turns", "Compiled", "Correct", "Runtime (ms)"})

	var compiled, correct int
	for _, r := range results {
		row := []string{
			fmt.Sprintf("%d", r.Problem.ID),
			r.Problem.Name,
			fmt.Sprintf("%d", r.Turns),
			"-", "-", "-",
		}
		if r.Err != nil {
			row[3] = "error"
		} else if r.Best != nil {
			row[3] = fmt.Sprintf("%v", r.Best.Compiled)
			row[4] = fmt.Sprintf("%v", r.Best.Correctness)
			if r.Best.Runtime >= 0 {
				row[5] = fmt.Sprintf("%.3f", r.Best.Runtime)
			}
			if r.Best.Compiled {
				compiled++
			}
			if r.Best.Correctness {
				correct++
			}
		}
		table.Append(row)
	}
	table.Render()
	fmt.Fprintf(w, "total %d, compiled %d, correct %d\n", len(results), compiled, correct)
}
