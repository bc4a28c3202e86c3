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
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/cloudwego/kernelforge/eval"
	"github.com/cloudwego/kernelforge/internal/log"
)

// BetterResult reports whether cand should replace best. The default policy
// is lexicographic: any result beats none, compiled beats non-compiled,
// correct beats incorrect; otherwise the incumbent stays. Runtime does not
// break ties here.
func BetterResult(best, cand *eval.KernelExecResult) bool {
	if cand == nil {
		return false
	}
	if best == nil {
		return true
	}
	if cand.Compiled && !best.Compiled {
		return true
	}
	if cand.Correctness && !best.Correctness {
		return true
	}
	return false
}

// Scorer ranks results by a user-supplied govaluate expression over
// {compiled, correctness, runtime}; a higher score wins. It replaces the
// lexicographic policy when configured, e.g.
//
//	(compiled ? 1 : 0) + (correctness ? 10 : 0) - runtime
type Scorer struct {
	src  string
	expr *govaluate.EvaluableExpression
}

func NewScorer(src string) (*Scorer, error) {
	expr, err := govaluate.NewEvaluableExpression(src)
	if err != nil {
		return nil, fmt.Errorf("parse score expression %q: %w", src, err)
	}
	return &Scorer{src: src, expr: expr}, nil
}

// Score evaluates the expression for one result.
func (s *Scorer) Score(res *eval.KernelExecResult) (float64, error) {
	if res == nil {
		return 0, fmt.Errorf("score of nil result")
	}
	out, err := s.expr.Evaluate(map[string]interface{}{
		"compiled":    res.Compiled,
		"correctness": res.Correctness,
		"runtime":     res.Runtime,
	})
	if err != nil {
		return 0, fmt.Errorf("evaluate score expression %q: %w", s.src, err)
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("score expression %q returned %T, want number", s.src, out)
	}
}

// better applies the scorer when present, falling back to the lexicographic
// policy when an expression cannot be evaluated for either side.
func (s *Scorer) better(best, cand *eval.KernelExecResult) bool {
	if cand == nil {
		return false
	}
	if best == nil {
		return true
	}
	cs, err := s.Score(cand)
	if err != nil {
		log.Warn("score candidate: %v", err)
		return BetterResult(best, cand)
	}
	bs, err := s.Score(best)
	if err != nil {
		log.Warn("score incumbent: %v", err)
		return BetterResult(best, cand)
	}
	return cs > bs
}
