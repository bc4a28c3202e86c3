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

// Package eval is the client side of the kernel evaluation harness. The
// harness itself (compile + run against the reference module on a GPU) is an
// external worker process; this package only owns the request/response
// contract and the transport.
package eval

import (
	"context"
	"fmt"
)

// KernelExecResult is the outcome of evaluating one generated kernel against
// its reference architecture. Correctness implies Compiled by construction:
// the worker never runs correctness trials on a kernel that failed to build.
type KernelExecResult struct {
	Compiled     bool               `json:"compiled"`
	Correctness  bool               `json:"correctness"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
	Runtime      float64            `json:"runtime"` // mean runtime in ms; -1 when unmeasured
	RuntimeStats map[string]float64 `json:"runtime_stats,omitempty"`
}

func (r *KernelExecResult) String() string {
	if r == nil {
		return "<no result>"
	}
	status := "compile failed"
	if r.Compiled && r.Correctness {
		status = "correct"
	} else if r.Compiled {
		status = "incorrect"
	}
	if r.Runtime >= 0 {
		return fmt.Sprintf("%s (%.3f ms)", status, r.Runtime)
	}
	return status
}

// ErrorResult wraps an evaluator failure into a not-compiled result with the
// error stringified into metadata, so a broken evaluation never aborts a
// multi-turn run.
func ErrorResult(err error) *KernelExecResult {
	return &KernelExecResult{
		Compiled:    false,
		Correctness: false,
		Runtime:     -1,
		Metadata:    map[string]string{"eval_error": err.Error()},
	}
}

// EvalOptions controls one evaluation request.
type EvalOptions struct {
	MeasurePerformance bool `json:"measure_performance"`
	Verbose            bool `json:"verbose"`
	NumCorrectTrials   int  `json:"num_correct_trials,omitempty"`
	NumPerfTrials      int  `json:"num_perf_trials,omitempty"`
}

// Evaluator evaluates a generated kernel against a reference architecture.
type Evaluator interface {
	Eval(ctx context.Context, refArchSrc, kernelSrc string, opts EvalOptions) (*KernelExecResult, error)
}
