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
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/cloudwego/kernelforge/eval"
	kfutil "github.com/cloudwego/kernelforge/internal/utils"
	"github.com/cloudwego/kernelforge/kernelbench"
)

const (
	ToolListLevels   = "list_levels"
	DescListLevels   = "list the available benchmark levels (problem directories)"
	ToolListProblems = "list_problems"
	DescListProblems = "list the problems of one benchmark level, sorted by problem id"
	ToolGetRefArch   = "get_ref_arch"
	DescGetRefArch   = "get the reference architecture source of one problem"
	ToolEvalKernel   = "eval_kernel"
	DescEvalKernel   = "compile and evaluate a candidate kernel against the reference architecture of a problem"
)

var (
	SchemaListLevels   = GetJSONSchema(ListLevelsReq{})
	SchemaListProblems = GetJSONSchema(ListProblemsReq{})
	SchemaGetRefArch   = GetJSONSchema(GetRefArchReq{})
	SchemaEvalKernel   = GetJSONSchema(EvalKernelReq{})
)

type BenchToolsOptions struct {
	// BenchDir is the root of the problem suite, one subdirectory per level.
	BenchDir string
	// Evaluator backs the eval_kernel tool; nil disables it.
	Evaluator eval.Evaluator
	// EvalOptions is applied to every eval_kernel request.
	EvalOptions eval.EvalOptions
}

// BenchTools exposes the problem suite and the evaluator as agent tools.
type BenchTools struct {
	opts     BenchToolsOptions
	registry *kernelbench.Registry
	tools    map[string]tool.InvokableTool
}

func NewBenchTools(opts BenchToolsOptions) *BenchTools {
	ret := &BenchTools{
		opts:  opts,
		tools: map[string]tool.InvokableTool{},
	}

	// index all level directories (strict: an unreadable suite panics)
	registry, err := kernelbench.NewRegistry(opts.BenchDir)
	if err != nil {
		panic("load benchmark suite failed: " + err.Error())
	}
	ret.registry = registry

	tt, err := utils.InferTool(ToolListLevels,
		DescListLevels,
		ret.ListLevels, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return kfutil.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolListLevels] = tt

	tt, err = utils.InferTool(ToolListProblems,
		DescListProblems,
		ret.ListProblems, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return kfutil.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolListProblems] = tt

	tt, err = utils.InferTool(ToolGetRefArch,
		DescGetRefArch,
		ret.GetRefArch, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return kfutil.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolGetRefArch] = tt

	if opts.Evaluator != nil {
		tt, err = utils.InferTool(ToolEvalKernel,
			DescEvalKernel,
			ret.EvalKernel, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
				return kfutil.MarshalJSONIndent(output)
			}))
		if err != nil {
			panic(err)
		}
		ret.tools[ToolEvalKernel] = tt
	}

	return ret
}

func (t *BenchTools) GetTools() []Tool {
	ret := make([]Tool, 0, len(t.tools))
	for _, tt := range t.tools {
		ret = append(ret, tt)
	}
	return ret
}

func (t *BenchTools) GetTool(name string) Tool {
	return t.tools[name]
}

type ListLevelsReq struct {
}

type ListLevelsResp struct {
	Levels []string `json:"levels" jsonschema:"description=the names of the benchmark levels"`
}

func (t *BenchTools) ListLevels(ctx context.Context, req ListLevelsReq) (*ListLevelsResp, error) {
	return &ListLevelsResp{Levels: t.registry.Levels()}, nil
}

type ListProblemsReq struct {
	Level string `json:"level" jsonschema:"description=the name of the benchmark level"`
}

type ListProblemsResp struct {
	Problems []kernelbench.Problem `json:"problems" jsonschema:"description=the problems of the level sorted by id"`
	Error    string                `json:"error,omitempty" jsonschema:"description=the error message"`
}

func (t *BenchTools) ListProblems(ctx context.Context, req ListProblemsReq) (*ListProblemsResp, error) {
	d, ok := t.registry.Dataset(req.Level)
	if !ok {
		return &ListProblemsResp{Error: fmt.Sprintf("level %s not found", req.Level)}, nil
	}
	return &ListProblemsResp{Problems: d.Problems()}, nil
}

type GetRefArchReq struct {
	Level     string `json:"level" jsonschema:"description=the name of the benchmark level"`
	ProblemID int    `json:"problem_id" jsonschema:"description=the integer id of the problem"`
}

type GetRefArchResp struct {
	Source string `json:"source,omitempty" jsonschema:"description=the reference architecture source"`
	Error  string `json:"error,omitempty" jsonschema:"description=the error message"`
}

func (t *BenchTools) GetRefArch(ctx context.Context, req GetRefArchReq) (*GetRefArchResp, error) {
	d, ok := t.registry.Dataset(req.Level)
	if !ok {
		return &GetRefArchResp{Error: fmt.Sprintf("level %s not found", req.Level)}, nil
	}
	src, err := d.FetchRefArch(req.ProblemID)
	if err != nil {
		return &GetRefArchResp{Error: err.Error()}, nil
	}
	return &GetRefArchResp{Source: src}, nil
}

type EvalKernelReq struct {
	Level     string `json:"level" jsonschema:"description=the name of the benchmark level"`
	ProblemID int    `json:"problem_id" jsonschema:"description=the integer id of the problem"`
	Kernel    string `json:"kernel" jsonschema:"description=the candidate kernel source to evaluate"`
}

type EvalKernelResp struct {
	Result *eval.KernelExecResult `json:"result,omitempty" jsonschema:"description=the evaluation result"`
	Error  string                 `json:"error,omitempty" jsonschema:"description=the error message"`
}

func (t *BenchTools) EvalKernel(ctx context.Context, req EvalKernelReq) (*EvalKernelResp, error) {
	d, ok := t.registry.Dataset(req.Level)
	if !ok {
		return &EvalKernelResp{Error: fmt.Sprintf("level %s not found", req.Level)}, nil
	}
	refArch, err := d.FetchRefArch(req.ProblemID)
	if err != nil {
		return &EvalKernelResp{Error: err.Error()}, nil
	}
	res, err := t.opts.Evaluator.Eval(ctx, refArch, req.Kernel, t.opts.EvalOptions)
	if err != nil {
		return &EvalKernelResp{Result: eval.ErrorResult(err)}, nil
	}
	return &EvalKernelResp{Result: res}, nil
}
