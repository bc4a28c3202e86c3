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

package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cloudwego/kernelforge/internal/utils"
	"github.com/cloudwego/kernelforge/llm/prompt"
	"github.com/cloudwego/kernelforge/llm/tool"
)

func NewTool[R any, T any](name string, desc string, schema json.RawMessage, handler func(ctx context.Context, req R) (*T, error)) Tool {
	return Tool{
		Tool: mcp.NewToolWithRawSchema(name, desc, schema),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var req R
			if err := request.BindArguments(&req); err != nil {
				return nil, err
			}
			var final string
			var isError bool
			if resp, err := handler(ctx, req); err != nil {
				isError = true
				final = err.Error()
			} else if js, err := utils.MarshalJSONBytes(resp); err != nil {
				isError = true
				final = err.Error()
			} else {
				final = string(js)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(final),
				},
				IsError: isError,
			}, nil
		},
	}
}

func getBenchTools(opts tool.BenchToolsOptions) []Tool {
	bench := tool.NewBenchTools(opts)
	tools := []Tool{
		NewTool(tool.ToolListLevels, tool.DescListLevels, tool.SchemaListLevels, bench.ListLevels),
		NewTool(tool.ToolListProblems, tool.DescListProblems, tool.SchemaListProblems, bench.ListProblems),
		NewTool(tool.ToolGetRefArch, tool.DescGetRefArch, tool.SchemaGetRefArch, bench.GetRefArch),
	}
	if opts.Evaluator != nil {
		tools = append(tools, NewTool(tool.ToolEvalKernel, tool.DescEvalKernel, tool.SchemaEvalKernel, bench.EvalKernel))
	}
	return tools
}

func handleGenerateKernelPrompt(
	ctx context.Context,
	request mcp.GetPromptRequest,
) (*mcp.GetPromptResult, error) {
	refArch := request.Params.Arguments["ref_arch"]
	if refArch == "" {
		return nil, errors.New("missing required argument ref_arch")
	}
	return &mcp.GetPromptResult{
		Description: "A prompt for generating a custom kernel for a reference architecture",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: prompt.GenerateCustomKernel(refArch).String(),
				},
			},
		},
	}, nil
}
