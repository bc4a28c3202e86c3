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

// Package mcp serves the benchmark suite and the kernel evaluator over the
// Model Context Protocol, so external agents can browse problems and submit
// kernels for evaluation.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudwego/kernelforge/llm/tool"
)

const PromptGenerateKernel = "generate_kernel"

// Tool pairs an MCP tool declaration with its handler.
type Tool struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

type ServerOptions struct {
	ServerName    string
	ServerVersion string
	tool.BenchToolsOptions
}

type Server struct {
	Server *server.MCPServer
}

func NewServer(opts ServerOptions) *Server {
	svr := server.NewMCPServer(
		opts.ServerName,
		opts.ServerVersion,
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	for _, t := range getBenchTools(opts.BenchToolsOptions) {
		svr.AddTool(t.Tool, t.Handler)
	}

	svr.AddPrompt(mcp.NewPrompt(PromptGenerateKernel,
		mcp.WithPromptDescription("build the kernel-generation prompt for a reference architecture"),
		mcp.WithArgument("ref_arch",
			mcp.RequiredArgument(),
			mcp.ArgumentDescription("the reference architecture source code"),
		),
	), handleGenerateKernelPrompt)

	return &Server{Server: svr}
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.Server)
}
