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
	"errors"
	"strings"

	emcp "github.com/cloudwego/eino-ext/components/tool/mcp"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cloudwego/kernelforge/version"
)

type MCPConfig struct {
	Type    MCPType
	Command string
	Args    []string
	Envs    []string
	SSEURL  string
}

type MCPType string

const (
	MCPTypeStdio MCPType = "stdio"
	MCPTypeSSE   MCPType = "sse"
)

// ParseMCPConfig turns a server spec into an MCPConfig: http(s) URLs are
// SSE servers, anything else is a command line for a stdio server.
func ParseMCPConfig(spec string) MCPConfig {
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		return MCPConfig{Type: MCPTypeSSE, SSEURL: spec}
	}
	fields := strings.Fields(spec)
	cfg := MCPConfig{Type: MCPTypeStdio}
	if len(fields) > 0 {
		cfg.Command = fields[0]
		cfg.Args = fields[1:]
	}
	return cfg
}

// MCPClient connects to an external MCP server and exposes its tools as
// agent tools.
type MCPClient struct {
	cli *client.Client
}

func NewMCPClient(opts MCPConfig) (*MCPClient, error) {
	var cli *client.Client
	var err error
	switch opts.Type {
	case MCPTypeStdio:
		if opts.Command == "" {
			return nil, errors.New("command is empty")
		}
		cli, err = client.NewStdioMCPClient(opts.Command, opts.Envs, opts.Args...)
		if err != nil {
			return nil, err
		}

	case MCPTypeSSE:
		if opts.SSEURL == "" {
			return nil, errors.New("sse url is empty")
		}
		cli, err = client.NewSSEMCPClient(opts.SSEURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported mcp type")
	}
	return &MCPClient{
		cli: cli,
	}, nil
}

func (c *MCPClient) Start(ctx context.Context) error {
	if err := c.cli.Start(ctx); err != nil {
		return err
	}
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "kernelforge",
		Version: version.Version,
	}
	_, err := c.cli.Initialize(ctx, initRequest)
	if err != nil {
		return err
	}
	return nil
}

func (c *MCPClient) GetTools(ctx context.Context) ([]Tool, error) {
	mcpTools, err := emcp.GetTools(ctx, &emcp.Config{Cli: c.cli})
	if err != nil {
		return nil, err
	}
	var tools []Tool
	for _, t := range mcpTools {
		tools = append(tools, t)
	}
	return tools, nil
}

func (c *MCPClient) Close() error {
	return c.cli.Close()
}
