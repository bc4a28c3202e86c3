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
	"reflect"
	"testing"
)

func TestParseMCPConfig(t *testing.T) {
	tests := []struct {
		spec string
		want MCPConfig
	}{
		{
			spec: "http://localhost:3001/sse",
			want: MCPConfig{Type: MCPTypeSSE, SSEURL: "http://localhost:3001/sse"},
		},
		{
			spec: "https://tools.example.com/sse",
			want: MCPConfig{Type: MCPTypeSSE, SSEURL: "https://tools.example.com/sse"},
		},
		{
			spec: "npx -y @modelcontextprotocol/server-filesystem /tmp",
			want: MCPConfig{Type: MCPTypeStdio, Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"}},
		},
		{
			spec: "my-server",
			want: MCPConfig{Type: MCPTypeStdio, Command: "my-server"},
		},
		{
			spec: "",
			want: MCPConfig{Type: MCPTypeStdio},
		},
	}
	for _, tt := range tests {
		got := ParseMCPConfig(tt.spec)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseMCPConfig(%q) = %+v, want %+v", tt.spec, got, tt.want)
		}
	}
}

func TestNewMCPClient_InvalidConfig(t *testing.T) {
	if _, err := NewMCPClient(MCPConfig{Type: MCPTypeStdio}); err == nil {
		t.Error("want error for stdio config without a command")
	}
	if _, err := NewMCPClient(MCPConfig{Type: MCPTypeSSE}); err == nil {
		t.Error("want error for sse config without a URL")
	}
	if _, err := NewMCPClient(MCPConfig{Type: "pipe"}); err == nil {
		t.Error("want error for unsupported server type")
	}
}
