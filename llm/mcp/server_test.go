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
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	kflog "github.com/cloudwego/kernelforge/internal/log"
	"github.com/cloudwego/kernelforge/llm/tool"
	"github.com/cloudwego/kernelforge/version"

	"github.com/mark3labs/mcp-go/server"
)

func sendAndRecv(t *testing.T, initRequest any, stdinWriter *io.PipeWriter, stdoutReader *io.PipeReader) any {
	requestBytes, err := json.Marshal(initRequest)
	if err != nil {
		t.Fatal(err)
	}
	_, err = stdinWriter.Write(append(requestBytes, '\n'))
	if err != nil {
		t.Fatal(err)
	}

	// Read response
	scanner := bufio.NewScanner(stdoutReader)
	if !scanner.Scan() {
		t.Fatal("failed to read response")
	}
	responseBytes := scanner.Bytes()

	var response any
	if err := json.Unmarshal(responseBytes, &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return response
}

func testBenchDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "level1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	src := "import torch.nn as nn\n\nclass Model(nn.Module):\n    pass\n"
	if err := os.WriteFile(filepath.Join(dir, "23_Softmax.py"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestBenchServer(t *testing.T) {
	kflog.SetLogLevel(kflog.DebugLevel)
	svr := NewServer(ServerOptions{
		ServerName:    "kernelforge",
		ServerVersion: version.Version,
		BenchToolsOptions: tool.BenchToolsOptions{
			BenchDir: testBenchDir(t),
		},
	})

	// Create pipes for stdin and stdout
	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()

	stdioServer := server.NewStdioServer(svr.Server)
	stdioServer.SetErrorLogger(log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrCh := make(chan error, 1)

	go func() {
		err := stdioServer.Listen(ctx, stdinReader, stdoutWriter)
		if err != nil && err != io.EOF && err != context.Canceled {
			serverErrCh <- err
		}
		stdoutWriter.Close()
		close(serverErrCh)
	}()

	time.Sleep(100 * time.Millisecond)

	initRequest := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2024-11-05",
			"clientInfo": map[string]any{
				"name":    "test-client",
				"version": "1.0.0",
			},
		},
	}

	resp := sendAndRecv(t, initRequest, stdinWriter, stdoutReader)
	t.Logf("resp %#v", resp)

	listRequest := map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
		"params":  map[string]any{},
	}
	resp = sendAndRecv(t, listRequest, stdinWriter, stdoutReader)
	body, _ := json.Marshal(resp)
	for _, want := range []string{tool.ToolListLevels, tool.ToolListProblems, tool.ToolGetRefArch} {
		if !strings.Contains(string(body), want) {
			t.Errorf("tools/list missing %q: %s", want, body)
		}
	}

	cancel()
	stdinWriter.Close()

	if err := <-serverErrCh; err != nil {
		t.Errorf("unexpected server error: %v", err)
	}
}
