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

package eval

import (
	"context"
	"io"
	"os/exec"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/cloudwego/kernelforge/internal/log"
	"github.com/cloudwego/kernelforge/internal/utils"
)

// JSON-RPC methods served by the evaluator worker.
const (
	MethodEval     = "kernel/eval"
	MethodShutdown = "kernel/shutdown"
)

// EvalParams is the kernel/eval request payload.
type EvalParams struct {
	RefArchSrc string      `json:"ref_arch_src"`
	KernelSrc  string      `json:"kernel_src"`
	Options    EvalOptions `json:"options"`
}

// WorkerConfig describes how to launch the evaluator worker process. The
// worker speaks JSON-RPC 2.0 with Content-Length framing on stdio, like a
// language server.
type WorkerConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Env     []string `json:"env,omitempty"`
}

var _ Evaluator = (*WorkerClient)(nil)

// WorkerClient spawns the evaluator worker and forwards Eval calls to it.
type WorkerClient struct {
	cmd  *exec.Cmd
	conn *jsonrpc2.Conn
}

// NewWorkerClient launches the worker process and connects to its stdio.
func NewWorkerClient(ctx context.Context, cfg WorkerConfig) (*WorkerClient, error) {
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.Env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, utils.WrapError(err, "open worker stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, utils.WrapError(err, "open worker stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, utils.WrapErrorf(err, "start evaluator worker %s", cfg.Command)
	}
	log.Info("evaluator worker started: %s (pid %d)", cfg.Command, cmd.Process.Pid)
	return &WorkerClient{
		cmd:  cmd,
		conn: DialStream(ctx, stdioPipe{stdout, stdin}),
	}, nil
}

// DialStream wraps an established read/write stream in a JSON-RPC
// connection. Split out so tests can drive the protocol over an in-memory
// pipe instead of a subprocess.
func DialStream(ctx context.Context, rwc io.ReadWriteCloser) *jsonrpc2.Conn {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	return jsonrpc2.NewConn(ctx, stream, noopHandler{})
}

// Eval implements Evaluator over the worker connection.
func (w *WorkerClient) Eval(ctx context.Context, refArchSrc, kernelSrc string, opts EvalOptions) (*KernelExecResult, error) {
	params := EvalParams{RefArchSrc: refArchSrc, KernelSrc: kernelSrc, Options: opts}
	var res KernelExecResult
	if err := w.conn.Call(ctx, MethodEval, params, &res); err != nil {
		return nil, utils.WrapError(err, "kernel/eval RPC")
	}
	return &res, nil
}

// Close asks the worker to shut down and waits for the process to exit.
func (w *WorkerClient) Close() error {
	_ = w.conn.Notify(context.Background(), MethodShutdown, nil)
	if err := w.conn.Close(); err != nil {
		log.Warn("close evaluator connection: %v", err)
	}
	return w.cmd.Wait()
}

// noopHandler drops server-initiated requests; the worker only answers.
type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	log.Debug("ignoring worker-initiated request: %s", req.Method)
}

// stdioPipe joins the worker's stdout/stdin into one ReadWriteCloser.
type stdioPipe struct {
	io.ReadCloser
	io.WriteCloser
}

func (p stdioPipe) Close() error {
	err := p.WriteCloser.Close()
	if cerr := p.ReadCloser.Close(); err == nil {
		err = cerr
	}
	return err
}
