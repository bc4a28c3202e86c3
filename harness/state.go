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
	"time"

	"github.com/google/uuid"

	"github.com/cloudwego/kernelforge/internal/utils"
)

// Action is what a turn asked the model to do.
type Action string

const (
	ActionGenerate       Action = "generate"
	ActionFixCompile     Action = "fix_compile"
	ActionFixCorrectness Action = "fix_correctness"
	ActionImprovePerf    Action = "improve_performance"
	ActionNoop           Action = "noop"
)

// RunState is the serializable record of one experiment run: every turn,
// every artifact path. It is recreated per run; nothing outlives the
// scratch directory.
type RunState struct {
	RunID       string            `json:"run_id"`
	ProblemID   int               `json:"problem_id,omitempty"`
	ProblemName string            `json:"problem_name,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	Turns       []TurnRecord      `json:"turns"`
	Artifacts   map[string]string `json:"artifacts,omitempty"` // name -> path
}

// TurnRecord is an immutable log entry for one turn.
type TurnRecord struct {
	Turn     int       `json:"turn"`
	Action   Action    `json:"action"`
	Compiled bool      `json:"compiled"`
	Correct  bool      `json:"correct"`
	Runtime  float64   `json:"runtime"`
	Err      string    `json:"err,omitempty"`
	Time     time.Time `json:"time"`
}

// NewRunState returns an initial state with a fresh run ID.
func NewRunState() *RunState {
	return &RunState{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Artifacts: make(map[string]string),
	}
}

func (s *RunState) record(rec TurnRecord) {
	rec.Time = time.Now()
	s.Turns = append(s.Turns, rec)
}

// SaveToFile writes an indented JSON snapshot of the run state.
func (s *RunState) SaveToFile(path string) error {
	js, err := utils.MarshalJSONIndent(s)
	if err != nil {
		return err
	}
	return utils.MustWriteFile(path, []byte(js))
}
