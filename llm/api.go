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

package llm

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
)

type ModelConfig struct {
	Name        string        `json:"name"` // alias of the config, not endpoint!
	APIType     ModelType     `json:"type"`
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	ModelName   string        `json:"model_name"` // the endpoint of the model, like `gemini-1.5-flash`
	Temperature *float32      `json:"temperature"`
	TopP        *float32      `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"` // HTTP request timeout, default: 600s
	Retries     int           `json:"retries"` // Number of retries on failure, default: 3
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "claude", "anthropic":
		return ModelTypeClaude
	case "gemini", "google":
		return ModelTypeGemini
	case "together":
		return ModelTypeTogether
	case "deepseek":
		return ModelTypeDeepSeek
	case "sglang":
		return ModelTypeSGLang
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeGemini    ModelType = "gemini"
	ModelTypeTogether  ModelType = "together"
	ModelTypeDeepSeek  ModelType = "deepseek"
	ModelTypeSGLang    ModelType = "sglang" // local OpenAI-compatible deployment
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeDashScope ModelType = "dashscope"
)

// apiKeyEnvs maps a provider to the environment variable consulted when
// ModelConfig.APIKey is empty.
var apiKeyEnvs = map[ModelType]string{
	ModelTypeOpenAI:    "OPENAI_API_KEY",
	ModelTypeClaude:    "ANTHROPIC_API_KEY",
	ModelTypeGemini:    "GEMINI_API_KEY",
	ModelTypeTogether:  "TOGETHER_API_KEY",
	ModelTypeDeepSeek:  "DEEPSEEK_API_KEY",
	ModelTypeSGLang:    "SGLANG_API_KEY",
	ModelTypeARK:       "ARK_API_KEY",
	ModelTypeDashScope: "DASHSCOPE_API_KEY",
}

// APIKeyFromEnv returns the configured key, falling back to the provider's
// environment variable.
func (m ModelConfig) APIKeyFromEnv() string {
	if m.APIKey != "" {
		return m.APIKey
	}
	if env, ok := apiKeyEnvs[m.APIType]; ok {
		return os.Getenv(env)
	}
	return ""
}

// DefaultModelConfig returns the per-provider defaults used when no config
// file overrides them (model endpoint, temperature, token budget).
func DefaultModelConfig(t ModelType) ModelConfig {
	m := ModelConfig{APIType: t, MaxTokens: 4096}
	switch t {
	case ModelTypeOpenAI:
		m.ModelName = "gpt-4o"
	case ModelTypeClaude:
		m.ModelName = "claude-3-5-sonnet-20240620"
	case ModelTypeGemini:
		m.ModelName = "gemini-1.5-flash"
	case ModelTypeTogether:
		m.ModelName = "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo"
		m.Temperature = float32ptr(0.7)
	case ModelTypeDeepSeek:
		m.ModelName = "deepseek-coder"
		m.Temperature = float32ptr(1.6)
	case ModelTypeSGLang:
		m.ModelName = "default"
		m.Temperature = float32ptr(0.7)
	case ModelTypeOllama:
		m.ModelName = "llama3"
		m.BaseURL = "http://localhost:11434"
	}
	return m
}

func float32ptr(f float32) *float32 { return &f }

// Generator is the interface for calling
type Generator interface {
	// Call calls the LLM with the input.
	Call(ctx context.Context, input string) (string, error)
}

// ChatModel is the interface for making LLM backend.
type ChatModel interface {
	model.ToolCallingChatModel
}
