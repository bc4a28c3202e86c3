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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"

	"github.com/cloudwego/kernelforge/eval"
	"github.com/cloudwego/kernelforge/harness"
	"github.com/cloudwego/kernelforge/internal/log"
	"github.com/cloudwego/kernelforge/kernelbench"
	"github.com/cloudwego/kernelforge/llm"
	"github.com/cloudwego/kernelforge/llm/mcp"
	"github.com/cloudwego/kernelforge/llm/prompt"
	"github.com/cloudwego/kernelforge/llm/tool"
	"github.com/cloudwego/kernelforge/version"
)

const Usage = `kernelforge <Action> <Path> [Flags]
Action:
   run          generate and evaluate one kernel for a single problem (Path = benchmark root directory)
   multiturn    run the multi-turn generate/repair loop for a single problem
   sweep        run the multi-turn loop over the curated subset of one level
   mcp          run as a MCP server exposing the benchmark suite and the evaluator
   version      print the version of kernelforge
Model configuration comes from the environment:
   API_TYPE     openai | claude | gemini | together | deepseek | sglang | ollama | ark | dashscope
   API_KEY      the API key (falls back to the provider-specific env var)
   MODEL_NAME   the model name (falls back to the provider default)
   BASE_URL     override the provider base URL
`

func main() {
	flags := flag.NewFlagSet("kernelforge", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose mode.")
	flagOutput := flags.String("o", "", "Scratch directory for run artifacts.")
	flagConfig := flags.String("config", "", "JSON config file with model and eval_worker settings.")
	flagModelType := flags.String("model-type", "", "Model provider, overrides env API_TYPE.")
	flagModel := flags.String("model", "", "Model name, overrides env MODEL_NAME.")
	flagBaseURL := flags.String("base-url", "", "Provider base URL, overrides env BASE_URL.")
	flagTemperature := flags.Float64("temperature", -1, "Sampling temperature (-1 = provider default).")
	flagMaxTokens := flags.Int("max-tokens", 0, "Max completion tokens (0 = provider default).")
	flagLevel := flags.String("level", "level1", "Benchmark level (problem subdirectory name).")
	flagProblem := flags.Int("problem", 0, "Problem id within the level.")
	flagTurns := flags.Int("turns", 10, "Total turn budget of a multi-turn run.")
	flagAgent := flags.Bool("agent", false, "Use a tool-calling agent instead of a plain chat call.")
	flagAgentMaxStep := flags.Int("agent-max-steps", 20, "Max steps the agent can take per call.")
	flagSavePrompt := flags.Bool("save-prompt", false, "Save each rendered prompt into the scratch directory.")
	flagSyntaxCheck := flags.Bool("syntax-check", true, "Parse extracted kernels before evaluating them.")
	flagOptimize := flags.Bool("optimize-perf", false, "Keep prompting for faster kernels after one passes.")
	flagMeasure := flags.Bool("measure-perf", false, "Ask the evaluator to time correct kernels.")
	flagScore := flags.String("score", "", "Ranking expression over {compiled, correctness, runtime}.")
	flagParallel := flags.Int("parallel", 1, "Concurrent problems during sweep.")
	flagReport := flags.String("report", "", "Write the sweep report to a file instead of stdout.")

	var eopts eval.EvalOptions
	flags.IntVar(&eopts.NumCorrectTrials, "correct-trials", 0, "Correctness trials per evaluation (0 = worker default).")
	flags.IntVar(&eopts.NumPerfTrials, "perf-trials", 0, "Performance trials per evaluation (0 = worker default).")

	var workerCmd string
	flags.StringVar(&workerCmd, "eval-worker", "", "Evaluation worker command to spawn.")
	var workerArgs StringArray
	flags.Var(&workerArgs, "eval-arg", "Argument for the evaluation worker, support multiple values.")
	var mcpTools StringArray
	flags.Var(&mcpTools, "mcp-tool", "External MCP tool server for the agent, a SSE URL or a stdio command line, support multiple values.")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(1)
	}
	action := strings.ToLower(os.Args[1])
	ctx := context.Background()

	switch action {
	case "version":
		fmt.Fprintf(os.Stdout, "%s\n", version.Version)

	case "run", "multiturn":
		uri := parseArgsAndFlags(flags, flagHelp, flagVerbose)
		if *flagProblem <= 0 {
			log.Error("flag -problem is required\n")
			os.Exit(1)
		}
		eopts.Verbose = *flagVerbose
		conf := loadConfig(*flagConfig)
		mcfg := resolveModelConfig(conf.Model, *flagModelType, *flagModel, *flagBaseURL, *flagTemperature, *flagMaxTokens)

		refArch, problemName := loadRefArch(uri, *flagLevel, *flagProblem)
		ev := newEvaluator(ctx, workerCmd, workerArgs, conf.EvalWorker)
		defer ev.Close()
		gen := newGenerator(ctx, mcfg, uri, ev, eopts, *flagAgent, *flagAgentMaxStep, mcpTools)

		runner := harness.NewRunner(gen, ev, harness.Options{
			ProblemID:          *flagProblem,
			ProblemName:        problemName,
			Turns:              *flagTurns,
			ScratchDir:         *flagOutput,
			SavePrompt:         *flagSavePrompt,
			SyntaxCheck:        *flagSyntaxCheck,
			OptimizePerf:       *flagOptimize,
			MeasurePerformance: *flagMeasure,
			Eval:               eopts,
			Score:              newScorer(*flagScore),
		})

		var res *harness.RunResult
		var err error
		if action == "run" {
			res, err = runner.Run(ctx, refArch)
		} else {
			res, err = runner.RunMultiTurn(ctx, refArch)
		}
		if err != nil {
			log.Error("Failed to run: %v\n", err)
			os.Exit(1)
		}
		log.Info("run %s finished after %d attempt(s): %s\n", res.State.RunID, len(res.Attempts), res.Best.Result)
		if *flagOutput == "" {
			fmt.Fprintf(os.Stdout, "%s\n", res.Best.Kernel)
		}

	case "sweep":
		uri := parseArgsAndFlags(flags, flagHelp, flagVerbose)
		eopts.Verbose = *flagVerbose
		conf := loadConfig(*flagConfig)
		mcfg := resolveModelConfig(conf.Model, *flagModelType, *flagModel, *flagBaseURL, *flagTemperature, *flagMaxTokens)

		levelNum, err := strconv.Atoi(strings.TrimPrefix(*flagLevel, "level"))
		if err != nil {
			log.Error("flag -level must name a numbered level (level1..level3): %v\n", err)
			os.Exit(1)
		}
		d := loadDataset(uri, *flagLevel)
		ev := newEvaluator(ctx, workerCmd, workerArgs, conf.EvalWorker)
		defer ev.Close()
		gen := newGenerator(ctx, mcfg, uri, ev, eopts, *flagAgent, *flagAgentMaxStep, mcpTools)

		results, err := harness.Sweep(ctx, d, levelNum, gen, ev, harness.SweepConfig{
			Parallel: *flagParallel,
			Options: harness.Options{
				Turns:              *flagTurns,
				ScratchDir:         *flagOutput,
				SavePrompt:         *flagSavePrompt,
				SyntaxCheck:        *flagSyntaxCheck,
				OptimizePerf:       *flagOptimize,
				MeasurePerformance: *flagMeasure,
				Eval:               eopts,
				Score:              newScorer(*flagScore),
			},
		})
		if err != nil {
			log.Error("Failed to sweep: %v\n", err)
			os.Exit(1)
		}

		out := os.Stdout
		if *flagReport != "" {
			f, err := os.Create(*flagReport)
			if err != nil {
				log.Error("Failed to create report file: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			out = f
		}
		harness.WriteReport(out, results)

	case "mcp":
		uri := parseArgsAndFlags(flags, flagHelp, flagVerbose)
		conf := loadConfig(*flagConfig)

		var ev eval.Evaluator
		if workerCmd != "" || conf.EvalWorker.Command != "" {
			wc := newEvaluator(ctx, workerCmd, workerArgs, conf.EvalWorker)
			defer wc.Close()
			ev = wc
		}
		svr := mcp.NewServer(mcp.ServerOptions{
			ServerName:    "kernelforge",
			ServerVersion: version.Version,
			BenchToolsOptions: tool.BenchToolsOptions{
				BenchDir:    uri,
				Evaluator:   ev,
				EvalOptions: eopts,
			},
		})
		if err := svr.ServeStdio(); err != nil {
			log.Error("Failed to run MCP server: %v\n", err)
			os.Exit(1)
		}

	default:
		flags.Usage()
		os.Exit(1)
	}
}

func parseArgsAndFlags(flags *flag.FlagSet, flagHelp *bool, flagVerbose *bool) (uri string) {
	if len(os.Args) < 3 {
		flags.Usage()
		os.Exit(1)
	}
	uri = os.Args[2]
	if len(os.Args) > 3 {
		flags.Parse(os.Args[3:])
	}

	if flagHelp != nil && *flagHelp {
		flags.Usage()
		os.Exit(0)
	}

	if flagVerbose != nil && *flagVerbose {
		log.SetLogLevel(log.DebugLevel)
	}

	return uri
}

func loadDataset(root, level string) *kernelbench.Dataset {
	registry, err := kernelbench.NewRegistry(root)
	if err != nil {
		log.Error("Failed to index benchmark suite: %v\n", err)
		os.Exit(1)
	}
	d, ok := registry.Dataset(level)
	if !ok {
		log.Error("level %s not found under %s (have: %v)\n", level, root, registry.Levels())
		os.Exit(1)
	}
	return d
}

func loadRefArch(root, level string, problem int) (refArch, name string) {
	d := loadDataset(root, level)
	p, ok := d.Lookup(problem)
	if !ok {
		log.Error("problem %d not found in %s\n", problem, level)
		os.Exit(1)
	}
	refArch, err := d.FetchRefArch(problem)
	if err != nil {
		log.Error("Failed to load problem: %v\n", err)
		os.Exit(1)
	}
	return refArch, p.Name
}

// Config is the optional JSON config file (-config).
type Config struct {
	Model      llm.ModelConfig   `json:"model"`
	EvalWorker eval.WorkerConfig `json:"eval_worker"`
}

func loadConfig(path string) Config {
	var c Config
	if path == "" {
		return c
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		log.Error("Failed to read config file: %v\n", err)
		os.Exit(1)
	}
	if err := json.Unmarshal(bs, &c); err != nil {
		log.Error("Failed to parse config file %s: %v\n", path, err)
		os.Exit(1)
	}
	return c
}

// resolveModelConfig layers provider defaults, the config file, environment
// variables and flags, in increasing precedence.
func resolveModelConfig(file llm.ModelConfig, mtype, mname, burl string, temp float64, maxTokens int) llm.ModelConfig {
	apiType := llm.NewModelType(mtype)
	if apiType == llm.ModelTypeUnknown {
		apiType = file.APIType
	}
	if apiType == llm.ModelTypeUnknown {
		apiType = llm.NewModelType(os.Getenv("API_TYPE"))
	}
	if apiType == llm.ModelTypeUnknown {
		log.Error("model provider is required (flag -model-type, config file, or env API_TYPE)\n")
		os.Exit(1)
	}

	cfg := llm.DefaultModelConfig(apiType)
	if file.ModelName != "" {
		cfg.ModelName = file.ModelName
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.Temperature != nil {
		cfg.Temperature = file.Temperature
	}
	if file.TopP != nil {
		cfg.TopP = file.TopP
	}
	if file.MaxTokens != 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.Timeout != 0 {
		cfg.Timeout = file.Timeout
	}
	if file.Retries != 0 {
		cfg.Retries = file.Retries
	}

	if name := os.Getenv("MODEL_NAME"); name != "" {
		cfg.ModelName = name
	}
	if key := os.Getenv("API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if base := os.Getenv("BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	if cfg.APIKey == "" {
		cfg.APIKey = cfg.APIKeyFromEnv()
	}

	if mname != "" {
		cfg.ModelName = mname
	}
	if burl != "" {
		cfg.BaseURL = burl
	}
	if temp >= 0 {
		t := float32(temp)
		cfg.Temperature = &t
	}
	if maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}
	return cfg
}

// newGenerator builds either a plain chat client or a tool-calling agent
// that can browse the problem suite, self-evaluate kernels, and call any
// extra MCP tool servers.
func newGenerator(ctx context.Context, cfg llm.ModelConfig, benchDir string, ev eval.Evaluator, eopts eval.EvalOptions, agent bool, maxStep int, mcpSpecs []string) llm.Generator {
	model := llm.NewChatModel(cfg)
	if !agent {
		return llm.NewClient(model, llm.ClientOptions{})
	}

	bench := tool.NewBenchTools(tool.BenchToolsOptions{
		BenchDir:    benchDir,
		Evaluator:   ev,
		EvalOptions: eopts,
	})
	tools := bench.GetTools()
	for _, spec := range mcpSpecs {
		cli, err := tool.NewMCPClient(tool.ParseMCPConfig(spec))
		if err != nil {
			log.Error("Invalid MCP server %q: %v\n", spec, err)
			os.Exit(1)
		}
		if err := cli.Start(ctx); err != nil {
			log.Error("Failed to connect MCP server %q: %v\n", spec, err)
			os.Exit(1)
		}
		ts, err := cli.GetTools(ctx)
		if err != nil {
			log.Error("Failed to list tools of MCP server %q: %v\n", spec, err)
			os.Exit(1)
		}
		tools = append(tools, ts...)
	}

	return llm.NewReactAgent("kernel-generator", llm.ReactAgentOptions{
		SysPrompt: prompt.NewTextPrompt(prompt.PromptSystem),
		AgentConfig: &react.AgentConfig{
			ToolCallingModel: model,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: tools,
			},
			MaxStep: maxStep,
		},
	})
}

func newEvaluator(ctx context.Context, cmd string, args []string, file eval.WorkerConfig) *eval.WorkerClient {
	cfg := file
	if cmd != "" {
		cfg.Command = cmd
		cfg.Args = args
	}
	if cfg.Command == "" {
		log.Error("flag -eval-worker (or eval_worker in the config file) is required\n")
		os.Exit(1)
	}
	ev, err := eval.NewWorkerClient(ctx, cfg)
	if err != nil {
		log.Error("Failed to start evaluation worker: %v\n", err)
		os.Exit(1)
	}
	return ev
}

func newScorer(expr string) *harness.Scorer {
	if expr == "" {
		return nil
	}
	s, err := harness.NewScorer(expr)
	if err != nil {
		log.Error("Invalid score expression: %v\n", err)
		os.Exit(1)
	}
	return s
}

type StringArray []string

func (s *StringArray) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func (s *StringArray) String() string {
	return strings.Join(*s, ",")
}
