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

package prompt

import (
	"bytes"
	_ "embed"
	"text/template"
)

// PromptSystem is the system prompt for every kernel-generation call.
const PromptSystem = `You are an expert GPU programmer. You write custom CUDA kernels that replace PyTorch operators while producing bit-compatible outputs.`

//go:embed generate.md
var generateTmplSrc string

//go:embed fix_compile.md
var fixCompileTmplSrc string

//go:embed fix_correctness.md
var fixCorrectnessTmplSrc string

//go:embed improve_perf.md
var improvePerfTmplSrc string

//go:embed examples/model_ex_add.py
var exampleRefAdd string

//go:embed examples/model_new_ex_add.py
var exampleNewAdd string

var (
	generateTmpl       = template.Must(template.New("generate").Parse(generateTmplSrc))
	fixCompileTmpl     = template.Must(template.New("fix_compile").Parse(fixCompileTmplSrc))
	fixCorrectnessTmpl = template.Must(template.New("fix_correctness").Parse(fixCorrectnessTmplSrc))
	improvePerfTmpl    = template.Must(template.New("improve_perf").Parse(improvePerfTmplSrc))
)

// GenerateData feeds the generate template: the target reference
// architecture plus one few-shot example pair.
type GenerateData struct {
	RefArch    string
	ExampleRef string
	ExampleNew string
}

// FixData feeds the fix and improve templates.
type FixData struct {
	RefArch  string
	Kernel   string
	Metadata string
}

func render(tpl *template.Template, data any) Prompt {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		panic(err)
	}
	return TextPrompt(buf.String())
}

// GenerateCustomKernel builds the initial generation prompt for a reference
// architecture, using the embedded element-wise-add few-shot example.
func GenerateCustomKernel(refArch string) Prompt {
	return render(generateTmpl, GenerateData{
		RefArch:    refArch,
		ExampleRef: exampleRefAdd,
		ExampleNew: exampleNewAdd,
	})
}

// FixCompile builds the repair prompt for a kernel that failed to compile.
func FixCompile(refArch, kernel, metadata string) Prompt {
	return render(fixCompileTmpl, FixData{RefArch: refArch, Kernel: kernel, Metadata: metadata})
}

// FixCorrectness builds the repair prompt for a kernel whose outputs
// diverge from the reference.
func FixCorrectness(refArch, kernel, metadata string) Prompt {
	return render(fixCorrectnessTmpl, FixData{RefArch: refArch, Kernel: kernel, Metadata: metadata})
}

// ImprovePerformance builds the optimization prompt for a passing kernel.
func ImprovePerformance(refArch, kernel, metadata string) Prompt {
	return render(improvePerfTmpl, FixData{RefArch: refArch, Kernel: kernel, Metadata: metadata})
}
