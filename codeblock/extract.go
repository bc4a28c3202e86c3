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

// Package codeblock extracts code from LLM chat output. Model replies fence
// code with triple backticks, sometimes with a language tag, sometimes not;
// extraction must tolerate both.
package codeblock

import (
	"regexp"
	"strings"
)

var firstBlockRE = regexp.MustCompile("(?s)```(.*?)```")

// ExtractFirstCode returns the content of the first fenced code block in
// output, with a leading language tag stripped when it matches lang.
// Returns "" when output contains no fenced block.
func ExtractFirstCode(output string, lang string) string {
	trimmed := strings.TrimSpace(output)
	m := firstBlockRE.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	code := strings.TrimSpace(m[1])
	return RemoveCodeBlockHeader(code, lang)
}

// ExtractCodeBlocks returns all ```<lang> fenced blocks joined by newlines.
func ExtractCodeBlocks(output string, lang string) string {
	re := regexp.MustCompile("(?s)```" + regexp.QuoteMeta(lang) + "\n(.*?)```")
	matches := re.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return ""
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, strings.TrimSpace(m[1]))
	}
	return strings.Join(parts, "\n")
}

// RemoveCodeBlockHeader strips a leading language tag ("python", "cpp", ...)
// left over from a fence like ```python.
func RemoveCodeBlockHeader(code string, lang string) string {
	if strings.HasPrefix(code, lang) {
		return strings.TrimSpace(code[len(lang):])
	}
	return code
}
