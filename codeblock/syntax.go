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

package codeblock

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SyntaxError reports the first parse error found in a generated kernel.
// Row and Column are zero-based.
type SyntaxError struct {
	Row     uint32
	Column  uint32
	Snippet string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("python syntax error at line %d, column %d: %q", e.Row+1, e.Column+1, e.Snippet)
}

// CheckPython parses source with the tree-sitter Python grammar and returns
// a *SyntaxError for the first ERROR or MISSING node. A truncated or mangled
// extraction is caught here instead of costing an evaluator round trip.
func CheckPython(ctx context.Context, source string) error {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, []byte(source))
	if err != nil {
		return err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	if bad := firstErrorNode(root); bad != nil {
		pt := bad.StartPoint()
		return &SyntaxError{
			Row:     pt.Row,
			Column:  pt.Column,
			Snippet: snippet(source, bad),
		}
	}
	// HasError was set but no ERROR node surfaced; still reject.
	return &SyntaxError{Snippet: "unlocatable parse error"}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func snippet(source string, n *sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(source) {
		end = uint32(len(source))
	}
	if start >= end {
		return ""
	}
	s := source[start:end]
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}
