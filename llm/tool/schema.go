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
	"encoding/json"

	"github.com/cloudwego/eino/components/tool"
	"github.com/invopop/jsonschema"
)

// Tool is any invokable tool usable by agents and the MCP server.
type Tool = tool.BaseTool

// GetJSONSchema reflects the raw JSON schema of a request struct, honoring
// the jsonschema struct tags.
func GetJSONSchema(v any) json.RawMessage {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(v)
	js, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return js
}
