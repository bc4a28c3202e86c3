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

package utils

import (
	"encoding/json"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
)

// WrapError annotates err with msg, keeping the original cause chain.
func WrapError(err error, msg string) error {
	return pkgerrors.Wrap(err, msg)
}

// WrapErrorf annotates err with a formatted message.
func WrapErrorf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// MarshalJSONBytes marshals v to compact JSON.
func MarshalJSONBytes(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalJSONIndent marshals v to two-space indented JSON.
func MarshalJSONIndent(v any) (string, error) {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// MustWriteFile writes data to path, creating parent directories as needed.
func MustWriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return WrapErrorf(err, "mkdir %s", dir)
		}
	}
	return os.WriteFile(path, data, 0644)
}
