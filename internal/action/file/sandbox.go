// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package file

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolve turns a workflow-supplied path into an absolute path inside
// the sandbox root. Relative paths resolve against Root; absolute
// paths are rejected unless AllowAbsolute is set. The check runs on
// the lexically cleaned path, so `a/../../etc/passwd` is caught
// without touching the filesystem.
func (a *Action) resolve(raw string) (string, error) {
	if filepath.IsAbs(raw) {
		if !a.config.AllowAbsolute {
			return "", fmt.Errorf("file action: absolute path %q not permitted", raw)
		}
		return filepath.Clean(raw), nil
	}

	joined := filepath.Clean(filepath.Join(a.config.Root, raw))
	rel, err := filepath.Rel(a.config.Root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file action: path %q escapes the sandbox root", raw)
	}
	return joined, nil
}
