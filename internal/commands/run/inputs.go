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

package run

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// loadInputFile loads inputs from a JSON file, or from stdin when path
// is "-".
func loadInputFile(path string) (map[string]interface{}, error) {
	var data []byte
	var err error

	if path == "-" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("--input-file - requires input on stdin (pipe or redirect)")
		}
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
	}

	var inputs map[string]interface{}
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parsing JSON input file: %w", err)
	}
	return inputs, nil
}

// parseInputs merges --input-file contents with -i KEY=VALUE overrides.
// Each VALUE is parsed as JSON when it's well-formed JSON, and kept as
// a plain string literal otherwise.
func parseInputs(inputArgs []string, inputFile string) (map[string]interface{}, error) {
	var inputs map[string]interface{}
	if inputFile != "" {
		var err error
		inputs, err = loadInputFile(inputFile)
		if err != nil {
			return nil, err
		}
	} else {
		inputs = make(map[string]interface{})
	}

	for _, arg := range inputArgs {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid input format %q (expected key=value)", arg)
		}
		inputs[key] = parseInputValue(value)
	}

	return inputs, nil
}

// parseInputValue parses value as JSON when well-formed, falling back
// to the raw string.
func parseInputValue(value string) interface{} {
	var decoded interface{}
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return decoded
	}
	return value
}
