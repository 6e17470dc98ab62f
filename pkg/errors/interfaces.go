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

package errors

import "errors"

// Classifier is implemented by every error in this package. ErrorType
// returns the stable taxonomy code (e.g. "workflow-parse",
// "expression-evaluation") used in journals and CLI output;
// IsRetryable reports whether retrying the same operation can succeed
// without operator intervention.
type Classifier interface {
	error

	ErrorType() string
	IsRetryable() bool
}

// Suggester is implemented by errors that carry actionable guidance
// for the person reading the failure. The CLI appends the suggestion
// to its formatted error block.
type Suggester interface {
	error

	Suggestion() string
}

// TypeOf returns the taxonomy code of the first Classifier in err's
// chain, or "" when the chain carries none.
func TypeOf(err error) string {
	var c Classifier
	if errors.As(err, &c) {
		return c.ErrorType()
	}
	return ""
}

// SuggestionFor returns the guidance string of the first Suggester in
// err's chain, or "" when the chain carries none.
func SuggestionFor(err error) string {
	var s Suggester
	if errors.As(err, &s) {
		return s.Suggestion()
	}
	return ""
}
