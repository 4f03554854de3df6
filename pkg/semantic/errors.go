// Copyright 2026 Foyer AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package semantic

import "fmt"

// Compile error codes.
const (
	CodeUnknownRootEntity         = "UNKNOWN_ROOT_ENTITY"
	CodeInvalidPath               = "INVALID_PATH"
	CodePathResolution            = "PATH_RESOLUTION_ERROR"
	CodePropertyIsNotRelationship = "PROPERTY_IS_NOT_RELATIONSHIP"
	CodeMaxDepthExceeded          = "MAX_DEPTH_EXCEEDED"
	CodeCyclicPath                = "CYCLIC_PATH"
	CodeUnknownOperator           = "UNKNOWN_OPERATOR"
)

// PathError reports a compile-time failure with enough context for the LLM
// (or a human) to self-correct: the offending token, the entity it was
// looked up on, its position, and up to five close-match suggestions.
type PathError struct {
	Code          string   `json:"code"`
	Path          string   `json:"path,omitempty"`
	Token         string   `json:"token,omitempty"`
	CurrentEntity string   `json:"current_entity,omitempty"`
	Position      int      `json:"position"`
	Suggestions   []string `json:"suggestions"`
	Detail        string   `json:"detail,omitempty"`
}

func (e *PathError) Error() string {
	switch {
	case e.Token != "" && e.CurrentEntity != "":
		return fmt.Sprintf("%s: %q on %s at position %d (suggestions: %v)",
			e.Code, e.Token, e.CurrentEntity, e.Position, e.Suggestions)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	default:
		return e.Code
	}
}
