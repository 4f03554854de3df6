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
package ontology

import "fmt"

// Registry error codes.
const (
	CodeDuplicateName  = "DUPLICATE_NAME"
	CodeRegistryFrozen = "REGISTRY_FROZEN"
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
)

// RegistryError is returned by registry operations.
type RegistryError struct {
	Code   string
	Entity string
	Detail string
}

func (e *RegistryError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Detail, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func errDuplicate(kind, name string) *RegistryError {
	return &RegistryError{Code: CodeDuplicateName, Entity: name, Detail: kind + " already registered"}
}

func errFrozen(op string) *RegistryError {
	return &RegistryError{Code: CodeRegistryFrozen, Detail: op + " called after freeze"}
}

func errNotFound(kind, name string) *RegistryError {
	return &RegistryError{Code: CodeNotFound, Entity: name, Detail: kind + " not registered"}
}

func errInvalid(detail string) *RegistryError {
	return &RegistryError{Code: CodeInvalidInput, Detail: detail}
}
