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

// ModelBinding binds an abstract entity name to the row-store table the
// query executor reads. Domain adapters perform any auto-discovery from the
// store's column metadata before registering; the registry only stores the
// result.
type ModelBinding struct {
	Entity     string
	Table      string
	PrimaryKey string            // column name of the primary key
	Columns    map[string]string // property name -> column name
}

// Column resolves a property to its storage column. Properties without an
// explicit mapping use their own name.
func (m *ModelBinding) Column(property string) string {
	if col, ok := m.Columns[property]; ok {
		return col
	}
	return property
}
