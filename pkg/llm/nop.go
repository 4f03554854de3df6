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
package llm

import (
	"context"
	"errors"
)

// ErrDisabled is returned when a disabled provider is called anyway.
var ErrDisabled = errors.New("llm provider is disabled")

// NopProvider is the disabled capability. Components that receive it fall
// back to their rule-based paths.
type NopProvider struct{}

// NewNopProvider returns the disabled provider.
func NewNopProvider() *NopProvider { return &NopProvider{} }

func (n *NopProvider) IsEnabled() bool { return false }

func (n *NopProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return nil, ErrDisabled
}

func (n *NopProvider) Name() string { return "nop" }

func (n *NopProvider) Model() string { return "" }
