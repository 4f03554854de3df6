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

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

const maxSuggestions = 5

// closeMatches ranks candidates against token, best first, capped at
// maxSuggestions. Fuzzy subsequence ranking first; candidates within edit
// distance 2 are appended so single-typo tokens always get a suggestion even
// when no subsequence matches.
func closeMatches(token string, candidates []string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, m := range fuzzy.Find(token, candidates) {
		if len(out) >= maxSuggestions {
			return out
		}
		if !seen[m.Str] {
			seen[m.Str] = true
			out = append(out, m.Str)
		}
	}
	for _, c := range candidates {
		if len(out) >= maxSuggestions {
			break
		}
		if !seen[c] && editDistance(strings.ToLower(token), strings.ToLower(c)) <= 2 {
			seen[c] = true
			out = append(out, c)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// withinEditDistance filters candidates to those at most max edits away.
func withinEditDistance(token string, candidates []string, max int) []string {
	var out []string
	for _, c := range candidates {
		if editDistance(strings.ToLower(token), strings.ToLower(c)) <= max {
			out = append(out, c)
		}
	}
	return out
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
