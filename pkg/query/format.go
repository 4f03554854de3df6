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
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/foyer-ai/foyer/pkg/ontology"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04"
)

// acceptedTimeLayouts are the storage formats we parse before reformatting.
var acceptedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatValue renders a raw store value for display. NULL renders as the
// empty string; dates and datetimes are normalized regardless of how the
// store returns them. A nil prop falls back to generic formatting.
func FormatValue(prop *ontology.PropertyMetadata, v any) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	if prop != nil {
		switch prop.Type {
		case ontology.TypeDate:
			if t, ok := asTime(v); ok {
				return t.Format(dateLayout)
			}
		case ontology.TypeDatetime:
			if t, ok := asTime(v); ok {
				return t.Format(datetimeLayout)
			}
		case ontology.TypeBoolean:
			if b, ok := asBool(v); ok {
				return strconv.FormatBool(b)
			}
		}
	}

	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(datetimeLayout)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range acceptedTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func asBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case int64:
		return val != 0, true
	case int:
		return val != 0, true
	case string:
		if b, err := strconv.ParseBool(val); err == nil {
			return b, true
		}
	}
	return false, false
}
