package features

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Output keys computed from a stored field follow that field in and out of a
// projection.
var derivedFrom = map[string]string{
	"id":            "_id",
	"durationWeeks": "duration",
	"author":        "user",
	"tourName":      "tour",
}

// Project trims serialized documents down to what the fields parameter asks
// for, so that fields the database never returned do not show up as zero
// values. Without a fields parameter docs is returned as is.
func Project[T any](params url.Values, docs []T) (any, error) {
	fields := lastValue(params, "fields")
	if fields == "" {
		return docs, nil
	}
	keep := selector(fields)
	out := make([]map[string]json.RawMessage, 0, len(docs))
	for i := range docs {
		raw, err := json.Marshal(docs[i])
		if err != nil {
			return nil, err
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		for key := range doc {
			if !keep(key) {
				delete(doc, key)
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

func selector(fields string) func(key string) bool {
	include, exclude := map[string]bool{}, map[string]bool{}
	for _, field := range splitList(fields) {
		if unsafeKey(field) {
			continue
		}
		if name, ok := strings.CutPrefix(field, "-"); ok {
			exclude[name] = true
			continue
		}
		// A nested path keeps its top-level document.
		name, _, _ := strings.Cut(field, ".")
		include[name] = true
	}
	return func(key string) bool {
		source := key
		if from, ok := derivedFrom[key]; ok {
			source = from
		}
		if exclude[source] {
			return false
		}
		if len(include) == 0 {
			return true
		}
		return source == "_id" || include[source]
	}
}

func lastValue(params url.Values, key string) string {
	values := params[key]
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}
