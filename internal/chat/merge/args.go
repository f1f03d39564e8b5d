package merge

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// The transport layer escapes JSON brackets in tool-call argument fragments
// so they survive the SSE framing; this reverses that fixed substitution set.
var chunkUnescaper = strings.NewReplacer(
	"&#91;", "[",
	"&#93;", "]",
	"&#123;", "{",
	"&#125;", "}",
)

// ConvertToolChunkArgs reverses the transport's HTML-entity escaping of a raw
// tool-call argument fragment.
func ConvertToolChunkArgs(args string) string {
	return chunkUnescaper.Replace(args)
}

var (
	stringPairPattern = regexp.MustCompile(`"([^"\\]+)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	scalarPairPattern = regexp.MustCompile(`"([^"\\]+)"\s*:\s*(true|false|-?\d+(?:\.\d+)?)`)
)

// ParseToolCallArgs turns the concatenated argument fragments of a finished
// tool call into a map. Malformed input never fails: the result then carries
// an "error" marker, the exact "raw" text for diagnosis, and whatever
// key/value pairs could still be recovered, so downstream rendering always
// has something to show.
func ParseToolCallArgs(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "{" || trimmed == "}" {
		return map[string]any{}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}

	recovered := recoverPartialArgs(trimmed)
	recovered["error"] = "failed to parse tool call arguments"
	recovered["raw"] = raw
	return recovered
}

// recoverPartialArgs extracts whatever top-level pairs it can from a
// malformed JSON object: a tolerant gjson pass first, then the regex scan
// for `"key": "string"` and `"key": true|false|number` pairs.
func recoverPartialArgs(text string) map[string]any {
	out := make(map[string]any)

	if result := gjson.Parse(text); result.IsObject() {
		result.ForEach(func(key, value gjson.Result) bool {
			switch value.Type {
			case gjson.String:
				out[key.String()] = value.String()
			case gjson.True, gjson.False:
				out[key.String()] = value.Bool()
			case gjson.Number:
				out[key.String()] = value.Float()
			}
			return true
		})
	}

	for _, match := range stringPairPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := out[match[1]]; ok {
			continue
		}
		value := match[2]
		if unquoted, err := strconv.Unquote(`"` + value + `"`); err == nil {
			value = unquoted
		}
		out[match[1]] = value
	}
	for _, match := range scalarPairPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := out[match[1]]; ok {
			continue
		}
		switch match[2] {
		case "true":
			out[match[1]] = true
		case "false":
			out[match[1]] = false
		default:
			if number, err := strconv.ParseFloat(match[2], 64); err == nil {
				out[match[1]] = number
			}
		}
	}
	return out
}
