package session

import (
	"reflect"
	"strconv"
	"strings"
)

// tokenCandidateKeys is the ordered list of record fields probed when a
// token-bearing response nests the credential inside an object. The backend
// has been observed to use several of these depending on the endpoint.
var tokenCandidateKeys = []string{
	"token",
	"access_token",
	"accessToken",
	"plainTextToken",
	"plain_text_token",
	"authToken",
	"auth_token",
	"value",
	"bearer_token",
	"bearerToken",
}

// NormalizeToken reduces a heterogeneous token candidate to a canonical
// credential string. It returns ok=false when the candidate normalizes to
// "absent": nil, empty strings, the literal placeholders "undefined", "null",
// and "[object Object]", and any shape that yields no usable string.
//
// Strings are trimmed. Numbers and booleans are stringified. Sequences are
// scanned in order and the first element that normalizes wins. Keyed records
// are probed through the fixed candidate key list; a field that references
// the record itself is skipped rather than recursed into.
func NormalizeToken(value any) (string, bool) {
	return normalizeToken(value, make(map[uintptr]struct{}))
}

func normalizeToken(value any, visited map[uintptr]struct{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || trimmed == "[object Object]" || trimmed == "undefined" || trimmed == "null" {
			return "", false
		}
		return trimmed, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		// json.Unmarshal produces float64 for all numbers.
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case []any:
		if !markVisited(v, visited) {
			return "", false
		}
		for _, item := range v {
			if normalized, ok := normalizeToken(item, visited); ok {
				return normalized, true
			}
		}
		return "", false
	case map[string]any:
		if !markVisited(v, visited) {
			return "", false
		}
		for _, key := range tokenCandidateKeys {
			candidate, present := v[key]
			if !present {
				continue
			}
			if sameReference(candidate, v) {
				continue
			}
			if normalized, ok := normalizeToken(candidate, visited); ok {
				return normalized, true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// markVisited records a map or slice header and reports false when it has
// already been walked, guarding against reference cycles in decoded payloads.
func markVisited(v any, visited map[uintptr]struct{}) bool {
	ptr := reflect.ValueOf(v).Pointer()
	if _, seen := visited[ptr]; seen {
		return false
	}
	visited[ptr] = struct{}{}
	return true
}

func sameReference(a, b any) bool {
	am, ok := a.(map[string]any)
	if !ok {
		return false
	}
	bm, ok := b.(map[string]any)
	if !ok {
		return false
	}
	return reflect.ValueOf(am).Pointer() == reflect.ValueOf(bm).Pointer()
}
