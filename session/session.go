package session

import (
	"encoding/json"
	"strings"
)

// Session is the client's record of the currently authenticated identity.
//
// User is an opaque mapping of backend-defined profile fields. The package
// interprets only the role candidate fields; everything else is carried
// verbatim for the caller.
type Session struct {
	User  map[string]any
	Token string
	Role  string
}

// IsZero reports whether the session carries neither a user nor a token.
func (s Session) IsZero() bool {
	return s.User == nil && s.Token == ""
}

// roleCandidateFields is the ordered list of profile fields probed when
// deriving the session role. The first non-empty hit wins.
var roleCandidateFields = []string{"role", "user_role", "type", "user_type", "userRole"}

// ResolveRole derives the lower-cased, trimmed role classification from a
// profile record. It returns "" when user is nil or none of the candidate
// fields hold a usable value.
func ResolveRole(user map[string]any) string {
	if user == nil {
		return ""
	}
	for _, field := range roleCandidateFields {
		raw, ok := user[field]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			return value
		}
	}
	return ""
}

// ParseStoredUser decodes a persisted profile record. Empty strings and the
// literal placeholders "undefined" and "null" are treated as absence, as is
// any value that does not decode to a JSON object.
func ParseStoredUser(raw string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "undefined" || trimmed == "null" {
		return nil, false
	}

	var user map[string]any
	if err := json.Unmarshal([]byte(trimmed), &user); err != nil {
		return nil, false
	}
	if user == nil {
		return nil, false
	}

	return user, true
}

// EncodeUser serializes a profile record for persistence.
func EncodeUser(user map[string]any) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
