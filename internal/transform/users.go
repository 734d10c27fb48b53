// Package transform converts raw provider records into typed warehouse
// rows. Records missing their key are rejected as malformed; every other
// missing field degrades to NULL or a zero value.
package transform

import (
	"encoding/json"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// User maps a Descope user search record to a warehouse row. userId is
// the merge key and the only mandatory field.
func User(raw map[string]any) (*domain.User, error) {
	id := getString(raw, "userId")
	if id == "" {
		return nil, domain.ErrMalformed("userId", "missing or empty")
	}

	u := &domain.User{
		UserID:           id,
		LoginIDs:         jsonField(raw, "loginIds"),
		DisplayName:      optString(raw, "name"),
		GivenName:        optString(raw, "givenName"),
		FamilyName:       optString(raw, "familyName"),
		Email:            optString(raw, "email"),
		VerifiedEmail:    optBool(raw, "verifiedEmail"),
		Phone:            optString(raw, "phone"),
		VerifiedPhone:    optBool(raw, "verifiedPhone"),
		RoleNames:        jsonField(raw, "roleNames"),
		UserTenants:      jsonField(raw, "userTenants"),
		Status:           optString(raw, "status"),
		Picture:          optString(raw, "picture"),
		Test:             optBool(raw, "test"),
		CustomAttributes: jsonField(raw, "customAttributes"),
	}

	// createdTime arrives as epoch seconds.
	if secs, ok := toFloat(raw["createdTime"]); ok && secs > 0 {
		t := time.Unix(int64(secs), 0).UTC()
		u.CreatedTime = &t
	}
	return u, nil
}

func getString(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func optString(raw map[string]any, key string) *string {
	if s, ok := raw[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func optBool(raw map[string]any, key string) *bool {
	if b, ok := raw[key].(bool); ok {
		return &b
	}
	return nil
}

// jsonField serializes a list or map field to its JSON text, since the
// warehouse stores these columns as JSON strings. Absent fields become
// nil rather than the literal "null".
func jsonField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
