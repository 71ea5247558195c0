package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	want := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"epoch millis", `1792238400000`, want},
		{"epoch millis string", `"1792238400000"`, want},
		{"rfc3339", `"2026-10-17T12:00:00Z"`, want},
		{"null", `null`, time.Time{}},
		{"empty string", `""`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("got %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestTimestamp_UnmarshalJSON_Invalid(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"tomorrow"`), &ts); err == nil {
		t.Error("expected error for non-timestamp string")
	}
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	var payload struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42, "b": "u_7"}`), &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if payload.A != "42" {
		t.Errorf("A = %q, want %q", payload.A, "42")
	}
	if payload.B != "u_7" {
		t.Errorf("B = %q, want %q", payload.B, "u_7")
	}
}

func TestEnvelope_OK(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{"code":200,"data":{"x":1},"message":"ok"}`), &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !env.OK() {
		t.Error("expected code 200 to be OK")
	}
	env.Code = 401
	if env.OK() {
		t.Error("expected code 401 not to be OK")
	}
}

func TestSession_IsExpiredAt(t *testing.T) {
	now := time.Now()
	sess := &Session{Token: "abc", ExpiresAt: now}
	if !sess.IsExpiredAt(now) {
		t.Error("session expiring exactly now should be expired")
	}
	if sess.IsExpiredAt(now.Add(-time.Second)) {
		t.Error("session should be valid before its expiry")
	}
}

func TestScopeFor(t *testing.T) {
	if got := ScopeFor(true); got != ScopeDurable {
		t.Errorf("ScopeFor(true) = %q, want %q", got, ScopeDurable)
	}
	if got := ScopeFor(false); got != ScopeEphemeral {
		t.Errorf("ScopeFor(false) = %q, want %q", got, ScopeEphemeral)
	}
	if _, err := ParseScope("cookie"); err == nil {
		t.Error("expected error for unknown scope")
	}
}
