package completion

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    Kind
	}{
		{"rate limit", "Rate Limit exceeded for key", KindRateLimited},
		{"authentication", "401 AUTHENTICATION error", KindAuthFailed},
		{"api key", "invalid API key provided", KindAuthFailed},
		{"timeout", "request Timeout after 60s", KindTimeout},
		{"timed out", "context deadline exceeded: request timed out", KindTimeout},
		{"connection", "Connection refused", KindConnection},
		{"unknown", "model not found", KindUnknown},
		{"empty", "", KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.message); got != tc.want {
				t.Fatalf("Classify(%q) = %v, want %v", tc.message, got, tc.want)
			}
		})
	}
}

func TestUserMessageKeepsRawForUnknown(t *testing.T) {
	raw := "model not found: bogus/model"
	if got := UserMessage(KindUnknown, raw); got != raw {
		t.Fatalf("UserMessage() = %q, want raw message", got)
	}
	if got := UserMessage(KindRateLimited, raw); strings.Contains(got, "bogus") {
		t.Fatalf("classified message should not embed raw text: %q", got)
	}
}
