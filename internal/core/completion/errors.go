package completion

import "strings"

// Kind buckets completion failures into user-facing categories. The match is
// by lowercase substring over the raw error text because the upstream
// gateways only expose message strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindAuthFailed
	KindTimeout
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuthFailed:
		return "auth_failed"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

func Classify(message string) Kind {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "rate limit"):
		return KindRateLimited
	case strings.Contains(lower, "authentication"), strings.Contains(lower, "api key"):
		return KindAuthFailed
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return KindTimeout
	case strings.Contains(lower, "connection"):
		return KindConnection
	default:
		return KindUnknown
	}
}

// UserMessage renders the message shown in the result area. Unknown errors
// keep the raw text so the user can report something actionable.
func UserMessage(kind Kind, raw string) string {
	switch kind {
	case KindRateLimited:
		return "Rate limit exceeded. Please try again in a moment."
	case KindAuthFailed:
		return "Authentication failed. Please check your API key."
	case KindTimeout:
		return "Request timed out. The server might be busy, please try again."
	case KindConnection:
		return "Connection issue. Please check your internet connection."
	default:
		return raw
	}
}
