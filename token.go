package matchwatch

import (
	"errors"
	"strings"
)

// TokenMarker is the substring every well-formed access token contains.
const TokenMarker = "RGAPI-"

var (
	// ErrCredentialMissing reports an absent or empty credential.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrCredentialMalformed reports a credential without the [TokenMarker].
	ErrCredentialMalformed = errors.New("credential malformed: missing " + TokenMarker + " marker")
)

// AccessToken is the credential attached to every status check.
//
// The zero value is the Absent token: [AccessToken.Present] reports false and
// every tick of a tracker holding it yields a transport error without
// performing network I/O. An AccessToken cannot be modified after creation.
type AccessToken struct {
	value string
}

// ParseAccessToken trims raw and validates it as an access token.
//
// Returns the Absent token and an error wrapping [ErrCredentialMissing] if raw
// is empty after trimming, or [ErrCredentialMalformed] if it lacks the
// [TokenMarker]. No other validation is performed; the token is not
// authenticated against the remote service.
func ParseAccessToken(raw string) (AccessToken, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return AccessToken{}, ErrCredentialMissing
	}
	if !strings.Contains(v, TokenMarker) {
		return AccessToken{}, ErrCredentialMalformed
	}
	return AccessToken{value: v}, nil
}

// Present reports whether the token holds a well-formed credential.
func (t AccessToken) Present() bool {
	return t.value != ""
}

// Value returns the raw credential for use in the request header.
// Returns an empty string for the Absent token.
func (t AccessToken) Value() string {
	return t.value
}

// String returns a redacted form safe for logs, e.g. "RGAPI-****1a2b".
// The Absent token renders as "<absent>".
func (t AccessToken) String() string {
	if t.value == "" {
		return "<absent>"
	}
	const visible = 4
	if len(t.value) <= len(TokenMarker)+visible {
		return TokenMarker + "****"
	}
	return TokenMarker + "****" + t.value[len(t.value)-visible:]
}
