package auth

import (
	"net/url"
	"strings"
)

// DefaultReturnPath is the landing page after login when the requested
// return path is missing or rejected
const DefaultReturnPath = "/"

const maxReturnPathLength = 2048

// SafeReturnPath returns raw when it is a same-origin relative path and
// DefaultReturnPath otherwise. The state parameter comes back from the
// browser and is untrusted.
func SafeReturnPath(raw string) string {
	if IsSafeReturnPath(raw) {
		return raw
	}
	return DefaultReturnPath
}

// IsSafeReturnPath reports whether raw starts with a single slash and has
// no scheme, host, backslash or control character.
func IsSafeReturnPath(raw string) bool {
	if raw == "" || len(raw) > maxReturnPathLength {
		return false
	}
	if !isSingleSlashPath(raw) || hasUnsafeByte(raw) {
		return false
	}
	if strings.Contains(raw, "%") {
		// Some routers decode before matching, so the decoded form must pass too
		decoded, err := url.PathUnescape(raw)
		if err != nil || !isSingleSlashPath(decoded) || hasUnsafeByte(decoded) {
			return false
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}

// isSingleSlashPath rejects "//host" and "/\host", which browsers resolve
// as protocol-relative URLs.
func isSingleSlashPath(s string) bool {
	if s == "" || s[0] != '/' {
		return false
	}
	return len(s) == 1 || (s[1] != '/' && s[1] != '\\')
}

func hasUnsafeByte(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f || c == '\\' {
			return true
		}
	}
	return false
}
