package proxy

import (
	"path"
	"strings"
)

// PathMatcher validates backend paths against an allowlist so the
// pass-through only reaches the routes the front end actually uses.
//
// Patterns are slash-separated segments:
//   - /history/* matches /history/42 but not /history/42/raw
//   - /history/** matches /history and anything below it
//   - /repos/*/readme matches /repos/octocat/readme
//
// ** is only special as the last segment. An empty allowlist denies everything.
type PathMatcher struct {
	patterns [][]string
}

// NewPathMatcher creates a new path matcher with allowed patterns
func NewPathMatcher(allowedPatterns []string) *PathMatcher {
	pm := &PathMatcher{patterns: make([][]string, 0, len(allowedPatterns))}
	for _, p := range allowedPatterns {
		pm.patterns = append(pm.patterns, segments(p))
	}
	return pm
}

// IsAllowed reports whether requestPath matches any allowed pattern.
// The path is cleaned first, so dot segments can't climb out of a prefix.
func (pm *PathMatcher) IsAllowed(requestPath string) bool {
	segs := segments(requestPath)
	for _, pattern := range pm.patterns {
		if matchSegments(pattern, segs) {
			return true
		}
	}
	return false
}

// segments cleans p as an absolute path and splits it. The root has no segments.
func segments(p string) []string {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	return strings.Split(p[1:], "/")
}

func matchSegments(pattern, segs []string) bool {
	for i, want := range pattern {
		if want == "**" && i == len(pattern)-1 {
			return true
		}
		if i >= len(segs) {
			return false
		}
		if want != "*" && want != segs[i] {
			return false
		}
	}
	return len(pattern) == len(segs)
}
