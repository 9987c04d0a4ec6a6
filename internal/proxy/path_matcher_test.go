package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMatcher(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		allowed  bool
	}{
		{name: "exact", patterns: []string{"/generate"}, path: "/generate", allowed: true},
		{name: "exact trailing slash", patterns: []string{"/generate"}, path: "/generate/", allowed: true},
		{name: "exact mismatch", patterns: []string{"/generate"}, path: "/generated", allowed: false},
		{name: "exact no prefix match", patterns: []string{"/generate"}, path: "/generate/extra", allowed: false},

		{name: "single wildcard", patterns: []string{"/history/*"}, path: "/history/42", allowed: true},
		{name: "single wildcard too deep", patterns: []string{"/history/*"}, path: "/history/42/raw", allowed: false},
		{name: "single wildcard needs a segment", patterns: []string{"/history/*"}, path: "/history", allowed: false},
		{name: "middle wildcard", patterns: []string{"/repos/*/readme"}, path: "/repos/octocat/readme", allowed: true},
		{name: "middle wildcard mismatch", patterns: []string{"/repos/*/readme"}, path: "/repos/octocat/license", allowed: false},

		{name: "recursive", patterns: []string{"/history/**"}, path: "/history/42/raw", allowed: true},
		{name: "recursive includes base", patterns: []string{"/history/**"}, path: "/history", allowed: true},
		{name: "recursive sibling", patterns: []string{"/history/**"}, path: "/historyx", allowed: false},
		{name: "match all", patterns: []string{"/**"}, path: "/anything/at/all", allowed: true},

		{name: "traversal cleaned", patterns: []string{"/history/*"}, path: "/history/../admin", allowed: false},
		{name: "missing leading slash", patterns: []string{"generate"}, path: "generate", allowed: true},
		{name: "empty allowlist", patterns: nil, path: "/generate", allowed: false},
		{name: "double slashes collapse", patterns: []string{"/history/*"}, path: "//history//42", allowed: true},
		{name: "root only matches root", patterns: []string{"/"}, path: "/generate", allowed: false},
		{name: "any of several", patterns: []string{"/generate", "/history/**"}, path: "/history/1", allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, NewPathMatcher(tt.patterns).IsAllowed(tt.path))
		})
	}
}
