package ioutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorSummary(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "github api error",
			body: `{"message":"Bad credentials","documentation_url":"https://docs.github.com/rest"}`,
			want: "Bad credentials",
		},
		{
			name: "error and message",
			body: `{"error":"bad_gateway","message":"backend down"}`,
			want: "bad_gateway: backend down",
		},
		{
			name: "error only",
			body: `{"error":"not_found"}`,
			want: "not_found",
		},
		{
			name: "plain text",
			body: "upstream connect error\n",
			want: "upstream connect error",
		},
		{
			name: "json without known fields",
			body: `{"status":"down"}`,
			want: `{"status":"down"}`,
		},
		{
			name: "empty",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorSummary(strings.NewReader(tt.body)))
		})
	}
}

func TestErrorSummary_Truncates(t *testing.T) {
	body := strings.Repeat("x", MaxErrorBody+100)
	assert.Len(t, ErrorSummary(strings.NewReader(body)), MaxErrorBody)
}

func TestErrorSummary_ReadFailure(t *testing.T) {
	r := &failingReader{err: fmt.Errorf("connection reset")}
	assert.Equal(t, "<unreadable: connection reset>", ErrorSummary(r))
}

type failingReader struct {
	err error
}

func (r *failingReader) Read(_ []byte) (int, error) {
	return 0, r.err
}
