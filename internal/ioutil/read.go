package ioutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxErrorBody caps how much of an error response is read for logs
const MaxErrorBody = 4 << 10

// ErrorSummary reads at most MaxErrorBody bytes of a failed response and
// returns something short enough for an error message. JSON bodies in the
// GitHub API shape ({"message": ...}) or our own ({"error": ..., "message": ...})
// are reduced to their message; anything else is returned trimmed. A read
// failure is described instead of dropped.
func ErrorSummary(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, MaxErrorBody))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}

	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		switch {
		case apiErr.Error != "" && apiErr.Message != "":
			return apiErr.Error + ": " + apiErr.Message
		case apiErr.Message != "":
			return apiErr.Message
		case apiErr.Error != "":
			return apiErr.Error
		}
	}
	return strings.TrimSpace(string(body))
}
