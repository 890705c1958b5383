package browser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Decoder turns an observed endpoint response into the translated text.
type Decoder func(status int, body []byte) (string, error)

// GoogleDecoder reads the nested array returned by translate_a/single:
// the translation is the concatenation of body[0][i][0].
func GoogleDecoder(status int, body []byte) (string, error) {
	if status != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", status)
	}

	var root []json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(root) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(root[0], &segments); err != nil {
		return "", fmt.Errorf("failed to decode segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var text string
		if err := json.Unmarshal(seg[0], &text); err != nil {
			continue
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
