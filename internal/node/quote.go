package node

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Quote renders s as a script string literal. "</" is escaped so the
// literal is also safe inside an inline script element.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.ReplaceAll(strings.TrimSuffix(buf.String(), "\n"), "</", `<\/`)
}
