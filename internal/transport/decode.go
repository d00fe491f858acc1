package transport

import (
	"net/url"
	"strings"
)

// Decode parses a form-encoded body the way the gateway produces it. Pairs
// without a key are skipped, undecodable escapes are kept verbatim and a
// repeated key keeps its last value. Bracketed keys such as
// "threeDSRequest[creq]" stay flat.
func Decode(body string) map[string]string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = unescape(key)
		if key == "" {
			continue
		}
		fields[key] = unescape(value)
	}
	return fields
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}
