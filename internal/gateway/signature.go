package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

const FieldSignature = "signature"

var ErrSignatureMismatch = errors.New("gateway response signature mismatch")

var lineEndings = strings.NewReplacer("%0D%0A", "%0A", "%0A%0D", "%0A", "%0D", "%0A")

// Sign returns the SHA-512 message signature over fields: keys sorted, values
// form-encoded, line endings normalised, secret appended. Any existing
// signature field is ignored.
func Sign(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == FieldSignature {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(fields[k]))
	}

	sum := sha512.Sum512([]byte(lineEndings.Replace(b.String()) + secret))
	return hex.EncodeToString(sum[:])
}

// Verify checks the signature carried in fields.
func Verify(fields map[string]string, secret string) error {
	got, ok := fields[FieldSignature]
	if !ok || got == "" {
		return ErrSignatureMismatch
	}
	want := Sign(fields, secret)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(got)), []byte(want)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}
