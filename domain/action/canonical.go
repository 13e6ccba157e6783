package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// marshalCanonical encodes a flat object deterministically: keys sorted,
// no HTML escaping, strings NFC normalized, integers only.
func marshalCanonical(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range slices.Sorted(maps.Keys(obj)) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		switch v := obj[key].(type) {
		case string:
			if err := writeCanonicalString(&buf, v); err != nil {
				return nil, err
			}
		case int:
			buf.WriteString(strconv.Itoa(v))
		default:
			return nil, fmt.Errorf("canonical payload: unsupported value %T for key %q", v, key)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	// the JSON encoder would turn invalid bytes into U+FFFD
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidUTF8, s)
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// Encode appends a newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
