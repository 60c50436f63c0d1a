// Package scanner peeks at JSON fields without decoding the document. It
// matches the first occurrence of the key anywhere in the payload, so it is
// meant for envelope keys that never repeat in nested objects.
package scanner

import "bytes"

// StringField returns the string value of the first `"key": "value"` pair.
// Escape sequences are not interpreted.
func StringField(payload []byte, key string) (string, bool) {
	i := valueIndex(payload, key)
	if i < 0 || i >= len(payload) || payload[i] != '"' {
		return "", false
	}
	i++
	start := i
	for i < len(payload) && payload[i] != '"' {
		if payload[i] == '\\' {
			i++
		}
		i++
	}
	if i >= len(payload) {
		return "", false
	}
	return string(payload[start:i]), true
}

// HasField reports whether `"key":` appears in payload.
func HasField(payload []byte, key string) bool {
	return valueIndex(payload, key) >= 0
}

// valueIndex returns the index of the first non-space byte after the colon
// that follows the quoted key, or -1.
func valueIndex(payload []byte, key string) int {
	quoted := make([]byte, 0, len(key)+2)
	quoted = append(quoted, '"')
	quoted = append(quoted, key...)
	quoted = append(quoted, '"')

	offset := 0
	for {
		idx := bytes.Index(payload[offset:], quoted)
		if idx < 0 {
			return -1
		}
		i := offset + idx + len(quoted)
		for i < len(payload) && isSpace(payload[i]) {
			i++
		}
		if i < len(payload) && payload[i] == ':' {
			i++
			for i < len(payload) && isSpace(payload[i]) {
				i++
			}
			return i
		}
		// The key text appeared as a value; keep looking.
		offset = i
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
