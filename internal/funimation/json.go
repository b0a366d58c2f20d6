package funimation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// looseString decodes a JSON string, number or null into its textual
// form. The service is inconsistent about quoting ids.
type looseString string

func (l *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = looseString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*l = looseString(n.String())
	}
	return nil
}

func (l looseString) String() string { return string(l) }

// Int parses the value as an integer; nil when it is not one.
func (l looseString) Int() *int {
	return intOrNil(string(l))
}

// looseFloat decodes a JSON number or numeric string.
type looseFloat float64

func (l *looseFloat) UnmarshalJSON(data []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*l = 0
		return nil
	}
	*l = looseFloat(f)
	return nil
}

func intOrNil(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	// ids such as "12.0" still count as integers
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int(f)
		return &n
	}
	return nil
}

// jsText returns the value at keys as text, whether it is stored as a
// string or a number. Missing keys and other types yield "".
func jsText(data []byte, keys ...string) string {
	value, typ, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return ""
	}
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return ""
		}
		return s
	case jsonparser.Number:
		return string(value)
	default:
		return ""
	}
}

// jsToJSON converts a JavaScript object literal (unquoted keys, single
// quotes, trailing commas, undefined and minified booleans) into strict
// JSON.
func jsToJSON(src string) ([]byte, error) {
	var v any
	if err := json5.Unmarshal([]byte(normalizeJS(src)), &v); err != nil {
		return nil, fmt.Errorf("parsing object literal: %w", err)
	}
	return json.Marshal(v)
}

// normalizeJS rewrites the JavaScript-only literals json5 rejects:
// undefined and void 0 become null, !0 and !1 become true and false.
// String contents are copied untouched.
func normalizeJS(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(src))
			b.WriteString(src[i:j])
			i = j
		case c == '!' && i+1 < len(src) && (src[i+1] == '0' || src[i+1] == '1') && !identByte(src, i+2):
			if src[i+1] == '0' {
				b.WriteString("true")
			} else {
				b.WriteString("false")
			}
			i += 2
		case isIdentStart(c):
			j := i
			for identByte(src, j) {
				j++
			}
			switch word := src[i:j]; word {
			case "undefined":
				b.WriteString("null")
			case "void":
				k := j
				for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
					k++
				}
				if k > j && k < len(src) && src[k] == '0' && !identByte(src, k+1) {
					b.WriteString("null")
					j = k + 1
				} else {
					b.WriteString(word)
				}
			default:
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// identByte reports whether src[i] continues an identifier or number.
func identByte(src string, i int) bool {
	if i >= len(src) {
		return false
	}
	c := src[i]
	return isIdentStart(c) || ('0' <= c && c <= '9')
}
