package rcf

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Serialize renders a canonical tree as single-line JSON text.
//
// Output is a pure function of the tree: no whitespace is inserted, object
// members are written in tree order, and numbers use their shortest decimal form.
// Normalize never yields invalid UTF-8; in a hand-built tree it is written as
// U+FFFD.
func Serialize(t Tree) []byte {
	var sb strings.Builder
	writeTree(&sb, t)
	return []byte(sb.String())
}

func writeTree(sb *strings.Builder, t Tree) {
	switch v := t.(type) {
	case String:
		writeString(sb, string(v))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case Float:
		sb.WriteString(formatFloat(float64(v)))
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(v)))
	case Array:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeTree(sb, item)
		}
		sb.WriteByte(']')
	case Object:
		sb.WriteByte('{')
		for i, m := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeString(sb, m.Key)
			sb.WriteByte(':')
			writeTree(sb, m.Value)
		}
		sb.WriteByte('}')
	default:
		// Null and nil.
		sb.WriteString("null")
	}
}

const hexDigits = "0123456789abcdef"

// writeString writes s as a JSON string. Only '"', '\\' and control characters
// are escaped; everything else, including non-ASCII, is written as UTF-8.
func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				sb.WriteString(s[start:i])
				sb.WriteString(`�`)
				i += size
				start = i
				continue
			}
			i += size
			continue
		}
		if c >= 0x20 && c != '"' && c != '\\' {
			i++
			continue
		}
		sb.WriteString(s[start:i])
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteString(`\u00`)
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0xf])
		}
		i++
		start = i
	}
	sb.WriteString(s[start:])
	sb.WriteByte('"')
}

// formatFloat formats f the way ECMAScript does: plain decimal notation for
// magnitudes in [1e-6, 1e21), exponent notation otherwise.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}
