package extract

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
)

// kerning adjustments in a TJ array below this value are read as a space
const spaceKerning = -200

// ContentText reads the strings painted by the text operators (Tj, TJ, '
// and ") of a decoded page content stream. Line-moving operators become
// newlines. Glyphs from fonts with custom encodings come through as-is.
func ContentText(stream []byte) string {
	var b strings.Builder
	var operands []string
	inArray := false

	flush := func(sep string) {
		for _, s := range operands {
			b.WriteString(s)
		}
		operands = operands[:0]
		if sep != "" && !strings.HasSuffix(b.String(), sep) {
			b.WriteString(sep)
		}
	}

	s := stream
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '%':
			for i < len(s) && s[i] != '\n' && s[i] != '\r' {
				i++
			}
		case c == '(':
			str, next := readLiteral(s, i)
			operands = append(operands, str)
			i = next
		case c == '<' && i+1 < len(s) && s[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(s) && s[i+1] == '>':
			i += 2
		case c == '<':
			str, next := readHex(s, i)
			operands = append(operands, str)
			i = next
		case c == '/':
			i++
			for i < len(s) && !isSpace(s[i]) && !isDelim(s[i]) {
				i++
			}
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case isSpace(c):
			i++
		default:
			j := i
			for j < len(s) && !isSpace(s[j]) && !isDelim(s[j]) {
				j++
			}
			if j == i {
				j++
			}
			tok := string(s[i:j])
			i = j

			if n, err := strconv.ParseFloat(tok, 64); err == nil {
				if inArray && n < spaceKerning {
					operands = append(operands, " ")
				}
				continue
			}
			switch tok {
			case "Tj", "TJ":
				flush(" ")
			case "'", "\"":
				b.WriteString("\n")
				flush(" ")
			case "T*", "ET":
				flush("\n")
			case "Td", "TD", "Tm":
				flush(" ")
			default:
				operands = operands[:0]
			}
		}
	}
	flush("")
	return clean(b.String())
}

func readLiteral(s []byte, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch e := s[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
				if e == '\r' && i+1 < len(s) && s[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					j := i
					for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
						j++
					}
					v, _ := strconv.ParseUint(string(s[i:j]), 8, 8)
					b.WriteByte(byte(v))
					i = j - 1
				} else {
					b.WriteByte(e)
				}
			}
		case c == '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), i
}

func readHex(s []byte, start int) (string, int) {
	end := start + 1
	for end < len(s) && s[end] != '>' {
		end++
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(s[start+1:min(end, len(s))]))
	if len(digits)%2 == 1 {
		digits += "0"
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return "", end + 1
	}
	return string(raw), end + 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

// clean maps single-byte glyph codes to Latin-1 runes and drops control
// characters other than newlines.
func clean(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		if r == '\n' || r == '\t' || r == ' ' || (r >= 0x20 && r != 0x7f && !(r >= 0x80 && r < 0xa0)) {
			b.WriteRune(r)
		}
	}
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
