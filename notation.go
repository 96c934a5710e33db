package mathpad

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// ============================================================
// Notation translator — canonical <-> display
// ============================================================

var superscripts = [10]rune{'⁰', '¹', '²', '³', '⁴', '⁵', '⁶', '⁷', '⁸', '⁹'}

func superscriptDigit(r rune) (byte, bool) {
	for i, s := range superscripts {
		if r == s {
			return byte('0' + i), true
		}
	}
	return 0, false
}

// Display glyphs and the canonical text they stand for.
var displayGlyphs = map[rune]string{
	'×': "*",
	'÷': "/",
	'π': "pi",
	'√': "sqrt",
	'−': "-",
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

// impliesMul reports whether a variable written right after c needs an
// explicit '*' in canonical form.
func impliesMul(c byte) bool { return isDigit(c) || c == ')' }

// endsIdent reports whether s ends with an identifier (not a bare numeral).
func endsIdent(s string) bool {
	i := len(s)
	for i > 0 && isIdentPart(s[i-1]) {
		i--
	}
	return i < len(s) && isIdentStart(s[i])
}

// joins reports whether left and right written side by side would fuse
// two operands: "2" and "x" read as "2x", "x" and "y" as "xy", "x" and
// "2" as "x2", ")" and "2" as ")2".
func joins(left, right string) bool {
	if left == "" || right == "" {
		return false
	}
	prev, next := left[len(left)-1], right[0]
	switch {
	case isIdentStart(next):
		return impliesMul(prev) || isIdentPart(prev)
	case isDigit(next):
		return prev == ')' || endsIdent(left)
	}
	return false
}

func scanIdent(s string, i int) int {
	j := i
	for j < len(s) && isIdentPart(s[j]) {
		j++
	}
	return j
}

func scanDigits(s string, i int) int {
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	return j
}

// ToDisplay renders canonical text with display glyphs: superscript
// exponents, ×, ÷, π and √. Text it does not recognise passes through,
// so applying it to its own output is a no-op.
func ToDisplay(canonical string) string {
	out, _ := render(canonical, -1)
	return out
}

// DisplayOffset maps a byte offset in canonical text to the rune offset of
// the same position in ToDisplay's output. An offset inside a rewritten
// span (e.g. between "**" and its exponent) lands after the glyphs of
// that span.
func DisplayOffset(canonical string, offset int) int {
	_, pos := render(canonical, offset)
	return pos
}

func render(s string, mark int) (string, int) {
	var b strings.Builder
	b.Grow(len(s))
	written, pos := 0, -1
	afterSuper := false

	emit := func(start, end int, chunk string, super bool) {
		n := utf8.RuneCountInString(chunk)
		if pos < 0 && mark >= start && mark < end {
			if mark == start {
				pos = written
			} else {
				pos = written + n
			}
		}
		b.WriteString(chunk)
		written += n
		afterSuper = super
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '*' && strings.HasPrefix(s[i:], "**") && i+2 < len(s) && isDigit(s[i+2]):
			end := scanDigits(s, i+2)
			if afterSuper {
				// keep the boundary between two exponent runs visible
				emit(i, i+2, "××", false)
				i += 2
				continue
			}
			emit(i, end, toSuperscript(s[i+2:end]), true)
			i = end
		case c == '^' && i+1 < len(s) && isDigit(s[i+1]) && !afterSuper:
			end := scanDigits(s, i+1)
			emit(i, end, toSuperscript(s[i+1:end]), true)
			i = end
		case c == '*':
			emit(i, i+1, "×", false)
			i++
		case c == '/':
			emit(i, i+1, "÷", false)
			i++
		case isIdentStart(c):
			end := scanIdent(s, i)
			word := s[i:end]
			switch {
			case word == "pi":
				emit(i, end, "π", false)
			case word == "sqrt" && end < len(s) && s[end] == '(':
				emit(i, end, "√", false)
			default:
				emit(i, end, word, false)
			}
			i = end
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			_, super := superscriptDigit(r)
			emit(i, i+size, s[i:i+size], super)
			i += size
		}
	}
	if pos < 0 {
		pos = written
	}
	return b.String(), pos
}

func toSuperscript(digits string) string {
	var b strings.Builder
	for i := 0; i < len(digits); i++ {
		b.WriteRune(superscripts[digits[i]-'0'])
	}
	return b.String()
}

// ToCanonical converts display text back to the canonical ASCII form:
// superscript runs become "**" exponents, display glyphs become their
// ASCII names, fullwidth forms are folded, and a variable or π written
// directly after a numeral, ')' or another identifier gets an explicit '*'.
func ToCanonical(display string) string {
	s := width.Fold.String(display)
	var b strings.Builder
	b.Grow(len(s))
	last := func() byte {
		str := b.String()
		if str == "" {
			return 0
		}
		return str[len(str)-1]
	}

	for i := 0; i < len(s); {
		c := s[i]
		if isIdentStart(c) {
			end := scanIdent(s, i)
			word := s[i:end]
			if isCatalogVariable(word) && (impliesMul(last()) || isIdentPart(last())) {
				b.WriteByte('*')
			}
			b.WriteString(word)
			i = end
			continue
		}
		if c < utf8.RuneSelf {
			b.WriteByte(c)
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if d, ok := superscriptDigit(r); ok {
			b.WriteString("**")
			b.WriteByte(d)
			i += size
			for i < len(s) {
				r, size = utf8.DecodeRuneInString(s[i:])
				d, ok = superscriptDigit(r)
				if !ok {
					break
				}
				b.WriteByte(d)
				i += size
			}
			continue
		}
		if text, ok := displayGlyphs[r]; ok {
			if r == 'π' && (impliesMul(last()) || isIdentPart(last())) {
				b.WriteByte('*')
			}
			b.WriteString(text)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}
