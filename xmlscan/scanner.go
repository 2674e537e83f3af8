// Package xmlscan is a tolerant, single-pass XML tokenizer that preserves
// exact byte provenance. It emits structural tokens (element open, element
// close, self-closing element, text, end of input) whose spans slice the
// original input back out verbatim, which is what makes byte-exact snippet
// retrieval possible without re-serialization.
//
// The scanner is deliberately forgiving: it accepts single- or double-quoted
// attributes, whitespace around '=', unquoted attribute values, valueless
// attributes, and it consumes XML declarations, processing instructions,
// comments, CDATA sections and DOCTYPE declarations without emitting tokens.
// It does not validate well-formedness beyond what it needs to keep moving;
// matching open and close tags is the caller's concern.
package xmlscan

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// TokenKind identifies the structural class of a token.
type TokenKind int

const (
	StartElement TokenKind = iota // <name attr="v">
	EndElement                    // </name>
	SelfClosing                   // <name attr="v"/>
	Text                          // character data between tags
	EOF                           // end of input
)

func (k TokenKind) String() string {
	switch k {
	case StartElement:
		return "start-element"
	case EndElement:
		return "end-element"
	case SelfClosing:
		return "self-closing"
	case Text:
		return "text"
	case EOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Token is one structural event. Start and End delimit the token's exact
// byte span in the input: input[Start:End] is the original markup of the
// token, including insignificant whitespace and attribute order.
type Token struct {
	Kind  TokenKind
	Name  string            // element name; empty for Text and EOF
	Attrs map[string]string // decoded attribute values; nil unless an open or self-closing tag has attributes
	Start int
	End   int
}

// SyntaxError reports a structural problem the scanner cannot move past.
// Offset is the byte position of the problem in the original input.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at byte %d: %s", e.Offset, e.Msg)
}

// Scanner tokenizes a byte slice in a single left-to-right pass.
// It never copies or mutates the input.
type Scanner struct {
	data []byte
	pos  int
	err  error
}

// New creates a scanner over data. A leading UTF-8 byte order mark is
// skipped; all token offsets remain absolute positions in data.
func New(data []byte) *Scanner {
	s := &Scanner{data: data}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		s.pos = 3
	}
	return s
}

// Slice returns the exact original bytes of a token.
func (s *Scanner) Slice(tok Token) []byte {
	return s.data[tok.Start:tok.End]
}

// Next returns the next structural token. Once it has returned an error or
// an EOF token it keeps returning the same result.
func (s *Scanner) Next() (Token, error) {
	if s.err != nil {
		return Token{}, s.err
	}
	for {
		if s.pos >= len(s.data) {
			return Token{Kind: EOF, Start: s.pos, End: s.pos}, nil
		}
		if s.data[s.pos] != '<' {
			return s.scanText(), nil
		}
		if s.pos+1 >= len(s.data) {
			return Token{}, s.fail(s.pos, "unterminated markup at end of input")
		}
		switch s.data[s.pos+1] {
		case '?':
			if err := s.skipUntil(s.pos+2, "?>", "unterminated processing instruction"); err != nil {
				return Token{}, err
			}
		case '!':
			if err := s.skipDeclaration(); err != nil {
				return Token{}, err
			}
		case '/':
			return s.scanEndTag()
		default:
			return s.scanStartTag()
		}
	}
}

// scanText consumes a run of character data up to the next '<' or the end
// of input. Whitespace-only runs are reported too; callers that do not care
// about text simply skip the token.
func (s *Scanner) scanText() Token {
	start := s.pos
	for s.pos < len(s.data) && s.data[s.pos] != '<' {
		s.pos++
	}
	return Token{Kind: Text, Start: start, End: s.pos}
}

// skipUntil advances past the first occurrence of marker at or after from.
func (s *Scanner) skipUntil(from int, marker string, msg string) error {
	idx := bytes.Index(s.data[from:], []byte(marker))
	if idx < 0 {
		return s.fail(s.pos, msg)
	}
	s.pos = from + idx + len(marker)
	return nil
}

// skipDeclaration consumes a construct starting with "<!": a comment, a
// CDATA section, or a DOCTYPE-style declaration. DOCTYPE internal subsets
// may contain '>' inside [...], so bracket depth is tracked.
func (s *Scanner) skipDeclaration() error {
	rest := s.data[s.pos:]
	switch {
	case bytes.HasPrefix(rest, []byte("<!--")):
		return s.skipUntil(s.pos+4, "-->", "unterminated comment")
	case bytes.HasPrefix(rest, []byte("<![CDATA[")):
		return s.skipUntil(s.pos+9, "]]>", "unterminated CDATA section")
	default:
		depth := 0
		for i := s.pos + 2; i < len(s.data); i++ {
			switch s.data[i] {
			case '[':
				depth++
			case ']':
				depth--
			case '>':
				if depth <= 0 {
					s.pos = i + 1
					return nil
				}
			}
		}
		return s.fail(s.pos, "unterminated declaration")
	}
}

// scanEndTag parses "</name>" with optional whitespace before '>'.
func (s *Scanner) scanEndTag() (Token, error) {
	start := s.pos
	s.pos += 2 // "</"
	name := s.scanName()
	if name == "" {
		return Token{}, s.fail(start, "closing tag with no name")
	}
	s.skipSpace()
	if s.pos >= len(s.data) || s.data[s.pos] != '>' {
		return Token{}, s.fail(start, fmt.Sprintf("unterminated closing tag </%s", name))
	}
	s.pos++
	return Token{Kind: EndElement, Name: name, Start: start, End: s.pos}, nil
}

// scanStartTag parses an opening or self-closing tag with its attributes.
func (s *Scanner) scanStartTag() (Token, error) {
	start := s.pos
	s.pos++ // '<'
	name := s.scanName()
	if name == "" {
		return Token{}, s.fail(start, "tag with no name")
	}

	var attrs map[string]string
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			return Token{}, s.fail(start, fmt.Sprintf("unterminated tag <%s", name))
		}
		switch s.data[s.pos] {
		case '>':
			s.pos++
			return Token{Kind: StartElement, Name: name, Attrs: attrs, Start: start, End: s.pos}, nil
		case '/':
			if s.pos+1 >= len(s.data) || s.data[s.pos+1] != '>' {
				return Token{}, s.fail(s.pos, fmt.Sprintf("stray '/' in tag <%s", name))
			}
			s.pos += 2
			return Token{Kind: SelfClosing, Name: name, Attrs: attrs, Start: start, End: s.pos}, nil
		}

		key := s.scanName()
		if key == "" {
			return Token{}, s.fail(s.pos, fmt.Sprintf("malformed attribute in tag <%s", name))
		}
		value, err := s.scanAttrValue(name)
		if err != nil {
			return Token{}, err
		}
		if attrs == nil {
			attrs = make(map[string]string, 4)
		}
		attrs[key] = value
	}
}

// scanAttrValue parses the optional "= value" part after an attribute name.
// A missing '=' yields an empty value. Values may be quoted with either
// quote character or left bare.
func (s *Scanner) scanAttrValue(tag string) (string, error) {
	s.skipSpace()
	if s.pos >= len(s.data) || s.data[s.pos] != '=' {
		return "", nil
	}
	s.pos++
	s.skipSpace()
	if s.pos >= len(s.data) {
		return "", s.fail(s.pos, fmt.Sprintf("unterminated attribute in tag <%s", tag))
	}
	if q := s.data[s.pos]; q == '"' || q == '\'' {
		s.pos++
		idx := bytes.IndexByte(s.data[s.pos:], q)
		if idx < 0 {
			return "", s.fail(s.pos-1, fmt.Sprintf("unterminated attribute value in tag <%s", tag))
		}
		value := string(s.data[s.pos : s.pos+idx])
		s.pos += idx + 1
		return Unescape(value), nil
	}
	// Bare value: run until whitespace or tag end.
	valStart := s.pos
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && s.data[s.pos] != '>' && s.data[s.pos] != '/' {
		s.pos++
	}
	return Unescape(string(s.data[valStart:s.pos])), nil
}

// scanName consumes an element or attribute name.
func (s *Scanner) scanName() string {
	start := s.pos
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isSpace(c) || c == '>' || c == '/' || c == '=' || c == '<' {
			break
		}
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *Scanner) skipSpace() {
	for s.pos < len(s.data) && isSpace(s.data[s.pos]) {
		s.pos++
	}
}

func (s *Scanner) fail(offset int, msg string) error {
	s.err = &SyntaxError{Offset: offset, Msg: msg}
	return s.err
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// Unescape decodes the five predefined XML entities and numeric character
// references. Unknown or malformed references pass through verbatim, which
// keeps the scanner tolerant of sloppy catalog files.
func Unescape(value string) string {
	amp := strings.IndexByte(value, '&')
	if amp < 0 {
		return value
	}

	var b strings.Builder
	b.Grow(len(value))
	b.WriteString(value[:amp])
	rest := value[amp:]
	for {
		i := strings.IndexByte(rest, '&')
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:i])
		rest = rest[i:]

		end := strings.IndexByte(rest, ';')
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		if r, ok := decodeEntity(rest[1:end]); ok {
			b.WriteString(r)
			rest = rest[end+1:]
		} else {
			b.WriteByte('&')
			rest = rest[1:]
		}
	}
}

func decodeEntity(name string) (string, bool) {
	switch name {
	case "amp":
		return "&", true
	case "lt":
		return "<", true
	case "gt":
		return ">", true
	case "quot":
		return `"`, true
	case "apos":
		return "'", true
	}
	if len(name) > 1 && name[0] == '#' {
		digits := name[1:]
		base := 10
		if digits[0] == 'x' || digits[0] == 'X' {
			digits = digits[1:]
			base = 16
		}
		n, err := strconv.ParseUint(digits, base, 32)
		if err != nil {
			return "", false
		}
		return string(rune(n)), true
	}
	return "", false
}
