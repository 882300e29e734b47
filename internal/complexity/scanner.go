package complexity

// The scanner tokenizes JavaScript/TypeScript source just deeply enough
// for structural analysis: identifiers, punctuation, and the operators
// that carry cyclomatic weight. String bodies, comments, and regex
// literals are consumed without emitting tokens so their contents never
// count as decision points.

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenPunct
	tokenNumber
	tokenString
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

type scanner struct {
	src  string
	pos  int
	line int
	col  int

	// templateDepths records the brace depth at which each open
	// template interpolation started, innermost last.
	templateDepths []int
	braceDepth     int

	tokens []token
	prev   *token // last emitted token, for regex-vs-division
}

func scan(src string) []token {
	s := &scanner{src: src, line: 1, col: 1}
	s.run()
	return s.tokens
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.advance(1)
		case c == '/' && s.peek(1) == '/':
			s.skipLineComment()
		case c == '/' && s.peek(1) == '*':
			s.skipBlockComment()
		case c == '\'' || c == '"':
			s.skipString(c)
		case c == '`':
			s.skipTemplate()
		case c == '/' && s.regexAllowed():
			s.skipRegex()
		case isIdentStart(c):
			s.scanIdent()
		case c >= '0' && c <= '9':
			s.scanNumber()
		default:
			s.scanPunct()
		}
	}
}

func (s *scanner) peek(offset int) byte {
	if s.pos+offset >= len(s.src) {
		return 0
	}
	return s.src[s.pos+offset]
}

func (s *scanner) advance(n int) {
	for i := 0; i < n && s.pos < len(s.src); i++ {
		if s.src[s.pos] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
		s.pos++
	}
}

func (s *scanner) emit(kind tokenKind, text string, line, col int) {
	s.tokens = append(s.tokens, token{kind: kind, text: text, line: line, col: col})
	s.prev = &s.tokens[len(s.tokens)-1]
}

func (s *scanner) skipLineComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.advance(1)
	}
}

func (s *scanner) skipBlockComment() {
	s.advance(2)
	for s.pos < len(s.src) {
		if s.src[s.pos] == '*' && s.peek(1) == '/' {
			s.advance(2)
			return
		}
		s.advance(1)
	}
}

// skipString consumes a string literal, emitting a single placeholder
// token. The placeholder keeps expression shape intact so a ternary
// with a string consequent is still recognized.
func (s *scanner) skipString(quote byte) {
	line, col := s.line, s.col
	defer s.emit(tokenString, "(string)", line, col)
	s.advance(1)
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.advance(2)
			continue
		}
		if c == quote || c == '\n' {
			s.advance(1)
			return
		}
		s.advance(1)
	}
}

// skipTemplate consumes a template literal up to its closing backtick.
// When it hits "${" it returns to normal scanning; the matching "}" is
// recognized in scanPunct via templateDepths and resumes the literal.
func (s *scanner) skipTemplate() {
	s.emit(tokenString, "(template)", s.line, s.col)
	s.advance(1)
	s.consumeTemplateBody()
}

func (s *scanner) consumeTemplateBody() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.advance(2)
			continue
		}
		if c == '`' {
			s.advance(1)
			return
		}
		if c == '$' && s.peek(1) == '{' {
			s.advance(2)
			s.templateDepths = append(s.templateDepths, s.braceDepth)
			s.braceDepth++
			return
		}
		s.advance(1)
	}
}

func (s *scanner) skipRegex() {
	s.advance(1)
	inClass := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.advance(2)
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			s.advance(1)
			// Trailing flags.
			for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
				s.advance(1)
			}
			return
		case c == '\n':
			// Not a regex after all; bail out.
			return
		}
		s.advance(1)
	}
}

// regexAllowed reports whether a '/' at the current position starts a
// regex literal rather than division, based on the preceding token.
func (s *scanner) regexAllowed() bool {
	if s.prev == nil {
		return true
	}
	if s.prev.kind == tokenIdent {
		switch s.prev.text {
		case "return", "typeof", "instanceof", "in", "of", "new",
			"delete", "void", "throw", "case", "do", "else", "yield", "await":
			return true
		}
		return false
	}
	if s.prev.kind == tokenNumber || s.prev.kind == tokenString {
		return false
	}
	switch s.prev.text {
	case ")", "]", "}":
		return false
	}
	return true
}

func (s *scanner) scanIdent() {
	line, col := s.line, s.col
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.advance(1)
	}
	s.emit(tokenIdent, s.src[start:s.pos], line, col)
}

func (s *scanner) scanNumber() {
	line, col := s.line, s.col
	start := s.pos
	for s.pos < len(s.src) && (isIdentPart(s.src[s.pos]) || s.src[s.pos] == '.') {
		s.advance(1)
	}
	s.emit(tokenNumber, s.src[start:s.pos], line, col)
}

// scanPunct emits punctuation, folding the multi-character operators
// the analyzer cares about into single tokens.
func (s *scanner) scanPunct() {
	line, col := s.line, s.col
	c := s.src[s.pos]

	switch c {
	case '{':
		s.braceDepth++
		s.advance(1)
		s.emit(tokenPunct, "{", line, col)
		return
	case '}':
		s.braceDepth--
		if n := len(s.templateDepths); n > 0 && s.templateDepths[n-1] == s.braceDepth {
			// Closes a template interpolation; resume the literal.
			s.templateDepths = s.templateDepths[:n-1]
			s.advance(1)
			s.consumeTemplateBody()
			return
		}
		s.advance(1)
		s.emit(tokenPunct, "}", line, col)
		return
	}

	two := ""
	if s.pos+1 < len(s.src) {
		two = s.src[s.pos : s.pos+2]
	}
	switch two {
	case "&&", "||", "??", "?.", "=>":
		s.advance(2)
		s.emit(tokenPunct, two, line, col)
		return
	}

	s.advance(1)
	s.emit(tokenPunct, string(c), line, col)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
