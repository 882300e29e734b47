package complexity

// The parser performs a single pass over the token stream, opening a
// scored unit at every function, method, or class boundary and
// accumulating decision points into the innermost open unit. Units live
// in an arena addressed by index; parent indexes are used only for
// navigation while building, never for ownership.

type unit struct {
	name     string
	kind     UnitKind
	score    int
	line     int
	col      int
	parent   int
	children []int

	// exprBody marks an arrow function without a braced body; it
	// closes at the next expression terminator instead of a brace.
	exprBody   bool
	parenEntry int
	braceEntry int
}

// pendingUnit is a unit that has been announced (keyword or arrow seen)
// but whose body brace has not opened yet.
type pendingUnit struct {
	arenaIdx   int
	parenEntry int
}

type braceKind byte

const (
	braceBlock     braceKind = iota // plain block or object literal
	braceUnitBody                   // function/method body
	braceClassBody                  // class body
)

type braceFrame struct {
	kind     braceKind
	arenaIdx int
}

type parser struct {
	tokens []token
	pos    int

	arena   []unit
	stack   []int // open unit indexes, innermost last
	pending []pendingUnit
	braces  []braceFrame

	parenDepth int
}

func parse(tokens []token) []unit {
	p := &parser{tokens: tokens}

	// Implicit module unit absorbs top-level decision points.
	p.arena = append(p.arena, unit{name: "(module)", kind: KindModule, score: 1, line: 1, col: 1, parent: -1})
	p.stack = []int{0}

	for p.pos = 0; p.pos < len(p.tokens); p.pos++ {
		p.step(p.tokens[p.pos])
	}

	// Malformed or truncated source can leave units open; settle them
	// so classes still get a computed score.
	for len(p.stack) > 1 {
		top := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		p.finalize(top)
	}
	return p.arena
}

func (p *parser) step(tok token) {
	if tok.kind == tokenIdent {
		p.stepIdent(tok)
		return
	}

	switch tok.text {
	case "{":
		p.openBrace()
	case "}":
		p.closeBrace()
	case "(", "[":
		p.parenDepth++
	case ")", "]":
		p.closeExprArrows(p.parenDepth)
		p.parenDepth--
	case ";", ",":
		p.closeExprArrows(p.parenDepth)
	case "=>":
		p.openArrow(tok)
	case "&&", "||", "??":
		p.addDecision()
	case "?":
		if p.isTernary() {
			p.addDecision()
		}
	}
}

func (p *parser) stepIdent(tok token) {
	// Property access like obj.catch is not a keyword.
	if prev := p.prevToken(); prev != nil && (prev.text == "." || prev.text == "?.") {
		p.maybeOpenMethod(tok)
		return
	}

	switch tok.text {
	case "function":
		p.openFunction(tok)
	case "class":
		p.openClass(tok)
	case "if", "for", "while", "case", "catch":
		p.addDecision()
	case "default":
		if next := p.peekToken(1); next != nil && next.text == ":" {
			p.addDecision()
		}
	default:
		p.maybeOpenMethod(tok)
	}
}

// maybeOpenMethod opens a method unit when an identifier is directly
// followed by "(" at class-body level. Modifier keywords (static, get,
// set, async) never match because they are followed by an identifier.
func (p *parser) maybeOpenMethod(tok token) {
	if !p.inClassBody() {
		return
	}
	// Decorator names look like calls but are not methods.
	if prev := p.prevToken(); prev != nil && prev.text == "@" {
		return
	}
	next := p.peekToken(1)
	if next == nil || next.text != "(" {
		return
	}
	p.announce(unit{name: tok.text, kind: KindMethod, score: 1, line: tok.line, col: tok.col})
}

func (p *parser) openFunction(tok token) {
	name := "(anonymous)"
	// Skip a generator star, then take an optional name.
	i := 1
	if next := p.peekToken(i); next != nil && next.text == "*" {
		i++
	}
	if next := p.peekToken(i); next != nil && next.kind == tokenIdent {
		name = next.text
	}

	kind := KindFunction
	if p.currentKind() == KindClass {
		kind = KindMethod
	}
	p.announce(unit{name: name, kind: kind, score: 1, line: tok.line, col: tok.col})
}

func (p *parser) openClass(tok token) {
	name := "(anonymous)"
	if next := p.peekToken(1); next != nil && next.kind == tokenIdent {
		name = next.text
	}
	p.announce(unit{name: name, kind: KindClass, line: tok.line, col: tok.col})
}

func (p *parser) openArrow(tok token) {
	kind := KindFunction
	if p.currentKind() == KindClass {
		kind = KindMethod
	}
	u := unit{name: p.arrowName(), kind: kind, score: 1, line: tok.line, col: tok.col}

	if next := p.peekToken(1); next != nil && next.text == "{" {
		p.announce(u)
		return
	}

	// Expression body: open immediately, close at the next terminator
	// at or outside the current nesting level.
	u.exprBody = true
	u.parenEntry = p.parenDepth
	u.braceEntry = len(p.braces)
	idx := p.attach(u)
	p.stack = append(p.stack, idx)
}

// arrowName walks back from "=>" over the parameter list to find an
// assignment or property name, e.g. "const f = (a, b) =>".
func (p *parser) arrowName() string {
	i := p.pos - 1
	if i < 0 {
		return "(arrow)"
	}
	if p.tokens[i].text == ")" {
		depth := 1
		for i--; i >= 0 && depth > 0; i-- {
			switch p.tokens[i].text {
			case ")":
				depth++
			case "(":
				depth--
			}
		}
	} else if p.tokens[i].kind == tokenIdent {
		// Single unparenthesized parameter.
		i--
	} else {
		return "(arrow)"
	}

	if i >= 0 && p.tokens[i].kind == tokenIdent && p.tokens[i].text == "async" {
		i--
	}
	if i >= 0 && (p.tokens[i].text == "=" || p.tokens[i].text == ":") {
		if i > 0 && p.tokens[i-1].kind == tokenIdent {
			return p.tokens[i-1].text
		}
	}
	return "(arrow)"
}

// announce registers a unit waiting for its body brace: the next "{"
// at the current paren depth.
func (p *parser) announce(u unit) {
	u.parenEntry = p.parenDepth
	idx := p.attach(u)
	p.pending = append(p.pending, pendingUnit{arenaIdx: idx, parenEntry: p.parenDepth})
}

// attach appends the unit to the arena as a child of the innermost
// open unit and returns its index.
func (p *parser) attach(u unit) int {
	parent := p.stack[len(p.stack)-1]
	u.parent = parent
	idx := len(p.arena)
	p.arena = append(p.arena, u)
	p.arena[parent].children = append(p.arena[parent].children, idx)
	return idx
}

func (p *parser) openBrace() {
	if n := len(p.pending); n > 0 && p.pending[n-1].parenEntry == p.parenDepth {
		idx := p.pending[n-1].arenaIdx
		p.pending = p.pending[:n-1]
		p.stack = append(p.stack, idx)

		kind := braceUnitBody
		if p.arena[idx].kind == KindClass {
			kind = braceClassBody
		}
		p.braces = append(p.braces, braceFrame{kind: kind, arenaIdx: idx})
		return
	}
	p.braces = append(p.braces, braceFrame{kind: braceBlock})
}

func (p *parser) closeBrace() {
	if len(p.braces) == 0 {
		return
	}
	frame := p.braces[len(p.braces)-1]
	p.braces = p.braces[:len(p.braces)-1]

	// Expression arrows opened inside this brace close with it.
	p.closeExprArrowsAtBrace(len(p.braces))

	if frame.kind == braceUnitBody || frame.kind == braceClassBody {
		p.closeUnit(frame.arenaIdx)
	}
}

// closeExprArrows closes expression-bodied arrows whose entry paren
// depth is at or above the given threshold.
func (p *parser) closeExprArrows(minDepth int) {
	for len(p.stack) > 1 {
		top := p.stack[len(p.stack)-1]
		if !p.arena[top].exprBody || p.arena[top].parenEntry < minDepth {
			return
		}
		p.closeUnit(top)
	}
}

func (p *parser) closeExprArrowsAtBrace(braceLen int) {
	for len(p.stack) > 1 {
		top := p.stack[len(p.stack)-1]
		if !p.arena[top].exprBody || p.arena[top].braceEntry < braceLen {
			return
		}
		p.closeUnit(top)
	}
}

// closeUnit pops the unit (and any expression arrows left open inside
// it) off the stack and finalizes class scores.
func (p *parser) closeUnit(idx int) {
	for len(p.stack) > 1 {
		top := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		p.finalize(top)
		if top == idx {
			return
		}
	}
}

// finalize computes a class's score as the maximum of its direct
// methods, never a sum. Classes with no methods score 1.
func (p *parser) finalize(idx int) {
	u := &p.arena[idx]
	if u.kind != KindClass {
		return
	}
	max := 0
	for _, child := range u.children {
		c := p.arena[child]
		if c.kind == KindMethod && c.score > max {
			max = c.score
		}
	}
	if max == 0 {
		max = 1
	}
	u.score = max
}

func (p *parser) addDecision() {
	p.arena[p.stack[len(p.stack)-1]].score++
}

// isTernary filters out TypeScript optional markers ("a?: string",
// "foo?(): void") which are '?' directly followed by punctuation.
func (p *parser) isTernary() bool {
	next := p.peekToken(1)
	if next == nil {
		return false
	}
	switch next.text {
	case ":", ")", ",", "]", "}", ";":
		return false
	case "(":
		// "foo?(...)" is an optional method signature inside a class
		// body; anywhere else "? (" starts a ternary consequent.
		return !p.inClassBody()
	}
	return true
}

func (p *parser) inClassBody() bool {
	return len(p.braces) > 0 && p.braces[len(p.braces)-1].kind == braceClassBody
}

func (p *parser) currentKind() UnitKind {
	return p.arena[p.stack[len(p.stack)-1]].kind
}

func (p *parser) prevToken() *token {
	if p.pos == 0 {
		return nil
	}
	return &p.tokens[p.pos-1]
}

func (p *parser) peekToken(offset int) *token {
	if p.pos+offset >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+offset]
}
