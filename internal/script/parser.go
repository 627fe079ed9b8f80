package script

import "github.com/zclconf/go-cty/cty"

// unsupported keywords are rejected with a clear message instead of a
// generic unexpected-token error.
var unsupported = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"function": true, "class": true, "new": true, "throw": true, "try": true,
	"catch": true, "switch": true, "import": true, "export": true,
	"delete": true, "this": true, "yield": true, "with": true,
}

// binaryLevels lists binary operators from loosest to tightest.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

// Parse parses program text into a Program.
func Parse(src string) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	prog := &Program{}
	for !p.at(tokEOF, "") {
		if p.atPunct(";") {
			p.take()
			continue
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	return prog, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) take() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// at reports whether the next token has the kind and, when text is not
// empty, the text.
func (p *parser) at(kind tokenKind, text string) bool {
	tok := p.peek()
	return tok.kind == kind && (text == "" || tok.text == text)
}

func (p *parser) atPunct(text string) bool { return p.at(tokPunct, text) }

func (p *parser) expectPunct(text string) (token, error) {
	if !p.atPunct(text) {
		return token{}, p.unexpected("'" + text + "'")
	}
	return p.take(), nil
}

func (p *parser) unexpected(want string) error {
	tok := p.peek()
	got := tok.kind.String()
	if tok.kind == tokPunct || tok.kind == tokIdent {
		got = "'" + tok.text + "'"
	}
	msg := "unexpected " + got
	if want != "" {
		msg += ", expected " + want
	}
	return &SyntaxError{Pos: tok.pos, Message: msg}
}

// endStatement consumes an optional semicolon. Without one the statement
// must be followed by a line break or the end of input.
func (p *parser) endStatement() error {
	if p.atPunct(";") {
		p.take()
		return nil
	}
	if tok := p.peek(); tok.kind == tokEOF || tok.nl {
		return nil
	}
	return p.unexpected("';'")
}

func (p *parser) statement() (Stmt, error) {
	tok := p.peek()
	if tok.kind == tokIdent {
		switch {
		case unsupported[tok.text]:
			return nil, &SyntaxError{Pos: tok.pos, Message: "unsupported statement '" + tok.text + "'"}
		case tok.text == "const" || tok.text == "let" || tok.text == "var":
			return p.declaration()
		case tok.text == "return":
			return p.returnStatement()
		case p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "=":
			p.take()
			p.take()
			value, err := p.expression()
			if err != nil {
				return nil, err
			}
			return &AssignStmt{At: tok.pos, Name: tok.text, Value: value}, p.endStatement()
		}
	}

	x, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.atPunct("=") {
		return nil, &SyntaxError{Pos: p.peek().pos, Message: "invalid assignment target"}
	}
	return &ExprStmt{At: tok.pos, X: x}, p.endStatement()
}

func (p *parser) declaration() (Stmt, error) {
	kw := p.take()
	name := p.peek()
	if name.kind != tokIdent || isKeyword(name.text) {
		return nil, p.unexpected("variable name")
	}
	p.take()

	decl := &DeclStmt{At: kw.pos, Kind: kw.text, Name: name.text}
	if p.atPunct("=") {
		p.take()
		init, err := p.expression()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	} else if kw.text == "const" {
		return nil, &SyntaxError{Pos: name.pos, Message: "missing initializer in const declaration"}
	}
	return decl, p.endStatement()
}

func (p *parser) returnStatement() (Stmt, error) {
	kw := p.take()
	next := p.peek()
	if next.kind == tokEOF || next.nl || (next.kind == tokPunct && next.text == ";") {
		return &ReturnStmt{At: kw.pos}, p.endStatement()
	}
	x, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ReturnStmt{At: kw.pos, X: x}, p.endStatement()
}

func (p *parser) expression() (Expr, error) {
	cond, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if !p.atPunct("?") {
		return cond, nil
	}
	q := p.take()
	then, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	els, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &Conditional{At: q.pos, Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) binary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	x, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOp(binaryLevels[level])
		if !ok {
			return x, nil
		}
		y, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		x = &Binary{At: op.pos, Op: op.text, X: x, Y: y}
	}
}

func (p *parser) matchOp(ops []string) (token, bool) {
	tok := p.peek()
	if tok.kind != tokPunct {
		return token{}, false
	}
	for _, op := range ops {
		if tok.text == op {
			return p.take(), true
		}
	}
	return token{}, false
}

func (p *parser) unary() (Expr, error) {
	tok := p.peek()
	switch {
	case tok.kind == tokPunct && (tok.text == "-" || tok.text == "+" || tok.text == "!"):
		p.take()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: tok.pos, Op: tok.text, X: x}, nil
	case tok.kind == tokIdent && tok.text == "typeof":
		p.take()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: tok.pos, Op: "typeof", X: x}, nil
	case tok.kind == tokIdent && tok.text == "await":
		p.take()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Await{At: tok.pos, X: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokPunct && tok.text == ".":
			p.take()
			name := p.peek()
			if name.kind != tokIdent {
				return nil, p.unexpected("property name")
			}
			p.take()
			x = &Member{At: name.pos, X: x, Name: name.text}
		case tok.kind == tokPunct && tok.text == "[":
			p.take()
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			x = &Index{At: tok.pos, X: x, Index: idx}
		case tok.kind == tokPunct && tok.text == "(":
			p.take()
			args, err := p.list(")")
			if err != nil {
				return nil, err
			}
			x = &Call{At: tok.pos, Fn: x, Args: args}
		default:
			return x, nil
		}
	}
}

// list parses comma separated expressions up to and including close.
// A trailing comma is allowed.
func (p *parser) list(close string) ([]Expr, error) {
	var items []Expr
	for !p.atPunct(close) {
		item, err := p.expression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.atPunct(",") {
			break
		}
		p.take()
	}
	if _, err := p.expectPunct(close); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *parser) primary() (Expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.take()
		v, err := cty.ParseNumberVal(tok.text)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.pos, Message: "invalid number " + tok.text}
		}
		return &Literal{At: tok.pos, Value: v}, nil
	case tokString:
		p.take()
		return &Literal{At: tok.pos, Value: cty.StringVal(tok.text)}, nil
	case tokIdent:
		switch tok.text {
		case "true", "false":
			p.take()
			return &Literal{At: tok.pos, Value: cty.BoolVal(tok.text == "true")}, nil
		case "null":
			p.take()
			return &Literal{At: tok.pos, Value: Null}, nil
		case "undefined":
			p.take()
			return &Undefined{At: tok.pos}, nil
		}
		if isKeyword(tok.text) {
			return nil, p.unexpected("expression")
		}
		p.take()
		return &Ident{At: tok.pos, Name: tok.text}, nil
	case tokPunct:
		switch tok.text {
		case "(":
			p.take()
			x, err := p.expression()
			if err != nil {
				return nil, err
			}
			_, err = p.expectPunct(")")
			return x, err
		case "[":
			p.take()
			elems, err := p.list("]")
			if err != nil {
				return nil, err
			}
			return &Array{At: tok.pos, Elems: elems}, nil
		case "{":
			return p.object()
		}
	}
	return nil, p.unexpected("expression")
}

func (p *parser) object() (Expr, error) {
	open := p.take()
	obj := &Object{At: open.pos}
	for !p.atPunct("}") {
		key := p.peek()
		if key.kind != tokIdent && key.kind != tokString && key.kind != tokNumber {
			return nil, p.unexpected("property name")
		}
		p.take()

		var value Expr
		if key.kind == tokIdent && (p.atPunct(",") || p.atPunct("}")) {
			value = &Ident{At: key.pos, Name: key.text}
		} else {
			if _, err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			v, err := p.expression()
			if err != nil {
				return nil, err
			}
			value = v
		}
		obj.Keys = append(obj.Keys, key.text)
		obj.Values = append(obj.Values, value)

		if !p.atPunct(",") {
			break
		}
		p.take()
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return obj, nil
}

func isKeyword(word string) bool {
	switch word {
	case "const", "let", "var", "return", "await", "typeof", "true", "false", "null", "undefined":
		return true
	}
	return unsupported[word]
}
