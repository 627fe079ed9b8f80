package script

import "github.com/zclconf/go-cty/cty"

// Program is a parsed program: the body of one asynchronous function.
type Program struct {
	Body []Stmt
}

// Stmt is a statement node.
type Stmt interface {
	Pos() Pos
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Pos() Pos
	exprNode()
}

type (
	// ExprStmt is an expression evaluated for its side effects.
	ExprStmt struct {
		At Pos
		X  Expr
	}

	// DeclStmt is `const|let|var Name = Init`.
	DeclStmt struct {
		At   Pos
		Kind string
		Name string
		Init Expr // nil when omitted
	}

	// AssignStmt is `Name = Value`.
	AssignStmt struct {
		At    Pos
		Name  string
		Value Expr
	}

	// ReturnStmt ends the program with a result.
	ReturnStmt struct {
		At Pos
		X  Expr // nil for a bare return
	}
)

func (s *ExprStmt) Pos() Pos   { return s.At }
func (s *DeclStmt) Pos() Pos   { return s.At }
func (s *AssignStmt) Pos() Pos { return s.At }
func (s *ReturnStmt) Pos() Pos { return s.At }

func (*ExprStmt) stmtNode()   {}
func (*DeclStmt) stmtNode()   {}
func (*AssignStmt) stmtNode() {}
func (*ReturnStmt) stmtNode() {}

type (
	// Literal is a string, number, boolean or null constant.
	Literal struct {
		At    Pos
		Value cty.Value
	}

	// Undefined is the `undefined` keyword.
	Undefined struct {
		At Pos
	}

	// Ident references a local or injected name.
	Ident struct {
		At   Pos
		Name string
	}

	// Member is `X.Name`.
	Member struct {
		At   Pos
		X    Expr
		Name string
	}

	// Index is `X[Index]`.
	Index struct {
		At    Pos
		X     Expr
		Index Expr
	}

	// Call is `Fn(Args...)`.
	Call struct {
		At   Pos
		Fn   Expr
		Args []Expr
	}

	// Await is `await X`. Calls complete before they return, so awaiting
	// yields the operand.
	Await struct {
		At Pos
		X  Expr
	}

	// Unary is `-X`, `+X`, `!X` or `typeof X`.
	Unary struct {
		At Pos
		Op string
		X  Expr
	}

	// Binary is an arithmetic, comparison or logical operation.
	Binary struct {
		At   Pos
		Op   string
		X, Y Expr
	}

	// Conditional is `Cond ? Then : Else`.
	Conditional struct {
		At               Pos
		Cond, Then, Else Expr
	}

	// Object is an object literal; keys keep source order.
	Object struct {
		At     Pos
		Keys   []string
		Values []Expr
	}

	// Array is an array literal.
	Array struct {
		At    Pos
		Elems []Expr
	}
)

func (e *Literal) Pos() Pos     { return e.At }
func (e *Undefined) Pos() Pos   { return e.At }
func (e *Ident) Pos() Pos       { return e.At }
func (e *Member) Pos() Pos      { return e.At }
func (e *Index) Pos() Pos       { return e.At }
func (e *Call) Pos() Pos        { return e.At }
func (e *Await) Pos() Pos       { return e.At }
func (e *Unary) Pos() Pos       { return e.At }
func (e *Binary) Pos() Pos      { return e.At }
func (e *Conditional) Pos() Pos { return e.At }
func (e *Object) Pos() Pos      { return e.At }
func (e *Array) Pos() Pos       { return e.At }

func (*Literal) exprNode()     {}
func (*Undefined) exprNode()   {}
func (*Ident) exprNode()       {}
func (*Member) exprNode()      {}
func (*Index) exprNode()       {}
func (*Call) exprNode()        {}
func (*Await) exprNode()       {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Conditional) exprNode() {}
func (*Object) exprNode()      {}
func (*Array) exprNode()       {}
