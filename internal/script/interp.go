package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/zclconf/go-cty/cty"
)

// Eval parses and runs src with globals as its only free names.
func Eval(ctx context.Context, src string, globals Bindings) (Binding, error) {
	prog, err := Parse(src)
	if err != nil {
		return Binding{}, err
	}
	return Run(ctx, prog, globals)
}

// Run evaluates prog. The result is the operand of the first executed
// return statement, or undefined. ctx is checked before every statement
// and every host call.
func Run(ctx context.Context, prog *Program, globals Bindings) (Binding, error) {
	in := &interp{ctx: ctx, globals: globals, locals: make(map[string]*local)}
	for _, stmt := range prog.Body {
		in.stmt = stmt.Pos()
		if err := ctx.Err(); err != nil {
			return Binding{}, in.fail(stmt.Pos(), "execution cancelled", err)
		}
		result, done, err := in.exec(stmt)
		if err != nil {
			return Binding{}, err
		}
		if done {
			return result, nil
		}
	}
	return Binding{}, nil
}

type local struct {
	b        Binding
	constant bool
}

type frame struct {
	name string
	pos  Pos
}

type interp struct {
	ctx     context.Context
	globals Bindings
	locals  map[string]*local
	frames  []frame
	stmt    Pos
}

// fail builds a RuntimeError with the current call trace.
func (in *interp) fail(pos Pos, msg string, cause error) *RuntimeError {
	rerr := &RuntimeError{Message: msg, Pos: pos, Err: cause}
	var sb strings.Builder
	sb.WriteString("Error: " + msg + "\n")
	for i := len(in.frames) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "    at %s (%s)\n", in.frames[i].name, in.frames[i].pos)
	}
	fmt.Fprintf(&sb, "    at <program> (%s)", in.stmt)
	rerr.Trace = sb.String()

	var resp Responder
	if errors.As(cause, &resp) {
		rerr.Response = resp.Response()
	}
	return rerr
}

func (in *interp) failf(pos Pos, format string, args ...any) *RuntimeError {
	return in.fail(pos, fmt.Sprintf(format, args...), nil)
}

func (in *interp) exec(stmt Stmt) (Binding, bool, error) {
	switch s := stmt.(type) {
	case *ExprStmt:
		_, err := in.eval(s.X)
		return Binding{}, false, err

	case *DeclStmt:
		if _, exists := in.locals[s.Name]; exists {
			return Binding{}, false, in.failf(s.At, "Identifier '%s' has already been declared", s.Name)
		}
		var b Binding
		if s.Init != nil {
			v, err := in.eval(s.Init)
			if err != nil {
				return Binding{}, false, err
			}
			b = v
		}
		in.locals[s.Name] = &local{b: b, constant: s.Kind == "const"}
		return Binding{}, false, nil

	case *AssignStmt:
		v, err := in.eval(s.Value)
		if err != nil {
			return Binding{}, false, err
		}
		if l, ok := in.locals[s.Name]; ok {
			if l.constant {
				return Binding{}, false, in.failf(s.At, "Assignment to constant variable.")
			}
			l.b = v
			return Binding{}, false, nil
		}
		if _, ok := in.globals[s.Name]; ok {
			in.locals[s.Name] = &local{b: v}
			return Binding{}, false, nil
		}
		return Binding{}, false, in.failf(s.At, "%s is not defined", s.Name)

	case *ReturnStmt:
		if s.X == nil {
			return Binding{}, true, nil
		}
		v, err := in.eval(s.X)
		return v, true, err
	}
	return Binding{}, false, in.failf(stmt.Pos(), "unsupported statement %T", stmt)
}

func (in *interp) eval(expr Expr) (Binding, error) {
	switch e := expr.(type) {
	case *Literal:
		return ValueOf(e.Value), nil

	case *Undefined:
		return Binding{}, nil

	case *Ident:
		if l, ok := in.locals[e.Name]; ok {
			return l.b, nil
		}
		if b, ok := in.globals[e.Name]; ok {
			return b, nil
		}
		return Binding{}, in.failf(e.At, "%s is not defined", e.Name)

	case *Await:
		return in.eval(e.X)

	case *Member:
		x, err := in.eval(e.X)
		if err != nil {
			return Binding{}, err
		}
		return in.property(e.At, x, e.Name)

	case *Index:
		x, err := in.eval(e.X)
		if err != nil {
			return Binding{}, err
		}
		idx, err := in.eval(e.Index)
		if err != nil {
			return Binding{}, err
		}
		return in.index(e.At, x, idx)

	case *Call:
		return in.call(e)

	case *Unary:
		return in.unary(e)

	case *Binary:
		return in.binary(e)

	case *Conditional:
		cond, err := in.eval(e.Cond)
		if err != nil {
			return Binding{}, err
		}
		if truthy(cond) {
			return in.eval(e.Then)
		}
		return in.eval(e.Else)

	case *Object:
		attrs := make(map[string]cty.Value, len(e.Keys))
		for i, key := range e.Keys {
			v, err := in.eval(e.Values[i])
			if err != nil {
				return Binding{}, err
			}
			if !v.Defined() {
				continue
			}
			data, err := in.data(e.Values[i].Pos(), v)
			if err != nil {
				return Binding{}, err
			}
			attrs[key] = data
		}
		return ValueOf(cty.ObjectVal(attrs)), nil

	case *Array:
		elems := make([]cty.Value, 0, len(e.Elems))
		for _, el := range e.Elems {
			v, err := in.eval(el)
			if err != nil {
				return Binding{}, err
			}
			data, err := in.data(el.Pos(), v)
			if err != nil {
				return Binding{}, err
			}
			elems = append(elems, data)
		}
		return ValueOf(cty.TupleVal(elems)), nil
	}
	return Binding{}, in.failf(expr.Pos(), "unsupported expression %T", expr)
}

// data converts a binding to a value that can be stored in an object,
// an array or passed to a host function.
func (in *interp) data(pos Pos, b Binding) (cty.Value, error) {
	switch b.kind {
	case kindValue:
		return b.val, nil
	case kindUndefined:
		return Null, nil
	default:
		return cty.NilVal, in.failf(pos, "functions and namespaces cannot be used as data")
	}
}

func (in *interp) property(pos Pos, x Binding, name string) (Binding, error) {
	switch x.kind {
	case kindUndefined:
		return Binding{}, in.failf(pos, "Cannot read properties of undefined (reading '%s')", name)
	case kindNamespace:
		return x.ns[name], nil
	case kindFunc:
		return Binding{}, nil
	}

	v := x.val
	if v.IsNull() {
		return Binding{}, in.failf(pos, "Cannot read properties of null (reading '%s')", name)
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if ty.HasAttribute(name) {
			return ValueOf(v.GetAttr(name)), nil
		}
	case ty.IsMapType():
		key := cty.StringVal(name)
		if v.HasIndex(key).True() {
			return ValueOf(v.Index(key)), nil
		}
	}
	if name == "length" {
		switch {
		case ty == cty.String:
			return ValueOf(cty.NumberIntVal(int64(utf8.RuneCountInString(v.AsString())))), nil
		case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
			return ValueOf(cty.NumberIntVal(int64(v.LengthInt()))), nil
		}
	}
	return Binding{}, nil
}

func (in *interp) index(pos Pos, x, idx Binding) (Binding, error) {
	if idx.kind != kindValue || idx.val.IsNull() {
		return in.property(pos, x, toString(idx))
	}
	key := idx.val
	if key.Type() != cty.Number {
		return in.property(pos, x, toString(idx))
	}
	if x.kind != kindValue || x.val.IsNull() {
		return in.property(pos, x, toString(idx))
	}

	f := key.AsBigFloat()
	i, acc := f.Int64()
	if acc != big.Exact || i < 0 {
		return Binding{}, nil
	}
	v := x.val
	ty := v.Type()
	switch {
	case ty.IsTupleType() || ty.IsListType():
		if int(i) < v.LengthInt() {
			return ValueOf(v.Index(cty.NumberIntVal(i))), nil
		}
	case ty == cty.String:
		runes := []rune(v.AsString())
		if int(i) < len(runes) {
			return ValueOf(cty.StringVal(string(runes[i]))), nil
		}
	default:
		return in.property(pos, x, toString(idx))
	}
	return Binding{}, nil
}

func (in *interp) call(e *Call) (Binding, error) {
	callee, err := in.eval(e.Fn)
	if err != nil {
		return Binding{}, err
	}
	name := calleeName(e.Fn)
	fn, ok := callee.Func()
	if !ok {
		return Binding{}, in.failf(e.At, "%s is not a function", name)
	}

	args := make([]cty.Value, 0, len(e.Args))
	for _, a := range e.Args {
		b, err := in.eval(a)
		if err != nil {
			return Binding{}, err
		}
		v, err := in.data(a.Pos(), b)
		if err != nil {
			return Binding{}, err
		}
		args = append(args, v)
	}

	in.frames = append(in.frames, frame{name: name, pos: e.At})
	defer func() { in.frames = in.frames[:len(in.frames)-1] }()

	if err := in.ctx.Err(); err != nil {
		return Binding{}, in.fail(e.At, "execution cancelled", err)
	}
	result, err := fn.Call(args)
	if err != nil {
		return Binding{}, in.fail(e.At, err.Error(), err)
	}
	if result.IsNull() && result.Type() == cty.DynamicPseudoType {
		return Binding{}, nil
	}
	return ValueOf(result), nil
}

func calleeName(fn Expr) string {
	switch f := fn.(type) {
	case *Ident:
		return f.Name
	case *Member:
		return calleeName(f.X) + "." + f.Name
	default:
		return "<anonymous>"
	}
}

func (in *interp) unary(e *Unary) (Binding, error) {
	x, err := in.eval(e.X)
	if err != nil {
		return Binding{}, err
	}
	switch e.Op {
	case "!":
		return ValueOf(cty.BoolVal(!truthy(x))), nil
	case "typeof":
		return ValueOf(cty.StringVal(typeOf(x))), nil
	}

	n, err := in.toNumber(e.At, x)
	if err != nil {
		return Binding{}, err
	}
	if e.Op == "-" {
		return ValueOf(cty.NumberVal(new(big.Float).Neg(n))), nil
	}
	return ValueOf(cty.NumberVal(n)), nil
}

func (in *interp) binary(e *Binary) (Binding, error) {
	x, err := in.eval(e.X)
	if err != nil {
		return Binding{}, err
	}
	switch e.Op {
	case "&&":
		if !truthy(x) {
			return x, nil
		}
		return in.eval(e.Y)
	case "||":
		if truthy(x) {
			return x, nil
		}
		return in.eval(e.Y)
	}

	y, err := in.eval(e.Y)
	if err != nil {
		return Binding{}, err
	}

	switch e.Op {
	case "===":
		return ValueOf(cty.BoolVal(strictEquals(x, y))), nil
	case "!==":
		return ValueOf(cty.BoolVal(!strictEquals(x, y))), nil
	case "==":
		return ValueOf(cty.BoolVal(looseEquals(x, y))), nil
	case "!=":
		return ValueOf(cty.BoolVal(!looseEquals(x, y))), nil
	case "+":
		if isString(x) || isString(y) {
			return ValueOf(cty.StringVal(toString(x) + toString(y))), nil
		}
	case "<", "<=", ">", ">=":
		if isString(x) && isString(y) {
			return ValueOf(cty.BoolVal(compare(e.Op, strings.Compare(x.val.AsString(), y.val.AsString())))), nil
		}
	}

	a, err := in.toNumber(e.X.Pos(), x)
	if err != nil {
		return Binding{}, err
	}
	b, err := in.toNumber(e.Y.Pos(), y)
	if err != nil {
		return Binding{}, err
	}

	switch e.Op {
	case "+":
		return ValueOf(cty.NumberVal(new(big.Float).Add(a, b))), nil
	case "-":
		return ValueOf(cty.NumberVal(new(big.Float).Sub(a, b))), nil
	case "*":
		return ValueOf(cty.NumberVal(new(big.Float).Mul(a, b))), nil
	case "/":
		if b.Sign() == 0 {
			return Binding{}, in.failf(e.At, "division by zero")
		}
		q := new(big.Float).Quo(a, b)
		if !q.IsInt() {
			// Fractional quotients keep double precision.
			q.SetPrec(53)
		}
		return ValueOf(cty.NumberVal(q)), nil
	case "%":
		if b.Sign() == 0 {
			return Binding{}, in.failf(e.At, "division by zero")
		}
		r, ok := remainder(a, b)
		if !ok {
			return Binding{}, in.failf(e.At, "remainder is not a number")
		}
		return ValueOf(cty.NumberVal(r)), nil
	case "<", "<=", ">", ">=":
		return ValueOf(cty.BoolVal(compare(e.Op, a.Cmp(b)))), nil
	}
	return Binding{}, in.failf(e.At, "unsupported operator %s", e.Op)
}

// remainder reports false when the result is not a number, as for an
// infinite dividend.
func remainder(a, b *big.Float) (*big.Float, bool) {
	if a.IsInt() && b.IsInt() {
		ai, _ := a.Int(nil)
		bi, _ := b.Int(nil)
		return new(big.Float).SetInt(new(big.Int).Rem(ai, bi)), true
	}
	af, _ := a.Float64()
	bf, _ := b.Float64()
	r := math.Mod(af, bf)
	if math.IsNaN(r) {
		return nil, false
	}
	return big.NewFloat(r), true
}

func compare(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func (in *interp) toNumber(pos Pos, b Binding) (*big.Float, error) {
	if b.kind != kindValue {
		return nil, in.failf(pos, "cannot convert %s to a number", typeOf(b))
	}
	if b.val.IsNull() {
		return new(big.Float), nil
	}
	n, err := numberOf(b.val)
	if err != nil {
		return nil, in.failf(pos, "cannot convert %s to a number", toString(b))
	}
	return n, nil
}

// numberOf converts a non-null primitive the way unary plus does.
func numberOf(v cty.Value) (*big.Float, error) {
	switch v.Type() {
	case cty.Number:
		return v.AsBigFloat(), nil
	case cty.Bool:
		if v.True() {
			return big.NewFloat(1), nil
		}
		return new(big.Float), nil
	case cty.String:
		s := strings.TrimSpace(v.AsString())
		if s == "" {
			return new(big.Float), nil
		}
		n, err := cty.ParseNumberVal(s)
		if err != nil {
			return nil, err
		}
		return n.AsBigFloat(), nil
	}
	return nil, fmt.Errorf("%s is not a primitive", v.Type().FriendlyName())
}

func isString(b Binding) bool {
	return b.kind == kindValue && !b.val.IsNull() && b.val.Type() == cty.String
}

func truthy(b Binding) bool {
	switch b.kind {
	case kindUndefined:
		return false
	case kindFunc, kindNamespace:
		return true
	}
	v := b.val
	if v.IsNull() {
		return false
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.Number:
		return v.AsBigFloat().Sign() != 0
	case cty.String:
		return v.AsString() != ""
	}
	return true
}

func typeOf(b Binding) string {
	switch b.kind {
	case kindUndefined:
		return "undefined"
	case kindFunc:
		return "function"
	case kindNamespace:
		return "object"
	}
	v := b.val
	if v.IsNull() {
		return "object"
	}
	switch v.Type() {
	case cty.String:
		return "string"
	case cty.Number:
		return "number"
	case cty.Bool:
		return "boolean"
	}
	return "object"
}

func isNullish(b Binding) bool {
	return b.kind == kindUndefined || (b.kind == kindValue && b.val.IsNull())
}

func strictEquals(x, y Binding) bool {
	if x.kind != y.kind {
		return false
	}
	switch x.kind {
	case kindUndefined:
		return true
	case kindFunc, kindNamespace:
		return false
	}
	a, b := x.val, y.val
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if !a.Type().Equals(b.Type()) {
		return false
	}
	switch a.Type() {
	case cty.Number:
		return a.AsBigFloat().Cmp(b.AsBigFloat()) == 0
	case cty.String:
		return a.AsString() == b.AsString()
	case cty.Bool:
		return a.True() == b.True()
	}
	return a.RawEquals(b)
}

func looseEquals(x, y Binding) bool {
	if isNullish(x) || isNullish(y) {
		return isNullish(x) && isNullish(y)
	}
	if x.kind == kindValue && y.kind == kindValue && !x.val.Type().Equals(y.val.Type()) {
		a, errA := numberOf(x.val)
		b, errB := numberOf(y.val)
		return errA == nil && errB == nil && a.Cmp(b) == 0
	}
	return strictEquals(x, y)
}
