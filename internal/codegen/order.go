package codegen

// Order is the binding strength of a value fragment. Lower binds tighter.
// The values follow JavaScript operator precedence.
type Order int

const (
	OrderAtomic         Order = 0  // literals, parenthesised expressions
	OrderMember         Order = 2  // a.b
	OrderFunctionCall   Order = 3  // f()
	OrderAwait          Order = 5  // await x
	OrderUnary          Order = 6  // -x !x
	OrderMultiplicative Order = 7  // * / %
	OrderAdditive       Order = 8  // + -
	OrderRelational     Order = 9  // < <= > >=
	OrderEquality       Order = 10 // == != === !==
	OrderLogicalAnd     Order = 11 // &&
	OrderLogicalOr      Order = 12 // ||
	OrderConditional    Order = 13 // ?:
	OrderAssignment     Order = 14 // = += -=
	OrderComma          Order = 15 // ,
	OrderNone           Order = 99 // no precedence
)

// orderOverrides lists (outer, inner) pairs that never need parentheses
// even though inner does not bind tighter than outer: chaining calls and
// member accesses, and associative operators.
var orderOverrides = [][2]Order{
	{OrderFunctionCall, OrderMember},
	{OrderFunctionCall, OrderFunctionCall},
	{OrderMember, OrderMember},
	{OrderMember, OrderFunctionCall},
	{OrderUnary, OrderUnary},
	{OrderMultiplicative, OrderMultiplicative},
	{OrderAdditive, OrderAdditive},
	{OrderLogicalAnd, OrderLogicalAnd},
	{OrderLogicalOr, OrderLogicalOr},
}

// needsParens reports whether a fragment of order inner must be wrapped
// before it is placed where order outer is expected.
func needsParens(outer, inner Order) bool {
	if outer > inner {
		return false
	}
	if outer == inner && (outer == OrderAtomic || outer == OrderNone) {
		return false
	}
	for _, o := range orderOverrides {
		if o[0] == outer && o[1] == inner {
			return false
		}
	}
	return true
}
