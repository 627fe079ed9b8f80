package script

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

type responseErr struct{ body map[string]any }

func (e *responseErr) Error() string  { return "request failed" }
func (e *responseErr) Response() any { return e.body }

// recorder returns a variadic host function that records its arguments.
func recorder(calls *[][]cty.Value, result cty.Value) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{Name: "args", Type: cty.DynamicPseudoType, AllowNull: true},
		Type:     function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			*calls = append(*calls, args)
			return result, nil
		},
	})
}

func failing(err error) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{Name: "args", Type: cty.DynamicPseudoType, AllowNull: true},
		Type:     function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func([]cty.Value, cty.Type) (cty.Value, error) {
			return cty.NilVal, err
		},
	})
}

func evalValue(t *testing.T, src string, globals Bindings) cty.Value {
	t.Helper()
	b, err := Eval(context.Background(), src, globals)
	require.NoError(t, err)
	return b.Value()
}

func TestEval_GeneratedProgram(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	var calls [][]cty.Value
	globals := Bindings{
		"createApplication": FuncOf(recorder(&calls, cty.NumberIntVal(42))),
	}
	src := "await createApplication(\"Shop\", \"\", 0);\n"

	// --- Act ---
	result, err := Eval(context.Background(), src, globals)

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, result.Defined(), "a program without return yields undefined")
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 3)
	assert.Equal(t, "Shop", calls[0][0].AsString())
	assert.Equal(t, "", calls[0][1].AsString())
	assert.True(t, calls[0][2].RawEquals(cty.NumberIntVal(0)))
}

func TestEval_EmptyProgram(t *testing.T) {
	t.Parallel()
	result, err := Eval(context.Background(), "", nil)
	require.NoError(t, err)
	assert.False(t, result.Defined())
}

func TestEval_Expressions(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want cty.Value
	}{
		{"arithmetic precedence", "return 1 + 2 * 3", cty.NumberIntVal(7)},
		{"parentheses", "return (1 + 2) * 3;", cty.NumberIntVal(9)},
		{"string concat", `return "a" + 1 + 2`, cty.StringVal("a12")},
		{"unary minus", "return -(2 - 5)", cty.NumberIntVal(3)},
		{"remainder", "return 7 % 3", cty.NumberIntVal(1)},
		{"comparison", "return 2 <= 3 && 'b' > 'a'", cty.True},
		{"strict equality", `return 1 === "1"`, cty.False},
		{"loose equality", `return 1 == "1"`, cty.True},
		{"null equals undefined", `return null == undefined`, cty.True},
		{"logical or returns operand", `return "" || "fallback"`, cty.StringVal("fallback")},
		{"conditional", "return 0 ? 'yes' : 'no'", cty.StringVal("no")},
		{"typeof", "return typeof 'x'", cty.StringVal("string")},
		{"not", "return !0", cty.True},
		{"escapes", `return 'it\'s' + "\tA\x42"`, cty.StringVal("it's\tAB")},
		{"locals", "let a = 2\nconst b = a * 10\na = a + b\nreturn a", cty.NumberIntVal(22)},
		{"object member", "const o = {name: 'Shop', price: 5}; return o.price", cty.NumberIntVal(5)},
		{"missing member is undefined", "const o = {}; return typeof o.x", cty.StringVal("undefined")},
		{"array index", "return [1, 'two', 3][1]", cty.StringVal("two")},
		{"length", "return 'héllo'.length + [1, 2].length", cty.NumberIntVal(7)},
		{"computed member", "const o = {'a-b': 1}; return o['a-b']", cty.NumberIntVal(1)},
		{"comments", "// leading\n/* block */ return 1 // trailing", cty.NumberIntVal(1)},
		{"decimal", "return 1.5 * 2", cty.NumberIntVal(3)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := evalValue(t, tc.src, nil)
			assert.True(t, got.RawEquals(tc.want), "got %#v, want %#v", got, tc.want)
		})
	}
}

func TestEval_Namespaces(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	var calls [][]cty.Value
	globals := Bindings{
		"console": NamespaceOf(Namespace{"log": FuncOf(recorder(&calls, cty.NullVal(cty.DynamicPseudoType)))}),
		"params":  ValueOf(cty.ObjectVal(map[string]cty.Value{"fee": cty.NumberIntVal(1000)})),
	}

	// --- Act ---
	result, err := Eval(context.Background(), "const r = console.log('fee', params.fee)\nreturn r", globals)

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, result.Defined(), "a host function returning dynamic null yields undefined")
	require.Len(t, calls, 1)
	assert.Equal(t, "fee", calls[0][0].AsString())
	assert.True(t, calls[0][1].RawEquals(cty.NumberIntVal(1000)))
}

func TestEval_SyntaxErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		line int
	}{
		{"unterminated string", "\n'abc", 2},
		{"unsupported statement", "for (;;) {}", 1},
		{"missing semicolon", "a b", 1},
		{"invalid assignment target", "a.b = 1", 1},
		{"const without initializer", "const x", 1},
		{"unexpected character", "return 1 # 2", 1},
		{"unterminated comment", "/* nope", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Eval(context.Background(), tc.src, nil)
			var syn *SyntaxError
			require.ErrorAs(t, err, &syn)
			assert.Equal(t, tc.line, syn.Pos.Line)
		})
	}
}

func TestEval_RuntimeErrors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		message string
	}{
		{"undefined name", "foo()", "foo is not defined"},
		{"not a function", "const x = 1; x()", "x is not a function"},
		{"const reassignment", "const x = 1\nx = 2", "Assignment to constant variable."},
		{"redeclaration", "let x = 1\nlet x = 2", "Identifier 'x' has already been declared"},
		{"property of undefined", "const o = {}; o.a.b", "Cannot read properties of undefined (reading 'b')"},
		{"division by zero", "return 1 / 0", "division by zero"},
		{"remainder of an infinite dividend", "return 1e400 % 0.5", "remainder is not a number"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Eval(context.Background(), tc.src, nil)
			var rt *RuntimeError
			require.ErrorAs(t, err, &rt)
			assert.Equal(t, tc.message, rt.Message)
		})
	}
}

func TestEval_HostErrorCarriesResponseAndTrace(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	body := map[string]any{"message": "overspend"}
	globals := Bindings{
		"makePayment": FuncOf(failing(&responseErr{body: body})),
	}
	src := "const a = 1\nawait makePayment(\"X\", 5);\n"

	// --- Act ---
	_, err := Eval(context.Background(), src, globals)

	// --- Assert ---
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, "request failed", rt.Message)
	assert.Equal(t, body, rt.Response)
	assert.Equal(t, "Error: request failed\n    at makePayment (2:18)\n    at <program> (2:1)", rt.Trace)

	var resp *responseErr
	assert.True(t, errors.As(err, &resp), "the host error stays in the chain")
}

func TestEval_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Eval(ctx, "return 1", nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSON(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	b, err := Eval(context.Background(), "return {a: 1, list: [true, null], s: 'x'}", nil)
	require.NoError(t, err)

	// --- Act ---
	out, err := JSON(b)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"list\": [\n    true,\n    null\n  ],\n  \"s\": \"x\"\n}", out)
	assert.True(t, IsObject(b))
}

func TestJSON_KeysAndFractions(t *testing.T) {
	t.Parallel()
	b, err := Eval(context.Background(), "return {b: 1, a: 1 / 3}", nil)
	require.NoError(t, err)

	out, err := JSON(b)

	require.NoError(t, err)
	// Object keys come out sorted.
	assert.Equal(t, "{\n  \"a\": 0.3333333333333333,\n  \"b\": 1\n}", out)
}

func TestFormatNumber(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"integer", "return 6 / 3", "2"},
		{"large integer stays exact", "return 100000000000000000000000 + 1", "100000000000000000000001"},
		{"fraction", "return 1 / 3", "0.3333333333333333"},
		{"negative fraction", "return -7 / 4", "-1.75"},
		{"tiny fraction", "return 1 / 10000000", "1e-7"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Eval(context.Background(), tc.src, nil)
			require.NoError(t, err)

			assert.Equal(t, tc.want, String(b))
		})
	}
}

func TestString(t *testing.T) {
	testCases := []struct {
		name string
		b    Binding
		want string
	}{
		{"undefined", Binding{}, "undefined"},
		{"null", ValueOf(Null), "null"},
		{"integer", ValueOf(cty.NumberIntVal(12)), "12"},
		{"fraction", ValueOf(cty.MustParseNumberVal("0.5")), "0.5"},
		{"bool", ValueOf(cty.False), "false"},
		{"tuple", ValueOf(cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("a")})), "1,a"},
		{"object", ValueOf(cty.EmptyObjectVal), "[object Object]"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, String(tc.b))
		})
	}
}
