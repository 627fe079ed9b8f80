package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/script"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Outcome is the result of one Execute call.
type Outcome struct {
	// Result is the program's return value, undefined when it returned
	// nothing or failed.
	Result script.Binding
	// Err is set when the program could not be parsed or raised.
	Err error
}

// Defined reports whether the program returned a value.
func (o Outcome) Defined() bool { return o.Err == nil && o.Result.Defined() }

// Failed reports whether the program raised.
func (o Outcome) Failed() bool { return o.Err != nil }

// Execute runs programText with injected as its only free names, plus a
// `console` namespace that writes to log for the duration of this call.
// Failures are written to log as ERROR lines and returned in the Outcome;
// Execute itself never panics.
func Execute(ctx context.Context, programText string, injected script.Bindings, log *Log) (out Outcome) {
	logger := ctxlog.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sandbox: program panicked: %v", r)
			logger.Error("Sandbox recovered from panic.", "panic", r)
			ReportFailure(log, err)
			out = Outcome{Err: err}
		}
	}()

	globals := injected.With(script.Bindings{"console": script.NamespaceOf(Console(log))})
	logger.Debug("Executing program.", "bytes", len(programText), "bindings", len(globals))

	result, err := script.Eval(ctx, programText, globals)
	if err != nil {
		logger.Debug("Program failed.", "error", err)
		ReportFailure(log, err)
		return Outcome{Err: err}
	}
	return Outcome{Result: result}
}

// ReportFailure writes the message, the remote response and the trace of
// err between two separator lines. The response is taken from a
// script.Responder anywhere in the chain; the trace only exists for
// script.RuntimeError.
func ReportFailure(log *Log, err error) {
	log.Append(TagNone, Separator)
	defer log.Append(TagNone, Separator)

	message, trace := err.Error(), ""
	var response any
	var rt *script.RuntimeError
	if errors.As(err, &rt) {
		message, trace, response = rt.Message, rt.Trace, rt.Response
	} else {
		var resp script.Responder
		if errors.As(err, &resp) {
			response = resp.Response()
		}
	}

	log.Appendf(TagError, "Execution failed: %s", message)
	if response != nil {
		body, jerr := json.MarshalIndent(response, "", "  ")
		if jerr != nil {
			body = []byte(fmt.Sprint(response))
		}
		log.Appendf(TagError, "Response: %s", body)
	}
	if trace != "" {
		log.Appendf(TagError, "Stack trace:\n%s", trace)
	}
}

// Console returns the `console` namespace bound to log.
func Console(log *Log) script.Namespace {
	return script.Namespace{
		"log":   script.FuncOf(consoleFunc(log, TagLog)),
		"info":  script.FuncOf(consoleFunc(log, TagInfo)),
		"warn":  script.FuncOf(consoleFunc(log, TagWarn)),
		"error": script.FuncOf(consoleFunc(log, TagError)),
	}
}

func consoleFunc(log *Log, tag Tag) function.Function {
	return function.New(&function.Spec{
		Description: "Writes its arguments to the execution log.",
		VarParam: &function.Parameter{
			Name:             "args",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = Render(script.ValueOf(arg))
			}
			log.Append(tag, strings.Join(parts, " "))
			return cty.NullVal(cty.DynamicPseudoType), nil
		},
	})
}

// Render converts one console argument to text: structured values as
// indented JSON, everything else as its string form.
func Render(b script.Binding) string {
	if script.IsObject(b) {
		if s, err := script.JSON(b); err == nil {
			return s
		}
	}
	return script.String(b)
}
