package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// interrupt reasons passed to goja.Runtime.Interrupt
type interruptReason int

const (
	reasonTimeout interruptReason = iota + 1
	reasonCancelled
)

// Runtime wraps a goja VM exposing console.log as its only host capability.
// A Runtime is not safe for concurrent use; Pool hands each one to a single
// caller at a time and replaces its VM after every run.
type Runtime struct {
	vm     *goja.Runtime
	config Config

	output  strings.Builder
	printed bool
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	r := &Runtime{config: config.withDefaults()}
	if err := r.Reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Run evaluates code as the body of an immediately invoked function.
// Script failures are reported through Result.Failure, never as a Go error.
func (r *Runtime) Run(ctx context.Context, code string) (result *Result) {
	start := time.Now()
	result = &Result{}
	defer func() {
		result.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		result.Failure = &Failure{Kind: KindCancelled, Message: ErrorPrefix + "execution cancelled"}
		return result
	}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	finished := make(chan struct{})
	defer close(finished)

	vm := r.vm
	go func() {
		select {
		case <-timer.C:
			vm.Interrupt(reasonTimeout)
		case <-ctx.Done():
			vm.Interrupt(reasonCancelled)
		case <-finished:
		}
	}()

	defer func() {
		if p := recover(); p != nil {
			result.Output = ""
			result.Failure = &Failure{Kind: KindInternal, Message: fmt.Sprintf("%s%v", ErrorPrefix, p)}
		}
	}()

	if _, err := vm.RunString(wrap(code)); err != nil {
		result.Failure = r.failure(err)
		return result
	}

	if !r.printed {
		result.Output = NoOutput
	} else {
		result.Output = r.output.String()
	}
	return result
}

// Reset discards the VM and all state left behind by scripts
func (r *Runtime) Reset() error {
	vm := goja.New()
	vm.SetMaxCallStackSize(r.config.MaxCallStack)

	r.vm = vm
	r.output.Reset()
	r.printed = false

	return r.setupGlobals()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.vm = nil
	r.output.Reset()
	return nil
}

// wrap turns a script body into an IIFE. The body starts on the first line
// so reported line numbers match the submitted code; the newline before the
// closing brace keeps a trailing line comment from swallowing it.
func wrap(code string) string {
	return "(() => {" + code + "\n})();"
}

// setupGlobals installs console.log and removes host-ish globals
func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports", "setTimeout", "setInterval", "setImmediate"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	console := r.vm.NewObject()
	if err := console.Set("log", r.consoleLog); err != nil {
		return err
	}
	return r.vm.Set("console", console)
}

// consoleLog appends its arguments, space separated, to the output buffer.
// Successive calls are concatenated without a separator.
func (r *Runtime) consoleLog(call goja.FunctionCall) goja.Value {
	r.printed = true
	for i, arg := range call.Arguments {
		if i > 0 {
			r.output.WriteByte(' ')
		}
		r.output.WriteString(r.stringify(arg))
	}
	return goja.Undefined()
}

// stringify renders strings verbatim, plain objects and arrays as JSON and
// everything else through ToString.
func (r *Runtime) stringify(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return v.String()
	}
	switch obj.ClassName() {
	case "Object", "Array":
		if b, err := obj.MarshalJSON(); err == nil {
			return string(b)
		}
	}
	return v.String()
}

// failure maps a goja error to a client-facing Failure
func (r *Runtime) failure(err error) *Failure {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if reason, ok := interrupted.Value().(interruptReason); ok && reason == reasonCancelled {
			return &Failure{Kind: KindCancelled, Message: ErrorPrefix + "execution cancelled"}
		}
		return &Failure{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("%sexecution timed out after %s", ErrorPrefix, r.config.Timeout),
		}
	}

	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return &Failure{Kind: KindError, Message: ErrorPrefix + MsgStackOverflow}
	}

	var exception *goja.Exception
	if errors.As(err, &exception) && exception.Value() != nil {
		return &Failure{Kind: KindError, Message: ErrorPrefix + dedupeErrorName(exception.Value().String())}
	}

	return &Failure{Kind: KindError, Message: ErrorPrefix + err.Error()}
}

// dedupeErrorName collapses "SyntaxError: SyntaxError: msg", which goja
// produces for parse errors, to a single name.
func dedupeErrorName(msg string) string {
	name, rest, ok := strings.Cut(msg, ": ")
	if ok && strings.HasSuffix(name, "Error") && strings.HasPrefix(rest, name+": ") {
		return rest
	}
	return msg
}
