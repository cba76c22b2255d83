package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModuleNotFound is returned by a ModuleLoader that has no module with
// the requested name.
var ErrModuleNotFound = errors.New("module not found")

// thrown carries a value raised by `throw` or by Throw from a native.
type thrown struct {
	value Value
}

func (t *thrown) Error() string { return "thrown value" }

// Throw returns an error that raises v as the script exception when
// returned from a NativeFunc.
func Throw(v Value) error {
	return &thrown{value: v}
}

// TraceEntry is one line of a best-effort call trace.
type TraceEntry struct {
	Function string
	File     string
	Line     int
	Column   int
}

func (e TraceEntry) String() string {
	if e.Line == 0 {
		return fmt.Sprintf("at %s (%s)", e.Function, e.File)
	}
	return fmt.Sprintf("at %s (%s:%d:%d)", e.Function, e.File, e.Line, e.Column)
}

// ScriptError is an exception that left Exec: an uncaught throw, a runtime
// fault with no try frame to catch it, or a cancelled execution.
type ScriptError struct {
	Message string
	Value   Value // thrown value; only meaningful while its handle is live
	Thrown  bool  // raised by throw rather than by a fault
	File    string
	Line    int
	Column  int
	Trace   []TraceEntry

	cause error // set for cancellation and other fatal errors
}

func (e *ScriptError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.File)
	if e.Line > 0 {
		fmt.Fprintf(&sb, ":%d:%d", e.Line, e.Column)
	}
	sb.WriteString(": ")
	if e.Thrown {
		sb.WriteString("exception not handled: ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap exposes the cause of a fatal error, such as context.Canceled.
func (e *ScriptError) Unwrap() error { return e.cause }

// FormatTrace renders the error followed by its trace, one entry per line.
func (e *ScriptError) FormatTrace() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	for _, t := range e.Trace {
		sb.WriteString("\n\t")
		sb.WriteString(t.String())
	}
	return sb.String()
}

// fatal reports whether err must not be caught by a try frame.
func fatal(err error) bool {
	var se *ScriptError
	return errors.As(err, &se) && se.cause != nil
}

// raise routes err to the innermost try frame. Without one, err becomes a
// ScriptError. The returned error is nil when execution should continue.
func (m *Machine) raise(st *state, err error) error {
	if fatal(err) {
		return err
	}

	var value Value
	isThrow := false
	var nested *ScriptError
	var t *thrown
	switch {
	case errors.As(err, &t):
		value, isThrow = t.value, true
	case errors.As(err, &nested):
		value, isThrow = nested.Value, nested.Thrown
	default:
		value = String(err.Error())
	}

	if n := len(st.tries); n > 0 {
		tf := st.tries[n-1]
		st.tries = st.tries[:n-1]
		st.frames = st.frames[:tf.calls]
		st.roots = st.roots[:tf.roots]
		st.stack = st.stack[:tf.sp]
		st.ctx = tf.ctx
		st.bin = tf.bin
		st.ip = tf.catchIP
		st.push(value)
		return nil
	}

	se := m.scriptError(st, value, isThrow)
	if nested != nil {
		se.Message = nested.Message
		se.File, se.Line, se.Column = nested.File, nested.Line, nested.Column
		se.Trace = append(append([]TraceEntry(nil), nested.Trace...), se.Trace...)
	}
	if m.trap != nil && len(m.states) == 1 {
		if m.trap(st.ctx, se) && isThrow && nested == nil {
			m.log.Debugf("%s: trap resumed after %s", m.id, se.Message)
			return nil
		}
	}
	return se
}

// abort ends the execution with a fatal error that try frames cannot catch.
func (m *Machine) abort(st *state, cause error) error {
	se := m.scriptError(st, String(cause.Error()), false)
	se.cause = cause
	return se
}

// scriptError builds the error for the instruction being executed, with a
// trace of the active calls, innermost first.
func (m *Machine) scriptError(st *state, v Value, isThrow bool) *ScriptError {
	se := &ScriptError{
		Message: m.Display(v),
		Value:   v,
		Thrown:  isThrow,
		File:    st.bin.Name,
	}
	if se.File == "" {
		se.File = "<script>"
	}
	se.Line, se.Column, _ = st.bin.PositionAt(st.opIP)
	se.Trace = append(se.Trace, TraceEntry{Function: st.functionName(), File: se.File, Line: se.Line, Column: se.Column})

	for i := len(st.frames) - 1; i >= 0; i-- {
		f := st.frames[i]
		if f.host {
			continue
		}
		caller := "<main>"
		if i > 0 {
			caller = st.frames[i-1].name
		}
		e := TraceEntry{Function: caller, File: f.retBin.Name}
		e.Line, e.Column, _ = f.retBin.PositionAt(f.callIP)
		se.Trace = append(se.Trace, e)
	}
	return se
}
