package jack

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Segment is one of the eight named memory regions of the target VM (spec.md GLOSSARY).
type Segment string

const (
	SegConstant Segment = "constant"
	SegArgument Segment = "argument"
	SegLocal    Segment = "local"
	SegStatic   Segment = "static"
	SegThis     Segment = "this"
	SegThat     Segment = "that"
	SegPointer  Segment = "pointer"
	SegTemp     Segment = "temp"
)

// Op is a VM arithmetic/logical command.
type Op string

const (
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpNeg Op = "neg"
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpLt  Op = "lt"
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpNot Op = "not"
)

// VMWriter formats and writes the textual VM instruction stream of spec.md
// §4.3. It contains no compilation logic: every method writes exactly the
// line(s) its name says, passing names through verbatim.
type VMWriter struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewVMWriter creates outPath and returns a VMWriter writing to it.
func NewVMWriter(outPath string) (*VMWriter, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return nil, &IoError{File: outPath, Op: "create", Err: err}
	}

	return NewVMWriterTo(f), nil
}

// NewVMWriterTo wraps an arbitrary WriteCloser. If w does not need closing,
// pass a type whose Close is a no-op (see discardCloser in the tests).
func NewVMWriterTo(w io.WriteCloser) *VMWriter {
	return &VMWriter{w: bufio.NewWriter(w), closer: w}
}

func (v *VMWriter) line(format string, args ...interface{}) {
	fmt.Fprintf(v.w, format+"\n", args...)
}

// WritePush emits "push <segment> <index>".
func (v *VMWriter) WritePush(seg Segment, index int) {
	v.line("push %s %d", seg, index)
}

// WritePop emits "pop <segment> <index>".
func (v *VMWriter) WritePop(seg Segment, index int) {
	v.line("pop %s %d", seg, index)
}

// WriteArithmetic emits a bare unary/binary operation such as "add" or "not".
func (v *VMWriter) WriteArithmetic(op Op) {
	v.line("%s", op)
}

// WriteLabel emits "label <name>".
func (v *VMWriter) WriteLabel(name string) {
	v.line("label %s", name)
}

// WriteGoto emits "goto <name>".
func (v *VMWriter) WriteGoto(name string) {
	v.line("goto %s", name)
}

// WriteIf emits "if-goto <name>".
func (v *VMWriter) WriteIf(name string) {
	v.line("if-goto %s", name)
}

// WriteCall emits "call <name> <nArgs>".
func (v *VMWriter) WriteCall(name string, nArgs int) {
	v.line("call %s %d", name, nArgs)
}

// WriteFunction emits "function <name> <nLocals>".
func (v *VMWriter) WriteFunction(name string, nLocals int) {
	v.line("function %s %d", name, nLocals)
}

// WriteReturn emits "return".
func (v *VMWriter) WriteReturn() {
	v.line("return")
}

// Close flushes buffered output and closes the underlying writer.
func (v *VMWriter) Close() error {
	flushErr := v.w.Flush()
	closeErr := v.closer.Close()
	if flushErr != nil {
		return flushErr
	}

	return closeErr
}
