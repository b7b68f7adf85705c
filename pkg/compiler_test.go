package jack

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func compileToVM(t *testing.T, src string) (string, error) {
	t.Helper()

	lexer := NewLexerFromReader("test.jack", strings.NewReader(src))

	var buf bytes.Buffer
	var wc io.WriteCloser = discardCloser{&buf}
	vm := NewVMWriterTo(wc)

	c := NewCompiler(lexer, vm, "test.jack")
	err := c.Compile()
	vm.Close()

	return buf.String(), err
}

func vmLines(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}

func TestCompilerScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "arithmetic expression return",
			src:  `class A { function int f() { return 1 + 2; } }`,
			want: "function A.f 0 push constant 1 push constant 2 add return",
		},
		{
			name: "static call with no receiver",
			src:  `class A { function void g() { do A.f(); return; } }`,
			want: "function A.g 0 call A.f 0 pop temp 0 push constant 0 return",
		},
		{
			name: "constructor allocates and returns this",
			src:  `class P { field int x; constructor P new() { let x = 0; return this; } }`,
			want: "function P.new 0 push constant 1 call Memory.alloc 1 pop pointer 0 " +
				"push constant 0 pop this 0 push pointer 0 return",
		},
		{
			name: "method shifts user argument past implicit this",
			src:  `class L { method void m(int a) { let a = a + 1; return; } }`,
			want: "function L.m 0 push argument 0 pop pointer 0 push argument 1 " +
				"push constant 1 add pop argument 1 push constant 0 return",
		},
		{
			name: "while loop over a static variable",
			src:  `class W { static int x; function void w() { while (x < 0) { let x = x + 1; } return; } }`,
			want: "function W.w 0 label WHILE_EXP0 push static 0 push constant 0 lt not if-goto WHILE_END0 " +
				"push static 0 push constant 1 add pop static 0 goto WHILE_EXP0 label WHILE_END0 " +
				"push constant 0 return",
		},
		{
			name: "array-to-array assignment stages through temp",
			src: `class Arr { function void f() { var Array a; var int i, j; ` +
				`let a[i] = a[j]; return; } }`,
			want: "function Arr.f 3 push local 0 push local 1 add push local 0 push local 2 add " +
				"pop pointer 1 push that 0 pop temp 0 pop pointer 1 push temp 0 pop that 0 " +
				"push constant 0 return",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := compileToVM(t, tc.src)
			assert.NoError(t, err)

			if diff := cmp.Diff(tc.want, vmLines(out)); diff != "" {
				t.Errorf("unexpected VM output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompilerMethodCallOnVariable(t *testing.T) {
	src := `class Main {
		function void main() {
			var Ball b;
			let b = Ball.new();
			do b.move(1, 2);
			return;
		}
	}`

	out, err := compileToVM(t, src)
	assert.NoError(t, err)
	assert.Contains(t, out, "call Ball.new 0")
	assert.Contains(t, out, "push local 0")
	assert.Contains(t, out, "call Ball.move 3")
}

func TestCompilerStringConstantLowering(t *testing.T) {
	src := `class Main { function void main() { do Output.printString("hi"); return; } }`

	out, err := compileToVM(t, src)
	assert.NoError(t, err)
	assert.Contains(t, out, "push constant 2")
	assert.Contains(t, out, "call String.new 1")
	assert.Contains(t, out, "call String.appendChar 2")
	assert.Contains(t, out, "call Output.printString 1")
}

func TestCompilerUndefinedVariableIsSyntaxError(t *testing.T) {
	_, err := compileToVM(t, `class A { function void f() { let q = 1; return; } }`)
	assert.Error(t, err)

	var synErr *SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestCompilerLabelsAreUniquePerClass(t *testing.T) {
	src := `class A {
		function void f() {
			if (true) { } else { }
			if (true) { } else { }
			return;
		}
	}`

	out, err := compileToVM(t, src)
	assert.NoError(t, err)
	assert.Contains(t, out, "IF_TRUE0")
	assert.Contains(t, out, "IF_TRUE1")
	assert.NotContains(t, out, "IF_TRUE2")
}
