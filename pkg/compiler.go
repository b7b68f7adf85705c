package jack

import "fmt"

// Compiler drives a single recursive descent over one class's token stream,
// maintaining its own Lexer, SymbolTable, VMWriter, current class name, and
// the two per-class label counters (spec.md §4.4). There is no intermediate
// syntax tree: every grammar production emits VM code as soon as it is
// recognized. A Compiler is single-use, synchronous, and not safe for
// concurrent use — each input file gets its own instance (spec.md §5).
type Compiler struct {
	lexer *Lexer
	sym   *SymbolTable
	vm    *VMWriter

	filename  string
	className string

	ifCount    int
	whileCount int
}

// NewCompiler wires a Lexer and a VMWriter together with a fresh SymbolTable.
func NewCompiler(lexer *Lexer, vm *VMWriter, filename string) *Compiler {
	return &Compiler{
		lexer:    lexer,
		sym:      NewSymbolTable(),
		vm:       vm,
		filename: filename,
	}
}

// Compile tokenizes the underlying lexer if needed and compiles exactly one
// class, emitting VM code as it goes. It returns the first error encountered;
// there is no error recovery (spec.md §4.4 "Failure semantics").
func (c *Compiler) Compile() error {
	if err := c.lexer.Tokenize(); err != nil {
		return err
	}

	return c.compileClass()
}

// --- token-stream helpers, mirroring a classic 2-token-lookahead parser ---

func (c *Compiler) peek1() Token { return c.lexer.Peek1() }
func (c *Compiler) peek2() Token { return c.lexer.Peek2() }
func (c *Compiler) next() Token  { return c.lexer.Next() }

// expect consumes the next token, failing with a SyntaxError naming what was
// expected if its type does not match.
func (c *Compiler) expect(typ TokenType, what string) (Token, error) {
	tok := c.next()
	if tok.Typ != typ {
		return tok, &SyntaxError{File: c.filename, Expected: what, Got: tok}
	}
	return tok, nil
}

func (c *Compiler) check(typ TokenType) bool {
	return c.peek1().Typ == typ
}

// --- grammar ---

func (c *Compiler) compileClass() error {
	if _, err := c.expect(TokenClass, "'class'"); err != nil {
		return err
	}

	nameTok, err := c.expect(TokenIdentifier, "class name")
	if err != nil {
		return err
	}
	c.className = nameTok.Value

	if _, err := c.expect(TokenOpenCurly, "'{'"); err != nil {
		return err
	}

	for c.check(TokenStatic) || c.check(TokenField) {
		if err := c.compileClassVarDec(); err != nil {
			return err
		}
	}

	for c.check(TokenConstructor) || c.check(TokenFunction) || c.check(TokenMethod) {
		if err := c.compileSubroutineDec(); err != nil {
			return err
		}
	}

	_, err = c.expect(TokenCloseCurly, "'}'")
	return err
}

func (c *Compiler) compileClassVarDec() error {
	kindTok := c.next()
	var kind VarKind
	switch kindTok.Typ {
	case TokenStatic:
		kind = Static
	case TokenField:
		kind = Field
	default:
		return &SyntaxError{File: c.filename, Expected: "'static' or 'field'", Got: kindTok}
	}

	typ, err := c.compileType()
	if err != nil {
		return err
	}

	return c.compileVarNameList(kind, typ)
}

// compileVarNameList handles the "varName (',' varName)* ';'" tail shared by
// classVarDec and varDec, defining each name at the given kind/type.
func (c *Compiler) compileVarNameList(kind VarKind, typ VarType) error {
	for {
		nameTok, err := c.expect(TokenIdentifier, "variable name")
		if err != nil {
			return err
		}
		c.sym.Define(nameTok.Value, kind, typ)

		if !c.check(TokenComma) {
			break
		}
		c.next()
	}

	_, err := c.expect(TokenSemicolon, "';'")
	return err
}

func (c *Compiler) compileType() (VarType, error) {
	tok := c.next()
	switch tok.Typ {
	case TokenInt:
		return TypeInt, nil
	case TokenChar:
		return TypeChar, nil
	case TokenBoolean:
		return TypeBoolean, nil
	case TokenIdentifier:
		return ClassType(tok.Value), nil
	default:
		return VarType{}, &SyntaxError{File: c.filename, Expected: "a type", Got: tok}
	}
}

func (c *Compiler) compileSubroutineDec() error {
	c.sym.StartSubroutine()

	kindTok := c.next() // constructor | function | method

	if kindTok.Typ == TokenMethod {
		// The receiver is an implicit argument 0, defined before the real
		// parameter list so user parameters land at index 1+ (spec.md §4.4).
		c.sym.Define("this", Arg, ClassType(c.className))
	}

	// 'void' | type — the return type is not separately tracked: callers push
	// whatever the callee returns and the VM has no static return type.
	c.next()

	nameTok, err := c.expect(TokenIdentifier, "subroutine name")
	if err != nil {
		return err
	}

	if _, err := c.expect(TokenOpenParen, "'('"); err != nil {
		return err
	}

	if !c.check(TokenCloseParen) {
		if err := c.compileParameterList(); err != nil {
			return err
		}
	}

	if _, err := c.expect(TokenCloseParen, "')'"); err != nil {
		return err
	}

	return c.compileSubroutineBody(nameTok.Value, kindTok.Typ)
}

func (c *Compiler) compileParameterList() error {
	for {
		typ, err := c.compileType()
		if err != nil {
			return err
		}

		nameTok, err := c.expect(TokenIdentifier, "parameter name")
		if err != nil {
			return err
		}
		c.sym.Define(nameTok.Value, Arg, typ)

		if !c.check(TokenComma) {
			return nil
		}
		c.next()
	}
}

func (c *Compiler) compileSubroutineBody(name string, subroutineKind TokenType) error {
	if _, err := c.expect(TokenOpenCurly, "'{'"); err != nil {
		return err
	}

	nLocals := 0
	for c.check(TokenVar) {
		n, err := c.compileVarDec()
		if err != nil {
			return err
		}
		nLocals += n
	}

	c.vm.WriteFunction(c.className+"."+name, nLocals)

	switch subroutineKind {
	case TokenConstructor:
		c.vm.WritePush(SegConstant, c.sym.VarCount(Field))
		c.vm.WriteCall("Memory.alloc", 1)
		c.vm.WritePop(SegPointer, 0)
	case TokenMethod:
		c.vm.WritePush(SegArgument, 0)
		c.vm.WritePop(SegPointer, 0)
	}

	if err := c.compileStatements(); err != nil {
		return err
	}

	_, err := c.expect(TokenCloseCurly, "'}'")
	return err
}

func (c *Compiler) compileVarDec() (int, error) {
	c.next() // 'var'

	typ, err := c.compileType()
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		nameTok, err := c.expect(TokenIdentifier, "variable name")
		if err != nil {
			return count, err
		}
		c.sym.Define(nameTok.Value, Var, typ)
		count++

		if !c.check(TokenComma) {
			break
		}
		c.next()
	}

	_, err = c.expect(TokenSemicolon, "';'")
	return count, err
}

func (c *Compiler) compileStatements() error {
	for {
		switch c.peek1().Typ {
		case TokenLet:
			if err := c.compileLet(); err != nil {
				return err
			}
		case TokenIf:
			if err := c.compileIf(); err != nil {
				return err
			}
		case TokenWhile:
			if err := c.compileWhile(); err != nil {
				return err
			}
		case TokenDo:
			if err := c.compileDo(); err != nil {
				return err
			}
		case TokenReturn:
			if err := c.compileReturn(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Compiler) compileLet() error {
	c.next() // 'let'

	nameTok, err := c.expect(TokenIdentifier, "variable name")
	if err != nil {
		return err
	}

	if c.check(TokenOpenBracket) {
		c.next()
		if err := c.compileArrayAddress(nameTok.Value); err != nil {
			return err
		}
		if _, err := c.expect(TokenCloseBracket, "']'"); err != nil {
			return err
		}

		if _, err := c.expect(TokenEquals, "'='"); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		if _, err := c.expect(TokenSemicolon, "';'"); err != nil {
			return err
		}

		// Stage the RHS through temp so it survives the pointer-1 write even
		// if e itself contains an array access (spec.md §4.4 "let with subscript").
		c.vm.WritePop(SegTemp, 0)
		c.vm.WritePop(SegPointer, 1)
		c.vm.WritePush(SegTemp, 0)
		c.vm.WritePop(SegThat, 0)
		return nil
	}

	if _, err := c.expect(TokenEquals, "'='"); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if _, err := c.expect(TokenSemicolon, "';'"); err != nil {
		return err
	}

	seg, idx, err := c.variableAccess(nameTok)
	if err != nil {
		return err
	}
	c.vm.WritePop(seg, idx)
	return nil
}

func (c *Compiler) compileIf() error {
	c.next() // 'if'

	n := c.ifCount
	c.ifCount++

	if _, err := c.expect(TokenOpenParen, "'('"); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if _, err := c.expect(TokenCloseParen, "')'"); err != nil {
		return err
	}

	trueLabel := fmt.Sprintf("IF_TRUE%d", n)
	falseLabel := fmt.Sprintf("IF_FALSE%d", n)
	endLabel := fmt.Sprintf("IF_END%d", n)

	c.vm.WriteIf(trueLabel)
	c.vm.WriteGoto(falseLabel)
	c.vm.WriteLabel(trueLabel)

	if _, err := c.expect(TokenOpenCurly, "'{'"); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if _, err := c.expect(TokenCloseCurly, "'}'"); err != nil {
		return err
	}

	c.vm.WriteGoto(endLabel)
	c.vm.WriteLabel(falseLabel)

	if c.check(TokenElse) {
		c.next()
		if _, err := c.expect(TokenOpenCurly, "'{'"); err != nil {
			return err
		}
		if err := c.compileStatements(); err != nil {
			return err
		}
		if _, err := c.expect(TokenCloseCurly, "'}'"); err != nil {
			return err
		}
	}

	c.vm.WriteLabel(endLabel)
	return nil
}

func (c *Compiler) compileWhile() error {
	n := c.whileCount
	c.whileCount++

	expLabel := fmt.Sprintf("WHILE_EXP%d", n)
	endLabel := fmt.Sprintf("WHILE_END%d", n)

	c.next() // 'while'
	c.vm.WriteLabel(expLabel)

	if _, err := c.expect(TokenOpenParen, "'('"); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if _, err := c.expect(TokenCloseParen, "')'"); err != nil {
		return err
	}

	c.vm.WriteArithmetic(OpNot)
	c.vm.WriteIf(endLabel)

	if _, err := c.expect(TokenOpenCurly, "'{'"); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if _, err := c.expect(TokenCloseCurly, "'}'"); err != nil {
		return err
	}

	c.vm.WriteGoto(expLabel)
	c.vm.WriteLabel(endLabel)
	return nil
}

func (c *Compiler) compileDo() error {
	c.next() // 'do'

	if err := c.compileSubroutineCall(); err != nil {
		return err
	}
	c.vm.WritePop(SegTemp, 0)

	_, err := c.expect(TokenSemicolon, "';'")
	return err
}

func (c *Compiler) compileReturn() error {
	c.next() // 'return'

	if c.check(TokenSemicolon) {
		c.vm.WritePush(SegConstant, 0)
	} else if err := c.compileExpression(); err != nil {
		return err
	}

	c.vm.WriteReturn()

	_, err := c.expect(TokenSemicolon, "';'")
	return err
}

// --- expressions ---

var binaryOps = map[TokenType]Op{
	TokenPlus:    OpAdd,
	TokenMinus:   OpSub,
	TokenAmp:     OpAnd,
	TokenPipe:    OpOr,
	TokenLess:    OpLt,
	TokenGreater: OpGt,
	TokenEquals:  OpEq,
}

func (c *Compiler) compileExpression() error {
	if err := c.compileTerm(); err != nil {
		return err
	}

	for {
		typ := c.peek1().Typ
		switch typ {
		case TokenPlus, TokenMinus, TokenAmp, TokenPipe, TokenLess, TokenGreater, TokenEquals:
			c.next()
			if err := c.compileTerm(); err != nil {
				return err
			}
			c.vm.WriteArithmetic(binaryOps[typ])
		case TokenStar:
			c.next()
			if err := c.compileTerm(); err != nil {
				return err
			}
			c.vm.WriteCall("Math.multiply", 2)
		case TokenSlash:
			c.next()
			if err := c.compileTerm(); err != nil {
				return err
			}
			c.vm.WriteCall("Math.divide", 2)
		default:
			return nil
		}
	}
}

// compileExpressionList compiles a comma-separated, possibly-empty list of
// expressions (callers consume the surrounding parentheses) and returns how
// many it compiled.
func (c *Compiler) compileExpressionList() (int, error) {
	if c.check(TokenCloseParen) {
		return 0, nil
	}

	count := 0
	if err := c.compileExpression(); err != nil {
		return count, err
	}
	count++

	for c.check(TokenComma) {
		c.next()
		if err := c.compileExpression(); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func (c *Compiler) compileTerm() error {
	tok := c.peek1()

	switch tok.Typ {
	case TokenIntConst:
		c.next()
		c.vm.WritePush(SegConstant, tok.IntValue)
		return nil

	case TokenStringConst:
		c.next()
		c.compileStringConstant(tok.Value)
		return nil

	case TokenTrue:
		c.next()
		c.vm.WritePush(SegConstant, 0)
		c.vm.WriteArithmetic(OpNot)
		return nil

	case TokenFalse, TokenNull:
		c.next()
		c.vm.WritePush(SegConstant, 0)
		return nil

	case TokenThis:
		c.next()
		c.vm.WritePush(SegPointer, 0)
		return nil

	case TokenOpenParen:
		c.next()
		if err := c.compileExpression(); err != nil {
			return err
		}
		_, err := c.expect(TokenCloseParen, "')'")
		return err

	case TokenMinus:
		c.next()
		if err := c.compileTerm(); err != nil {
			return err
		}
		c.vm.WriteArithmetic(OpNeg)
		return nil

	case TokenTilde:
		c.next()
		if err := c.compileTerm(); err != nil {
			return err
		}
		c.vm.WriteArithmetic(OpNot)
		return nil

	case TokenIdentifier:
		switch c.peek2().Typ {
		case TokenOpenBracket:
			c.next() // identifier
			c.next() // '['
			if err := c.compileArrayAddress(tok.Value); err != nil {
				return err
			}
			if _, err := c.expect(TokenCloseBracket, "']'"); err != nil {
				return err
			}
			c.vm.WritePop(SegPointer, 1)
			c.vm.WritePush(SegThat, 0)
			return nil

		case TokenOpenParen, TokenDot:
			return c.compileSubroutineCall()

		default:
			c.next()
			seg, idx, err := c.variableAccess(tok)
			if err != nil {
				return err
			}
			c.vm.WritePush(seg, idx)
			return nil
		}

	default:
		return &SyntaxError{File: c.filename, Expected: "a term", Got: tok}
	}
}

// compileStringConstant lowers a string literal into String.new/appendChar
// calls, per spec.md §4.4 "Term lowering". The result handle is left on the
// stack, since String.appendChar itself returns this.
func (c *Compiler) compileStringConstant(s string) {
	runes := []rune(s)
	c.vm.WritePush(SegConstant, len(runes))
	c.vm.WriteCall("String.new", 1)
	for _, r := range runes {
		c.vm.WritePush(SegConstant, int(r))
		c.vm.WriteCall("String.appendChar", 2)
	}
}

// compileArrayAddress pushes varName's base, compiles the already-opened
// '[' expression, and adds them, leaving the element address on the stack.
// Callers have already consumed varName and the opening '['.
func (c *Compiler) compileArrayAddress(varName string) error {
	tok := Token{Typ: TokenIdentifier, Value: varName}
	seg, idx, err := c.variableAccess(tok)
	if err != nil {
		return err
	}
	c.vm.WritePush(seg, idx)

	if err := c.compileExpression(); err != nil {
		return err
	}
	c.vm.WriteArithmetic(OpAdd)
	return nil
}

// compileSubroutineCall implements the three-way call-site disambiguation of
// spec.md §4.4 "Subroutine-call lowering". It consumes the leading identifier
// itself.
func (c *Compiler) compileSubroutineCall() error {
	nameTok, err := c.expect(TokenIdentifier, "subroutine or variable name")
	if err != nil {
		return err
	}
	name := nameTok.Value

	if c.check(TokenDot) {
		c.next()
		methodTok, err := c.expect(TokenIdentifier, "subroutine name")
		if err != nil {
			return err
		}

		var target string
		nargs := 0
		if c.sym.Contains(name) {
			seg, idx, _ := c.variableAccess(nameTok)
			c.vm.WritePush(seg, idx)
			nargs = 1

			typ, _ := c.sym.TypeOf(name)
			target = typ.String() + "." + methodTok.Value
		} else {
			target = name + "." + methodTok.Value
		}

		if _, err := c.expect(TokenOpenParen, "'('"); err != nil {
			return err
		}
		n, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		if _, err := c.expect(TokenCloseParen, "')'"); err != nil {
			return err
		}

		c.vm.WriteCall(target, nargs+n)
		return nil
	}

	if c.check(TokenOpenParen) {
		c.vm.WritePush(SegPointer, 0)
		c.next()
		n, err := c.compileExpressionList()
		if err != nil {
			return err
		}
		if _, err := c.expect(TokenCloseParen, "')'"); err != nil {
			return err
		}

		c.vm.WriteCall(c.className+"."+name, n+1)
		return nil
	}

	return &SyntaxError{File: c.filename, Expected: "'(' or '.'", Got: c.peek1()}
}

// variableAccess resolves a variable reference to its VM segment and index.
func (c *Compiler) variableAccess(tok Token) (Segment, int, error) {
	kind, ok := c.sym.KindOf(tok.Value)
	if !ok {
		return "", 0, &SyntaxError{File: c.filename, Expected: "a defined variable", Got: tok}
	}

	idx, _ := c.sym.IndexOf(tok.Value)
	return kind.Segment(), idx, nil
}
