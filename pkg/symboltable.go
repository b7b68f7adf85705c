package jack

// VarType names the four type shapes a declared variable may have (spec.md §3).
type VarType struct {
	// Basic is one of "int", "char", "boolean" when ClassName is empty.
	Basic string
	// ClassName holds the class name when the variable's type is not basic.
	ClassName string
}

func (t VarType) String() string {
	if t.ClassName != "" {
		return t.ClassName
	}
	return t.Basic
}

var (
	TypeInt     = VarType{Basic: "int"}
	TypeChar    = VarType{Basic: "char"}
	TypeBoolean = VarType{Basic: "boolean"}
)

// ClassType builds a VarType naming a class.
func ClassType(name string) VarType {
	return VarType{ClassName: name}
}

// VarKind is the storage class of a declared variable.
type VarKind int

const (
	Static VarKind = iota
	Field
	Arg
	Var
)

func (k VarKind) String() string {
	switch k {
	case Static:
		return "static"
	case Field:
		return "field"
	case Arg:
		return "arg"
	case Var:
		return "var"
	default:
		return "unknown"
	}
}

// Segment is the VM memory segment a kind maps to (spec.md §4.4 "Segment mapping").
func (k VarKind) Segment() Segment {
	switch k {
	case Static:
		return SegStatic
	case Field:
		return SegThis
	case Arg:
		return SegArgument
	case Var:
		return SegLocal
	default:
		return SegConstant
	}
}

// symbol is one entry of the symbol table: its type, kind, and dense
// zero-based index within its (scope, kind) pair.
type symbol struct {
	typ   VarType
	kind  VarKind
	index int
}

// varCounter tracks the next free index per VarKind within one scope.
type varCounter struct {
	counts [4]int
}

func (c *varCounter) next(k VarKind) int {
	i := c.counts[k]
	c.counts[k]++
	return i
}

func (c *varCounter) count(k VarKind) int {
	return c.counts[k]
}

func (c *varCounter) clear() {
	c.counts = [4]int{}
}

// SymbolTable is the two-level name -> (type, kind, index) mapping described
// in spec.md §4.2. Class scope holds Static/Field; subroutine scope holds
// Arg/Var. Lookups try subroutine scope first, then class scope.
type SymbolTable struct {
	class  map[string]symbol
	sub    map[string]symbol
	cntCls varCounter
	cntSub varCounter
}

// NewSymbolTable returns an empty table, ready for one class's compilation.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		class: make(map[string]symbol),
		sub:   make(map[string]symbol),
	}
}

// StartSubroutine clears the subroutine scope and its counters, ready for the
// next subroutine declaration.
func (t *SymbolTable) StartSubroutine() {
	t.sub = make(map[string]symbol)
	t.cntSub.clear()
}

// Define inserts name into the scope implied by kind, assigning it the next
// dense index for that (scope, kind) pair.
func (t *SymbolTable) Define(name string, kind VarKind, typ VarType) {
	switch kind {
	case Static, Field:
		t.class[name] = symbol{typ: typ, kind: kind, index: t.cntCls.next(kind)}
	default:
		t.sub[name] = symbol{typ: typ, kind: kind, index: t.cntSub.next(kind)}
	}
}

// VarCount returns the number of definitions so far of kind within its scope.
func (t *SymbolTable) VarCount(kind VarKind) int {
	switch kind {
	case Static, Field:
		return t.cntCls.count(kind)
	default:
		return t.cntSub.count(kind)
	}
}

func (t *SymbolTable) lookup(name string) (symbol, bool) {
	if s, ok := t.sub[name]; ok {
		return s, true
	}
	if s, ok := t.class[name]; ok {
		return s, true
	}
	return symbol{}, false
}

// KindOf returns the kind of name and whether it was found.
func (t *SymbolTable) KindOf(name string) (VarKind, bool) {
	s, ok := t.lookup(name)
	return s.kind, ok
}

// TypeOf returns the type of name and whether it was found.
func (t *SymbolTable) TypeOf(name string) (VarType, bool) {
	s, ok := t.lookup(name)
	return s.typ, ok
}

// IndexOf returns the index of name and whether it was found.
func (t *SymbolTable) IndexOf(name string) (int, bool) {
	s, ok := t.lookup(name)
	return s.index, ok
}

// Contains reports whether name is defined in either scope.
func (t *SymbolTable) Contains(name string) bool {
	_, ok := t.lookup(name)
	return ok
}
