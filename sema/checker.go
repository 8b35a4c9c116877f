package sema

import (
	"github.com/ferrolang/ferro"
	"github.com/ferrolang/ferro/syntax"
)

// Info collects the results of a checker run: the computed type of every
// expression and the symbol binding of every identifier. The AST is left
// untouched; nodes are used as side-table keys.
type Info struct {
	Types   map[syntax.Expr]Type
	Symbols map[*syntax.Ident]*Symbol
}

// TypeOf returns the computed type of an expression, or nil.
func (info *Info) TypeOf(e syntax.Expr) Type {
	return info.Types[e]
}

// SymbolOf returns the symbol an identifier resolved to, or nil.
func (info *Info) SymbolOf(id *syntax.Ident) *Symbol {
	return info.Symbols[id]
}

// Checker walks a program once, checking declarations, statements and
// expressions. Checking is fail-fast: the first violation aborts the
// walk.
type Checker struct {
	env        *env
	info       *Info
	retType    Type   // declared return type of the enclosing function
	loopDepth  int    // loop nesting, for break/continue discipline
	breakTypes []Type // break-type frames of enclosing loop expressions
}

// Check analyses a program and returns the decoration info, or the first
// semantic error.
func Check(prog *syntax.Program) (*Info, error) {
	c := &Checker{
		env: newEnv(),
		info: &Info{
			Types:   map[syntax.Expr]Type{},
			Symbols: map[*syntax.Ident]*Symbol{},
		},
	}
	for _, fn := range prog.Items {
		if err := c.checkFuncDecl(fn); err != nil {
			return nil, err
		}
	}
	tracer().Debugf("checked %d functions, %d typed expressions",
		len(prog.Items), len(c.info.Types))
	return c.info, nil
}

func (c *Checker) errorf(line, col int, format string, args ...interface{}) error {
	return ferro.Errorf(line, col, format, args...)
}

// --- Declarations -----------------------------------------------------------

// checkFuncDecl registers the function's symbol in the enclosing scope
// before checking the body, so recursive calls resolve.
func (c *Checker) checkFuncDecl(fn *syntax.FuncDecl) error {
	paramTypes := make([]Type, len(fn.Params))
	for i, p := range fn.Params {
		t, err := c.resolveType(p.Typ)
		if err != nil {
			return err
		}
		paramTypes[i] = t
	}
	retType := Type(Void)
	if fn.RetType != nil {
		t, err := c.resolveType(fn.RetType)
		if err != nil {
			return err
		}
		retType = t
	}
	c.env.define(&Symbol{
		Name:        fn.Name,
		Type:        &Function{Params: paramTypes, Return: retType},
		Initialized: true,
		Kind:        SymFunction,
	})

	outerRet := c.retType
	c.retType = retType
	c.env.enterScope()
	for i, p := range fn.Params {
		c.env.define(&Symbol{
			Name:        p.Name,
			Type:        paramTypes[i],
			Mutable:     p.Mutable,
			Initialized: true,
			Kind:        SymParameter,
		})
	}
	_, err := c.checkBlock(fn.Body)
	c.env.exitScope()
	c.retType = outerRet
	return err
}

// --- Statements -------------------------------------------------------------

func (c *Checker) checkStmt(s syntax.Stmt) error {
	switch x := s.(type) {
	case *syntax.VarDecl:
		return c.checkVarDecl(x)
	case *syntax.AssignStmt:
		return c.checkAssign(x)
	case *syntax.ReturnStmt:
		return c.checkReturn(x)
	case *syntax.IfStmt:
		_, err := c.checkIf(x)
		return err
	case *syntax.WhileStmt:
		return c.checkWhile(x)
	case *syntax.ForStmt:
		return c.checkFor(x)
	case *syntax.LoopStmt:
		_, err := c.checkLoop(x)
		return err
	case *syntax.BreakStmt:
		return c.checkBreak(x)
	case *syntax.ContinueStmt:
		if c.loopDepth == 0 {
			line, col := x.Pos()
			return c.errorf(line, col, "continue outside of a loop")
		}
		return nil
	case *syntax.ExprStmt:
		_, err := c.checkExpr(x.Expr)
		return err
	case *syntax.EmptyStmt:
		return nil
	case *syntax.Block:
		_, err := c.checkBlock(x)
		return err
	}
	line, col := s.Pos()
	return c.errorf(line, col, "cannot check statement %s", syntax.NodeName(s))
}

func (c *Checker) checkVarDecl(d *syntax.VarDecl) error {
	line, col := d.Pos()
	var initType Type
	if d.Init != nil {
		t, err := c.checkExpr(d.Init)
		if err != nil {
			return err
		}
		if t.Equals(Void) {
			return c.errorf(line, col, "cannot bind a value of type 'void' to variable '%s'", d.Name)
		}
		initType = t
	}
	var declared Type
	if d.Typ != nil {
		t, err := c.resolveType(d.Typ)
		if err != nil {
			return err
		}
		declared = t
	}
	finalType := declared
	if finalType == nil {
		finalType = initType
	}
	if finalType == nil {
		return c.errorf(line, col, "variable '%s' has no type information", d.Name)
	}
	if declared != nil && initType != nil && !declared.Equals(initType) {
		return c.errorf(line, col,
			"type mismatch: variable '%s' is declared as '%s' but its initializer has type '%s'",
			d.Name, declared, initType)
	}
	c.env.define(&Symbol{
		Name:        d.Name,
		Type:        finalType,
		Mutable:     d.Mutable,
		Initialized: d.Init != nil,
		Kind:        SymVariable,
	})
	return nil
}

func (c *Checker) checkAssign(a *syntax.AssignStmt) error {
	line, col := a.Pos()
	switch target := a.Target.(type) {
	case *syntax.Ident:
		sym := c.env.lookup(target.Name)
		if sym == nil {
			return c.errorf(line, col, "undeclared variable '%s'", target.Name)
		}
		if !sym.Mutable && sym.Initialized {
			return c.errorf(line, col,
				"immutable variable '%s' cannot be assigned a second time", target.Name)
		}
		exprType, err := c.checkExpr(a.Expr)
		if err != nil {
			return err
		}
		if !sym.Type.Equals(exprType) {
			return c.errorf(line, col,
				"type mismatch: variable '%s' has type '%s' but the assigned value has type '%s'",
				target.Name, sym.Type, exprType)
		}
		sym.Initialized = true
		c.info.Symbols[target] = sym
		c.info.Types[target] = sym.Type
		return nil
	case *syntax.IndexExpr:
		elemType, err := c.checkExpr(target)
		if err != nil {
			return err
		}
		if baseIdent, ok := target.Base.(*syntax.Ident); ok {
			if sym := c.env.lookup(baseIdent.Name); sym != nil && !sym.Mutable {
				return c.errorf(line, col, "immutable array '%s' cannot be modified", sym.Name)
			}
		}
		rhsType, err := c.checkExpr(a.Expr)
		if err != nil {
			return err
		}
		if !elemType.Equals(rhsType) {
			return c.errorf(line, col,
				"array element type mismatch: expected '%s', got '%s'", elemType, rhsType)
		}
		return nil
	case *syntax.MemberExpr:
		memberType, err := c.checkExpr(target)
		if err != nil {
			return err
		}
		if baseIdent, ok := target.Base.(*syntax.Ident); ok {
			if sym := c.env.lookup(baseIdent.Name); sym != nil && !sym.Mutable {
				return c.errorf(line, col, "immutable tuple '%s' cannot be modified", sym.Name)
			}
		}
		rhsType, err := c.checkExpr(a.Expr)
		if err != nil {
			return err
		}
		if !memberType.Equals(rhsType) {
			return c.errorf(line, col,
				"tuple member type mismatch: expected '%s', got '%s'", memberType, rhsType)
		}
		return nil
	}
	return c.errorf(line, col, "unsupported assignment target %s", syntax.NodeName(a.Target))
}

// checkReturn enforces per-return conformance with the enclosing
// function's declared return type. Implicit returns carry an expression
// block's value instead and are not matched against the signature here.
func (c *Checker) checkReturn(r *syntax.ReturnStmt) error {
	line, col := r.Pos()
	if r.Implicit {
		_, err := c.checkExpr(r.Expr)
		return err
	}
	if r.Expr != nil {
		t, err := c.checkExpr(r.Expr)
		if err != nil {
			return err
		}
		if !t.Equals(c.retType) {
			return c.errorf(line, col,
				"return type mismatch: expected '%s', got '%s'", c.retType, t)
		}
		return nil
	}
	if !c.retType.Equals(Void) {
		return c.errorf(line, col,
			"function expects a '%s' return value, but none was provided", c.retType)
	}
	return nil
}

func (c *Checker) checkWhile(w *syntax.WhileStmt) error {
	line, col := w.Pos()
	condType, err := c.checkExpr(w.Cond)
	if err != nil {
		return err
	}
	if !condType.Equals(I32) {
		return c.errorf(line, col,
			"while condition must have type 'i32', got '%s'", condType)
	}
	c.loopDepth++
	_, err = c.checkBlock(w.Body)
	c.loopDepth--
	return err
}

func (c *Checker) checkFor(f *syntax.ForStmt) error {
	line, col := f.Pos()
	c.loopDepth++
	defer func() { c.loopDepth-- }()
	var loopVarType Type
	if f.End != nil { // for i in a..b
		startType, err := c.checkExpr(f.Start)
		if err != nil {
			return err
		}
		endType, err := c.checkExpr(f.End)
		if err != nil {
			return err
		}
		if !startType.Equals(I32) || !endType.Equals(I32) {
			return c.errorf(line, col,
				"for range bounds must have type 'i32', got '%s' and '%s'", startType, endType)
		}
		loopVarType = I32
	} else { // for x in <array>
		iterType, err := c.checkExpr(f.Start)
		if err != nil {
			return err
		}
		arr, ok := iterType.(*Array)
		if !ok {
			return c.errorf(line, col,
				"for iterable must be an array, got '%s'", iterType)
		}
		loopVarType = arr.Elem
	}
	c.env.enterScope()
	defer c.env.exitScope()
	c.env.define(&Symbol{
		Name:        f.Name,
		Type:        loopVarType,
		Mutable:     f.Mutable,
		Initialized: true,
		Kind:        SymVariable,
	})
	_, err := c.checkBlock(f.Body)
	return err
}

// checkLoop types a loop via its break-type frame: the first break with
// a value fixes the frame, a bare break fixes it to void, and a loop
// that never fixes it is void.
func (c *Checker) checkLoop(l *syntax.LoopStmt) (Type, error) {
	c.loopDepth++
	c.breakTypes = append(c.breakTypes, nil)
	_, err := c.checkBlock(l.Body)
	c.loopDepth--
	breakType := c.breakTypes[len(c.breakTypes)-1]
	c.breakTypes = c.breakTypes[:len(c.breakTypes)-1]
	if err != nil {
		return nil, err
	}
	if breakType == nil {
		breakType = Void
	}
	c.info.Types[l] = breakType
	return breakType, nil
}

func (c *Checker) checkBreak(b *syntax.BreakStmt) error {
	line, col := b.Pos()
	if c.loopDepth == 0 {
		return c.errorf(line, col, "break outside of a loop")
	}
	if len(c.breakTypes) == 0 {
		if b.Expr != nil {
			return c.errorf(line, col, "break with a value outside of a loop expression")
		}
		return nil
	}
	frame := &c.breakTypes[len(c.breakTypes)-1]
	if b.Expr != nil {
		t, err := c.checkExpr(b.Expr)
		if err != nil {
			return err
		}
		if *frame == nil {
			*frame = t
		} else if !t.Equals(*frame) {
			return c.errorf(line, col,
				"inconsistent break value types in loop expression: '%s' vs '%s'", *frame, t)
		}
		return nil
	}
	if *frame == nil {
		*frame = Void
	} else if !(*frame).Equals(Void) {
		return c.errorf(line, col,
			"loop expression expects a '%s' break value", *frame)
	}
	return nil
}

// checkBlock opens a scope for the block's statements. A block used as
// an expression takes the type of its trailing implicit return; all
// other blocks are void. Exiting the scope releases the borrows recorded
// in it.
func (c *Checker) checkBlock(b *syntax.Block) (Type, error) {
	c.env.enterScope()
	defer c.env.exitScope()
	blockType := Type(Void)
	for i, s := range b.Stmts {
		if ret, ok := s.(*syntax.ReturnStmt); ok && ret.Implicit && i == len(b.Stmts)-1 {
			t, err := c.checkExpr(ret.Expr)
			if err != nil {
				return nil, err
			}
			blockType = t
			break
		}
		if err := c.checkStmt(s); err != nil {
			return nil, err
		}
	}
	c.info.Types[b] = blockType
	return blockType, nil
}

func (c *Checker) checkIf(n *syntax.IfStmt) (Type, error) {
	line, col := n.Pos()
	condType, err := c.checkExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	if !condType.Equals(I32) {
		return nil, c.errorf(line, col,
			"if condition must have type 'i32', got '%s'", condType)
	}
	thenType, err := c.checkBlock(n.Then)
	if err != nil {
		return nil, err
	}
	elseType := Type(Void)
	if n.Else != nil {
		elseType, err = c.checkBlock(n.Else)
		if err != nil {
			return nil, err
		}
	}
	ifType := Type(Void)
	if thenType.Equals(elseType) {
		ifType = thenType
	}
	c.info.Types[n] = ifType
	return ifType, nil
}

// --- Expressions ------------------------------------------------------------

func (c *Checker) checkExpr(e syntax.Expr) (Type, error) {
	t, err := c.typeExpr(e)
	if err != nil {
		return nil, err
	}
	c.info.Types[e] = t
	return t, nil
}

func (c *Checker) typeExpr(e syntax.Expr) (Type, error) {
	line, col := e.Pos()
	switch x := e.(type) {
	case *syntax.NumberLit:
		return I32, nil
	case *syntax.Ident:
		sym := c.env.lookup(x.Name)
		if sym == nil {
			return nil, c.errorf(line, col, "undeclared identifier '%s'", x.Name)
		}
		if !sym.Initialized {
			return nil, c.errorf(line, col, "use of uninitialized variable '%s'", x.Name)
		}
		c.info.Symbols[x] = sym
		return sym.Type, nil
	case *syntax.BinaryOp:
		return c.checkBinaryOp(x)
	case *syntax.FuncCall:
		return c.checkCall(x)
	case *syntax.ArrayLiteral:
		return c.checkArrayLiteral(x)
	case *syntax.TupleLiteral:
		members := make([]Type, len(x.Elems))
		for i, elem := range x.Elems {
			t, err := c.checkExpr(elem)
			if err != nil {
				return nil, err
			}
			members[i] = t
		}
		return &Tuple{Members: members}, nil
	case *syntax.IndexExpr:
		return c.checkIndex(x)
	case *syntax.MemberExpr:
		return c.checkMember(x)
	case *syntax.BorrowExpr:
		return c.checkBorrow(x)
	case *syntax.DerefExpr:
		t, err := c.checkExpr(x.Target)
		if err != nil {
			return nil, err
		}
		ref, ok := t.(*Ref)
		if !ok {
			return nil, c.errorf(line, col, "cannot dereference a value of type '%s'", t)
		}
		return ref.Target, nil
	case *syntax.IfStmt:
		return c.checkIf(x)
	case *syntax.LoopStmt:
		return c.checkLoop(x)
	case *syntax.Block:
		return c.checkBlock(x)
	}
	return nil, c.errorf(line, col, "cannot type expression %s", syntax.NodeName(e))
}

func (c *Checker) checkBinaryOp(x *syntax.BinaryOp) (Type, error) {
	line, col := x.Pos()
	leftType, err := c.checkExpr(x.Left)
	if err != nil {
		return nil, err
	}
	rightType, err := c.checkExpr(x.Right)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case "+", "-", "*", "/", "==", "!=", "<", ">", "<=", ">=":
		if !leftType.Equals(I32) || !rightType.Equals(I32) {
			return nil, c.errorf(line, col,
				"operator '%s' requires two 'i32' operands, got '%s' and '%s'",
				x.Op, leftType, rightType)
		}
		// relational operators yield i32 in this dialect, there is no bool
		return I32, nil
	}
	return nil, c.errorf(line, col, "unknown binary operator '%s'", x.Op)
}

func (c *Checker) checkCall(x *syntax.FuncCall) (Type, error) {
	line, col := x.Pos()
	callee, ok := x.Fn.(*syntax.Ident)
	if !ok {
		return nil, c.errorf(line, col, "call target must be an identifier")
	}
	sym := c.env.lookup(callee.Name)
	if sym == nil {
		return nil, c.errorf(line, col, "call to undeclared function '%s'", callee.Name)
	}
	if sym.Kind != SymFunction {
		return nil, c.errorf(line, col, "'%s' is not a function", callee.Name)
	}
	fnType, ok := sym.Type.(*Function)
	if !ok {
		return nil, c.errorf(line, col, "'%s' does not have a function type", callee.Name)
	}
	if len(x.Args) != len(fnType.Params) {
		return nil, c.errorf(line, col,
			"function '%s' expects %d argument(s), got %d",
			callee.Name, len(fnType.Params), len(x.Args))
	}
	for i, arg := range x.Args {
		argType, err := c.checkExpr(arg)
		if err != nil {
			return nil, err
		}
		if !argType.Equals(fnType.Params[i]) {
			return nil, c.errorf(line, col,
				"argument %d of '%s' has type '%s', expected '%s'",
				i+1, callee.Name, argType, fnType.Params[i])
		}
	}
	c.info.Symbols[callee] = sym
	c.info.Types[callee] = fnType
	return fnType.Return, nil
}

func (c *Checker) checkArrayLiteral(x *syntax.ArrayLiteral) (Type, error) {
	line, col := x.Pos()
	if len(x.Elems) == 0 {
		// empty array literals stay a typed placeholder
		return &Array{Elem: Err, Size: 0}, nil
	}
	firstType, err := c.checkExpr(x.Elems[0])
	if err != nil {
		return nil, err
	}
	for _, elem := range x.Elems[1:] {
		elemType, err := c.checkExpr(elem)
		if err != nil {
			return nil, err
		}
		if !elemType.Equals(firstType) {
			return nil, c.errorf(line, col,
				"array elements have mixed types: '%s' vs '%s'", firstType, elemType)
		}
	}
	return &Array{Elem: firstType, Size: len(x.Elems)}, nil
}

func (c *Checker) checkIndex(x *syntax.IndexExpr) (Type, error) {
	line, col := x.Pos()
	baseType, err := c.checkExpr(x.Base)
	if err != nil {
		return nil, err
	}
	arr, ok := baseType.(*Array)
	if !ok {
		return nil, c.errorf(line, col, "indexing requires an array, got '%s'", baseType)
	}
	indexType, err := c.checkExpr(x.Index)
	if err != nil {
		return nil, err
	}
	if !indexType.Equals(I32) {
		return nil, c.errorf(line, col, "array index must have type 'i32', got '%s'", indexType)
	}
	if lit, ok := x.Index.(*syntax.NumberLit); ok {
		if lit.Value < 0 || lit.Value >= arr.Size {
			return nil, c.errorf(line, col,
				"array index %d out of bounds [0, %d]", lit.Value, arr.Size-1)
		}
	}
	return arr.Elem, nil
}

func (c *Checker) checkMember(x *syntax.MemberExpr) (Type, error) {
	line, col := x.Pos()
	baseType, err := c.checkExpr(x.Base)
	if err != nil {
		return nil, err
	}
	tup, ok := baseType.(*Tuple)
	if !ok {
		return nil, c.errorf(line, col, "member access requires a tuple, got '%s'", baseType)
	}
	if x.Field < 0 || x.Field >= len(tup.Members) {
		return nil, c.errorf(line, col,
			"tuple index %d out of bounds [0, %d]", x.Field, len(tup.Members)-1)
	}
	return tup.Members[x.Field], nil
}

// checkBorrow enforces the aliasing discipline: a mutable borrow is
// exclusive and requires a mutable target; immutable borrows are shared
// but exclude a mutable one. Borrows are recorded in the current scope
// and released when it exits.
func (c *Checker) checkBorrow(x *syntax.BorrowExpr) (Type, error) {
	line, col := x.Pos()
	target, ok := x.Target.(*syntax.Ident)
	if !ok {
		return nil, c.errorf(line, col, "borrow target must be a named variable")
	}
	sym := c.env.lookup(target.Name)
	if sym == nil {
		return nil, c.errorf(line, col, "undeclared variable '%s'", target.Name)
	}
	existing := c.env.lookupBorrow(target.Name)
	if x.Mutable {
		if existing != nil && (existing.MutableBorrowActive || existing.ImmutableBorrowCount > 0) {
			return nil, c.errorf(line, col,
				"variable '%s' is already borrowed, cannot borrow as mutable", target.Name)
		}
		if !sym.Mutable {
			return nil, c.errorf(line, col,
				"variable '%s' is not mutable, cannot borrow as mutable", target.Name)
		}
		c.env.borrowRecord(target.Name).MutableBorrowActive = true
	} else {
		if existing != nil && existing.MutableBorrowActive {
			return nil, c.errorf(line, col,
				"variable '%s' is already mutably borrowed, cannot borrow as immutable", target.Name)
		}
		c.env.borrowRecord(target.Name).ImmutableBorrowCount++
	}
	c.info.Symbols[target] = sym
	c.info.Types[target] = sym.Type
	return &Ref{Target: sym.Type, Mutable: x.Mutable}, nil
}
