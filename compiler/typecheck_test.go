package compiler

import "testing"

// check parses the source and runs the type checker, returning the collected
// errors (nil for a clean program).
func check(t *testing.T, src string) TypeErrors {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	checkErr := TypeCheck(prog)
	if checkErr == nil {
		return nil
	}
	terrs, ok := checkErr.(TypeErrors)
	if !ok {
		t.Fatalf("error type = %T, want TypeErrors", checkErr)
	}
	return terrs
}

func assertOneError(t *testing.T, errs TypeErrors, kind TypeErrorKind) {
	t.Helper()
	if len(errs) != 1 {
		t.Fatalf("got %d errors %v, want 1", len(errs), errs)
	}
	if errs[0].Kind != kind {
		t.Errorf("kind = %v, want %v", errs[0].Kind, kind)
	}
}

func TestCheckCleanProgram(t *testing.T) {
	errs := check(t, "fn:add|i:int,int|o:int|ret:op:+(i0,i1)\nv:r=@add(1,2)\nexport:add\n")
	if errs != nil {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestCheckVariableAnnotationMismatch(t *testing.T) {
	errs := check(t, "v:x:int=\"hi\"\n")
	assertOneError(t, errs, TypeMismatch)
}

func TestCheckCompoundAssignUndefined(t *testing.T) {
	errs := check(t, "missing+=1\n")
	assertOneError(t, errs, TypeUndefinedName)
}

func TestCheckCompoundAssignBadOperand(t *testing.T) {
	errs := check(t, "v:flag=true\nflag+=1\n")
	assertOneError(t, errs, TypeBadOperand)
}

func TestCheckStringAppend(t *testing.T) {
	errs := check(t, "v:s=\"a\"\ns+=\"b\"\n")
	if errs != nil {
		t.Errorf("string append should be allowed, got %v", errs)
	}
}

func TestCheckCallArity(t *testing.T) {
	errs := check(t, "fn:add|i:int,int|o:int|ret:op:+(i0,i1)\nv:r=@add(1)\n")
	assertOneError(t, errs, TypeBadArity)
}

func TestCheckCallArgumentMismatch(t *testing.T) {
	errs := check(t, "fn:add|i:int,int|o:int|ret:op:+(i0,i1)\nv:r=@add(1,\"two\")\n")
	assertOneError(t, errs, TypeMismatch)
}

func TestCheckNotCallable(t *testing.T) {
	errs := check(t, "v:n:int=3\nv:r=@n()\n")
	assertOneError(t, errs, TypeNotCallable)
}

func TestCheckReturnTypeMismatch(t *testing.T) {
	errs := check(t, "fn:bad|i:int|o:str|ret:i0\n")
	assertOneError(t, errs, TypeMismatch)
}

func TestCheckIntWidensToFloat(t *testing.T) {
	errs := check(t, "fn:id|i:int|o:float|ret:i0\n")
	if errs != nil {
		t.Errorf("int return against float output should pass, got %v", errs)
	}
}

func TestCheckDivisionProducesFloat(t *testing.T) {
	errs := check(t, "fn:half|i:int|o:int|ret:op:/(i0,2)\n")
	assertOneError(t, errs, TypeMismatch)
}

func TestCheckUnknownNamesStayPermissive(t *testing.T) {
	errs := check(t, "v:x=mystery\nx+=1\nv:y=@helper(1,2,3)\n")
	if errs != nil {
		t.Errorf("unknown names should not error, got %v", errs)
	}
}

func TestCheckCollectsAllErrors(t *testing.T) {
	errs := check(t, "v:a:int=\"x\"\nv:b:str=2\n")
	if len(errs) != 2 {
		t.Fatalf("got %d errors %v, want 2", len(errs), errs)
	}
}

func TestCheckBuiltins(t *testing.T) {
	errs := check(t, "v:n:int=@len(items)\nv:s:str=@str(42)\n")
	if errs != nil {
		t.Errorf("builtin result types wrong: %v", errs)
	}
}

func TestCheckForLoopVariableInScope(t *testing.T) {
	errs := check(t, "v:total=0\nfor:n,0..10|total+=n\n")
	if errs != nil {
		t.Errorf("loop variable should be in scope, got %v", errs)
	}
}

func TestCheckUIStateMismatch(t *testing.T) {
	errs := check(t, "ui:Counter|state:count:int=\"zero\"|render:div\n")
	assertOneError(t, errs, TypeMismatch)
}

func TestCheckAnnotatesResolvedTypes(t *testing.T) {
	prog := mustParse(t, "v:x=1\nv:y=2.5\nv:s=\"hi\"\n")
	if err := TypeCheck(prog); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	tests := []struct {
		idx  int
		kind TypeKind
	}{
		{0, TypeInt},
		{1, TypeFloat},
		{2, TypeStr},
	}
	for _, tc := range tests {
		value := prog.Statements[tc.idx].(*VariableDef).Value
		if got := value.Resolved().Kind; got != tc.kind {
			t.Errorf("statement %d resolved kind = %v, want %v", tc.idx, got, tc.kind)
		}
	}
}
