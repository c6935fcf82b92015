package analysis

import (
	"reflect"
	"testing"
)

func analyzeSrc(t *testing.T, src string) *Result {
	t.Helper()
	return AnalyzeText(src, nil)
}

func mustFunction(t *testing.T, res *Result, name string) *FunctionModel {
	t.Helper()
	fn, ok := res.Function(name)
	if !ok {
		t.Fatalf("function %q not in result (have %v)", name, res.Order)
	}
	return fn
}

func TestAnalyze_SimpleFrame(t *testing.T) {
	src := `main:
  push rbp
  mov rbp, rsp
  sub rsp, 16
  mov qword [rbp-8], 100
  mov rax, [rbp-8]
  add rsp, 16
  pop rbp
  ret`

	res := analyzeSrc(t, src)
	fn := mustFunction(t, res, "main")

	if fn.StackSize != 16 {
		t.Errorf("stack size = %d, want 16", fn.StackSize)
	}
	if len(fn.Variables) != 1 {
		t.Fatalf("variables = %d, want 1", len(fn.Variables))
	}
	v := fn.Variables[8]
	if v == nil {
		t.Fatal("no variable at offset 8")
	}
	if v.Type != TypeQword {
		t.Errorf("type = %v, want qword", v.Type)
	}
	if v.AccessCount != 2 {
		t.Errorf("access count = %d, want 2", v.AccessCount)
	}
	if !reflect.DeepEqual(v.Writes, []int{5}) || !reflect.DeepEqual(v.Reads, []int{6}) {
		t.Errorf("writes=%v reads=%v, want writes=[5] reads=[6]", v.Writes, v.Reads)
	}
	if !reflect.DeepEqual(fn.SavedRegs, []string{"rbp"}) {
		t.Errorf("saved regs = %v, want [rbp]", fn.SavedRegs)
	}
	if len(fn.Errors) != 0 {
		t.Errorf("expected no findings, got %v", fn.Errors)
	}
	// 8 return address + 8 saved rbp + 16 stack = 32, multiple of 16.
	if fn.Misaligned {
		t.Errorf("frame of %d bytes should be aligned", fn.FrameBytes)
	}
	if fn.StartLine != 1 || fn.EndLine != 9 {
		t.Errorf("lines = %d-%d, want 1-9", fn.StartLine, fn.EndLine)
	}
}

func TestAnalyze_OutOfBoundsAndUninitializedLea(t *testing.T) {
	src := `f:
  sub rsp, 16
  lea rcx, [rbp-32]
  call lstrcpy
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "f")

	v := fn.Variables[32]
	if v == nil {
		t.Fatal("lea source access should create the variable at offset 32")
	}
	if !reflect.DeepEqual(v.Usage, []string{"lstrcpy"}) {
		t.Errorf("usage = %v, want [lstrcpy]", v.Usage)
	}

	var oob, uninit *Finding
	for i := range fn.Errors {
		switch fn.Errors[i].Kind {
		case FindingOutOfBounds:
			oob = &fn.Errors[i]
		case FindingUninitialized:
			uninit = &fn.Errors[i]
		}
	}
	if oob == nil || oob.Offset != 32 || oob.Line != 3 {
		t.Errorf("out_of_bounds finding = %+v, want offset 32 line 3", oob)
	}
	if uninit == nil || uninit.Offset != 32 || uninit.Line != 3 {
		t.Errorf("uninitialized finding = %+v, want offset 32 line 3", uninit)
	}
}

func TestAnalyze_ReturnTampering(t *testing.T) {
	src := `g:
  sub rsp, 16
  mov rax, [rbp+8]
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "g")
	if len(fn.Variables) != 0 {
		t.Errorf("positive displacement must not create variables: %v", fn.Variables)
	}
	if len(fn.Errors) != 1 || fn.Errors[0].Kind != FindingReturnTamper {
		t.Fatalf("errors = %v, want one return_tamper", fn.Errors)
	}
	if fn.Errors[0].Line != 3 {
		t.Errorf("tamper line = %d, want 3", fn.Errors[0].Line)
	}
	if fn.Errors[0].Offset != 0 {
		t.Errorf("tamper findings carry no offset, got %d", fn.Errors[0].Offset)
	}
}

func TestAnalyze_ImmediateDoesNotPropagateCallUsage(t *testing.T) {
	src := `h:
  sub rsp, 16
  mov eax, 5
  mov [rbp-8], eax
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "h")
	v := fn.Variables[8]
	if v == nil {
		t.Fatal("no variable at offset 8")
	}
	if len(v.Usage) != 0 {
		t.Errorf("usage = %v, want empty (value came from an immediate)", v.Usage)
	}
}

func TestAnalyze_CallResultMarksSlotUsage(t *testing.T) {
	src := `k:
  sub rsp, 16
  call foo
  mov [rbp-8], rax
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "k")
	v := fn.Variables[8]
	if v == nil {
		t.Fatal("no variable at offset 8")
	}
	if !reflect.DeepEqual(v.Usage, []string{"foo"}) {
		t.Errorf("usage = %v, want [foo]", v.Usage)
	}
}

func TestAnalyze_CallProvenanceThroughMoveChain(t *testing.T) {
	src := `k2:
  sub rsp, 16
  call foo
  mov rbx, rax
  mov [rbp-8], rbx
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "k2")
	if v := fn.Variables[8]; v == nil || !reflect.DeepEqual(v.Usage, []string{"foo"}) {
		t.Errorf("usage should follow the move chain, got %+v", v)
	}
}

func TestAnalyze_SubRegisterReadFallsBackToParent(t *testing.T) {
	src := `k3:
  sub rsp, 16
  call foo
  mov [rbp-8], eax
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "k3")
	if v := fn.Variables[8]; v == nil || !reflect.DeepEqual(v.Usage, []string{"foo"}) {
		t.Errorf("eax read should fall back to rax's call, got %+v", v)
	}
}

func TestAnalyze_AccessCountMatchesAccessOrder(t *testing.T) {
	src := `p:
  sub rsp, 32
  mov qword [rbp-8], 1
  mov rax, [rbp-8]
  mov qword [rbp-16], 2
  mov rbx, [rbp-8]
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "p")
	counts := make(map[int]int)
	for _, off := range fn.AccessOrder {
		counts[off]++
	}
	for off, v := range fn.Variables {
		if v.AccessCount != counts[off] {
			t.Errorf("offset %d: access_count=%d but access_order holds %d", off, v.AccessCount, counts[off])
		}
	}
	if !reflect.DeepEqual(fn.AccessOrder, []int{8, 8, 16, 8}) {
		t.Errorf("access order = %v, want [8 8 16 8]", fn.AccessOrder)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	src := `a:
  sub rsp, 32
  lea rdi, [rbp-8]
  lea rsi, [rbp-16]
  call memcpy
  mov rax, [rbp-48]
b:
  sub rsp, 8
  mov dword [rbp-4], 7`

	first := AnalyzeText(src, nil)
	second := AnalyzeText(src, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("two passes over identical text must be deeply equal")
	}
}

func TestAnalyze_ZeroStackFunctionsExcluded(t *testing.T) {
	src := `leaf:
  mov rax, 1
  ret
worker:
  sub rsp, 16
  ret`

	res := analyzeSrc(t, src)
	if _, ok := res.Function("leaf"); ok {
		t.Error("function without stack allocation must be excluded from output")
	}
	if _, ok := res.Function("worker"); !ok {
		t.Error("worker should be reported")
	}
	if !reflect.DeepEqual(res.Order, []string{"worker"}) {
		t.Errorf("order = %v, want [worker]", res.Order)
	}
}

func TestAnalyze_DuplicateLabelLastWins(t *testing.T) {
	src := `dup:
  sub rsp, 16
  mov qword [rbp-8], 1
dup:
  sub rsp, 32
  mov qword [rbp-24], 2`

	res := analyzeSrc(t, src)
	fn := mustFunction(t, res, "dup")
	if fn.StackSize != 32 || fn.StartLine != 4 {
		t.Errorf("later label must overwrite: stack=%d start=%d", fn.StackSize, fn.StartLine)
	}
	if len(res.Order) != 1 {
		t.Errorf("order = %v, want a single entry", res.Order)
	}
}

func TestAnalyze_PreLabelAccessesDiscarded(t *testing.T) {
	src := `  mov qword [rbp-8], 1
  sub rsp, 64
fn:
  sub rsp, 16
  ret`

	res := analyzeSrc(t, src)
	fn := mustFunction(t, res, "fn")
	if fn.StackSize != 16 {
		t.Errorf("pre-label allocation must not leak in: stack=%d", fn.StackSize)
	}
	if len(res.OffsetsAt(1)) != 0 {
		t.Error("pre-label line should have no recorded offsets")
	}
}

func TestAnalyze_FirstAllocationWins(t *testing.T) {
	src := `fa:
  sub rsp, 16
  sub rsp, 64
  ret`

	fn := mustFunction(t, analyzeSrc(t, src), "fa")
	if fn.StackSize != 16 {
		t.Errorf("stack size = %d, want first allocation 16", fn.StackSize)
	}
}

func TestAnalyze_LineOffsets(t *testing.T) {
	src := `lo:
  sub rsp, 16
  mov qword [rbp-8], 1
  mov rax, [rbp-8]
  ret`

	res := analyzeSrc(t, src)
	if !reflect.DeepEqual(res.OffsetsAt(3), []int{8}) {
		t.Errorf("line 3 offsets = %v, want [8]", res.OffsetsAt(3))
	}
	if !reflect.DeepEqual(res.OffsetsAt(4), []int{8}) {
		t.Errorf("line 4 offsets = %v, want [8]", res.OffsetsAt(4))
	}
	if res.OffsetsAt(2) != nil {
		t.Errorf("line 2 references no slots, got %v", res.OffsetsAt(2))
	}
	if res.OffsetsAt(99) != nil {
		t.Error("unknown lines must yield nil, not panic")
	}
}

func TestAnalyze_MalformedInputIsBestEffort(t *testing.T) {
	src := "garbage ::: ???\nfn:\n  sub rsp, \n  mov [rbp-], 1\n  sub rsp, 16\n  ret\n\x00"
	res := AnalyzeText(src, nil)
	fn := mustFunction(t, res, "fn")
	if fn.StackSize != 16 {
		t.Errorf("stack size = %d, want 16 (malformed allocs skipped)", fn.StackSize)
	}
}
