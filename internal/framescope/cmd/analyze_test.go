package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const overflowSource = `main:
    push rbp
    mov rbp, rsp
    sub rsp, 16
    lea rcx, [rbp-32]
    call lstrcpy
`

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagJSON = false
		flagLine = 0
		flagFunction = ""
		flagSource = false
		flagUnsafe = nil
	})
}

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.asm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunAnalyzeJSON(t *testing.T) {
	resetFlags(t)
	flagJSON = true
	path := writeSource(t, overflowSource)

	var buf bytes.Buffer
	if err := runAnalyze(&buf, path); err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}

	// Enum kinds marshal as strings, so decode into a generic tree.
	var out struct {
		File      string `json:"file"`
		Functions []struct {
			Name      string `json:"name"`
			StackSize int    `json:"stack_size"`
			Errors    []struct {
				Kind string `json:"kind"`
			} `json:"errors"`
			Layout []struct {
				Kind   string   `json:"kind"`
				Offset int      `json:"offset"`
				Usage  []string `json:"usage"`
				Unsafe bool     `json:"unsafe"`
			} `json:"layout"`
		} `json:"functions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, buf.String())
	}

	if out.File != path {
		t.Errorf("file = %q, want %q", out.File, path)
	}
	if len(out.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(out.Functions))
	}
	fn := out.Functions[0]
	if fn.Name != "main" || fn.StackSize != 16 {
		t.Errorf("got %s/%d, want main/16", fn.Name, fn.StackSize)
	}

	kinds := make(map[string]bool)
	for _, e := range fn.Errors {
		kinds[e.Kind] = true
	}
	if !kinds["out_of_bounds"] || !kinds["uninitialized"] {
		t.Errorf("finding kinds = %v, want out_of_bounds and uninitialized", kinds)
	}

	var slot *struct {
		Kind   string   `json:"kind"`
		Offset int      `json:"offset"`
		Usage  []string `json:"usage"`
		Unsafe bool     `json:"unsafe"`
	}
	for i := range fn.Layout {
		if fn.Layout[i].Kind == "variable" && fn.Layout[i].Offset == 32 {
			slot = &fn.Layout[i]
		}
	}
	if slot == nil {
		t.Fatalf("no variable range at offset 32 in %+v", fn.Layout)
	}
	if !slot.Unsafe {
		t.Error("slot passed to lstrcpy should be flagged unsafe")
	}
	if len(slot.Usage) != 1 || slot.Usage[0] != "lstrcpy" {
		t.Errorf("usage = %v, want [lstrcpy]", slot.Usage)
	}
}

func TestRunAnalyzeLineQuery(t *testing.T) {
	resetFlags(t)
	path := writeSource(t, overflowSource)

	cases := []struct {
		name string
		line int
		want string
	}{
		{"line with stack ref", 5, "line 5: offsets [32]"},
		{"line without stack ref", 2, "line 2 references no stack slots"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flagLine = tc.line
			var buf bytes.Buffer
			if err := runAnalyze(&buf, path); err != nil {
				t.Fatalf("runAnalyze: %v", err)
			}
			if got := strings.TrimSpace(buf.String()); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRunAnalyzeTextReport(t *testing.T) {
	resetFlags(t)
	t.Setenv("FRAMESCOPE_NO_COLOR", "1")
	path := writeSource(t, overflowSource)

	var buf bytes.Buffer
	if err := runAnalyze(&buf, path); err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"main", "stack 16 bytes", "out_of_bounds", "uninitialized", "lstrcpy"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRunAnalyzeNoFunctions(t *testing.T) {
	resetFlags(t)
	path := writeSource(t, "; just a comment\nnop\n")

	var buf bytes.Buffer
	if err := runAnalyze(&buf, path); err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}
	if !strings.Contains(buf.String(), "no stack-allocating functions found") {
		t.Errorf("got %q", buf.String())
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"main", "main"},
		{"_Z4funcv", "func()"},
	}
	for _, tc := range cases {
		if got := displayName(tc.in); got != tc.want {
			t.Errorf("displayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildConfigUnsafeFlag(t *testing.T) {
	resetFlags(t)
	flagUnsafe = []string{"memcpy_nocheck"}

	cfg := buildConfig()
	found := false
	for _, fn := range cfg.UnsafeFunctions {
		if fn == "memcpy_nocheck" {
			found = true
		}
	}
	if !found {
		t.Errorf("denylist %v missing flag-supplied entry", cfg.UnsafeFunctions)
	}
}
