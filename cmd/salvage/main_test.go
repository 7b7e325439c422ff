package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCheck_JSON(t *testing.T) {
	doc := `{"type":"doc","content":[{"type":"paragraph","marks":["bogusMark"],"content":[{"type":"bogusNode"}]}]}`
	code, out, _ := runCLI(t, doc, "check")
	if code != exitInvalid {
		t.Fatalf("exit code %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "/content/0/content/0\tunknown_node") || !strings.HasPrefix(lines[1], "/content/0/marks/0\tunknown_mark") {
		t.Fatalf("unexpected order:\n%s", out)
	}
	if lines[2] != "2 invalid blocks found" {
		t.Fatalf("summary: %q", lines[2])
	}

	code, out, _ = runCLI(t, `{"type":"doc","content":[{"type":"paragraph"}]}`, "check")
	if code != exitOK || strings.TrimSpace(out) != "no invalid blocks found" {
		t.Fatalf("valid doc: %d %q", code, out)
	}
}

func TestProbe(t *testing.T) {
	code, out, _ := runCLI(t, `<p>x</p><custom-widget data-id="5">y</custom-widget>`, "probe")
	if code != exitOK {
		t.Fatalf("exit code %d", code)
	}
	if want := "<custom-widget> data-id\n1 unknown element found\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if code, _, _ := runCLI(t, `{"type":"doc"}`, "probe"); code != exitUsage {
		t.Fatalf("JSON probe exit code %d", code)
	}
}

func TestPlaceholders_SchemaFile(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "exts.yaml")
	cfg := "starter: true\nextensions:\n  - name: collaboration\n    collaborative: true\n"
	if err := os.WriteFile(schema, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, _ := runCLI(t, `<x-a id="1"></x-a><x-a class="c"></x-a>`, "placeholders", "-schema", schema)
	if code != exitOK {
		t.Fatalf("exit code %d", code)
	}
	want := "node x-a id class\nremoved 1 collaboration extension\n1 placeholder found\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRecover(t *testing.T) {
	in := `[{"type":"paragraph","content":[{"type":"text","text":"ok"}]},{"type":"callout"}]`

	code, out, errOut := runCLI(t, in, "recover", "-html", "-repair")
	if code != exitOK {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "<p>ok</p>" {
		t.Fatalf("repair output: %q", out)
	}
	if !strings.Contains(errOut, "recovered: 1 invalid block found") {
		t.Fatalf("stderr: %s", errOut)
	}

	code, out, _ = runCLI(t, in, "recover", "-html")
	if code != exitOK || strings.TrimSpace(out) != "<p></p>" {
		t.Fatalf("fallback output: %d %q", code, out)
	}

	code, out, _ = runCLI(t, in, "recover", "-html", "-placeholders")
	if code != exitOK || strings.TrimSpace(out) != "<p>ok</p><callout></callout>" {
		t.Fatalf("placeholder output: %d %q", code, out)
	}
}

func TestUsage(t *testing.T) {
	if code, _, errOut := runCLI(t, "", "nope"); code != exitUsage || !strings.Contains(errOut, "Usage:") {
		t.Fatalf("unexpected: %d %s", code, errOut)
	}
}
