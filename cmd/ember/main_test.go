package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := dispatch(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		src    string
		code   int
		stdout string
		stderr string
	}{
		{"ok", `print("hi", 1 + 2);`, exitOK, "hi 3\n", ""},
		{"uncaught", "fn f() { throw \"boom\"; }\nf();", exitRuntime, "", "exception not handled: boom"},
		{"runtime fault", "let x = 1 / 0;", exitRuntime, "", "division by zero"},
		{"compile error", "let = ;", exitCompile, "", "compile_error.em:1:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".em", tt.src)
			code, stdout, stderr := runCLI(t, "run", file)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d (stderr %q)", code, tt.code, stderr)
			}
			if stdout != tt.stdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.stdout)
			}
			if !strings.Contains(stderr, tt.stderr) {
				t.Errorf("stderr %q does not contain %q", stderr, tt.stderr)
			}
		})
	}
}

func TestRunArgsAndImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.em", `fn shout(s) { return s + "!"; }`)
	main := writeFile(t, dir, "main.em", "import util;\nprint(len(args), util.shout(args[0]));")

	code, stdout, stderr := runCLI(t, "run", main, "hey", "there")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if stdout != "2 hey!\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"bogus"},
		{"run"},
		{"check"},
		{"disasm"},
		{"dump", "only-one"},
	} {
		if code, _, _ := runCLI(t, args...); code != exitUsage {
			t.Errorf("%v: exit code = %d, want %d", args, code, exitUsage)
		}
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != exitOK || !strings.HasPrefix(stdout, "ember ") {
		t.Errorf("version: %d %q", code, stdout)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.em", "let a = 1;")
	bad := writeFile(t, dir, "bad.em", "let a = ;")
	also := writeFile(t, dir, "also.em", "fn f() { return 1; }")

	code, stdout, stderr := runCLI(t, "check", good, bad, also)
	if code != exitCompile {
		t.Errorf("exit code = %d, want %d", code, exitCompile)
	}
	if !strings.Contains(stdout, "ok   "+good) || !strings.Contains(stdout, "ok   "+also) {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "bad.em:1:") {
		t.Errorf("stderr = %q", stderr)
	}

	if code, _, _ := runCLI(t, "check", good, also); code != exitOK {
		t.Errorf("exit code = %d for valid files", code)
	}

	code, stdout, _ = runCLI(t, "check", "-ast", good)
	if code != exitOK || !strings.Contains(stdout, "(let (a) 1)") {
		t.Errorf("check -ast: %d %q", code, stdout)
	}
}

func TestDisasmAndDump(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "prog.em", "let x = 1 + 2;")

	code, stdout, stderr := runCLI(t, "disasm", file)
	if code != exitOK || stdout == "" {
		t.Fatalf("disasm: %d %q %q", code, stdout, stderr)
	}

	for _, raw := range []bool{false, true} {
		out := filepath.Join(dir, "prog.dump")
		args := []string{"dump", file, out}
		if raw {
			args = []string{"dump", "-raw", file, out}
		}
		if code, _, stderr := runCLI(t, args...); code != exitOK {
			t.Fatalf("dump raw=%v: %d %q", raw, code, stderr)
		}
		info, err := os.Stat(out)
		if err != nil || info.Size() == 0 {
			t.Errorf("dump raw=%v wrote nothing: %v", raw, err)
		}
	}
}

func TestModulesCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EMBER_MODULE_DB", filepath.Join(dir, "modules.db"))
	lib := writeFile(t, dir, "greet.em", `fn hi() { return "hi from store"; }`)

	if code, stdout, stderr := runCLI(t, "modules", "put", lib); code != exitOK || stdout != "stored greet\n" {
		t.Fatalf("put: %d %q %q", code, stdout, stderr)
	}
	if code, stdout, _ := runCLI(t, "modules", "list"); code != exitOK || !strings.HasPrefix(stdout, "greet") {
		t.Errorf("list: %d %q", code, stdout)
	}
	if code, stdout, _ := runCLI(t, "modules", "get", "greet"); code != exitOK || !strings.Contains(stdout, "hi from store") {
		t.Errorf("get: %d %q", code, stdout)
	}

	// Scripts elsewhere resolve the module from the store.
	other := t.TempDir()
	main := writeFile(t, other, "main.em", "import greet; print(greet.hi());")
	if code, stdout, stderr := runCLI(t, "run", main); code != exitOK || stdout != "hi from store\n" {
		t.Errorf("run: %d %q %q", code, stdout, stderr)
	}

	if code, _, _ := runCLI(t, "modules", "rm", "greet"); code != exitOK {
		t.Errorf("rm: exit code %d", code)
	}
	if code, _, stderr := runCLI(t, "modules", "rm", "greet"); code != exitRuntime || !strings.Contains(stderr, "not found") {
		t.Errorf("second rm: %d %q", code, stderr)
	}
	if code, _, _ := runCLI(t, "modules", "frobnicate"); code != exitUsage {
		t.Errorf("unknown subcommand: exit code %d", code)
	}
}

func TestModulesWithoutStore(t *testing.T) {
	t.Setenv("EMBER_MODULE_DB", "")
	dir := t.TempDir()
	cfg := writeFile(t, dir, "ember.yaml", "paths: [lib]\n")
	if code, _, stderr := runCLI(t, "modules", "-config", cfg, "list"); code != exitUsage || !strings.Contains(stderr, "no module store") {
		t.Errorf("%d %q", code, stderr)
	}
}
