package cargo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
)

// fakeCargo writes a shell script standing in for cargo. It records its
// working directory and arguments in the returned file, prints stderr and
// exits with code.
func fakeCargo(t *testing.T, stderr string, code int) (bin, record string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	dir := t.TempDir()
	bin = filepath.Join(dir, "cargo")
	record = filepath.Join(dir, "record")
	script := "#!/bin/sh\n" +
		"pwd > '" + record + "'\n" +
		"echo \"$@\" >> '" + record + "'\n" +
		"printf '%s' '" + stderr + "' >&2\n" +
		"exit " + strconv.Itoa(code) + "\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, record
}

func readRecord(t *testing.T, path string) (dir, args string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cargo was not invoked: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("record = %q", data)
	}
	return lines[0], lines[1]
}

func testRunner(bin string) *Runner {
	var out bytes.Buffer
	return &Runner{
		Bin:    bin,
		Logger: log.New(&out),
		Stdout: &out,
		Stderr: &out,
	}
}

func TestRun(t *testing.T) {
	bin, record := fakeCargo(t, "", 0)
	dir := t.TempDir()

	if err := testRunner(bin).Run(context.Background(), dir, "init", "--lib"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	gotDir, args := readRecord(t, record)
	if resolved, _ := filepath.EvalSymlinks(dir); gotDir != dir && gotDir != resolved {
		t.Errorf("cargo ran in %s, want %s", gotDir, dir)
	}
	if args != "init --lib" {
		t.Errorf("args = %q, want %q", args, "init --lib")
	}
}

func TestRunFailureCarriesStderr(t *testing.T) {
	bin, _ := fakeCargo(t, "error: destination already exists", 1)

	err := testRunner(bin).Run(context.Background(), t.TempDir(), "init")
	if !errors.Is(err, errors.ErrCodeExternalTool) {
		t.Fatalf("Run() error = %v, want %s", err, errors.ErrCodeExternalTool)
	}
	if !strings.Contains(err.Error(), "destination already exists") {
		t.Errorf("error %q does not include cargo's stderr", err)
	}
	if !strings.Contains(err.Error(), `"cargo init" returned error`) {
		t.Errorf("error %q does not name the subcommand", err)
	}
}

func TestPassthroughExitCode(t *testing.T) {
	bin, _ := fakeCargo(t, "", 3)

	code, err := testRunner(bin).Passthrough(context.Background(), t.TempDir(), "fetch")
	if err != nil {
		t.Fatalf("Passthrough() error: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestQuietAddsFlag(t *testing.T) {
	bin, record := fakeCargo(t, "", 0)
	r := testRunner(bin)
	r.Quiet = true

	if _, err := r.Fetch(context.Background(), t.TempDir(), []string{"--locked"}); err != nil {
		t.Fatal(err)
	}
	if _, args := readRecord(t, record); args != "fetch -q --locked" {
		t.Errorf("args = %q", args)
	}
}

func TestVendorArgs(t *testing.T) {
	tests := []struct {
		name      string
		versioned bool
		extra     []string
		want      string
	}{
		{"plain", false, nil, "vendor /out"},
		{"versioned", true, nil, "vendor /out --versioned-dirs"},
		{"extra", true, []string{"--offline"}, "vendor /out --versioned-dirs --offline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, record := fakeCargo(t, "", 0)
			if _, err := testRunner(bin).Vendor(context.Background(), t.TempDir(), "/out", tt.versioned, tt.extra); err != nil {
				t.Fatal(err)
			}
			if _, args := readRecord(t, record); args != tt.want {
				t.Errorf("args = %q, want %q", args, tt.want)
			}
		})
	}
}

func TestCreateProject(t *testing.T) {
	bin, record := fakeCargo(t, "", 0)
	dir := filepath.Join(t.TempDir(), "batch1")

	if err := testRunner(bin).CreateProject(context.Background(), dir, "batch1"); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("project directory not created: %v", err)
	}
	if _, args := readRecord(t, record); args != "init --lib --vcs none --name batch1" {
		t.Errorf("args = %q", args)
	}
}

func TestRunChecksDirectory(t *testing.T) {
	r := testRunner("cargo-that-is-never-run")

	missing := filepath.Join(t.TempDir(), "missing")
	err := r.Run(context.Background(), missing, "fetch")
	if !errors.Is(err, errors.ErrCodeIO) || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("missing dir error = %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err = r.Run(context.Background(), file, "fetch")
	if !errors.Is(err, errors.ErrCodeIO) || !strings.Contains(err.Error(), "is not a directory") {
		t.Errorf("file as dir error = %v", err)
	}
}

func TestMissingBinary(t *testing.T) {
	r := testRunner(filepath.Join(t.TempDir(), "no-such-cargo"))
	code, err := r.Passthrough(context.Background(), t.TempDir(), "fetch")
	if !errors.Is(err, errors.ErrCodeExternalTool) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeExternalTool)
	}
	if code != -1 {
		t.Errorf("exit code = %d, want -1", code)
	}
}

func TestNewRunnerUsesEnv(t *testing.T) {
	t.Setenv(EnvCargo, "/opt/rust/bin/cargo")
	if r := NewRunner(false, nil); r.Bin != "/opt/rust/bin/cargo" {
		t.Errorf("Bin = %q", r.Bin)
	}

	t.Setenv(EnvCargo, "")
	if r := NewRunner(false, nil); r.Bin != "cargo" {
		t.Errorf("Bin = %q, want cargo", r.Bin)
	}
}

func TestAbsPath(t *testing.T) {
	got, err := AbsPath("vendor")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "vendor" {
		t.Errorf("AbsPath(vendor) = %q", got)
	}
}
