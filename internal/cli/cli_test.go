package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
)

const testLockfile = `version = 3

[[package]]
name = "app"
version = "0.1.0"
dependencies = ["serde 1.0.0", "serde 2.0.0"]

[[package]]
name = "serde"
version = "1.0.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "aaaa"

[[package]]
name = "serde"
version = "2.0.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "bbbb"
`

// fakeCargo installs a shell script as $CARGO. It appends every invocation
// to the returned record file, creates a manifest on init and exits with
// exitCode on fetch and vendor.
func fakeCargo(t *testing.T, exitCode string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo is a shell script")
	}
	dir := t.TempDir()
	record := filepath.Join(dir, "record")
	script := `#!/bin/sh
echo "$@" >> "` + record + `"
case "$1" in
init)
	name=x
	prev=
	for a in "$@"; do
		[ "$prev" = "--name" ] && name=$a
		prev=$a
	done
	printf '[package]\nname = "%s"\nversion = "0.1.0"\nedition = "2021"\n' "$name" > Cargo.toml
	;;
fetch|vendor)
	echo "cargo output" >&2
	exit ` + exitCode + `
	;;
esac
`
	bin := filepath.Join(dir, "cargo")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARGO", bin)
	return record
}

func writeLockfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cargo.lock")
	if err := os.WriteFile(path, []byte(testLockfile), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Stdout = &out
	c.Stderr = &errOut
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLockFetch(t *testing.T) {
	record := fakeCargo(t, "0")
	lf := writeLockfile(t)
	dir := t.TempDir()

	_, stderr, err := execute(t, "lock-fetch", "--lockfile-path", lf, "--tmp-dir", dir)
	if err != nil {
		t.Fatalf("lock-fetch: %v", err)
	}
	if stderr != "cargo output\n" {
		t.Errorf("stderr = %q, want cargo's output only", stderr)
	}

	lines := readLines(t, record)
	want := []string{
		"init --lib --vcs none --name lock-fetch-root",
		"init --lib --vcs none --name batch1",
		"init --lib --vcs none --name batch2",
		"fetch",
	}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("cargo calls = %q, want %q", lines, want)
	}

	var root struct {
		Dependencies map[string]map[string]any `toml:"dependencies"`
	}
	if _, err := toml.DecodeFile(filepath.Join(dir, "Cargo.toml"), &root); err != nil {
		t.Fatal(err)
	}
	if root.Dependencies["batch1"]["path"] != "batch1" || root.Dependencies["batch2"]["path"] != "batch2" {
		t.Errorf("root dependencies = %v", root.Dependencies)
	}
	if _, err := os.Stat(filepath.Join(dir, "batch2", "Cargo.toml")); err != nil {
		t.Errorf("batch2 not created: %v", err)
	}
}

func TestLockFetchPassesArgs(t *testing.T) {
	record := fakeCargo(t, "0")
	lf := writeLockfile(t)

	_, _, err := execute(t, "lock-fetch", "--lockfile-path", lf, "--tmp-dir", t.TempDir(), "--", "--offline", "--locked")
	if err != nil {
		t.Fatal(err)
	}
	lines := readLines(t, record)
	if got := lines[len(lines)-1]; got != "fetch --offline --locked" {
		t.Errorf("fetch call = %q", got)
	}
}

func TestLockFetchVendor(t *testing.T) {
	record := fakeCargo(t, "0")
	lf := writeLockfile(t)
	vendor := filepath.Join(t.TempDir(), "vendor")

	_, _, err := execute(t, "lock-fetch", "--lockfile-path", lf, "--tmp-dir", t.TempDir(),
		"--vendor", vendor, "--versioned-dirs", "-q")
	if err != nil {
		t.Fatal(err)
	}
	lines := readLines(t, record)
	if got, want := lines[len(lines)-1], "vendor -q "+vendor+" --versioned-dirs"; got != want {
		t.Errorf("vendor call = %q, want %q", got, want)
	}
}

func TestLockFetchExitCode(t *testing.T) {
	fakeCargo(t, "101")
	lf := writeLockfile(t)

	_, _, err := execute(t, "lock-fetch", "--lockfile-path", lf, "--tmp-dir", t.TempDir())
	exit, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if exit.Code != 101 || !exit.Silent {
		t.Errorf("exit = %+v, want code 101, silent", exit)
	}
}

func TestLockFetchRemovesScratch(t *testing.T) {
	fakeCargo(t, "0")
	lf := writeLockfile(t)
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	if _, _, err := execute(t, "lock-fetch", "--lockfile-path", lf); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), appName) {
			t.Errorf("scratch directory %s left behind", e.Name())
		}
	}
}

func TestLockFetchKeepTmp(t *testing.T) {
	fakeCargo(t, "0")
	lf := writeLockfile(t)
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	_, stderr, err := execute(t, "lock-fetch", "--lockfile-path", lf, "--keep-tmp")
	if err != nil {
		t.Fatal(err)
	}
	dir := strings.SplitN(stderr, "\n", 2)[0]
	if !strings.HasPrefix(filepath.Base(dir), appName+"-") {
		t.Fatalf("first stderr line = %q, want scratch path", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "Cargo.toml")); err != nil {
		t.Errorf("kept workspace missing: %v", err)
	}
}

func TestLockFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode errors.Code
	}{
		{"missing lockfile", []string{"--lockfile-path", "does/not/exist.lock"}, errors.ErrCodeFileNotFound},
		{"versioned without vendor", []string{"--versioned-dirs"}, errors.ErrCodeInvalidInput},
		{"tmp dir missing", []string{"--tmp-dir", "does/not/exist"}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := fakeCargo(t, "0")
			_, _, err := execute(t, append([]string{"lock-fetch"}, tt.args...)...)
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("err = %v, want code %s", err, tt.wantCode)
			}
			if _, statErr := os.Stat(record); statErr == nil {
				t.Error("cargo should not have been called")
			}
		})
	}
}

func TestLockFetchKeepTmpExclusive(t *testing.T) {
	fakeCargo(t, "0")
	_, _, err := execute(t, "lock-fetch", "--keep-tmp", "--tmp-dir", t.TempDir())
	if err == nil {
		t.Fatal("expected error for --keep-tmp with --tmp-dir")
	}
}

func TestLockFetchQuietFailure(t *testing.T) {
	fakeCargo(t, "0")
	_, stderr, err := execute(t, "lock-fetch", "-q", "--lockfile-path", "missing.lock")
	exit, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if exit.Code != ExitFailure || !exit.Silent {
		t.Errorf("exit = %+v", exit)
	}
	if !errors.Is(exit, errors.ErrCodeFileNotFound) {
		t.Errorf("cause = %v", exit.Err)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want nothing", stderr)
	}
}

func TestLockFetchUnsupportedSource(t *testing.T) {
	record := fakeCargo(t, "0")
	path := filepath.Join(t.TempDir(), "Cargo.lock")
	data := testLockfile + `
[[package]]
name = "weird"
version = "1.0.0"
source = "svn+https://example.com/weird"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := execute(t, "lock-fetch", "--lockfile-path", path, "--tmp-dir", t.TempDir())
	if !errors.Is(err, errors.ErrCodeUnsupportedSource) {
		t.Fatalf("err = %v, want UNSUPPORTED_SOURCE", err)
	}
	if _, statErr := os.Stat(record); statErr == nil {
		t.Error("no project should be created when planning fails")
	}
}

func TestPlanFormats(t *testing.T) {
	lf := writeLockfile(t)

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, "lock-fetch", "plan", "--lockfile-path", lf, "--format", "json")
		if err != nil {
			t.Fatal(err)
		}
		var doc struct {
			Digest  string `json:"digest"`
			Root    string `json:"root"`
			Batches []struct {
				Name     string   `json:"name"`
				Packages []string `json:"packages"`
			} `json:"batches"`
			Skipped []string `json:"skipped"`
		}
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			t.Fatalf("decode: %v\n%s", err, out)
		}
		if doc.Digest == "" || doc.Root != "lock-fetch-root" {
			t.Errorf("doc = %+v", doc)
		}
		if len(doc.Batches) != 2 || doc.Batches[1].Packages[0] != "serde@2.0.0" {
			t.Errorf("batches = %+v", doc.Batches)
		}
		if len(doc.Skipped) != 1 || doc.Skipped[0] != "app@0.1.0" {
			t.Errorf("skipped = %v", doc.Skipped)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := execute(t, "lock-fetch", "plan", "--lockfile-path", lf, "-f", "yaml")
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
			t.Fatalf("decode: %v\n%s", err, out)
		}
		for _, key := range []string{"digest", "root", "batches", "registries"} {
			if _, ok := doc[key]; !ok {
				t.Errorf("yaml output missing %q", key)
			}
		}
	})

	t.Run("text", func(t *testing.T) {
		out, _, err := execute(t, "lock-fetch", "plan", "--lockfile-path", lf)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"batch1", "batch2", "serde@1.0.0", `registry = "reg1"`, "reg1", "digest "} {
			if !strings.Contains(out, want) {
				t.Errorf("text output missing %q:\n%s", want, out)
			}
		}
	})
}

func TestPlanDigestStable(t *testing.T) {
	lf := writeLockfile(t)
	first, _, err := execute(t, "lock-fetch", "plan", "--lockfile-path", lf, "-f", "json")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := execute(t, "lock-fetch", "plan", "--lockfile-path", lf, "-f", "json")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("plan output differs between runs")
	}
}

func TestPlanOutputFile(t *testing.T) {
	lf := writeLockfile(t)
	out := filepath.Join(t.TempDir(), "plan.yaml")

	stdout, _, err := execute(t, "lock-fetch", "plan", "--lockfile-path", lf, "-f", "yaml", "-o", out)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "lock-fetch-root") {
		t.Errorf("plan file = %s", data)
	}
}

func TestPlanUnknownFormat(t *testing.T) {
	_, _, err := execute(t, "lock-fetch", "plan", "--lockfile-path", writeLockfile(t), "-f", "xml")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestExitError(t *testing.T) {
	if got := (&ExitError{Code: 101}).Error(); got != "exit status 101" {
		t.Errorf("Error() = %q", got)
	}
	cause := errors.New(errors.ErrCodeIO, "boom")
	e := &ExitError{Code: ExitFailure, Err: cause}
	if e.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", e.Error(), cause.Error())
	}
	if !errors.Is(e, errors.ErrCodeIO) {
		t.Error("ExitError should unwrap to its cause")
	}
}
