package main

import (
	"os"
	"path/filepath"
	"testing"
)

// execute runs the CLI in dir and restores the working directory after,
// since --workspace changes it for the process.
func execute(t *testing.T, dir string, args ...string) error {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	rootCmd.SetArgs(append([]string{"--workspace", dir}, args...))
	return rootCmd.Execute()
}

func writeInput(t *testing.T, dir string) {
	t.Helper()
	stream := "1,10,1\n2,20,1\n1,10,2\n3,30,4\n3,30,4\n3,30,4\n"
	if err := os.WriteFile(filepath.Join(dir, "in.csv"), []byte(stream), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCLI_TestPipeline(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir)

	if err := execute(t, dir, "test"); err != nil {
		t.Fatalf("midas test failed: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("reference output missing: %v", err)
	}
	testOut, err := os.ReadFile(filepath.Join(dir, "test.out.csv"))
	if err != nil {
		t.Fatalf("test output missing: %v", err)
	}
	if string(out) != string(testOut) {
		t.Error("out.csv and test.out.csv differ after a passing run")
	}
}

func TestCLI_TestDetectsCorruptReference(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir)

	if err := execute(t, dir, "test"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "out.csv"), []byte("bogus\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, dir, "test"); err == nil {
		t.Fatal("expected nonzero result for mismatching outputs")
	}
}

func TestCLI_CleanThenTestReproduces(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir)

	if err := execute(t, dir, "test"); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatal(err)
	}

	if err := execute(t, dir, "clean"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.csv")); !os.IsNotExist(err) {
		t.Fatal("clean left out.csv behind")
	}

	if err := execute(t, dir, "test"); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("clean + test did not reproduce the previous output")
	}
}

func TestCLI_ScoreMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	if err := execute(t, dir, "score"); err == nil {
		t.Fatal("expected error when input does not exist")
	}
}

func TestCLI_Version(t *testing.T) {
	if err := execute(t, t.TempDir(), "version"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
}
