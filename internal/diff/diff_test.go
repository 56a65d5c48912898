package diff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompare_Identical(t *testing.T) {
	dir := t.TempDir()
	content := "0.000000\n1.500000\n"
	ref := writeFile(t, dir, "out.csv", content)
	got := writeFile(t, dir, "test.out.csv", content)

	result, err := Compare(ref, got)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Identical {
		t.Error("expected identical result")
	}
	if len(result.Edits) != 0 {
		t.Errorf("expected no edits, got %d", len(result.Edits))
	}
}

func TestCompare_ChangedLine(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "out.csv", "0.000000\n1.500000\n2.000000\n")
	got := writeFile(t, dir, "test.out.csv", "0.000000\n1.600000\n2.000000\n")

	result, err := Compare(ref, got)
	if err != nil {
		t.Fatal(err)
	}
	if result.Identical {
		t.Fatal("expected mismatch")
	}

	var removed, added *Edit
	for i := range result.Edits {
		switch result.Edits[i].Type {
		case EditRemoved:
			removed = &result.Edits[i]
		case EditAdded:
			added = &result.Edits[i]
		}
	}
	if removed == nil || removed.Line != 2 || removed.Text != "1.500000" {
		t.Errorf("removed edit = %+v, want line 2 text 1.500000", removed)
	}
	if added == nil || added.Line != 2 || added.Text != "1.600000" {
		t.Errorf("added edit = %+v, want line 2 text 1.600000", added)
	}
}

func TestCompare_TrailingExtraLines(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "out.csv", "0.000000\n")
	got := writeFile(t, dir, "test.out.csv", "0.000000\n1.000000\n2.000000\n")

	result, err := Compare(ref, got)
	if err != nil {
		t.Fatal(err)
	}
	if result.Identical {
		t.Fatal("expected mismatch")
	}

	adds := 0
	for _, e := range result.Edits {
		if e.Type == EditAdded {
			adds++
		}
	}
	if adds != 2 {
		t.Errorf("added lines = %d, want 2", adds)
	}
}

func TestCompare_MissingFile(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "out.csv", "0.000000\n")

	if _, err := Compare(ref, filepath.Join(dir, "nope.csv")); err == nil {
		t.Error("expected error for missing candidate")
	}
	if _, err := Compare(filepath.Join(dir, "nope.csv"), ref); err == nil {
		t.Error("expected error for missing reference")
	}
}

func TestReport_NamesBothFiles(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "out.csv", "1\n")
	got := writeFile(t, dir, "test.out.csv", "2\n")

	result, err := Compare(ref, got)
	if err != nil {
		t.Fatal(err)
	}

	report := result.Report(0)
	if !strings.Contains(report, "out.csv") || !strings.Contains(report, "test.out.csv") {
		t.Errorf("report does not name both files:\n%s", report)
	}
}

func TestReport_Truncation(t *testing.T) {
	dir := t.TempDir()
	var refLines, gotLines strings.Builder
	for i := 0; i < 30; i++ {
		refLines.WriteString("a\n")
		gotLines.WriteString("b\n")
	}
	ref := writeFile(t, dir, "out.csv", refLines.String())
	got := writeFile(t, dir, "test.out.csv", gotLines.String())

	result, err := Compare(ref, got)
	if err != nil {
		t.Fatal(err)
	}

	report := result.Report(5)
	if !strings.Contains(report, "more differing lines") {
		t.Errorf("expected truncation note in report:\n%s", report)
	}
}
