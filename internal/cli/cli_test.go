package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"docs/booking.txt":            "booking.txt",
		"https://example.com/a/b?x=1": "example.com_a_b_x=1",
		"https://example.com/":        "example.com",
		"-":                           "stdin",
		"my booking.html":             "my-booking.html",
		`C:\data\file.txt`:            "C__data_file.txt",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "booking.txt")
	if err := os.WriteFile(input, []byte("booking ex MEL – KUL\n232-45429366\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", dir)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"extract", filepath.Join("..", "..", "rulesets", "parcel.yaml"), input, "--no-cache"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("extract: %v", err)
	}

	var rec struct {
		Source string         `json:"source"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatalf("output is not a record: %v\n%s", err, out.String())
	}
	if rec.Source != input {
		t.Errorf("source = %q, want %q", rec.Source, input)
	}
	if rec.Data["origin_iata"] != "MEL" || rec.Data["dest_iata"] != "KUL" {
		t.Errorf("data = %v", rec.Data)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "tagex dev\n" {
		t.Errorf("version output = %q", out.String())
	}
}
