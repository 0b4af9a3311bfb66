package tracking

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAuditLog_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.txt")

	audit, err := NewAuditLog(path)
	if err != nil {
		t.Fatalf("create audit log: %v", err)
	}
	audit.Append("8.8.8.8", "United States", "Mountain View", "/api/items", "GET", "curl/8.5", AuditStatusAllowed)

	// Reopening an existing file must not repeat the header.
	if _, err := NewAuditLog(path); err != nil {
		t.Fatalf("reopen audit log: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, auditHeader) {
		t.Fatalf("file must start with the header, got %q", content)
	}
	if strings.Count(content, "Timestamp,IP Address") != 1 {
		t.Fatalf("header must appear exactly once:\n%s", content)
	}

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one entry, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "8.8.8.8") || !strings.Contains(lines[1], AuditStatusAllowed) {
		t.Fatalf("unexpected entry line %q", lines[1])
	}
}

func TestAuditLog_SanitizesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.txt")

	audit, err := NewAuditLog(path)
	if err != nil {
		t.Fatalf("create audit log: %v", err)
	}
	audit.Append("8.8.8.8", "United States", "Mountain View", "/search?q=a,b,c", "GET", "agent\r\nwith,commas", AuditStatusAllowed)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	entry := lines[len(lines)-1]

	if strings.Contains(entry, "a,b,c") {
		t.Fatalf("path commas must become semicolons: %q", entry)
	}
	if !strings.Contains(entry, "a;b;c") {
		t.Fatalf("expected sanitized path in %q", entry)
	}
	if !strings.Contains(entry, "agent with;commas") {
		t.Fatalf("expected newline stripped and comma replaced in %q", entry)
	}
}

func TestAuditLog_LocationWithCommasKeepsColumnCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.txt")

	audit, err := NewAuditLog(path)
	if err != nil {
		t.Fatalf("create audit log: %v", err)
	}
	audit.Append("8.8.8.8", "United States", "San Jose, CA", "/api/items", "GET", "curl/8.5", AuditStatusAllowed)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	entry := lines[len(lines)-1]

	// Six field separators plus the one comma joining country and city.
	if got := strings.Count(entry, ","); got != 7 {
		t.Fatalf("expected 7 commas, got %d in %q", got, entry)
	}
	if !strings.Contains(entry, "San Jose; CA") {
		t.Fatalf("city comma must be sanitized, got %q", entry)
	}
}

func TestSanitizeAuditField_TruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := sanitizeAuditField(long, 100)
	if len(got) != 100 {
		t.Fatalf("expected 100 characters, got %d", len(got))
	}
}
