package tracking

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const auditHeader = "Timestamp,IP Address,Country,City,Path,Method,User Agent,Status\n"

// Audit statuses written to the file.
const (
	AuditStatusAllowed = "ALLOWED"
	AuditStatusBlocked = "BLOCKED"
	AuditStatusDBError = "DB_ERROR"
)

// AuditLog appends one comma-separated line per tracked request to a plain
// text file next to the database log. It is a side artifact for human
// inspection, never authoritative state, so every write error is logged and
// swallowed.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog opens (or creates, with a header row) the audit file.
func NewAuditLog(path string) (*AuditLog, error) {
	a := &AuditLog{path: path}
	if err := a.ensureFile(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AuditLog) ensureFile() error {
	if _, err := os.Stat(a.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("tracking: stat audit log: %w", err)
	}

	if err := os.WriteFile(a.path, []byte(auditHeader), 0o644); err != nil {
		return fmt.Errorf("tracking: create audit log: %w", err)
	}

	log.Info("Created audit log file", "path", a.path)
	return nil
}

// Append writes one audit line. Country and city are sanitized individually
// before being joined, so a value containing a comma cannot shift the columns.
func (a *AuditLog) Append(ip, country, city, path, method, userAgent, status string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	location := sanitizeAuditField(country, 255) + ", " + sanitizeAuditField(city, 255)

	line := fmt.Sprintf("%-10s,%-10s,%-10s,%-10s,%-10s,%-10s,%-10s\n",
		timestamp,
		ip,
		location,
		sanitizeAuditField(path, 255),
		method,
		sanitizeAuditField(userAgent, 100),
		status,
	)

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error("Failed to open audit log", "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		log.Error("Failed to write to audit log", "error", err)
	}
}

// sanitizeAuditField keeps the comma-separated columns parseable: embedded
// commas become semicolons and newlines are stripped.
func sanitizeAuditField(s string, limit int) string {
	s = strings.ReplaceAll(s, ",", ";")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
