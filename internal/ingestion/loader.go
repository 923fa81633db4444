// Package ingestion loads, chunks and indexes the email corpus.
package ingestion

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// Matches "From: Name <email>" or "To: Name <email>"
	fromToPattern  = regexp.MustCompile(`(?i)^(From|To):\s*(.+?)\s*<(.+?)>\s*$`)
	subjectPattern = regexp.MustCompile(`(?i)^Subject:\s*(.+)$`)
)

// Email is a single email parsed from disk.
type Email struct {
	Source   string // file name the email was loaded from
	Subject  string
	FromName string
	FromAddr string
	ToName   string
	ToAddr   string
	Body     string
}

// FromDisplay returns the sender as "Name <email>".
func (e Email) FromDisplay() string {
	return fmt.Sprintf("%s <%s>", e.FromName, e.FromAddr)
}

// ToDisplay returns the receiver as "Name <email>".
func (e Email) ToDisplay() string {
	return fmt.Sprintf("%s <%s>", e.ToName, e.ToAddr)
}

// ParseEmail parses raw email text into structured fields. The header
// section ends at the first blank line once a From or To address has
// been seen; everything after is the body. Returns false when the text
// has neither a subject nor any address.
func ParseEmail(content, source string) (Email, bool) {
	email := Email{Source: source}
	var bodyLines []string
	headerDone := false

	for _, line := range strings.Split(content, "\n") {
		if headerDone {
			bodyLines = append(bodyLines, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if m := subjectPattern.FindStringSubmatch(trimmed); m != nil {
			email.Subject = strings.TrimSpace(m[1])
			continue
		}
		if m := fromToPattern.FindStringSubmatch(trimmed); m != nil {
			name, addr := strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
			if strings.EqualFold(m[1], "from") {
				email.FromName, email.FromAddr = name, addr
			} else {
				email.ToName, email.ToAddr = name, addr
			}
			continue
		}
		if trimmed == "" && (email.FromAddr != "" || email.ToAddr != "") {
			headerDone = true
		}
	}

	email.Body = strings.TrimSpace(strings.Join(bodyLines, "\n"))
	if email.Subject == "" && email.FromAddr == "" && email.ToAddr == "" {
		return Email{}, false
	}
	return email, true
}

// LoadDir loads all email_*.txt files from the given directory, sorted
// by file name. Unparseable files are logged and skipped.
func LoadDir(dir string) ([]Email, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("emails directory not found: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "email_*.txt"))
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}
	sort.Strings(paths)

	emails := make([]Email, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read email file", "path", path, "error", err)
			continue
		}
		email, ok := ParseEmail(string(content), filepath.Base(path))
		if !ok {
			slog.Warn("skipped unparseable email file", "path", path)
			continue
		}
		emails = append(emails, email)
	}

	slog.Info("loaded emails", "count", len(emails), "dir", dir)
	return emails, nil
}
