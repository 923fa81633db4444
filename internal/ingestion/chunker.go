package ingestion

import (
	"fmt"
	"strings"
)

// Chunk is a unit of email text with metadata, the atomic retrievable item.
type Chunk struct {
	// ID is stable and deterministic: "<source>_<paragraph index>".
	ID        string
	Text      string
	Source    string
	Subject   string
	From      string
	To        string
	Paragraph int
}

// Metadata returns the payload metadata for filtering and display.
func (c Chunk) Metadata() map[string]string {
	return map[string]string{
		"source":  c.Source,
		"subject": c.Subject,
		"from":    c.From,
		"to":      c.To,
	}
}

// ChunkEmail splits an email body into paragraph chunks. Each chunk gets
// the subject/from/to header prepended so the embedded text carries the
// email context, plus the same metadata for payload filtering.
func ChunkEmail(email Email) []Chunk {
	paragraphs := splitParagraphs(email.Body)
	if len(paragraphs) == 0 {
		return nil
	}

	header := fmt.Sprintf("Subject: %s\nFrom: %s\nTo: %s\n\n",
		email.Subject, email.FromDisplay(), email.ToDisplay())

	chunks := make([]Chunk, 0, len(paragraphs))
	for i, para := range paragraphs {
		chunks = append(chunks, Chunk{
			ID:        fmt.Sprintf("%s_%d", email.Source, i),
			Text:      header + para,
			Source:    email.Source,
			Subject:   email.Subject,
			From:      email.FromDisplay(),
			To:        email.ToDisplay(),
			Paragraph: i,
		})
	}
	return chunks
}

// ChunkEmails chunks all emails into one flat list.
func ChunkEmails(emails []Email) []Chunk {
	var all []Chunk
	for _, email := range emails {
		all = append(all, ChunkEmail(email)...)
	}
	return all
}

// splitParagraphs splits on blank lines, keeping non-empty blocks. A body
// with no blank lines becomes a single paragraph.
func splitParagraphs(body string) []string {
	var out []string
	for _, block := range strings.Split(body, "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
