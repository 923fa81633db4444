// Package service implements the retrieval and answer pipeline: query
// planning, filtered retrieval, result merging and grounded generation.
package service

// Result is one retrieved chunk with its metadata and similarity score.
// Score is nil when the backend provided none; higher is more similar.
type Result struct {
	Text     string
	Metadata map[string]string
	Score    *float32
}

// Source returns the originating file name, or "" when absent.
func (r Result) Source() string { return r.Metadata["source"] }

// Subject returns the email subject, or "" when absent.
func (r Result) Subject() string { return r.Metadata["subject"] }

// From returns the sender display string, or "" when absent.
func (r Result) From() string { return r.Metadata["from"] }

// To returns the receiver display string, or "" when absent.
func (r Result) To() string { return r.Metadata["to"] }
