// Package render delivers the text-to-sticker rendering collaborator. The
// layout work happens in an external service; this package only carries the
// request over HTTP and classifies failures.
package render

import "context"

// Request describes one rendering job.
type Request struct {
	Text string
	// Username and FullName feed the artwork header of the rendered sticker.
	Username string
	FullName string
	// Timezone is the IANA zone used to stamp the artifact, empty for UTC.
	Timezone string
}

// Renderer turns text into sticker image bytes (WEBP).
type Renderer interface {
	Render(ctx context.Context, req Request) ([]byte, error)
}

// Error is a user-input rendering failure. Its Reason is shown to the user
// verbatim and is never escalated to the operator.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// Code implements the error-code convention used by handler summaries.
func (e *Error) Code() string { return "RENDER" }
