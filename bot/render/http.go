package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/statusbot/core/logger"
)

const maxStickerBytes = 2 << 20

// HTTPRenderer calls a rendering service that accepts a JSON job description
// and responds with WEBP bytes. A 422 response carries a human-readable
// layout complaint which is surfaced to the user as-is.
type HTTPRenderer struct {
	url    string
	client *http.Client
}

// NewHTTPRenderer constructs a renderer for the given service URL.
func NewHTTPRenderer(url string, timeout time.Duration) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPRenderer{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type renderJob struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Render submits the job and returns the rendered sticker bytes.
func (r *HTTPRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()

	payload, err := json.Marshal(renderJob{
		Text:     req.Text,
		Username: req.Username,
		FullName: req.FullName,
		Timezone: req.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("render: encode job: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("render: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render: call service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStickerBytes))
	if err != nil {
		return nil, fmt.Errorf("render: read response: %w", err)
	}

	status := "fail"
	if resp.StatusCode == http.StatusOK {
		status = "ok"
	}
	logger.Debug(ctx, "render", "service.call",
		slog.String("status", status),
		slog.Int("code", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		reason := strings.TrimSpace(string(body))
		if reason == "" {
			reason = "the text could not be laid out"
		}
		return nil, &Error{Reason: reason}
	default:
		return nil, fmt.Errorf("render: service returned %d: %s",
			resp.StatusCode, logger.SanitizeLimit(string(body), 128))
	}
}
