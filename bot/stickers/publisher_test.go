package stickers

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/statusbot/bot/render"
	"github.com/m3rciful/statusbot/core/telegram/sender"
)

type stubRenderer struct {
	err   error
	calls int
}

func (s *stubRenderer) Render(_ context.Context, req render.Request) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("webp:" + req.Text), nil
}

func TestPublisherPublishesAndTrims(t *testing.T) {
	api := newFakeAPI()
	v := NewVault(api, "status_by_testbot", "Status", seedFile(t))
	disp := sender.NewDispatcher(sender.Options{Workers: 1})
	p := NewPublisher(&stubRenderer{}, v, disp)

	fileID, err := p.Publish(context.Background(), render.Request{Text: "hello"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if fileID == "" {
		t.Fatalf("Publish returned empty file ID")
	}

	// Close drains the queued trim job.
	disp.Close()
	if api.size() != 1 {
		t.Fatalf("set size after trim cycle = %d, want 1", api.size())
	}
}

func TestPublisherPropagatesRenderError(t *testing.T) {
	api := newFakeAPI()
	v := NewVault(api, "status_by_testbot", "Status", seedFile(t))
	rdr := &stubRenderer{err: &render.Error{Reason: "text too long"}}
	p := NewPublisher(rdr, v, nil)

	_, err := p.Publish(context.Background(), render.Request{Text: "nope"})
	var rerr *render.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *render.Error, got %v", err)
	}
	if rerr.Reason != "text too long" {
		t.Fatalf("render reason = %q", rerr.Reason)
	}
	if api.size() != 0 {
		t.Fatalf("failed render must not touch the set, size = %d", api.size())
	}
}
