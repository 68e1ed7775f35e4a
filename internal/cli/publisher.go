package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"lte-sms-manager/internal/domain"
)

// writerPublisher prints each published event as one JSON line.
type writerPublisher struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *writerPublisher) Publish(_ context.Context, evt domain.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("cli: encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.w, string(raw)); err != nil {
		return fmt.Errorf("cli: write event: %w", err)
	}
	return nil
}
