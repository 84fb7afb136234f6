package bot

import (
	"context"
	"time"

	"github.com/varoOP/vinime/internal/telegram"
)

const (
	pollTimeout    = 30 * time.Second
	pollRetryDelay = 3 * time.Second
)

type Poller interface {
	DeleteWebhook(ctx context.Context) error
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telegram.Update, error)
}

// Poll removes any webhook and long-polls for updates until ctx is done.
// Each update is dispatched on its own goroutine.
func (b *Bot) Poll(ctx context.Context, p Poller) error {
	if err := p.DeleteWebhook(ctx); err != nil {
		return err
	}

	b.log.Info().Msg("polling for updates")

	offset := 0
	for {
		updates, err := p.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.log.Error().Err(err).Msg("getUpdates failed")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			b.Dispatch(ctx, upd)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
