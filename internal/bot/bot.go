package bot

import (
	"context"
	"errors"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/domain"
	"github.com/varoOP/vinime/internal/media"
	"github.com/varoOP/vinime/internal/scraper"
	"github.com/varoOP/vinime/internal/telegram"
)

const (
	DefaultPerPage       = 5
	DefaultUpdateTimeout = 10 * time.Minute

	// Bot API upload limits
	UploadLimit      int64 = 50 * 1024 * 1024
	LocalUploadLimit int64 = 2000 * 1024 * 1024

	coverLimit int64 = 10 * 1024 * 1024
)

// Telegram is the part of the Bot API the handlers talk to
type Telegram interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.MessageOptions) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *telegram.MessageOptions) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, opts *telegram.MessageOptions) (*telegram.Message, error)
	SendPhotoFile(ctx context.Context, chatID int64, fileName string, r io.Reader, caption string, opts *telegram.MessageOptions) (*telegram.Message, error)
	SendVideoFile(ctx context.Context, chatID int64, fileName string, r io.Reader, caption string, opts *telegram.MessageOptions) (*telegram.Message, error)
	SendDocumentFile(ctx context.Context, chatID int64, fileName string, r io.Reader, caption string, opts *telegram.MessageOptions) (*telegram.Message, error)
}

type Media interface {
	Probe(ctx context.Context, url string) int64
	Download(ctx context.Context, url string, maxBytes int64) (*media.File, error)
}

// CatalogSearcher answers searches the site comes back empty for
type CatalogSearcher interface {
	Search(query string, limit int) []domain.CatalogEntry
}

type Config struct {
	// Origin is stripped from URLs put into callback data.
	Origin         string
	PerPage        int
	MaxUploadBytes int64
	UpdateTimeout  time.Duration
}

type Bot struct {
	log     zerolog.Logger
	config  Config
	tg      Telegram
	scraper scraper.Service
	catalog CatalogSearcher
	media   Media
	refs    *refRegistry

	wg sync.WaitGroup
}

func New(log zerolog.Logger, config Config, tg Telegram, scraper scraper.Service, catalog CatalogSearcher, media Media) *Bot {
	if config.PerPage <= 0 {
		config.PerPage = DefaultPerPage
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = UploadLimit
	}
	if config.UpdateTimeout <= 0 {
		config.UpdateTimeout = DefaultUpdateTimeout
	}
	config.Origin = strings.TrimRight(config.Origin, "/")

	return &Bot{
		log:     log.With().Str("module", "bot").Logger(),
		config:  config,
		tg:      tg,
		scraper: scraper,
		catalog: catalog,
		media:   media,
		refs:    newRefRegistry(defaultRefCapacity),
	}
}

// request is the state of one update being handled
type request struct {
	log    zerolog.Logger
	chatID int64
	// messageID is the bot message to edit in place, 0 when a new one must
	// be sent.
	messageID int
}

// Dispatch handles upd on its own goroutine.
func (b *Bot) Dispatch(ctx context.Context, upd telegram.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleUpdate(ctx, upd)
	}()
}

// Wait blocks until every dispatched update has been handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleUpdate routes a single update. A panicking handler is logged and the
// chat gets a generic error message.
func (b *Bot) HandleUpdate(ctx context.Context, upd telegram.Update) {
	r := &request{
		log: b.log.With().Str("request_id", uuid.NewString()).Int("update_id", upd.UpdateID).Logger(),
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.UpdateTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("recovered from panic in update handler")
			if r.chatID != 0 {
				sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				_, _ = b.tg.SendMessage(sendCtx, r.chatID, msgError, htmlOptions(menuKeyboard()))
			}
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, r, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Text != "":
		b.handleMessage(ctx, r, upd.Message)
	default:
		r.log.Trace().Msg("ignoring update")
	}
}

func htmlOptions(kb *telegram.InlineKeyboardMarkup) *telegram.MessageOptions {
	return &telegram.MessageOptions{ParseMode: telegram.ParseModeHTML, ReplyMarkup: kb, DisableWebPagePreview: true}
}

func (b *Bot) send(ctx context.Context, r *request, text string, kb *telegram.InlineKeyboardMarkup) {
	msg, err := b.tg.SendMessage(ctx, r.chatID, text, htmlOptions(kb))
	if err != nil {
		r.log.Error().Err(err).Msg("failed to send message")
		return
	}
	r.messageID = msg.MessageID
}

// editOrReply rewrites the current message. When that is impossible, e.g. the
// message is a photo, it is replaced by a new one.
func (b *Bot) editOrReply(ctx context.Context, r *request, text string, kb *telegram.InlineKeyboardMarkup) {
	if r.messageID != 0 {
		err := b.tg.EditMessageText(ctx, r.chatID, r.messageID, text, htmlOptions(kb))
		if err == nil {
			return
		}
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) && apiErr.NotModified() {
			return
		}
		r.log.Debug().Err(err).Msg("edit failed, replacing message")
		b.deleteCurrent(ctx, r)
	}
	b.send(ctx, r, text, kb)
}

// loading shows a progress line in the current message, or in a new one.
func (b *Bot) loading(ctx context.Context, r *request, text string) {
	b.editOrReply(ctx, r, text, nil)
}

func (b *Bot) deleteCurrent(ctx context.Context, r *request) {
	if r.messageID == 0 {
		return
	}
	if err := b.tg.DeleteMessage(ctx, r.chatID, r.messageID); err != nil {
		r.log.Debug().Err(err).Msg("failed to delete message")
	}
	r.messageID = 0
}

// path shortens an absolute site URL for callback data.
func (b *Bot) path(u string) string {
	return domain.RelPath(b.config.Origin, u)
}

// data returns payload as callback data, swapping it for a reference when
// it does not fit.
func (b *Bot) data(payload string) string {
	if len(payload) <= callbackDataLimit {
		return payload
	}
	return refPrefix + b.refs.put(payload)
}
