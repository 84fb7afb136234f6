package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/varoOP/vinime/internal/media"
	"github.com/varoOP/vinime/internal/telegram"
)

type watchTarget struct {
	episodeURL string
	label      string
	animeTitle string
	keyboard   *telegram.InlineKeyboardMarkup
}

// watch sends an episode as a Telegram video when a direct link fits the
// upload limit, and as a list of links otherwise.
func (b *Bot) watch(ctx context.Context, r *request, t watchTarget) {
	ep := escape(t.label)
	b.loading(ctx, r, fmt.Sprintf("⏳ Memuat <b>%s</b>...", ep))

	video := b.scraper.GetVideo(ctx, t.episodeURL)
	if video == nil {
		b.editOrReply(ctx, r, fmt.Sprintf("😔 Gagal mengambil video untuk <b>%s</b>.\n\nCoba episode lain.", ep), t.keyboard)
		return
	}

	pick, ok := media.PickStream(video)
	if !ok || b.media == nil {
		links := media.DownloadLinks(video, maxDownloadLinks)
		if len(links) == 0 {
			b.editOrReply(ctx, r, fmt.Sprintf("😔 Belum ada video untuk <b>%s</b>.", ep), t.keyboard)
			return
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "▶️ <b>%s</b>\n\n📥 <b>Link Download:</b>\n", ep)
		for _, s := range links {
			fmt.Fprintf(&sb, "• <a href=\"%s\">%s %s</a>\n", escape(s.DirectLink), escape(s.Resolution), escape(s.ProviderLabel))
		}
		sb.WriteString("\n<i>Buka di browser untuk download.</i>")
		b.editOrReply(ctx, r, sb.String(), t.keyboard)
		return
	}

	quality := pick.Stream.Resolution
	browserLink := fmt.Sprintf("🔗 <a href=\"%s\">📥 Download / Tonton di Browser</a>", escape(pick.Link))
	tooLarge := fmt.Sprintf("⚠️ File terlalu besar untuk Telegram (max %dMB).\n\n%s", b.config.MaxUploadBytes/(1024*1024), browserLink)

	size := b.media.Probe(ctx, pick.Link)
	if size > b.config.MaxUploadBytes {
		b.editOrReply(ctx, r, tooLarge, t.keyboard)
		return
	}

	b.loading(ctx, r, fmt.Sprintf("⏳ Mendownload <b>%s</b> (%s, %s)...", ep, quality, media.FormatSize(size)))

	f, err := b.media.Download(ctx, pick.Link, b.config.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) {
			b.editOrReply(ctx, r, tooLarge, t.keyboard)
			return
		}
		r.log.Error().Err(err).Str("url", pick.Link).Msg("episode download failed")
		b.editOrReply(ctx, r, "⚠️ Gagal mendownload video.\n\n"+browserLink, t.keyboard)
		return
	}
	defer func() {
		if err := f.Remove(); err != nil {
			r.log.Warn().Err(err).Str("path", f.Path).Msg("failed to remove temp file")
		}
	}()

	sizeLabel := media.FormatSize(f.Size)
	b.loading(ctx, r, fmt.Sprintf("⏳ Upload <b>%s</b> (%s, %s)...", ep, quality, sizeLabel))

	var caption strings.Builder
	if t.animeTitle != "" {
		fmt.Fprintf(&caption, "📺 <b>%s</b>\n", escape(t.animeTitle))
	}
	fmt.Fprintf(&caption, "▶️ <b>%s</b> | %s | %s", ep, quality, sizeLabel)

	name := media.SafeFileName(t.label) + ".mp4"
	opts := htmlOptions(t.keyboard)

	if b.upload(r, f, func(fh *os.File) error {
		_, err := b.tg.SendVideoFile(ctx, r.chatID, name, fh, caption.String(), opts)
		return err
	}) {
		b.deleteCurrent(ctx, r)
		return
	}

	if b.upload(r, f, func(fh *os.File) error {
		_, err := b.tg.SendDocumentFile(ctx, r.chatID, name, fh, caption.String()+"\n<i>Dikirim sebagai file</i>", opts)
		return err
	}) {
		b.deleteCurrent(ctx, r)
		return
	}

	b.editOrReply(ctx, r, "⚠️ Gagal upload.\n\n"+browserLink, t.keyboard)
}

// upload opens f afresh for send so a failed attempt can be retried.
func (b *Bot) upload(r *request, f *media.File, send func(*os.File) error) bool {
	fh, err := f.Open()
	if err != nil {
		r.log.Error().Err(err).Msg("failed to open downloaded file")
		return false
	}
	defer fh.Close()

	if err := send(fh); err != nil {
		r.log.Warn().Err(err).Msg("upload failed")
		return false
	}
	return true
}
