package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/varoOP/vinime/internal/domain"
	"github.com/varoOP/vinime/internal/telegram"
)

var (
	pageRoute   = regexp.MustCompile(`^(latest|rec|movie|az)_p_(\d+)$`)
	searchRoute = regexp.MustCompile(`^search_p_(\d+)_(.*)$`)
	genreRoute  = regexp.MustCompile(`^genre_(.+)_p_(\d+)$`)
	epnavRoute  = regexp.MustCompile(`^epnav_(.+)__(\d+)$`)
)

// listSource is one of the paginated site listings
type listSource struct {
	prefix string
	header string
	emoji  string
	load   func(ctx context.Context) []domain.ListItem
}

func (b *Bot) source(prefix string) listSource {
	switch prefix {
	case "rec":
		return listSource{prefix: prefix, header: headerRecommended, emoji: "⭐", load: b.scraper.GetRecommended}
	case "movie":
		return listSource{prefix: prefix, header: headerMovies, emoji: "🎥", load: b.scraper.GetMovies}
	default:
		return listSource{prefix: "latest", header: headerLatest, emoji: "🔥", load: b.scraper.GetLatest}
	}
}

func (b *Bot) handleMessage(ctx context.Context, r *request, msg *telegram.Message) {
	r.chatID = msg.Chat.ID

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		// plain text in a private chat is a search
		if msg.Chat.Type == "" || msg.Chat.Type == "private" {
			b.showSearch(ctx, r, text, 0)
		}
		return
	}

	cmd, arg, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(strings.ToLower(cmd), "@")
	arg = strings.TrimSpace(arg)

	r.log.Debug().Str("command", cmd).Msg("handling command")

	switch cmd {
	case "/start", "/help":
		b.send(ctx, r, msgWelcome, mainMenuKeyboard())
	case "/terbaru":
		b.showList(ctx, r, b.source("latest"), 0)
	case "/rekomendasi":
		b.showList(ctx, r, b.source("rec"), 0)
	case "/movie":
		b.showList(ctx, r, b.source("movie"), 0)
	case "/list":
		b.showAZ(ctx, r, 0)
	case "/cari":
		b.showSearch(ctx, r, arg, 0)
	case "/genre":
		b.showGenres(ctx, r)
	}
}

func (b *Bot) handleCallback(ctx context.Context, r *request, cq *telegram.CallbackQuery) {
	if err := b.tg.AnswerCallbackQuery(ctx, cq.ID, ""); err != nil {
		r.log.Debug().Err(err).Msg("failed to answer callback query")
	}
	if cq.Message == nil {
		return
	}
	r.chatID = cq.Message.Chat.ID
	r.messageID = cq.Message.MessageID

	data := cq.Data
	if id, ok := strings.CutPrefix(data, refPrefix); ok {
		payload, found := b.refs.get(id)
		if !found {
			b.editOrReply(ctx, r, msgExpired, menuKeyboard())
			return
		}
		data = payload
	}

	r.log.Debug().Str("data", data).Msg("handling callback")
	b.route(ctx, r, data)
}

func (b *Bot) route(ctx context.Context, r *request, data string) {
	switch data {
	case "noop":
		return
	case "menu":
		b.editOrReply(ctx, r, msgWelcome, mainMenuKeyboard())
		return
	case "cmd_terbaru":
		b.showList(ctx, r, b.source("latest"), 0)
		return
	case "cmd_rekomendasi":
		b.showList(ctx, r, b.source("rec"), 0)
		return
	case "cmd_movie":
		b.showList(ctx, r, b.source("movie"), 0)
		return
	case "cmd_listaz":
		b.showAZ(ctx, r, 0)
		return
	case "cmd_cari":
		b.editOrReply(ctx, r, msgSearchUsage, menuKeyboard())
		return
	case "cmd_genre":
		b.showGenres(ctx, r)
		return
	}

	if m := pageRoute.FindStringSubmatch(data); m != nil {
		page, _ := strconv.Atoi(m[2])
		if m[1] == "az" {
			b.showAZ(ctx, r, page)
		} else {
			b.showList(ctx, r, b.source(m[1]), page)
		}
		return
	}
	if m := searchRoute.FindStringSubmatch(data); m != nil {
		page, _ := strconv.Atoi(m[1])
		b.showSearch(ctx, r, m[2], page)
		return
	}
	if m := genreRoute.FindStringSubmatch(data); m != nil {
		page, _ := strconv.Atoi(m[2])
		b.showGenre(ctx, r, m[1], page)
		return
	}
	if m := epnavRoute.FindStringSubmatch(data); m != nil {
		idx, _ := strconv.Atoi(m[2])
		b.watchByIndex(ctx, r, m[1], idx)
		return
	}

	switch {
	case strings.HasPrefix(data, "detail_"):
		b.showDetail(ctx, r, strings.TrimPrefix(data, "detail_"))
	case strings.HasPrefix(data, "episodes_"):
		b.showEpisodes(ctx, r, strings.TrimPrefix(data, "episodes_"))
	case strings.HasPrefix(data, "ep_"):
		b.watch(ctx, r, watchTarget{episodeURL: strings.TrimPrefix(data, "ep_"), label: "Episode", keyboard: menuKeyboard()})
	default:
		r.log.Warn().Str("data", data).Msg("unknown callback data")
	}
}

func (b *Bot) showList(ctx context.Context, r *request, src listSource, page int) {
	b.loading(ctx, r, msgLoading)

	items := src.load(ctx)
	if len(items) == 0 {
		b.editOrReply(ctx, r, msgLoadFailed, menuKeyboard())
		return
	}

	text := formatList(src.header, src.emoji, items, page, b.config.PerPage)
	kb := b.listKeyboard(items, page, func(p int) string {
		return fmt.Sprintf("%s_p_%d", src.prefix, p)
	})
	b.editOrReply(ctx, r, text, kb)
}

// showSearch asks the site first and the local catalog second.
func (b *Bot) showSearch(ctx context.Context, r *request, query string, page int) {
	query = strings.TrimSpace(query)
	if query == "" {
		b.editOrReply(ctx, r, msgSearchUsage, menuKeyboard())
		return
	}

	b.loading(ctx, r, fmt.Sprintf("⏳ Mencari \"%s\"...", escape(query)))

	header := fmt.Sprintf("🔍 <b>Hasil Pencarian:</b> <i>%s</i>\n\n", escape(query))
	items := b.scraper.SearchAnime(ctx, query)
	if len(items) == 0 && b.catalog != nil {
		items = domain.ListItems(b.catalog.Search(query, catalogSearchSize))
		header = fmt.Sprintf("🔍 <b>Hasil dari katalog:</b> <i>%s</i>\n\n", escape(query))
	}
	if len(items) == 0 {
		b.editOrReply(ctx, r, fmt.Sprintf("😔 Tidak ditemukan anime dengan judul \"%s\".", escape(query)), menuKeyboard())
		return
	}

	text := formatList(header, "🎬", items, page, b.config.PerPage)
	kb := b.listKeyboard(items, page, func(p int) string {
		return fmt.Sprintf("search_p_%d_%s", p, query)
	})
	b.editOrReply(ctx, r, text, kb)
}

func (b *Bot) showAZ(ctx context.Context, r *request, page int) {
	b.loading(ctx, r, msgLoading)

	entries := b.scraper.GetAllAnimeAZ(ctx)
	if len(entries) == 0 {
		b.editOrReply(ctx, r, msgCatalogEmpty, menuKeyboard())
		return
	}

	b.editOrReply(ctx, r, formatAZ(entries, page), b.azKeyboard(entries, page))
}

func (b *Bot) showGenres(ctx context.Context, r *request) {
	b.loading(ctx, r, msgGenreLoading)

	genres := b.scraper.GetGenreList(ctx)
	if len(genres) == 0 {
		b.editOrReply(ctx, r, msgGenreFailed, menuKeyboard())
		return
	}

	b.editOrReply(ctx, r, msgGenrePick, b.genreListKeyboard(genres))
}

func (b *Bot) showGenre(ctx context.Context, r *request, slug string, page int) {
	b.loading(ctx, r, msgLoading)

	gp := b.scraper.GetAnimeByGenre(ctx, slug, page)
	if len(gp.Items) == 0 {
		b.editOrReply(ctx, r, msgGenreEmpty, telegram.NewInlineKeyboardMarkup([][]telegram.InlineKeyboardButton{
			{button("🎭 Genre Lain", "cmd_genre"), button("🏠 Menu Utama", "menu")},
		}))
		return
	}

	b.editOrReply(ctx, r, formatGenrePage(slug, gp), b.genrePageKeyboard(slug, gp))
}

func (b *Bot) showDetail(ctx context.Context, r *request, animePath string) {
	b.loading(ctx, r, msgDetailLoading)

	d := b.scraper.GetDetail(ctx, animePath)
	if d == nil {
		b.editOrReply(ctx, r, msgDetailFailed, menuKeyboard())
		return
	}

	text := formatDetail(d)
	kb := b.detailKeyboard(animePath, d)

	if d.CoverURL != "" && len([]rune(text)) <= maxCaptionRunes {
		b.deleteCurrent(ctx, r)
		if b.sendCover(ctx, r, d.CoverURL, text, kb) {
			return
		}
	}
	b.editOrReply(ctx, r, text, kb)
}

// sendCover uploads the cover with text as caption, falling back to letting
// Telegram fetch the URL itself.
func (b *Bot) sendCover(ctx context.Context, r *request, coverURL, caption string, kb *telegram.InlineKeyboardMarkup) bool {
	opts := htmlOptions(kb)

	if b.media != nil {
		f, err := b.media.Download(ctx, coverURL, coverLimit)
		if err == nil {
			defer f.Remove()
			if fh, err := f.Open(); err == nil {
				msg, err := b.tg.SendPhotoFile(ctx, r.chatID, "cover.jpg", fh, caption, opts)
				fh.Close()
				if err == nil {
					r.messageID = msg.MessageID
					return true
				}
				r.log.Debug().Err(err).Msg("cover upload failed")
			}
		} else {
			r.log.Debug().Err(err).Str("url", coverURL).Msg("cover download failed")
		}
	}

	msg, err := b.tg.SendPhoto(ctx, r.chatID, coverURL, caption, opts)
	if err != nil {
		r.log.Debug().Err(err).Msg("cover by url failed")
		return false
	}
	r.messageID = msg.MessageID
	return true
}

func (b *Bot) showEpisodes(ctx context.Context, r *request, animePath string) {
	b.loading(ctx, r, msgEpisodeLoading)

	d := b.scraper.GetDetail(ctx, animePath)
	if d == nil || len(d.Episodes) == 0 {
		b.editOrReply(ctx, r, msgNoEpisodes, telegram.NewInlineKeyboardMarkup([][]telegram.InlineKeyboardButton{
			{button("🔙 Kembali", b.data("detail_"+animePath)), button("🏠 Menu Utama", "menu")},
		}))
		return
	}

	text := fmt.Sprintf("📺 <b>Daftar Episode: %s</b>\n\nTotal: %d episode", escape(d.Title), len(d.Episodes))
	if len(d.Episodes) > newestEpisodes {
		text += fmt.Sprintf("\n<i>Menampilkan %d episode terbaru</i>", newestEpisodes)
	}

	b.editOrReply(ctx, r, text, b.episodesKeyboard(animePath, d.Episodes))
}

func (b *Bot) watchByIndex(ctx context.Context, r *request, animePath string, idx int) {
	b.loading(ctx, r, msgEpisodeLoading)

	d := b.scraper.GetDetail(ctx, animePath)
	if d == nil || idx < 0 || idx >= len(d.Episodes) {
		b.editOrReply(ctx, r, msgEpisodeMissing, menuKeyboard())
		return
	}

	ep := d.Episodes[idx]
	b.watch(ctx, r, watchTarget{
		episodeURL: ep.URL,
		label:      ep.Label,
		animeTitle: d.Title,
		keyboard:   b.episodeNavKeyboard(animePath, idx, len(d.Episodes)),
	})
}
