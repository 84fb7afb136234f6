package bot

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/varoOP/vinime/internal/domain"
	"github.com/varoOP/vinime/internal/telegram"
)

const (
	azPerPage         = 10
	maxSynopsisRunes  = 500
	maxCaptionRunes   = 1024
	maxButtonRunes    = 40
	genresPerRow      = 3
	newestEpisodes    = 20
	episodesPerRow    = 2
	maxDownloadLinks  = 8
	catalogSearchSize = 20
)

const (
	msgWelcome = "🎌 <b>Selamat datang di VinimeBot!</b>\n\n" +
		"Jelajahi, cari, dan tonton anime subtitle Indonesia langsung dari Telegram.\n\n" +
		"<b>Perintah:</b>\n" +
		"/terbaru - Anime terbaru\n" +
		"/rekomendasi - Anime rekomendasi\n" +
		"/movie - Daftar movie anime\n" +
		"/list - Daftar anime A-Z\n" +
		"/genre - Jelajahi per genre\n" +
		"/cari &lt;judul&gt; - Cari anime\n\n" +
		"Pilih menu di bawah:"
	msgLoading        = "⏳ Memuat data..."
	msgLoadFailed     = "😔 Gagal memuat data. Silakan coba lagi nanti."
	msgSearchUsage    = "🔍 Gunakan format:\n<code>/cari judul anime</code>\n\nContoh: <code>/cari naruto</code>"
	msgCatalogEmpty   = "📋 <b>Daftar Anime A-Z</b>\n\nKatalog masih kosong. Gunakan /cari untuk mencari anime."
	msgGenreLoading   = "⏳ Memuat daftar genre..."
	msgGenreFailed    = "😔 Gagal memuat genre. Coba lagi nanti."
	msgGenrePick      = "<b>🎭 Pilih Genre</b>\n\nPilih genre anime yang ingin kamu jelajahi:"
	msgGenreEmpty     = "😔 Tidak ada anime untuk genre ini."
	msgDetailLoading  = "⏳ Memuat detail anime..."
	msgDetailFailed   = "😔 Gagal memuat detail anime. Silakan coba lagi."
	msgEpisodeLoading = "⏳ Memuat daftar episode..."
	msgNoEpisodes     = "😔 Tidak ada episode tersedia untuk anime ini."
	msgEpisodeMissing = "😔 Episode tidak ditemukan."
	msgExpired        = "⌛ Tombol ini sudah kedaluwarsa. Silakan buka menu lagi."
	msgError          = "❌ Terjadi kesalahan. Silakan coba lagi."

	headerLatest      = "🆕 <b>Anime Terbaru:</b>\n\n"
	headerRecommended = "⭐ <b>Anime Rekomendasi:</b>\n\n"
	headerMovies      = "🎥 <b>Daftar Movie Anime:</b>\n\n"
)

var (
	episodeNumber = regexp.MustCompile(`(?i)episode\s*(\d+(?:\.\d+)?)`)
	titleCaser    = cases.Title(language.Indonesian)
)

func escape(s string) string {
	return html.EscapeString(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

func pageCount(total, perPage int) int {
	if total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

func clampPage(page, pages int) int {
	if page < 0 {
		return 0
	}
	if page >= pages {
		return pages - 1
	}
	return page
}

// pageBounds returns the clamped page and the slice bounds of its items.
func pageBounds(total, page, perPage int) (int, int, int) {
	page = clampPage(page, pageCount(total, perPage))
	start := page * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return page, start, end
}

func pageFooter(page, pages, total int) string {
	return fmt.Sprintf("\n📄 <i>Halaman %d dari %d</i> (%d anime)", page+1, pages, total)
}

// formatList renders one page of a listing; page is zero-based.
func formatList(header, emoji string, items []domain.ListItem, page, perPage int) string {
	page, start, end := pageBounds(len(items), page, perPage)

	var b strings.Builder
	b.WriteString(header)
	for i := start; i < end; i++ {
		item := items[i]
		fmt.Fprintf(&b, "%s <b>%d. %s</b>", emoji, i+1, escape(item.Title))
		if item.LastEpisodeLabel != "" {
			fmt.Fprintf(&b, " | %s", escape(item.LastEpisodeLabel))
		}
		b.WriteString("\n")
	}
	b.WriteString(pageFooter(page, pageCount(len(items), perPage), len(items)))
	return b.String()
}

func formatAZ(entries []domain.CatalogEntry, page int) string {
	page, start, end := pageBounds(len(entries), page, azPerPage)

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Daftar Anime A-Z (%d anime):</b>\n\n", len(entries))
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "<b>%d.</b> %s\n", i+1, escape(entries[i].Title))
	}
	b.WriteString(pageFooter(page, pageCount(len(entries), azPerPage), len(entries)))
	return b.String()
}

func genreName(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}

func formatGenrePage(slug string, gp domain.GenrePage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎭 <b>Genre: %s</b>\n\n", escape(genreName(slug)))
	for i, item := range gp.Items {
		fmt.Fprintf(&b, "%d. <b>%s</b>\n", i+1, escape(item.Title))
		fmt.Fprintf(&b, "   ⭐ %s", escape(item.Rating))
		if item.EpisodeLabel != "" {
			fmt.Fprintf(&b, " | %s", escape(item.EpisodeLabel))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n📄 <i>Halaman %d dari %d</i>", gp.CurrentPage, gp.TotalPages)
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatDetail(d *domain.AnimeDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 <b>%s</b>\n\n", escape(orDash(d.Title)))
	fmt.Fprintf(&b, "⭐ <b>Skor:</b> %s\n", escape(orDash(d.Rating)))
	fmt.Fprintf(&b, "📺 <b>Status:</b> %s\n", escape(orDash(d.Status)))
	if d.Type != "" {
		fmt.Fprintf(&b, "🎞️ <b>Tipe:</b> %s\n", escape(d.Type))
	}
	fmt.Fprintf(&b, "🎥 <b>Studio:</b> %s\n", escape(orDash(d.Studio)))
	fmt.Fprintf(&b, "📅 <b>Rilis:</b> %s\n", escape(orDash(d.ReleaseDate)))
	fmt.Fprintf(&b, "📝 <b>Episode:</b> %s\n", escape(orDash(d.TotalEpisodeLabel)))
	if d.DurationLabel != "" {
		fmt.Fprintf(&b, "⏱️ <b>Durasi:</b> %s\n", escape(d.DurationLabel))
	}
	fmt.Fprintf(&b, "🏷️ <b>Genre:</b> %s\n", escape(orDash(strings.Join(d.Genres, ", "))))
	if d.Synopsis != "" {
		fmt.Fprintf(&b, "\n📖 <b>Sinopsis:</b>\n%s", escape(truncate(d.Synopsis, maxSynopsisRunes)))
	}
	return b.String()
}

func episodeButtonLabel(label string) string {
	if m := episodeNumber.FindStringSubmatch(label); m != nil {
		return "Eps " + m[1]
	}
	return truncate(label, 24)
}

func button(text, data string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: data}
}

func menuRow() []telegram.InlineKeyboardButton {
	return []telegram.InlineKeyboardButton{button("🏠 Menu Utama", "menu")}
}

func menuKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.NewInlineKeyboardMarkup([][]telegram.InlineKeyboardButton{menuRow()})
}

func mainMenuKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.NewInlineKeyboardMarkup([][]telegram.InlineKeyboardButton{
		{button("🆕 Terbaru", "cmd_terbaru"), button("⭐ Rekomendasi", "cmd_rekomendasi")},
		{button("🎥 Movie", "cmd_movie"), button("🔍 Cari Anime", "cmd_cari")},
		{button("📋 Daftar A-Z", "cmd_listaz"), button("🎭 Genre", "cmd_genre")},
	})
}

// pagedKeyboard lays out one detail button per item on the page, then the
// prev/next row and the menu row.
func (b *Bot) pagedKeyboard(titles, urls []string, page, perPage int, pageData func(int) string) *telegram.InlineKeyboardMarkup {
	total := len(titles)
	page, start, end := pageBounds(total, page, perPage)

	var rows [][]telegram.InlineKeyboardButton
	for i := start; i < end; i++ {
		label := truncate(fmt.Sprintf("%d. %s", i+1, titles[i]), maxButtonRunes)
		rows = append(rows, []telegram.InlineKeyboardButton{button(label, b.data("detail_"+b.path(urls[i])))})
	}

	var nav []telegram.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, button("◀️ Prev", b.data(pageData(page-1))))
	}
	if end < total {
		nav = append(nav, button("Next ▶️", b.data(pageData(page+1))))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, menuRow())
	return telegram.NewInlineKeyboardMarkup(rows)
}

func (b *Bot) listKeyboard(items []domain.ListItem, page int, pageData func(int) string) *telegram.InlineKeyboardMarkup {
	titles := make([]string, len(items))
	urls := make([]string, len(items))
	for i, item := range items {
		titles[i], urls[i] = item.Title, item.URL
	}
	return b.pagedKeyboard(titles, urls, page, b.config.PerPage, pageData)
}

func (b *Bot) azKeyboard(entries []domain.CatalogEntry, page int) *telegram.InlineKeyboardMarkup {
	titles := make([]string, len(entries))
	urls := make([]string, len(entries))
	for i, e := range entries {
		titles[i], urls[i] = e.Title, e.URL
	}
	return b.pagedKeyboard(titles, urls, page, azPerPage, func(p int) string {
		return fmt.Sprintf("az_p_%d", p)
	})
}

func (b *Bot) genreListKeyboard(genres []domain.GenreRef) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	var row []telegram.InlineKeyboardButton
	for _, g := range genres {
		row = append(row, button(g.Name, b.data(fmt.Sprintf("genre_%s_p_1", g.Slug))))
		if len(row) == genresPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, menuRow())
	return telegram.NewInlineKeyboardMarkup(rows)
}

func (b *Bot) genrePageKeyboard(slug string, gp domain.GenrePage) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i, item := range gp.Items {
		label := truncate(fmt.Sprintf("%d. %s", i+1, item.Title), maxButtonRunes)
		rows = append(rows, []telegram.InlineKeyboardButton{button(label, b.data("detail_"+b.path(item.URL)))})
	}

	if gp.TotalPages > 1 {
		var nav []telegram.InlineKeyboardButton
		if gp.CurrentPage > 1 {
			nav = append(nav, button("◀️ Prev", b.data(fmt.Sprintf("genre_%s_p_%d", slug, gp.CurrentPage-1))))
		}
		nav = append(nav, button(fmt.Sprintf("%d/%d", gp.CurrentPage, gp.TotalPages), "noop"))
		if gp.CurrentPage < gp.TotalPages {
			nav = append(nav, button("Next ▶️", b.data(fmt.Sprintf("genre_%s_p_%d", slug, gp.CurrentPage+1))))
		}
		rows = append(rows, nav)
	}

	rows = append(rows, []telegram.InlineKeyboardButton{button("🎭 Genre Lain", "cmd_genre"), button("🏠 Menu Utama", "menu")})
	return telegram.NewInlineKeyboardMarkup(rows)
}

func (b *Bot) detailKeyboard(animePath string, d *domain.AnimeDetail) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	if len(d.Episodes) > 0 {
		rows = append(rows, []telegram.InlineKeyboardButton{
			button("▶️ Episode Terbaru", b.data("ep_"+b.path(d.Episodes[0].URL))),
			button("📺 Daftar Episode", b.data("episodes_"+animePath)),
		})
	}
	rows = append(rows, []telegram.InlineKeyboardButton{button("🔙 Kembali", "menu")})
	return telegram.NewInlineKeyboardMarkup(rows)
}

// episodesKeyboard lists the newest episodes; each opens the watch view with
// navigation.
func (b *Bot) episodesKeyboard(animePath string, episodes []domain.EpisodeRef) *telegram.InlineKeyboardMarkup {
	n := len(episodes)
	if n > newestEpisodes {
		n = newestEpisodes
	}

	var rows [][]telegram.InlineKeyboardButton
	var row []telegram.InlineKeyboardButton
	for i := 0; i < n; i++ {
		row = append(row, button(episodeButtonLabel(episodes[i].Label), b.data(fmt.Sprintf("epnav_%s__%d", animePath, i))))
		if len(row) == episodesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []telegram.InlineKeyboardButton{button("🔙 Kembali", b.data("detail_"+animePath)), button("🏠 Menu Utama", "menu")})
	return telegram.NewInlineKeyboardMarkup(rows)
}

// episodeNavKeyboard moves between episodes of one anime. Episodes are
// listed newest first, so the previous episode has the higher index.
func (b *Bot) episodeNavKeyboard(animePath string, idx, total int) *telegram.InlineKeyboardMarkup {
	var nav []telegram.InlineKeyboardButton
	if idx+1 < total {
		nav = append(nav, button("⏮️ Sebelumnya", b.data(fmt.Sprintf("epnav_%s__%d", animePath, idx+1))))
	}
	if idx > 0 {
		nav = append(nav, button("Berikutnya ⏭️", b.data(fmt.Sprintf("epnav_%s__%d", animePath, idx-1))))
	}

	var rows [][]telegram.InlineKeyboardButton
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []telegram.InlineKeyboardButton{button("📺 Daftar Episode", b.data("episodes_"+animePath)), button("🏠 Menu Utama", "menu")})
	return telegram.NewInlineKeyboardMarkup(rows)
}
