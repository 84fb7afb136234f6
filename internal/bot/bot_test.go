package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/vinime/internal/domain"
	"github.com/varoOP/vinime/internal/media"
	"github.com/varoOP/vinime/internal/telegram"
)

const origin = "https://otakudesu.cloud"

type call struct {
	method    string
	chatID    int64
	messageID int
	text      string
	fileName  string
	markup    *telegram.InlineKeyboardMarkup
}

type fakeTelegram struct {
	mu     sync.Mutex
	calls  []call
	nextID int

	failEdit  bool
	failVideo bool
	failPhoto bool
}

func (f *fakeTelegram) record(c call) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	f.nextID++
	return 100 + f.nextID
}

func markup(opts *telegram.MessageOptions) *telegram.InlineKeyboardMarkup {
	if opts == nil {
		return nil
	}
	return opts.ReplyMarkup
}

func (f *fakeTelegram) SendMessage(_ context.Context, chatID int64, text string, opts *telegram.MessageOptions) (*telegram.Message, error) {
	id := f.record(call{method: "sendMessage", chatID: chatID, text: text, markup: markup(opts)})
	return &telegram.Message{MessageID: id, Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeTelegram) EditMessageText(_ context.Context, chatID int64, messageID int, text string, opts *telegram.MessageOptions) error {
	f.record(call{method: "editMessageText", chatID: chatID, messageID: messageID, text: text, markup: markup(opts)})
	if f.failEdit {
		return &telegram.APIError{Method: "editMessageText", Code: 400, Description: "Bad Request: there is no text in the message to edit"}
	}
	return nil
}

func (f *fakeTelegram) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	f.record(call{method: "deleteMessage", chatID: chatID, messageID: messageID})
	return nil
}

func (f *fakeTelegram) AnswerCallbackQuery(_ context.Context, id, text string) error {
	f.record(call{method: "answerCallbackQuery", text: id})
	return nil
}

func (f *fakeTelegram) SendPhoto(_ context.Context, chatID int64, photoURL, caption string, opts *telegram.MessageOptions) (*telegram.Message, error) {
	id := f.record(call{method: "sendPhoto", chatID: chatID, text: caption, fileName: photoURL, markup: markup(opts)})
	return &telegram.Message{MessageID: id}, nil
}

func (f *fakeTelegram) sendFile(method string, chatID int64, name string, r io.Reader, caption string, opts *telegram.MessageOptions, fail bool) (*telegram.Message, error) {
	b, _ := io.ReadAll(r)
	id := f.record(call{method: method, chatID: chatID, text: caption, fileName: name + ":" + string(b), markup: markup(opts)})
	if fail {
		return nil, errors.New("request entity too large")
	}
	return &telegram.Message{MessageID: id}, nil
}

func (f *fakeTelegram) SendPhotoFile(_ context.Context, chatID int64, name string, r io.Reader, caption string, opts *telegram.MessageOptions) (*telegram.Message, error) {
	return f.sendFile("sendPhotoFile", chatID, name, r, caption, opts, f.failPhoto)
}

func (f *fakeTelegram) SendVideoFile(_ context.Context, chatID int64, name string, r io.Reader, caption string, opts *telegram.MessageOptions) (*telegram.Message, error) {
	return f.sendFile("sendVideoFile", chatID, name, r, caption, opts, f.failVideo)
}

func (f *fakeTelegram) SendDocumentFile(_ context.Context, chatID int64, name string, r io.Reader, caption string, opts *telegram.MessageOptions) (*telegram.Message, error) {
	return f.sendFile("sendDocumentFile", chatID, name, r, caption, opts, false)
}

func (f *fakeTelegram) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeTelegram) last(method string) call {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i]
		}
	}
	return call{}
}

type fakeScraper struct {
	latest   []domain.ListItem
	search   []domain.ListItem
	az       []domain.CatalogEntry
	genres   []domain.GenreRef
	genre    domain.GenrePage
	detail   *domain.AnimeDetail
	video    *domain.VideoInfo
	panicky  bool
	detailed []string
	queries  []string
}

func (s *fakeScraper) GetLatest(context.Context) []domain.ListItem {
	if s.panicky {
		panic("selector exploded")
	}
	return s.latest
}
func (s *fakeScraper) GetRecommended(context.Context) []domain.ListItem { return s.latest }
func (s *fakeScraper) GetMovies(context.Context) []domain.ListItem      { return nil }
func (s *fakeScraper) SearchAnime(_ context.Context, q string) []domain.ListItem {
	s.queries = append(s.queries, q)
	return s.search
}
func (s *fakeScraper) GetDetail(_ context.Context, u string) *domain.AnimeDetail {
	s.detailed = append(s.detailed, u)
	return s.detail
}
func (s *fakeScraper) GetVideo(context.Context, string) *domain.VideoInfo         { return s.video }
func (s *fakeScraper) GetAllAnimeAZ(context.Context) []domain.CatalogEntry        { return s.az }
func (s *fakeScraper) GetGenreList(context.Context) []domain.GenreRef             { return s.genres }
func (s *fakeScraper) GetAnimeByGenre(context.Context, string, int) domain.GenrePage { return s.genre }

type fakeCatalog struct {
	entries []domain.CatalogEntry
}

func (c *fakeCatalog) Search(string, int) []domain.CatalogEntry { return c.entries }

type fakeMedia struct {
	dir      string
	size     int64
	body     string
	err      error
	probed   []string
	fetched  []string
	maxBytes []int64
}

func (m *fakeMedia) Probe(_ context.Context, url string) int64 {
	m.probed = append(m.probed, url)
	return m.size
}

func (m *fakeMedia) Download(_ context.Context, url string, maxBytes int64) (*media.File, error) {
	m.fetched = append(m.fetched, url)
	m.maxBytes = append(m.maxBytes, maxBytes)
	if m.err != nil {
		return nil, m.err
	}
	path := filepath.Join(m.dir, fmt.Sprintf("dl-%d", len(m.fetched)))
	if err := os.WriteFile(path, []byte(m.body), 0o644); err != nil {
		return nil, err
	}
	return &media.File{Path: path, Size: int64(len(m.body))}, nil
}

func newTestBot(t *testing.T, s *fakeScraper) (*Bot, *fakeTelegram, *fakeMedia) {
	t.Helper()
	tg := &fakeTelegram{}
	m := &fakeMedia{dir: t.TempDir(), body: "data"}
	b := New(zerolog.Nop(), Config{Origin: origin}, tg, s, &fakeCatalog{}, m)
	return b, tg, m
}

func command(text string) telegram.Update {
	return telegram.Update{UpdateID: 1, Message: &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: 42, Type: "private"}, Text: text}}
}

func callback(data string) telegram.Update {
	return telegram.Update{UpdateID: 2, CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		Message: &telegram.Message{MessageID: 7, Chat: telegram.Chat{ID: 42}},
	}}
}

func listItems(n int) []domain.ListItem {
	items := make([]domain.ListItem, n)
	for i := range items {
		items[i] = domain.ListItem{
			Title:            fmt.Sprintf("Anime %02d", i+1),
			LastEpisodeLabel: fmt.Sprintf("Episode %d", i+1),
			URL:              fmt.Sprintf("%s/anime/anime-%02d/", origin, i+1),
		}
	}
	return items
}

func buttons(kb *telegram.InlineKeyboardMarkup) []telegram.InlineKeyboardButton {
	var out []telegram.InlineKeyboardButton
	if kb == nil {
		return out
	}
	for _, row := range kb.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}

func callbackData(kb *telegram.InlineKeyboardMarkup) []string {
	var out []string
	for _, btn := range buttons(kb) {
		out = append(out, btn.CallbackData)
	}
	return out
}

func TestBot_Start(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{})

	b.HandleUpdate(context.Background(), command("/start"))

	msg := tg.last("sendMessage")
	assert.Equal(t, int64(42), msg.chatID)
	assert.Contains(t, msg.text, "Selamat datang di VinimeBot")
	assert.ElementsMatch(t, []string{"cmd_terbaru", "cmd_rekomendasi", "cmd_movie", "cmd_cari", "cmd_listaz", "cmd_genre"}, callbackData(msg.markup))
}

func TestBot_LatestCommand(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{latest: listItems(7)})

	b.HandleUpdate(context.Background(), command("/terbaru@VinimeBot"))

	assert.Equal(t, []string{"sendMessage", "editMessageText"}, tg.methods())
	assert.Equal(t, msgLoading, tg.last("sendMessage").text)

	edit := tg.last("editMessageText")
	assert.Equal(t, 101, edit.messageID)
	assert.True(t, strings.HasPrefix(edit.text, headerLatest))
	assert.Contains(t, edit.text, "🔥 <b>1. Anime 01</b> | Episode 1")
	assert.Contains(t, edit.text, "📄 <i>Halaman 1 dari 2</i> (7 anime)")
	assert.NotContains(t, edit.text, "Anime 06")

	assert.Equal(t, []string{
		"detail_/anime/anime-01/", "detail_/anime/anime-02/", "detail_/anime/anime-03/",
		"detail_/anime/anime-04/", "detail_/anime/anime-05/", "latest_p_1", "menu",
	}, callbackData(edit.markup))
}

func TestBot_PageCallback(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{latest: listItems(7)})

	b.HandleUpdate(context.Background(), callback("rec_p_1"))

	assert.Equal(t, "answerCallbackQuery", tg.methods()[0])
	edit := tg.last("editMessageText")
	assert.Equal(t, 7, edit.messageID)
	assert.True(t, strings.HasPrefix(edit.text, headerRecommended))
	assert.Contains(t, edit.text, "⭐ <b>6. Anime 06</b>")
	assert.Contains(t, edit.text, "Halaman 2 dari 2")
	assert.Contains(t, callbackData(edit.markup), "rec_p_0")
}

func TestBot_EmptyListing(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{})

	b.HandleUpdate(context.Background(), callback("cmd_movie"))

	assert.Equal(t, msgLoadFailed, tg.last("editMessageText").text)
}

func TestBot_Search(t *testing.T) {
	t.Run("usage", func(t *testing.T) {
		b, tg, _ := newTestBot(t, &fakeScraper{})
		b.HandleUpdate(context.Background(), command("/cari   "))
		assert.Equal(t, msgSearchUsage, tg.last("sendMessage").text)
	})

	t.Run("site results", func(t *testing.T) {
		s := &fakeScraper{search: listItems(2)}
		b, tg, _ := newTestBot(t, s)
		b.HandleUpdate(context.Background(), command("/cari <naruto>"))

		assert.Equal(t, []string{"<naruto>"}, s.queries)
		assert.Equal(t, "⏳ Mencari \"&lt;naruto&gt;\"...", tg.last("sendMessage").text)
		assert.Contains(t, tg.last("editMessageText").text, "<i>&lt;naruto&gt;</i>")
	})

	t.Run("plain text searches", func(t *testing.T) {
		s := &fakeScraper{search: listItems(1)}
		b, _, _ := newTestBot(t, s)
		b.HandleUpdate(context.Background(), command("one piece"))
		assert.Equal(t, []string{"one piece"}, s.queries)
	})

	t.Run("catalog fallback", func(t *testing.T) {
		b, tg, _ := newTestBot(t, &fakeScraper{})
		b.catalog = &fakeCatalog{entries: []domain.CatalogEntry{{Title: "Naruto Shippuden", URL: origin + "/anime/shippuden/"}}}

		b.HandleUpdate(context.Background(), command("/cari naruto"))

		edit := tg.last("editMessageText")
		assert.Contains(t, edit.text, "Hasil dari katalog")
		assert.Contains(t, callbackData(edit.markup), "detail_/anime/shippuden/")
	})

	t.Run("nothing found", func(t *testing.T) {
		b, tg, _ := newTestBot(t, &fakeScraper{})
		b.HandleUpdate(context.Background(), command("/cari zzz"))
		assert.Equal(t, "😔 Tidak ditemukan anime dengan judul \"zzz\".", tg.last("editMessageText").text)
	})

	t.Run("page callback keeps query", func(t *testing.T) {
		s := &fakeScraper{search: listItems(8)}
		b, tg, _ := newTestBot(t, s)
		b.HandleUpdate(context.Background(), callback("search_p_1_kimi_no_na"))

		assert.Equal(t, []string{"kimi_no_na"}, s.queries)
		assert.Contains(t, callbackData(tg.last("editMessageText").markup), "search_p_0_kimi_no_na")
	})
}

func TestBot_LongPayloadUsesReference(t *testing.T) {
	long := origin + "/anime/" + strings.Repeat("sangat-panjang-", 6) + "sub-indo/"
	s := &fakeScraper{latest: []domain.ListItem{{Title: "Long", URL: long}}}
	b, tg, _ := newTestBot(t, s)

	b.HandleUpdate(context.Background(), command("/terbaru"))

	data := callbackData(tg.last("editMessageText").markup)[0]
	require.True(t, strings.HasPrefix(data, refPrefix))
	assert.LessOrEqual(t, len(data), callbackDataLimit)

	s.detail = &domain.AnimeDetail{Title: "Long"}
	b.HandleUpdate(context.Background(), callback(data))
	assert.Equal(t, []string{domain.RelPath(origin, long)}, s.detailed)
}

func TestBot_ExpiredReference(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{})

	b.HandleUpdate(context.Background(), callback("ref_doesnotexist"))

	assert.Equal(t, msgExpired, tg.last("editMessageText").text)
}

func TestBot_AZ(t *testing.T) {
	entries := make([]domain.CatalogEntry, 12)
	for i := range entries {
		entries[i] = domain.CatalogEntry{Title: fmt.Sprintf("Title %d", i+1), URL: fmt.Sprintf("%s/anime/t%d/", origin, i+1)}
	}

	b, tg, _ := newTestBot(t, &fakeScraper{az: entries})
	b.HandleUpdate(context.Background(), callback("az_p_1"))

	edit := tg.last("editMessageText")
	assert.Contains(t, edit.text, "Daftar Anime A-Z (12 anime)")
	assert.Contains(t, edit.text, "<b>11.</b> Title 11")
	assert.Contains(t, callbackData(edit.markup), "az_p_0")

	empty, tg2, _ := newTestBot(t, &fakeScraper{})
	empty.HandleUpdate(context.Background(), command("/list"))
	assert.Equal(t, msgCatalogEmpty, tg2.last("editMessageText").text)
}

func TestBot_Genres(t *testing.T) {
	s := &fakeScraper{
		genres: []domain.GenreRef{{Name: "Action", Slug: "action"}, {Name: "Comedy", Slug: "comedy"}, {Name: "Drama", Slug: "drama"}, {Name: "Slice of Life", Slug: "slice-of-life"}},
		genre: domain.GenrePage{
			Items:       []domain.GenreItem{{Title: "Barakamon", URL: origin + "/anime/barakamon/", Rating: "8.3", EpisodeLabel: "12 Eps"}},
			CurrentPage: 2,
			TotalPages:  3,
		},
	}
	b, tg, _ := newTestBot(t, s)

	b.HandleUpdate(context.Background(), command("/genre"))
	edit := tg.last("editMessageText")
	assert.Equal(t, msgGenrePick, edit.text)
	require.Len(t, edit.markup.InlineKeyboard, 3)
	assert.Len(t, edit.markup.InlineKeyboard[0], 3)
	assert.Equal(t, "genre_slice-of-life_p_1", edit.markup.InlineKeyboard[1][0].CallbackData)

	b.HandleUpdate(context.Background(), callback("genre_slice-of-life_p_2"))
	edit = tg.last("editMessageText")
	assert.Contains(t, edit.text, "Genre: Slice Of Life")
	assert.Contains(t, edit.text, "⭐ 8.3 | 12 Eps")
	assert.Contains(t, edit.text, "Halaman 2 dari 3")
	assert.Equal(t, []string{
		"detail_/anime/barakamon/", "genre_slice-of-life_p_1", "noop", "genre_slice-of-life_p_3", "cmd_genre", "menu",
	}, callbackData(edit.markup))
}

func detailFixture(episodes int) *domain.AnimeDetail {
	d := &domain.AnimeDetail{
		Title:    "Frieren",
		Rating:   "9.1",
		Status:   "Completed",
		Genres:   []string{"Adventure", "Fantasy"},
		Synopsis: strings.Repeat("a", 600),
		CoverURL: origin + "/cover.jpg",
	}
	for i := episodes; i >= 1; i-- {
		d.Episodes = append(d.Episodes, domain.EpisodeRef{
			Label: fmt.Sprintf("Frieren Episode %d Subtitle Indonesia", i),
			URL:   fmt.Sprintf("%s/episode/frieren-episode-%d/", origin, i),
		})
	}
	return d
}

func TestBot_Detail(t *testing.T) {
	t.Run("uploads cover", func(t *testing.T) {
		s := &fakeScraper{detail: detailFixture(3)}
		b, tg, m := newTestBot(t, s)

		b.HandleUpdate(context.Background(), callback("detail_/anime/frieren/"))

		assert.Equal(t, []string{"/anime/frieren/"}, s.detailed)
		assert.Equal(t, []string{origin + "/cover.jpg"}, m.fetched)
		assert.Equal(t, coverLimit, m.maxBytes[0])
		assert.Equal(t, []string{"answerCallbackQuery", "editMessageText", "deleteMessage", "sendPhotoFile"}, tg.methods())

		photo := tg.last("sendPhotoFile")
		assert.Contains(t, photo.text, "🎬 <b>Frieren</b>")
		assert.Contains(t, photo.text, "Adventure, Fantasy")
		assert.Contains(t, photo.text, strings.Repeat("a", 500)+"...")
		assert.Equal(t, []string{"ep_/episode/frieren-episode-3/", "episodes_/anime/frieren/", "menu"}, callbackData(photo.markup))
	})

	t.Run("falls back to photo url", func(t *testing.T) {
		b, tg, m := newTestBot(t, &fakeScraper{detail: detailFixture(1)})
		m.err = errors.New("timeout")

		b.HandleUpdate(context.Background(), callback("detail_/anime/frieren/"))
		assert.Equal(t, origin+"/cover.jpg", tg.last("sendPhoto").fileName)
	})

	t.Run("no cover", func(t *testing.T) {
		d := detailFixture(0)
		d.CoverURL = ""
		b, tg, _ := newTestBot(t, &fakeScraper{detail: d})

		b.HandleUpdate(context.Background(), callback("detail_/anime/frieren/"))
		edit := tg.last("editMessageText")
		assert.Contains(t, edit.text, "Frieren")
		assert.Equal(t, []string{"menu"}, callbackData(edit.markup))
	})

	t.Run("missing", func(t *testing.T) {
		b, tg, _ := newTestBot(t, &fakeScraper{})
		b.HandleUpdate(context.Background(), callback("detail_/anime/nope/"))
		assert.Equal(t, msgDetailFailed, tg.last("editMessageText").text)
	})
}

func TestBot_Episodes(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{detail: detailFixture(28)})

	b.HandleUpdate(context.Background(), callback("episodes_/anime/frieren/"))

	edit := tg.last("editMessageText")
	assert.Contains(t, edit.text, "Total: 28 episode")
	assert.Contains(t, edit.text, "Menampilkan 20 episode terbaru")

	btns := buttons(edit.markup)
	require.Len(t, btns, 22)
	assert.Equal(t, "Eps 28", btns[0].Text)
	assert.Equal(t, "epnav_/anime/frieren/__0", btns[0].CallbackData)
	assert.Equal(t, "epnav_/anime/frieren/__19", btns[19].CallbackData)
	assert.Equal(t, "detail_/anime/frieren/", btns[20].CallbackData)
}

func TestBot_EditFallsBackToNewMessage(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{})
	tg.failEdit = true

	b.HandleUpdate(context.Background(), callback("episodes_/anime/frieren/"))

	assert.Equal(t, []string{"answerCallbackQuery", "editMessageText", "deleteMessage", "sendMessage", "editMessageText", "deleteMessage", "sendMessage"}, tg.methods())
	assert.Equal(t, msgNoEpisodes, tg.last("sendMessage").text)
}

func videoFixture() *domain.VideoInfo {
	return domain.NewVideoInfo([]domain.StreamEntry{
		{Resolution: "480p", DirectLink: "https://pixeldrain.com/u/four", ProviderLabel: "Pdrain"},
		{Resolution: "720p", DirectLink: "https://mega.nz/file/x", ProviderLabel: "Mega"},
		{Resolution: "720p", DirectLink: "https://pixeldrain.com/u/seven", ProviderLabel: "Pdrain"},
	})
}

func TestBot_WatchUploadsVideo(t *testing.T) {
	s := &fakeScraper{detail: detailFixture(3), video: videoFixture()}
	b, tg, m := newTestBot(t, s)
	m.size = 4

	b.HandleUpdate(context.Background(), callback("epnav_/anime/frieren/__1"))

	assert.Equal(t, []string{"https://pixeldrain.com/api/file/seven"}, m.probed)
	assert.Equal(t, UploadLimit, m.maxBytes[0])

	video := tg.last("sendVideoFile")
	assert.Equal(t, "Frieren_Episode_2_Subtitle_Indonesia.mp4:data", video.fileName)
	assert.Equal(t, "📺 <b>Frieren</b>\n▶️ <b>Frieren Episode 2 Subtitle Indonesia</b> | 720p | 4 B", video.text)
	assert.Equal(t, []string{"epnav_/anime/frieren/__2", "epnav_/anime/frieren/__0", "episodes_/anime/frieren/", "menu"}, callbackData(video.markup))

	methods := tg.methods()
	assert.Equal(t, "deleteMessage", methods[len(methods)-1])

	entries, err := os.ReadDir(m.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBot_WatchFallsBackToDocument(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{video: videoFixture()})
	tg.failVideo = true

	b.HandleUpdate(context.Background(), callback("ep_/episode/frieren-episode-1/"))

	doc := tg.last("sendDocumentFile")
	assert.Equal(t, "Episode.mp4:data", doc.fileName)
	assert.Contains(t, doc.text, "<i>Dikirim sebagai file</i>")
}

func TestBot_WatchTooLarge(t *testing.T) {
	t.Run("probe", func(t *testing.T) {
		b, tg, m := newTestBot(t, &fakeScraper{video: videoFixture()})
		m.size = UploadLimit + 1

		b.HandleUpdate(context.Background(), callback("ep_/episode/x/"))

		assert.Empty(t, m.fetched)
		edit := tg.last("editMessageText")
		assert.Contains(t, edit.text, "File terlalu besar untuk Telegram (max 50MB)")
		assert.Contains(t, edit.text, "https://pixeldrain.com/api/file/seven")
	})

	t.Run("download", func(t *testing.T) {
		b, tg, m := newTestBot(t, &fakeScraper{video: videoFixture()})
		m.err = media.ErrTooLarge

		b.HandleUpdate(context.Background(), callback("ep_/episode/x/"))
		assert.Contains(t, tg.last("editMessageText").text, "File terlalu besar")
	})
}

func TestBot_WatchWithoutDirectLink(t *testing.T) {
	t.Run("lists links", func(t *testing.T) {
		video := domain.NewVideoInfo([]domain.StreamEntry{
			{Resolution: "720p", DirectLink: "https://mega.nz/file/a", ProviderLabel: "Mega"},
			{Resolution: "1080p", DirectLink: "https://gofile.io/d/b", ProviderLabel: "Gofile"},
		})
		b, tg, m := newTestBot(t, &fakeScraper{video: video})

		b.HandleUpdate(context.Background(), callback("ep_/episode/x/"))

		assert.Empty(t, m.probed)
		edit := tg.last("editMessageText")
		assert.Contains(t, edit.text, "📥 <b>Link Download:</b>")
		assert.Contains(t, edit.text, `<a href="https://mega.nz/file/a">720p Mega</a>`)
		assert.Contains(t, edit.text, "Buka di browser untuk download.")
	})

	t.Run("mirrors only", func(t *testing.T) {
		video := domain.NewVideoInfo([]domain.StreamEntry{{Resolution: "720p", IsEmbeddedMirror: true}})
		b, tg, _ := newTestBot(t, &fakeScraper{video: video})

		b.HandleUpdate(context.Background(), callback("ep_/episode/x/"))
		assert.Equal(t, "😔 Belum ada video untuk <b>Episode</b>.", tg.last("editMessageText").text)
	})

	t.Run("no video", func(t *testing.T) {
		b, tg, _ := newTestBot(t, &fakeScraper{})
		b.HandleUpdate(context.Background(), callback("ep_/episode/x/"))
		assert.Contains(t, tg.last("editMessageText").text, "Gagal mengambil video")
	})
}

func TestBot_EpisodeIndexOutOfRange(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{detail: detailFixture(2)})

	b.HandleUpdate(context.Background(), callback("epnav_/anime/frieren/__5"))
	assert.Equal(t, msgEpisodeMissing, tg.last("editMessageText").text)
}

func TestBot_RecoversFromPanic(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{panicky: true})

	assert.NotPanics(t, func() {
		b.HandleUpdate(context.Background(), command("/terbaru"))
	})
	assert.Equal(t, msgError, tg.last("sendMessage").text)
}

type fakePoller struct {
	mu       sync.Mutex
	offsets  []int
	batches  [][]telegram.Update
	unhooked bool
}

func (p *fakePoller) DeleteWebhook(context.Context) error {
	p.unhooked = true
	return nil
}

func (p *fakePoller) GetUpdates(ctx context.Context, offset int, _ time.Duration) ([]telegram.Update, error) {
	p.mu.Lock()
	p.offsets = append(p.offsets, offset)
	if len(p.batches) > 0 {
		batch := p.batches[0]
		p.batches = p.batches[1:]
		p.mu.Unlock()
		return batch, nil
	}
	p.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func TestBot_Poll(t *testing.T) {
	b, tg, _ := newTestBot(t, &fakeScraper{})
	p := &fakePoller{batches: [][]telegram.Update{
		{
			{UpdateID: 5, Message: &telegram.Message{Chat: telegram.Chat{ID: 1}, Text: "/start"}},
			{UpdateID: 6, Message: &telegram.Message{Chat: telegram.Chat{ID: 2}, Text: "/help"}},
		},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Poll(ctx, p) }()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.offsets) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	b.Wait()

	assert.True(t, p.unhooked)
	assert.Equal(t, []int{0, 7}, p.offsets)
	assert.Len(t, tg.methods(), 2)
}
