package extract

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/vinime/internal/domain"
)

const origin = "https://otakudesu.cloud"

const latestPage = `<html><body>
<div class="venz"><ul>
  <li>
    <div class="detpost">
      <div class="epz"> Episode 8 </div>
      <div class="thumb"><a href="https://otakudesu.cloud/anime/dandadan-s2-sub-indo/">
        <div class="thumbz"><img src="https://otakudesu.cloud/wp-content/uploads/dandadan.jpg"/>
        <h2 class="jdlflm">Dandadan Season 2</h2></div></a></div>
    </div>
  </li>
  <li>
    <div class="detpost">
      <div class="epz">Episode 12</div>
      <div class="thumb"><a href="/anime/kaiju-8-s2/">
        <div class="thumbz"><img data-src="/wp-content/uploads/kaiju.jpg"/>
        <h2 class="jdlflm">Kaiju
           No. 8 Season 2</h2></div></a></div>
    </div>
  </li>
  <li><div class="thumb"><a href="/anime/no-title/"></a></div></li>
</ul></div>
</body></html>`

func TestParser_Latest(t *testing.T) {
	p := NewParser(origin, nil)

	items, err := p.Latest(latestPage)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, domain.ListItem{
		Title:            "Dandadan Season 2",
		LastEpisodeLabel: "Episode 8",
		URL:              "https://otakudesu.cloud/anime/dandadan-s2-sub-indo/",
		CoverURL:         "https://otakudesu.cloud/wp-content/uploads/dandadan.jpg",
	}, items[0])

	assert.Equal(t, "Kaiju No. 8 Season 2", items[1].Title)
	assert.Equal(t, "https://otakudesu.cloud/anime/kaiju-8-s2/", items[1].URL)
	assert.Equal(t, "https://otakudesu.cloud/wp-content/uploads/kaiju.jpg", items[1].CoverURL)
}

func TestParser_LatestFallsBackToDetpost(t *testing.T) {
	page := `<div class="rseries">
	  <div class="detpost"><div class="epz">Episode 3</div>
	    <a href="anime/frieren/"><img src="/f.jpg"><h2 class="jdlflm">Frieren</h2></a></div>
	</div>`

	items, err := NewParser(origin, nil).Latest(page)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://otakudesu.cloud/anime/frieren/", items[0].URL)
	assert.Equal(t, "Episode 3", items[0].LastEpisodeLabel)
}

func TestParser_Movies(t *testing.T) {
	t.Run("search style markup", func(t *testing.T) {
		page := `<div class="venser"><ul class="chivsrc">
		  <li><img src="https://img/m1.jpg"><h2><a href="/anime/suzume/">Suzume no Tojimari</a></h2>
		      <div class="set"><b>Genres</b> : Adventure</div><div class="set">Status : Completed</div></li>
		</ul></div>`

		items, err := NewParser(origin, nil).Movies(page)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Suzume no Tojimari", items[0].Title)
		assert.Equal(t, "Genres : Adventure", items[0].LastEpisodeLabel)
	})

	t.Run("column markup", func(t *testing.T) {
		page := `<div class="venser"><div class="col"><ul>
		  <li><img src="/a.jpg"><h2><a href="/anime/a/">Movie A</a></h2></li>
		  <li><img src="/b.jpg"><h2><a href="/anime/b/">Movie B</a></h2></li>
		</ul></div></div>`

		items, err := NewParser(origin, nil).Movies(page)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("detpost fallback", func(t *testing.T) {
		page := `<div class="detpost"><a href="/anime/c/"><img src="/c.jpg"><span class="jdlflm">Movie C</span></a><div class="epz">Movie</div></div>`

		items, err := NewParser(origin, nil).Movies(page)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Movie C", items[0].Title)
	})
}

const searchPage = `<html><body><div class="venser"><div class="page"><ul class="chivsrc">
<li style="list-style:none;">
  <img src="https://otakudesu.cloud/wp-content/uploads/naruto.jpg" alt="Naruto"/>
  <h2><a href="https://otakudesu.cloud/anime/naruto-sub-indo/">Naruto (Episode 1 – 220) Subtitle Indonesia</a></h2>
  <div class="set"><b>Genres</b> : <a href="/genres/action/">Action</a></div>
  <div class="set"><b>Status</b> : Completed</div>
  <div class="set"><b>Rating</b> : 7.99</div>
</li>
<li style="list-style:none;">
  <img src="/wp-content/uploads/shippuden.jpg"/>
  <h2><a href="/anime/naruto-shippuden-sub-indo/">Naruto Shippuden Subtitle Indonesia</a></h2>
  <div class="set"><b>Status</b> : Completed</div>
</li>
</ul></div></div></body></html>`

func TestParser_Search(t *testing.T) {
	items, err := NewParser(origin, nil).Search(searchPage)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://otakudesu.cloud/anime/naruto-sub-indo/", items[0].URL)
	assert.Equal(t, "Completed", items[0].LastEpisodeLabel)
	assert.Equal(t, "https://otakudesu.cloud/anime/naruto-shippuden-sub-indo/", items[1].URL)
	assert.Equal(t, "https://otakudesu.cloud/wp-content/uploads/shippuden.jpg", items[1].CoverURL)
}

func TestParser_EmptyPages(t *testing.T) {
	p := NewParser(origin, nil)

	for name, fn := range map[string]func(string) ([]domain.ListItem, error){
		"latest":      p.Latest,
		"recommended": p.Recommended,
		"movies":      p.Movies,
		"search":      p.Search,
	} {
		t.Run(name, func(t *testing.T) {
			items, err := fn("<html><body><p>Tidak ditemukan</p></body></html>")
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestParseError(t *testing.T) {
	err := NewParser(origin, nil).load("latest", "<p>", func(*goquery.Document) error {
		panic("boom")
	})

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "latest", pe.Page)
	assert.Contains(t, err.Error(), "boom")
}
