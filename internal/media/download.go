package media

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	probeTimeout    = 15 * time.Second
	downloadTimeout = 5 * time.Minute
)

var ErrTooLarge = errors.New("file exceeds size limit")

// File is a downloaded temp file. The caller removes it.
type File struct {
	Path        string
	Size        int64
	ContentType string
}

func (f *File) Open() (*os.File, error) {
	return os.Open(f.Path)
}

func (f *File) Remove() error {
	return os.Remove(f.Path)
}

type Downloader struct {
	log   zerolog.Logger
	resty *resty.Client
	dir   string
}

// NewDownloader returns a downloader that sends userAgent and referer with
// every request and keeps temp files in dir ("" for the OS default).
func NewDownloader(log zerolog.Logger, userAgent, referer, dir string) *Downloader {
	client := resty.New().
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	if referer != "" {
		client.SetHeader("Referer", referer)
	}

	return &Downloader{
		log:   log.With().Str("module", "media").Logger(),
		resty: client,
		dir:   dir,
	}
}

// Probe returns the advertised size of url, or 0 when the server does not
// say.
func (d *Downloader) Probe(ctx context.Context, url string) int64 {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := d.resty.R().SetContext(ctx).Head(url)
	if err != nil {
		d.log.Debug().Err(err).Str("url", url).Msg("probe failed")
		return 0
	}
	if resp.IsError() {
		return 0
	}

	n, err := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Download streams url into a temp file. Bodies larger than maxBytes are cut
// off with ErrTooLarge and leave nothing behind.
func (d *Downloader) Download(ctx context.Context, url string, maxBytes int64) (*File, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	resp, err := d.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "download %s", url)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, pkgerrors.Errorf("download %s: status %d", url, resp.StatusCode())
	}
	if maxBytes > 0 && resp.RawResponse.ContentLength > maxBytes {
		return nil, ErrTooLarge
	}

	f, err := os.CreateTemp(d.dir, "vinime-*")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create temp file")
	}

	limit := maxBytes
	if limit <= 0 {
		limit = 1<<63 - 2
	}
	n, err := io.Copy(f, io.LimitReader(body, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(f.Name())
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, pkgerrors.Wrapf(err, "download %s", url)
	}

	d.log.Debug().Str("url", url).Str("size", FormatSize(n)).Msg("downloaded")

	return &File{Path: f.Name(), Size: n, ContentType: resp.Header().Get("Content-Type")}, nil
}
