package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultAPIRoot = "https://api.telegram.org"

	defaultCallTimeout = 30 * time.Second
)

// Client is a minimal Bot API client covering what the bot sends
type Client struct {
	log         zerolog.Logger
	resty       *resty.Client
	baseURL     string
	callTimeout time.Duration
}

// NewClient builds a client for token. An empty apiRoot means the public Bot
// API; a local Bot API server is addressed the same way.
func NewClient(log zerolog.Logger, token, apiRoot string) *Client {
	apiRoot = strings.TrimRight(strings.TrimSpace(apiRoot), "/")
	if apiRoot == "" {
		apiRoot = DefaultAPIRoot
	}

	return &Client{
		log:         log.With().Str("module", "telegram").Logger(),
		resty:       resty.New(),
		baseURL:     fmt.Sprintf("%s/bot%s", apiRoot, token),
		callTimeout: defaultCallTimeout,
	}
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// call posts payload as JSON and decodes the result into out when non-nil.
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.baseURL + "/" + method)
	if err != nil {
		return errors.Wrapf(err, "telegram %s", method)
	}

	return c.decode(method, resp, out)
}

type upload struct {
	field    string
	fileName string
	reader   io.Reader
	fields   map[string]string
}

// upload sends a file as multipart form data. It is bounded only by ctx.
func (c *Client) upload(ctx context.Context, method string, u upload, out any) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetFileReader(u.field, u.fileName, u.reader).
		SetFormData(u.fields).
		Post(c.baseURL + "/" + method)
	if err != nil {
		return errors.Wrapf(err, "telegram %s", method)
	}

	return c.decode(method, resp, out)
}

func (c *Client) decode(method string, resp *resty.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return errors.Wrapf(err, "telegram %s: status %d", method, resp.StatusCode())
	}

	if !env.OK {
		code := env.ErrorCode
		if code == 0 {
			code = resp.StatusCode()
		}
		return &APIError{Method: method, Code: code, Description: env.Description}
	}

	c.log.Trace().Str("method", method).Msg("api call ok")

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return errors.Wrapf(err, "telegram %s: decode result", method)
	}
	return nil
}

func withOptions(payload map[string]any, opts *MessageOptions) map[string]any {
	if opts == nil {
		return payload
	}
	if opts.ParseMode != "" {
		payload["parse_mode"] = opts.ParseMode
	}
	if opts.ReplyMarkup != nil {
		payload["reply_markup"] = opts.ReplyMarkup
	}
	if opts.DisableWebPagePreview {
		payload["disable_web_page_preview"] = true
	}
	return payload
}

func formOptions(fields map[string]string, opts *MessageOptions) (map[string]string, error) {
	if opts == nil {
		return fields, nil
	}
	if opts.ParseMode != "" {
		fields["parse_mode"] = opts.ParseMode
	}
	if opts.ReplyMarkup != nil {
		b, err := json.Marshal(opts.ReplyMarkup)
		if err != nil {
			return nil, errors.Wrap(err, "encode reply markup")
		}
		fields["reply_markup"] = string(b)
	}
	return fields, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *MessageOptions) (*Message, error) {
	payload := withOptions(map[string]any{"chat_id": chatID, "text": text}, opts)

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *MessageOptions) error {
	payload := withOptions(map[string]any{"chat_id": chatID, "message_id": messageID, "text": text}, opts)
	return c.call(ctx, "editMessageText", payload, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.call(ctx, "deleteMessage", map[string]any{"chat_id": chatID, "message_id": messageID}, nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	payload := map[string]any{"callback_query_id": callbackQueryID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SendPhoto sends a photo Telegram fetches itself from photoURL.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, opts *MessageOptions) (*Message, error) {
	payload := withOptions(map[string]any{"chat_id": chatID, "photo": photoURL}, opts)
	if caption != "" {
		payload["caption"] = caption
	}

	var msg Message
	if err := c.call(ctx, "sendPhoto", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) SendPhotoFile(ctx context.Context, chatID int64, fileName string, r io.Reader, caption string, opts *MessageOptions) (*Message, error) {
	return c.sendFile(ctx, "sendPhoto", "photo", chatID, fileName, r, caption, opts, nil)
}

func (c *Client) SendVideoFile(ctx context.Context, chatID int64, fileName string, r io.Reader, caption string, opts *MessageOptions) (*Message, error) {
	return c.sendFile(ctx, "sendVideo", "video", chatID, fileName, r, caption, opts, map[string]string{"supports_streaming": "true"})
}

func (c *Client) SendDocumentFile(ctx context.Context, chatID int64, fileName string, r io.Reader, caption string, opts *MessageOptions) (*Message, error) {
	return c.sendFile(ctx, "sendDocument", "document", chatID, fileName, r, caption, opts, nil)
}

func (c *Client) sendFile(ctx context.Context, method, field string, chatID int64, fileName string, r io.Reader, caption string, opts *MessageOptions, extra map[string]string) (*Message, error) {
	fields := map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}
	if caption != "" {
		fields["caption"] = caption
	}
	for k, v := range extra {
		fields[k] = v
	}

	fields, err := formOptions(fields, opts)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := c.upload(ctx, method, upload{field: field, fileName: fileName, reader: r, fields: fields}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+c.callTimeout)
	defer cancel()

	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.baseURL + "/getUpdates")
	if err != nil {
		return nil, errors.Wrap(err, "telegram getUpdates")
	}

	var updates []Update
	if err := c.decode("getUpdates", resp, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil)
}

func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
