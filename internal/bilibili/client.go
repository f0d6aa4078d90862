package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"bilisum/pkg/bilisum"
)

const (
	defaultBaseURL    = "https://api.bilibili.com"
	defaultTimeout    = 15 * time.Second
	defaultRetryMax   = 3
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	defaultReferer    = "https://www.bilibili.com"
	videoCommentsType = "1"

	atFeedPath    = "/x/msgfeed/at"
	videoInfoPath = "/x/web-interface/view"
	playerPath    = "/x/player/wbi/v2"
	relationPath  = "/x/relation"
	replyAddPath  = "/x/v2/reply/add"
)

// ClientConfig configures one Bilibili web API client.
type ClientConfig struct {
	// SessData is the SESSDATA authentication cookie value.
	SessData string
	// BiliJCT is the bili_jct cookie value, doubling as the CSRF token.
	BiliJCT string
	// UID is the bot account's numeric user id.
	UID int64
	// BaseURL optionally overrides the API endpoint, used by tests.
	BaseURL string
	// Timeout optionally overrides the per-call deadline.
	Timeout time.Duration
	// RetryMax optionally overrides the transport retry count.
	RetryMax int
	// Logger optionally overrides the default logger.
	Logger *slog.Logger
}

// Client adapts the Bilibili web API to the domain collaborator contracts.
//
// Transient transport failures are retried here with bounded attempts and
// exponential backoff; callers never retry.
type Client struct {
	http    *http.Client
	baseURL string
	cookies string
	csrf    string
	uid     int64
	logger  *slog.Logger
}

// NewClient creates a Bilibili API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.SessData) == "" {
		return nil, fmt.Errorf("new bilibili client: missing sessdata")
	}
	if strings.TrimSpace(cfg.BiliJCT) == "" {
		return nil, fmt.Errorf("new bilibili client: missing bili_jct")
	}
	if cfg.UID <= 0 {
		return nil, fmt.Errorf("new bilibili client: missing uid")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = defaultRetryMax
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 2 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = nil

	return &Client{
		http:    retryClient.StandardClient(),
		baseURL: baseURL,
		cookies: fmt.Sprintf("SESSDATA=%s; bili_jct=%s", cfg.SessData, cfg.BiliJCT),
		csrf:    cfg.BiliJCT,
		uid:     cfg.UID,
		logger:  logger,
	}, nil
}

// FetchMentions returns the most recent "@" notifications, newest first.
// Items that cannot be decoded into a processable mention are skipped.
func (c *Client) FetchMentions(ctx context.Context) ([]bilisum.Mention, error) {
	query := url.Values{}
	query.Set("build", "0")
	query.Set("mobi_app", "web")

	envelope, err := c.get(ctx, atFeedPath, query)
	if err != nil {
		return nil, fmt.Errorf("fetch mentions: %w", err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("fetch mentions: api code %d: %s", envelope.Code, envelope.Message)
	}

	var feed atFeedData
	if err := json.Unmarshal(envelope.Data, &feed); err != nil {
		return nil, fmt.Errorf("fetch mentions: decode feed: %w", err)
	}

	mentions := make([]bilisum.Mention, 0, len(feed.Items))
	for _, item := range feed.Items {
		mention, err := decodeMentionItem(item)
		if err != nil {
			c.logger.Debug("skipping mention item", "error", err)
			continue
		}
		mentions = append(mentions, mention)
	}

	return mentions, nil
}

// FetchVideo returns the metadata of one video.
func (c *Client) FetchVideo(ctx context.Context, bvid string) (bilisum.VideoInfo, error) {
	query := url.Values{}
	query.Set("bvid", bvid)

	envelope, err := c.get(ctx, videoInfoPath, query)
	if err != nil {
		return bilisum.VideoInfo{}, fmt.Errorf("fetch video %s: %w", bvid, err)
	}
	if envelope.Code != 0 {
		return bilisum.VideoInfo{}, fmt.Errorf("fetch video %s: api code %d: %s", bvid, envelope.Code, envelope.Message)
	}

	var view viewData
	if err := json.Unmarshal(envelope.Data, &view); err != nil {
		return bilisum.VideoInfo{}, fmt.Errorf("fetch video %s: decode view: %w", bvid, err)
	}

	video, err := decodeVideo(view)
	if err != nil {
		return bilisum.VideoInfo{}, fmt.Errorf("fetch video %s: %w", bvid, err)
	}

	return video, nil
}

// FetchSubtitle returns the flattened subtitle text of one video page.
// A video without a usable subtitle yields nil, not an error; a failed
// subtitle download is treated the same way.
func (c *Client) FetchSubtitle(ctx context.Context, bvid string, cid int64) (*bilisum.Subtitle, error) {
	query := url.Values{}
	query.Set("bvid", bvid)
	query.Set("cid", strconv.FormatInt(cid, 10))

	envelope, err := c.get(ctx, playerPath, query)
	if err != nil {
		return nil, fmt.Errorf("fetch subtitle %s: %w", bvid, err)
	}

	var player playerData
	if err := json.Unmarshal(envelope.Data, &player); err != nil {
		return nil, fmt.Errorf("fetch subtitle %s: decode player: %w", bvid, err)
	}

	track, found := chooseSubtitleTrack(player.Subtitle.Subtitles)
	if !found || track.SubtitleURL == "" {
		c.logger.Info("video has no subtitle", "bvid", bvid)
		return nil, nil
	}

	subtitleURL := track.SubtitleURL
	if strings.HasPrefix(subtitleURL, "//") {
		subtitleURL = "https:" + subtitleURL
	}

	body, err := c.download(ctx, subtitleURL)
	if err != nil {
		c.logger.Warn("subtitle download failed", "bvid", bvid, "error", err)
		return nil, nil
	}

	var payload subtitlePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Warn("subtitle decode failed", "bvid", bvid, "error", err)
		return nil, nil
	}
	if len(payload.Body) == 0 {
		return nil, nil
	}

	lines := make([]string, 0, len(payload.Body))
	for _, line := range payload.Body {
		lines = append(lines, line.Content)
	}

	return &bilisum.Subtitle{
		Language: track.Lan,
		Body:     strings.Join(lines, " "),
	}, nil
}

// IsFollowing reports whether the given user follows the bot account.
//
// The check fails open: any transport, decoding or business-level error
// reports true, so a flaky relation endpoint never locks out a real user.
// Only a definitive relation attribute can deny.
func (c *Client) IsFollowing(ctx context.Context, userUID int64) bool {
	query := url.Values{}
	query.Set("fid", strconv.FormatInt(userUID, 10))

	envelope, err := c.get(ctx, relationPath, query)
	if err != nil {
		c.logger.Warn("relation check failed, assuming follower", "uid", userUID, "error", err)
		return true
	}
	if envelope.Code != 0 {
		c.logger.Warn("relation check rejected, assuming follower",
			"uid", userUID,
			"code", envelope.Code,
			"message", envelope.Message,
		)
		return true
	}

	var relation relationData
	if err := json.Unmarshal(envelope.Data, &relation); err != nil {
		c.logger.Warn("relation decode failed, assuming follower", "uid", userUID, "error", err)
		return true
	}

	// Attribute 2 (followed) and 6 (mutual) mean the user follows the bot.
	attribute := relation.BeRelation.Attribute
	return attribute == 2 || attribute == 6
}

// SendReply posts one comment reply. A business-level rejection is an
// expected outcome and lands in the receipt, not in err.
func (c *Client) SendReply(ctx context.Context, oid, root, parent int64, text string) (bilisum.ReplyReceipt, error) {
	form := url.Values{}
	form.Set("oid", strconv.FormatInt(oid, 10))
	form.Set("type", videoCommentsType)
	form.Set("root", strconv.FormatInt(root, 10))
	form.Set("parent", strconv.FormatInt(parent, 10))
	form.Set("message", text)
	form.Set("csrf", c.csrf)

	envelope, err := c.postForm(ctx, replyAddPath, form)
	if err != nil {
		return bilisum.ReplyReceipt{}, fmt.Errorf("send reply oid %d: %w", oid, err)
	}
	if envelope.Code != 0 {
		return bilisum.ReplyReceipt{Success: false, Message: envelope.Message}, nil
	}

	var reply replyAddData
	if err := json.Unmarshal(envelope.Data, &reply); err != nil {
		return bilisum.ReplyReceipt{}, fmt.Errorf("send reply oid %d: decode reply: %w", oid, err)
	}

	return bilisum.ReplyReceipt{Success: true, ReplyID: reply.RPID}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (apiEnvelope, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return apiEnvelope{}, fmt.Errorf("build request: %w", err)
	}

	return c.do(request)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (apiEnvelope, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return apiEnvelope{}, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(request)
}

func (c *Client) do(request *http.Request) (apiEnvelope, error) {
	c.decorate(request)

	response, err := c.http.Do(request)
	if err != nil {
		return apiEnvelope{}, fmt.Errorf("do request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return apiEnvelope{}, fmt.Errorf("unexpected status %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return apiEnvelope{}, fmt.Errorf("read response body: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiEnvelope{}, fmt.Errorf("decode response envelope: %w", err)
	}

	return envelope, nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.decorate(request)

	response, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", response.StatusCode)
	}

	return io.ReadAll(response.Body)
}

func (c *Client) decorate(request *http.Request) {
	request.Header.Set("User-Agent", defaultUserAgent)
	request.Header.Set("Referer", defaultReferer)
	request.Header.Set("Origin", defaultReferer)
	request.Header.Set("Cookie", c.cookies)
}

var (
	_ bilisum.EventSource    = (*Client)(nil)
	_ bilisum.ContentService = (*Client)(nil)
	_ bilisum.ReplyService   = (*Client)(nil)
)
