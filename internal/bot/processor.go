package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"bilisum/pkg/bilisum"
)

const (
	defaultMaxSubtitleChars = 8000
	defaultReplyPrefix      = "【AI总结】"
	defaultMaxReplyChars    = 900

	maxDescriptionChars = 500
	ellipsisMarker      = "..."
)

// mentionPattern matches the "@<name>" token prefixed to mention comments.
// Bot names are usually CJK, so the class must cover Unicode letters.
var mentionPattern = regexp.MustCompile(`@[\p{L}\p{N}_\-]+\s*`)

// summaryKeywords are the phrases that classify a comment as a plain
// summary request rather than a specific question.
var summaryKeywords = []string{
	"总结", "概括", "摘要", "说了什么", "讲了什么", "内容是什么", "说了啥", "讲了啥",
}

// notFollowingMessage is the onboarding reply sent to users who have not
// followed the bot account yet.
const notFollowingMessage = `👋 你好呀～

看起来你还没有关注我哦！
✨ 关注我之后就可以免费使用 AI 视频总结功能啦～

点击我的头像 → 关注 → 再来 @我 试试吧！`

// ProcessorOption mutates processor configuration.
type ProcessorOption func(*Processor)

// WithProcessorLogger injects a logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(processor *Processor) {
		if logger != nil {
			processor.logger = logger
		}
	}
}

// WithMaxSubtitleChars caps the subtitle text handed to the generator.
func WithMaxSubtitleChars(maxChars int) ProcessorOption {
	return func(processor *Processor) {
		if maxChars > 0 {
			processor.maxSubtitleChars = maxChars
		}
	}
}

// WithReplyPrefix sets the fixed prefix prepended to every generated reply.
func WithReplyPrefix(prefix string) ProcessorOption {
	return func(processor *Processor) {
		if prefix != "" {
			processor.replyPrefix = prefix
		}
	}
}

// WithMaxReplyChars caps the final reply length in runes.
func WithMaxReplyChars(maxChars int) ProcessorOption {
	return func(processor *Processor) {
		if maxChars > 0 {
			processor.maxReplyChars = maxChars
		}
	}
}

// Processor runs the per-mention workflow: relation gate, intent
// classification, cache lookup, context assembly, generation and reply.
//
// It is pure orchestration; every collaborator call owns its own retry
// policy, and no error escapes Process.
type Processor struct {
	content  bilisum.ContentService
	replies  bilisum.ReplyService
	provider bilisum.LLMProvider
	cache    *SummaryCache
	logger   *slog.Logger

	maxSubtitleChars int
	replyPrefix      string
	maxReplyChars    int
}

// NewProcessor creates a mention processor.
func NewProcessor(
	content bilisum.ContentService,
	replies bilisum.ReplyService,
	provider bilisum.LLMProvider,
	cache *SummaryCache,
	options ...ProcessorOption,
) (*Processor, error) {
	if content == nil {
		return nil, fmt.Errorf("new processor: nil content service")
	}
	if replies == nil {
		return nil, fmt.Errorf("new processor: nil reply service")
	}
	if provider == nil {
		return nil, fmt.Errorf("new processor: nil llm provider")
	}
	if cache == nil {
		return nil, fmt.Errorf("new processor: nil summary cache")
	}

	processor := &Processor{
		content:  content,
		replies:  replies,
		provider: provider,
		cache:    cache,
		logger:   slog.Default(),

		maxSubtitleChars: defaultMaxSubtitleChars,
		replyPrefix:      defaultReplyPrefix,
		maxReplyChars:    defaultMaxReplyChars,
	}
	for _, option := range options {
		option(processor)
	}

	return processor, nil
}

// Process handles one mention end to end and reports whether a reply was
// accepted by the platform. Failures are logged, never propagated: the
// monitor marks the mention as handled either way.
func (p *Processor) Process(ctx context.Context, mention bilisum.Mention) bool {
	p.logger.Info("processing mention",
		"sender", mention.SenderName,
		"bvid", mention.BVID,
		"content", truncateRunes(mention.Content, 50),
	)

	ok, err := p.run(ctx, mention)
	if err != nil {
		p.logger.Error("mention processing failed",
			"bvid", mention.BVID,
			"error", err,
		)
		return false
	}

	return ok
}

func (p *Processor) run(ctx context.Context, mention bilisum.Mention) (bool, error) {
	if !p.content.IsFollowing(ctx, mention.SenderUID) {
		p.logger.Info("sender not following, sending onboarding reply",
			"sender", mention.SenderName,
			"uid", mention.SenderUID,
		)
		return p.sendReply(ctx, mention, notFollowingMessage)
	}

	video, err := p.content.FetchVideo(ctx, mention.BVID)
	if err != nil {
		return false, fmt.Errorf("fetch video %s: %w", mention.BVID, err)
	}

	userText := extractUserText(mention.Content)
	summaryIntent := isSummaryRequest(userText)

	if summaryIntent {
		if cached, found := p.cache.Get(mention.BVID); found {
			p.logger.Info("using cached summary", "bvid", mention.BVID)
			return p.sendReply(ctx, mention, p.formatReply(cached))
		}
	}

	subtitleText := ""
	subtitle, err := p.content.FetchSubtitle(ctx, mention.BVID, video.CID)
	if err != nil {
		return false, fmt.Errorf("fetch subtitle %s: %w", mention.BVID, err)
	}
	if subtitle != nil {
		subtitleText = truncateRunes(subtitle.Body, p.maxSubtitleChars)
	}

	videoContext := bilisum.VideoContext{
		BVID:         mention.BVID,
		Title:        video.Title,
		Description:  truncateRunes(video.Description, maxDescriptionChars),
		OwnerName:    video.OwnerName,
		DurationText: bilisum.FormatDuration(video.DurationSeconds),
		Subtitle:     subtitleText,
	}
	if !summaryIntent {
		videoContext.UserQuestion = userText
	}

	var generated string
	if summaryIntent {
		generated, err = p.provider.Summarize(ctx, videoContext.Prompt())
		if err != nil {
			return false, fmt.Errorf("summarize %s: %w", mention.BVID, err)
		}
		p.cache.Put(mention.BVID, generated)
	} else {
		generated, err = p.provider.Answer(ctx, videoContext.Prompt(), userText)
		if err != nil {
			return false, fmt.Errorf("answer %s: %w", mention.BVID, err)
		}
	}

	return p.sendReply(ctx, mention, p.formatReply(generated))
}

func (p *Processor) sendReply(ctx context.Context, mention bilisum.Mention, text string) (bool, error) {
	root, parent := mention.ReplyThread()

	receipt, err := p.replies.SendReply(ctx, mention.OID, root, parent, text)
	if err != nil {
		return false, fmt.Errorf("send reply %s: %w", mention.BVID, err)
	}
	if !receipt.Success {
		p.logger.Warn("reply rejected",
			"bvid", mention.BVID,
			"message", receipt.Message,
		)
		return false, nil
	}

	p.logger.Info("reply posted", "bvid", mention.BVID, "rpid", receipt.ReplyID)

	return true, nil
}

// formatReply prepends the configured prefix and enforces the reply length
// cap: an oversized reply is cut so that, ellipsis marker included, it is
// exactly maxReplyChars runes long.
func (p *Processor) formatReply(generated string) string {
	reply := p.replyPrefix + "\n" + generated
	runes := []rune(reply)
	if len(runes) <= p.maxReplyChars {
		return reply
	}

	return string(runes[:p.maxReplyChars-len([]rune(ellipsisMarker))]) + ellipsisMarker
}

// extractUserText strips the leading "@<name>" token from the comment and
// trims surrounding whitespace, leaving the user's actual request.
func extractUserText(content string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(content, ""))
}

// isSummaryRequest classifies intent: empty text or any summary keyword
// means the default summary is wanted; anything else is a question.
func isSummaryRequest(text string) bool {
	if text == "" {
		return true
	}
	for _, keyword := range summaryKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}

func truncateRunes(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	return string(runes[:maxRunes])
}
