package bilisum

import "context"

// EventSource yields recent mention notifications on demand.
type EventSource interface {
	// FetchMentions returns the most recent mentions, newest first.
	//
	// The returned batch always starts at the newest notification; callers
	// are responsible for filtering out mentions they have already seen.
	FetchMentions(ctx context.Context) ([]Mention, error)
}

// ContentService fetches video content and relation state from the platform.
//
// Transient transport failures are retried inside implementations with
// bounded attempts; callers never retry.
type ContentService interface {
	// FetchVideo returns the metadata of one video.
	FetchVideo(ctx context.Context, bvid string) (VideoInfo, error)
	// FetchSubtitle returns the subtitle text of one video page.
	//
	// When the video has no usable subtitle, subtitle is nil and err is nil.
	FetchSubtitle(ctx context.Context, bvid string, cid int64) (*Subtitle, error)
	// IsFollowing reports whether the given user follows the bot account.
	//
	// Implementations must not fail: any inconclusive or erroring check
	// reports true so a transient platform error never locks out a
	// legitimate user.
	IsFollowing(ctx context.Context, userUID int64) bool
}

// ReplyService posts comment replies back into the source feed.
type ReplyService interface {
	// SendReply posts one reply into the comment area oid, threaded under
	// the given root and parent comment ids.
	SendReply(ctx context.Context, oid, root, parent int64, text string) (ReplyReceipt, error)
}

// LLMProvider generates reply text from an assembled video context.
//
// Implementations retry transient backend failures themselves with bounded
// attempts and exponential backoff.
type LLMProvider interface {
	// Summarize generates the default summary for a video context prompt.
	Summarize(ctx context.Context, videoContext string) (string, error)
	// Answer generates an answer to the user's question about the video.
	Answer(ctx context.Context, videoContext, question string) (string, error)
}

// LLMProviderRegistry resolves configured generator backends by profile key.
type LLMProviderRegistry interface {
	// Resolve returns the provider registered under the given key.
	Resolve(provider string) (LLMProvider, error)
}

// SecretProvider retrieves credentials from a secret store.
type SecretProvider interface {
	// GetSecret returns the value stored under name.
	GetSecret(ctx context.Context, name string) (string, error)
}
