package bilisum

import (
	"fmt"
	"time"
)

// Mention is one inbound "@" notification referencing the bot account.
//
// Mentions are produced by the event source and are immutable afterward.
// ID is the platform-assigned notification identifier and is the only field
// used for deduplication.
type Mention struct {
	// ID uniquely identifies the notification.
	ID int64
	// SourceID is the rpid of the comment that mentioned the bot.
	SourceID int64
	// RootID is the rpid of the thread root comment. Zero means the source
	// comment is itself the root.
	RootID int64
	// SenderUID identifies the user who wrote the comment.
	SenderUID int64
	// SenderName is the sender's display name.
	SenderName string
	// BVID identifies the video the comment was posted under.
	BVID string
	// OID is the comment area identifier (normally the video aid).
	OID int64
	// Content is the raw comment text, usually starting with "@<botname>".
	Content string
	// Timestamp is the platform-assigned notification time, unix seconds.
	Timestamp int64
}

// Validate checks that mandatory mention fields are present.
func (m Mention) Validate() error {
	if m.ID == 0 {
		return fmt.Errorf("validate mention: missing id")
	}
	if m.SourceID == 0 {
		return fmt.Errorf("validate mention %d: missing source id", m.ID)
	}
	if m.BVID == "" {
		return fmt.Errorf("validate mention %d: missing bvid", m.ID)
	}
	if m.OID == 0 {
		return fmt.Errorf("validate mention %d: missing oid", m.ID)
	}

	return nil
}

// ReplyThread derives the root and parent comment ids for a reply to this
// mention. A zero RootID means the mention happened on a top-level comment,
// so the reply roots and parents at the source comment itself.
func (m Mention) ReplyThread() (root int64, parent int64) {
	if m.RootID == 0 {
		return m.SourceID, m.SourceID
	}

	return m.RootID, m.SourceID
}

// OccurredAt returns the mention timestamp as wall-clock time.
func (m Mention) OccurredAt() time.Time {
	return time.Unix(m.Timestamp, 0)
}
