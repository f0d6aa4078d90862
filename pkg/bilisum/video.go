package bilisum

import (
	"fmt"
	"strings"
)

// VideoInfo is the basic metadata of one video, fetched fresh per mention.
type VideoInfo struct {
	// BVID is the public video identifier.
	BVID string
	// AID is the numeric video identifier.
	AID int64
	// Title is the video title.
	Title string
	// Description is the uploader-provided description.
	Description string
	// OwnerName is the uploader's display name.
	OwnerName string
	// DurationSeconds is the video length in seconds.
	DurationSeconds int64
	// CID identifies the first page of the video, used for subtitle lookup.
	CID int64
}

// Validate checks that mandatory video fields are present.
func (v VideoInfo) Validate() error {
	if v.BVID == "" {
		return fmt.Errorf("validate video: missing bvid")
	}
	if v.Title == "" {
		return fmt.Errorf("validate video %s: missing title", v.BVID)
	}

	return nil
}

// Subtitle is the flattened closed-caption text of one video.
//
// A video without subtitles simply has no Subtitle; absence is an expected
// outcome, not an error.
type Subtitle struct {
	// Language is the subtitle track language code.
	Language string
	// Body is the subtitle lines joined into plain text.
	Body string
}

// VideoContext is the assembled text context handed to the generator.
type VideoContext struct {
	BVID        string
	Title       string
	Description string
	OwnerName   string
	// DurationText is the video length pre-formatted for the prompt.
	DurationText string
	// Subtitle is the truncated subtitle body, empty when the video has none.
	Subtitle string
	// UserQuestion carries the user's question text for question intent.
	// Empty for summary intent.
	UserQuestion string
}

// Prompt renders the context into the text block sent to the generator.
func (c VideoContext) Prompt() string {
	parts := []string{
		fmt.Sprintf("视频标题：%s", c.Title),
		fmt.Sprintf("UP主：%s", c.OwnerName),
		fmt.Sprintf("时长：%s", c.DurationText),
	}
	if c.Description != "" {
		parts = append(parts, fmt.Sprintf("视频简介：%s", c.Description))
	}
	if c.Subtitle != "" {
		parts = append(parts, fmt.Sprintf("视频字幕内容：\n%s", c.Subtitle))
	} else {
		parts = append(parts, "（该视频没有字幕，请根据标题和简介进行总结）")
	}
	if c.UserQuestion != "" {
		parts = append(parts, fmt.Sprintf("\n用户的问题/要求：%s", c.UserQuestion))
	}

	return strings.Join(parts, "\n")
}

// FormatDuration renders a length in seconds as the 分/秒 text used in prompts.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	return fmt.Sprintf("%d分%d秒", seconds/60, seconds%60)
}

// ReplyReceipt is the outcome of one reply post.
type ReplyReceipt struct {
	// Success reports whether the platform accepted the reply.
	Success bool
	// ReplyID is the rpid assigned to the posted reply when successful.
	ReplyID int64
	// Message carries the platform rejection reason when unsuccessful.
	Message string
}
