package bilibili

import (
	"fmt"
	"regexp"
	"strings"

	"bilisum/pkg/bilisum"
)

// bvidPattern extracts the public video id from mention item URIs.
var bvidPattern = regexp.MustCompile(`BV\w{10}`)

// decodeMentionItem maps one raw feed item onto a domain mention.
//
// Items without an extractable bvid (mentions on dynamics, articles and other
// non-video surfaces) are not processable and yield an error; the caller
// skips them.
func decodeMentionItem(item atItem) (bilisum.Mention, error) {
	bvid := extractBVID(item.Item.URI)
	if bvid == "" {
		bvid = extractBVID(item.Item.NativeURI)
	}
	if bvid == "" {
		return bilisum.Mention{}, fmt.Errorf("decode mention item %d: no bvid in uri %q", item.ID, item.Item.URI)
	}

	mention := bilisum.Mention{
		ID:         item.ID,
		SourceID:   item.Item.SourceID,
		RootID:     item.Item.RootID,
		SenderUID:  item.User.MID,
		SenderName: item.User.Nickname,
		BVID:       bvid,
		OID:        item.Item.SubjectID,
		Content:    item.Item.SourceContent,
		Timestamp:  item.AtTime,
	}
	if err := mention.Validate(); err != nil {
		return bilisum.Mention{}, fmt.Errorf("decode mention item %d: %w", item.ID, err)
	}

	return mention, nil
}

func extractBVID(uri string) string {
	return bvidPattern.FindString(uri)
}

// decodeVideo maps the view endpoint payload onto domain metadata. The cid
// of the first page wins; single-page videos carry it on the payload itself.
func decodeVideo(data viewData) (bilisum.VideoInfo, error) {
	cid := data.CID
	if len(data.Pages) > 0 {
		cid = data.Pages[0].CID
	}

	video := bilisum.VideoInfo{
		BVID:            data.BVID,
		AID:             data.AID,
		Title:           data.Title,
		Description:     data.Description,
		OwnerName:       data.Owner.Name,
		DurationSeconds: data.Duration,
		CID:             cid,
	}
	if err := video.Validate(); err != nil {
		return bilisum.VideoInfo{}, fmt.Errorf("decode video: %w", err)
	}

	return video, nil
}

// chooseSubtitleTrack picks the preferred subtitle track: the first Chinese
// track (human or AI generated) when present, otherwise the first track.
func chooseSubtitleTrack(tracks []subtitleTrack) (subtitleTrack, bool) {
	if len(tracks) == 0 {
		return subtitleTrack{}, false
	}

	for _, track := range tracks {
		if strings.HasPrefix(track.Lan, "zh") || strings.HasPrefix(track.Lan, "ai-zh") {
			return track, true
		}
	}

	return tracks[0], true
}
