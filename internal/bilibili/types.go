package bilibili

import "encoding/json"

// apiEnvelope is the common response wrapper of the Bilibili web API.
// A non-zero Code signals a business-level failure.
type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type atFeedData struct {
	Items []atItem `json:"items"`
}

type atItem struct {
	ID     int64      `json:"id"`
	AtTime int64      `json:"at_time"`
	User   atUser     `json:"user"`
	Item   atItemBody `json:"item"`
}

type atUser struct {
	MID      int64  `json:"mid"`
	Nickname string `json:"nickname"`
}

type atItemBody struct {
	SubjectID     int64  `json:"subject_id"`
	SourceID      int64  `json:"source_id"`
	RootID        int64  `json:"root_id"`
	SourceContent string `json:"source_content"`
	URI           string `json:"uri"`
	NativeURI     string `json:"native_uri"`
}

type viewData struct {
	BVID        string     `json:"bvid"`
	AID         int64      `json:"aid"`
	Title       string     `json:"title"`
	Description string     `json:"desc"`
	Owner       viewOwner  `json:"owner"`
	Duration    int64      `json:"duration"`
	CID         int64      `json:"cid"`
	Pages       []viewPage `json:"pages"`
}

type viewOwner struct {
	Name string `json:"name"`
}

type viewPage struct {
	CID int64 `json:"cid"`
}

type playerData struct {
	Subtitle playerSubtitle `json:"subtitle"`
}

type playerSubtitle struct {
	Subtitles []subtitleTrack `json:"subtitles"`
}

type subtitleTrack struct {
	Lan         string `json:"lan"`
	SubtitleURL string `json:"subtitle_url"`
}

type subtitlePayload struct {
	Body []subtitleLine `json:"body"`
}

type subtitleLine struct {
	Content string `json:"content"`
}

type relationData struct {
	BeRelation relationState `json:"be_relation"`
}

// relationState.Attribute encodes the relation of the queried user toward
// the bot account: 0 none, 1 following, 2 followed, 6 mutual, 128 blocked.
type relationState struct {
	Attribute int `json:"attribute"`
}

type replyAddData struct {
	RPID int64 `json:"rpid"`
}
