package xhs

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Response is the generic envelope wrapping most backend payloads
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
}

// Succeeded reports whether the envelope code signals success.
// The backend uses 0, some handlers answer with the HTTP-style 200.
func (r *Response[T]) Succeeded() bool {
	return r.Code == 0 || r.Code == 200
}

// Count is a counter the backend sends either as a number or as display
// text such as "1.2万". It keeps whatever text was sent.
type Count string

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n.String())
	return nil
}

// Int returns the numeric value, ok is false for display text
func (c Count) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(c), 10, 64)
	return n, err == nil
}

// UserInfo is a platform user profile
type UserInfo struct {
	UserID       string `json:"user_id"`
	Nickname     string `json:"nickname"`
	Avatar       string `json:"avatar"`
	Desc         string `json:"desc,omitempty"`
	FansCount    Count  `json:"fans_count,omitempty"`
	FollowsCount Count  `json:"follows_count,omitempty"`
	NotesCount   Count  `json:"notes_count,omitempty"`
}

// NoteAuthor is the short user record embedded in notes and comments
type NoteAuthor struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// NoteType distinguishes image notes from video notes
type NoteType string

const (
	NoteTypeNormal NoteType = "normal"
	NoteTypeVideo  NoteType = "video"
)

// NoteItem is a single note as returned by feed, search and detail
type NoteItem struct {
	NoteID         string     `json:"note_id"`
	Title          string     `json:"title"`
	Desc           string     `json:"desc,omitempty"`
	Type           NoteType   `json:"type"`
	Cover          string     `json:"cover"`
	LikedCount     Count      `json:"liked_count"`
	CollectedCount Count      `json:"collected_count,omitempty"`
	CommentCount   Count      `json:"comment_count,omitempty"`
	User           NoteAuthor `json:"user"`
	Images         []string   `json:"images,omitempty"`
	VideoURL       string     `json:"video_url,omitempty"`
	CreateTime     int64      `json:"create_time,omitempty"`
}

// IsVideo reports whether the note carries a video
func (n *NoteItem) IsVideo() bool {
	return n.Type == NoteTypeVideo
}

// Comment is a note comment with optional replies
type Comment struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	User        NoteAuthor `json:"user"`
	LikeCount   Count      `json:"like_count"`
	CreateTime  int64      `json:"create_time"`
	SubComments []Comment  `json:"sub_comments,omitempty"`
}

// NotificationType is the kind of a notification entry
type NotificationType string

const (
	NotificationMention NotificationType = "mention"
	NotificationLike    NotificationType = "like"
	NotificationFollow  NotificationType = "follow"
	NotificationComment NotificationType = "comment"
)

// Notification is one entry of a notification feed
type Notification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	Content    string           `json:"content"`
	User       UserInfo         `json:"user"`
	Note       *NoteItem        `json:"note,omitempty"`
	CreateTime int64            `json:"create_time"`
}

// FeedPage is one page of the home feed
type FeedPage struct {
	Items   []NoteItem `json:"items"`
	Cursor  string     `json:"cursor"`
	HasMore bool       `json:"has_more"`
}

// CommentPage is one page of note comments
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Cursor   string    `json:"cursor"`
	HasMore  bool      `json:"has_more"`
}

// NotificationPage is one page of a notification feed
type NotificationPage struct {
	Items   []Notification `json:"items"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

// SearchResult is one page of note search results
type SearchResult struct {
	Items   []NoteItem `json:"items"`
	HasMore bool       `json:"has_more"`
	Cursor  string     `json:"cursor,omitempty"`
}

// UserSearchResult is one page of user search results
type UserSearchResult struct {
	Items   []UserInfo `json:"items"`
	HasMore bool       `json:"has_more"`
}

// VideoURL is one rendition of a note video
type VideoURL struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type videoURLs struct {
	URLs []VideoURL `json:"urls"`
}

type imageURLs struct {
	URLs []string `json:"urls"`
}

// GuestInit is the answer to guest credential initialisation
type GuestInit struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// QRCode is a freshly issued QR login session
type QRCode struct {
	Success bool   `json:"success"`
	QRURL   string `json:"qr_url"`
	QRID    string `json:"qr_id"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LoginInfo identifies the user who confirmed a QR login
type LoginInfo struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar,omitempty"`
}

// QRStatus is one poll answer for a QR session. CodeStatus is kept raw
// because backends send it as a number, a numeric string or a word.
type QRStatus struct {
	Success    bool            `json:"success"`
	CodeStatus json.RawMessage `json:"code_status,omitempty"`
	Status     string          `json:"status,omitempty"`
	LoginInfo  *LoginInfo      `json:"login_info,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Nickname   string          `json:"nickname,omitempty"`
	Error      string          `json:"error,omitempty"`
}
