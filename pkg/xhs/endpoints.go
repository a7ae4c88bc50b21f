package xhs

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	GuestInitEndpoint       = "/api/auth/guest-init"
	QRCodeCreateEndpoint    = "/api/auth/qrcode/create"
	QRCodeStatusEndpoint    = "/api/auth/qrcode/status"
	CurrentUserEndpoint     = "/api/user/me"
	HomeFeedEndpoint        = "/api/feed/homefeed/"
	NoteDetailEndpoint      = "/api/note/detail"
	NoteCommentsEndpoint    = "/api/note/page"
	NoteVideoEndpoint       = "/api/note/video"
	NoteImagesEndpoint      = "/api/note/images"
	MediaDownloadEndpoint   = "/api/media/download"
	TrendingEndpoint        = "/api/search/trending"
	SearchNotesEndpoint     = "/api/search/notes"
	SearchUsersEndpoint     = "/api/search/usersearch"
	SearchRecommendEndpoint = "/api/search/recommend"
	NotificationEndpoint    = "/api/notification/"

	// DefaultPageSize is the feed page size when none is given
	DefaultPageSize = 20
)

// Category is a home feed channel
type Category struct {
	Key   string
	Label string
}

// FeedCategories lists the home feed channels in display order
var FeedCategories = []Category{
	{Key: "homefeed_recommend", Label: "推荐"},
	{Key: "homefeed.fashion_v3", Label: "穿搭"},
	{Key: "homefeed.food_v3", Label: "美食"},
	{Key: "homefeed.cosmetics_v3", Label: "彩妆"},
	{Key: "homefeed.movie_and_tv_v3", Label: "影视"},
	{Key: "homefeed.career_v3", Label: "职场"},
	{Key: "homefeed.love_v3", Label: "情感"},
	{Key: "homefeed.household_product_v3", Label: "家居"},
	{Key: "homefeed.gaming_v3", Label: "游戏"},
	{Key: "homefeed.travel_v3", Label: "旅行"},
	{Key: "homefeed.fitness_v3", Label: "健身"},
}

// IsFeedCategory reports whether key names a known feed channel
func IsFeedCategory(key string) bool {
	for _, c := range FeedCategories {
		if c.Key == key {
			return true
		}
	}
	return false
}

// SortOrder orders note search results
type SortOrder string

const (
	SortGeneral   SortOrder = "general"
	SortNewest    SortOrder = "time_descending"
	SortMostLiked SortOrder = "popularity_descending"
)

// SearchNoteType filters note search results
type SearchNoteType string

const (
	SearchAll    SearchNoteType = "all"
	SearchVideo  SearchNoteType = "video"
	SearchNormal SearchNoteType = "normal"
)

// NotificationKind selects a notification feed
type NotificationKind string

const (
	NotificationMentions    NotificationKind = "mentions"
	NotificationConnections NotificationKind = "connections"
	NotificationLikes       NotificationKind = "likes"
)

// setIf adds key only when value is non-empty. Absent parameters are left
// out of the query entirely rather than sent blank.
func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// HomeFeedPath builds the feed path and query for one page
func HomeFeedPath(category, cursor string, num int) (string, url.Values) {
	if num <= 0 {
		num = DefaultPageSize
	}
	q := url.Values{}
	setIf(q, "cursor", cursor)
	q.Set("num", strconv.Itoa(num))
	return HomeFeedEndpoint + category, q
}

// NoteQuery builds the query shared by the note endpoints
func NoteQuery(noteID string) url.Values {
	q := url.Values{}
	q.Set("note_id", noteID)
	return q
}

// NoteCommentsQuery builds the comment page query
func NoteCommentsQuery(noteID, cursor string) url.Values {
	q := NoteQuery(noteID)
	setIf(q, "cursor", cursor)
	return q
}

// SearchNotesQuery builds the note search query
func SearchNotesQuery(p SearchParams) url.Values {
	q := url.Values{}
	q.Set("keyword", p.Keyword)
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	setIf(q, "sort", string(p.Sort))
	setIf(q, "note_type", string(p.NoteType))
	return q
}

// NotificationPath builds the path and query for a notification feed
func NotificationPath(kind NotificationKind, cursor string) (string, url.Values) {
	q := url.Values{}
	setIf(q, "cursor", cursor)
	return NotificationEndpoint + string(kind), q
}

// MediaDownloadQuery builds the query for the backend media download proxy
func MediaDownloadQuery(mediaURL string) url.Values {
	q := url.Values{}
	q.Set("url", mediaURL)
	return q
}

var noteIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`xiaohongshu\.com/explore/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`xiaohongshu\.com/discovery/item/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`xhslink\.com/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`^([a-zA-Z0-9]{24})$`),
}

// ExtractNoteID pulls a note id out of a share link or returns a bare id as is.
// Short xhslink.com codes are returned verbatim; the backend resolves them.
func ExtractNoteID(input string) (string, bool) {
	input = strings.TrimSpace(input)
	for _, re := range noteIDPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1], true
		}
	}
	return "", false
}
