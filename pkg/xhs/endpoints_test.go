package xhs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHomeFeedPath(t *testing.T) {
	tests := []struct {
		name      string
		category  string
		cursor    string
		num       int
		wantPath  string
		wantQuery string
	}{
		{
			name:      "first page uses default size",
			category:  "homefeed_recommend",
			wantPath:  "/api/feed/homefeed/homefeed_recommend",
			wantQuery: "num=20",
		},
		{
			name:      "next page passes the cursor verbatim",
			category:  "homefeed.food_v3",
			cursor:    "eyJwIjoxfQ==",
			num:       10,
			wantPath:  "/api/feed/homefeed/homefeed.food_v3",
			wantQuery: "cursor=eyJwIjoxfQ%3D%3D&num=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, q := HomeFeedPath(tt.category, tt.cursor, tt.num)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantQuery, q.Encode())
			if tt.cursor != "" {
				assert.Equal(t, tt.cursor, q.Get("cursor"))
			}
		})
	}
}

func TestSearchNotesQuery(t *testing.T) {
	q := SearchNotesQuery(SearchParams{Keyword: "咖啡"})
	assert.Equal(t, "keyword=%E5%92%96%E5%95%A1", q.Encode())

	q = SearchNotesQuery(SearchParams{Keyword: "tea", Page: 3, Sort: SortMostLiked, NoteType: SearchNormal})
	assert.Equal(t, "keyword=tea&note_type=normal&page=3&sort=popularity_descending", q.Encode())
}

func TestNotificationPath(t *testing.T) {
	path, q := NotificationPath(NotificationLikes, "")
	assert.Equal(t, "/api/notification/likes", path)
	assert.Empty(t, q)
}

func TestFeedCategories(t *testing.T) {
	assert.Len(t, FeedCategories, 11)
	assert.Equal(t, "homefeed_recommend", FeedCategories[0].Key)
	assert.True(t, IsFeedCategory("homefeed.fitness_v3"))
	assert.False(t, IsFeedCategory("homefeed.fitness"))
}

func TestExtractNoteID(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"explore link", "https://www.xiaohongshu.com/explore/64f1a2b3c4d5e6f7a8b9c0d1?xsec_token=abc", "64f1a2b3c4d5e6f7a8b9c0d1", true},
		{"discovery link", "http://xiaohongshu.com/discovery/item/65aa00bb11cc22dd33ee44ff", "65aa00bb11cc22dd33ee44ff", true},
		{"short link", "看看这个 http://xhslink.com/AbC123，复制打开", "AbC123", true},
		{"bare id", "  64f1a2b3c4d5e6f7a8b9c0d1 ", "64f1a2b3c4d5e6f7a8b9c0d1", true},
		{"bare id wrong length", "64f1a2b3", "", false},
		{"other site", "https://example.com/explore/123", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractNoteID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
