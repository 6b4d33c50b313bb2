package feed_test

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/fanwave/fanwave/feed"
)

var samplePayload = json.RawMessage(`{"posts":[
	{"id":"p1","title":"Comeback show","body":"Details inside","author":{"name":"Yuna"},"publishedAt":1721911000000,"url":"https://example.com/p1"},
	{"id":42,"body":"Untitled post\nsecond line","communityUser":{"profileNickname":"fanA"},"createdAt":"2026-07-25T12:00:00Z"}
]}`)

func TestParsePostsEnvelope(t *testing.T) {
	posts, err := feed.ParsePosts(samplePayload)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	require.Equal(t, "p1", posts[0].ID)
	require.Equal(t, "Comeback show", posts[0].Title)
	require.Equal(t, "Yuna", posts[0].Author)
	require.Equal(t, time.UnixMilli(1721911000000).UTC(), posts[0].PublishedAt)

	// Numeric ids and title fallback to the body's first line.
	require.Equal(t, "42", posts[1].ID)
	require.Equal(t, "Untitled post", posts[1].Title)
	require.Equal(t, "fanA", posts[1].Author)
	require.Equal(t, 2026, posts[1].PublishedAt.Year())
}

func TestParsePostsBareArray(t *testing.T) {
	posts, err := feed.ParsePosts(json.RawMessage(`[{"id":"p9","title":"bare"}]`))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "p9", posts[0].ID)
}

func TestParsePostsRejectsNonPostPayload(t *testing.T) {
	_, err := feed.ParsePosts(json.RawMessage(`{"communities":[]}`))
	require.NoError(t, err) // envelope without posts is just empty
	_, err = feed.ParsePosts(json.RawMessage(`"scalar"`))
	require.Error(t, err)
}

func TestRSSRendersItems(t *testing.T) {
	posts, err := feed.ParsePosts(samplePayload)
	require.NoError(t, err)

	rss, err := feed.RSS("c1", posts, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, rss, "<rss")
	require.Contains(t, rss, "Comeback show")
	require.Contains(t, rss, "https://example.com/p1")
	require.Contains(t, rss, "community c1")
}

func TestICalRendersEventsAndSkipsUndatedPosts(t *testing.T) {
	posts := []feed.Post{
		{ID: "p1", Title: "Dated", PublishedAt: time.Date(2026, 7, 25, 12, 0, 0, 0, time.UTC)},
		{ID: "p2", Title: "Undated"},
	}

	ics := feed.ICal("c1", posts, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.Contains(t, ics, "BEGIN:VCALENDAR")
	require.Contains(t, ics, "BEGIN:VEVENT")
	require.Contains(t, ics, "Dated")
	require.NotContains(t, ics, "Undated")
}

func TestWidgetEscapesHTML(t *testing.T) {
	posts := []feed.Post{{ID: "p1", Title: "<script>alert(1)</script>", Body: "safe"}}

	html, err := feed.Widget("c1", posts)
	require.NoError(t, err)
	require.NotContains(t, html, "<script>alert(1)</script>")
	require.Contains(t, html, "&lt;script&gt;")
}

func TestWidgetEmptyState(t *testing.T) {
	html, err := feed.Widget("c1", nil)
	require.NoError(t, err)
	require.Contains(t, html, "No posts.")
}

func TestExportJSONWrapsRawPayload(t *testing.T) {
	out, err := feed.ExportJSON("c1", json.RawMessage(`{"posts":[]}`), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var export feed.Export
	require.NoError(t, json.Unmarshal(out, &export))
	require.Equal(t, "c1", export.CommunityID)
	require.JSONEq(t, `{"posts":[]}`, string(export.Posts))
	require.Equal(t, 2026, export.ExportedAt.Year())
}
