package feed

import (
	"bytes"
	"fmt"
	"html/template"
)

var widgetTemplate = template.Must(template.New("widget").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Community {{.CommunityID}}</title>
<style>
.fanwave-widget { font-family: sans-serif; max-width: 480px; }
.fanwave-widget article { border-bottom: 1px solid #ddd; padding: 8px 0; }
.fanwave-widget .author { color: #666; font-size: 0.85em; }
</style>
</head>
<body>
<div class="fanwave-widget">
{{range .Posts}}<article>
<h3>{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</h3>
{{if .Author}}<p class="author">{{.Author}}{{if not .PublishedAt.IsZero}} &middot; {{.PublishedAt.Format "2006-01-02 15:04"}}{{end}}</p>{{end}}
<p>{{.Body}}</p>
</article>
{{else}}<p>No posts.</p>
{{end}}</div>
</body>
</html>
`))

type widgetData struct {
	CommunityID string
	Posts       []Post
}

// Widget renders a community's posts as an embeddable HTML snippet.
func Widget(communityID string, posts []Post) (string, error) {
	var buf bytes.Buffer
	err := widgetTemplate.Execute(&buf, widgetData{CommunityID: communityID, Posts: posts})
	if err != nil {
		return "", fmt.Errorf("rendering widget: %w", err)
	}
	return buf.String(), nil
}
