package feed

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
)

// RSS renders a community's posts as an RSS 2.0 feed.
func RSS(communityID string, posts []Post, now time.Time) (string, error) {
	f := &feeds.Feed{
		Title:       fmt.Sprintf("FanWave: community %s", communityID),
		Link:        &feeds.Link{Href: "https://github.com/fanwave/fanwave"},
		Description: fmt.Sprintf("Recent posts from community %s", communityID),
		Created:     now,
	}

	for _, p := range posts {
		item := &feeds.Item{
			Id:          p.ID,
			Title:       p.Title,
			Description: p.Body,
			Created:     p.PublishedAt,
		}
		if p.URL != "" {
			item.Link = &feeds.Link{Href: p.URL}
		} else {
			item.Link = &feeds.Link{}
		}
		if p.Author != "" {
			item.Author = &feeds.Author{Name: p.Author}
		}
		f.Items = append(f.Items, item)
	}

	rss, err := f.ToRss()
	if err != nil {
		return "", fmt.Errorf("rendering rss: %w", err)
	}
	return rss, nil
}
