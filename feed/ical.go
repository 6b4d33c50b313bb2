package feed

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ICal renders a community's posts as an iCalendar document, one event per
// post at its publication time. Posts without a timestamp are skipped.
func ICal(communityID string, posts []Post, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//FanWave//fanwave//EN")
	cal.SetName(fmt.Sprintf("FanWave: community %s", communityID))

	for _, p := range posts {
		if p.PublishedAt.IsZero() {
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("%s@fanwave", p.ID))
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetStartAt(p.PublishedAt)
		ev.SetEndAt(p.PublishedAt.Add(time.Hour))
		ev.SetSummary(p.Title)
		if p.Body != "" {
			ev.SetDescription(p.Body)
		}
		if p.URL != "" {
			ev.SetURL(p.URL)
		}
	}

	return cal.Serialize()
}
