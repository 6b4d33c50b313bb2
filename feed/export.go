package feed

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Export wraps the raw posts payload in a small envelope for download. The
// payload itself passes through untouched.
type Export struct {
	CommunityID string          `json:"communityId"`
	ExportedAt  time.Time       `json:"exportedAt"`
	Posts       json.RawMessage `json:"posts"`
}

// ExportJSON renders the export envelope.
func ExportJSON(communityID string, raw json.RawMessage, now time.Time) ([]byte, error) {
	out, err := json.MarshalIndent(Export{
		CommunityID: communityID,
		ExportedAt:  now.UTC(),
		Posts:       raw,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering export: %w", err)
	}
	return out, nil
}
