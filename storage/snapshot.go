package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

const snapshotContentType = "application/json"

// SnapshotPublisher writes the read-only JSON rendering of a tournament's
// bracket to object storage so static pages can serve it without the API.
type SnapshotPublisher struct {
	uploader FileUploader
	prefix   string
}

func NewSnapshotPublisher(uploader FileUploader, prefix string) *SnapshotPublisher {
	if prefix == "" {
		prefix = "brackets"
	}
	return &SnapshotPublisher{uploader: uploader, prefix: prefix}
}

func (p *SnapshotPublisher) Key(tournamentID int) string {
	return fmt.Sprintf("%s/%d.json", p.prefix, tournamentID)
}

// Publish uploads v under the tournament's key, replacing the previous
// snapshot, and returns the public URL when one is configured.
func (p *SnapshotPublisher) Publish(ctx context.Context, tournamentID int, v interface{}) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode bracket snapshot for tournament %d: %w", tournamentID, err)
	}
	res, err := p.uploader.Upload(ctx, p.Key(tournamentID), snapshotContentType, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return res.Location, nil
}
