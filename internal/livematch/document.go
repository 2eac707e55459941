package livematch

import (
	"encoding/json"
	"fmt"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/models"
)

// snapshotToDocument flattens a snapshot into the wire document shape.
func snapshotToDocument(snap *models.LiveMatchSnapshot) (docstore.Document, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return doc, nil
}

// SnapshotFromDocument decodes a shared document back into a snapshot.
// Observers use it on every change notification.
func SnapshotFromDocument(doc docstore.Document) (*models.LiveMatchSnapshot, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	var snap models.LiveMatchSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
