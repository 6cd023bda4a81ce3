package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// encodeSnapshot is the column format shared by the SQL backends.
func encodeSnapshot(snap models.SessionSnapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode session %s: %w", snap.ID, err)
	}
	return string(data), nil
}

func decodeSnapshot(id, data string) (*models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		slog.Error("Failed to decode session snapshot", "error", err, "session", id)
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &snap, nil
}
