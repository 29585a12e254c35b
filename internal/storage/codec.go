package storage

import (
	"encoding/json"

	"github.com/hoopstat/scorekeeper/internal/model"
)

// EncodeSnapshot serializes a snapshot for storage. Entries are stored as
// bytes so callers never share memory with the cache.
func EncodeSnapshot(snapshot *model.SessionSnapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

// DecodeSnapshot is the inverse of EncodeSnapshot
func DecodeSnapshot(data []byte) (*model.SessionSnapshot, error) {
	var snapshot model.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
