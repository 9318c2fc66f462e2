package store

import (
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/task"
)

// metaEntry holds the UI-only fields the native scheduler never needs:
// display title, notification routing and the creation timestamp.
type metaEntry struct {
	Title         string             `json:"title,omitempty"`
	Notifications task.Notifications `json:"notifications"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// readMeta loads the sidecar map, degrading to empty on absence or
// corruption just like the scope collections do. Like putMeta and
// deleteMeta below, it runs only under the caller's store lock.
func (s *Store) readMeta() map[string]metaEntry {
	data, err := os.ReadFile(s.layout.Metadata())
	if err != nil {
		return map[string]metaEntry{}
	}
	var m map[string]metaEntry
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("metadata file unreadable, treating as empty", zap.Error(err))
		return map[string]metaEntry{}
	}
	if m == nil {
		m = map[string]metaEntry{}
	}
	return m
}

func (s *Store) putMeta(id string, entry metaEntry) error {
	m := s.readMeta()
	m[id] = entry
	return writeJSONAtomic(s.layout.Metadata(), m)
}

func (s *Store) deleteMeta(id string) error {
	m := s.readMeta()
	if _, ok := m[id]; !ok {
		return nil
	}
	delete(m, id)
	return writeJSONAtomic(s.layout.Metadata(), m)
}
