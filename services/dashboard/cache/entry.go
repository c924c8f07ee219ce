package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
)

var keyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// entry is the envelope persisted for every cache key
type entry struct {
	Key       string          `json:"key"`
	WrittenAt time.Time       `json:"written_at"`
	Payload   json.RawMessage `json:"payload"`
}

func checkKey(key string) error {
	if !keyRegex.MatchString(key) {
		return fmt.Errorf("%w '%s'", errInvalidKey, key)
	}

	return nil
}

func encodeEntry(key string, payload []byte, writtenAt time.Time) ([]byte, error) {
	if !isUsablePayload(payload) {
		return nil, errInvalidPayload
	}

	return json.Marshal(entry{
		Key:       key,
		WrittenAt: writtenAt,
		Payload:   payload,
	})
}

func decodeEntry(key string, data []byte) (*entry, error) {
	e := &entry{}
	err := json.Unmarshal(data, e)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrCacheCorruption, err.Error())
	}
	if e.Key != key {
		return nil, fmt.Errorf("%w: entry belongs to key '%s'", common.ErrCacheCorruption, e.Key)
	}
	if e.WrittenAt.IsZero() {
		return nil, fmt.Errorf("%w: missing write timestamp", common.ErrCacheCorruption)
	}
	if !isUsablePayload(e.Payload) {
		return nil, fmt.Errorf("%w: missing payload", common.ErrCacheCorruption)
	}

	return e, nil
}

func isUsablePayload(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}

	return json.Valid(trimmed)
}
