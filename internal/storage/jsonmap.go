package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a map[string]any stored as a TEXT JSON blob. It backs the
// UPSDynamicData.Extra bag column (unknown NUT keys land there instead of
// mutating the table shape) and the per-channel event-enable matrices.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("storage: marshal JSONMap: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("storage: JSONMap.Scan: expected []byte or string, got %T", value)
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := make(JSONMap)
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("storage: unmarshal JSONMap: %w", err)
	}
	*m = out
	return nil
}
