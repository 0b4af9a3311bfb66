package domain

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// JSONMap stores a key-value payload inside a JSON column.
type JSONMap map[string]any

// Value implements driver.Valuer so JSONMap can be stored as JSON.
func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}

	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Scan implements sql.Scanner to hydrate the JSONMap from the database.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return m.unmarshal(v)
	case string:
		return m.unmarshal([]byte(v))
	default:
		return fmt.Errorf("domain.JSONMap: unsupported type %T", value)
	}
}

func (m *JSONMap) unmarshal(data []byte) error {
	if len(data) == 0 {
		*m = nil
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*m = parsed
	return nil
}
