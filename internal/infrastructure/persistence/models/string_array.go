package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray stores a list of strings as a JSON document. Bubble list
// fields (attachment URLs, SEDA document URLs) land in these columns.
type StringArray []string

// GormDataType tells GORM which column type to use
func (StringArray) GormDataType() string {
	return "jsonb"
}

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string array: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for string array", value)
	}

	if len(data) == 0 {
		*a = nil
		return nil
	}
	if err := json.Unmarshal(data, a); err != nil {
		return fmt.Errorf("failed to unmarshal string array: %w", err)
	}
	return nil
}
