package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringList is a []string persisted as a JSON text column, used for the
// processing log's truncated mime/name lists (§3, max 10 entries).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for StringList")
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Truncate10 caps a list to the first 10 elements (§3 "mime list truncated
// to 10, name list truncated to 10").
func Truncate10(in []string) StringList {
	if len(in) <= 10 {
		return StringList(in)
	}
	return StringList(in[:10])
}
