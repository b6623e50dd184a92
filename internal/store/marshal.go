package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/nnvts/internal/device"
)

// marshalList converts a list to JSON TEXT for storage. A nil list is
// stored as [] so reads never see null.
func marshalList[T any](what string, list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(list); err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalList parses JSON TEXT written by marshalList. An empty list
// comes back nil, matching the omitempty fields it was written from.
func unmarshalList[T any](what, data string) ([]T, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var list []T
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return list, nil
}

// timingValue stores one timing field. Unknown timing, and values SQLite
// cannot hold, are NULL.
func timingValue(v uint64) sql.NullInt64 {
	if v == device.TimingUnknown || v > math.MaxInt64 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func timingFrom(v sql.NullInt64) uint64 {
	if !v.Valid {
		return device.TimingUnknown
	}
	return uint64(v.Int64)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
