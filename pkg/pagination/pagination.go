package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var errMalformedCursor = errors.New("malformed cursor")

// Params are the limit and opaque cursor taken from a list request.
type Params struct {
	Limit  int
	Cursor string
}

// PageSize clamps Limit into [1, MaxLimit], defaulting to DefaultLimit.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// FetchSize is one past PageSize so a query can tell whether another page exists.
func (p Params) FetchSize() int {
	return p.PageSize() + 1
}

// Split cuts rows fetched with FetchSize down to size and reports whether
// more rows follow.
func Split[T any](rows []T, size int) ([]T, bool) {
	if len(rows) <= size {
		return rows, false
	}
	return rows[:size], true
}

// Cursor marks the last row of a page in ledger order
// (created_at, deposit_id, level).
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	DepositID int64     `json:"d"`
	Level     int       `json:"l"`
}

// EncodeCursor renders c as URL-safe base64 JSON.
func EncodeCursor(c Cursor) string {
	c.CreatedAt = c.CreatedAt.UTC()
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor returns nil for a blank value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedCursor, err)
	}
	if c.CreatedAt.IsZero() || c.DepositID <= 0 || c.Level < 1 {
		return nil, fmt.Errorf("%w: incomplete position", errMalformedCursor)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
