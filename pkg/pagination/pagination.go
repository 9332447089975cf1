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
	DefaultLimit = 12
	MaxLimit     = 100

	cursorVersion = 1
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the last document of a page in createdAt desc, id desc
// order. Its encoded form is opaque to clients.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type wireCursor struct {
	V  int    `json:"v"`
	At int64  `json:"at"`
	ID string `json:"id"`
}

// Clamp applies the default and maximum page sizes.
func Clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func (c Cursor) Encode() string {
	raw, _ := json.Marshal(wireCursor{V: cursorVersion, At: c.CreatedAt.UnixNano(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// StartAfter returns the order-by values a query resumes after.
func (c Cursor) StartAfter() []any {
	return []any{c.CreatedAt, c.ID}
}

// Decode parses an encoded cursor. A blank value yields nil.
func Decode(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var w wireCursor
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	switch {
	case w.V != cursorVersion:
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCursor, w.V)
	case w.ID == "":
		return nil, fmt.Errorf("%w: missing id", ErrInvalidCursor)
	}
	return &Cursor{CreatedAt: time.Unix(0, w.At).UTC(), ID: w.ID}, nil
}
