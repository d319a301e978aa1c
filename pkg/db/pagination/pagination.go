package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

// Pagination is the page_token/page_size pair bound from list queries.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Size is PageSize held within [1, MaxPageSize], DefaultPageSize when unset.
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor is the (created_at, id) key of the last row on a page. Lists are
// ordered newest first, so the next page holds rows strictly before it.
type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type wireCursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// Encode renders the cursor as an opaque URL-safe page token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(wireCursor{
		ID:        c.ID.String(),
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor returns nil for an empty token and ErrInvalidPageToken for
// anything Encode could not have produced.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	var wire wireCursor
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(wire.ID)
	if err != nil || id <= 0 {
		return nil, ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, wire.CreatedAt)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	return &Cursor{ID: id, CreatedAt: createdAt}, nil
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Page takes rows fetched with one extra beyond size, drops the extra and any
// nil rows, and reports the token for the following page.
func Page[T any](rows []*T, size int, cursorOf func(*T) Cursor) ([]T, PageInfo) {
	var info PageInfo
	if len(rows) > size {
		rows = rows[:size]
		info.HasMore = true
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			items = append(items, *row)
		}
	}
	if info.HasMore && len(rows) > 0 && rows[len(rows)-1] != nil {
		info.NextPageToken = cursorOf(rows[len(rows)-1]).Encode()
	}
	return items, info
}
