package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor allows stable pagination by created_at/id.
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func encodeCursor(c Cursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token produced by a List call.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	if cursor.ID == "" || cursor.CreatedAt.IsZero() {
		return nil, fmt.Errorf("invalid cursor payload: missing fields")
	}
	return &cursor, nil
}

func nextCursor(n, limit int, createdAt time.Time, id string) (*string, error) {
	if n < limit {
		return nil, nil
	}
	token, err := encodeCursor(Cursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 100:
		return 100
	}
	return limit
}
