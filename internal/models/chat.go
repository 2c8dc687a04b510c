package models

import "time"

// TitleLimit is the number of characters kept when a session title or
// preview is derived from a message.
const TitleLimit = 50

type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one input/response exchange within a session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Input     string    `json:"input"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// Truncate shortens s to TitleLimit characters followed by "..." when it is
// longer than that.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= TitleLimit {
		return s
	}
	return string(runes[:TitleLimit]) + "..."
}
