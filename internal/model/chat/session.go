package chat

import "time"

// Session is the persisted conversation document. One session carries the
// full ordered transcript plus the denormalized fields the history list shows.
type Session struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"lastMessage"`
	Time        string    `json:"time"`
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const titleLimit = 30

// DefaultTitle derives a session title from the first message when the user
// never named the conversation: content truncated to 30 runes, ellipsis
// appended when anything was cut.
func DefaultTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}
