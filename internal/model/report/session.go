package report

import "time"

// Session captures a transient per-chat dialogue in progress.
// Cursor always equals the number of answers recorded so far.
type Session struct {
	ID        string            `json:"id"`
	ChatID    int64             `json:"chatId"`
	Cursor    int               `json:"cursor"`
	Answers   map[string]string `json:"answers"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Clone returns an independent copy safe to hand outside the store.
func (s Session) Clone() Session {
	answers := make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	s.Answers = answers
	return s
}
