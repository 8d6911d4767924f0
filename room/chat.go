package room

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// 未分配颜色时聊天使用的颜色标签
const chatColorUnassigned = "gray"

// ChatEntry 一条聊天记录
type ChatEntry struct {
	UserID string    `json:"user_id,omitempty"`
	Name   string    `json:"name"`
	Color  string    `json:"color"`
	Text   string    `json:"text"`
	System bool      `json:"system,omitempty"`
	Time   time.Time `json:"time"`
}

// chatLog keeps the newest entries up to its capacity.
type chatLog struct {
	entries  []ChatEntry
	capacity int
}

func newChatLog(capacity int) *chatLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &chatLog{capacity: capacity}
}

func (l *chatLog) append(e ChatEntry) {
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = e
		return
	}
	l.entries = append(l.entries, e)
}

// tail returns a copy of the last n entries.
func (l *chatLog) tail(n int) []ChatEntry {
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	return append([]ChatEntry{}, l.entries[len(l.entries)-n:]...)
}

// tailWithin returns the newest entries, at most n, whose JSON encodings
// together with separators fit in budget bytes.
func (l *chatLog) tailWithin(n, budget int) []ChatEntry {
	entries := l.tail(n)
	start := len(entries)
	for start > 0 {
		data, err := json.Marshal(entries[start-1])
		if err != nil || len(data)+1 > budget {
			break
		}
		budget -= len(data) + 1
		start--
	}
	return entries[start:]
}

func (l *chatLog) len() int { return len(l.entries) }

// sanitizeChat trims text and cuts it to maxRunes.
func sanitizeChat(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		text = string([]rune(text)[:maxRunes])
	}
	return text
}

// displayName trims a member name and cuts it to maxNameRunes.
func displayName(name string) string {
	return sanitizeChat(name, maxNameRunes)
}
