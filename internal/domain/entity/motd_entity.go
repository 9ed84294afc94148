package entity

import "time"

const (
	DefaultMotdForeground = "#FFFFFF"
	DefaultMotdBackground = "#000000"
)

// Motd is a broadcastable banner message. It has no handlers of its own.
type Motd struct {
	ID         string `json:"_id,omitempty"`
	Message    string `json:"message"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Timestamp  int64  `json:"timestamp"` // unix millis
}

// NewMotd fills colors and timestamp the same way the store schema defaults them.
func NewMotd(message, foreground, background string) *Motd {
	if foreground == "" {
		foreground = DefaultMotdForeground
	}
	if background == "" {
		background = DefaultMotdBackground
	}
	return &Motd{
		Message:    message,
		Foreground: foreground,
		Background: background,
		Timestamp:  time.Now().UnixMilli(),
	}
}
