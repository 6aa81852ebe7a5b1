package tui

import (
	"time"

	"github.com/atotto/clipboard"
)

type Option func(*Model)

// WithClickCooldown sets how long after a drop clicks on cards are ignored.
func WithClickCooldown(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.clickCooldown = d
		}
	}
}

// WithHoverFlush sets the delay before a throttled hover is re-sent. Zero disables it.
func WithHoverFlush(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.hoverFlush = d
		}
	}
}

// WithClipboard replaces the clipboard writer used by the copy-id key.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithClock overrides the time source used for click suppression.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}
