package domain

import (
	"fmt"
	"strings"
)

// Mode selects which rate strategy answers requests.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOnline:
		return ModeOnline, nil
	case ModeOffline:
		return ModeOffline, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}
