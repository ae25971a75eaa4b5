package service

import (
	"strings"
	"time"
)

// Speed trades wall-clock time for update frequency: BatchSize matches run
// between progress updates, with Delay of idle time after each update.
type Speed struct {
	Name      string        `json:"name"`
	BatchSize int           `json:"batch_size"`
	Delay     time.Duration `json:"delay"`
}

var speeds = map[string]Speed{
	"fast":   {Name: "fast", BatchSize: 80, Delay: 0},
	"medium": {Name: "medium", BatchSize: 20, Delay: 16 * time.Millisecond},
	"slow":   {Name: "slow", BatchSize: 10, Delay: 32 * time.Millisecond},
}

// defaultSpeed applies to unrecognised speed names.
var defaultSpeed = Speed{Name: "default", BatchSize: 18, Delay: 14 * time.Millisecond}

// ParseSpeed resolves a speed name, case-insensitively.
func ParseSpeed(name string) Speed {
	if s, ok := speeds[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s
	}
	return defaultSpeed
}
