package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// StartRequest carries the user-facing run options. Zero or invalid values
// fall back to the profile defaults.
type StartRequest struct {
	PlayerCount     int     `json:"playerCount"`
	MatchCount      int     `json:"matchCount"`
	KFactor         float64 `json:"kFactor"`
	MatchmakingMode string  `json:"matchmakingMode"`
	Speed           string  `json:"speed"`
	Seed            int64   `json:"seed"`
}

// UnmarshalJSON decodes the options leniently: numeric strings are accepted,
// and a value of the wrong type (or a fractional count) decodes as zero so the
// profile default applies. Only a body that is not a JSON object is an error.
func (r *StartRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = StartRequest{
		PlayerCount:     int(looseInt(fields["playerCount"])),
		MatchCount:      int(looseInt(fields["matchCount"])),
		KFactor:         looseFloat(fields["kFactor"]),
		MatchmakingMode: looseString(fields["matchmakingMode"]),
		Speed:           looseString(fields["speed"]),
		Seed:            looseInt(fields["seed"]),
	}
	return nil
}

func looseNumber(raw json.RawMessage) (json.Number, bool) {
	if len(raw) == 0 {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch n := v.(type) {
	case json.Number:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", false
		}
		return json.Number(s), true
	}
	return "", false
}

func looseInt(raw json.RawMessage) int64 {
	n, ok := looseNumber(raw)
	if !ok {
		return 0
	}
	i, err := n.Int64()
	if err != nil {
		return 0
	}
	return i
}

func looseFloat(raw json.RawMessage) float64 {
	n, ok := looseNumber(raw)
	if !ok {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func looseString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
