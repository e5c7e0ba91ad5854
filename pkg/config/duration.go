package config

import (
	"fmt"
	"time"

	iso8601 "github.com/senseyeio/duration"
	"gopkg.in/yaml.v3"
)

// Duration is read from ISO-8601 ("PT15S") or Go ("15s") notation
type Duration struct {
	time.Duration
}

var durationReference = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

func ParseDuration(s string) (time.Duration, error) {
	isoDuration, err := iso8601.ParseISO8601(s)
	if err == nil {
		return isoDuration.Shift(durationReference).Sub(durationReference), nil
	}

	if goDuration, goErr := time.ParseDuration(s); goErr == nil {
		return goDuration, nil
	}

	return 0, fmt.Errorf("invalid duration %q: %w", s, err)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	d.Duration = parsed

	return nil
}
