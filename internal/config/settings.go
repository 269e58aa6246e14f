package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/bittimer/internal/interval"
)

// Keys in the settings table.
const (
	KeyWorkSeconds = "work_seconds"
	KeyRestSeconds = "rest_seconds"
	KeyTotalRounds = "total_rounds"
)

// ErrOutOfRange is returned for values outside a Limit.
var ErrOutOfRange = errors.New("value out of range")

// Limit is an inclusive range for a user-facing setting.
type Limit struct {
	Name string
	Min  int
	Max  int
}

var (
	WorkLimit      = Limit{Name: "work", Min: 1, Max: 300}
	RestLimit      = Limit{Name: "rest", Min: 1, Max: 180}
	RoundsLimit    = Limit{Name: "rounds", Min: 1, Max: 50}
	WarmupLimit    = Limit{Name: "warmup", Min: 0, Max: 60}
	CountdownLimit = Limit{Name: "countdown", Min: 0, Max: 10}
)

func (l Limit) Contains(v int) bool {
	return v >= l.Min && v <= l.Max
}

func (l Limit) Check(v int) error {
	if !l.Contains(v) {
		return fmt.Errorf("%w: %s must be between %d and %d", ErrOutOfRange, l.Name, l.Min, l.Max)
	}
	return nil
}

// Parse reads a whole number from user input and checks it against l.
func (l Limit) Parse(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", l.Name)
	}
	if err := l.Check(v); err != nil {
		return 0, err
	}
	return v, nil
}

// SettingsStore is the key/value store durations are persisted in.
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSettings(values map[string]string) error
}

// LoadDurations reads work, rest and rounds from kv. Each value that is
// missing, unparsable or out of range falls back to defaults independently;
// the keys that fell back are returned.
func LoadDurations(kv SettingsStore, defaults interval.Config) (interval.Config, []string) {
	cfg := defaults
	var fallbacks []string

	load := func(key string, limit Limit, dst *int) {
		raw, err := kv.GetSetting(key)
		if err != nil {
			fallbacks = append(fallbacks, key)
			return
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || !limit.Contains(v) {
			fallbacks = append(fallbacks, key)
			return
		}
		*dst = v
	}

	load(KeyWorkSeconds, WorkLimit, &cfg.WorkSeconds)
	load(KeyRestSeconds, RestLimit, &cfg.RestSeconds)
	load(KeyTotalRounds, RoundsLimit, &cfg.TotalRounds)
	return cfg, fallbacks
}

// ValidateDurations checks cfg against the user-facing limits.
func ValidateDurations(cfg interval.Config) error {
	return errors.Join(
		WorkLimit.Check(cfg.WorkSeconds),
		RestLimit.Check(cfg.RestSeconds),
		RoundsLimit.Check(cfg.TotalRounds),
	)
}

// SaveDurations validates cfg and writes all three keys together.
func SaveDurations(kv SettingsStore, cfg interval.Config) error {
	if err := ValidateDurations(cfg); err != nil {
		return err
	}
	err := kv.SetSettings(map[string]string{
		KeyWorkSeconds: strconv.Itoa(cfg.WorkSeconds),
		KeyRestSeconds: strconv.Itoa(cfg.RestSeconds),
		KeyTotalRounds: strconv.Itoa(cfg.TotalRounds),
	})
	if err != nil {
		return fmt.Errorf("save durations: %w", err)
	}
	return nil
}
