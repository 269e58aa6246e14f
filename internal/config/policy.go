// Package config loads the policy file and the persisted interval durations.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sadopc/bittimer/internal/interval"
	"gopkg.in/yaml.v3"
)

const appName = "bittimer"

// Audio players.
const (
	PlayerBell    = "bell"
	PlayerCommand = "command"
	PlayerNone    = "none"
)

// Policy is everything read from the YAML policy file.
type Policy struct {
	Engine   interval.Policy
	Defaults interval.Config

	Player  string
	Command []string
	Sounds  map[interval.Cue]string

	WakeLock        bool
	OrientationLock bool
}

type yamlPolicy struct {
	WarmupSeconds    *int `yaml:"warmup_seconds,omitempty"`
	CountdownSeconds *int `yaml:"countdown_seconds,omitempty"`
	IdleRound        *int `yaml:"idle_round,omitempty"`
	Cues             struct {
		WorkStart *bool `yaml:"work_start,omitempty"`
		RoundEnd  *bool `yaml:"round_end,omitempty"`
	} `yaml:"cues"`
	Defaults struct {
		Work   *int `yaml:"work,omitempty"`
		Rest   *int `yaml:"rest,omitempty"`
		Rounds *int `yaml:"rounds,omitempty"`
	} `yaml:"defaults"`
	Audio struct {
		Player  string   `yaml:"player,omitempty"`
		Command []string `yaml:"command,omitempty"`
		Sounds  struct {
			Countdown       string `yaml:"countdown,omitempty"`
			WorkStart       string `yaml:"work_start,omitempty"`
			RoundEnd        string `yaml:"round_end,omitempty"`
			SessionComplete string `yaml:"session_complete,omitempty"`
		} `yaml:"sounds"`
	} `yaml:"audio"`
	WakeLock        *bool `yaml:"wake_lock,omitempty"`
	OrientationLock *bool `yaml:"orientation_lock,omitempty"`
}

// DefaultPolicy returns the built-in policy: 30/15/12 with a 10s warm-up,
// a terminal bell and both device locks enabled.
func DefaultPolicy() Policy {
	return Policy{
		Engine:          interval.DefaultPolicy(),
		Defaults:        interval.DefaultConfig(),
		Player:          PlayerBell,
		Sounds:          map[interval.Cue]string{},
		WakeLock:        true,
		OrientationLock: true,
	}
}

// DefaultPolicyPath returns ~/.config/bittimer/config.yaml
func DefaultPolicyPath() (string, error) {
	return userPath("config.yaml")
}

// DefaultLogPath returns ~/.config/bittimer/bittimer.log
func DefaultLogPath() (string, error) {
	return userPath(appName + ".log")
}

func userPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, appName, name), nil
}

// LoadPolicy reads the policy file at path. A missing file yields
// DefaultPolicy. Fields that are absent or out of range keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return policy, nil
		}
		return policy, fmt.Errorf("read policy file: %w", err)
	}

	var file yamlPolicy
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return policy, fmt.Errorf("parse policy yaml: %w", err)
	}

	applyYamlPolicy(&policy, file)
	return policy, nil
}

// SavePolicy writes p to path, creating the directory if needed.
func SavePolicy(path string, p Policy) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var file yamlPolicy
	file.WarmupSeconds = &p.Defaults.WarmupSeconds
	file.CountdownSeconds = &p.Engine.CountdownSeconds
	file.IdleRound = &p.Engine.IdleRound
	file.Cues.WorkStart = &p.Engine.WorkStartCue
	file.Cues.RoundEnd = &p.Engine.RoundEndCue
	file.Defaults.Work = &p.Defaults.WorkSeconds
	file.Defaults.Rest = &p.Defaults.RestSeconds
	file.Defaults.Rounds = &p.Defaults.TotalRounds
	file.Audio.Player = p.Player
	file.Audio.Command = p.Command
	file.Audio.Sounds.Countdown = p.Sounds[interval.CueCountdown]
	file.Audio.Sounds.WorkStart = p.Sounds[interval.CueWorkStart]
	file.Audio.Sounds.RoundEnd = p.Sounds[interval.CueRoundEnd]
	file.Audio.Sounds.SessionComplete = p.Sounds[interval.CueSessionComplete]
	file.WakeLock = &p.WakeLock
	file.OrientationLock = &p.OrientationLock

	out, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal policy yaml: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}
	return nil
}

func applyYamlPolicy(p *Policy, file yamlPolicy) {
	if v := file.WarmupSeconds; v != nil && WarmupLimit.Contains(*v) {
		p.Defaults.WarmupSeconds = *v
	}
	if v := file.CountdownSeconds; v != nil && CountdownLimit.Contains(*v) {
		p.Engine.CountdownSeconds = *v
	}
	if v := file.IdleRound; v != nil && (*v == 0 || *v == 1) {
		p.Engine.IdleRound = *v
	}
	if v := file.Cues.WorkStart; v != nil {
		p.Engine.WorkStartCue = *v
	}
	if v := file.Cues.RoundEnd; v != nil {
		p.Engine.RoundEndCue = *v
	}

	if v := file.Defaults.Work; v != nil && WorkLimit.Contains(*v) {
		p.Defaults.WorkSeconds = *v
	}
	if v := file.Defaults.Rest; v != nil && RestLimit.Contains(*v) {
		p.Defaults.RestSeconds = *v
	}
	if v := file.Defaults.Rounds; v != nil && RoundsLimit.Contains(*v) {
		p.Defaults.TotalRounds = *v
	}

	switch file.Audio.Player {
	case PlayerBell, PlayerCommand, PlayerNone:
		p.Player = file.Audio.Player
	}
	if len(file.Audio.Command) > 0 {
		p.Command = file.Audio.Command
	}
	sounds := map[interval.Cue]string{
		interval.CueCountdown:       file.Audio.Sounds.Countdown,
		interval.CueWorkStart:       file.Audio.Sounds.WorkStart,
		interval.CueRoundEnd:        file.Audio.Sounds.RoundEnd,
		interval.CueSessionComplete: file.Audio.Sounds.SessionComplete,
	}
	for cue, path := range sounds {
		if path != "" {
			p.Sounds[cue] = path
		}
	}

	if v := file.WakeLock; v != nil {
		p.WakeLock = *v
	}
	if v := file.OrientationLock; v != nil {
		p.OrientationLock = *v
	}
}
