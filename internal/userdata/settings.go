package userdata

import (
	"context"
	"fmt"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
)

// Themes lists the accepted theme names.
var Themes = []string{"light", "dark", "auto"}

// Settings are device-level application settings.
type Settings struct {
	Theme       string `json:"theme"`
	Language    string `json:"language"`
	Units       string `json:"units"`
	Timezone    string `json:"timezone"`
	AutoSave    bool   `json:"autoSave"`
	CompactMode bool   `json:"compactMode"`
	Animations  bool   `json:"animations"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	tz := time.Local.String()
	if tz == "Local" {
		tz = "UTC"
	}
	return Settings{
		Theme:      "light",
		Language:   "en",
		Units:      "metric",
		Timezone:   tz,
		AutoSave:   true,
		Animations: true,
	}
}

// SettingKey names one setting.
type SettingKey string

// Setting keys.
const (
	SettingTheme       SettingKey = "theme"
	SettingLanguage    SettingKey = "language"
	SettingUnits       SettingKey = "units"
	SettingTimezone    SettingKey = "timezone"
	SettingAutoSave    SettingKey = "autoSave"
	SettingCompactMode SettingKey = "compactMode"
	SettingAnimations  SettingKey = "animations"
)

var settingFields = map[SettingKey]field[Settings]{
	SettingTheme:       stringField(string(SettingTheme), func(s *Settings) *string { return &s.Theme }, Themes...),
	SettingLanguage:    stringField(string(SettingLanguage), func(s *Settings) *string { return &s.Language }),
	SettingUnits:       stringField(string(SettingUnits), func(s *Settings) *string { return &s.Units }, "metric", "imperial"),
	SettingTimezone:    timezoneField(),
	SettingAutoSave:    boolField(string(SettingAutoSave), func(s *Settings) *bool { return &s.AutoSave }),
	SettingCompactMode: boolField(string(SettingCompactMode), func(s *Settings) *bool { return &s.CompactMode }),
	SettingAnimations:  boolField(string(SettingAnimations), func(s *Settings) *bool { return &s.Animations }),
}

func timezoneField() field[Settings] {
	base := stringField(string(SettingTimezone), func(s *Settings) *string { return &s.Timezone })
	return field[Settings]{
		get: base.get,
		set: func(s *Settings, raw string) error {
			if _, err := time.LoadLocation(raw); err != nil || raw == "" {
				return &ValueError{Key: string(SettingTimezone), Value: raw}
			}
			return base.set(s, raw)
		},
	}
}

// SettingKeys lists every key, sorted.
func SettingKeys() []SettingKey {
	keys := make([]SettingKey, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SettingsStore holds the persisted settings.
type SettingsStore struct {
	b *persisted.Binding[Settings]
}

// NewSettings binds settings to kv.KeySettings.
func NewSettings(ctx context.Context, store kv.Storage, opts Options) *SettingsStore {
	return &SettingsStore{b: bind(ctx, store, kv.KeySettings, DefaultSettings(), opts.withDefaults())}
}

// Get returns the current settings.
func (s *SettingsStore) Get() Settings {
	return s.b.Get()
}

// Value returns the setting named by key as a string.
func (s *SettingsStore) Value(key SettingKey) (string, error) {
	f, ok := settingFields[key]
	if !ok {
		return "", fmt.Errorf("setting %q: %w", key, ErrUnknownKey)
	}
	cur := s.b.Get()
	return f.get(&cur), nil
}

// Apply parses raw and stores it under key.
func (s *SettingsStore) Apply(ctx context.Context, key SettingKey, raw string) error {
	f, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("setting %q: %w", key, ErrUnknownKey)
	}
	var err error
	s.b.Modify(ctx, func(prev Settings) (Settings, bool) {
		err = f.set(&prev, raw)
		return prev, err == nil
	})
	return err
}

// Reset restores the defaults.
func (s *SettingsStore) Reset(ctx context.Context) {
	s.b.Set(ctx, DefaultSettings())
}

// Watch observes changes.
func (s *SettingsStore) Watch(fn func(Settings, persisted.Source)) func() {
	return s.b.Watch(fn)
}
