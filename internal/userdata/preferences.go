package userdata

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
)

// NotificationPrefs selects which notifications are sent.
type NotificationPrefs struct {
	Email      bool `json:"email"`
	Push       bool `json:"push"`
	NewRecipes bool `json:"newRecipes"`
	Followers  bool `json:"followers"`
	Comments   bool `json:"comments"`
}

// DisplayPrefs controls recipe listings.
type DisplayPrefs struct {
	RecipesPerPage    int    `json:"recipesPerPage"`
	ShowNutritionInfo bool   `json:"showNutritionInfo"`
	ShowDifficulty    bool   `json:"showDifficulty"`
	DefaultView       string `json:"defaultView"`
}

// PrivacyPrefs controls profile visibility.
type PrivacyPrefs struct {
	ProfileVisibility string `json:"profileVisibility"`
	ShowEmail         bool   `json:"showEmail"`
	AllowMessages     bool   `json:"allowMessages"`
}

// Preferences are the user's profile preferences.
type Preferences struct {
	Theme         string            `json:"theme"`
	Language      string            `json:"language"`
	Notifications NotificationPrefs `json:"notifications"`
	Display       DisplayPrefs      `json:"display"`
	Privacy       PrivacyPrefs      `json:"privacy"`
}

// DefaultPreferences returns the preferences of a new user.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:    "light",
		Language: "en",
		Notifications: NotificationPrefs{
			Email:      true,
			NewRecipes: true,
			Followers:  true,
			Comments:   true,
		},
		Display: DisplayPrefs{
			RecipesPerPage:    12,
			ShowNutritionInfo: true,
			ShowDifficulty:    true,
			DefaultView:       "grid",
		},
		Privacy: PrivacyPrefs{
			ProfileVisibility: "public",
			AllowMessages:     true,
		},
	}
}

// PreferenceKey names one preference for dynamic access.
type PreferenceKey string

// Preference keys.
const (
	PrefTheme             PreferenceKey = "theme"
	PrefLanguage          PreferenceKey = "language"
	PrefNotifyEmail       PreferenceKey = "notifications.email"
	PrefNotifyPush        PreferenceKey = "notifications.push"
	PrefNotifyNewRecipes  PreferenceKey = "notifications.newRecipes"
	PrefNotifyFollowers   PreferenceKey = "notifications.followers"
	PrefNotifyComments    PreferenceKey = "notifications.comments"
	PrefRecipesPerPage    PreferenceKey = "display.recipesPerPage"
	PrefShowNutritionInfo PreferenceKey = "display.showNutritionInfo"
	PrefShowDifficulty    PreferenceKey = "display.showDifficulty"
	PrefDefaultView       PreferenceKey = "display.defaultView"
	PrefProfileVisibility PreferenceKey = "privacy.profileVisibility"
	PrefShowEmail         PreferenceKey = "privacy.showEmail"
	PrefAllowMessages     PreferenceKey = "privacy.allowMessages"
)

var preferenceFields = map[PreferenceKey]field[Preferences]{
	PrefTheme:    stringField(string(PrefTheme), func(p *Preferences) *string { return &p.Theme }, Themes...),
	PrefLanguage: stringField(string(PrefLanguage), func(p *Preferences) *string { return &p.Language }),

	PrefNotifyEmail:      boolField(string(PrefNotifyEmail), func(p *Preferences) *bool { return &p.Notifications.Email }),
	PrefNotifyPush:       boolField(string(PrefNotifyPush), func(p *Preferences) *bool { return &p.Notifications.Push }),
	PrefNotifyNewRecipes: boolField(string(PrefNotifyNewRecipes), func(p *Preferences) *bool { return &p.Notifications.NewRecipes }),
	PrefNotifyFollowers:  boolField(string(PrefNotifyFollowers), func(p *Preferences) *bool { return &p.Notifications.Followers }),
	PrefNotifyComments:   boolField(string(PrefNotifyComments), func(p *Preferences) *bool { return &p.Notifications.Comments }),

	PrefRecipesPerPage:    intField(string(PrefRecipesPerPage), func(p *Preferences) *int { return &p.Display.RecipesPerPage }, 1, 100),
	PrefShowNutritionInfo: boolField(string(PrefShowNutritionInfo), func(p *Preferences) *bool { return &p.Display.ShowNutritionInfo }),
	PrefShowDifficulty:    boolField(string(PrefShowDifficulty), func(p *Preferences) *bool { return &p.Display.ShowDifficulty }),
	PrefDefaultView:       stringField(string(PrefDefaultView), func(p *Preferences) *string { return &p.Display.DefaultView }, "grid", "list"),

	PrefProfileVisibility: stringField(string(PrefProfileVisibility), func(p *Preferences) *string { return &p.Privacy.ProfileVisibility }, "public", "followers", "private"),
	PrefShowEmail:         boolField(string(PrefShowEmail), func(p *Preferences) *bool { return &p.Privacy.ShowEmail }),
	PrefAllowMessages:     boolField(string(PrefAllowMessages), func(p *Preferences) *bool { return &p.Privacy.AllowMessages }),
}

// PreferenceKeys lists every key, sorted.
func PreferenceKeys() []PreferenceKey {
	keys := make([]PreferenceKey, 0, len(preferenceFields))
	for k := range preferenceFields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// PreferencesStore holds the persisted preferences.
type PreferencesStore struct {
	b *persisted.Binding[Preferences]
}

// NewPreferences binds preferences to kv.KeyPreferences.
func NewPreferences(ctx context.Context, store kv.Storage, opts Options) *PreferencesStore {
	return &PreferencesStore{b: bind(ctx, store, kv.KeyPreferences, DefaultPreferences(), opts.withDefaults())}
}

// Get returns the current preferences.
func (p *PreferencesStore) Get() Preferences {
	return p.b.Get()
}

// Update applies fn to a copy of the preferences and persists the result.
func (p *PreferencesStore) Update(ctx context.Context, fn func(*Preferences)) Preferences {
	return p.b.Update(ctx, func(prev Preferences) Preferences {
		fn(&prev)
		return prev
	})
}

// Value returns the preference named by key as a string.
func (p *PreferencesStore) Value(key PreferenceKey) (string, error) {
	f, ok := preferenceFields[key]
	if !ok {
		return "", fmt.Errorf("preference %q: %w", key, ErrUnknownKey)
	}
	prefs := p.b.Get()
	return f.get(&prefs), nil
}

// Apply parses raw and stores it under key.
func (p *PreferencesStore) Apply(ctx context.Context, key PreferenceKey, raw string) error {
	f, ok := preferenceFields[key]
	if !ok {
		return fmt.Errorf("preference %q: %w", key, ErrUnknownKey)
	}
	var err error
	p.b.Modify(ctx, func(prev Preferences) (Preferences, bool) {
		err = f.set(&prev, raw)
		return prev, err == nil
	})
	return err
}

// Reset restores the defaults.
func (p *PreferencesStore) Reset(ctx context.Context) {
	p.b.Set(ctx, DefaultPreferences())
}
