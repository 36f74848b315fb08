package userdata

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/kv"
)

func TestPreferences_Defaults(t *testing.T) {
	c := newFixture(t).open(t)
	p := c.Preferences.Get()
	assert.Equal(t, "light", p.Theme)
	assert.True(t, p.Notifications.Email)
	assert.False(t, p.Notifications.Push)
	assert.Equal(t, 12, p.Display.RecipesPerPage)
	assert.Equal(t, "public", p.Privacy.ProfileVisibility)
}

func TestPreferences_ApplyNestedKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.open(t)

	require.NoError(t, c.Preferences.Apply(ctx, PrefNotifyPush, "true"))
	require.NoError(t, c.Preferences.Apply(ctx, PrefRecipesPerPage, "24"))

	v, err := c.Preferences.Value(PrefNotifyPush)
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	raw, ok := f.store.Lookup(ctx, kv.KeyPreferences)
	require.True(t, ok)
	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw.Text), &stored))
	assert.Equal(t, true, stored["notifications"].(map[string]any)["push"])
	assert.Equal(t, float64(24), stored["display"].(map[string]any)["recipesPerPage"])
}

func TestPreferences_ApplyRejects(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)

	err := c.Preferences.Apply(ctx, "notifications.sms", "true")
	assert.ErrorIs(t, err, ErrUnknownKey)

	err = c.Preferences.Apply(ctx, PrefDefaultView, "carousel")
	assert.True(t, IsInvalidValue(err))

	err = c.Preferences.Apply(ctx, PrefRecipesPerPage, "0")
	assert.True(t, IsInvalidValue(err))

	assert.Equal(t, DefaultPreferences(), c.Preferences.Get())
}

func TestPreferences_UpdateAndReset(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)

	c.Preferences.Update(ctx, func(p *Preferences) { p.Theme = "dark" })
	assert.Equal(t, "dark", c.Preferences.Get().Theme)

	c.Preferences.Reset(ctx)
	assert.Equal(t, DefaultPreferences(), c.Preferences.Get())
}

func TestPreferenceKeysAreSorted(t *testing.T) {
	keys := PreferenceKeys()
	assert.Len(t, keys, 14)
	assert.IsNonDecreasing(t, keys)
}
