package userdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Apply(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)

	require.NoError(t, c.Settings.Apply(ctx, SettingUnits, "imperial"))
	require.NoError(t, c.Settings.Apply(ctx, SettingCompactMode, "1"))
	require.NoError(t, c.Settings.Apply(ctx, SettingTimezone, "Europe/Paris"))

	s := c.Settings.Get()
	assert.Equal(t, "imperial", s.Units)
	assert.True(t, s.CompactMode)
	assert.Equal(t, "Europe/Paris", s.Timezone)
}

func TestSettings_ApplyRejects(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)

	assert.True(t, IsInvalidValue(c.Settings.Apply(ctx, SettingUnits, "furlongs")))
	assert.True(t, IsInvalidValue(c.Settings.Apply(ctx, SettingTimezone, "Mars/Olympus")))
	assert.True(t, IsInvalidValue(c.Settings.Apply(ctx, SettingAnimations, "maybe")))
	assert.ErrorIs(t, c.Settings.Apply(ctx, "fontSize", "12"), ErrUnknownKey)

	_, err := c.Settings.Value("fontSize")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestSettings_Reset(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)
	require.NoError(t, c.Settings.Apply(ctx, SettingTheme, "dark"))

	c.Settings.Reset(ctx)
	v, err := c.Settings.Value(SettingTheme)
	require.NoError(t, err)
	assert.Equal(t, "light", v)
	assert.Len(t, SettingKeys(), 7)
}
