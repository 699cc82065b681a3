package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_MODE", "")
	t.Setenv("DAY_TIMEZONE", "")

	cfg := Load()
	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "Asia/Manila", cfg.DayTimezone)
	assert.NotEmpty(t, cfg.HTTPPort)
}

func TestDayLocation(t *testing.T) {
	loc, err := App{DayTimezone: "Asia/Manila"}.DayLocation()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Manila", loc.String())

	_, err = App{DayTimezone: "Mars/Olympus_Mons"}.DayLocation()
	require.Error(t, err)
}
