package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+1555***4567", MaskPhone("+15551234567"))
	assert.Equal(t, "+4477***0123", MaskPhone("+447700900123"))
	assert.Equal(t, "***", MaskPhone("+1555123"))
	assert.Equal(t, "***", MaskPhone(""))
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()

	parsed, err := ParseUUID("  " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseUUID("not-a-uuid")
	assert.Error(t, err)

	_, err = ParseUUID(uuid.Nil.String())
	assert.ErrorContains(t, err, "nil uuid")
}

func TestSecondsUntil(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, int64(245), SecondsUntil(now, now.Add(245*time.Second+900*time.Millisecond)))
	assert.Equal(t, int64(0), SecondsUntil(now, now))
	assert.Equal(t, int64(0), SecondsUntil(now, now.Add(-time.Minute)))
}

func TestFormatMinutesSeconds(t *testing.T) {
	assert.Equal(t, "04:05", FormatMinutesSeconds(245))
	assert.Equal(t, "00:00", FormatMinutesSeconds(0))
	assert.Equal(t, "00:00", FormatMinutesSeconds(-3))
	assert.Equal(t, "10:00", FormatMinutesSeconds(600))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsTrue(ToPtr(true)))
	assert.False(t, IsTrue(ToPtr(false)))
	assert.False(t, IsTrue(nil))
	assert.Equal(t, 7*24*time.Hour, DaysToDuration(7))
}
