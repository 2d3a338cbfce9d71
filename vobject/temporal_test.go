package vobject

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value Temporal
		text  string
	}{
		{
			name:  "utc",
			value: UTC(time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)),
			text:  "20240310T143000Z",
		},
		{
			name:  "floating",
			value: Floating(time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)),
			text:  "20240310T143000",
		},
		{
			name:  "date only",
			value: DateOnly(2024, time.March, 10),
			text:  "20240310",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.text, FormatTemporal(tt.value))

			parsed := ParseTemporal(FormatTemporal(tt.value))
			require.True(t, parsed.IsPresent())
			assert.Equal(t, tt.value, parsed.MustGet())
		})
	}
}

func TestParseTemporalKinds(t *testing.T) {
	utc := ParseTemporal("20240310T143000Z")
	require.True(t, utc.IsPresent())
	assert.Equal(t, KindUTC, utc.MustGet().Kind)

	floating := ParseTemporal("20240310T143000")
	require.True(t, floating.IsPresent())
	assert.Equal(t, KindFloating, floating.MustGet().Kind)

	date := ParseTemporal("20240310")
	require.True(t, date.IsPresent())
	assert.Equal(t, KindDateOnly, date.MustGet().Kind)
}

func TestParseTemporalRejectsGarbage(t *testing.T) {
	tests := []string{
		"",
		"not-a-date",
		"2024031",          // too short for a date
		"202403105",        // nine digits
		"20241310T143000Z", // month 13
		"20240310T146000Z", // minute 60
		"20240332",         // day 32
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			assert.True(t, ParseTemporal(input).IsAbsent())
		})
	}
}

func TestDateOnlyCarriesNoTimeOfDay(t *testing.T) {
	v := DateOnly(2024, time.March, 10)
	assert.Equal(t, 0, v.Time.Hour())
	assert.Equal(t, 0, v.Time.Minute())
	assert.Equal(t, 0, v.Time.Second())
}

func TestFloatingDiscardsLocation(t *testing.T) {
	loc := time.FixedZone("somewhere", 3*3600)
	v := Floating(time.Date(2024, 3, 10, 14, 30, 0, 0, loc))

	// Wall-clock fields survive, the zone does not.
	assert.Equal(t, "20240310T143000", FormatTemporal(v))
	assert.Equal(t, v, ParseTemporal("20240310T143000").MustGet())
}
