package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-dashboard/internal/models"
)

func ms(year int, month time.Month, day, hour, min int) models.CanonicalTimestamp {
	return models.CanonicalTimestamp(time.Date(year, month, day, hour, min, 0, 0, time.UTC).UnixMilli())
}

func TestNormalizeUS(t *testing.T) {
	n := NewNormalizer(time.UTC)

	tests := []struct {
		input string
		want  models.CanonicalTimestamp
	}{
		{"01/01/2020 00:00", 1577836800000},
		{"1/2/2020 13:30", ms(2020, time.January, 2, 13, 30)},
		{"12/31/2019 23:30:00", ms(2019, time.December, 31, 23, 30)},
		{"03/04/2020", ms(2020, time.March, 4, 0, 0)},
		{"  03/04/2020 09:00 ", ms(2020, time.March, 4, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := n.NormalizeUS(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeWeather_SwapsDayAndMonth(t *testing.T) {
	n := NewNormalizer(time.UTC)

	got, err := n.NormalizeWeather("05/01/2020 11:00")
	require.NoError(t, err)

	want := time.Date(2020, time.January, 5, 11, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, models.CanonicalTimestamp(want), got)

	// A date-only weather row lands on midnight, aligning with energy rows.
	dateOnly, err := n.NormalizeWeather("01/01/2020")
	require.NoError(t, err)
	energy, err := n.NormalizeUS("01/01/2020 00:00")
	require.NoError(t, err)
	assert.Equal(t, energy, dateOnly)
}

func TestNormalize_InvalidDates(t *testing.T) {
	n := NewNormalizer(time.UTC)

	tests := []struct {
		name      string
		normalize func(string) (models.CanonicalTimestamp, error)
		input     string
	}{
		{"us month out of range", n.NormalizeUS, "13/01/2020 00:00"},
		{"us not a date", n.NormalizeUS, "yesterday"},
		{"us empty", n.NormalizeUS, ""},
		{"weather month out of range", n.NormalizeWeather, "05/13/2020 11:00"},
		{"weather missing separators", n.NormalizeWeather, "2020-01-05 11:00"},
		{"weather day out of range", n.NormalizeWeather, "32/01/2020"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.normalize(tt.input)
			require.Error(t, err)
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "timestamp", ve.Field)
		})
	}
}

func TestNormalizer_Location(t *testing.T) {
	plusOne := time.FixedZone("UTC+1", 3600)

	got, err := NewNormalizer(plusOne).NormalizeUS("01/01/2020 01:00")
	require.NoError(t, err)
	assert.Equal(t, models.CanonicalTimestamp(1577836800000), got)

	// The zero value parses in UTC.
	got, err = Normalizer{}.NormalizeUS("01/01/2020 00:00")
	require.NoError(t, err)
	assert.Equal(t, models.CanonicalTimestamp(1577836800000), got)
}

func TestReadings_RejectsBadRows(t *testing.T) {
	n := NewNormalizer(time.UTC)
	rows := []models.RawRow{
		{"01/01/2020 00:00", "12.34"},
		{"not a date", "1"},
		{"01/01/2020 00:30", "abc"},
		{"01/01/2020 01:00"},
		{"01/01/2020 01:30", " 7 "},
		{"01/01/2020 02:00", "NaN"},
		{"01/01/2020 02:30", ""},
	}

	readings, rejected := n.Readings(models.SourceEnergy, rows)

	assert.Equal(t, []models.Reading{
		{Timestamp: ms(2020, time.January, 1, 0, 0), Value: 12.34},
		{Timestamp: ms(2020, time.January, 1, 1, 30), Value: 7},
	}, readings)

	require.Len(t, rejected, 5)
	assert.Equal(t, Rejection{Row: 2, Reason: ReasonInvalidTimestamp, Err: rejected[0].Err}, rejected[0])
	assert.Equal(t, ReasonInvalidValue, rejected[1].Reason)
	assert.Equal(t, ReasonMissingField, rejected[2].Reason)
	assert.Equal(t, 4, rejected[2].Row)
	assert.Equal(t, ReasonInvalidValue, rejected[3].Reason)
	assert.Equal(t, ReasonInvalidValue, rejected[4].Reason)
}

func TestReadings_AnomaliesNeedOnlyATimestamp(t *testing.T) {
	n := NewNormalizer(time.UTC)
	rows := []models.RawRow{
		{"01/01/2020 00:00", "ignored"},
		{"01/01/2020 00:30"},
	}

	readings, rejected := n.Readings(models.SourceAnomalies, rows)
	assert.Empty(t, rejected)
	assert.Equal(t, []models.Reading{
		{Timestamp: ms(2020, time.January, 1, 0, 0)},
		{Timestamp: ms(2020, time.January, 1, 0, 30)},
	}, readings)
}

func TestReadings_WeatherUsesDayMonthOrder(t *testing.T) {
	n := NewNormalizer(time.UTC)

	readings, rejected := n.Readings(models.SourceWeather, []models.RawRow{{"05/01/2020 11:00", "3.5", "x"}})
	assert.Empty(t, rejected)
	assert.Equal(t, []models.Reading{{Timestamp: ms(2020, time.January, 5, 11, 0), Value: 3.5}}, readings)
}
