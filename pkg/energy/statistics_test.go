package energy_test

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

const delta = 1e-9

func TestStatisticsFromCache(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	entry := &energy.CacheEntry{
		LatestData: energy.LatestData{TotalConsumedMAh: 90},
		Statistics: energy.RunningStatistics{
			AvgCurrentMA:     140,
			AvgVoltageV:      3.72,
			AvgPowerMW:       520,
			MeasurementCount: 900,
			DurationSeconds:  1800,
		},
	}

	stats := e.Statistics.FromCache(entry)
	assert.Equal(t, energy.SourceCache, stats.Source)
	assert.InDelta(t, 0.14, stats.AvgAmpereHours, delta)
	assert.InDelta(t, 3.72, stats.AvgVoltageHours, delta)
	assert.InDelta(t, 0.52, stats.AvgWattsHours, delta)
	assert.InDelta(t, 0.09, stats.TotalAmpereHours, delta)
	assert.InDelta(t, 1.86, stats.TotalVoltageHours, delta)
	assert.InDelta(t, 0.26, stats.TotalWattsHours, delta)
	assert.Equal(t, 900, stats.MeasurementCount)
	assert.Equal(t, 30, stats.DurationMinutes)
	assert.InDelta(t, 2.0, stats.AvgMeasurementInterval, delta)
}

func TestStatisticsFromCache_NoSamplesYet(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	stats := e.Statistics.FromCache(&energy.CacheEntry{})
	assert.Zero(t, stats.MeasurementCount)
	assert.Zero(t, stats.AvgMeasurementInterval)
	assert.Zero(t, stats.TotalWattsHours)
}

func TestStatisticsFromMeasurements(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyDurable, false, false)
	defer ctrl.Finish()

	start := clock.Now()
	end := start.Add(15 * time.Minute)
	session := &models.UsageSession{StartTime: start, EndTime: &end}

	// 10s sample interval, one reading of 0.15 A, 3.7 V and 0.555 W per row
	hours := (10 * time.Second).Hours()
	row := func(at time.Duration) models.EnergyMeasurement {
		return models.EnergyMeasurement{
			AmpereHours:  0.15 * hours,
			VoltageHours: 3.7 * hours,
			WattsHours:   0.555 * hours,
			RecordedAt:   start.Add(at),
		}
	}
	rows := []models.EnergyMeasurement{row(20 * time.Second), row(0), row(10 * time.Second)}

	stats := e.Statistics.FromMeasurements(session, rows)
	assert.Equal(t, energy.SourceMeasurements, stats.Source)
	assert.Equal(t, 3, stats.MeasurementCount)
	assert.Equal(t, 15, stats.DurationMinutes)
	assert.InDelta(t, 0.15, stats.AvgAmpereHours, delta)
	assert.InDelta(t, 3.7, stats.AvgVoltageHours, delta)
	assert.InDelta(t, 0.555, stats.AvgWattsHours, delta)
	assert.InDelta(t, 3*3.7*hours, stats.TotalVoltageHours, delta)
	assert.InDelta(t, 3*0.555*hours, stats.TotalWattsHours, delta)
	assert.InDelta(t, 10.0, stats.AvgMeasurementInterval, delta)

	assert.Equal(t, start.Add(20*time.Second), rows[0].RecordedAt, "input is left unsorted")
}

func TestStatisticsFromMeasurements_SingleRowHasNoInterval(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyDurable, false, false)
	defer ctrl.Finish()

	session := &models.UsageSession{StartTime: clock.Now()}
	clock.Advance(90 * time.Second)

	stats := e.Statistics.FromMeasurements(session, []models.EnergyMeasurement{{WattsHours: 0.01, RecordedAt: clock.Now()}})
	assert.Equal(t, 1, stats.MeasurementCount)
	assert.Equal(t, 1, stats.DurationMinutes, "open sessions run until now")
	assert.Zero(t, stats.AvgMeasurementInterval)
	assert.InDelta(t, 0.01, stats.TotalWattsHours, delta)

	empty := e.Statistics.FromMeasurements(session, nil)
	assert.Zero(t, empty.MeasurementCount)
	assert.Equal(t, energy.SourceMeasurements, empty.Source)
}

func TestStatisticsFromMetadata(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	start := clock.Now()
	end := start.Add(12 * time.Minute)
	session := &models.UsageSession{StartTime: start, EndTime: &end}

	stats := e.Statistics.FromMetadata(session)
	assert.Equal(t, energy.SourceMetadata, stats.Source)
	assert.Equal(t, 12, stats.DurationMinutes)
	assert.Zero(t, stats.TotalWattsHours)

	session.Metadata = &models.SessionMetadata{
		TotalMeasurementsSent:   60,
		ReportedDurationSeconds: 600,
		ActualDurationMinutes:   11,
		AvgCurrentMA:            200,
		AvgVoltageV:             3.6,
		AvgPowerMW:              720,
		TotalAmpereHours:        0.04,
		TotalVoltageHours:       0.66,
		TotalWattsHours:         0.132,
	}
	stats = e.Statistics.FromMetadata(session)
	assert.Equal(t, 11, stats.DurationMinutes)
	assert.InDelta(t, 0.2, stats.AvgAmpereHours, delta)
	assert.InDelta(t, 3.6, stats.AvgVoltageHours, delta)
	assert.InDelta(t, 0.72, stats.AvgWattsHours, delta)
	assert.InDelta(t, 0.04, stats.TotalAmpereHours, delta)
	assert.InDelta(t, 0.66, stats.TotalVoltageHours, delta)
	assert.InDelta(t, 0.132, stats.TotalWattsHours, delta)
	assert.Equal(t, 60, stats.MeasurementCount)
	assert.InDelta(t, 10.0, stats.AvgMeasurementInterval, delta)
}

func TestStatisticsFromDeviceSummary_Nil(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	stats := e.Statistics.FromDeviceSummary(nil, 8*time.Minute+59*time.Second)
	assert.Equal(t, energy.SourceDevice, stats.Source)
	assert.Equal(t, 8, stats.DurationMinutes)
	assert.Zero(t, stats.AvgWattsHours)
	assert.Zero(t, stats.MeasurementCount)
}

func TestStatistics_SameShapeForEveryMode(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	session := &models.UsageSession{StartTime: clock.Now()}
	all := []*energy.Statistics{
		e.Statistics.FromCache(&energy.CacheEntry{}),
		e.Statistics.FromMeasurements(session, []models.EnergyMeasurement{{RecordedAt: clock.Now()}}),
		e.Statistics.FromMetadata(session),
		e.Statistics.FromDeviceSummary(&models.DeviceSummary{}, time.Minute),
	}

	keysOf := func(stats *energy.Statistics) []string {
		raw, err := json.Marshal(stats)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}

	want := keysOf(all[0])
	assert.Contains(t, want, "avgWattsHours")
	assert.Contains(t, want, "avgMeasurementInterval")
	for _, stats := range all[1:] {
		assert.Equal(t, want, keysOf(stats), "source %s", stats.Source)
	}
}

func TestStatisticsForSession_PicksSource(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	user := seedUser(t)
	speaker := seedSpeaker(t, 90)

	active := seedSession(t, speaker, user, models.SessionStatusActive, clock.Now())
	_, err := e.Cache.Update(ctx, sample(active.ID, speaker.ID, 5, 89))
	require.NoError(t, err)

	stats, err := e.Statistics.ForSession(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, energy.SourceCache, stats.Source)
	assert.Equal(t, 5, stats.MeasurementCount)

	measured := seedSession(t, seedSpeaker(t, 70), user, models.SessionStatusCompleted, clock.Now())
	require.NoError(t, memoryDB().Conn.Omit("UsageSession").Create(&models.EnergyMeasurement{
		UsageSessionID: measured.ID,
		WattsHours:     0.002,
		RecordedAt:     clock.Now(),
	}).Error)

	stats, err = e.Statistics.ForSession(ctx, measured.ID)
	require.NoError(t, err)
	assert.Equal(t, energy.SourceMeasurements, stats.Source)
	assert.Equal(t, 20, stats.DurationMinutes)

	bare := seedSession(t, seedSpeaker(t, 70), user, models.SessionStatusInterrupted, clock.Now())
	stats, err = e.Statistics.ForSession(ctx, bare.ID)
	require.NoError(t, err)
	assert.Equal(t, energy.SourceMetadata, stats.Source)

	_, err = e.Statistics.ForSession(ctx, 987654)
	assert.ErrorIs(t, err, energy.ErrNotFound)
}
