package energy_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/metrics"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
	_ "liyu1981.xyz/speaker-energy-service/pkg/testing"
)

func TestSessionLifecycle(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 80)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.NotZero(t, started.SessionID)
	assert.Equal(t, clock.Now(), started.StartTime)

	session := reloadSession(t, started.SessionID)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.Equal(t, 80.0, session.InitialBatteryPercentage)
	assert.Equal(t, speaker.Name, session.SpeakerName)
	assert.True(t, reloadSpeaker(t, speaker.ID).State)
	assert.Equal(t, 80.0, reloadSpeaker(t, speaker.ID).BatteryPercentage, "start leaves the battery alone")

	clock.Advance(3*time.Minute + 20*time.Second)
	require.NoError(t, e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 100, 60)))

	view, err := e.Cache.Read(ctx, started.SessionID)
	require.NoError(t, err)
	assert.True(t, view.HasRealtimeData)
	assert.Equal(t, 60.0, view.LatestData.BatteryRemainingPercent)
	assert.Equal(t, 100, view.Statistics.MeasurementCount)
	assert.Equal(t, 3, view.DurationMinutes)

	clock.Advance(time.Minute)
	result, err := e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 55})
	require.NoError(t, err)

	assert.Equal(t, 25.0, result.BatteryConsumed)
	assert.Equal(t, 4, result.DurationMinutes)
	assert.Equal(t, 55.0, result.PersistedBatteryLevel)
	assert.Equal(t, models.SessionStatusCompleted, result.Session.Status)
	require.NotNil(t, result.History)
	assert.Equal(t, 25.0, result.History.BatteryConsumed)
	assert.Equal(t, speaker.Name, result.History.SpeakerName)
	assert.Equal(t, "stage-left", result.History.SpeakerPosition)

	saved := reloadSession(t, started.SessionID)
	assert.Equal(t, models.SessionStatusCompleted, saved.Status)
	require.NotNil(t, saved.FinalBatteryPercentage)
	assert.Equal(t, 55.0, *saved.FinalBatteryPercentage)
	require.NotNil(t, saved.EndTime)
	require.NotNil(t, saved.Metadata)
	assert.Equal(t, 25.0, saved.Metadata.BatteryConsumed)

	after := reloadSpeaker(t, speaker.ID)
	assert.False(t, after.State)
	assert.Equal(t, 55.0, after.BatteryPercentage)

	has, err := e.Cache.Has(ctx, started.SessionID)
	require.NoError(t, err)
	assert.False(t, has)
	assert.Equal(t, int64(1), countHistory(t, started.SessionID))
}

func TestStartThenEndImmediately(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 64)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	result, err := e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 64})
	require.NoError(t, err)

	assert.Equal(t, 0, result.DurationMinutes)
	assert.Equal(t, 0.0, result.BatteryConsumed)
	assert.Equal(t, int64(1), countHistory(t, started.SessionID))
	assert.Nil(t, result.DeviceSummary, "no telemetry arrived, so there is nothing to summarize")
}

func TestEndSession_ClampsBatteryConsumed(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 40)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	// charged while playing
	result, err := e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 62})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.BatteryConsumed)
	assert.Equal(t, 0.0, result.History.BatteryConsumed)
	assert.Equal(t, 62.0, reloadSpeaker(t, speaker.ID).BatteryPercentage)
}

func TestStartSession_Conflict(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 90)
	user := seedUser(t)

	_, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	_, err = e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, energy.ErrConflict)
	assert.Equal(t, energy.ErrConflict, energy.ErrorKind(err))
}

func TestStartSession_NotFound(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 90)
	user := seedUser(t)

	_, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: 987654, UserID: user.ID})
	assert.ErrorIs(t, err, energy.ErrNotFound)

	_, err = e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: 987654})
	assert.ErrorIs(t, err, energy.ErrNotFound)

	active, err := e.Session.GetActiveSession(ctx, speaker.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.False(t, reloadSpeaker(t, speaker.ID).State)
}

func TestStartSession_ConcurrentStartsOnOneSpeaker(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 75)
	user := seedUser(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, energy.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)

	var active int64
	require.NoError(t, memoryDB().Conn.Model(&models.UsageSession{}).
		Where("speaker_id = ? AND status = ?", speaker.ID, models.SessionStatusActive).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestStartSession_BatteryDiscrepancyIsLoggedNotStored(t *testing.T) {
	var buf bytes.Buffer
	common.SetTestCaptureLogger(&buf, zap.InfoLevel)
	defer common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 80)
	user := seedUser(t)

	before := testutil.ToFloat64(metrics.BatteryDiscrepanciesTotal)

	started, err := e.Session.Start(ctx, energy.StartRequest{
		SpeakerID:                speaker.ID,
		UserID:                   user.ID,
		InitialBatteryPercentage: float(50),
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, reloadSession(t, started.SessionID).InitialBatteryPercentage)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BatteryDiscrepanciesTotal))

	var warning map[string]any
	for _, l := range ParseLogs(&buf) {
		entry := l.(map[string]any)
		if entry["msg"] == "Battery discrepancy at session start" {
			warning = entry
		}
	}
	require.NotNil(t, warning)
	assert.Equal(t, "warn", warning["level"])
	assert.Equal(t, common.LoggerNameEnergyCore, warning["logger"])
	assert.Equal(t, common.LoggerCategorySession, warning["category"])
	assert.Equal(t, 50.0, warning["reported"])
	assert.Equal(t, 80.0, warning["persisted"])
	assert.Equal(t, 30.0, warning["diff"])
}

func TestStartSession_SmallDiscrepancyIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	common.SetTestCaptureLogger(&buf, zap.InfoLevel)
	defer common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	speaker := seedSpeaker(t, 80)
	user := seedUser(t)

	_, err := e.Session.Start(t.Context(), energy.StartRequest{
		SpeakerID:                speaker.ID,
		UserID:                   user.ID,
		InitialBatteryPercentage: float(77),
	})
	require.NoError(t, err)

	for _, l := range ParseLogs(&buf) {
		assert.NotEqual(t, "Battery discrepancy at session start", l.(map[string]any)["msg"])
	}
}

func TestIngestTelemetry_Rejections(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 70)
	other := seedSpeaker(t, 70)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	err = e.Session.IngestTelemetry(ctx, sample(987654, speaker.ID, 1, 69))
	assert.ErrorIs(t, err, energy.ErrBadRequest, "unknown session")

	err = e.Session.IngestTelemetry(ctx, sample(started.SessionID, other.ID, 1, 69))
	assert.ErrorIs(t, err, energy.ErrBadRequest, "speaker does not own the session")

	err = e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 1, 140))
	assert.ErrorIs(t, err, energy.ErrBadRequest, "battery out of range")

	_, err = e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 68})
	require.NoError(t, err)

	err = e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 2, 68))
	assert.ErrorIs(t, err, energy.ErrBadRequest, "completed session")

	has, err := e.Cache.Has(ctx, started.SessionID)
	require.NoError(t, err)
	assert.False(t, has, "a rejected sample must not resurrect the cache entry")
}

func TestIngestTelemetry_CacheOnlyThrottlesBatteryWrites(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 90)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	require.NoError(t, e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 1, 88)))
	assert.Equal(t, 88.0, reloadSpeaker(t, speaker.ID).BatteryPercentage)

	clock.Advance(2 * time.Second)
	require.NoError(t, e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 2, 87)))
	assert.Equal(t, 88.0, reloadSpeaker(t, speaker.ID).BatteryPercentage, "within the persist interval")

	view, err := e.Cache.Read(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 87.0, view.LatestData.BatteryRemainingPercent, "the cache always has the latest sample")

	clock.Advance(30 * time.Second)
	require.NoError(t, e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 3, 86)))
	assert.Equal(t, 86.0, reloadSpeaker(t, speaker.ID).BatteryPercentage)

	var rows int64
	require.NoError(t, memoryDB().Conn.Model(&models.EnergyMeasurement{}).Where("usage_session_id = ?", started.SessionID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestIngestTelemetry_DurablePolicy(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyDurable, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 95)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	for i, battery := range []float64{94, 93, 92} {
		clock.Advance(10 * time.Second)
		s := sample(started.SessionID, speaker.ID, i+1, battery)
		s.VoltageV = 3.6
		s.CurrentMA = 360
		s.PowerMW = 1296
		require.NoError(t, e.Session.IngestTelemetry(ctx, s))
	}

	rows, err := e.Gateway.ListMeasurements(ctx, started.SessionID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.InDelta(t, 3.6*10/3600, rows[0].VoltageHours, 1e-12)
	assert.InDelta(t, 0.36*10/3600, rows[0].AmpereHours, 1e-12)
	assert.InDelta(t, 1.296*10/3600, rows[0].WattsHours, 1e-12)
	assert.Equal(t, 92.0, reloadSpeaker(t, speaker.ID).BatteryPercentage, "every sample persists the battery")

	view, err := e.Cache.Read(ctx, started.SessionID)
	require.NoError(t, err)
	assert.True(t, view.HasRealtimeData)
	assert.Equal(t, 92.0, view.LatestData.BatteryRemainingPercent)

	result, err := e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 92})
	require.NoError(t, err)
	assert.Equal(t, energy.SourceMeasurements, result.Statistics.Source)
	assert.Equal(t, 3, result.Statistics.MeasurementCount)
	assert.InDelta(t, 10.0, result.Statistics.AvgMeasurementInterval, 1e-9)
	assert.InDelta(t, 3*3.6*10/3600, result.History.TotalVoltageHours, 1e-12)
	assert.InDelta(t, 3.6, result.History.AvgVoltageHours, 1e-9)
	assert.InDelta(t, 0.36, result.History.AvgAmpereHours, 1e-9)
}

func TestEndSession_WithDeviceSummary(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 100)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	summary := &models.DeviceSummary{
		TotalMeasurementsSent:   900,
		TotalConsumedMAh:        120,
		ReportedDurationSeconds: 1800,
		AvgCurrentMA:            240,
		AvgVoltageV:             3.7,
		AvgPowerMW:              500,
		PeakPowerMW:             800,
		Mode:                    "battery",
	}
	result, err := e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 82, Summary: summary})
	require.NoError(t, err)

	stats := result.Statistics
	assert.Equal(t, energy.SourceDevice, stats.Source)
	assert.Equal(t, 30, stats.DurationMinutes)
	assert.Equal(t, 900, stats.MeasurementCount)
	assert.InDelta(t, 2.0, stats.AvgMeasurementInterval, 1e-9)
	assert.InDelta(t, 0.24, stats.AvgAmpereHours, 1e-9)
	assert.InDelta(t, 0.12, stats.TotalAmpereHours, 1e-9)
	assert.InDelta(t, 1.85, stats.TotalVoltageHours, 1e-9)
	assert.InDelta(t, 0.25, stats.TotalWattsHours, 1e-9)

	require.NotNil(t, result.History.Esp32Data)
	assert.Equal(t, "battery", result.History.Esp32Data.Mode)
	assert.Equal(t, 18.0, result.History.BatteryConsumed)

	// once the cache is gone the stored metadata answers the same totals
	again, err := e.Statistics.ForSession(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, energy.SourceMetadata, again.Source)
	assert.InDelta(t, stats.TotalAmpereHours, again.TotalAmpereHours, 1e-9)
	assert.InDelta(t, stats.TotalWattsHours, again.TotalWattsHours, 1e-9)
	assert.InDelta(t, stats.TotalVoltageHours, again.TotalVoltageHours, 1e-9)
	assert.Equal(t, stats.MeasurementCount, again.MeasurementCount)
	assert.Equal(t, 30, again.DurationMinutes)
}

func TestEndSession_FallsBackToCacheSnapshot(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 100)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 30, 97)))

	result, err := e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 97})
	require.NoError(t, err)

	require.NotNil(t, result.DeviceSummary)
	assert.Equal(t, "cache", result.DeviceSummary.Mode)
	assert.Equal(t, 30, result.DeviceSummary.TotalMeasurementsSent)
	assert.Equal(t, 520.0, result.DeviceSummary.AvgPowerMW)
	assert.Equal(t, 30, result.Statistics.MeasurementCount)
	require.NotNil(t, result.History.Esp32Data)
}

func TestEndSession_Errors(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 50)
	user := seedUser(t)

	_, err := e.Session.End(ctx, 987654, energy.EndRequest{FinalBatteryPercentage: 10})
	assert.ErrorIs(t, err, energy.ErrNotFound)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	_, err = e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 101})
	assert.ErrorIs(t, err, energy.ErrBadRequest)

	_, err = e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 45})
	require.NoError(t, err)

	_, err = e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 40})
	assert.ErrorIs(t, err, energy.ErrBadRequest)
	assert.Equal(t, int64(1), countHistory(t, started.SessionID))
	assert.Equal(t, 45.0, reloadSpeaker(t, speaker.ID).BatteryPercentage)
}

func TestEndSession_ConcurrentEndsCommitOnce(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 50)
	user := seedUser(t)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 30})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, energy.ErrBadRequest)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(1), countHistory(t, started.SessionID))
}

func TestForceEndAll(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	user := seedUser(t)
	first := seedSpeaker(t, 70)
	second := seedSpeaker(t, 35)

	a, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: first.ID, UserID: user.ID})
	require.NoError(t, err)
	b, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: second.ID, UserID: user.ID})
	require.NoError(t, err)
	require.NoError(t, e.Session.IngestTelemetry(ctx, sample(a.SessionID, first.ID, 1, 66)))

	before := testutil.ToFloat64(metrics.SessionsEndedTotal.WithLabelValues(string(models.SessionStatusInterrupted)))

	result, err := e.Session.ForceEndAll(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.TerminatedSessions, 2)
	assert.Equal(t, result.TerminatedSessions, len(result.Sessions))

	for _, tc := range []struct {
		sessionID uint
		speakerID uint
		final     float64
	}{
		{a.SessionID, first.ID, 66},
		{b.SessionID, second.ID, 35},
	} {
		session := reloadSession(t, tc.sessionID)
		assert.Equal(t, models.SessionStatusInterrupted, session.Status)
		require.NotNil(t, session.FinalBatteryPercentage)
		assert.Equal(t, tc.final, *session.FinalBatteryPercentage, "final battery is the persisted speaker value")
		assert.NotNil(t, session.EndTime)

		assert.False(t, reloadSpeaker(t, tc.speakerID).State)

		has, err := e.Cache.Has(ctx, tc.sessionID)
		require.NoError(t, err)
		assert.False(t, has)

		assert.Zero(t, countHistory(t, tc.sessionID))
	}

	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.SessionsEndedTotal.WithLabelValues(string(models.SessionStatusInterrupted))), before+2)

	again, err := e.Session.ForceEndAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.TerminatedSessions)
}

func TestForceShutdown(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 58)
	user := seedUser(t)

	_, err := e.Session.ForceShutdown(ctx, 987654)
	assert.ErrorIs(t, err, energy.ErrNotFound)

	_, err = e.Session.ForceShutdown(ctx, speaker.ID)
	assert.ErrorIs(t, err, energy.ErrBadRequest)
	assert.Contains(t, err.Error(), "No active sessions to terminate")

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	result, err := e.Session.ForceShutdown(ctx, speaker.ID)
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, started.SessionID, result.Sessions[0].SessionID)
	assert.Equal(t, models.SessionStatusInterrupted, result.Sessions[0].Status)
	assert.Equal(t, 58.0, result.Sessions[0].FinalBatteryPercentage)
	assert.False(t, reloadSpeaker(t, speaker.ID).State)

	// the speaker is free again
	_, err = e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	assert.NoError(t, err)
}

func TestReportBattery(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 70)
	other := seedSpeaker(t, 70)
	user := seedUser(t)

	updated, err := e.Session.ReportBattery(ctx, &energy.BatteryReport{SpeakerID: speaker.ID, BatteryRemainingPercent: 68.5})
	require.NoError(t, err)
	assert.Equal(t, 68.5, updated.BatteryPercentage)

	_, err = e.Session.ReportBattery(ctx, &energy.BatteryReport{SpeakerID: speaker.ID, BatteryRemainingPercent: -1})
	assert.ErrorIs(t, err, energy.ErrBadRequest)

	_, err = e.Session.ReportBattery(ctx, &energy.BatteryReport{SpeakerID: 987654, BatteryRemainingPercent: 50})
	assert.ErrorIs(t, err, energy.ErrNotFound)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)

	_, err = e.Session.ReportBattery(ctx, &energy.BatteryReport{
		SpeakerID:               other.ID,
		UsageSessionID:          started.SessionID,
		BatteryRemainingPercent: 50,
	})
	assert.ErrorIs(t, err, energy.ErrBadRequest)

	updated, err = e.Session.ReportBattery(ctx, &energy.BatteryReport{
		SpeakerID:               speaker.ID,
		UsageSessionID:          started.SessionID,
		BatteryRemainingPercent: 67,
	})
	require.NoError(t, err)
	assert.Equal(t, 67.0, updated.BatteryPercentage)
}

func TestLifecycleEventsArePublished(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, _, mockIEvents := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, true)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 80)
	user := seedUser(t)

	eventNamed := func(name string) gomock.Matcher {
		return gomock.Cond(func(ev energy.Event) bool {
			return ev.Name == name && ev.SpeakerID == speaker.ID
		})
	}

	gomock.InOrder(
		mockIEvents.EXPECT().Publish(gomock.Any(), eventNamed(energy.EventSessionStarted)).Return(nil),
		mockIEvents.EXPECT().Publish(gomock.Any(), eventNamed(energy.MeasurementEvent(speaker.ID))).Return(errors.New("hub down")),
		mockIEvents.EXPECT().Publish(gomock.Any(), eventNamed(energy.EventSessionEnded)).Return(nil),
	)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)
	require.NoError(t, e.Session.IngestTelemetry(ctx, sample(started.SessionID, speaker.ID, 1, 79)), "publish failures never fail ingestion")
	_, err = e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 79})
	require.NoError(t, err)
}

func TestStartSession_CacheInitFailureDoesNotFailStart(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, _, mockICache, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, true, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 80)
	user := seedUser(t)

	mockICache.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(errors.New("redis unavailable")).Times(1)

	started, err := e.Session.Start(ctx, energy.StartRequest{SpeakerID: speaker.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, reloadSession(t, started.SessionID).Status)

	mockICache.EXPECT().Get(gomock.Any(), started.SessionID).Return(nil, nil).Times(1)
	mockICache.EXPECT().Clear(gomock.Any(), started.SessionID).Return(false, nil).Times(1)

	_, err = e.Session.End(ctx, started.SessionID, energy.EndRequest{FinalBatteryPercentage: 80})
	require.NoError(t, err)
}
