package energy_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/kv"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

func TestCacheInitialize_OnlyForActiveSessions(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	user := seedUser(t)
	active := seedSession(t, seedSpeaker(t, 77), user, models.SessionStatusActive, clock.Now())
	done := seedSession(t, seedSpeaker(t, 77), user, models.SessionStatusCompleted, clock.Now())

	require.NoError(t, e.Cache.Initialize(ctx, 987654), "unknown sessions are a silent no-op")
	require.NoError(t, e.Cache.Initialize(ctx, done.ID))
	require.NoError(t, e.Cache.Initialize(ctx, active.ID))

	for id, want := range map[uint]bool{987654: false, done.ID: false, active.ID: true} {
		has, err := e.Cache.Has(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, has, "session %d", id)
	}

	entry, err := e.Cache.Get(ctx, active.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 77.0, entry.LatestData.BatteryRemainingPercent)
	assert.Equal(t, 77.0, entry.InitialBatteryPercentage)
	assert.Zero(t, entry.Statistics.MeasurementCount)
	assert.Zero(t, entry.Statistics.DurationSeconds)
	assert.Equal(t, models.SessionStatusActive, entry.Status)
}

func TestCacheUpdate_SelfHealsOnMiss(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 90)
	session := seedSession(t, speaker, seedUser(t), models.SessionStatusActive, clock.Now())
	clock.Advance(5 * time.Minute)

	in := sample(session.ID, speaker.ID, 12, 84)
	applied, err := e.Cache.Update(ctx, in)
	require.NoError(t, err)
	assert.True(t, applied)

	view, err := e.Cache.Read(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, view.HasRealtimeData)
	assert.Equal(t, speaker.Name, view.SpeakerName)
	assert.Equal(t, 5, view.DurationMinutes)
	assert.Equal(t, energy.LatestData{
		Timestamp:               in.Timestamp,
		CurrentMA:               in.CurrentMA,
		VoltageV:                in.VoltageV,
		PowerMW:                 in.PowerMW,
		BatteryRemainingPercent: in.BatteryRemainingPercent,
		TotalConsumedMAh:        in.TotalConsumedMAh,
		SampleIndex:             in.SampleIndex,
	}, view.LatestData)
	assert.Equal(t, energy.RunningStatistics{
		AvgCurrentMA:     in.AvgCurrentMA,
		AvgVoltageV:      in.AvgVoltageV,
		AvgPowerMW:       in.AvgPowerMW,
		PeakPowerMW:      in.PeakPowerMW,
		MeasurementCount: in.SampleIndex,
		TotalConsumedMAh: in.TotalConsumedMAh,
		DurationSeconds:  in.Timestamp,
	}, view.Statistics)
}

func TestCacheUpdate_LatestSampleWins(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 90)
	session := seedSession(t, speaker, seedUser(t), models.SessionStatusActive, clock.Now())

	for i, battery := range []float64{89, 88, 87} {
		_, err := e.Cache.Update(ctx, sample(session.ID, speaker.ID, i+1, battery))
		require.NoError(t, err)
	}

	entry, err := e.Cache.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 87.0, entry.LatestData.BatteryRemainingPercent)
	assert.Equal(t, 3, entry.Statistics.MeasurementCount)
}

func TestCacheUpdate_DropsSamplesForUnknownOrEndedSessions(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 90)
	done := seedSession(t, speaker, seedUser(t), models.SessionStatusInterrupted, clock.Now())

	for _, id := range []uint{987654, done.ID} {
		applied, err := e.Cache.Update(ctx, sample(id, speaker.ID, 1, 80))
		require.NoError(t, err)
		assert.False(t, applied)

		has, err := e.Cache.Has(ctx, id)
		require.NoError(t, err)
		assert.False(t, has)
	}
}

func TestCacheClear_Idempotent(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	session := seedSession(t, seedSpeaker(t, 60), seedUser(t), models.SessionStatusActive, clock.Now())
	require.NoError(t, e.Cache.Initialize(ctx, session.ID))

	cleared, err := e.Cache.Clear(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, cleared)

	cleared, err = e.Cache.Clear(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestCacheRead_ColdFallback(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	speaker := seedSpeaker(t, 42)
	session := seedSession(t, speaker, seedUser(t), models.SessionStatusActive, clock.Now())
	clock.Advance(7*time.Minute + 30*time.Second)

	view, err := e.Cache.Read(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, view.HasRealtimeData)
	assert.Equal(t, 42.0, view.LatestData.BatteryRemainingPercent)
	assert.Equal(t, 7, view.DurationMinutes)
	assert.Equal(t, 420.0, view.Statistics.DurationSeconds)
	assert.Zero(t, view.LatestData.PowerMW)
	assert.Zero(t, view.Statistics.MeasurementCount)

	_, err = e.Cache.Read(ctx, 987654)
	assert.ErrorIs(t, err, energy.ErrNotFound)
}

func TestCacheSweepInactive(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	user := seedUser(t)
	speaker := seedSpeaker(t, 90)
	live := seedSession(t, speaker, user, models.SessionStatusActive, clock.Now())
	stale := seedSession(t, seedSpeaker(t, 90), user, models.SessionStatusActive, clock.Now())

	require.NoError(t, e.Cache.Initialize(ctx, live.ID))
	require.NoError(t, e.Cache.Initialize(ctx, stale.ID))

	// ended behind the cache's back
	require.NoError(t, memoryDB().Conn.Model(&models.UsageSession{}).
		Where("id = ?", stale.ID).
		Update("status", models.SessionStatusCompleted).Error)
	require.NoError(t, e.Store.Set(ctx, "not-a-session", []byte("{}")))

	removed, err := e.Cache.SweepInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	keys, err := e.Store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{strconv.FormatUint(uint64(live.ID), 10)}, keys)

	has, err := e.Cache.Has(ctx, live.ID)
	require.NoError(t, err)
	assert.True(t, has)

	removed, err = e.Cache.SweepInactive(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCacheInfo(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()

	ctx := t.Context()
	user := seedUser(t)
	first := seedSpeaker(t, 90)
	second := seedSpeaker(t, 80)
	a := seedSession(t, first, user, models.SessionStatusActive, clock.Now())
	b := seedSession(t, second, user, models.SessionStatusActive, clock.Now())

	_, err := e.Cache.Update(ctx, sample(b.ID, second.ID, 4, 79))
	require.NoError(t, err)
	_, err = e.Cache.Update(ctx, sample(a.ID, first.ID, 9, 88))
	require.NoError(t, err)

	info, err := e.Cache.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", info.Backend)
	assert.Equal(t, 2, info.TotalSessions)
	require.Len(t, info.Sessions, 2)
	assert.Equal(t, a.ID, info.Sessions[0].SessionID, "sorted by session id")
	assert.Equal(t, 9, info.Sessions[0].MeasurementCount)
	assert.Equal(t, 88.0, info.Sessions[0].BatteryPercent)
	assert.Equal(t, second.ID, info.Sessions[1].SpeakerID)
}

func TestCacheOverRedisStore(t *testing.T) {
	common.SetTestLoggerNop()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctrl, e, clock, _, _ := GetMockEnergyWithMemorySqliteDialector(t, energy.PolicyCacheOnly, false, false)
	defer ctrl.Finish()
	e.Store = kv.NewRedisStore(client, "test:realtime:", time.Hour)

	ctx := t.Context()
	speaker := seedSpeaker(t, 90)
	session := seedSession(t, speaker, seedUser(t), models.SessionStatusActive, clock.Now())

	applied, err := e.Cache.Update(ctx, sample(session.ID, speaker.ID, 3, 89))
	require.NoError(t, err)
	assert.True(t, applied)

	view, err := e.Cache.Read(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, view.HasRealtimeData)
	assert.Equal(t, 89.0, view.LatestData.BatteryRemainingPercent)
	assert.True(t, mr.Exists("test:realtime:"+strconv.FormatUint(uint64(session.ID), 10)))

	require.NoError(t, e.Cache.Ping(ctx))

	cleared, err := e.Cache.Clear(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, cleared)
}
