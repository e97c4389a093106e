package energy_test

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/speaker-energy-service/pkg/db"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/energy/mocks"
	"liyu1981.xyz/speaker-energy-service/pkg/kv"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func GetMockEnergyWithMemorySqliteDialector(t *testing.T, policy string, useMockCache, useMockEvents bool) (
	*gomock.Controller,
	*energy.Energy,
	*fakeClock,
	*mocks.MockIRealtimeCache,
	*mocks.MockIEventPublisher,
) {
	ctrl := gomock.NewController(t)

	mockICache := mocks.NewMockIRealtimeCache(ctrl)
	mockIEvents := mocks.NewMockIEventPublisher(ctrl)
	dbInstance := db.GetInstance(db.UseMemorySqliteDialector()) // ensure migrations

	opts := energy.DefaultOptions()
	opts.Policy = policy

	store, err := kv.NewMemoryStore(128)
	require.NoError(t, err)

	energyInstance, err := energy.New(energy.NewGateway(dbInstance), store, opts)
	require.NoError(t, err)

	clock := newFakeClock()
	energyInstance.Clock = clock

	cacheService := energyInstance.GetIRealtimeCache()
	if useMockCache {
		cacheService = mockICache
	}

	var eventService energy.IEventPublisher = energy.NopPublisher{}
	if useMockEvents {
		eventService = mockIEvents
	}

	energyInstance.WithServices(energy.ServiceOpts{
		Cache:  cacheService,
		Events: eventService,
	})

	return ctrl, energyInstance, clock, mockICache, mockIEvents
}

func memoryDB() *db.DB {
	return db.GetInstance(db.UseMemorySqliteDialector())
}

func seedSpeaker(t *testing.T, battery float64) *models.Speaker {
	t.Helper()
	speaker := &models.Speaker{
		Name:              "speaker-" + uuid.NewString()[:8],
		Position:          "stage-left",
		BatteryPercentage: battery,
	}
	require.NoError(t, memoryDB().Conn.Create(speaker).Error)
	return speaker
}

func seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		Username: "user-" + uuid.NewString(),
		Email:    "operator@example.com",
	}
	require.NoError(t, memoryDB().Conn.Create(user).Error)
	return user
}

// seedSession inserts a session row directly, bypassing the lifecycle controller.
func seedSession(t *testing.T, speaker *models.Speaker, user *models.User, status models.SessionStatus, start time.Time) *models.UsageSession {
	t.Helper()
	session := &models.UsageSession{
		SpeakerID:                speaker.ID,
		UserID:                   user.ID,
		SpeakerName:              speaker.Name,
		SpeakerPosition:          speaker.Position,
		Status:                   status,
		StartTime:                start,
		InitialBatteryPercentage: speaker.BatteryPercentage,
	}
	if status.IsTerminal() {
		end := start.Add(20 * time.Minute)
		session.EndTime = &end
	}
	require.NoError(t, memoryDB().Conn.Omit("Speaker", "User").Create(session).Error)
	return session
}

func reloadSpeaker(t *testing.T, id uint) *models.Speaker {
	t.Helper()
	var speaker models.Speaker
	require.NoError(t, memoryDB().Conn.First(&speaker, id).Error)
	return &speaker
}

func reloadSession(t *testing.T, id uint) *models.UsageSession {
	t.Helper()
	var session models.UsageSession
	require.NoError(t, memoryDB().Conn.First(&session, id).Error)
	return &session
}

func countHistory(t *testing.T, sessionID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, memoryDB().Conn.Model(&models.History{}).Where("usage_session_id = ?", sessionID).Count(&n).Error)
	return n
}

func sample(sessionID, speakerID uint, index int, battery float64) *energy.TelemetrySample {
	return &energy.TelemetrySample{
		SessionID:               sessionID,
		SpeakerID:               speakerID,
		Timestamp:               float64(index * 2),
		CurrentMA:               150,
		VoltageV:                3.7,
		PowerMW:                 555,
		BatteryRemainingPercent: battery,
		TotalConsumedMAh:        float64(index) * 0.1,
		SampleIndex:             index,
		AvgCurrentMA:            140,
		AvgVoltageV:             3.72,
		AvgPowerMW:              520,
		PeakPowerMW:             610,
	}
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func float(v float64) *float64 {
	return &v
}
