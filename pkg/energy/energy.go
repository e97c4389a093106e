package energy

//go:generate mockgen -source=energy.go -destination=mocks/energy_mock.go -package=mocks

import (
	"context"
	"sync"
	"time"

	"liyu1981.xyz/speaker-energy-service/pkg/kv"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type IGateway interface {
	GetSpeaker(ctx context.Context, id uint) (*models.Speaker, error)
	ListSpeakers(ctx context.Context) ([]models.Speaker, error)
	UpdateSpeaker(ctx context.Context, id uint, upd SpeakerUpdate) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	FindActiveSessionBySpeaker(ctx context.Context, speakerID uint) (*models.UsageSession, error)
	GetSession(ctx context.Context, id uint) (*models.UsageSession, error)
	CreateSession(ctx context.Context, session *models.UsageSession) error
	UpdateSession(ctx context.Context, id uint, upd SessionUpdate) error
	ListActiveSessions(ctx context.Context) ([]models.UsageSession, error)
	ListActiveSessionIDs(ctx context.Context) ([]uint, error)
	CreateHistory(ctx context.Context, history *models.History) error
	GetHistoryBySession(ctx context.Context, sessionID uint) (*models.History, error)
	ListHistory(ctx context.Context, query HistoryQuery) ([]models.History, int64, error)
	ListCompletedSessionsWithoutHistory(ctx context.Context) ([]models.UsageSession, error)
	CreateMeasurement(ctx context.Context, measurement *models.EnergyMeasurement) error
	ListMeasurements(ctx context.Context, sessionID uint) ([]models.EnergyMeasurement, error)
	Transaction(ctx context.Context, fn func(tx IGateway) error) error
	Ping(ctx context.Context) error
}

type IRealtimeCache interface {
	Initialize(ctx context.Context, sessionID uint) error
	Update(ctx context.Context, sample *TelemetrySample) (bool, error)
	Get(ctx context.Context, sessionID uint) (*CacheEntry, error)
	Read(ctx context.Context, sessionID uint) (*RealtimeView, error)
	Clear(ctx context.Context, sessionID uint) (bool, error)
	Has(ctx context.Context, sessionID uint) (bool, error)
	SweepInactive(ctx context.Context) (int, error)
	Info(ctx context.Context) (*CacheInfo, error)
	Ping(ctx context.Context) error
}

type ISession interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
	IngestTelemetry(ctx context.Context, sample *TelemetrySample) error
	ReportBattery(ctx context.Context, report *BatteryReport) (*models.Speaker, error)
	End(ctx context.Context, sessionID uint, req EndRequest) (*EndResult, error)
	ForceEndAll(ctx context.Context) (*ForceEndResult, error)
	ForceShutdown(ctx context.Context, speakerID uint) (*ForceEndResult, error)
	GetSession(ctx context.Context, sessionID uint) (*models.UsageSession, error)
	GetActiveSession(ctx context.Context, speakerID uint) (*models.UsageSession, error)
}

type IStatistics interface {
	ForSession(ctx context.Context, sessionID uint) (*Statistics, error)
	FromCache(entry *CacheEntry) *Statistics
	FromDeviceSummary(summary *models.DeviceSummary, elapsed time.Duration) *Statistics
	FromMetadata(session *models.UsageSession) *Statistics
	FromMeasurements(session *models.UsageSession, rows []models.EnergyMeasurement) *Statistics
}

type IHistory interface {
	Build(in CommitInput) *models.History
	Commit(ctx context.Context, gateway IGateway, in CommitInput) (*models.History, error)
	Backfill(ctx context.Context) (int, error)
}

type IEventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type Options struct {
	// Policy is PolicyCacheOnly or PolicyDurable.
	Policy                      string
	SampleInterval              time.Duration
	BatteryPersistInterval      time.Duration
	BatteryDiscrepancyThreshold float64
}

func DefaultOptions() Options {
	return Options{
		Policy:                      PolicyCacheOnly,
		SampleInterval:              10 * time.Second,
		BatteryPersistInterval:      30 * time.Second,
		BatteryDiscrepancyThreshold: 5,
	}
}

type Energy struct {
	Gateway IGateway
	Store   kv.Store
	Clock   Clock
	Options Options

	Cache      IRealtimeCache
	Session    ISession
	Statistics IStatistics
	History    IHistory
	Policy     IngestionPolicy
	Events     IEventPublisher

	locksOnce    sync.Once
	speakerLocks *keyedMutex
	cacheLocks   *keyedMutex
}

type ServiceOpts struct {
	Cache      IRealtimeCache
	Session    ISession
	Statistics IStatistics
	History    IHistory
	Policy     IngestionPolicy
	Events     IEventPublisher
}

func (e *Energy) WithServices(opts ServiceOpts) *Energy {
	if opts.Cache != nil {
		e.Cache = opts.Cache
	}
	if opts.Session != nil {
		e.Session = opts.Session
	}
	if opts.Statistics != nil {
		e.Statistics = opts.Statistics
	}
	if opts.History != nil {
		e.History = opts.History
	}
	if opts.Policy != nil {
		e.Policy = opts.Policy
	}
	if opts.Events != nil {
		e.Events = opts.Events
	}
	return e
}

// New wires the default service implementations over gateway and store.
func New(gateway IGateway, store kv.Store, opts Options) (*Energy, error) {
	e := &Energy{
		Gateway: gateway,
		Store:   store,
		Clock:   SystemClock{},
		Options: opts,
	}

	policy, err := e.NewIngestionPolicy(opts.Policy)
	if err != nil {
		return nil, err
	}

	e.WithServices(ServiceOpts{
		Cache:      e.GetIRealtimeCache(),
		Session:    e.GetISession(),
		Statistics: e.GetIStatistics(),
		History:    e.GetIHistory(),
		Policy:     policy,
		Events:     NopPublisher{},
	})

	return e, nil
}

func (e *Energy) clock() Clock {
	if e.Clock == nil {
		return SystemClock{}
	}
	return e.Clock
}

func (e *Energy) initLocks() {
	e.locksOnce.Do(func() {
		e.speakerLocks = newKeyedMutex()
		e.cacheLocks = newKeyedMutex()
	})
}

func (e *Energy) locksForSpeakers() *keyedMutex {
	e.initLocks()
	return e.speakerLocks
}

func (e *Energy) locksForCache() *keyedMutex {
	e.initLocks()
	return e.cacheLocks
}
