package energy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

const (
	PolicyCacheOnly = "cache-only"
	PolicyDurable   = "durable"
)

// IngestionPolicy decides where an accepted telemetry sample goes. The
// session was ACTIVE when the sample was accepted, but end may commit before
// Ingest writes anything, so every durable write re-checks the status.
type IngestionPolicy interface {
	Name() string
	Ingest(ctx context.Context, session *models.UsageSession, sample *TelemetrySample) error
	Forget(sessionID uint)
}

func (e *Energy) NewIngestionPolicy(name string) (IngestionPolicy, error) {
	switch name {
	case "", PolicyCacheOnly:
		interval := e.Options.BatteryPersistInterval
		if interval <= 0 {
			interval = DefaultOptions().BatteryPersistInterval
		}
		return &cacheOnlyPolicy{
			energy:        e,
			interval:      interval,
			lastPersisted: make(map[uint]time.Time),
		}, nil
	case PolicyDurable:
		interval := e.Options.SampleInterval
		if interval <= 0 {
			interval = DefaultOptions().SampleInterval
		}
		return &durablePolicy{energy: e, interval: interval}, nil
	default:
		return nil, fmt.Errorf("unknown ingestion policy %q", name)
	}
}

// holdActive touches the session row only while it is still ACTIVE. Inside a
// transaction this orders the caller after, or before, a concurrent end.
func holdActive(ctx context.Context, tx IGateway, sessionID uint) error {
	return tx.UpdateSession(ctx, sessionID, SessionUpdate{ExpectStatus: models.SessionStatusActive})
}

func ingestionLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameEnergyCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryIngestion),
	)
}

// cacheOnlyPolicy keeps telemetry in the realtime cache and writes the
// speaker battery back at most once per interval per session.
type cacheOnlyPolicy struct {
	energy   *Energy
	interval time.Duration

	mu            sync.Mutex
	lastPersisted map[uint]time.Time
}

func (p *cacheOnlyPolicy) Name() string {
	return PolicyCacheOnly
}

func (p *cacheOnlyPolicy) Ingest(ctx context.Context, session *models.UsageSession, sample *TelemetrySample) error {
	updated, err := p.energy.Cache.Update(ctx, sample)
	if err != nil {
		return err
	}
	if !updated {
		// the cache only drops samples for sessions that are no longer ACTIVE
		return badRequest("session %d not found or not active", session.ID)
	}

	now := p.energy.clock().Now()
	if !p.due(session.ID, now) {
		return nil
	}

	battery := sample.BatteryRemainingPercent
	err = p.energy.Gateway.Transaction(ctx, func(tx IGateway) error {
		if err := holdActive(ctx, tx, session.ID); err != nil {
			return err
		}
		return tx.UpdateSpeaker(ctx, session.SpeakerID, SpeakerUpdate{BatteryPercentage: &battery})
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.lastPersisted[session.ID] = now
	p.mu.Unlock()

	ingestionLogger().Debug("Persisted speaker battery",
		zap.Uint("speakerId", session.SpeakerID),
		zap.Float64("battery", battery),
	)
	return nil
}

func (p *cacheOnlyPolicy) due(sessionID uint, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	last, ok := p.lastPersisted[sessionID]
	return !ok || now.Sub(last) >= p.interval
}

func (p *cacheOnlyPolicy) Forget(sessionID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.lastPersisted, sessionID)
}

// durablePolicy writes one EnergyMeasurement per sample, integrating the
// instantaneous readings over the nominal sample interval, then refreshes
// the realtime cache so reads behave the same under both policies.
type durablePolicy struct {
	energy   *Energy
	interval time.Duration
}

func (p *durablePolicy) Name() string {
	return PolicyDurable
}

func (p *durablePolicy) Ingest(ctx context.Context, session *models.UsageSession, sample *TelemetrySample) error {
	hours := p.interval.Hours()
	battery := sample.BatteryRemainingPercent

	measurement := &models.EnergyMeasurement{
		UsageSessionID:    session.ID,
		VoltageHours:      sample.VoltageV * hours,
		AmpereHours:       sample.CurrentMA / 1000 * hours,
		WattsHours:        sample.PowerMW / 1000 * hours,
		BatteryPercentage: battery,
		RecordedAt:        p.energy.clock().Now(),
	}

	err := p.energy.Gateway.Transaction(ctx, func(tx IGateway) error {
		if err := holdActive(ctx, tx, session.ID); err != nil {
			return err
		}
		if err := tx.CreateMeasurement(ctx, measurement); err != nil {
			return err
		}
		return tx.UpdateSpeaker(ctx, session.SpeakerID, SpeakerUpdate{BatteryPercentage: &battery})
	})
	if err != nil {
		return err
	}

	if _, err := p.energy.Cache.Update(ctx, sample); err != nil {
		// stale until the next sample
		ingestionLogger().Warn("Failed to refresh cache after measurement",
			zap.Uint("sessionId", session.ID),
			zap.Error(err),
		)
	}
	return nil
}

func (p *durablePolicy) Forget(uint) {}
