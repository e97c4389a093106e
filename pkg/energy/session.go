package energy

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/metrics"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type StartRequest struct {
	SpeakerID uint `json:"speakerId"`
	UserID    uint `json:"userId"`
	// InitialBatteryPercentage is what the device believes; only compared
	// against the persisted value, never stored.
	InitialBatteryPercentage *float64 `json:"initialBatteryPercentage,omitempty"`
	Mode                     string   `json:"mode,omitempty"`
}

type StartResult struct {
	SessionID uint      `json:"id"`
	StartTime time.Time `json:"startTime"`
}

// BatteryReport is the slower device heartbeat carrying only the battery.
type BatteryReport struct {
	SpeakerID               uint    `json:"speaker_id"`
	UsageSessionID          uint    `json:"usage_session_id,omitempty"`
	Timestamp               float64 `json:"timestamp"`
	CurrentMA               float64 `json:"current_mA"`
	VoltageV                float64 `json:"voltage_V"`
	PowerMW                 float64 `json:"power_mW"`
	BatteryRemainingPercent float64 `json:"battery_remaining_percent"`
	TotalConsumedMAh        float64 `json:"total_consumed_mAh"`
	SampleIndex             int     `json:"sample_index"`
}

type EndRequest struct {
	FinalBatteryPercentage float64               `json:"finalBatteryPercentage"`
	Summary                *models.DeviceSummary `json:"esp32Summary,omitempty"`
}

type EndResult struct {
	Session               *models.UsageSession  `json:"session"`
	History               *models.History       `json:"historyRecord"`
	Statistics            *Statistics           `json:"statistics"`
	DurationMinutes       int                   `json:"durationMinutes"`
	BatteryConsumed       float64               `json:"batteryConsumed"`
	DeviceSummary         *models.DeviceSummary `json:"esp32Data"`
	PersistedBatteryLevel float64               `json:"persistedBatteryLevel"`
}

type TerminatedSession struct {
	SessionID              uint                 `json:"sessionId"`
	SpeakerID              uint                 `json:"speakerId"`
	Status                 models.SessionStatus `json:"status"`
	FinalBatteryPercentage float64              `json:"finalBatteryPercentage"`
}

type ForceEndResult struct {
	TerminatedSessions int                 `json:"terminatedSessions"`
	Sessions           []TerminatedSession `json:"sessions"`
}

func sessionLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameEnergyCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySession),
	)
}

func (e *Energy) publish(ctx context.Context, event Event) {
	if e.Events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.clock().Now()
	}
	if err := e.Events.Publish(ctx, event); err != nil {
		sessionLogger().Warn("Failed to publish event", zap.String("event", event.Name), zap.Error(err))
	}
}

func (e *Energy) startSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	logger := sessionLogger()

	unlock := e.locksForSpeakers().Lock(req.SpeakerID)
	defer unlock()

	existing, err := e.Gateway.FindActiveSessionBySpeaker(ctx, req.SpeakerID)
	if err == nil {
		return nil, conflict("speaker %d already has active session %d", req.SpeakerID, existing.ID)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	speaker, err := e.Gateway.GetSpeaker(ctx, req.SpeakerID)
	if err != nil {
		return nil, err
	}
	if _, err := e.Gateway.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	persisted := speaker.BatteryPercentage
	if req.InitialBatteryPercentage != nil {
		diff := math.Abs(*req.InitialBatteryPercentage - persisted)
		if diff > e.Options.BatteryDiscrepancyThreshold {
			metrics.BatteryDiscrepanciesTotal.Inc()
			logger.Warn("Battery discrepancy at session start",
				zap.Uint("speakerId", speaker.ID),
				zap.Float64("reported", *req.InitialBatteryPercentage),
				zap.Float64("persisted", persisted),
				zap.Float64("diff", diff),
			)
		}
	}

	session := &models.UsageSession{
		SpeakerID:                speaker.ID,
		UserID:                   req.UserID,
		SpeakerName:              speaker.Name,
		SpeakerPosition:          speaker.Position,
		Status:                   models.SessionStatusActive,
		StartTime:                e.clock().Now(),
		InitialBatteryPercentage: persisted,
	}

	on := true
	err = e.Gateway.Transaction(ctx, func(tx IGateway) error {
		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}
		return tx.UpdateSpeaker(ctx, speaker.ID, SpeakerUpdate{State: &on})
	})
	if err != nil {
		return nil, err
	}

	if err := e.Cache.Initialize(ctx, session.ID); err != nil {
		logger.Error("Failed to initialize cache entry", zap.Uint("sessionId", session.ID), zap.Error(err))
	}

	metrics.SessionsStartedTotal.Inc()
	metrics.ActiveSessions.Inc()

	logger.Info("Session started",
		zap.Uint("sessionId", session.ID),
		zap.Uint("speakerId", speaker.ID),
		zap.Uint("userId", req.UserID),
		zap.Float64("initialBattery", persisted),
		zap.String("mode", req.Mode),
	)

	e.publish(ctx, Event{
		Name:      EventSessionStarted,
		SpeakerID: speaker.ID,
		SessionID: session.ID,
		Data:      session,
	})

	return &StartResult{SessionID: session.ID, StartTime: session.StartTime}, nil
}

func (e *Energy) activeSession(ctx context.Context, sessionID uint) (*models.UsageSession, error) {
	session, err := e.Gateway.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, badRequest("session %d not found or not active", sessionID)
	}
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		return nil, badRequest("session %d not found or not active", sessionID)
	}
	return session, nil
}

func (e *Energy) ingestTelemetry(ctx context.Context, sample *TelemetrySample) error {
	policy := e.Policy.Name()

	session, err := e.activeSession(ctx, sample.SessionID)
	if err == nil && sample.SpeakerID != 0 && sample.SpeakerID != session.SpeakerID {
		err = badRequest("session %d does not belong to speaker %d", sample.SessionID, sample.SpeakerID)
	}
	if err == nil && (sample.BatteryRemainingPercent < 0 || sample.BatteryRemainingPercent > 100) {
		err = badRequest("battery_remaining_percent %.2f out of range", sample.BatteryRemainingPercent)
	}
	if err != nil {
		metrics.TelemetrySamplesTotal.WithLabelValues(policy, "rejected").Inc()
		return err
	}

	if err := e.Policy.Ingest(ctx, session, sample); err != nil {
		metrics.TelemetrySamplesTotal.WithLabelValues(policy, "failed").Inc()
		return err
	}
	metrics.TelemetrySamplesTotal.WithLabelValues(policy, "accepted").Inc()

	e.publish(ctx, Event{
		Name:      MeasurementEvent(session.SpeakerID),
		SpeakerID: session.SpeakerID,
		SessionID: session.ID,
		Data:      sample,
	})
	return nil
}

func (e *Energy) reportBattery(ctx context.Context, report *BatteryReport) (*models.Speaker, error) {
	logger := sessionLogger()

	if report.BatteryRemainingPercent < 0 || report.BatteryRemainingPercent > 100 {
		return nil, badRequest("battery_remaining_percent %.2f out of range", report.BatteryRemainingPercent)
	}

	if report.UsageSessionID > 0 {
		session, err := e.activeSession(ctx, report.UsageSessionID)
		if err != nil {
			return nil, err
		}
		if session.SpeakerID != report.SpeakerID {
			return nil, badRequest("session %d does not belong to speaker %d", report.UsageSessionID, report.SpeakerID)
		}
	}

	battery := report.BatteryRemainingPercent
	if err := e.Gateway.UpdateSpeaker(ctx, report.SpeakerID, SpeakerUpdate{BatteryPercentage: &battery}); err != nil {
		return nil, err
	}

	logger.Info("Speaker battery reported", zap.Uint("speakerId", report.SpeakerID), zap.Float64("battery", battery))
	return e.Gateway.GetSpeaker(ctx, report.SpeakerID)
}

func summaryFromCache(entry *CacheEntry) *models.DeviceSummary {
	return &models.DeviceSummary{
		TotalMeasurementsSent:   entry.Statistics.MeasurementCount,
		TotalConsumedMAh:        entry.Statistics.TotalConsumedMAh,
		ReportedDurationSeconds: int(entry.Statistics.DurationSeconds),
		AvgCurrentMA:            entry.Statistics.AvgCurrentMA,
		AvgVoltageV:             entry.Statistics.AvgVoltageV,
		AvgPowerMW:              entry.Statistics.AvgPowerMW,
		PeakPowerMW:             entry.Statistics.PeakPowerMW,
		Mode:                    "cache",
	}
}

func (e *Energy) endSession(ctx context.Context, sessionID uint, req EndRequest) (*EndResult, error) {
	logger := sessionLogger()

	if req.FinalBatteryPercentage < 0 || req.FinalBatteryPercentage > 100 {
		return nil, badRequest("finalBatteryPercentage %.2f out of range", req.FinalBatteryPercentage)
	}

	session, err := e.Gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := e.locksForSpeakers().Lock(session.SpeakerID)
	defer unlock()

	if session.Status != models.SessionStatusActive {
		return nil, badRequest("session %d is %s", sessionID, session.Status)
	}

	now := e.clock().Now()
	elapsed := now.Sub(session.StartTime)
	durationMinutes := wholeMinutes(elapsed)
	final := req.FinalBatteryPercentage
	consumed := common.NonNegative(session.InitialBatteryPercentage - final)

	summary := req.Summary
	if summary == nil {
		entry, err := e.Cache.Get(ctx, sessionID)
		if err != nil {
			logger.Warn("Cache unavailable for end summary", zap.Uint("sessionId", sessionID), zap.Error(err))
		} else if entry != nil {
			summary = summaryFromCache(entry)
		}
	}

	var stats *Statistics
	if e.Policy.Name() == PolicyDurable {
		rows, err := e.Gateway.ListMeasurements(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			stats = e.Statistics.FromMeasurements(session, rows)
			stats.DurationMinutes = durationMinutes
		}
	}
	if stats == nil {
		stats = e.Statistics.FromDeviceSummary(summary, elapsed)
	}

	metadata := &models.SessionMetadata{
		ActualDurationMinutes: durationMinutes,
		BatteryConsumed:       consumed,
		TotalVoltageHours:     stats.TotalVoltageHours,
		TotalWattsHours:       stats.TotalWattsHours,
		TotalAmpereHours:      stats.TotalAmpereHours,
	}
	if summary != nil {
		metadata.TotalMeasurementsSent = summary.TotalMeasurementsSent
		metadata.TotalConsumedMAh = summary.TotalConsumedMAh
		metadata.ReportedDurationSeconds = summary.ReportedDurationSeconds
		metadata.AvgCurrentMA = summary.AvgCurrentMA
		metadata.AvgVoltageV = summary.AvgVoltageV
		metadata.AvgPowerMW = summary.AvgPowerMW
		metadata.PeakPowerMW = summary.PeakPowerMW
	}

	completed := models.SessionStatusCompleted
	off := false
	var history *models.History

	err = e.Gateway.Transaction(ctx, func(tx IGateway) error {
		err := tx.UpdateSession(ctx, sessionID, SessionUpdate{
			ExpectStatus:           models.SessionStatusActive,
			Status:                 &completed,
			EndTime:                &now,
			FinalBatteryPercentage: &final,
			Metadata:               metadata,
		})
		if err != nil {
			return err
		}

		session.Status = completed
		session.EndTime = &now
		session.FinalBatteryPercentage = &final
		session.Metadata = metadata

		history, err = e.History.Commit(ctx, tx, CommitInput{
			Session:         session,
			EndTime:         now,
			DurationMinutes: durationMinutes,
			FinalBattery:    final,
			BatteryConsumed: consumed,
			Statistics:      stats,
			Summary:         summary,
		})
		if err != nil {
			return err
		}

		return tx.UpdateSpeaker(ctx, session.SpeakerID, SpeakerUpdate{State: &off, BatteryPercentage: &final})
	})
	if err != nil {
		return nil, err
	}

	if session.Speaker != nil {
		session.Speaker.State = false
		session.Speaker.BatteryPercentage = final
	}

	if _, err := e.Cache.Clear(ctx, sessionID); err != nil {
		logger.Error("Failed to clear cache entry", zap.Uint("sessionId", sessionID), zap.Error(err))
	}
	e.Policy.Forget(sessionID)

	metrics.SessionsEndedTotal.WithLabelValues(string(completed)).Inc()
	metrics.ActiveSessions.Dec()

	logger.Info("Session ended",
		zap.Uint("sessionId", sessionID),
		zap.Uint("speakerId", session.SpeakerID),
		zap.Int("durationMinutes", durationMinutes),
		zap.Float64("batteryConsumed", consumed),
	)

	e.publish(ctx, Event{
		Name:      EventSessionEnded,
		SpeakerID: session.SpeakerID,
		SessionID: sessionID,
		Data:      session,
	})

	return &EndResult{
		Session:               session,
		History:               history,
		Statistics:            stats,
		DurationMinutes:       durationMinutes,
		BatteryConsumed:       consumed,
		DeviceSummary:         summary,
		PersistedBatteryLevel: final,
	}, nil
}

// interruptSession ends one session without device telemetry: the speaker's
// persisted battery becomes the final value and no History row is written.
func (e *Energy) interruptSession(ctx context.Context, session *models.UsageSession) (*TerminatedSession, error) {
	unlock := e.locksForSpeakers().Lock(session.SpeakerID)
	defer unlock()

	speaker, err := e.Gateway.GetSpeaker(ctx, session.SpeakerID)
	if err != nil {
		return nil, err
	}

	now := e.clock().Now()
	final := speaker.BatteryPercentage
	interrupted := models.SessionStatusInterrupted
	off := false

	err = e.Gateway.Transaction(ctx, func(tx IGateway) error {
		err := tx.UpdateSession(ctx, session.ID, SessionUpdate{
			ExpectStatus:           models.SessionStatusActive,
			Status:                 &interrupted,
			EndTime:                &now,
			FinalBatteryPercentage: &final,
		})
		if err != nil {
			return err
		}
		return tx.UpdateSpeaker(ctx, session.SpeakerID, SpeakerUpdate{State: &off})
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.Cache.Clear(ctx, session.ID); err != nil {
		sessionLogger().Error("Failed to clear cache entry", zap.Uint("sessionId", session.ID), zap.Error(err))
	}
	e.Policy.Forget(session.ID)

	metrics.SessionsEndedTotal.WithLabelValues(string(interrupted)).Inc()
	metrics.ActiveSessions.Dec()

	session.Status = interrupted
	session.EndTime = &now
	session.FinalBatteryPercentage = &final

	e.publish(ctx, Event{
		Name:      EventSessionEnded,
		SpeakerID: session.SpeakerID,
		SessionID: session.ID,
		Data:      session,
	})

	return &TerminatedSession{
		SessionID:              session.ID,
		SpeakerID:              session.SpeakerID,
		Status:                 interrupted,
		FinalBatteryPercentage: final,
	}, nil
}

func (e *Energy) forceEndAll(ctx context.Context) (*ForceEndResult, error) {
	logger := sessionLogger()

	sessions, err := e.Gateway.ListActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	result := &ForceEndResult{Sessions: []TerminatedSession{}}
	for i := range sessions {
		terminated, err := e.interruptSession(ctx, &sessions[i])
		if errors.Is(err, ErrBadRequest) {
			// ended by someone else since the listing
			continue
		}
		if err != nil {
			return result, err
		}
		result.Sessions = append(result.Sessions, *terminated)
	}
	result.TerminatedSessions = len(result.Sessions)

	logger.Warn("Force ended all active sessions", zap.Int("terminated", result.TerminatedSessions))
	return result, nil
}

func (e *Energy) forceShutdown(ctx context.Context, speakerID uint) (*ForceEndResult, error) {
	logger := sessionLogger()

	if _, err := e.Gateway.GetSpeaker(ctx, speakerID); err != nil {
		return nil, err
	}

	session, err := e.Gateway.FindActiveSessionBySpeaker(ctx, speakerID)
	if errors.Is(err, ErrNotFound) {
		return nil, badRequest("No active sessions to terminate")
	}
	if err != nil {
		return nil, err
	}

	terminated, err := e.interruptSession(ctx, session)
	if err != nil {
		return nil, err
	}

	logger.Warn("Force shutdown of speaker", zap.Uint("speakerId", speakerID), zap.Uint("sessionId", session.ID))
	return &ForceEndResult{
		TerminatedSessions: 1,
		Sessions:           []TerminatedSession{*terminated},
	}, nil
}

func (e *Energy) activeSessionForSpeaker(ctx context.Context, speakerID uint) (*models.UsageSession, error) {
	session, err := e.Gateway.FindActiveSessionBySpeaker(ctx, speakerID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return session, err
}

// SyncMetrics sets the gauges from storage, used once at boot.
func (e *Energy) SyncMetrics(ctx context.Context) error {
	ids, err := e.Gateway.ListActiveSessionIDs(ctx)
	if err != nil {
		return err
	}
	metrics.ActiveSessions.Set(float64(len(ids)))

	if _, err := e.Cache.Info(ctx); err != nil {
		return err
	}
	return nil
}

type ISessionImpl struct {
	energy *Energy
}

func (is *ISessionImpl) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	return is.energy.startSession(ctx, req)
}

func (is *ISessionImpl) IngestTelemetry(ctx context.Context, sample *TelemetrySample) error {
	return is.energy.ingestTelemetry(ctx, sample)
}

func (is *ISessionImpl) ReportBattery(ctx context.Context, report *BatteryReport) (*models.Speaker, error) {
	return is.energy.reportBattery(ctx, report)
}

func (is *ISessionImpl) End(ctx context.Context, sessionID uint, req EndRequest) (*EndResult, error) {
	return is.energy.endSession(ctx, sessionID, req)
}

func (is *ISessionImpl) ForceEndAll(ctx context.Context) (*ForceEndResult, error) {
	return is.energy.forceEndAll(ctx)
}

func (is *ISessionImpl) ForceShutdown(ctx context.Context, speakerID uint) (*ForceEndResult, error) {
	return is.energy.forceShutdown(ctx, speakerID)
}

func (is *ISessionImpl) GetSession(ctx context.Context, sessionID uint) (*models.UsageSession, error) {
	return is.energy.Gateway.GetSession(ctx, sessionID)
}

func (is *ISessionImpl) GetActiveSession(ctx context.Context, speakerID uint) (*models.UsageSession, error) {
	return is.energy.activeSessionForSpeaker(ctx, speakerID)
}

func (e *Energy) GetISession() ISession {
	return &ISessionImpl{energy: e}
}
