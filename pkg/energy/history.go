package energy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/metrics"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type CommitInput struct {
	Session         *models.UsageSession
	EndTime         time.Time
	DurationMinutes int
	FinalBattery    float64
	BatteryConsumed float64
	Statistics      *Statistics
	Summary         *models.DeviceSummary
}

func historyLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameEnergyCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryHistory),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// buildHistory snapshots the speaker name and position as they were when the
// session started, so renaming a speaker later leaves history untouched.
func (e *Energy) buildHistory(in CommitInput) *models.History {
	session := in.Session

	var liveName, livePosition string
	if session.Speaker != nil {
		liveName = session.Speaker.Name
		livePosition = session.Speaker.Position
	}

	stats := in.Statistics
	if stats == nil {
		stats = &Statistics{}
	}

	return &models.History{
		UsageSessionID:           session.ID,
		SpeakerID:                session.SpeakerID,
		SpeakerName:              firstNonEmpty(session.SpeakerName, liveName, "Unknown"),
		SpeakerPosition:          firstNonEmpty(session.SpeakerPosition, livePosition, "Unknown"),
		UserID:                   session.UserID,
		StartDate:                session.StartTime,
		EndDate:                  in.EndTime,
		DurationMinutes:          in.DurationMinutes,
		AvgAmpereHours:           stats.AvgAmpereHours,
		AvgVoltageHours:          stats.AvgVoltageHours,
		AvgWattsHours:            stats.AvgWattsHours,
		TotalAmpereHours:         stats.TotalAmpereHours,
		TotalVoltageHours:        stats.TotalVoltageHours,
		TotalWattsHours:          stats.TotalWattsHours,
		InitialBatteryPercentage: session.InitialBatteryPercentage,
		FinalBatteryPercentage:   in.FinalBattery,
		BatteryConsumed:          common.NonNegative(in.BatteryConsumed),
		Esp32Data:                in.Summary,
	}
}

func (e *Energy) commitHistory(ctx context.Context, gateway IGateway, in CommitInput) (*models.History, error) {
	history := e.History.Build(in)
	if err := gateway.CreateHistory(ctx, history); err != nil {
		return nil, err
	}

	historyLogger().Info("History recorded",
		zap.Uint("sessionId", history.UsageSessionID),
		zap.Uint("speakerId", history.SpeakerID),
		zap.Int("durationMinutes", history.DurationMinutes),
		zap.Float64("batteryConsumed", history.BatteryConsumed),
	)
	return history, nil
}

// backfillHistory writes the missing History row for COMPLETED sessions whose
// end did not get that far. It rebuilds from the session metadata, or from
// measurement rows when the durable policy left some.
func (e *Energy) backfillHistory(ctx context.Context) (int, error) {
	logger := historyLogger()

	sessions, err := e.Gateway.ListCompletedSessionsWithoutHistory(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for i := range sessions {
		session := &sessions[i]

		rows, err := e.Gateway.ListMeasurements(ctx, session.ID)
		if err != nil {
			return written, err
		}
		var stats *Statistics
		if len(rows) > 0 {
			stats = e.Statistics.FromMeasurements(session, rows)
		} else {
			stats = e.Statistics.FromMetadata(session)
		}

		endTime := e.clock().Now()
		if session.EndTime != nil {
			endTime = *session.EndTime
		}
		final := session.InitialBatteryPercentage
		if session.FinalBatteryPercentage != nil {
			final = *session.FinalBatteryPercentage
		}

		_, err = e.commitHistory(ctx, e.Gateway, CommitInput{
			Session:         session,
			EndTime:         endTime,
			DurationMinutes: wholeMinutes(endTime.Sub(session.StartTime)),
			FinalBattery:    final,
			BatteryConsumed: session.InitialBatteryPercentage - final,
			Statistics:      stats,
		})
		if errors.Is(err, ErrConflict) {
			// written concurrently by the session's own end
			continue
		}
		if err != nil {
			return written, err
		}
		written++
	}

	metrics.HistoryBackfilledTotal.Add(float64(written))
	logger.Info("History backfill finished", zap.Int("candidates", len(sessions)), zap.Int("written", written))
	return written, nil
}

type IHistoryImpl struct {
	energy *Energy
}

func (ih *IHistoryImpl) Build(in CommitInput) *models.History {
	return ih.energy.buildHistory(in)
}

func (ih *IHistoryImpl) Commit(ctx context.Context, gateway IGateway, in CommitInput) (*models.History, error) {
	return ih.energy.commitHistory(ctx, gateway, in)
}

func (ih *IHistoryImpl) Backfill(ctx context.Context) (int, error) {
	return ih.energy.backfillHistory(ctx)
}

func (e *Energy) GetIHistory() IHistory {
	return &IHistoryImpl{energy: e}
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type HistoryPage struct {
	Histories  []models.History `json:"histories"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// ListHistory returns one page of History rows, newest first. A speakerID of
// 0 lists every speaker; any other id must name an existing speaker.
func (e *Energy) ListHistory(ctx context.Context, speakerID uint, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		return nil, badRequest("page must be at least 1")
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, badRequest("limit must be between 1 and %d", MaxHistoryLimit)
	}
	if speakerID != 0 {
		if _, err := e.Gateway.GetSpeaker(ctx, speakerID); err != nil {
			return nil, err
		}
	}

	rows, total, err := e.Gateway.ListHistory(ctx, HistoryQuery{
		SpeakerID: speakerID,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.History{}
	}

	return &HistoryPage{
		Histories:  rows,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}
