package energy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"liyu1981.xyz/speaker-energy-service/pkg/db"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type SpeakerUpdate struct {
	State             *bool
	BatteryPercentage *float64
}

// SessionUpdate changes only the non-nil fields. A non-empty ExpectStatus
// makes the write conditional on the row still being in that status.
type SessionUpdate struct {
	ExpectStatus           models.SessionStatus
	Status                 *models.SessionStatus
	EndTime                *time.Time
	FinalBatteryPercentage *float64
	Metadata               *models.SessionMetadata
}

// HistoryQuery pages History newest first. SpeakerID 0 means every speaker.
type HistoryQuery struct {
	SpeakerID uint
	Limit     int
	Offset    int
}

type gormGateway struct {
	conn *gorm.DB
}

func NewGateway(d *db.DB) IGateway {
	return &gormGateway{conn: d.Conn}
}

func (g *gormGateway) db(ctx context.Context) *gorm.DB {
	return g.conn.WithContext(ctx)
}

func (g *gormGateway) GetSpeaker(ctx context.Context, id uint) (*models.Speaker, error) {
	var speaker models.Speaker
	if err := g.db(ctx).First(&speaker, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("speaker %d", id)
		}
		return nil, fmt.Errorf("get speaker %d: %w", id, err)
	}
	return &speaker, nil
}

func (g *gormGateway) ListSpeakers(ctx context.Context) ([]models.Speaker, error) {
	var speakers []models.Speaker
	if err := g.db(ctx).Order("id").Find(&speakers).Error; err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	return speakers, nil
}

func (g *gormGateway) UpdateSpeaker(ctx context.Context, id uint, upd SpeakerUpdate) error {
	updates := map[string]any{}
	if upd.State != nil {
		updates["state"] = *upd.State
	}
	if upd.BatteryPercentage != nil {
		updates["battery_percentage"] = *upd.BatteryPercentage
	}
	if len(updates) == 0 {
		return nil
	}

	res := g.db(ctx).Model(&models.Speaker{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update speaker %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("speaker %d", id)
	}
	return nil
}

func (g *gormGateway) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := g.db(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user %d", id)
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (g *gormGateway) FindActiveSessionBySpeaker(ctx context.Context, speakerID uint) (*models.UsageSession, error) {
	var session models.UsageSession
	err := g.db(ctx).
		Preload("Speaker").
		Where("speaker_id = ? AND status = ?", speakerID, models.SessionStatusActive).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("no active session for speaker %d", speakerID)
		}
		return nil, fmt.Errorf("find active session for speaker %d: %w", speakerID, err)
	}
	return &session, nil
}

func (g *gormGateway) GetSession(ctx context.Context, id uint) (*models.UsageSession, error) {
	var session models.UsageSession
	if err := g.db(ctx).Preload("Speaker").Preload("User").First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("session %d", id)
		}
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return &session, nil
}

func (g *gormGateway) CreateSession(ctx context.Context, session *models.UsageSession) error {
	if err := g.db(ctx).Omit("Speaker", "User").Create(session).Error; err != nil {
		if isDuplicateKey(err) {
			return conflict("speaker %d already has an active session", session.SpeakerID)
		}
		return fmt.Errorf("create session for speaker %d: %w", session.SpeakerID, err)
	}
	return nil
}

func (g *gormGateway) UpdateSession(ctx context.Context, id uint, upd SessionUpdate) error {
	values := models.UsageSession{UpdatedAt: time.Now()}
	columns := []string{"UpdatedAt"}

	if upd.Status != nil {
		values.Status = *upd.Status
		columns = append(columns, "Status")
	}
	if upd.EndTime != nil {
		values.EndTime = upd.EndTime
		columns = append(columns, "EndTime")
	}
	if upd.FinalBatteryPercentage != nil {
		values.FinalBatteryPercentage = upd.FinalBatteryPercentage
		columns = append(columns, "FinalBatteryPercentage")
	}
	if upd.Metadata != nil {
		values.Metadata = upd.Metadata
		columns = append(columns, "Metadata")
	}

	q := g.db(ctx).Model(&models.UsageSession{}).Where("id = ?", id)
	if upd.ExpectStatus != "" {
		q = q.Where("status = ?", upd.ExpectStatus)
	}

	res := q.Select(columns).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update session %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := g.GetSession(ctx, id)
	if err != nil {
		return err
	}
	return badRequest("session %d is %s, expected %s", id, current.Status, upd.ExpectStatus)
}

func (g *gormGateway) ListActiveSessions(ctx context.Context) ([]models.UsageSession, error) {
	var sessions []models.UsageSession
	err := g.db(ctx).
		Preload("Speaker").
		Where("status = ?", models.SessionStatusActive).
		Order("id").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

func (g *gormGateway) ListActiveSessionIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := g.db(ctx).
		Model(&models.UsageSession{}).
		Where("status = ?", models.SessionStatusActive).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list active session ids: %w", err)
	}
	return ids, nil
}

func (g *gormGateway) CreateHistory(ctx context.Context, history *models.History) error {
	if err := g.db(ctx).Omit("UsageSession").Create(history).Error; err != nil {
		if isDuplicateKey(err) {
			return conflict("history for session %d already exists", history.UsageSessionID)
		}
		return fmt.Errorf("create history for session %d: %w", history.UsageSessionID, err)
	}
	return nil
}

func (g *gormGateway) GetHistoryBySession(ctx context.Context, sessionID uint) (*models.History, error) {
	var history models.History
	if err := g.db(ctx).Where("usage_session_id = ?", sessionID).First(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("history for session %d", sessionID)
		}
		return nil, fmt.Errorf("get history for session %d: %w", sessionID, err)
	}
	return &history, nil
}

func (g *gormGateway) ListHistory(ctx context.Context, query HistoryQuery) ([]models.History, int64, error) {
	bySpeaker := func(tx *gorm.DB) *gorm.DB {
		if query.SpeakerID != 0 {
			return tx.Where("speaker_id = ?", query.SpeakerID)
		}
		return tx
	}

	var total int64
	if err := g.db(ctx).Model(&models.History{}).Scopes(bySpeaker).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	var rows []models.History
	err := g.db(ctx).Scopes(bySpeaker).
		Order("created_at DESC, id DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return rows, total, nil
}

func (g *gormGateway) ListCompletedSessionsWithoutHistory(ctx context.Context) ([]models.UsageSession, error) {
	var sessions []models.UsageSession
	err := g.db(ctx).
		Preload("Speaker").
		Where("status = ?", models.SessionStatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM histories h WHERE h.usage_session_id = usage_sessions.id)").
		Order("id").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions without history: %w", err)
	}
	return sessions, nil
}

func (g *gormGateway) CreateMeasurement(ctx context.Context, measurement *models.EnergyMeasurement) error {
	if err := g.db(ctx).Omit("UsageSession").Create(measurement).Error; err != nil {
		return fmt.Errorf("create measurement for session %d: %w", measurement.UsageSessionID, err)
	}
	return nil
}

func (g *gormGateway) ListMeasurements(ctx context.Context, sessionID uint) ([]models.EnergyMeasurement, error) {
	var rows []models.EnergyMeasurement
	err := g.db(ctx).
		Where("usage_session_id = ?", sessionID).
		Order("recorded_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list measurements for session %d: %w", sessionID, err)
	}
	return rows, nil
}

func (g *gormGateway) Transaction(ctx context.Context, fn func(tx IGateway) error) error {
	return g.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormGateway{conn: tx})
	})
}

func (g *gormGateway) Ping(ctx context.Context) error {
	sqlDB, err := g.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// isDuplicateKey also matches raw driver messages for dialects whose
// error translation does not cover partial indexes.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
