package models

import "time"

type SessionStatus string

const (
	SessionStatusActive      SessionStatus = "ACTIVE"
	SessionStatusCompleted   SessionStatus = "COMPLETED"
	SessionStatusInterrupted SessionStatus = "INTERRUPTED"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusInterrupted
}

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"uniqueIndex;size:64" json:"username"`
	Email     string `gorm:"size:128" json:"email"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Speaker struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:128" json:"name"`
	Position          string    `gorm:"size:128" json:"position"`
	State             bool      `json:"state"`
	BatteryPercentage float64   `gorm:"check:battery_percentage >= 0 AND battery_percentage <= 100" json:"batteryPercentage"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SessionMetadata is the summary recorded on a session when it completes.
type SessionMetadata struct {
	TotalMeasurementsSent   int     `json:"totalMeasurementsSent"`
	TotalConsumedMAh        float64 `json:"totalConsumed_mAh"`
	ReportedDurationSeconds int     `json:"reportedDurationSeconds"`
	ActualDurationMinutes   int     `json:"actualDurationMinutes"`
	AvgCurrentMA            float64 `json:"avgCurrent_mA"`
	AvgVoltageV             float64 `json:"avgVoltage_V"`
	AvgPowerMW              float64 `json:"avgPower_mW"`
	PeakPowerMW             float64 `json:"peakPower_mW"`
	BatteryConsumed         float64 `json:"batteryConsumed"`
	TotalVoltageHours       float64 `json:"totalVoltageHours"`
	TotalWattsHours         float64 `json:"totalWattsHours"`
	TotalAmpereHours        float64 `json:"totalAmpereHours"`
}

type UsageSession struct {
	ID                       uint             `gorm:"primaryKey" json:"id"`
	SpeakerID                uint             `gorm:"index;not null" json:"speakerId"`
	UserID                   uint             `gorm:"index;not null" json:"userId"`
	SpeakerName              string           `gorm:"size:128" json:"speakerName"`
	SpeakerPosition          string           `gorm:"size:128" json:"speakerPosition"`
	Status                   SessionStatus    `gorm:"type:varchar(16);index;not null;check:status IN ('ACTIVE','COMPLETED','INTERRUPTED')" json:"status"`
	StartTime                time.Time        `gorm:"not null" json:"startTime"`
	EndTime                  *time.Time       `json:"endTime"`
	InitialBatteryPercentage float64          `json:"initialBatteryPercentage"`
	FinalBatteryPercentage   *float64         `json:"finalBatteryPercentage"`
	Metadata                 *SessionMetadata `gorm:"serializer:json" json:"metadata"`
	CreatedAt                time.Time        `json:"createdAt"`
	UpdatedAt                time.Time        `json:"updatedAt"`

	Speaker *Speaker `gorm:"foreignKey:SpeakerID" json:"speaker,omitempty"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// DeviceSummary is the raw end-of-session report sent by the ESP32.
type DeviceSummary struct {
	TotalMeasurementsSent   int     `json:"totalMeasurementsSent"`
	TotalConsumedMAh        float64 `json:"totalConsumed_mAh"`
	ReportedDurationSeconds int     `json:"reportedDurationSeconds"`
	AvgCurrentMA            float64 `json:"avgCurrent_mA"`
	AvgVoltageV             float64 `json:"avgVoltage_V"`
	AvgPowerMW              float64 `json:"avgPower_mW"`
	PeakPowerMW             float64 `json:"peakPower_mW"`
	Mode                    string  `json:"mode,omitempty"`
}

// History is written once per completed session and never updated.
type History struct {
	ID                       uint           `gorm:"primaryKey" json:"id"`
	UsageSessionID           uint           `gorm:"uniqueIndex;not null" json:"usageSessionId"`
	SpeakerID                uint           `gorm:"index;not null" json:"speakerId"`
	SpeakerName              string         `gorm:"size:128" json:"speakerName"`
	SpeakerPosition          string         `gorm:"size:128" json:"speakerPosition"`
	UserID                   uint           `gorm:"index;not null" json:"userId"`
	StartDate                time.Time      `json:"startDate"`
	EndDate                  time.Time      `json:"endDate"`
	DurationMinutes          int            `json:"durationMinutes"`
	AvgAmpereHours           float64        `json:"avgAmpereHours"`
	AvgVoltageHours          float64        `json:"avgVoltageHours"`
	AvgWattsHours            float64        `json:"avgWattsHours"`
	TotalAmpereHours         float64        `json:"totalAmpereHours"`
	TotalVoltageHours        float64        `json:"totalVoltageHours"`
	TotalWattsHours          float64        `json:"totalWattsHours"`
	InitialBatteryPercentage float64        `json:"initialBatteryPercentage"`
	FinalBatteryPercentage   float64        `json:"finalBatteryPercentage"`
	BatteryConsumed          float64        `gorm:"check:battery_consumed >= 0" json:"batteryConsumed"`
	Esp32Data                *DeviceSummary `gorm:"serializer:json" json:"esp32Data"`
	CreatedAt                time.Time      `json:"createdAt"`

	UsageSession *UsageSession `gorm:"foreignKey:UsageSessionID" json:"-"`
}

type EnergyMeasurement struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UsageSessionID    uint      `gorm:"index;not null" json:"usageSessionId"`
	VoltageHours      float64   `json:"voltageHours"`
	AmpereHours       float64   `json:"ampereHours"`
	WattsHours        float64   `json:"wattsHours"`
	BatteryPercentage float64   `json:"batteryPercentage"`
	RecordedAt        time.Time `gorm:"index" json:"recordedAt"`

	UsageSession *UsageSession `gorm:"foreignKey:UsageSessionID" json:"-"`
}
