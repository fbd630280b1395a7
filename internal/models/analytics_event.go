package models

import "time"

// AnalyticsEvent is a lightweight product telemetry record. EventData is a
// free-form JSON object supplied by the client.
type AnalyticsEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventType string    `gorm:"not null;index:idx_analytics_events_type" json:"event_type"`
	EventData string    `gorm:"default:'{}'" json:"event_data"`
	CreatedAt time.Time `json:"created_at"`
}

func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}
