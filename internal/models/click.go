package models

type ClickEvent struct {
	Timestamp int64  `json:"timestamp"`
	UserAgent string `json:"userAgent,omitempty"`
}

type DailyClickStats struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}
