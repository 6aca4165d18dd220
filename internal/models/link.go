package models

import (
	"time"
)

// Link - запись реестра коротких ссылок. Формат JSON совпадает с тем,
// что лежит в слоте хранилища: время в миллисекундах, expiresAt = null
// для бессрочных ссылок.
type Link struct {
	ID           string       `json:"id"`
	LongURL      string       `json:"longUrl"`
	CreatedAt    int64        `json:"createdAt"`
	ExpiresAt    *int64       `json:"expiresAt"`
	Clicks       int64        `json:"clicks"`
	ClickHistory []ClickEvent `json:"clickHistory"`
}

type CreateLinkInput struct {
	LongURL         string
	CustomCode      string
	ValidityMinutes int
}

// NewLink создаёт запись без кликов
func NewLink(id, longURL string, createdAt int64, expiresAt *int64) *Link {
	return &Link{
		ID:           id,
		LongURL:      longURL,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
		ClickHistory: []ClickEvent{},
	}
}

// IsExpired: ссылка с expiresAt строго меньше now недоступна для редиректа
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && *l.ExpiresAt < now.UnixMilli()
}

// RecordClick увеличивает счётчик и дописывает событие в историю
func (l *Link) RecordClick(at time.Time, userAgent string) {
	l.Clicks++
	l.ClickHistory = append(l.ClickHistory, ClickEvent{
		Timestamp: at.UnixMilli(),
		UserAgent: userAgent,
	})
}

func (l *Link) CreatedTime() time.Time {
	return time.UnixMilli(l.CreatedAt)
}

func (l *Link) ExpiresTime() *time.Time {
	if l.ExpiresAt == nil {
		return nil
	}
	t := time.UnixMilli(*l.ExpiresAt)
	return &t
}

// Clone создаёт глубокую копию записи
func (l *Link) Clone() *Link {
	c := *l
	if l.ExpiresAt != nil {
		e := *l.ExpiresAt
		c.ExpiresAt = &e
	}
	c.ClickHistory = make([]ClickEvent, len(l.ClickHistory))
	copy(c.ClickHistory, l.ClickHistory)
	return &c
}

// LinkStats агрегированная статистика по ссылке
type LinkStats struct {
	Link        *Link
	Expired     bool
	TotalClicks int64
	Daily       []DailyClickStats
}
