package service

import (
	"slices"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/samber/lo"
)

const dayLayout = "2006-01-02"

// DailyClicks группирует клики по календарным дням в часовом поясе loc
// и возвращает пары (день, клики) по возрастанию даты
func DailyClicks(history []models.ClickEvent, loc *time.Location) []models.DailyClickStats {
	if loc == nil {
		loc = time.Local
	}

	counts := lo.CountValuesBy(history, func(e models.ClickEvent) string {
		return time.UnixMilli(e.Timestamp).In(loc).Format(dayLayout)
	})

	// YYYY-MM-DD сортируется лексикографически в хронологическом порядке
	days := lo.Keys(counts)
	slices.Sort(days)

	return lo.Map(days, func(day string, _ int) models.DailyClickStats {
		return models.DailyClickStats{Date: day, Clicks: int64(counts[day])}
	})
}
