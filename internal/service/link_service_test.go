package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/shortlink/internal/clock"
	"github.com/SergeiKhy/shortlink/internal/metrics"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/SergeiKhy/shortlink/internal/service/mocks"
	"github.com/SergeiKhy/shortlink/internal/shortcode"
	"github.com/SergeiKhy/shortlink/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	links    service.LinkService
	resolver service.Resolver
	store    *store.Store
	slot     *mocks.MockSlot
	clock    *clock.Mock
	metrics  *metrics.Metrics
}

// setupTestService создаёт тестовое окружение поверх мокового слота
func setupTestService(t *testing.T, gen service.CodeGenerator, reserved ...string) *testEnv {
	slot := mocks.NewMockSlot()
	logger, _ := zap.NewDevelopment()
	m := metrics.New(prometheus.NewRegistry())

	st, err := store.Open(context.Background(), slot, logger, m)
	require.NoError(t, err)

	clk := clock.NewMock(testNow)
	deps := service.Deps{
		Store:         st,
		Generator:     gen,
		Clock:         clk,
		Location:      time.UTC,
		Metrics:       m,
		Logger:        logger,
		ReservedCodes: reserved,
	}

	return &testEnv{
		links:    service.NewLinkService(deps),
		resolver: service.NewResolver(deps),
		store:    st,
		slot:     slot,
		clock:    clk,
		metrics:  m,
	}
}

// fixedGenerator всегда возвращает коды из списка по кругу
type fixedGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *fixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[g.calls%len(g.codes)]
	g.calls++
	return code
}

// TestLinkService_CreateLink_Generated проверяет создание ссылки со сгенерированным кодом
func TestLinkService_CreateLink_Generated(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, &models.CreateLinkInput{
		LongURL: "https://example.com/page",
	})

	require.NoError(t, err)
	assert.Len(t, link.ID, 6)
	assert.Empty(t, strings.Trim(link.ID, shortcode.Alphabet))
	assert.Equal(t, "https://example.com/page", link.LongURL)
	assert.Equal(t, testNow.UnixMilli(), link.CreatedAt)
	assert.Nil(t, link.ExpiresAt)
	assert.Equal(t, int64(0), link.Clicks)
	assert.Empty(t, link.ClickHistory)
	assert.True(t, env.store.IsTaken(ctx, link.ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.LinksCreated.WithLabelValues("generated")))
}

// TestLinkService_CreateLink_WithCustomCode проверяет использование кастомного кода как есть
func TestLinkService_CreateLink_WithCustomCode(t *testing.T) {
	env := setupTestService(t, nil)

	for _, code := range []string{"my-custom", "A", "under_score", "MiXeD-09"} {
		link, err := env.links.CreateLink(context.Background(), &models.CreateLinkInput{
			LongURL:    "https://example.com/test",
			CustomCode: "  " + code + " ",
		})

		require.NoError(t, err, code)
		assert.Equal(t, code, link.ID)
	}
}

// TestLinkService_CreateLink_WithExpiration проверяет расчёт expiresAt
func TestLinkService_CreateLink_WithExpiration(t *testing.T) {
	env := setupTestService(t, nil)

	link, err := env.links.CreateLink(context.Background(), &models.CreateLinkInput{
		LongURL:         "https://example.com/test",
		ValidityMinutes: 60,
	})

	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, link.CreatedAt+60*60000, *link.ExpiresAt)
}

// TestLinkService_CreateLink_ValidationErrors проверяет порядок и виды ошибок валидации
func TestLinkService_CreateLink_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input models.CreateLinkInput
		err   error
	}{
		{"пустой URL", models.CreateLinkInput{LongURL: ""}, service.ErrMissingURL},
		{"URL из пробелов", models.CreateLinkInput{LongURL: "   "}, service.ErrMissingURL},
		{"пустой URL важнее кода", models.CreateLinkInput{CustomCode: "bad code!"}, service.ErrMissingURL},
		{"без схемы", models.CreateLinkInput{LongURL: "example.com"}, service.ErrInvalidURL},
		{"не URL", models.CreateLinkInput{LongURL: "not-a-url"}, service.ErrInvalidURL},
		{"без хоста", models.CreateLinkInput{LongURL: "https://"}, service.ErrInvalidURL},
		{"пробел в хосте", models.CreateLinkInput{LongURL: "https://exa mple.com"}, service.ErrInvalidURL},
		{"невалидный URL важнее кода", models.CreateLinkInput{LongURL: "nope", CustomCode: "my-link!"}, service.ErrInvalidURL},
		{"недопустимый символ", models.CreateLinkInput{LongURL: "https://example.com", CustomCode: "my-link!"}, service.ErrInvalidCode},
		{"пробел внутри кода", models.CreateLinkInput{LongURL: "https://example.com", CustomCode: "my link"}, service.ErrInvalidCode},
		{"не-ASCII буква", models.CreateLinkInput{LongURL: "https://example.com", CustomCode: "ссылка"}, service.ErrInvalidCode},
		{"отрицательный срок", models.CreateLinkInput{LongURL: "https://example.com", ValidityMinutes: -1}, service.ErrInvalidValidity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestService(t, nil)
			input := tt.input

			link, err := env.links.CreateLink(context.Background(), &input)

			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, link)
			assert.Equal(t, 0, env.store.Len())
			assert.Equal(t, 0, env.slot.Saves())
		})
	}
}

// TestLinkService_CreateLink_InvalidCodeLeavesItFree проверяет пример с "my-link!"
func TestLinkService_CreateLink_InvalidCodeLeavesItFree(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:    "https://example.com/page",
		CustomCode: "my-link!",
	})

	assert.ErrorIs(t, err, service.ErrInvalidCode)
	assert.False(t, env.store.IsTaken(ctx, "my-link!"))
}

// TestLinkService_CreateLink_CodeTaken проверяет отказ на занятый кастомный код
func TestLinkService_CreateLink_CodeTaken(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://a.example", CustomCode: "promo"})
	require.NoError(t, err)

	link, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://b.example", CustomCode: "promo"})
	assert.ErrorIs(t, err, service.ErrCodeTaken)
	assert.Nil(t, link)

	// Регистр важен
	link, err = env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://b.example", CustomCode: "PROMO"})
	require.NoError(t, err)
	assert.Equal(t, "PROMO", link.ID)
}

// TestLinkService_CreateLink_ExpiredCodeStaysTaken проверяет, что истёкший код не переиспользуется
func TestLinkService_CreateLink_ExpiredCodeStaysTaken(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:         "https://a.example",
		CustomCode:      "flash",
		ValidityMinutes: 1,
	})
	require.NoError(t, err)

	env.clock.Advance(time.Hour)

	_, err = env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://b.example", CustomCode: "flash"})
	assert.ErrorIs(t, err, service.ErrCodeTaken)
}

// TestLinkService_CreateLink_RetriesOnCollision проверяет повтор генерации при коллизии
func TestLinkService_CreateLink_RetriesOnCollision(t *testing.T) {
	gen := &fixedGenerator{codes: []string{"taken1", "taken1", "fresh1"}}
	env := setupTestService(t, gen)
	ctx := context.Background()

	_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://a.example", CustomCode: "taken1"})
	require.NoError(t, err)

	link, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://b.example"})
	require.NoError(t, err)
	assert.Equal(t, "fresh1", link.ID)
	assert.Equal(t, 3, gen.calls)
}

// TestLinkService_CreateLink_GenerationExhausted проверяет ограничение числа попыток
func TestLinkService_CreateLink_GenerationExhausted(t *testing.T) {
	gen := &fixedGenerator{codes: []string{"always"}}
	env := setupTestService(t, gen)
	ctx := context.Background()

	_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://a.example", CustomCode: "always"})
	require.NoError(t, err)

	link, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://b.example"})
	assert.ErrorIs(t, err, service.ErrCodeGenerationExhausted)
	assert.Nil(t, link)
	assert.Equal(t, 100, gen.calls)
	assert.Equal(t, 1, env.store.Len())
}

// TestLinkService_GenerateUnique проверяет уникальность множества сгенерированных кодов
func TestLinkService_GenerateUnique(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	codes := make(map[string]bool)
	for i := 0; i < 200; i++ {
		link, err := env.links.CreateLink(ctx, &models.CreateLinkInput{
			LongURL: fmt.Sprintf("https://example.com/test/%d", i),
		})
		require.NoError(t, err)
		assert.NotContains(t, codes, link.ID)
		codes[link.ID] = true
	}
	assert.Equal(t, 200, env.store.Len())
}

// TestLinkService_ConcurrentCustomCode проверяет, что один кастомный код достаётся одному запросу
func TestLinkService_ConcurrentCustomCode(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{
				LongURL:    fmt.Sprintf("https://example.com/%d", id),
				CustomCode: "contested",
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, env.store.Len())
}

// TestLinkService_GetStats проверяет агрегированную статистику
func TestLinkService_GetStats(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	link, err := env.links.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:         "https://example.com/stats",
		ValidityMinutes: 3 * 24 * 60,
	})
	require.NoError(t, err)

	env.resolver.Resolve(ctx, link.ID, "ua-1")
	env.resolver.Resolve(ctx, link.ID, "ua-2")
	env.clock.Advance(24 * time.Hour)
	env.resolver.Resolve(ctx, link.ID, "ua-3")

	stats, err := env.links.GetStats(ctx, link.ID)
	require.NoError(t, err)
	assert.False(t, stats.Expired)
	assert.Equal(t, int64(3), stats.TotalClicks)
	assert.Equal(t, []models.DailyClickStats{
		{Date: "2024-03-10", Clicks: 2},
		{Date: "2024-03-11", Clicks: 1},
	}, stats.Daily)

	env.clock.Advance(3 * 24 * time.Hour)
	stats, err = env.links.GetStats(ctx, link.ID)
	require.NoError(t, err)
	assert.True(t, stats.Expired)
}

// TestLinkService_GetStats_NotFound проверяет статистику по неизвестному коду
func TestLinkService_GetStats_NotFound(t *testing.T) {
	env := setupTestService(t, nil)

	stats, err := env.links.GetStats(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, service.ErrLinkNotFound)
	assert.Nil(t, stats)
}

// TestLinkService_ListLinks проверяет порядок "новые первыми"
func TestLinkService_ListLinks(t *testing.T) {
	env := setupTestService(t, nil)
	ctx := context.Background()

	for _, code := range []string{"first", "second", "third"} {
		_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://example.com", CustomCode: code})
		require.NoError(t, err)
	}

	links := env.links.ListLinks(ctx)
	require.Len(t, links, 3)
	assert.Equal(t, "third", links[0].ID)
	assert.Equal(t, "first", links[2].ID)
	assert.Equal(t, 3, env.links.Count())
}

// TestLinkService_ReservedCodes проверяет, что занятыми считаются только переданные коды
func TestLinkService_ReservedCodes(t *testing.T) {
	env := setupTestService(t, nil, "metrics")
	ctx := context.Background()

	_, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://example.com", CustomCode: "metrics"})
	assert.ErrorIs(t, err, service.ErrCodeTaken)

	for _, code := range []string{"api", "stats"} {
		link, err := env.links.CreateLink(ctx, &models.CreateLinkInput{LongURL: "https://example.com/" + code, CustomCode: code})
		require.NoError(t, err, code)
		assert.Equal(t, code, link.ID)
	}
}

// TestLinkService_GenerateSkipsReserved проверяет, что генератор не выдаёт зарезервированный код
func TestLinkService_GenerateSkipsReserved(t *testing.T) {
	gen := &fixedGenerator{codes: []string{"health", "fresh1"}}
	env := setupTestService(t, gen, "health")

	link, err := env.links.CreateLink(context.Background(), &models.CreateLinkInput{LongURL: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, "fresh1", link.ID)
	assert.Equal(t, 2, gen.calls)
}
