package service

import (
	"context"
	"sync"

	"github.com/SergeiKhy/shortlink/internal/models"
	"go.uber.org/zap"
)

// ResolveState состояние разрешения короткого кода
type ResolveState string

const (
	StateLoading  ResolveState = "loading"
	StateSuccess  ResolveState = "success"
	StateExpired  ResolveState = "expired"
	StateNotFound ResolveState = "not_found"
)

// Resolution результат разрешения кода. Destination заполнен только при StateSuccess
type Resolution struct {
	State       ResolveState
	Code        string
	Destination string
	Link        *models.Link
}

// Resolver превращает короткий код в адрес назначения и учитывает клик
type Resolver interface {
	Resolve(ctx context.Context, code, userAgent string) *Resolution
}

type resolver struct {
	deps Deps
	// mu сериализует чтение-изменение-запись, чтобы параллельные редиректы не теряли клики
	mu sync.Mutex
}

func NewResolver(deps Deps) Resolver {
	return &resolver{deps: deps.withDefaults()}
}

// Resolve ищет запись, проверяет срок действия и записывает клик.
// Каждый успешный вызов увеличивает счётчик ровно на единицу
func (r *resolver) Resolve(ctx context.Context, code, userAgent string) *Resolution {
	res := &Resolution{State: StateLoading, Code: code}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, err := r.deps.Store.FindByID(ctx, code)
	if err != nil {
		r.deps.Logger.Warn("Link not found", zap.String("code", code))
		return r.finish(res, StateNotFound)
	}
	res.Link = link

	now := r.deps.Clock.Now()
	if link.IsExpired(now) {
		r.deps.Logger.Warn("Link expired",
			zap.String("code", code),
			zap.Int64("expires_at", *link.ExpiresAt),
		)
		return r.finish(res, StateExpired)
	}

	link.RecordClick(now, userAgent)
	r.deps.Store.Update(ctx, link)

	r.deps.Logger.Info("Redirecting",
		zap.String("code", code),
		zap.String("destination", link.LongURL),
		zap.Int64("clicks", link.Clicks),
	)

	res.Destination = link.LongURL
	return r.finish(res, StateSuccess)
}

func (r *resolver) finish(res *Resolution, state ResolveState) *Resolution {
	res.State = state
	r.deps.Metrics.Redirect(string(state))
	return res
}
