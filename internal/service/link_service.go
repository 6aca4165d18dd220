package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/SergeiKhy/shortlink/internal/clock"
	"github.com/SergeiKhy/shortlink/internal/metrics"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/shortcode"
	"github.com/SergeiKhy/shortlink/internal/store"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrMissingURL              = errors.New("missing URL")
	ErrInvalidURL              = errors.New("invalid URL")
	ErrInvalidCode             = errors.New("invalid custom code")
	ErrCodeTaken               = errors.New("custom code taken")
	ErrInvalidValidity         = errors.New("invalid validity window")
	ErrCodeGenerationExhausted = errors.New("short code generation exhausted")
	ErrLinkNotFound            = store.ErrLinkNotFound
)

// Константы сервиса
const (
	maxGenerateAttempts = 100
	minuteMillis        = int64(time.Minute / time.Millisecond)
	maxValidityMinutes  = 100 * 365 * 24 * 60

	codeKindCustom    = "custom"
	codeKindGenerated = "generated"
)

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// RecordStore - операции хранилища, которые нужны сервисам
type RecordStore interface {
	Add(ctx context.Context, link *models.Link)
	FindByID(ctx context.Context, id string) (*models.Link, error)
	Update(ctx context.Context, link *models.Link) bool
	IsTaken(ctx context.Context, id string) bool
	All(ctx context.Context) []*models.Link
	Len() int
}

// CodeGenerator выдаёт кандидата в короткие коды
type CodeGenerator interface {
	Generate() string
}

// Deps зависимости сервисов; пустые поля заменяются значениями по умолчанию
type Deps struct {
	Store     RecordStore
	Generator CodeGenerator
	Clock     clock.Clock
	Location  *time.Location
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// ReservedCodes перекрыты статическими маршрутами и считаются занятыми
	ReservedCodes []string
}

func (d Deps) withDefaults() Deps {
	if d.Generator == nil {
		d.Generator = shortcode.NewGenerator()
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// LinkService интерфейс сервиса ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	ListLinks(ctx context.Context) []*models.Link
	GetStats(ctx context.Context, code string) (*models.LinkStats, error)
	Count() int
}

// linkService реализация сервиса ссылок
type linkService struct {
	deps     Deps
	reserved map[string]bool

	// mu делает проверку занятости кода и добавление одной операцией
	mu sync.Mutex
}

// NewLinkService создаёт новый экземпляр сервиса
func NewLinkService(deps Deps) LinkService {
	reserved := make(map[string]bool, len(deps.ReservedCodes))
	for _, code := range deps.ReservedCodes {
		reserved[code] = true
	}
	return &linkService{deps: deps.withDefaults(), reserved: reserved}
}

// CreateLink валидирует запрос и сохраняет новую короткую ссылку.
// Первая же ошибка валидации прерывает создание, в хранилище ничего не пишется
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	longURL := strings.TrimSpace(input.LongURL)
	if longURL == "" {
		return nil, ErrMissingURL
	}
	if err := validateURL(longURL); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.TrimSpace(input.CustomCode)
	kind := codeKindCustom
	if code != "" {
		if err := s.validateCustomCode(ctx, code); err != nil {
			return nil, err
		}
	}

	if input.ValidityMinutes < 0 || input.ValidityMinutes > maxValidityMinutes {
		return nil, ErrInvalidValidity
	}

	if code == "" {
		generated, err := s.generateShortCode(ctx)
		if err != nil {
			s.deps.Logger.Error("Не удалось сгенерировать свободный код",
				zap.Int("attempts", maxGenerateAttempts),
				zap.Error(err),
			)
			return nil, err
		}
		code = generated
		kind = codeKindGenerated
	}

	createdAt := s.deps.Clock.Now().UnixMilli()
	var expiresAt *int64
	if input.ValidityMinutes > 0 {
		e := createdAt + int64(input.ValidityMinutes)*minuteMillis
		expiresAt = &e
	}

	link := models.NewLink(code, longURL, createdAt, expiresAt)
	s.deps.Store.Add(ctx, link)
	s.deps.Metrics.LinkCreated(kind)

	s.deps.Logger.Info("Link created",
		zap.String("code", link.ID),
		zap.String("kind", kind),
		zap.String("long_url", link.LongURL),
		zap.Int("validity_minutes", input.ValidityMinutes),
	)

	return link, nil
}

// GetLink возвращает запись по коду, в том числе истёкшую
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	return s.deps.Store.FindByID(ctx, code)
}

// ListLinks возвращает все записи, новые первыми
func (s *linkService) ListLinks(ctx context.Context) []*models.Link {
	links := s.deps.Store.All(ctx)
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}
	return links
}

// GetStats собирает статистику по ссылке: всего кликов и клики по дням
func (s *linkService) GetStats(ctx context.Context, code string) (*models.LinkStats, error) {
	link, err := s.deps.Store.FindByID(ctx, code)
	if err != nil {
		return nil, err
	}

	return &models.LinkStats{
		Link:        link,
		Expired:     link.IsExpired(s.deps.Clock.Now()),
		TotalClicks: link.Clicks,
		Daily:       DailyClicks(link.ClickHistory, s.deps.Location),
	}, nil
}

func (s *linkService) Count() int {
	return s.deps.Store.Len()
}

// generateShortCode перебирает случайные коды, пока не найдёт свободный
func (s *linkService) generateShortCode(ctx context.Context) (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		code := s.deps.Generator.Generate()
		if !s.deps.Store.IsTaken(ctx, code) && !s.reserved[code] {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}

// validateCustomCode проверяет набор символов и занятость кастомного кода
func (s *linkService) validateCustomCode(ctx context.Context, code string) error {
	if !customCodePattern.MatchString(code) {
		return ErrInvalidCode
	}
	if s.reserved[code] || s.deps.Store.IsTaken(ctx, code) {
		return ErrCodeTaken
	}
	return nil
}

// validateURL принимает только абсолютные URL: схема плюс хост
// (или непрозрачная часть, как у mailto:)
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ErrInvalidURL
	}
	if u.Host == "" && u.Opaque == "" {
		return ErrInvalidURL
	}
	return nil
}
