package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/SergeiKhy/shortlink/internal/metrics"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrNoSlot       = errors.New("store requires a slot")
)

// Store - реестр ссылок в памяти, зеркалируемый в один слот.
// Коллекция в памяти - источник истины для текущего процесса,
// запись в слот - best-effort
type Store struct {
	mu      sync.RWMutex
	links   []*models.Link
	index   map[string]int // id -> позиция в links
	slot    repository.Slot
	ready   bool
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Open создаёт хранилище и загружает коллекцию из слота.
// Отсутствующий, битый или недоступный слот даёт пустую коллекцию
func Open(ctx context.Context, slot repository.Slot, logger *zap.Logger, m *metrics.Metrics) (*Store, error) {
	if slot == nil {
		return nil, ErrNoSlot
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		links:   make([]*models.Link, 0),
		index:   make(map[string]int),
		slot:    slot,
		logger:  logger,
		metrics: m,
	}
	s.load(ctx)
	s.ready = true

	return s, nil
}

func (s *Store) load(ctx context.Context) {
	data, err := s.slot.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrSlotEmpty):
		s.logger.Info("Slot is empty, starting with an empty collection", zap.String("slot", s.slot.Name()))
		return
	case err != nil:
		s.logger.Warn("Failed to load links from slot", zap.String("slot", s.slot.Name()), zap.Error(err))
		s.metrics.PersistFailed("load")
		return
	}

	var links []*models.Link
	if err := json.Unmarshal(data, &links); err != nil {
		s.logger.Warn("Slot contains malformed data, starting with an empty collection",
			zap.String("slot", s.slot.Name()),
			zap.Error(err),
		)
		s.metrics.PersistFailed("load")
		return
	}

	for _, link := range links {
		if link == nil || link.ID == "" {
			continue
		}
		if _, exists := s.index[link.ID]; exists {
			s.logger.Warn("Duplicate link id in slot, keeping the first", zap.String("id", link.ID))
			continue
		}
		if link.ClickHistory == nil {
			link.ClickHistory = []models.ClickEvent{}
		}
		if link.Clicks != int64(len(link.ClickHistory)) {
			s.logger.Warn("Click counter does not match click history",
				zap.String("id", link.ID),
				zap.Int64("clicks", link.Clicks),
				zap.Int("history", len(link.ClickHistory)),
			)
		}
		s.index[link.ID] = len(s.links)
		s.links = append(s.links, link)
	}

	s.metrics.SetRecords(len(s.links))
	s.logger.Info("Links loaded", zap.String("slot", s.slot.Name()), zap.Int("count", len(s.links)))
}

// Ready сообщает, что начальная загрузка завершена (успешно или с откатом к пустой коллекции)
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Add добавляет запись. Уникальность id обеспечивает вызывающий;
// запись с уже существующим id отбрасывается, слот не переписывается
func (s *Store) Add(ctx context.Context, link *models.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[link.ID]; exists {
		s.logger.Warn("Link id already stored, add ignored", zap.String("id", link.ID))
		return
	}
	s.index[link.ID] = len(s.links)
	s.links = append(s.links, link.Clone())
	s.metrics.SetRecords(len(s.links))

	s.persistLocked(ctx, "add")
}

// FindByID возвращает копию записи или ErrLinkNotFound
func (s *Store) FindByID(ctx context.Context, id string) (*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, ErrLinkNotFound
	}
	return s.links[i].Clone(), nil
}

// Update заменяет запись с тем же id на её позиции.
// Неизвестный id - no-op, возвращает false
func (s *Store) Update(ctx context.Context, link *models.Link) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[link.ID]
	if !ok {
		return false
	}
	s.links[i] = link.Clone()

	s.persistLocked(ctx, "update")
	return true
}

// IsTaken проверяет занятость кода независимо от срока действия
func (s *Store) IsTaken(ctx context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[id]
	return ok
}

// All возвращает копии всех записей в порядке добавления
func (s *Store) All(ctx context.Context) []*models.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Link, len(s.links))
	for i, link := range s.links {
		out[i] = link.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}

// Persist сериализует всю коллекцию в слот
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx)
}

func (s *Store) writeLocked(ctx context.Context) error {
	data, err := json.Marshal(s.links)
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}
	return s.slot.Save(ctx, data)
}

// persistLocked пишет слот после мутации; ошибка логируется, но не
// откатывает состояние в памяти и не возвращается вызывающему
func (s *Store) persistLocked(ctx context.Context, op string) {
	if err := s.writeLocked(ctx); err != nil {
		s.logger.Error("Failed to persist links",
			zap.String("op", op),
			zap.String("slot", s.slot.Name()),
			zap.Error(err),
		)
		s.metrics.PersistFailed("save")
	}
}
