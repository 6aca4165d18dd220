package repository

import (
	"context"
	"errors"
)

var ErrSlotEmpty = errors.New("slot is empty")

// Slot - один именованный ключ персистентного хранилища, в котором целиком
// лежит сериализованная коллекция записей
type Slot interface {
	// Load возвращает содержимое слота или ErrSlotEmpty, если слот не записан
	Load(ctx context.Context) ([]byte, error)
	// Save перезаписывает слот целиком
	Save(ctx context.Context, data []byte) error
	// Clear удаляет слот; удаление отсутствующего слота не ошибка
	Clear(ctx context.Context) error
	// Name описывает слот для логов
	Name() string
}
