// Пакет memory — in-process бэкенд ростера без сети.
// Используется в режиме SR_BACKEND_MODE=memory (демо, локальная разработка).
// id назначаются при создании (UUID). Ошибки повторяют таксономию rosterclient,
// поэтому фронтенды обрабатывают оба бэкенда одинаково.
package memory

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/bigkaa/staffroster/internal/domain/model"
	"github.com/bigkaa/staffroster/internal/rosterclient"
)

// SeedRecords — начальные записи демо-ростера.
func SeedRecords() []model.UserRecord {
	return []model.UserRecord{
		{
			ID:          "1",
			FirstName:   "John",
			LastName:    "Doe",
			PhoneNumber: "1234567890",
			Email:       "john@example.com",
			Role:        model.RoleManager,
		},
		{
			ID:          "2",
			FirstName:   "Jane",
			LastName:    "Doe",
			PhoneNumber: "9876543210",
			Email:       "jane@example.com",
			Role:        model.RoleWaiter,
		},
	}
}

// Backend — потокобезопасное хранилище записей в памяти.
type Backend struct {
	mu      sync.Mutex
	records []model.UserRecord
	newID   func() string
	logger  *slog.Logger
}

// New создаёт бэкенд с указанными начальными записями.
func New(seed []model.UserRecord, logger *slog.Logger) *Backend {
	records := make([]model.UserRecord, len(seed))
	copy(records, seed)
	return &Backend{
		records: records,
		newID:   uuid.NewString,
		logger:  logger.With(slog.String("component", "memory_backend")),
	}
}

// List возвращает копию всех записей.
func (b *Backend) List(ctx context.Context) ([]model.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &rosterclient.TransportError{Op: rosterclient.OpList, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.UserRecord, len(b.records))
	copy(out, b.records)
	return out, nil
}

// Create добавляет запись с новым id.
func (b *Backend) Create(ctx context.Context, fields model.UserFields) (model.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.UserRecord{}, &rosterclient.TransportError{Op: rosterclient.OpCreate, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := fields.WithID(b.newID())
	b.records = append(b.records, rec)

	b.logger.Debug("Запись создана", slog.String("id", rec.ID))
	return rec, nil
}

// Update заменяет поля записи.
// Неизвестный id — RemoteRejection со статусом 404.
func (b *Backend) Update(ctx context.Context, id string, fields model.UserFields) (model.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.UserRecord{}, &rosterclient.TransportError{Op: rosterclient.OpUpdate, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.index(id)
	if i < 0 {
		return model.UserRecord{}, notFound(rosterclient.OpUpdate)
	}
	b.records[i] = fields.WithID(id)
	return b.records[i], nil
}

// Delete удаляет запись.
// Неизвестный id — RemoteRejection со статусом 404.
func (b *Backend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return &rosterclient.TransportError{Op: rosterclient.OpDelete, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.index(id)
	if i < 0 {
		return notFound(rosterclient.OpDelete)
	}
	b.records = append(b.records[:i:i], b.records[i+1:]...)
	return nil
}

// CheckReady — бэкенд в памяти всегда готов.
func (b *Backend) CheckReady() (string, string) {
	return "ok", "бэкенд в памяти"
}

func (b *Backend) index(id string) int {
	for i := range b.records {
		if b.records[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(op string) error {
	return &rosterclient.RemoteRejection{
		Op:         op,
		StatusCode: http.StatusNotFound,
		Body:       "user not found",
	}
}
