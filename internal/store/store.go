// Пакет store — локальная копия ростера, синхронизируемая с бэкендом.
//
// Store хранит упорядоченную коллекцию записей и изменяет её только после
// успешного ответа бэкенда: без оптимистичных обновлений, без кэширования
// и без повторов. Блокировка не удерживается во время round-trip, поэтому
// конкурентные операции не сериализуются и применяются в порядке прихода ответов.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bigkaa/staffroster/internal/domain/model"
)

// Backend — удалённый источник записей.
// Реализуется rosterclient.Client и memory.Backend.
type Backend interface {
	List(ctx context.Context) ([]model.UserRecord, error)
	Create(ctx context.Context, fields model.UserFields) (model.UserRecord, error)
	Update(ctx context.Context, id string, fields model.UserFields) (model.UserRecord, error)
	Delete(ctx context.Context, id string) error
}

// Confirmer — подтверждение удаления, запрашиваемое до отправки запроса.
type Confirmer interface {
	Confirm(ctx context.Context, rec model.UserRecord) bool
}

// ConfirmFunc — адаптер функции к Confirmer.
type ConfirmFunc func(ctx context.Context, rec model.UserRecord) bool

// Confirm вызывает f(ctx, rec).
func (f ConfirmFunc) Confirm(ctx context.Context, rec model.UserRecord) bool {
	return f(ctx, rec)
}

// Store — потокобезопасная коллекция записей.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.RWMutex
	records []model.UserRecord

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New создаёт пустой Store. Для заполнения вызовите Load.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With(slog.String("component", "store")),
		records: []model.UserRecord{},
		subs:    make(map[int]func(Event)),
	}
}

// Load запрашивает всю коллекцию и заменяет ею локальную.
// При ошибке локальная коллекция не меняется.
// Повторяющиеся id схлопываются: позиция первого вхождения, данные последнего.
func (s *Store) Load(ctx context.Context) error {
	fetched, err := s.backend.List(ctx)
	if err != nil {
		s.logger.Warn("Не удалось загрузить ростер", slog.String("error", err.Error()))
		return err
	}

	records, dups := dedupe(fetched)
	if dups > 0 {
		s.logger.Warn("Бэкенд вернул повторяющиеся id",
			slog.Int("duplicates", dups),
		)
	}

	s.mu.Lock()
	s.records = records
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("Ростер загружен", slog.Int("records", len(records)))
	s.notify(Event{Kind: EventLoaded, Records: snapshot})
	return nil
}

// Add создаёт запись на бэкенде и добавляет в конец коллекции
// запись из ответа (с назначенным бэкендом id).
func (s *Store) Add(ctx context.Context, fields model.UserFields) (model.UserRecord, error) {
	created, err := s.backend.Create(ctx, fields)
	if err != nil {
		s.logger.Warn("Не удалось создать запись", slog.String("error", err.Error()))
		return model.UserRecord{}, err
	}

	s.mu.Lock()
	replaced := false
	if i := s.indexLocked(created.ID); i >= 0 {
		s.records[i] = created
		replaced = true
	} else {
		s.records = append(s.records, created)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if replaced {
		s.logger.Warn("Бэкенд вернул id, уже присутствующий локально; запись заменена",
			slog.String("id", created.ID),
		)
	}

	s.notify(Event{Kind: EventAdded, ID: created.ID, Record: created, Records: snapshot})
	return created, nil
}

// Update обновляет запись на бэкенде и заменяет её на месте записью
// из ответа бэкенда.
// Если после успешного ответа id локально отсутствует, коллекция
// не меняется и возвращается *NotFoundLocallyError.
func (s *Store) Update(ctx context.Context, id string, fields model.UserFields) (model.UserRecord, error) {
	updated, err := s.backend.Update(ctx, id, fields)
	if err != nil {
		s.logger.Warn("Не удалось обновить запись",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return model.UserRecord{}, err
	}
	if updated.ID == "" {
		updated.ID = id
	} else if updated.ID != id {
		s.logger.Warn("Бэкенд вернул запись с другим id",
			slog.String("requested_id", id),
			slog.String("returned_id", updated.ID),
		)
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i >= 0 {
		s.records[i] = updated
		// id из ответа уникален в коллекции
		if updated.ID != id {
			if j := s.indexExceptLocked(updated.ID, i); j >= 0 {
				s.records = append(s.records[:j:j], s.records[j+1:]...)
			}
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if i < 0 {
		return updated, s.stale(OpUpdate, id, snapshot)
	}

	s.notify(Event{Kind: EventUpdated, ID: id, Record: updated, Records: snapshot})
	return updated, nil
}

// Remove удаляет запись на бэкенде и затем из коллекции.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		s.logger.Warn("Не удалось удалить запись",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	var removed model.UserRecord
	if i >= 0 {
		removed = s.records[i]
		s.records = append(s.records[:i:i], s.records[i+1:]...)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if i < 0 {
		return s.stale(OpRemove, id, snapshot)
	}

	s.notify(Event{Kind: EventRemoved, ID: id, Record: removed, Records: snapshot})
	return nil
}

// RemoveConfirmed спрашивает подтверждение и только затем вызывает Remove.
// Отказ: (false, nil), запрос не отправляется, состояние не меняется.
func (s *Store) RemoveConfirmed(ctx context.Context, id string, confirmer Confirmer) (bool, error) {
	rec, ok := s.Get(id)
	if !ok {
		rec = model.UserRecord{ID: id}
	}
	if confirmer == nil || !confirmer.Confirm(ctx, rec) {
		s.logger.Debug("Удаление не подтверждено", slog.String("id", id))
		return false, nil
	}
	return true, s.Remove(ctx, id)
}

// Snapshot возвращает копию коллекции в текущем порядке.
func (s *Store) Snapshot() []model.UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get возвращает запись по id.
func (s *Store) Get(id string) (model.UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.records[i], true
	}
	return model.UserRecord{}, false
}

// Len возвращает количество записей.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// stale фиксирует расхождение локальной копии с бэкендом.
func (s *Store) stale(op, id string, snapshot []model.UserRecord) error {
	s.logger.Warn("Бэкенд выполнил операцию над записью, отсутствующей локально",
		slog.String("operation", op),
		slog.String("id", id),
	)
	s.notify(Event{Kind: EventStale, ID: id, Records: snapshot})
	return &NotFoundLocallyError{Op: op, ID: id}
}

// indexLocked ищет позицию записи. Вызывать под s.mu.
func (s *Store) indexLocked(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// indexExceptLocked ищет id, пропуская позицию skip. Вызывать под s.mu.
func (s *Store) indexExceptLocked(id string, skip int) int {
	for i := range s.records {
		if i != skip && s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// snapshotLocked копирует коллекцию. Вызывать под s.mu.
func (s *Store) snapshotLocked() []model.UserRecord {
	out := make([]model.UserRecord, len(s.records))
	copy(out, s.records)
	return out
}

// dedupe схлопывает повторяющиеся id и возвращает число дубликатов.
func dedupe(in []model.UserRecord) ([]model.UserRecord, int) {
	out := make([]model.UserRecord, 0, len(in))
	pos := make(map[string]int, len(in))
	dups := 0
	for _, rec := range in {
		if i, ok := pos[rec.ID]; ok {
			out[i] = rec
			dups++
			continue
		}
		pos[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out, dups
}
