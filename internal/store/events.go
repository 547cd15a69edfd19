package store

import "github.com/bigkaa/staffroster/internal/domain/model"

// EventKind — тип изменения коллекции.
type EventKind string

const (
	// EventLoaded — коллекция заменена результатом Load
	EventLoaded EventKind = "loaded"
	// EventAdded — запись добавлена
	EventAdded EventKind = "added"
	// EventUpdated — запись заменена
	EventUpdated EventKind = "updated"
	// EventRemoved — запись удалена
	EventRemoved EventKind = "removed"
	// EventStale — бэкенд изменил запись, которой нет локально; нужна перезагрузка
	EventStale EventKind = "stale"
)

// Event — уведомление об изменении коллекции.
// Доставляется после применения изменения, вне блокировки.
type Event struct {
	Kind EventKind `json:"kind"`
	// ID — id затронутой записи (пусто для EventLoaded)
	ID string `json:"id,omitempty"`
	// Record — затронутая запись (для added, updated, removed)
	Record model.UserRecord `json:"record"`
	// Records — снимок коллекции после изменения
	Records []model.UserRecord `json:"records"`
}

// Subscribe регистрирует обработчик событий.
// Возвращает функцию отписки; повторный вызов отписки безопасен.
// Обработчик вызывается синхронно в горутине, выполнившей операцию.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify рассылает событие всем подписчикам.
func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
