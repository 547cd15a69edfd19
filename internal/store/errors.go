package store

import (
	"errors"
	"fmt"
)

// Операции Store (поле Op ошибок и лейблы логов).
const (
	OpUpdate = "update"
	OpRemove = "remove"
)

// ErrNotFoundLocally — бэкенд подтвердил операцию, но записи с таким id
// нет в локальной коллекции. Локальная копия устарела.
var ErrNotFoundLocally = errors.New("запись отсутствует в локальной коллекции")

// NotFoundLocallyError — подробности ErrNotFoundLocally.
type NotFoundLocallyError struct {
	Op string
	ID string
}

func (e *NotFoundLocallyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, ErrNotFoundLocally)
}

// Is делает errors.Is(err, ErrNotFoundLocally) истинным.
func (e *NotFoundLocallyError) Is(target error) bool {
	return target == ErrNotFoundLocally
}
