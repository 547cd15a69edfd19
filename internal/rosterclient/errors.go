// errors.go — таксономия ошибок обращения к бэкенду.
// TransportError и RemoteRejection обрабатываются вызывающим кодом одинаково,
// тип нужен только для диагностики и метрик.
package rosterclient

import (
	"errors"
	"fmt"
)

// ErrBackend — базовая ошибка для errors.Is: любая неудача round-trip.
var ErrBackend = errors.New("ошибка обращения к бэкенду")

// TransportError — запрос не дошёл или ответ не удалось разобрать.
type TransportError struct {
	// Op — операция (list, create, update, delete)
	Op string
	// Err — исходная ошибка
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: транспортная ошибка: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is делает errors.Is(err, ErrBackend) истинным.
func (e *TransportError) Is(target error) bool {
	return target == ErrBackend
}

// RemoteRejection — бэкенд ответил статусом вне 2xx.
type RemoteRejection struct {
	// Op — операция (list, create, update, delete)
	Op string
	// StatusCode — HTTP-статус ответа
	StatusCode int
	// Body — тело ответа (усечённое) для диагностики
	Body string
}

func (e *RemoteRejection) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: бэкенд вернул статус %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: бэкенд вернул статус %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is делает errors.Is(err, ErrBackend) истинным.
func (e *RemoteRejection) Is(target error) bool {
	return target == ErrBackend
}
