// Пакет validation — проверка кандидата записи перед отправкой в бэкенд.
// Чистая функция: без побочных эффектов, без ввода-вывода, без состояния.
package validation

import (
	"errors"
	"regexp"

	"github.com/bigkaa/staffroster/internal/domain/model"
)

// Сообщения валидации показываются пользователю как есть.
const (
	MsgFirstName = "First Name can contain only letters"
	MsgLastName  = "Last Name can contain only letters"
	MsgPhone     = "Phone number can contain only numbers"
)

var (
	// namePattern — латиница, ивритские буквы (алеф..тав) и пробельные символы,
	// включая Unicode-пробелы (NBSP, U+2028, BOM); \s в RE2 покрывает только ASCII.
	namePattern = regexp.MustCompile(`^[a-zA-Z\x{05D0}-\x{05EA}\p{Zs}\t\n\v\f\r\x{2028}\x{2029}\x{FEFF}]+$`)
	// phonePattern — одна или более цифр.
	phonePattern = regexp.MustCompile(`^[0-9]+$`)
)

// ErrInvalid — базовая ошибка для errors.Is.
var ErrInvalid = errors.New("кандидат не прошёл валидацию")

// Error — ошибка валидации одного поля.
// Error() возвращает текст для пользователя без префиксов.
type Error struct {
	// Field — JSON-имя поля (firstName, lastName, phoneNumber)
	Field string
	// Message — сообщение для пользователя
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is делает errors.Is(err, ErrInvalid) истинным.
func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Result — результат проверки в форме {ok, message}.
type Result struct {
	OK      bool
	Message string
}

// rule — одно правило: поле, извлечение значения, шаблон и сообщение.
type rule struct {
	field   string
	value   func(model.UserFields) string
	pattern *regexp.Regexp
	message string
}

// rules применяются строго по порядку, первая ошибка побеждает.
// Email и Role не проверяются.
var rules = []rule{
	{field: "firstName", value: func(c model.UserFields) string { return c.FirstName }, pattern: namePattern, message: MsgFirstName},
	{field: "lastName", value: func(c model.UserFields) string { return c.LastName }, pattern: namePattern, message: MsgLastName},
	{field: "phoneNumber", value: func(c model.UserFields) string { return c.PhoneNumber }, pattern: phonePattern, message: MsgPhone},
}

// Validate проверяет кандидата. Возвращает nil или *Error для первого
// нарушенного правила.
func Validate(c model.UserFields) error {
	for _, r := range rules {
		if !r.pattern.MatchString(r.value(c)) {
			return &Error{Field: r.field, Message: r.message}
		}
	}
	return nil
}

// Check — Validate в форме Result.
func Check(c model.UserFields) Result {
	var verr *Error
	if err := Validate(c); errors.As(err, &verr) {
		return Result{OK: false, Message: verr.Message}
	}
	return Result{OK: true}
}
