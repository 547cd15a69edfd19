// Пакет model — доменные модели Staff Roster.
// UserRecord — запись сотрудника в ростере (зеркало записи бэкенда).
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Role — должность сотрудника.
type Role string

const (
	// RoleManager — менеджер
	RoleManager Role = "Manager"
	// RoleWaiter — официант
	RoleWaiter Role = "Waiter"
)

// AllRoles возвращает допустимые роли в порядке отображения в форме.
func AllRoles() []Role {
	return []Role{RoleManager, RoleWaiter}
}

// Valid возвращает true для известных ролей.
func (r Role) Valid() bool {
	return r == RoleManager || r == RoleWaiter
}

// UserFields — поля записи без идентификатора.
// Тело запросов создания и обновления; кандидат для валидации.
type UserFields struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

// WithID собирает полную запись с указанным идентификатором.
func (f UserFields) WithID(id string) UserRecord {
	return UserRecord{
		ID:          id,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		PhoneNumber: f.PhoneNumber,
		Email:       f.Email,
		Role:        f.Role,
	}
}

// UserRecord — запись сотрудника.
type UserRecord struct {
	// ID — идентификатор, назначенный бэкендом при создании
	ID string `json:"id"`
	// FirstName — имя
	FirstName string `json:"firstName"`
	// LastName — фамилия
	LastName string `json:"lastName"`
	// PhoneNumber — телефон (только цифры)
	PhoneNumber string `json:"phoneNumber"`
	// Email — адрес электронной почты (формат не проверяется)
	Email string `json:"email"`
	// Role — должность
	Role Role `json:"role"`
}

// Fields возвращает поля записи без идентификатора.
func (u UserRecord) Fields() UserFields {
	return UserFields{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		Role:        u.Role,
	}
}

// FullName возвращает «Имя Фамилия».
func (u UserRecord) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UnmarshalJSON принимает id как строку или как число.
// Бэкенды на json-server и подобных отдают числовые id.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	type alias UserRecord
	var raw struct {
		alias
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := parseID(raw.ID)
	if err != nil {
		return err
	}

	*u = UserRecord(raw.alias)
	u.ID = id
	return nil
}

// parseID нормализует JSON-значение id к строке.
func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("некорректный id: %w", err)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id должен быть строкой или числом: %s", string(raw))
	}
	// Целые числа без экспоненты и дробной части
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}
