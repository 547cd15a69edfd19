package validation

import (
	"errors"
	"testing"

	"github.com/bigkaa/staffroster/internal/domain/model"
)

// validCandidate — кандидат, проходящий все правила.
func validCandidate() model.UserFields {
	return model.UserFields{
		FirstName:   "John",
		LastName:    "Doe",
		PhoneNumber: "1234567890",
		Email:       "john@example.com",
		Role:        model.RoleManager,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*model.UserFields)
		wantField string
		wantMsg   string
	}{
		{name: "валидный кандидат", mutate: func(*model.UserFields) {}},
		{name: "имя с пробелом", mutate: func(c *model.UserFields) { c.FirstName = "Mary Ann" }},
		{name: "неразрывный пробел в имени", mutate: func(c *model.UserFields) { c.FirstName = "Mary\u00a0Ann" }},
		{name: "табуляция и вертикальная табуляция", mutate: func(c *model.UserFields) { c.LastName = "Van\tDer\vBerg" }},
		{name: "узкий неразрывный пробел", mutate: func(c *model.UserFields) { c.LastName = "Le\u202fBlanc" }},
		{name: "имя на иврите", mutate: func(c *model.UserFields) { c.FirstName = "יוסי"; c.LastName = "כהן" }},
		{name: "email не проверяется", mutate: func(c *model.UserFields) { c.Email = "not an email" }},
		{name: "пустой email", mutate: func(c *model.UserFields) { c.Email = "" }},
		{name: "неизвестная роль допускается", mutate: func(c *model.UserFields) { c.Role = "Chef" }},
		{name: "пустая роль допускается", mutate: func(c *model.UserFields) { c.Role = "" }},
		{
			name:      "цифра в имени",
			mutate:    func(c *model.UserFields) { c.FirstName = "J0hn" },
			wantField: "firstName", wantMsg: MsgFirstName,
		},
		{
			name:      "пустое имя",
			mutate:    func(c *model.UserFields) { c.FirstName = "" },
			wantField: "firstName", wantMsg: MsgFirstName,
		},
		{
			name:      "пунктуация в имени",
			mutate:    func(c *model.UserFields) { c.FirstName = "O'Brien" },
			wantField: "firstName", wantMsg: MsgFirstName,
		},
		{
			name:      "кириллица не входит в алфавит",
			mutate:    func(c *model.UserFields) { c.FirstName = "Иван" },
			wantField: "firstName", wantMsg: MsgFirstName,
		},
		{
			name:      "дефис в фамилии",
			mutate:    func(c *model.UserFields) { c.LastName = "Smith-Jones" },
			wantField: "lastName", wantMsg: MsgLastName,
		},
		{
			name:      "цифра в фамилии",
			mutate:    func(c *model.UserFields) { c.LastName = "D0e" },
			wantField: "lastName", wantMsg: MsgLastName,
		},
		{
			name:      "телефон с плюсом",
			mutate:    func(c *model.UserFields) { c.PhoneNumber = "+1234567" },
			wantField: "phoneNumber", wantMsg: MsgPhone,
		},
		{
			name:      "телефон с пробелом",
			mutate:    func(c *model.UserFields) { c.PhoneNumber = "123 456" },
			wantField: "phoneNumber", wantMsg: MsgPhone,
		},
		{
			name:      "пустой телефон",
			mutate:    func(c *model.UserFields) { c.PhoneNumber = "" },
			wantField: "phoneNumber", wantMsg: MsgPhone,
		},
		{
			name: "первая ошибка побеждает",
			mutate: func(c *model.UserFields) {
				c.FirstName = "J0hn"
				c.LastName = "D0e"
				c.PhoneNumber = "abc"
			},
			wantField: "firstName", wantMsg: MsgFirstName,
		},
		{
			name: "фамилия раньше телефона",
			mutate: func(c *model.UserFields) {
				c.LastName = "D0e"
				c.PhoneNumber = "abc"
			},
			wantField: "lastName", wantMsg: MsgLastName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)

			err := Validate(c)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, ожидался nil", err)
				}
				return
			}

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, ожидался *Error", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, ожидалось %q", verr.Field, tt.wantField)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, ожидалось %q", err.Error(), tt.wantMsg)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Error("errors.Is(err, ErrInvalid) = false")
			}
		})
	}
}

// TestValidate_Deterministic проверяет отсутствие скрытого состояния:
// порядок вызовов не влияет на результат.
func TestValidate_Deterministic(t *testing.T) {
	bad := validCandidate()
	bad.FirstName = "J0hn"
	good := validCandidate()

	for i := 0; i < 3; i++ {
		if err := Validate(bad); err == nil || err.Error() != MsgFirstName {
			t.Fatalf("итерация %d: Validate(bad) = %v", i, err)
		}
		if err := Validate(good); err != nil {
			t.Fatalf("итерация %d: Validate(good) = %v", i, err)
		}
	}
}

func TestCheck(t *testing.T) {
	if res := Check(validCandidate()); !res.OK || res.Message != "" {
		t.Errorf("Check(valid) = %+v, ожидалось {OK:true}", res)
	}

	c := validCandidate()
	c.PhoneNumber = "12-34"
	res := Check(c)
	if res.OK {
		t.Fatal("Check(invalid).OK = true")
	}
	if res.Message != MsgPhone {
		t.Errorf("Message = %q, ожидалось %q", res.Message, MsgPhone)
	}
}
