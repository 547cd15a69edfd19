// flash.go — одноразовые сообщения между POST и следующей страницей (cookie).
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bigkaa/staffroster/internal/service"
	"github.com/bigkaa/staffroster/internal/ui/i18n"
	"github.com/bigkaa/staffroster/internal/ui/pages"
	"github.com/bigkaa/staffroster/internal/validation"
)

// flashCookieName — имя cookie flash-сообщения.
const flashCookieName = "sr_flash"

// Виды flash-сообщений.
const (
	flashSuccess = "success"
	flashWarning = "warning"
	flashError   = "error"
)

// flashMessage — flash в cookie: ключ перевода и аргументы.
// Перевод выполняется при показе, на языке следующего запроса.
type flashMessage struct {
	Kind string   `json:"k"`
	Key  string   `json:"m"`
	Args []string `json:"a,omitempty"`
}

// setFlash сохраняет сообщение до следующего запроса.
func setFlash(w http.ResponseWriter, f flashMessage) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash читает и удаляет flash-сообщение.
func popFlash(w http.ResponseWriter, r *http.Request) *flashMessage {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var f flashMessage
	if err := json.Unmarshal(data, &f); err != nil || f.Key == "" {
		return nil
	}
	return &f
}

// render переводит сообщение для страницы.
func (f *flashMessage) render(ctx context.Context) *pages.Flash {
	if f == nil {
		return nil
	}
	return &pages.Flash{Kind: f.Kind, Message: i18n.Tf(ctx, f.Key, stringArgs(f.Args)...)}
}

// errorFlash сводит ошибку операции к flash-сообщению.
func errorFlash(err error) flashMessage {
	switch service.Classify(err) {
	case service.ResultNotFoundLocally:
		return flashMessage{Kind: flashWarning, Key: "flash.error.stale"}
	case service.ResultRejected:
		return flashMessage{Kind: flashError, Key: "flash.error.rejected", Args: []string{err.Error()}}
	default:
		return flashMessage{Kind: flashError, Key: "flash.error.transport", Args: []string{err.Error()}}
	}
}

// errorMessage — локализованный текст ошибки операции для формы.
func errorMessage(ctx context.Context, err error) string {
	f := errorFlash(err)
	return f.render(ctx).Message
}

// validationMessage возвращает локализованное сообщение валидации.
// Для неизвестного поля — исходное сообщение валидатора.
func validationMessage(ctx context.Context, err error) string {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return err.Error()
	}
	key := "validation." + verr.Field
	if msg := i18n.T(ctx, key); msg != key {
		return msg
	}
	return verr.Message
}

func stringArgs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
