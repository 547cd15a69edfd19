// Пакет handlers — HTTP-обработчики веб-консоли.
// Файл roster.go — страницы ростера: список, создание, редактирование,
// подтверждение и удаление, перезагрузка с бэкенда.
// После POST выполняется redirect (303) с flash-сообщением;
// ошибки формы показываются на той же странице.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/staffroster/internal/domain/model"
	"github.com/bigkaa/staffroster/internal/service"
	"github.com/bigkaa/staffroster/internal/store"
	"github.com/bigkaa/staffroster/internal/ui/i18n"
	"github.com/bigkaa/staffroster/internal/ui/pages"
	"github.com/bigkaa/staffroster/internal/validation"
)

// rosterPath — адрес страницы списка.
const rosterPath = "/roster"

// RosterHandler — обработчик страниц ростера.
type RosterHandler struct {
	roster *service.RosterService
	logger *slog.Logger
}

// NewRosterHandler создаёт новый RosterHandler.
func NewRosterHandler(roster *service.RosterService, logger *slog.Logger) *RosterHandler {
	return &RosterHandler{
		roster: roster,
		logger: logger.With(slog.String("component", "ui.roster")),
	}
}

// HandleList обрабатывает GET /roster — таблица сотрудников.
func (h *RosterHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pages.RosterData{
		Page:    pages.NewPage(ctx, popFlash(w, r).render(ctx)),
		Records: h.roster.Records(),
	}
	h.render(w, r, http.StatusOK, pages.Roster(data))
}

// HandleRefresh обрабатывает POST /roster/refresh — перезагрузка с бэкенда.
func (h *RosterHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.roster.Refresh(r.Context()); err != nil {
		setFlash(w, errorFlash(err))
	} else {
		setFlash(w, flashMessage{Kind: flashSuccess, Key: "flash.refreshed"})
	}
	http.Redirect(w, r, rosterPath, http.StatusSeeOther)
}

// HandleNew обрабатывает GET /roster/new — пустая форма.
func (h *RosterHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.createForm(r, model.UserFields{Role: model.RoleManager}, ""))
}

// HandleCreate обрабатывает POST /roster — создание записи.
func (h *RosterHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fields := fieldsFromForm(r)

	created, err := h.roster.Create(ctx, fields)
	switch {
	case err == nil:
		setFlash(w, flashMessage{Kind: flashSuccess, Key: "flash.created", Args: []string{created.FullName()}})
		http.Redirect(w, r, rosterPath, http.StatusSeeOther)
	case errors.Is(err, validation.ErrInvalid):
		h.render(w, r, http.StatusUnprocessableEntity, h.createForm(r, fields, validationMessage(ctx, err)))
	default:
		h.render(w, r, http.StatusBadGateway, h.createForm(r, fields, errorMessage(ctx, err)))
	}
}

// HandleEdit обрабатывает GET /roster/{id}/edit — форма с текущими значениями.
func (h *RosterHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.roster.Record(id)
	if !ok {
		h.notFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, h.editForm(r, rec, rec.Fields(), ""))
}

// HandleUpdate обрабатывает POST /roster/{id} — сохранение изменений.
func (h *RosterHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	fields := fieldsFromForm(r)

	// Заголовок формы — по текущей локальной записи
	current, ok := h.roster.Record(id)
	if !ok {
		current = fields.WithID(id)
	}

	updated, err := h.roster.Edit(ctx, id, fields)
	switch {
	case err == nil:
		setFlash(w, flashMessage{Kind: flashSuccess, Key: "flash.updated", Args: []string{updated.FullName()}})
		http.Redirect(w, r, rosterPath, http.StatusSeeOther)
	case errors.Is(err, validation.ErrInvalid):
		h.render(w, r, http.StatusUnprocessableEntity, h.editForm(r, current, fields, validationMessage(ctx, err)))
	case errors.Is(err, store.ErrNotFoundLocally):
		setFlash(w, errorFlash(err))
		http.Redirect(w, r, rosterPath, http.StatusSeeOther)
	default:
		h.render(w, r, http.StatusBadGateway, h.editForm(r, current, fields, errorMessage(ctx, err)))
	}
}

// HandleConfirmDelete обрабатывает GET /roster/{id}/delete — страница подтверждения.
func (h *RosterHandler) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, ok := h.roster.Record(chi.URLParam(r, "id"))
	if !ok {
		h.notFound(w, r)
		return
	}
	data := pages.ConfirmDeleteData{
		Page:   pages.NewPage(ctx, nil),
		Record: rec,
	}
	h.render(w, r, http.StatusOK, pages.ConfirmDelete(data))
}

// HandleDelete обрабатывает POST /roster/{id}/delete.
// Запрос к бэкенду отправляется только при confirm=yes.
func (h *RosterHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	name := id
	if rec, ok := h.roster.Record(id); ok {
		name = rec.FullName()
	}

	confirmer := store.ConfirmFunc(func(_ context.Context, _ model.UserRecord) bool {
		return r.FormValue("confirm") == "yes"
	})

	deleted, err := h.roster.Delete(ctx, id, confirmer)
	switch {
	case err != nil:
		setFlash(w, errorFlash(err))
	case !deleted:
		setFlash(w, flashMessage{Kind: flashWarning, Key: "flash.declined"})
	default:
		setFlash(w, flashMessage{Kind: flashSuccess, Key: "flash.deleted", Args: []string{name}})
	}
	http.Redirect(w, r, rosterPath, http.StatusSeeOther)
}

// --- Вспомогательные методы ---

func (h *RosterHandler) createForm(r *http.Request, fields model.UserFields, errMsg string) templ.Component {
	ctx := r.Context()
	return pages.Form(pages.FormData{
		Page:   pages.NewPage(ctx, nil),
		Title:  i18n.T(ctx, "form.new.title"),
		Action: rosterPath,
		Submit: i18n.T(ctx, "form.submit.create"),
		Fields: fields,
		Error:  errMsg,
	})
}

func (h *RosterHandler) editForm(r *http.Request, rec model.UserRecord, fields model.UserFields, errMsg string) templ.Component {
	ctx := r.Context()
	return pages.Form(pages.FormData{
		Page:   pages.NewPage(ctx, nil),
		Title:  i18n.Tf(ctx, "form.edit.title", rec.FullName()),
		Action: rosterPath + "/" + url.PathEscape(rec.ID),
		Submit: i18n.T(ctx, "form.submit.update"),
		Fields: fields,
		Error:  errMsg,
	})
}

// notFound — запись отсутствует локально: возврат к списку с сообщением.
func (h *RosterHandler) notFound(w http.ResponseWriter, r *http.Request) {
	setFlash(w, flashMessage{Kind: flashError, Key: "flash.error.not_found"})
	http.Redirect(w, r, rosterPath, http.StatusSeeOther)
}

// render рендерит страницу в буфер, чтобы ошибка шаблона не оставила
// клиенту частично записанный ответ.
func (h *RosterHandler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		h.logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, i18n.T(r.Context(), "error.render"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fieldsFromForm читает поля записи из формы без нормализации:
// валидатор видит значения такими, какими их ввёл пользователь.
func fieldsFromForm(r *http.Request) model.UserFields {
	return model.UserFields{
		FirstName:   r.FormValue("firstName"),
		LastName:    r.FormValue("lastName"),
		PhoneNumber: r.FormValue("phoneNumber"),
		Email:       r.FormValue("email"),
		Role:        model.Role(r.FormValue("role")),
	}
}
