// Пакет pages — страницы веб-консоли.
// Шаблоны html/template встроены через go:embed и отдаются как templ.Component,
// поэтому обработчики рендерят их единообразно: pages.Roster(data).Render(ctx, w).
package pages

import (
	"context"
	"embed"
	"html/template"
	"net/url"

	"github.com/a-h/templ"

	"github.com/bigkaa/staffroster/internal/domain/model"
	"github.com/bigkaa/staffroster/internal/ui/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"pathEscape": url.PathEscape,
}

var (
	rosterTmpl  = mustParse("roster.html")
	formTmpl    = mustParse("form.html")
	confirmTmpl = mustParse("confirm.html")
)

// mustParse собирает страницу из общего layout и шаблона страницы.
func mustParse(page string) *template.Template {
	return template.Must(
		template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)
}

// Flash — одноразовое сообщение над содержимым страницы.
type Flash struct {
	// Kind — success, warning или error (CSS-класс flash-<kind>)
	Kind    string
	Message string
}

// Page — общие данные всех страниц: язык, направление письма, flash.
type Page struct {
	ctx   context.Context
	Lang  string
	Dir   string
	Flash *Flash
}

// NewPage создаёт данные страницы для языка из контекста запроса.
func NewPage(ctx context.Context, flash *Flash) Page {
	lang := i18n.LangFromContext(ctx)
	return Page{
		ctx:   ctx,
		Lang:  lang,
		Dir:   i18n.Dir(lang),
		Flash: flash,
	}
}

// T — перевод по ключу.
func (p Page) T(key string) string {
	return i18n.T(p.ctx, key)
}

// Tf — перевод с аргументами.
func (p Page) Tf(key string, args ...any) string {
	return i18n.Tf(p.ctx, key, args...)
}

// RoleLabel — локализованное название роли; неизвестная роль выводится как есть.
func (p Page) RoleLabel(r model.Role) string {
	if !r.Valid() {
		return string(r)
	}
	return p.T("role." + string(r))
}

// RosterData — данные страницы списка.
type RosterData struct {
	Page
	Records []model.UserRecord
}

// Roster — страница списка сотрудников.
func Roster(data RosterData) templ.Component {
	return templ.FromGoHTML(rosterTmpl, data)
}

// FormData — данные формы создания и редактирования.
type FormData struct {
	Page
	Title  string
	Action string
	Submit string
	Fields model.UserFields
	Roles  []model.Role
	// Error — сообщение валидации или ошибки бэкенда
	Error string
}

// Form — форма записи.
func Form(data FormData) templ.Component {
	if data.Roles == nil {
		data.Roles = model.AllRoles()
	}
	return templ.FromGoHTML(formTmpl, data)
}

// ConfirmDeleteData — данные страницы подтверждения удаления.
type ConfirmDeleteData struct {
	Page
	Record model.UserRecord
}

// ConfirmDelete — страница подтверждения удаления.
func ConfirmDelete(data ConfirmDeleteData) templ.Component {
	return templ.FromGoHTML(confirmTmpl, data)
}
