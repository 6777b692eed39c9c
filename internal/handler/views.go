package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/workflow"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageFiles = []string{
	"login", "dashboard", "orders", "order", "users", "user", "loyalty",
	"bouquets", "bouquet", "constructor", "settings", "broadcast", "notfound",
}

var kindLabels = map[model.ConstructorKind]string{
	model.ConstructorFlowers:   "Цветы",
	model.ConstructorGreenery:  "Зелень",
	model.ConstructorPackaging: "Упаковка",
}

var flagLabels = map[model.BouquetFlag]string{
	model.BouquetFlagInStock: "В наличии",
	model.BouquetFlagIsHit:   "Хит",
	model.BouquetFlagIsNew:   "Новинка",
}

var templateFuncs = template.FuncMap{
	"statusLabel": workflow.Label,
	"actions":     workflow.Actions,
	"noActions":   func() string { return workflow.NoActionsLabel },
	"money":       formatMoney,
	"date":        formatDate,
	"kindLabel":   kindLabel,
	"flagLabel":   func(f model.BouquetFlag) string { return flagLabels[f] },
	"join":        strings.Join,
	"signed":      formatSigned,
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2) + " ₽"
}

// formatSigned печатает число баллов со знаком. Результат состоит только из
// цифр и знака, поэтому экранирование "+" не требуется.
func formatSigned(n int64) template.HTML {
	return template.HTML(fmt.Sprintf("%+d", n))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02.01.2006 15:04")
}

func kindLabel(k model.ConstructorKind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// page общие данные всех страниц панели.
type page struct {
	Title  string
	Active string
	Admin  *model.Admin
	Notice string
	Error  string
	Data   any
}

type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, name := range pageFiles {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templatesFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func mustLoadViews() *views {
	v, err := loadViews()
	if err != nil {
		panic(err)
	}
	return v
}

func (v *views) render(w http.ResponseWriter, status int, name string, p page) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// render выводит страницу от имени сотрудника текущей сессии.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	p.Admin = currentAdmin(r)
	if err := h.views.render(w, status, name, p); err != nil {
		h.logger.Error("render page error", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// renderError выводит страницу с сообщением об ошибке. Отклонённый токен
// закрывает сессию, отсутствующая запись показывает пустую страницу.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error, name string, p page, msg string) {
	if h.handleAuthError(w, r, err) {
		return
	}
	h.logFailure(r, msg, err)

	status, text := classify(err, msgUpstreamDown)
	if status == http.StatusNotFound {
		h.render(w, r, http.StatusNotFound, "notfound", page{Title: "Не найдено", Active: p.Active, Error: text})
		return
	}
	p.Error = text
	h.render(w, r, status, name, p)
}
