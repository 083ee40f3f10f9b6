package services

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/web"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Renderer renders the embedded HTML templates and carries flash messages
// between a redirect-after-POST and the next GET. Flashes live in Redis
// keyed by the session token id; without Redis they are logged and dropped.
type Renderer struct {
	tmpl  *template.Template
	redis *redis.Client
}

const flashTTL = 15 * time.Minute

func NewRenderer(redisClient *redis.Client) (*Renderer, error) {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"month": func(t time.Time) string { return t.Format("01/2006") },
		"date":  func(t time.Time) string { return t.Format("02/01/2006") },
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{tmpl: tmpl, redis: redisClient}, nil
}

// Flash queues a message for the session's next rendered page.
func (rd *Renderer) Flash(r *http.Request, level, message string) {
	sessionID := middleware.SessionID(r.Context())
	if rd.redis == nil || sessionID == "" {
		log.Printf("[FLASH] (%s) %s", level, message)
		return
	}

	payload, _ := json.Marshal(Flash{Level: level, Message: message})
	key := "flash:" + sessionID
	if err := rd.redis.RPush(r.Context(), key, payload).Err(); err != nil {
		log.Printf("[FLASH] Failed to queue flash: %v", err)
		return
	}
	rd.redis.Expire(r.Context(), key, flashTTL)
}

func (rd *Renderer) popFlashes(r *http.Request) []Flash {
	sessionID := middleware.SessionID(r.Context())
	if rd.redis == nil || sessionID == "" {
		return nil
	}

	key := "flash:" + sessionID
	raw, err := rd.redis.LRange(r.Context(), key, 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil
	}
	rd.redis.Del(r.Context(), key)

	flashes := make([]Flash, 0, len(raw))
	for _, item := range raw {
		var f Flash
		if err := json.Unmarshal([]byte(item), &f); err == nil {
			flashes = append(flashes, f)
		}
	}
	return flashes
}

// HTML renders the named page template with flashes and session info merged
// into the data map.
func (rd *Renderer) HTML(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["Flashes"] = rd.popFlashes(r)
	if isAdmin, ok := r.Context().Value(middleware.IsAdminKey).(bool); ok {
		data["IsAdmin"] = isAdmin
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rd.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[RENDER] Failed to render %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Redirect flashes a message and redirects (303) per redirect-after-POST.
func (rd *Renderer) Redirect(w http.ResponseWriter, r *http.Request, url, level, message string) {
	if message != "" {
		rd.Flash(r, level, message)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Fail flashes an error and redirects. Validation errors surface their own
// message; anything else is logged and replaced by a generic failure.
func (rd *Renderer) Fail(w http.ResponseWriter, r *http.Request, url, logTag string, err error) {
	if IsValidationError(err) {
		rd.Redirect(w, r, url, "danger", err.Error())
		return
	}
	log.Printf("%s Unexpected error: %v", logTag, err)
	rd.Redirect(w, r, url, "danger", "An unexpected error occurred. Please try again.")
}
