package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"list": func(values []string) string { return utils.JoinList(values, "-") },
	"vote": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}).ParseFS(templateFS, "templates/*.html"))

type homePage struct {
	Titles   []string
	DefaultK int
	MaxK     int
}

type resultsPage struct {
	Title string
	Items []models.ItemView
}

type messagePage struct {
	Message     string
	Suggestions []models.TitleSuggestion
	K           int
}

// render executes the named page into a buffer first so a template failure
// never leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render page failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderMessage(w http.ResponseWriter, status int, message string, suggestions []models.TitleSuggestion, k int) {
	s.render(w, status, "message", messagePage{Message: message, Suggestions: suggestions, K: k})
}
