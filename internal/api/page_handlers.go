package api

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/models"
)

//go:embed templates/page.html
var templateFS embed.FS

type pageData struct {
	View  flow.View
	Error string
}

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}
	return &pageRenderer{tmpl: tmpl}, nil
}

// render writes the page for view. The template runs into a buffer so a
// failure can still produce a clean 500.
func (p *pageRenderer) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		slog.Error("Server.render: template execution failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Server.render: failed to write page", "error", err)
	}
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessionID(w, r)
	if err != nil {
		s.renderError(w, err, nil)
		return
	}
	sess, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		s.renderError(w, err, nil)
		return
	}
	s.page.render(w, http.StatusOK, pageData{View: flow.Render(sess)})
}

func (s *Server) nameFormHandler(w http.ResponseWriter, r *http.Request) {
	s.formInteraction(w, r, func(sess *flow.Session) error {
		return sess.SubmitName(r.PostFormValue("answer"))
	})
}

func (s *Server) onboardingFormHandler(w http.ResponseWriter, r *http.Request) {
	s.formInteraction(w, r, func(sess *flow.Session) error {
		return sess.SubmitAnswer(models.Field(r.PostFormValue("field")), r.PostFormValue("answer"))
	})
}

// chatFormHandler answers the message within the request; the page has no
// script to poll for a pending reply.
func (s *Server) chatFormHandler(w http.ResponseWriter, r *http.Request) {
	s.formInteraction(w, r, func(sess *flow.Session) error {
		_, err := sess.Send(r.Context(), s.driver, r.PostFormValue("message"))
		return err
	})
}

// formInteraction runs fn on the session and redirects back to the page, or
// re-renders the page with the error when fn is rejected.
func (s *Server) formInteraction(w http.ResponseWriter, r *http.Request, fn func(*flow.Session) error) {
	id, err := s.sessionID(w, r)
	if err != nil {
		s.renderError(w, err, nil)
		return
	}
	if _, err := s.sessions.Do(r.Context(), id, fn); err != nil {
		sess, loadErr := s.sessions.Load(r.Context(), id)
		if loadErr != nil {
			sess = nil
		}
		s.renderError(w, err, sess)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderError(w http.ResponseWriter, err error, sess *flow.Session) {
	status, msg := statusFor(err)
	if sess == nil {
		if status == http.StatusInternalServerError {
			slog.Error("Server.renderError: request failed", "error", err)
		}
		http.Error(w, msg, status)
		return
	}
	s.page.render(w, status, pageData{View: flow.Render(sess), Error: msg})
}
