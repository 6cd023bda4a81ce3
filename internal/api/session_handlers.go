package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/models"
)

type nameRequest struct {
	Name string `json:"name"`
}

type answerRequest struct {
	Field  models.Field `json:"field"`
	Answer string       `json:"answer"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type replyResult struct {
	Reply string    `json:"reply"`
	View  flow.View `json:"view"`
}

// sessionID returns the session named by the request cookie, creating a new
// session and setting the cookie when there is none or it has expired.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created, err := s.sessions.LoadOrCreate(r.Context(), id)
	if err != nil {
		return "", err
	}
	if created {
		slog.Debug("Server.sessionID: new session", "session", sess.ID, "had_cookie", id != "")
		s.setSessionCookie(w, sess.ID)
	}
	return sess.ID, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// interact runs fn on the caller's session and writes the resulting view.
func (s *Server) interact(w http.ResponseWriter, r *http.Request, status int, fn func(*flow.Session) error) {
	id, err := s.sessionID(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.sessions.Do(r.Context(), id, fn)
	if err != nil {
		slog.Debug("Server.interact: interaction rejected", "session", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSONResponse(w, status, models.Success(flow.Render(sess)))
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidJSON
	}
	return nil
}

var errInvalidJSON = errors.New("invalid JSON format")

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessionID(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(flow.Render(sess)))
}

func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("No active session", nil))
		return
	}
	if err := s.sessions.End(r.Context(), c.Value); err != nil {
		writeError(w, err)
		return
	}
	s.clearSessionCookie(w)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session ended", nil))
}

func (s *Server) submitNameHandler(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	s.interact(w, r, http.StatusOK, func(sess *flow.Session) error {
		return sess.SubmitName(req.Name)
	})
}

func (s *Server) submitAnswerHandler(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	s.interact(w, r, http.StatusOK, func(sess *flow.Session) error {
		return sess.SubmitAnswer(req.Field, req.Answer)
	})
}

// captureMessageHandler stores the message as pending; the client then calls
// resolvePendingHandler to obtain the answer.
func (s *Server) captureMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	s.interact(w, r, http.StatusAccepted, func(sess *flow.Session) error {
		return sess.CaptureInput(req.Message)
	})
}

func (s *Server) resolvePendingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessionID(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var reply string
	sess, err := s.sessions.Do(r.Context(), id, func(sess *flow.Session) error {
		var err error
		reply, err = sess.ResolvePending(r.Context(), s.driver)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(replyResult{Reply: reply, View: flow.Render(sess)}))
}
