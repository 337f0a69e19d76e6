package http

import (
	"errors"
	"net/http"
	"time"

	"fatura/internal/api"
	"fatura/internal/session"
)

// requireSession loads the session named by the cookie into the request
// context. Missing or expired sessions get a 401 and a cleared cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(session.CookieName)
		if err != nil || c.Value == "" {
			UnauthorizedError(session.ErrUnauthenticated.Error()).Cookie(clearedCookie(r)).Write(w)
			return
		}
		sess, err := s.auth.Authenticate(c.Value)
		if err != nil {
			UnauthorizedError(err.Error()).Cookie(clearedCookie(r)).Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

// currentSession is only called behind requireSession.
func currentSession(r *http.Request) session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

func sessionCookie(r *http.Request, sess session.Session) *http.Cookie {
	return &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

func clearedCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

func sessionResponse(sess session.Session) api.SessionResponse {
	return api.SessionResponse{Username: sess.Username, Name: sess.Name, ExpiresAt: sess.ExpiresAt}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Name = sanitizeInput(req.Name)
	req.Username = sanitizeInput(req.Username)

	user, err := s.auth.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(userResponse(user)).Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Cookie(sessionCookie(r, sess)).Body(sessionResponse(sess)).Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, err := s.auth.Refresh(r.Context(), currentSession(r).Token)
	if errors.Is(err, session.ErrUnauthenticated) {
		UnauthorizedError(err.Error()).Cookie(clearedCookie(r)).Write(w)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Cookie(sessionCookie(r, sess)).Body(sessionResponse(sess)).Write(w)
}

// handleLogout always succeeds; an unknown token is already signed out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		s.auth.SignOut(r.Context(), c.Value)
	}
	NewJSONResponse().Status(http.StatusNoContent).Cookie(clearedCookie(r)).Write(w)
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.Panel(r.Context(), currentSession(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(panelResponse(view)).Write(w)
}
