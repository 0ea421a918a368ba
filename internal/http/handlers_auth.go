package http

import (
	"net/http"
	"strings"
	"time"

	applog "teampower/internal/log"
	"teampower/internal/session"
)

// SessionCookie carries the session token for browser clients. API clients
// may send the same token as a Bearer credential.
const SessionCookie = "tp_session"

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func sessionFrom(r *http.Request) (session.Session, bool) {
	return session.FromContext(r.Context())
}

// withSession resolves the caller's session, if any, and attaches it to the
// request context. Unauthenticated requests pass through unchanged.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := s.sessions.Resolve(tokenFrom(r)); ok {
			r = r.WithContext(session.WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFrom(r); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	})
}

func (s *Server) requireRole(role session.Role, next http.HandlerFunc) http.Handler {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFrom(r)
		if sess.Role != role {
			s.logger.WarnContext(r.Context(), "Forbidden request",
				applog.FieldUser, sess.Username,
				applog.FieldRole, sess.Role,
				applog.FieldPath, r.URL.Path)
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	Username  string       `json:"username"`
	Role      session.Role `json:"role"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.sessions.Login(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		s.logger.InfoContext(r.Context(), "Login rejected",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldUser, req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	s.logger.InfoContext(r.Context(), "User logged in",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldUser, sess.Username,
		applog.FieldRole, sess.Role)

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		Username:  sess.Username,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	s.sessions.Logout(sess.Token)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	s.logger.InfoContext(r.Context(), "User logged out",
		applog.FieldOperation, applog.OpLogout,
		applog.FieldUser, sess.Username)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	writeJSON(w, http.StatusOK, session.User{Username: sess.Username, Role: sess.Role})
}

type passwordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, _ := sessionFrom(r)
	dir := s.sessions.Directory()
	if _, err := dir.Authenticate(sess.Username, req.Current); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is wrong")
		return
	}
	if err := dir.UpdatePassword(sess.Username, req.New); err != nil {
		s.writeDomainError(w, r, applog.OpUpdate, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Password changed", applog.FieldUser, sess.Username)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Directory().List())
}

type roleRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	role, err := session.ParseRole(req.Role)
	if err != nil {
		s.writeDomainError(w, r, applog.OpUpdate, err)
		return
	}
	if err := s.sessions.Directory().SetRole(req.Username, role); err != nil {
		s.writeDomainError(w, r, applog.OpUpdate, err)
		return
	}
	admin, _ := sessionFrom(r)
	s.logger.InfoContext(r.Context(), "User role changed",
		applog.FieldUser, req.Username,
		applog.FieldRole, role,
		"changed_by", admin.Username)
	w.WriteHeader(http.StatusNoContent)
}
