package http

import (
	"errors"
	"net/http"

	"caja/internal/auth"
	clog "caja/internal/log"
)

type loginPage struct {
	Email string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentPrincipal(r); ok {
		NewResponse().Redirect("/").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := clog.FromContext(ctx).WithComponent(clog.ComponentAuth)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de solicitud inválido.").Write(w)
		return
	}
	email, password := p.Get("email"), p.Get("password")

	principal, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		msg := auth.MsgInvalidCredentials
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logger.ErrorContext(ctx, "Authentication failed", clog.FieldError, err)
			msg = "No se pudo iniciar sesión. Intentá de nuevo."
		} else {
			logger.WarnContext(ctx, "Rejected login", clog.FieldUser, email, clog.FieldOperation, clog.OpLogin)
		}
		s.render(w, r, http.StatusUnauthorized, "login.html", loginPage{Email: email, Error: msg})
		return
	}

	token, err := s.sessions.Create(principal)
	if err != nil {
		logger.ErrorContext(ctx, "Session creation failed", clog.FieldError, err)
		InternalServerError("No se pudo iniciar sesión.").Write(w)
		return
	}
	http.SetCookie(w, s.sessionCookie(token, 0))
	logger.InfoContext(ctx, "User logged in",
		clog.FieldUser, principal.Email,
		clog.FieldRole, string(principal.Role),
		clog.FieldOperation, clog.OpLogin)
	NewResponse().Redirect("/").Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Destroy(c.Value)
	}
	http.SetCookie(w, s.sessionCookie("", -1))
	NewResponse().Redirect("/login").Write(w)
}

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) currentPrincipal(r *http.Request) (auth.Principal, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return auth.Principal{}, false
	}
	return s.sessions.Lookup(c.Value)
}

// requireSession redirects anonymous requests to the login page and puts
// the session principal in the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.currentPrincipal(r)
		if !ok {
			NewResponse().Redirect("/login").Write(w)
			return
		}
		ctx := withPrincipal(r.Context(), p)
		actor := clog.NewFields().WithUser(p.Email, string(p.Role))
		ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With(actor.ToSlice()...))
		next(w, r.WithContext(ctx))
	})
}
