package http

import (
	"context"
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Availabilities *AvailabilityHandler
	Sessions       *SessionHandler
	Calendar       *CalendarHandler

	// RequireAuth guards every route other than registration, login, health
	// and metrics. A nil value leaves those routes unguarded.
	RequireAuth func(http.Handler) http.Handler
	Metrics     *Metrics
	Health      func(ctx context.Context) error
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.RequireAuth == nil {
			return h
		}
		return cfg.RequireAuth(h)
	}

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			if err := cfg.Health(r.Context()); err != nil {
				handlerLogger(r.Context(), nil, "Router", "Health").ErrorContext(r.Context(), "health check failed", "error", err)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
	}

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics.Handler())
	}

	if cfg.Users != nil {
		mux.HandleFunc("/api/register", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.Register(w, r)
		})
		mux.Handle("/api/auth/session", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Users.Current(w, r)
		}))
		mux.Handle("/api/users", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Users.List(w, r)
		}))
		mux.Handle("/api/users/", protect(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/api/users/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch r.Method {
			case http.MethodPatch:
				cfg.Users.UpdateRole(w, r)
			case http.MethodDelete:
				cfg.Users.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPatch, http.MethodDelete)
			}
		}))
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		mux.Handle("/api/auth/logout", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		}))
		mux.Handle("/api/auth/refresh", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Refresh(w, r)
		}))
	}

	if cfg.Availabilities != nil {
		mux.Handle("/api/availabilities", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Availabilities.List(w, r)
			case http.MethodPost:
				cfg.Availabilities.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/api/availabilities/", protect(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/api/availabilities/")
			if rest == "all" {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Availabilities.ListWithOwners(w, r)
				return
			}

			id, sub := splitResourcePath(rest)
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodPatch:
					cfg.Availabilities.Update(w, r)
				case http.MethodDelete:
					cfg.Availabilities.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodPatch, http.MethodDelete)
				}
			case "occurrences":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Availabilities.Occurrences(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
		mux.Handle("/api/schedule", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Availabilities.Validate(w, r)
		}))
	}

	if cfg.Sessions != nil {
		mux.Handle("/api/sessions", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/api/sessions/", protect(func(w http.ResponseWriter, r *http.Request) {
			id, sub := splitResourcePath(strings.TrimPrefix(r.URL.Path, "/api/sessions/"))
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Sessions.Get(w, r)
				case http.MethodPatch:
					cfg.Sessions.Update(w, r)
				case http.MethodDelete:
					cfg.Sessions.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
				}
			case "available-players":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Sessions.AvailablePlayers(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
		mux.Handle("/api/next-session", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Sessions.Next(w, r)
		}))
	}

	if cfg.Calendar != nil {
		mux.Handle("/api/calendar", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Calendar.Events(w, r)
		}))
	}

	var handler http.Handler = mux
	if cfg.Metrics != nil {
		// Must wrap the mux directly so the matched pattern is visible afterwards.
		handler = cfg.Metrics.Middleware(handler)
	}
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

// splitResourcePath splits "{id}/{sub}" into its parts. Deeper paths yield an empty id.
func splitResourcePath(rest string) (id, sub string) {
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], ""
	case 2:
		return parts[0], parts[1]
	default:
		return "", ""
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
