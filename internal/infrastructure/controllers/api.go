package controllers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

const (
	maxRequestBytes  = 1 << 20
	maxTrackedPeers  = 1024
	requestTimeout   = 30 * time.Second
	headerTimeout    = 10 * time.Second
	shutdownDeadline = 10 * time.Second
)

type keyRequest struct {
	Key string `json:"key"`
}

type closeRequest struct {
	PackageName string `json:"packageName"`
}

type tickResponse struct {
	Emitted    []entities.Decision `json:"emitted"`
	Suppressed []entities.Decision `json:"suppressed"`
	Deferred   []entities.Deferral `json:"deferred"`
	Pending    int                 `json:"pending"`
	Failed     int                 `json:"failed"`
}

// NewRouter builds the control API of the serve mode. Signals are plain JSON
// bodies since package names and group names may contain slashes and spaces.
func NewRouter(command commands.Serve, metrics http.Handler, requestsPerMinute int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(throttle(requestsPerMinute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics)

	r.Get("/pending", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, command.Pending())
	})

	r.Post("/candidates", func(w http.ResponseWriter, req *http.Request) {
		var candidates []entities.UpdateCandidate
		if !decodeBody(w, req, &candidates) {
			return
		}
		command.Submit(candidates...)
		respondJSON(w, http.StatusAccepted, map[string]int{"queued": len(candidates)})
	})

	r.Post("/explain", func(w http.ResponseWriter, req *http.Request) {
		var candidate entities.UpdateCandidate
		if !decodeBody(w, req, &candidate) {
			return
		}
		decision, err := command.Explain(candidate)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, decision)
	})

	r.Post("/tick", func(w http.ResponseWriter, req *http.Request) {
		result, err := command.Tick(req.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, newTickResponse(result))
	})

	r.Post("/trigger", func(w http.ResponseWriter, req *http.Request) {
		var body keyRequest
		if !decodeBody(w, req, &body) || !requireField(w, "key", body.Key) {
			return
		}
		if err := command.Trigger(req.Context(), body.Key); err != nil {
			respondError(w, err)
			return
		}
		result, err := command.Tick(req.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, newTickResponse(result))
	})

	r.Post("/complete", func(w http.ResponseWriter, req *http.Request) {
		var body keyRequest
		if !decodeBody(w, req, &body) || !requireField(w, "key", body.Key) {
			return
		}
		completed, err := command.Complete(req.Context(), body.Key)
		if err != nil {
			respondError(w, err)
			return
		}
		status := http.StatusOK
		if !completed {
			status = http.StatusNotFound
		}
		respondJSON(w, status, map[string]bool{"completed": completed})
	})

	r.Post("/close", func(w http.ResponseWriter, req *http.Request) {
		var body closeRequest
		if !decodeBody(w, req, &body) || !requireField(w, "packageName", body.PackageName) {
			return
		}
		decision, closed, err := command.Close(req.Context(), body.PackageName)
		if err != nil {
			respondError(w, err)
			return
		}
		if !closed {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "nothing pending for " + body.PackageName})
			return
		}
		respondJSON(w, http.StatusOK, decision)
	})

	return r
}

func newTickResponse(result entities.TickResult) tickResponse {
	return tickResponse{
		Emitted:    result.Emitted,
		Suppressed: result.Suppressed,
		Deferred:   result.Deferred,
		Pending:    result.Pending,
		Failed:     result.Failed,
	}
}

// throttle limits every client address to requestsPerMinute, with bursts of the
// same size. Zero disables the limit.
func throttle(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	limiterFor := func(client string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, ok := limiters[client]
		if !ok {
			if len(limiters) >= maxTrackedPeers {
				limiters = make(map[string]*rate.Limiter)
			}
			limiter = rate.NewLimiter(rate.Limit(requestsPerMinute)/60, requestsPerMinute)
			limiters[client] = limiter
		}
		return limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			client := req.RemoteAddr
			if host, _, err := net.SplitHostPort(client); err == nil {
				client = host
			}
			if !limiterFor(client).Allow() {
				logger.Warnf("Rate limit exceeded for %s", client)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func decodeBody(w http.ResponseWriter, req *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func requireField(w http.ResponseWriter, name, value string) bool {
	if value == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": name + " is required"})
		return false
	}
	return true
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, commands.ErrNotPrepared) {
		status = http.StatusServiceUnavailable
	}
	logger.Errorf("Control API request failed: %v", err)
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debugf("Failed to write response: %v", err)
	}
}
