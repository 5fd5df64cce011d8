package auth

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mnhsh/letterbox/internal/config"
	"github.com/mnhsh/letterbox/internal/response"
)

// maxTrackedClients bounds the pool; past it the pool starts over.
const maxTrackedClients = 10000

type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg config.RateLimit
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil || len(p.m) >= maxTrackedClients {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// RateLimit throttles next per client address. It guards the public invite
// routes, where tokens could otherwise be guessed at speed.
func RateLimit(cfg config.RateLimit, next http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.Allow(clientIP(r)) {
			response.RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP uses the direct peer address; X-Forwarded-For is not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
