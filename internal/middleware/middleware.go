package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"boutique/internal/config"
	"boutique/internal/logger"
	"boutique/internal/storefront"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	ClientCookie  = "client_id"
	LoginPath     = "/login"
	storefrontKey = "storefront"
)

// Decision is the outcome of the route guard.
type Decision int

const (
	Allow Decision = iota
	Loading
	RedirectLogin
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	default:
		return "redirect_login"
	}
}

// Session is what the guard needs from the session store.
type Session interface {
	IsLoading() bool
	Validate(ctx context.Context) bool
}

// Guard decides whether a protected page may render. While the session is
// still bootstrapping nothing is decided; an expired token is discarded on
// the way through.
func Guard(ctx context.Context, s Session) Decision {
	if s.IsLoading() {
		return Loading
	}
	if !s.Validate(ctx) {
		return RedirectLogin
	}
	return Allow
}

// ClientIdentity resolves the client_id cookie, minting one for new
// browsers, and attaches that client's storefront to the request.
func ClientIdentity(registry *storefront.Registry, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, err := c.Cookie(ClientCookie)
		if err != nil || !validClientID(clientID) {
			clientID = uuid.NewString()
			logger.Debug("Issued client id", "client_id", clientID)
		}

		// Refresh the cookie on every request so its lifetime slides.
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(ClientCookie, clientID, int(cfg.SessionDuration.Seconds()), "/", "", !cfg.IsDevelopment(), true)

		// Bootstrapping must not be cut short by the first request going away.
		sf := registry.Get(context.WithoutCancel(c.Request.Context()), clientID)
		c.Set(storefrontKey, sf)
		c.Next()
	}
}

// Storefront returns the storefront attached by ClientIdentity.
func Storefront(c *gin.Context) *storefront.Storefront {
	v, ok := c.Get(storefrontKey)
	if !ok {
		return nil
	}
	sf, _ := v.(*storefront.Storefront)
	return sf
}

// AuthRequired applies the route guard: 202 while the session is loading,
// a redirect to the login page when unauthenticated.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sf := Storefront(c)
		if sf == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Session indisponible"})
			return
		}

		switch Guard(c.Request.Context(), sf.Session) {
		case Loading:
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"loading": true})
			return
		case RedirectLogin:
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		c.Set("user", sf.Session.User())
		c.Next()
	}
}

type rateLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP and forgets IPs idle for
// longer than ttl.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimiter
	every   time.Duration
	burst   int
	ttl     time.Duration
}

func newIPLimiter(every time.Duration, burst int, ttl time.Duration) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*rateLimiter),
		every:   every,
		burst:   burst,
		ttl:     ttl,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, exists := l.clients[ip]
	if !exists {
		client = &rateLimiter{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now

	for other, c := range l.clients {
		if now.Sub(c.lastSeen) > l.ttl {
			delete(l.clients, other)
		}
	}
	return client.limiter.Allow()
}

func limit(cfg *config.Config, l *ipLimiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

func RateLimit(cfg *config.Config) gin.HandlerFunc {
	return limit(cfg, newIPLimiter(time.Second/20, 20, 10*time.Minute), "Trop de requêtes")
}

// AuthRateLimit guards login and registration against credential stuffing.
func AuthRateLimit(cfg *config.Config) gin.HandlerFunc {
	return limit(cfg, newIPLimiter(time.Minute, 5, 30*time.Minute), "Trop de tentatives de connexion")
}

func CORS(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsConfig)
}

func SecurityHeaders(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "same-origin")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

func LogRequests() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s %s\n",
			param.TimeStamp.Format("2006/01/02 15:04:05"),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ClientIP,
		)
	})
}

func validClientID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
