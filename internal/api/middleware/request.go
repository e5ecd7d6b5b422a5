package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loginTracker throttles brute-force login attempts per client IP.
type loginTracker struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
}

type attemptInfo struct {
	count int
	last  time.Time
}

const (
	maxLoginAttempts = 10
	attemptWindow    = 15 * time.Minute
)

func newLoginTracker() *loginTracker {
	t := &loginTracker{attempts: make(map[string]*attemptInfo)}
	go t.cleanupLoop()
	return t
}

func (t *loginTracker) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		expiry := time.Now().Add(-attemptWindow)
		for ip, info := range t.attempts {
			if info.last.Before(expiry) {
				delete(t.attempts, ip)
			}
		}
		t.mu.Unlock()
	}
}

func (t *loginTracker) record(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.attempts[ip]
	if !ok {
		info = &attemptInfo{}
		t.attempts[ip] = info
	}
	info.count++
	info.last = time.Now()
	return info.count > maxLoginAttempts
}

type RequestMiddleware struct {
	logger  *zap.Logger
	tracker *loginTracker
}

func NewRequestMiddleware(logger *zap.Logger) *RequestMiddleware {
	return &RequestMiddleware{
		logger:  logger,
		tracker: newLoginTracker(),
	}
}

func (rm *RequestMiddleware) ProcessRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("requestID", requestID)
		c.Header("X-Request-ID", requestID)
		start := time.Now()
		c.Next()
		rm.logger.Info("Request completed",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func (rm *RequestMiddleware) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && c.FullPath() == "/api/auth/login" {
			if rm.tracker.record(c.ClientIP()) {
				rm.logger.Warn("Login rate limit exceeded", zap.String("client_ip", c.ClientIP()))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"msg": "Too many requests from this IP, please try again later.",
				})
				return
			}
		}
		c.Next()
	}
}

func (rm *RequestMiddleware) RecoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				rm.logger.Error("Panic recovered",
					zap.String("request_id", c.GetString("requestID")),
					zap.Any("error", err),
					zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"msg": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
