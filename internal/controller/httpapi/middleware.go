package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"

	ctxUserID    = "user_id"
	ctxRequestID = "request_id"
)

// RequestID берёт X-Request-ID клиента или выдаёт новый
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestLogger пишет строку лога на каждый запрос
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if userID, ok := c.Get(ctxUserID); ok {
			fields = append(fields, zap.Any("user_id", userID))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("HTTP request", fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}

// Auth проверяет bearer JWT (HS256) и кладёт user_id в контекст
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		userID, err := ParseToken(raw, secret)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// ParseToken проверяет подпись и срок токена и возвращает user_id
func ParseToken(raw string, secret []byte) (int64, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token claims")
	}

	switch v := claims["user_id"].(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return 0, fmt.Errorf("invalid user_id %v", v)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid user_id %q", v)
		}
		return id, nil
	default:
		return 0, errors.New("user_id claim is missing")
	}
}

// RateLimit ограничивает частоту запросов пользователя, store общий с ботом
func RateLimit(store *ratelimit.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if userID, ok := callerID(c); ok {
			key = "user:" + strconv.FormatInt(userID, 10)
		}

		if !store.Allow(key) {
			wait := store.RetryAfter(key)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			abortJSON(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}

func callerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func abortJSON(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": kind})
}
