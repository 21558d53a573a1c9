package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/ratelimit"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// SlotService операции над слотами, которые нужны API
type SlotService interface {
	CreateSlot(ctx context.Context, params service.CreateSlotParams) (*model.Slot, error)
	UpdateSlot(ctx context.Context, slotID, callerID int64, upd service.SlotUpdate) (*model.Slot, error)
	DeleteSlot(ctx context.Context, slotID, callerID int64) error
	SetExchangeable(ctx context.Context, slotID, callerID int64, exchangeable bool) (*model.Slot, error)
	ListMySlots(ctx context.Context, userID int64) ([]*model.Slot, error)
	ListExchangeableSlots(ctx context.Context, excludeUserID int64) ([]*model.MarketSlot, error)
}

// ExchangeService операции над заявками на обмен
type ExchangeService interface {
	ProposeExchange(ctx context.Context, requesterSlotID, recipientSlotID, callerID int64) (*model.ExchangeRequest, error)
	RespondToExchange(ctx context.Context, requestID, callerID int64, accept bool) (*model.ExchangeRequest, error)
	GetRequest(ctx context.Context, requestID, callerID int64) (*model.ExchangeRequest, error)
	ListIncoming(ctx context.Context, userID int64) ([]*model.ExchangeRequestView, error)
	ListOutgoing(ctx context.Context, userID int64) ([]*model.ExchangeRequestView, error)
}

// Pinger проверка доступности базы для /health, *pgxpool.Pool подходит
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Slots     SlotService
	Exchanges ExchangeService
	DB        Pinger
	Limiter   *ratelimit.Store
	JWTSecret []byte
	Logger    *zap.Logger
}

// Server HTTP API поверх тех же сервисов, что и бот
type Server struct {
	addr   string
	router *gin.Engine
	logger *zap.Logger
}

func NewServer(addr string, deps Deps) *Server {
	return &Server{
		addr:   addr,
		router: NewRouter(deps),
		logger: deps.Logger,
	}
}

// NewRouter собирает gin роутер со всеми маршрутами
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(deps.Logger))

	h := &handler{slots: deps.Slots, exchanges: deps.Exchanges, db: deps.DB, logger: deps.Logger}

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	v1.Use(Auth(deps.JWTSecret), RateLimit(deps.Limiter))

	v1.POST("/slots", h.CreateSlot)
	v1.GET("/slots/mine", h.ListMySlots)
	v1.PUT("/slots/:id", h.UpdateSlot)
	v1.DELETE("/slots/:id", h.DeleteSlot)
	v1.PUT("/slots/:id/exchangeable", h.SetExchangeable)
	v1.GET("/marketplace", h.Marketplace)

	v1.POST("/exchange-requests", h.ProposeExchange)
	v1.GET("/exchange-requests/incoming", h.ListIncoming)
	v1.GET("/exchange-requests/outgoing", h.ListOutgoing)
	v1.GET("/exchange-requests/:id", h.GetRequest)
	v1.POST("/exchange-requests/:id/respond", h.RespondToExchange)

	return router
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
