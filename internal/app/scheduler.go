package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auditor проверяет согласованность слотов и заявок
type Auditor interface {
	Audit(ctx context.Context) ([]model.AuditViolation, error)
}

// Scheduler управляет фоновыми задачами. Задачи только читают состояние обмена.
type Scheduler struct {
	auditor  Auditor
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler создаёт новый планировщик
func NewScheduler(auditor Auditor, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		auditor:  auditor,
		interval: interval,
		logger:   logger,
	}
}

// Run выполняет аудит сразу и затем каждые interval, пока не отменён ctx
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("Invariant audit disabled")
		return nil
	}

	s.logger.Info("Starting background scheduler", zap.Duration("audit_interval", s.interval))

	s.RunAudit(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunAudit(ctx)
		case <-ctx.Done():
			s.logger.Info("Background scheduler stopped")
			return nil
		}
	}
}

// RunAudit выполняет один прогон аудита и возвращает число нарушений
func (s *Scheduler) RunAudit(ctx context.Context) int {
	logger := s.logger.With(zap.String("run_id", uuid.NewString()))
	started := time.Now()

	violations, err := s.auditor.Audit(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Invariant audit failed", zap.Error(err))
		}
		return 0
	}

	total := 0
	for _, v := range violations {
		total += len(v.IDs)
		logger.Error("Invariant violated",
			zap.String("oracle", v.Oracle),
			zap.Int64s("ids", v.IDs),
		)
	}

	logger.Info("Invariant audit completed",
		zap.Int("violations", total),
		zap.Duration("took", time.Since(started)),
	)
	return total
}
