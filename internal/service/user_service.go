package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type UserService struct {
	tx       *TxRunner
	userRepo UserRepository
	logger   *zap.Logger
}

func NewUserService(tx *TxRunner, userRepo UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		tx:       tx,
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterUser регистрирует или обновляет пользователя Telegram
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	var (
		user    *model.User
		created bool
	)

	err := s.tx.Write(ctx, "register user", func(ctx context.Context, tx pgx.Tx) error {
		existingUser, err := s.userRepo.GetByTelegramID(ctx, tx, telegramID)
		if err != nil {
			return fmt.Errorf("check existing user: %w", err)
		}

		// Если пользователь уже существует, обновляем данные
		if existingUser != nil {
			existingUser.Username = username
			existingUser.FirstName = firstName
			existingUser.LastName = lastName

			if err := s.userRepo.Update(ctx, tx, existingUser); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			user = existingUser
			return nil
		}

		tgID := telegramID
		user = &model.User{
			TelegramID: &tgID,
			Username:   username,
			FirstName:  firstName,
			LastName:   lastName,
		}
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("New user registered",
			zap.Int64("user_id", user.ID),
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)
	}

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID, nil если не зарегистрирован
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user *model.User
	err := s.tx.Read(ctx, "get user", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		user, err = s.userRepo.GetByTelegramID(ctx, tx, telegramID)
		return err
	})
	return user, err
}

// GetByID получает пользователя по ID, nil если не найден
func (s *UserService) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	var user *model.User
	err := s.tx.Read(ctx, "get user", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		user, err = s.userRepo.GetByID(ctx, tx, userID)
		return err
	})
	return user, err
}
