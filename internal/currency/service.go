package currency

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"casino-engine/internal/models"
	engmodels "casino-engine/models"
)

// Locker serializes writers to one account across processes. Guard returns the release func.
type Locker interface {
	Guard(ctx context.Context, key string) (func(), error)
}

// Service is the account service rooms read balances from and write settlements to.
type Service struct {
	db     *gorm.DB
	locker Locker
	logger zerolog.Logger
}

// NewService creates a new currency service. locker may be nil.
func NewService(db *gorm.DB, locker Locker, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		locker: locker,
		logger: logger.With().Str("component", "currency").Logger(),
	}
}

// GetBalance retrieves the current credit balance for a user
func (s *Service) GetBalance(ctx context.Context, userID string) (int, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("credits").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Credits, nil
}

// ValidateAmount checks if a transaction amount is valid
func (s *Service) ValidateAmount(amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if amount < MinimumTransaction {
		return ErrInvalidAmount
	}
	if amount > MaximumTransaction {
		return ErrExceedsMaximum
	}
	return nil
}

// UpdateBalance applies entry.Delta to the stored balance and records the history entry.
// newBalance is the room's view of the result; other rooms or admin grants may have moved the
// account since, so it is only compared and logged. Entries are keyed by entry.ID, so a retried
// write that already landed is a no-op.
func (s *Service) UpdateBalance(ctx context.Context, userID string, newBalance int, entry engmodels.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if s.locker != nil {
		release, err := s.locker.Guard(ctx, "account:"+userID)
		if err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		defer release()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&models.Transaction{}).Where("id = ?", entry.ID).Count(&seen).Error; err != nil {
			return fmt.Errorf("failed to check history: %w", err)
		}
		if seen > 0 {
			s.logger.Debug().Str("entry_id", entry.ID).Msg("Duplicate balance update skipped")
			return nil
		}

		before, err := s.lockUser(tx, userID)
		if err != nil {
			return err
		}
		after := before + entry.Delta
		if after < MinimumBalance {
			return fmt.Errorf("%w: %d %+d", ErrNegativeBalance, before, entry.Delta)
		}
		if after != newBalance {
			s.logger.Info().
				Str("user_id", userID).
				Str("room_id", entry.RoomID).
				Int("expected", newBalance).
				Int("after", after).
				Msg("Balance moved outside the room")
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("credits", after).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		roomID := entry.RoomID
		record := models.Transaction{
			ID:              entry.ID,
			UserID:          userID,
			Amount:          entry.Delta,
			BalanceBefore:   before,
			BalanceAfter:    after,
			TransactionType: models.TransactionType(entry.EventType),
			RoomID:          &roomID,
			GameType:        string(entry.GameType),
			HandNumber:      entry.Hand,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}

		s.logger.Debug().
			Str("user_id", userID).
			Int("before", before).
			Int("after", after).
			Str("event", string(entry.EventType)).
			Msg("Balance updated")
		return nil
	})
}

// AddCredits grants credits outside of play, e.g. an admin top-up.
func (s *Service) AddCredits(ctx context.Context, userID string, amount int, description string) error {
	if err := s.ValidateAmount(amount); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.lockUser(tx, userID)
		if err != nil {
			return err
		}
		after := before + amount
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("credits", after).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		record := models.Transaction{
			ID:              uuid.New().String(),
			UserID:          userID,
			Amount:          amount,
			BalanceBefore:   before,
			BalanceAfter:    after,
			TransactionType: models.TxTypeAdminAdjustment,
			Description:     description,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}
		return nil
	})
}

func (s *Service) lockUser(tx *gorm.DB, userID string) (int, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to lock user record: %w", err)
	}
	return user.Credits, nil
}

// GetTransactionHistory retrieves transaction history for a user, newest first
func (s *Service) GetTransactionHistory(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return transactions, nil
}
