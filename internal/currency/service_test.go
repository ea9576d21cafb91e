package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"casino-engine/internal/models"
	engmodels "casino-engine/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?mode=memory"), &gorm.Config{
		SkipDefaultTransaction: false,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, userID string, credits int) {
	user := models.User{
		ID:       userID,
		Username: "testuser_" + userID,
		Email:    userID + "@test.com",
		Credits:  credits,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
}

func getBalance(t *testing.T, db *gorm.DB, userID string) int {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("Failed to get user balance: %v", err)
	}
	return user.Credits
}

func countTransactions(t *testing.T, db *gorm.DB) int64 {
	var n int64
	if err := db.Model(&models.Transaction{}).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	return n
}

type fakeLocker struct {
	keys     []string
	released int
	err      error
}

func (l *fakeLocker) Guard(ctx context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() { l.released++ }, nil
}

func handEntry(id string, delta int) engmodels.HistoryEntry {
	return engmodels.HistoryEntry{
		ID:        id,
		EventType: engmodels.HistoryHandResult,
		RoomID:    "room-1",
		GameType:  engmodels.GameBlackjack,
		Hand:      3,
		Delta:     delta,
	}
}

func TestGetBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, zerolog.Nop())
	createTestUser(t, db, "user1", 750)

	balance, err := service.GetBalance(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 750 {
		t.Errorf("Expected balance 750, got %d", balance)
	}

	if _, err := service.GetBalance(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateBalance_WritesAuditRecord(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, zerolog.Nop())
	createTestUser(t, db, "user1", 1000)

	if err := service.UpdateBalance(context.Background(), "user1", 1150, handEntry("entry-1", 150)); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	if balance := getBalance(t, db, "user1"); balance != 1150 {
		t.Errorf("Expected balance 1150, got %d", balance)
	}

	var record models.Transaction
	if err := db.First(&record, "id = ?", "entry-1").Error; err != nil {
		t.Fatalf("Expected audit record: %v", err)
	}
	if record.Amount != 150 {
		t.Errorf("Expected amount 150, got %d", record.Amount)
	}
	if record.BalanceBefore != 1000 || record.BalanceAfter != 1150 {
		t.Errorf("Expected 1000 -> 1150, got %d -> %d", record.BalanceBefore, record.BalanceAfter)
	}
	if record.TransactionType != models.TxTypeHandResult {
		t.Errorf("Expected type hand_result, got %s", record.TransactionType)
	}
	if record.RoomID == nil || *record.RoomID != "room-1" {
		t.Errorf("Expected room id room-1, got %v", record.RoomID)
	}
	if record.HandNumber != 3 {
		t.Errorf("Expected hand 3, got %d", record.HandNumber)
	}
}

// A retried settlement carries the same entry id and must not apply twice.
func TestUpdateBalance_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, zerolog.Nop())
	ctx := context.Background()
	createTestUser(t, db, "user1", 1000)

	if err := service.UpdateBalance(ctx, "user1", 900, handEntry("entry-1", -100)); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", "user1").Update("credits", 500).Error; err != nil {
		t.Fatalf("Failed to adjust balance: %v", err)
	}
	if err := service.UpdateBalance(ctx, "user1", 900, handEntry("entry-1", -100)); err != nil {
		t.Fatalf("Retried UpdateBalance failed: %v", err)
	}

	if balance := getBalance(t, db, "user1"); balance != 500 {
		t.Errorf("Expected duplicate to be skipped leaving 500, got %d", balance)
	}
	if n := countTransactions(t, db); n != 1 {
		t.Errorf("Expected 1 transaction record, got %d", n)
	}
}

// Two rooms settle the same account from their own view of the balance.
func TestUpdateBalance_AppliesDeltasAcrossRooms(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, zerolog.Nop())
	ctx := context.Background()
	createTestUser(t, db, "user1", 1000)

	roomA := handEntry("entry-a", 100)
	roomB := handEntry("entry-b", -50)
	roomB.RoomID = "room-2"

	if err := service.UpdateBalance(ctx, "user1", 1100, roomA); err != nil {
		t.Fatalf("UpdateBalance from room A failed: %v", err)
	}
	if err := service.UpdateBalance(ctx, "user1", 950, roomB); err != nil {
		t.Fatalf("UpdateBalance from room B failed: %v", err)
	}

	if balance := getBalance(t, db, "user1"); balance != 1050 {
		t.Errorf("Expected balance 1050, got %d", balance)
	}

	var record models.Transaction
	if err := db.First(&record, "id = ?", "entry-b").Error; err != nil {
		t.Fatalf("Expected audit record: %v", err)
	}
	if record.BalanceBefore != 1100 || record.BalanceAfter != 1050 || record.Amount != -50 {
		t.Errorf("Expected 1100 -> 1050 by -50, got %d -> %d by %d", record.BalanceBefore, record.BalanceAfter, record.Amount)
	}
}

func TestUpdateBalance_KeepsAdminGrant(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, zerolog.Nop())
	ctx := context.Background()
	createTestUser(t, db, "user1", 1000)

	if err := service.AddCredits(ctx, "user1", 500, "top-up"); err != nil {
		t.Fatalf("AddCredits failed: %v", err)
	}
	// The room still believes the account started at 1000.
	if err := service.UpdateBalance(ctx, "user1", 1200, handEntry("entry-1", 200)); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	if balance := getBalance(t, db, "user1"); balance != 1700 {
		t.Errorf("Expected balance 1700, got %d", balance)
	}
}

func TestUpdateBalance_Rejections(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, zerolog.Nop())
	ctx := context.Background()
	createTestUser(t, db, "user1", 1000)

	if err := service.UpdateBalance(ctx, "user1", -1, handEntry("entry-1", -1001)); !errors.Is(err, ErrNegativeBalance) {
		t.Errorf("Expected ErrNegativeBalance, got %v", err)
	}
	if err := service.UpdateBalance(ctx, "ghost", 10, handEntry("entry-2", 10)); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if n := countTransactions(t, db); n != 0 {
		t.Errorf("Expected no transaction records, got %d", n)
	}
	if balance := getBalance(t, db, "user1"); balance != 1000 {
		t.Errorf("Expected balance unchanged at 1000, got %d", balance)
	}
}

func TestUpdateBalance_UsesLocker(t *testing.T) {
	db := setupTestDB(t)
	locker := &fakeLocker{}
	service := NewService(db, locker, zerolog.Nop())
	createTestUser(t, db, "user1", 1000)

	if err := service.UpdateBalance(context.Background(), "user1", 1200, handEntry("", 200)); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}
	if len(locker.keys) != 1 || locker.keys[0] != "account:user1" {
		t.Errorf("Expected lock on account:user1, got %v", locker.keys)
	}
	if locker.released != 1 {
		t.Errorf("Expected lock released once, got %d", locker.released)
	}
	if n := countTransactions(t, db); n != 1 {
		t.Errorf("Expected generated entry id to be recorded, got %d records", n)
	}
}

func TestUpdateBalance_LockFailure(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &fakeLocker{err: errors.New("redis down")}, zerolog.Nop())
	createTestUser(t, db, "user1", 1000)

	if err := service.UpdateBalance(context.Background(), "user1", 1200, handEntry("entry-1", 200)); err == nil {
		t.Fatal("Expected error when lock cannot be acquired")
	}
	if balance := getBalance(t, db, "user1"); balance != 1000 {
		t.Errorf("Expected balance unchanged at 1000, got %d", balance)
	}
}

func TestAddCredits(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, nil, zerolog.Nop())
	ctx := context.Background()
	createTestUser(t, db, "user1", 100)

	if err := service.AddCredits(ctx, "user1", 400, "top-up"); err != nil {
		t.Fatalf("AddCredits failed: %v", err)
	}
	if balance := getBalance(t, db, "user1"); balance != 500 {
		t.Errorf("Expected balance 500, got %d", balance)
	}

	tests := []struct {
		amount int
		want   error
	}{
		{-5, ErrNegativeAmount},
		{0, ErrInvalidAmount},
		{MaximumTransaction + 1, ErrExceedsMaximum},
	}
	for _, tt := range tests {
		if err := service.AddCredits(ctx, "user1", tt.amount, "bad"); !errors.Is(err, tt.want) {
			t.Errorf("AddCredits(%d): expected %v, got %v", tt.amount, tt.want, err)
		}
	}

	history, err := service.GetTransactionHistory(ctx, "user1", 10)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 history record, got %d", len(history))
	}
	if history[0].TransactionType != models.TxTypeAdminAdjustment || history[0].Description != "top-up" {
		t.Errorf("Unexpected history record: %+v", history[0])
	}
}
