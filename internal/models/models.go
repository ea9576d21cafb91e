package models

import (
	"time"
)

// User is a player account. Credits is the persistent balance rooms read on join.
type User struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Username     string    `gorm:"column:username;type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"column:email;type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Credits      int       `gorm:"column:credits;default:1000" json:"credits"`
	IsAdmin      bool      `gorm:"column:is_admin;default:false" json:"is_admin"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// TransactionType mirrors the room history event that produced a balance change.
type TransactionType string

const (
	TxTypeBet             TransactionType = "bet"
	TxTypePayout          TransactionType = "payout"
	TxTypeHandResult      TransactionType = "hand_result"
	TxTypeAdminAdjustment TransactionType = "admin_adjustment"
)

// Transaction is the audit row written with every balance change.
type Transaction struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Amount          int             `gorm:"not null" json:"amount"`
	BalanceBefore   int             `gorm:"not null" json:"balance_before"`
	BalanceAfter    int             `gorm:"not null" json:"balance_after"`
	TransactionType TransactionType `gorm:"type:varchar(50);not null;index" json:"transaction_type"`
	RoomID          *string         `gorm:"type:varchar(36);index" json:"room_id,omitempty"`
	GameType        string          `gorm:"type:varchar(20)" json:"game_type,omitempty"`
	HandNumber      int             `json:"hand_number,omitempty"`
	Description     string          `gorm:"type:text" json:"description,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "chip_transactions"
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CreateLobbyRequest maps game types to room counts. Counts stay untyped so the lobby can
// skip non-integer entries itself.
type CreateLobbyRequest struct {
	Rooms map[string]interface{} `json:"rooms" binding:"required"`
}

type CreateRoomRequest struct {
	GameType   string `json:"game_type" binding:"required"`
	MaxClients int    `json:"max_clients"`
}
