package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"casino-engine/internal/models"
)

const (
	DefaultCost = 12
	TokenTTL    = 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	jwtSecret []byte
	cost      int
}

// NewService signs tokens with secret. cost <= 0 uses DefaultCost.
func NewService(secret string, cost int) *Service {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Service{jwtSecret: []byte(secret), cost: cost}
}

func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	return string(bytes), err
}

func (s *Service) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (s *Service) GenerateToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// ValidateToken returns the account id carried by an HS256 token.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			return "", fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
		}
		return userID, nil
	}

	return "", ErrInvalidToken
}

func GenerateID() string {
	return uuid.New().String()
}

// AdminAuthorizer grants lobby teardown to accounts flagged is_admin.
type AdminAuthorizer struct {
	db *gorm.DB
}

func NewAdminAuthorizer(db *gorm.DB) *AdminAuthorizer {
	return &AdminAuthorizer{db: db}
}

func (a *AdminAuthorizer) IsAuthorized(ctx context.Context, accountID string) (bool, error) {
	var user models.User
	err := a.db.WithContext(ctx).Select("is_admin").First(&user, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load account: %w", err)
	}
	return user.IsAdmin, nil
}
