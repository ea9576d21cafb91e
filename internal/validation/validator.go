package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"casino-engine/models"
)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidUsername    = errors.New("invalid username format")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInvalidUUID        = errors.New("invalid UUID format")
	ErrInvalidRange       = errors.New("value out of valid range")
	ErrInvalidEnum        = errors.New("invalid enum value")
	ErrStringTooLong      = errors.New("string exceeds maximum length")
	ErrStringTooShort     = errors.New("string below minimum length")
	ErrContainsXSSPattern = errors.New("input contains suspicious XSS patterns")
)

const (
	MaxDisplayName  = 24
	MaxRequestID    = 64
	MaxRoomsPerType = 50
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	uuidRegex     = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

	// display names are echoed to every client in the room
	xssPatterns = []string{
		"<script", "</script", "javascript:", "onerror=", "onload=",
		"<iframe", "</iframe", "<object", "</object", "eval(",
	}

	inboundMessages = []string{
		models.MsgReady, models.MsgBet, models.MsgHit, models.MsgStand, models.MsgCheck,
		models.MsgCall, models.MsgRaise, models.MsgFold, models.MsgPlayerBusts,
		models.MsgCurrentTurnDisconnect, models.MsgDisconnectionHandled, models.MsgDealerTurn,
		models.MsgDealerTurnHandled, models.MsgNewGame, models.MsgPlaceBet, models.MsgStartRace,
		models.MsgLeave,
	}
)

func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > 100 {
		return fmt.Errorf("%w: email must be <= 100 characters", ErrStringTooLong)
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be >= 3 characters", ErrStringTooShort)
	}
	if len(username) > 20 {
		return fmt.Errorf("%w: username must be <= 20 characters", ErrStringTooLong)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters, numbers, underscore, and hyphen", ErrInvalidUsername)
	}
	return nil
}

// ValidatePassword requires 8..128 characters with upper, lower and a digit.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrWeakPassword)
	}
	if len(password) > 128 {
		return fmt.Errorf("%w: password must be <= 128 characters", ErrStringTooLong)
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	if !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("%w: password must mix upper case, lower case and digits", ErrWeakPassword)
	}
	return nil
}

func ValidateUUID(id string) error {
	if id == "" {
		return errors.New("UUID is required")
	}
	if !uuidRegex.MatchString(id) {
		return ErrInvalidUUID
	}
	return nil
}

func ValidateIntRange(value, min, max int, fieldName string) error {
	if value < min || value > max {
		return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidRange, fieldName, min, max)
	}
	return nil
}

func ValidateEnum(value string, allowed []string, fieldName string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of %v", ErrInvalidEnum, fieldName, allowed)
}

// SanitizeString strips NUL bytes and surrounding whitespace.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

func CheckXSS(input string) error {
	lower := strings.ToLower(input)
	for _, pattern := range xssPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: contains '%s'", ErrContainsXSSPattern, pattern)
		}
	}
	return nil
}

// DisplayName returns the sanitized in-room name, falling back when the input is empty.
func DisplayName(input, fallback string) (string, error) {
	name := SanitizeString(input)
	if name == "" {
		name = fallback
	}
	if n := utf8.RuneCountInString(name); n > MaxDisplayName {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrStringTooLong, MaxDisplayName)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: name contains control characters", ErrInvalidUsername)
		}
	}
	if err := CheckXSS(name); err != nil {
		return "", fmt.Errorf("name: %w", err)
	}
	return name, nil
}

func ValidateGameType(s string) (models.GameType, error) {
	if gt, ok := models.ParseGameType(s); ok {
		return gt, nil
	}
	names := make([]string, len(models.GameTypes))
	for i, gt := range models.GameTypes {
		names[i] = string(gt)
	}
	return "", fmt.Errorf("%w: game_type must be one of %v", ErrInvalidEnum, names)
}

// ValidateMessage checks the envelope only. Payload rules belong to the game.
func ValidateMessage(msg models.Message) error {
	if err := ValidateEnum(msg.Type, inboundMessages, "type"); err != nil {
		return err
	}
	if len(msg.RequestID) > MaxRequestID {
		return fmt.Errorf("%w: requestId must be at most %d characters", ErrStringTooLong, MaxRequestID)
	}
	return nil
}

func ValidateMaxClients(n int) error {
	if n == 0 {
		return nil
	}
	return ValidateIntRange(n, 1, 10, "max_clients")
}

func ValidateRoomCount(n int) error {
	return ValidateIntRange(n, 0, MaxRoomsPerType, "room count")
}
