package validation

import (
	"errors"
	"strings"
	"testing"

	"casino-engine/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid email", "user@example.com", false},
		{"Valid email with subdomain", "user@mail.example.com", false},
		{"Valid email with plus", "user+tag@example.com", false},
		{"Empty email", "", true},
		{"No @", "userexample.com", true},
		{"No TLD", "user@example", true},
		{"Too long", strings.Repeat("a", 100) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid username", "user123", false},
		{"Valid with underscore", "user_name", false},
		{"Minimum length", "abc", false},
		{"Too long", "a12345678901234567890", true},
		{"Too short", "ab", true},
		{"Empty", "", true},
		{"With spaces", "user name", true},
		{"With special chars", "user@name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid strong password", "Password123", false},
		{"Too short", "Pass1", true},
		{"No uppercase", "password123", true},
		{"No lowercase", "PASSWORD123", true},
		{"No number", "PasswordABC", true},
		{"Empty", "", true},
		{"Too long", strings.Repeat("A", 129) + "a1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID("3f2b8c1e-9a4d-4e6f-8b2a-1c3d5e7f9a0b"); err != nil {
		t.Errorf("Expected valid UUID, got %v", err)
	}
	if err := ValidateUUID("room-1"); !errors.Is(err, ErrInvalidUUID) {
		t.Errorf("Expected ErrInvalidUUID, got %v", err)
	}
	if err := ValidateUUID(""); err == nil {
		t.Error("Expected error for empty UUID")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"Plain", "Alice", "Alice", false},
		{"Trimmed", "  Bob \x00", "Bob", false},
		{"Fallback", "   ", "acct-7", false},
		{"Unicode", "Zoë", "Zoë", false},
		{"Too long", strings.Repeat("x", MaxDisplayName+1), "", true},
		{"Control char", "bad\tname", "", true},
		{"Script tag", "<script>alert(1)</script>", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DisplayName(tt.input, "acct-7")
			if (err != nil) != tt.wantErr {
				t.Fatalf("DisplayName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValidateGameType(t *testing.T) {
	for _, gt := range models.GameTypes {
		got, err := ValidateGameType(string(gt))
		if err != nil || got != gt {
			t.Errorf("ValidateGameType(%s): got %s, %v", gt, got, err)
		}
	}
	if _, err := ValidateGameType("craps"); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("Expected ErrInvalidEnum, got %v", err)
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     models.Message
		wantErr bool
	}{
		{"Known type", models.Message{Type: models.MsgHit}, false},
		{"With request id", models.Message{Type: models.MsgBet, RequestID: "req-1"}, false},
		{"Unknown type", models.Message{Type: "cheat"}, true},
		{"Empty type", models.Message{}, true},
		{"Long request id", models.Message{Type: models.MsgFold, RequestID: strings.Repeat("r", MaxRequestID+1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCounts(t *testing.T) {
	if err := ValidateMaxClients(0); err != nil {
		t.Errorf("Expected 0 (use default) to pass, got %v", err)
	}
	if err := ValidateMaxClients(11); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange for 11, got %v", err)
	}
	if err := ValidateRoomCount(MaxRoomsPerType); err != nil {
		t.Errorf("Expected %d rooms to pass, got %v", MaxRoomsPerType, err)
	}
	if err := ValidateRoomCount(-1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange for -1, got %v", err)
	}
}

func TestCheckXSS(t *testing.T) {
	if err := CheckXSS("Lucky Seven"); err != nil {
		t.Errorf("Expected clean input to pass, got %v", err)
	}
	if err := CheckXSS("JavaScript:void(0)"); !errors.Is(err, ErrContainsXSSPattern) {
		t.Errorf("Expected ErrContainsXSSPattern, got %v", err)
	}
}
