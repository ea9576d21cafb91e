package main

import (
	"testing"
)

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		args    []string
		command string
		wantErr bool
	}{
		{[]string{"list"}, "room.list", false},
		{[]string{"create", "poker", "4"}, "room.create", false},
		{[]string{"create"}, "", true},
		{[]string{"create", "poker", "four"}, "", true},
		{[]string{"destroy", "room-1"}, "room.destroy", false},
		{[]string{"lobby", "acct-1", "blackjack=2", "roulette=1"}, "lobby.create", false},
		{[]string{"lobby", "acct-1", "blackjack"}, "", true},
		{[]string{"unlobby", "acct-1", "lobby-1"}, "lobby.destroy", false},
		{[]string{"credit", "acct-1", "500"}, "account.credit", false},
		{[]string{"spin"}, "", true},
	}

	for _, tt := range tests {
		command, _, err := buildCommand(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("%v: error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if command != tt.command {
			t.Errorf("%v: expected %s, got %s", tt.args, tt.command, command)
		}
	}
}

func TestBuildCommand_LobbyCounts(t *testing.T) {
	_, data, err := buildCommand([]string{"lobby", "acct-1", "blackjack=2", "poker=0"})
	if err != nil {
		t.Fatalf("buildCommand failed: %v", err)
	}
	counts := data["rooms"].(map[string]interface{})
	if counts["blackjack"] != 2 || counts["poker"] != 0 {
		t.Errorf("Unexpected counts: %v", counts)
	}
	if data["accountId"] != "acct-1" {
		t.Errorf("Expected owner acct-1, got %v", data["accountId"])
	}
}
