package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates that sensitive keys are correctly identified as secrets to prevent them from being logged in plaintext.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Returns true for keys containing 'password', 'token', 'secret', etc., and false for non-sensitive keys.
// Test Case ID: AUD-01
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"session_token", true},
		{"secret", true},
		{"api_key", true},
		{"password_hash", true},
		{"credential", true},
		{"user_id", false},
		{"category_id", false},
		{"permissions", false},
		{"email", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSecret(tt.key); got != tt.isSecret {
				t.Errorf("isSecret(%q) = %v, want %v", tt.key, got, tt.isSecret)
			}
		})
	}
}

// TestPurpose: Validates that the in-memory logger records events in order and filters by type.
// Scope: Unit Test
// Expected: Events are returned as logged; OfType filters.
// Test Case ID: AUD-02
func TestAudit_MemoryLogger(t *testing.T) {
	l := NewMemoryLogger()
	ctx := context.Background()

	l.Log(ctx, Event{Type: TypeRoleCreated, ActorID: 1, Resource: "editor"})
	l.Log(ctx, Event{Type: TypeAccessDenied, ActorID: 2, Resource: "delete categories"})
	l.Log(ctx, Event{Type: TypeRoleCreated, ActorID: 1, Resource: "viewer"})

	events := l.Events()
	assert.Len(t, events, 3)
	assert.Equal(t, "editor", events[0].Resource)

	created := l.OfType(TypeRoleCreated)
	assert.Len(t, created, 2)
	assert.Equal(t, "viewer", created[1].Resource)
	assert.Empty(t, l.OfType(TypeOverrideSet))
}
