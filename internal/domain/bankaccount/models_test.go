package bankaccount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestSyncStatus_IsValid(t *testing.T) {
	tests := []struct {
		status SyncStatus
		want   bool
	}{
		{StatusActive, true},
		{StatusError, true},
		{StatusDisconnected, true},
		{"pending", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsValid())
		})
	}
}

func TestBankAccount_IsLinked(t *testing.T) {
	assert.False(t, (&BankAccount{}).IsLinked())
	assert.False(t, (&BankAccount{AccessToken: strPtr("")}).IsLinked())
	assert.True(t, (&BankAccount{AccessToken: strPtr("tok1")}).IsLinked())
}

func TestListFilter_Matches(t *testing.T) {
	deletedAt := time.Now()

	tests := []struct {
		name   string
		filter ListFilter
		acc    *BankAccount
		want   bool
	}{
		{
			name:   "No statuses accepts any linked account",
			filter: ListFilter{},
			acc:    &BankAccount{AccessToken: strPtr("tok"), SyncStatus: StatusDisconnected},
			want:   true,
		},
		{
			name:   "Unlinked account never matches",
			filter: ListFilter{},
			acc:    &BankAccount{SyncStatus: StatusActive},
			want:   false,
		},
		{
			name:   "Soft-deleted account never matches",
			filter: ListFilter{Statuses: []SyncStatus{StatusActive}},
			acc:    &BankAccount{AccessToken: strPtr("tok"), SyncStatus: StatusActive, DeletedAt: &deletedAt},
			want:   false,
		},
		{
			name:   "Disconnected excluded from active and error",
			filter: ListFilter{Statuses: []SyncStatus{StatusActive, StatusError}},
			acc:    &BankAccount{AccessToken: strPtr("tok"), SyncStatus: StatusDisconnected},
			want:   false,
		},
		{
			name:   "Error included in active and error",
			filter: ListFilter{Statuses: []SyncStatus{StatusActive, StatusError}},
			acc:    &BankAccount{AccessToken: strPtr("tok"), SyncStatus: StatusError},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.acc))
		})
	}
}
