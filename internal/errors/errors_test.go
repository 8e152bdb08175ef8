package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	base := NewStd("version number already registered")

	err := New(base).
		Component("datastore").
		Category(CategoryConflict).
		Priority(PriorityMedium).
		Context("operation", "register_version").
		Context("version_number", 3).
		Build()

	assert.Equal(t, "version number already registered", err.Error())
	assert.Equal(t, "datastore", err.GetComponent())
	assert.Equal(t, CategoryConflict, err.Category)
	assert.Equal(t, PriorityMedium, err.GetPriority())
	assert.Equal(t, 3, err.GetContext()["version_number"])
	assert.True(t, Is(err, base))
}

func TestCategoryPredicates(t *testing.T) {
	tests := []struct {
		name      string
		category  ErrorCategory
		predicate func(error) bool
	}{
		{"not found", CategoryNotFound, IsNotFound},
		{"validation", CategoryValidation, IsValidation},
		{"conflict", CategoryConflict, IsConflict},
		{"invalid state", CategoryState, IsInvalidState},
		{"concurrency conflict", CategoryConcurrency, IsConcurrencyConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Newf("boom").Category(tt.category).Build()
			assert.True(t, tt.predicate(err))
			assert.False(t, tt.predicate(Newf("boom").Category(CategoryGeneric).Build()))
			assert.False(t, tt.predicate(NewStd("plain error")))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := Newf("feedback already resolved").Category(CategoryState).Build()
	wrapped := fmt.Errorf("resolve failed: %w", inner)

	assert.True(t, IsInvalidState(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestBuildDefaults(t *testing.T) {
	err := Newf("something broke").Build()

	require.NotNil(t, err)
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.False(t, err.GetTimestamp().IsZero())
}

func TestInvalidPriorityFallsBackToMedium(t *testing.T) {
	err := Newf("x").Priority("urgent!!").Build()
	assert.Equal(t, PriorityMedium, err.GetPriority())
}

func TestScrubMessageForPrivacy(t *testing.T) {
	msg := "open mysql://flow:password123@db:3306/flow failed for /var/lib/flow/data.db"
	scrubbed := scrubMessageForPrivacy(msg)

	assert.NotContains(t, scrubbed, "password123")
	assert.NotContains(t, scrubbed, "/var/lib/flow")
}
