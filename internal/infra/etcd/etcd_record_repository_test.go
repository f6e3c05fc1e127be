package etcd

import (
	"testing"
	"time"

	"translation-dispatch/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name                  string
		page, pageSize, total int
		wantStart, wantEnd    int
	}{
		{"first page", 1, 10, 25, 0, 10},
		{"last partial page", 3, 10, 25, 20, 25},
		{"past the end", 4, 10, 25, 25, 25},
		{"page zero is first page", 0, 10, 25, 0, 10},
		{"default page size", 1, 0, 50, 0, defaultPageSize},
		{"empty", 1, 10, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := pageBounds(tt.page, tt.pageSize, tt.total)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestExpired(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-time.Hour)
	recent := cutoff.Add(time.Hour)

	assert.True(t, expired(&domain.DecodeRecord{Status: domain.RecordStatusSuccess, EndTime: old}, cutoff))
	assert.True(t, expired(&domain.DecodeRecord{Status: domain.RecordStatusFailed, EndTime: old}, cutoff))
	assert.False(t, expired(&domain.DecodeRecord{Status: domain.RecordStatusSuccess, EndTime: recent}, cutoff))
	assert.False(t, expired(&domain.DecodeRecord{Status: domain.RecordStatusRunning, EndTime: old}, cutoff), "running records are kept")
	assert.False(t, expired(&domain.DecodeRecord{Status: domain.RecordStatusFailed}, cutoff), "missing end time is kept")
}

func TestModelKey(t *testing.T) {
	assert.Equal(t, "/nmt/models/42", modelKey(42))
}
