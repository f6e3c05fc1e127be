package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"translation-dispatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(id int64) *domain.Model {
	return &domain.Model{
		ID:                id,
		Name:              "en-es",
		Lexicon:           map[string][]domain.Candidate{"hello": {{Target: "hola", Prob: 0.9}}},
		UnknownLogProb:    -10,
		MaxSentenceLength: 50,
	}
}

func TestModelService_PublishKeepsCreatedAt(t *testing.T) {
	repo := newMemModels()
	locker := newFakeLocker()
	svc := NewModelService(repo, locker, discardLogger())

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	require.NoError(t, svc.Publish(context.Background(), testModel(7)))

	second := first.Add(time.Hour)
	svc.now = func() time.Time { return second }
	require.NoError(t, svc.Publish(context.Background(), testModel(7)))

	stored, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, first, stored.CreatedAt)
	assert.Equal(t, second, stored.UpdatedAt)
	assert.Equal(t, []string{"model-7", "model-7"}, locker.names)
	assert.False(t, locker.isHeld("model-7"), "lock is released after publishing")
}

func TestModelService_PublishRejectsInvalid(t *testing.T) {
	svc := NewModelService(newMemModels(), newFakeLocker(), discardLogger())

	bad := testModel(1)
	bad.Lexicon = nil
	assert.ErrorIs(t, svc.Publish(context.Background(), bad), domain.ErrInvalidModel)
}

func TestModelService_PublishLockHeld(t *testing.T) {
	locker := newFakeLocker()
	svc := NewModelService(newMemModels(), locker, discardLogger())

	lock, err := locker.Lock(context.Background(), "model-3")
	require.NoError(t, err)
	defer lock.Unlock(context.Background())

	assert.ErrorIs(t, svc.Publish(context.Background(), testModel(3)), domain.ErrLockNotAcquired)
}

func TestModelService_PublishRepoError(t *testing.T) {
	repo := newMemModels()
	repo.getErr = errors.New("etcd down")
	locker := newFakeLocker()
	svc := NewModelService(repo, locker, discardLogger())

	assert.Error(t, svc.Publish(context.Background(), testModel(4)))
	assert.False(t, locker.isHeld("model-4"))
}

func TestModelService_ListAndDelete(t *testing.T) {
	svc := NewModelService(newMemModels(), newFakeLocker(), discardLogger())
	require.NoError(t, svc.Publish(context.Background(), testModel(1)))
	require.NoError(t, svc.Publish(context.Background(), testModel(2)))

	models, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, 2)

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1), domain.ErrModelNotFound)
	_, err = svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}
