package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyService_GetActivePolicy(t *testing.T) {
	f := setupOrg(t)
	ctx := context.Background()

	profile, policy, err := f.policies.GetActivePolicy("D001")
	require.NoError(t, err)
	assert.Equal(t, "D001", profile.DealerCode)
	assert.True(t, policy.TaxRate.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, policy.AutoCalculateTax)

	_, err = f.policies.Deactivate(ctx, f.hq, "D001")
	require.NoError(t, err)

	_, _, err = f.policies.GetActivePolicy("D001")
	assert.ErrorIs(t, err, ErrPolicyUnavailable)

	// 재계산은 비활성 정책도 읽을 수 있다
	_, _, err = f.policies.GetPolicyForRecalculation("D001")
	assert.NoError(t, err)

	_, _, err = f.policies.GetActivePolicy("NOPE")
	assert.ErrorIs(t, err, ErrPolicyUnavailable)
}

func TestPolicyService_CreateProfile(t *testing.T) {
	f := setupOrg(t)
	ctx := context.Background()

	params := standardParams()
	params.Rules = settlement.RuleSet{
		settlement.MNPDiscountScope{Scope: settlement.MNPAllActivations},
	}

	profile, err := f.policies.CreateProfile(ctx, f.hq, "D003", params)
	require.NoError(t, err)
	assert.Equal(t, model.DealerStatusActive, profile.Status)
	assert.Equal(t, 1, profile.Revision)

	stored, err := f.policies.GetProfile("D003")
	require.NoError(t, err)
	rules, err := stored.Rules()
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	t.Run("Duplicate dealer code", func(t *testing.T) {
		_, err := f.policies.CreateProfile(ctx, f.hq, "D003", params)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
	})

	t.Run("Headquarters only", func(t *testing.T) {
		_, err := f.policies.CreateProfile(ctx, f.branch17, "D009", params)
		assert.ErrorIs(t, err, ErrHeadquartersOnly)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("Rate out of range", func(t *testing.T) {
		bad := standardParams()
		bad.TaxRate = decimal.RequireFromString("1.5")
		_, err := f.policies.CreateProfile(ctx, f.hq, "D010", bad)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Negative amount", func(t *testing.T) {
		bad := standardParams()
		bad.DefaultSimFee = won(-1)
		_, err := f.policies.CreateProfile(ctx, f.hq, "D011", bad)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestPolicyService_UpdateParametersBumpsRevision(t *testing.T) {
	f := setupOrg(t)
	ctx := context.Background()

	params := standardParams()
	params.TaxRate = decimal.RequireFromString("0.20")

	profile, err := f.policies.UpdateParameters(ctx, f.hq, "D001", params)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Revision)

	_, policy, err := f.policies.GetActivePolicy("D001")
	require.NoError(t, err)
	assert.True(t, policy.TaxRate.Equal(decimal.RequireFromString("0.20")))

	_, err = f.policies.UpdateParameters(ctx, f.hq, "NOPE", params)
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestPolicyService_Transitions(t *testing.T) {
	f := setupOrg(t)
	ctx := context.Background()

	profile, err := f.policies.Suspend(ctx, f.hq, "D001")
	require.NoError(t, err)
	assert.Equal(t, model.DealerStatusSuspended, profile.Status)
	assert.NotNil(t, profile.DeactivatedAt)

	profile, err = f.policies.Activate(ctx, f.hq, "D001")
	require.NoError(t, err)
	assert.Equal(t, model.DealerStatusActive, profile.Status)
	assert.Nil(t, profile.DeactivatedAt)

	// 같은 상태로의 전이는 변경 없이 성공
	profile, err = f.policies.Activate(ctx, f.hq, "D001")
	require.NoError(t, err)
	assert.Equal(t, model.DealerStatusActive, profile.Status)

	_, err = f.policies.Deactivate(ctx, f.hq, "D001")
	require.NoError(t, err)

	// inactive → suspended는 허용되지 않는다
	_, err = f.policies.Suspend(ctx, f.hq, "D001")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.policies.Activate(ctx, f.store1, "D001")
	assert.ErrorIs(t, err, ErrHeadquartersOnly)
}

func TestPolicyService_ConcurrentTransitionsSerialize(t *testing.T) {
	f := setupOrg(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.policies.Suspend(ctx, f.hq, "D001")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.policies.Activate(ctx, f.hq, "D001")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// active ↔ suspended는 어느 순서로든 유효한 전이다
	for err := range errs {
		assert.NoError(t, err)
	}

	profile, err := f.policies.GetProfile("D001")
	require.NoError(t, err)
	assert.Contains(t, []model.DealerStatus{model.DealerStatusActive, model.DealerStatusSuspended}, profile.Status)
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "D001")
	require.NoError(t, err)

	// 다른 키는 바로 잡힌다
	unlockOther, err := locker.Lock(ctx, "D002")
	require.NoError(t, err)
	unlockOther()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "D001")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		u, err := locker.Lock(ctx, "D001")
		if err == nil {
			u()
		}
		close(acquired)
	}()

	unlock()
	// 해제 함수는 여러 번 불러도 안전하다
	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}
