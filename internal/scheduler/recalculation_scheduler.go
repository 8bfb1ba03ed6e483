package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// RecalculationScheduler 대기/중단된 정산 재계산 작업을 주기적으로 이어서 실행한다
type RecalculationScheduler struct {
	cron    *cron.Cron
	service service.RecalculationService
	spec    string
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex // 이전 실행이 끝나지 않았으면 이번 틱은 건너뛴다
}

func NewRecalculationScheduler(svc service.RecalculationService, spec string) *RecalculationScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RecalculationScheduler{
		cron:    cron.New(),
		service: svc,
		spec:    spec,
		timeout: 30 * time.Minute,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 스케줄러 시작
func (s *RecalculationScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		logger.Error("Failed to add cron job for recalculation", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Recalculation scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

func (s *RecalculationScheduler) tick() {
	if !s.mu.TryLock() {
		logger.Debug("Previous recalculation run still in progress, skipping")
		return
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	resumed, err := s.service.ResumePending(ctx)
	if err != nil {
		logger.Error("Scheduled recalculation run failed", err)
		return
	}
	if resumed > 0 {
		logger.Info("Scheduled recalculation run finished", map[string]interface{}{
			"jobs": resumed,
		})
	}
}

// Stop 진행 중인 작업을 취소하고 스케줄러를 멈춘다. 취소된 작업은 다음 기동 때 이어서 처리된다.
func (s *RecalculationScheduler) Stop() {
	logger.Info("Stopping recalculation scheduler...")
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Info("Recalculation scheduler stopped")
}
