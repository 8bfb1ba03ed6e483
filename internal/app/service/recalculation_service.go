package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/metrics"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type RecalculationService interface {
	// RecalculateSale는 저장된 원시값과 현재 대리점 정책으로 파생 필드를 다시 계산한다.
	// 충돌 시 새로 읽어 한 번 재시도한다. 결과가 같으면 쓰지 않는다.
	RecalculateSale(p scope.Principal, id uint) (*model.Sale, bool, error)
	StartJob(p scope.Principal, dealerCode string, from, to time.Time) (*model.RecalculationJob, error)
	RunJob(ctx context.Context, id uuid.UUID) (*model.RecalculationJob, error)
	ResumePending(ctx context.Context) (int, error)
	GetJob(p scope.Principal, id uuid.UUID) (*model.RecalculationJob, error)
}

// JobProgressPublisher 작업 상태가 바뀔 때마다 스냅샷을 받는다
type JobProgressPublisher interface {
	PublishJobProgress(job *model.RecalculationJob)
}

type RecalculationOption func(*recalculationService)

// WithJobProgress 진행 상황 구독 (WebSocket 허브)
func WithJobProgress(publisher JobProgressPublisher) RecalculationOption {
	return func(s *recalculationService) {
		s.progress = publisher
	}
}

type recalculationService struct {
	saleRepo  repository.SaleRepository
	jobRepo   repository.RecalculationJobRepository
	scopes    ScopeService
	policies  PolicyService
	chunkSize int
	workers   int
	now       func() time.Time
	progress  JobProgressPublisher

	running sync.Map // job ID → struct{}, 같은 프로세스 안의 중복 실행 방지
}

func NewRecalculationService(
	saleRepo repository.SaleRepository,
	jobRepo repository.RecalculationJobRepository,
	scopes ScopeService,
	policies PolicyService,
	chunkSize, workers int,
	opts ...RecalculationOption,
) RecalculationService {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if workers <= 0 {
		workers = 1
	}
	s := &recalculationService{
		saleRepo:  saleRepo,
		jobRepo:   jobRepo,
		scopes:    scopes,
		policies:  policies,
		chunkSize: chunkSize,
		workers:   workers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// saveJob 저장 후 구독자에게 알린다
func (s *recalculationService) saveJob(job *model.RecalculationJob) error {
	if err := s.jobRepo.Save(job); err != nil {
		return err
	}
	if s.progress != nil {
		s.progress.PublishJobProgress(job)
	}
	return nil
}

type recalcOutcome int

const (
	recalcUnchanged recalcOutcome = iota
	recalcChanged
)

// recalculate 한 건 재계산. 버전 충돌이면 최신 행으로 한 번 더 시도한다.
func (s *recalculationService) recalculate(sale *model.Sale, profile *model.DealerProfile, policy settlement.Policy) (*model.Sale, recalcOutcome, error) {
	for attempt := 0; ; attempt++ {
		result, err := settlement.Compute(sale.CalculationInput(), policy)
		if err != nil {
			metrics.SettlementCalculations.WithLabelValues("recalc", "invalid").Inc()
			return nil, recalcUnchanged, err
		}
		metrics.SettlementCalculations.WithLabelValues("recalc", "ok").Inc()

		if result.Equal(sale.Result()) && sale.PolicyRevision == profile.Revision {
			return sale, recalcUnchanged, nil
		}

		expected := sale.Version
		sale.ApplyResult(result, profile.Revision, s.now())
		ok, err := s.saleRepo.UpdateCalculated(sale, expected)
		if err != nil {
			return nil, recalcUnchanged, err
		}
		if ok {
			return sale, recalcChanged, nil
		}
		if attempt > 0 {
			return nil, recalcUnchanged, ErrConcurrencyConflict
		}

		fresh, err := s.saleRepo.FindByID(sale.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, recalcUnchanged, ErrSaleNotFound
			}
			return nil, recalcUnchanged, err
		}
		sale = fresh
	}
}

func (s *recalculationService) RecalculateSale(p scope.Principal, id uint) (*model.Sale, bool, error) {
	sale, err := s.saleRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrSaleNotFound
		}
		return nil, false, err
	}
	if err := s.scopes.Authorize(p, sale.StoreID); err != nil {
		return nil, false, err
	}

	profile, policy, err := s.policies.GetPolicyForRecalculation(sale.DealerCode)
	if err != nil {
		return nil, false, err
	}

	updated, outcome, err := s.recalculate(sale, profile, policy)
	if err != nil {
		return nil, false, err
	}
	return updated, outcome == recalcChanged, nil
}

func (s *recalculationService) StartJob(p scope.Principal, dealerCode string, from, to time.Time) (*model.RecalculationJob, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		return nil, invalidInput("period", "from and to are required")
	}
	from, to = NormalizeDate(from), NormalizeDate(to)
	if to.Before(from) {
		return nil, invalidInput("to", "must not be before from")
	}
	if _, err := s.policies.GetProfile(dealerCode); err != nil {
		return nil, err
	}

	job := &model.RecalculationJob{
		DealerCode:  dealerCode,
		From:        from,
		To:          to,
		Status:      model.JobStatusPending,
		ChunkSize:   s.chunkSize,
		RequestedBy: p.UserID,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}

	logger.Info("Recalculation job created", map[string]interface{}{
		"job_id":      job.ID.String(),
		"dealer_code": dealerCode,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
	})
	return job, nil
}

func (s *recalculationService) GetJob(p scope.Principal, id uuid.UUID) (*model.RecalculationJob, error) {
	if err := requireHeadquarters(p); err != nil {
		return nil, err
	}
	return s.loadJob(id)
}

func (s *recalculationService) loadJob(id uuid.UUID) (*model.RecalculationJob, error) {
	job, err := s.jobRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// RunJob 커서 이후의 개통 내역을 청크 단위로 재계산한다.
// 청크마다 커서와 카운터를 저장하므로 ctx가 취소되면 다음 실행에서 이어서 처리한다.
func (s *recalculationService) RunJob(ctx context.Context, id uuid.UUID) (*model.RecalculationJob, error) {
	if _, busy := s.running.LoadOrStore(id, struct{}{}); busy {
		return s.loadJob(id)
	}
	defer s.running.Delete(id)

	job, err := s.loadJob(id)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobStatusCompleted || job.Status == model.JobStatusFailed {
		return job, nil
	}

	log := logger.WithContext(map[string]interface{}{
		"job_id":      job.ID.String(),
		"dealer_code": job.DealerCode,
	})

	if job.Status == model.JobStatusPending {
		started := s.now()
		job.Status = model.JobStatusRunning
		job.StartedAt = &started
		if err := s.saveJob(job); err != nil {
			return nil, err
		}
	}
	log.Info("Recalculation job running", map[string]interface{}{
		"last_sale_id": job.LastSaleID,
	})

	for {
		if err := ctx.Err(); err != nil {
			log.Warn("Recalculation job interrupted", map[string]interface{}{
				"last_sale_id": job.LastSaleID,
			})
			return job, err
		}

		sales, err := s.saleRepo.FindChunk(job.DealerCode, job.From, job.To, job.LastSaleID, job.ChunkSize)
		if err != nil {
			return job, err
		}
		if len(sales) == 0 {
			break
		}

		// 청크 안에서는 하나의 정책 스냅샷을 쓴다
		profile, policy, err := s.policies.GetPolicyForRecalculation(job.DealerCode)
		if err != nil {
			return s.fail(job, err)
		}

		changed, failed, lastErr := s.runChunk(ctx, sales, profile, policy)
		if ctx.Err() != nil {
			// 중간에 끊긴 청크는 커서를 옮기지 않고 다음 실행에서 다시 처리한다
			log.Warn("Recalculation chunk interrupted", map[string]interface{}{
				"last_sale_id": job.LastSaleID,
			})
			return job, ctx.Err()
		}

		job.LastSaleID = sales[len(sales)-1].ID
		job.Processed += len(sales)
		job.Changed += changed
		job.Failed += failed
		if lastErr != nil {
			job.LastError = lastErr.Error()
		}
		if err := s.saveJob(job); err != nil {
			return job, err
		}

		log.Debug("Recalculation chunk done", map[string]interface{}{
			"last_sale_id": job.LastSaleID,
			"processed":    job.Processed,
			"changed":      job.Changed,
			"failed":       job.Failed,
		})
	}

	finished := s.now()
	job.Status = model.JobStatusCompleted
	job.FinishedAt = &finished
	if err := s.saveJob(job); err != nil {
		return job, err
	}

	log.Info("Recalculation job completed", map[string]interface{}{
		"processed": job.Processed,
		"changed":   job.Changed,
		"failed":    job.Failed,
	})
	return job, nil
}

func (s *recalculationService) runChunk(ctx context.Context, sales []model.Sale, profile *model.DealerProfile, policy settlement.Policy) (int, int, error) {
	var (
		mu      sync.Mutex
		changed int
		failed  int
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range sales {
		sale := &sales[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			_, outcome, err := s.recalculate(sale, profile, policy)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				lastErr = err
				metrics.RecalculatedSales.WithLabelValues("failed").Inc()
				logger.Warn("Sale recalculation failed", map[string]interface{}{
					"sale_id": sale.ID,
					"error":   err.Error(),
				})
			case outcome == recalcChanged:
				changed++
				metrics.RecalculatedSales.WithLabelValues("changed").Inc()
			default:
				metrics.RecalculatedSales.WithLabelValues("unchanged").Inc()
			}
			// 개별 실패는 작업 전체를 멈추지 않는다
			return nil
		})
	}
	_ = g.Wait()
	return changed, failed, lastErr
}

func (s *recalculationService) fail(job *model.RecalculationJob, cause error) (*model.RecalculationJob, error) {
	finished := s.now()
	job.Status = model.JobStatusFailed
	job.LastError = cause.Error()
	job.FinishedAt = &finished
	if err := s.saveJob(job); err != nil {
		return job, err
	}
	logger.Error("Recalculation job failed", cause, map[string]interface{}{
		"job_id": job.ID.String(),
	})
	return job, cause
}

// ResumePending 대기/중단 작업을 순서대로 실행한다 (스케줄러에서 호출)
func (s *recalculationService) ResumePending(ctx context.Context) (int, error) {
	jobs, err := s.jobRepo.FindResumable()
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return resumed, ctx.Err()
		}
		if _, err := s.RunJob(ctx, job.ID); err != nil {
			logger.Error("Failed to resume recalculation job", err, map[string]interface{}{
				"job_id": job.ID.String(),
			})
			continue
		}
		resumed++
	}
	return resumed, nil
}
