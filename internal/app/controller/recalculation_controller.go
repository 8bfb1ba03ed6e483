package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	ws "github.com/ikkim/telecom-settlement-backend/internal/websocket"
)

// JobDispatcher 생성된 작업을 백그라운드에서 실행한다.
// nil이면 작업은 pending으로 남고 스케줄러가 이어서 처리한다.
type JobDispatcher func(id uuid.UUID)

type RecalculationController struct {
	recalcService service.RecalculationService
	dispatch      JobDispatcher
	hub           *ws.Hub
}

// NewRecalculationController hub가 nil이면 진행 상황 스트림은 503
func NewRecalculationController(recalcService service.RecalculationService, dispatch JobDispatcher, hub *ws.Hub) *RecalculationController {
	return &RecalculationController{recalcService: recalcService, dispatch: dispatch, hub: hub}
}

type StartRecalculationRequest struct {
	DealerCode string `json:"dealer_code" binding:"required"`
	From       string `json:"from" binding:"required"`
	To         string `json:"to" binding:"required"`
}

// StartJob 대리점 기간 재계산 작업 생성 (본사)
// POST /api/v1/recalculations
func (ctrl *RecalculationController) StartJob(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req StartRecalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "재계산 요청 정보가 올바르지 않습니다")
		return
	}
	from, errFrom := time.Parse(dateLayout, req.From)
	to, errTo := time.Parse(dateLayout, req.To)
	if errFrom != nil || errTo != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "기간 형식이 올바르지 않습니다 (YYYY-MM-DD)")
		return
	}

	job, err := ctrl.recalcService.StartJob(p, req.DealerCode, from, to)
	if err != nil {
		respondServiceError(c, err, "start recalculation")
		return
	}

	if ctrl.dispatch != nil {
		ctrl.dispatch(job.ID)
	}

	log.Info("Recalculation job accepted", map[string]interface{}{
		"job_id":      job.ID.String(),
		"dealer_code": job.DealerCode,
	})

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GET /api/v1/recalculations/:id
func (ctrl *RecalculationController) GetJob(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	id, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := ctrl.recalcService.GetJob(p, id)
	if err != nil {
		respondServiceError(c, err, "get recalculation job")
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

// StreamJob 현재 상태를 먼저 보내고 이후 청크마다 진행 상황을 전달한다
// GET /api/v1/recalculations/:id/stream
func (ctrl *RecalculationController) StreamJob(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	if ctrl.hub == nil {
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.InternalConfigError, "진행 상황 스트림을 사용할 수 없습니다")
		return
	}
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := ctrl.recalcService.GetJob(p, id)
	if err != nil {
		respondServiceError(c, err, "stream recalculation job")
		return
	}

	conn, err := ctrl.hub.Upgrade(c.Writer, c.Request)
	if err != nil {
		// Upgrade가 이미 에러 응답을 썼다
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client, err := ctrl.hub.NewClient(conn, p.UserID, job)
	if err != nil {
		log.Error("Failed to create job subscriber", err)
		conn.Close()
		return
	}
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Job progress stream opened", map[string]interface{}{
		"job_id": id.String(),
	})
}

func parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 작업 ID입니다")
		return uuid.Nil, false
	}
	return id, true
}
