package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	apperrors "github.com/ikkim/telecom-settlement-backend/internal/errors"
	"github.com/shopspring/decimal"
)

type GoalController struct {
	goalService service.GoalService
}

func NewGoalController(goalService service.GoalService) *GoalController {
	return &GoalController{goalService: goalService}
}

type GoalRequest struct {
	TargetType       model.GoalTargetType `json:"target_type" binding:"required"`
	TargetID         *uint                `json:"target_id"`
	PeriodType       model.PeriodType     `json:"period_type" binding:"required"`
	PeriodStart      string               `json:"period_start" binding:"required"`
	PeriodEnd        string               `json:"period_end"`
	SalesTarget      decimal.Decimal      `json:"sales_target"`
	ActivationTarget int64                `json:"activation_target"`
	MarginTarget     decimal.Decimal      `json:"margin_target"`
	Notes            string               `json:"notes"`
}

// POST /api/v1/goals
func (ctrl *GoalController) CreateGoal(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req GoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "목표 정보가 올바르지 않습니다")
		return
	}
	start, err := time.Parse(dateLayout, req.PeriodStart)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "시작일 형식이 올바르지 않습니다 (YYYY-MM-DD)")
		return
	}
	var end time.Time
	if req.PeriodEnd != "" {
		if end, err = time.Parse(dateLayout, req.PeriodEnd); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "종료일 형식이 올바르지 않습니다 (YYYY-MM-DD)")
			return
		}
	}

	goal, err := ctrl.goalService.CreateGoal(p, service.GoalInput{
		TargetType:       req.TargetType,
		TargetID:         req.TargetID,
		PeriodType:       req.PeriodType,
		PeriodStart:      start,
		PeriodEnd:        end,
		SalesTarget:      req.SalesTarget,
		ActivationTarget: req.ActivationTarget,
		MarginTarget:     req.MarginTarget,
		Notes:            req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, "create goal")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GET /api/v1/goals?period_type=&active_only=
func (ctrl *GoalController) ListGoals(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	activeOnly := !strings.EqualFold(c.DefaultQuery("active_only", "true"), "false")
	goals, err := ctrl.goalService.ListGoals(p, model.PeriodType(c.Query("period_type")), activeOnly)
	if err != nil {
		respondServiceError(c, err, "list goals")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"goals": goals,
		"count": len(goals),
	})
}

// DELETE /api/v1/goals/:id
func (ctrl *GoalController) DeactivateGoal(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.goalService.DeactivateGoal(p, id); err != nil {
		respondServiceError(c, err, "deactivate goal")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Goal deactivated"})
}

// GetAchievement 목표 대비 실적
// GET /api/v1/goals/achievement?target_type=&target_id=&period_type=&period_start=&period_end=
func (ctrl *GoalController) GetAchievement(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	targetID, err := optionalUintQuery(c, "target_id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 대상 ID입니다")
		return
	}
	start, err := optionalDateQuery(c, "period_start")
	if err != nil || start == nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "시작일 형식이 올바르지 않습니다 (YYYY-MM-DD)")
		return
	}
	end, err := optionalDateQuery(c, "period_end")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "종료일 형식이 올바르지 않습니다 (YYYY-MM-DD)")
		return
	}

	q := service.AchievementQuery{
		TargetType:  model.GoalTargetType(c.Query("target_type")),
		TargetID:    targetID,
		PeriodType:  model.PeriodType(c.DefaultQuery("period_type", string(model.PeriodMonthly))),
		PeriodStart: *start,
	}
	if end != nil {
		q.PeriodEnd = *end
	}

	achievement, err := ctrl.goalService.Achievement(p, q)
	if err != nil {
		respondServiceError(c, err, "goal achievement")
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievement": achievement})
}
