package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kromio/kromio-server/internal/api/middleware"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/response"
	"github.com/kromio/kromio-server/internal/service"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// List returns the plan catalog.
// GET /api/v1/plans
func (h *PlanHandler) List(c *gin.Context) {
	response.Success(c, h.planService.GetAllPlans())
}

// GetMine returns the caller's plan with live balance and subscription.
// GET /api/v1/plans/me
func (h *PlanHandler) GetMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	plan, err := h.planService.GetUserPlan(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, plan)
}

// CanPerform checks whether the caller may take an action.
// POST /api/v1/plans/can-perform
func (h *PlanHandler) CanPerform(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CanPerformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	decision, err := h.planService.CanPerform(c.Request.Context(), userID, req.Action, req.Context)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, decision)
}

// Upgrade moves the caller to a higher tier.
// POST /api/v1/plans/upgrade
func (h *PlanHandler) Upgrade(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.planService.UpgradePlan(c.Request.Context(), userID, req.TargetPlan, req.PaymentRef)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "plan upgraded", result)
}
