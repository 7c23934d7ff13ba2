package handler

import (
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	leadService service.LeadService
}

func NewLeadHandler(leadService service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

func (h *LeadHandler) RegisterRoutes(router *gin.RouterGroup) {
	leads := router.Group("/api/leads")
	{
		leads.GET("", middleware.RequirePermission("leads:read"), h.ListLeads)
		leads.GET("/:id", middleware.RequirePermission("leads:read"), h.GetLead)
		leads.POST("", middleware.RequirePermission("leads:create"), h.CreateLead)
		leads.PUT("/:id", middleware.RequirePermission("leads:update"), h.UpdateLead)
		leads.DELETE("/:id", middleware.RequirePermission("leads:delete"), h.DeleteLead)
	}
}

// ListLeads returns paginated leads with field-level masking applied
// @Summary      List leads
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "Filter by status: NEW, CONTACTED, QUALIFIED, WON, LOST"
// @Param        search  query     string  false  "Search by name or company"
// @Success      200     {object}  response.Response{data=[]service.LeadResponse}
// @Router       /api/leads [get]
func (h *LeadHandler) ListLeads(c *gin.Context) {
	pg := pagination.Parse(c)

	p, _ := middleware.GetPrincipal(c)

	leads, total, err := h.leadService.ListLeads(c.Request.Context(), p, c.Query("status"), c.Query("search"), pg.Page, pg.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, leads, pg.Page, pg.Limit, total))
}

// GetLead returns a single lead with field-level masking applied
// @Summary      Get lead by ID
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  response.Response{data=service.LeadResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/leads/{id} [get]
func (h *LeadHandler) GetLead(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	lead, err := h.leadService.GetLead(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, lead))
}

// CreateLead creates a new lead owned by the caller
// @Summary      Create lead
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLeadRequest  true  "Lead payload"
// @Success      201      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req service.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	p, _ := middleware.GetPrincipal(c)

	lead, err := h.leadService.CreateLead(c.Request.Context(), p, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lead))
}

// UpdateLead updates a lead; edits to non-editable gated fields are rejected
// @Summary      Update lead
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Lead ID"
// @Param        payload  body      service.UpdateLeadRequest  true  "Update payload"
// @Success      200      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/leads/{id} [put]
func (h *LeadHandler) UpdateLead(c *gin.Context) {
	var req service.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	p, _ := middleware.GetPrincipal(c)

	lead, err := h.leadService.UpdateLead(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, lead))
}

// DeleteLead deletes a lead within the caller's data scope
// @Summary      Delete lead
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	if err := h.leadService.DeleteLead(c.Request.Context(), p, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Lead deleted"))
}
