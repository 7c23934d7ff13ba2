package handler

import (
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService  service.RoleService
	grantService service.GrantService
}

// NewRoleHandler sets up the routing dependencies for Role and grant endpoints
func NewRoleHandler(roleService service.RoleService, grantService service.GrantService) *RoleHandler {
	return &RoleHandler{roleService: roleService, grantService: grantService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/permissions", middleware.RequirePermission("roles:read"), h.ListPermissions)

	roles := router.Group("/api/roles")
	{
		roles.GET("", middleware.RequirePermission("roles:read"), h.ListRoles)
		roles.GET("/:id", middleware.RequirePermission("roles:read"), h.GetRole)
		roles.POST("", middleware.RequirePermission("roles:create"), h.CreateRole)
		roles.PUT("/:id", middleware.RequirePermission("roles:update"), h.UpdateRole)
		roles.DELETE("/:id", middleware.RequirePermission("roles:delete"), h.DeleteRole)

		roles.GET("/:id/grants", middleware.RequirePermission("roles:read"), h.GetRoleGrants)
		roles.PUT("/:id/grants", middleware.RequirePermission("roles:update"), h.ApplyRoleGrants)
	}
}

// ListRoles handles GET /api/roles
// @Summary      List roles
// @Description  Lists global roles plus the caller tenant's roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	roles, err := h.roleService.ListRoles(c.Request.Context(), p.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// GetRole handles GET /api/roles/:id
// @Summary      Get role by ID
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// CreateRole handles POST /api/roles
// @Summary      Create role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRoleRequest  true  "Create Role Payload"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole handles PUT /api/roles/:id
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Update Role Payload"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole handles DELETE /api/roles/:id
// @Summary      Delete role
// @Description  Deletes a role. System roles cannot be deleted.
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roleService.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Role deleted"))
}

// GetRoleGrants handles GET /api/roles/:id/grants
// @Summary      Get role grants
// @Description  Returns the role's module grants with nested field grants
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=[]service.ModuleGrantResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id}/grants [get]
func (h *RoleHandler) GetRoleGrants(c *gin.Context) {
	grants, err := h.grantService.GetRoleGrants(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, grants))
}

// ApplyRoleGrants handles PUT /api/roles/:id/grants
// @Summary      Replace role grants
// @Description  Replaces the role's full grant tree and its flat permission projection atomically
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Role ID"
// @Param        payload  body      service.ApplyRoleGrantsRequest  true  "Grant tree"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/roles/{id}/grants [put]
func (h *RoleHandler) ApplyRoleGrants(c *gin.Context) {
	var req service.ApplyRoleGrantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	p, _ := middleware.GetPrincipal(c)
	actingID := p.UserID

	if err := h.grantService.ApplyRoleGrants(c.Request.Context(), c.Param("id"), req, &actingID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Grants updated"))
}

// ListPermissions handles GET /api/permissions
// @Summary      List permission catalog
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}
