package handler

import (
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	studentService service.StudentService
}

func NewStudentHandler(studentService service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

func (h *StudentHandler) RegisterRoutes(router *gin.RouterGroup) {
	students := router.Group("/api/students")
	{
		students.GET("", middleware.RequirePermission("students:read"), h.ListStudents)
		students.GET("/:id", middleware.RequirePermission("students:read"), h.GetStudent)
		students.POST("", middleware.RequirePermission("students:create"), h.CreateStudent)
		students.PUT("/:id", middleware.RequirePermission("students:update"), h.UpdateStudent)
		students.DELETE("/:id", middleware.RequirePermission("students:delete"), h.DeleteStudent)
	}
}

// ListStudents returns paginated students with field-level masking applied
// @Summary      List students
// @Tags         students
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "Filter by status: ENROLLED, PAUSED, GRADUATED, DROPPED"
// @Param        search  query     string  false  "Search by name"
// @Success      200     {object}  response.Response{data=[]service.StudentResponse}
// @Router       /api/students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	pg := pagination.Parse(c)

	p, _ := middleware.GetPrincipal(c)

	students, total, err := h.studentService.ListStudents(c.Request.Context(), p, c.Query("status"), c.Query("search"), pg.Page, pg.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, students, pg.Page, pg.Limit, total))
}

// GetStudent returns a single student with field-level masking applied
// @Summary      Get student by ID
// @Tags         students
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Student ID"
// @Success      200  {object}  response.Response{data=service.StudentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/students/{id} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	student, err := h.studentService.GetStudent(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, student))
}

// CreateStudent registers a new student record
// @Summary      Create student
// @Tags         students
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateStudentRequest  true  "Student payload"
// @Success      201      {object}  response.Response{data=service.StudentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/students [post]
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	p, _ := middleware.GetPrincipal(c)

	student, err := h.studentService.CreateStudent(c.Request.Context(), p, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, student))
}

// UpdateStudent updates a student; edits to non-editable gated fields are rejected
// @Summary      Update student
// @Tags         students
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Student ID"
// @Param        payload  body      service.UpdateStudentRequest  true  "Update payload"
// @Success      200      {object}  response.Response{data=service.StudentResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/students/{id} [put]
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	p, _ := middleware.GetPrincipal(c)

	student, err := h.studentService.UpdateStudent(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, student))
}

// DeleteStudent deletes a student within the caller's data scope
// @Summary      Delete student
// @Tags         students
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Student ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/students/{id} [delete]
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	if err := h.studentService.DeleteStudent(c.Request.Context(), p, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Student deleted"))
}
