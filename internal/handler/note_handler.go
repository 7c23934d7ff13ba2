package handler

import (
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	noteService service.NoteService
}

func NewNoteHandler(noteService service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

func (h *NoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	notes := router.Group("/api/notes")
	{
		notes.GET("", middleware.RequirePermission("notes:read"), h.ListNotes)
		notes.GET("/:id", middleware.RequirePermission("notes:read"), h.GetNote)
		notes.POST("", middleware.RequirePermission("notes:create"), h.CreateNote)
		notes.PUT("/:id", middleware.RequirePermission("notes:update"), h.UpdateNote)
		notes.DELETE("/:id", middleware.RequirePermission("notes:delete"), h.DeleteNote)
	}
}

// ListNotes returns paginated notes visible within the caller's data scope
// @Summary      List notes
// @Tags         notes
// @Security     BearerAuth
// @Produce      json
// @Param        page          query     int     false  "Page number (default: 1)"
// @Param        limit         query     int     false  "Items per page (default: 20)"
// @Param        related_type  query     string  false  "Filter by related entity: leads, projects, students"
// @Param        search        query     string  false  "Search by title or body"
// @Success      200           {object}  response.Response{data=[]service.NoteResponse}
// @Router       /api/notes [get]
func (h *NoteHandler) ListNotes(c *gin.Context) {
	pg := pagination.Parse(c)

	p, _ := middleware.GetPrincipal(c)

	notes, total, err := h.noteService.ListNotes(c.Request.Context(), p, c.Query("related_type"), c.Query("search"), pg.Page, pg.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, notes, pg.Page, pg.Limit, total))
}

// GetNote returns a single note if it falls within the caller's data scope
// @Summary      Get note by ID
// @Tags         notes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Note ID"
// @Success      200  {object}  response.Response{data=service.NoteResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/notes/{id} [get]
func (h *NoteHandler) GetNote(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	note, err := h.noteService.GetNote(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, note))
}

// CreateNote creates a new note owned by the caller
// @Summary      Create note
// @Tags         notes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateNoteRequest  true  "Note payload"
// @Success      201      {object}  response.Response{data=service.NoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/notes [post]
func (h *NoteHandler) CreateNote(c *gin.Context) {
	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	p, _ := middleware.GetPrincipal(c)

	note, err := h.noteService.CreateNote(c.Request.Context(), p, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, note))
}

// UpdateNote updates an existing note within the caller's data scope
// @Summary      Update note
// @Tags         notes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Note ID"
// @Param        payload  body      service.UpdateNoteRequest  true  "Update payload"
// @Success      200      {object}  response.Response{data=service.NoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/notes/{id} [put]
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	var req service.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	p, _ := middleware.GetPrincipal(c)

	note, err := h.noteService.UpdateNote(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, note))
}

// DeleteNote deletes a note within the caller's data scope
// @Summary      Delete note
// @Tags         notes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Note ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notes/{id} [delete]
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)

	if err := h.noteService.DeleteNote(c.Request.Context(), p, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Note deleted"))
}
