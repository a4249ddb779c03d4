package handler

import (
	"net/http"

	"anoa.com/peerlink/internal/modules/project/dto"
	"anoa.com/peerlink/internal/modules/project/service"
	"anoa.com/peerlink/pkg/response"
	"anoa.com/peerlink/pkg/validator"
	"github.com/gin-gonic/gin"
)

// ProjectHandler serves sponsor project management and the student apply flow.
// Routes under /sponsor/projects share the :id wildcard; its meaning depends on the route.
type ProjectHandler struct {
	projectService service.ProjectService
}

func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "project created", "project": project})
}

func (h *ProjectHandler) Update(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	projectID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), userID, projectID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project updated", "project": project})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	projectID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), userID, projectID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

func (h *ProjectHandler) ListOwn(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	projects, err := h.projectService.ListOwn(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// ListBySponsor serves GET /sponsor/projects/:id where id is a sponsor profile id.
func (h *ProjectHandler) ListBySponsor(c *gin.Context) {
	sponsorID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	projects, err := h.projectService.ListBySponsor(c.Request.Context(), sponsorID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) ListEnrolledStudents(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	projectID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.projectService.ListEnrolledStudents(c.Request.Context(), userID, projectID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ProjectHandler) SelectStudent(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	projectID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.SelectStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.projectService.ToggleSelection(c.Request.Context(), userID, projectID, input.StudentID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ProjectHandler) ListAvailable(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	projects, err := h.projectService.ListAvailable(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Apply(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	projectID, err := response.ParseUUIDParam(c, "projectId")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	application, err := h.projectService.Apply(c.Request.Context(), userID, projectID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "applied to project", "application": application})
}

func (h *ProjectHandler) ListApplied(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	applied, err := h.projectService.ListApplied(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, applied)
}

func (h *ProjectHandler) ListStudentProjects(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.projectService.ListStudentProjects(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
