package handler

import (
	"net/http"
	"strings"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/internal/modules/student/dto"
	"anoa.com/peerlink/internal/modules/student/service"
	visibility "anoa.com/peerlink/internal/modules/visibility/service"
	"anoa.com/peerlink/pkg/response"
	"anoa.com/peerlink/pkg/validator"
	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	studentService service.StudentService
}

func NewStudentHandler(studentService service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

func viewerFrom(c *gin.Context) (visibility.Viewer, error) {
	userID, err := response.GetUserID(c)
	if err != nil {
		return visibility.Viewer{}, err
	}
	return visibility.Viewer{UserID: userID, Role: entity.Role(response.GetRole(c))}, nil
}

// UpdateProfile accepts JSON {"section", "data"} or a multipart form with the
// same fields plus an image file for the logo and background sections.
func (h *StudentHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateProfileRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req.Section = dto.Section(c.PostForm("section"))
		req.Data = []byte(c.PostForm("data"))
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	file, closeFile, err := response.FormImage(c, "profileLogo", "backgroundImage", "file")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer closeFile()

	update, err := dto.DecodeSection(req.Section, req.Data, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	profile, err := h.studentService.UpdateSection(c.Request.Context(), userID, update)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "profile": profile})
}

func (h *StudentHandler) GetOwnProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	profile, err := h.studentService.GetOwnProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetProfile serves both /student/profile/:studentId and /sponsor/student-profile/:studentId.
func (h *StudentHandler) GetProfile(c *gin.Context) {
	viewer, err := viewerFrom(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	targetID, err := response.ParseUUIDParam(c, "studentId")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	view, err := h.studentService.GetProfile(c.Request.Context(), viewer, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StudentHandler) CheckProfileAccess(c *gin.Context) {
	viewer, err := viewerFrom(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	targetID, err := response.ParseUUIDParam(c, "studentId")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	ok, err := h.studentService.CheckProfileAccess(c.Request.Context(), viewer, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AccessResponse{CanAccess: ok})
}

// Search serves /student/search and /sponsor/search-students.
func (h *StudentHandler) Search(c *gin.Context) {
	viewer, err := viewerFrom(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	skills, err := dto.ParseSkills(c.QueryArray("skills"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	results, err := h.studentService.Search(c.Request.Context(), viewer, dto.SearchQuery{
		Name:   c.Query("name"),
		Skills: skills,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StudentHandler) ListSkills(c *gin.Context) {
	names, err := h.studentService.ListSkillNames(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *StudentHandler) AddSkill(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.SkillInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	skill, err := h.studentService.AddSkill(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "skill added", "skill": skill})
}

func (h *StudentHandler) UpdateSkill(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UpdateSkillInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	skill, err := h.studentService.UpdateSkill(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "skill updated", "skill": skill})
}

// DeleteSkill takes the name from the path, or from a JSON body on DELETE /student/skills.
func (h *StudentHandler) DeleteSkill(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	name := c.Param("name")
	if name == "" {
		var body struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
			return
		}
		name = body.Name
	}

	if err := h.studentService.DeleteSkill(c.Request.Context(), userID, name); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "skill deleted", "name": name})
}

func (h *StudentHandler) AddProject(c *gin.Context) {
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

	project, err := h.studentService.AddProject(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "project added", "project": project})
}

func (h *StudentHandler) UpdateProject(c *gin.Context) {
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

	project, err := h.studentService.UpdateProject(c.Request.Context(), userID, projectID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project updated", "project": project})
}

func (h *StudentHandler) DeleteProject(c *gin.Context) {
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

	if err := h.studentService.DeleteProject(c.Request.Context(), userID, projectID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}
