package handler

import (
	"net/http"
	"strings"

	"anoa.com/peerlink/internal/modules/sponsor/dto"
	"anoa.com/peerlink/internal/modules/sponsor/service"
	"anoa.com/peerlink/pkg/response"
	"anoa.com/peerlink/pkg/validator"
	"github.com/gin-gonic/gin"
)

type SponsorHandler struct {
	sponsorService service.SponsorService
}

func NewSponsorHandler(sponsorService service.SponsorService) *SponsorHandler {
	return &SponsorHandler{sponsorService: sponsorService}
}

func (h *SponsorHandler) UpdateProfile(c *gin.Context) {
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

	profile, err := h.sponsorService.UpdateSection(c.Request.Context(), userID, update)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "profile": profile})
}

func (h *SponsorHandler) GetOwnProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	profile, err := h.sponsorService.GetOwnProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *SponsorHandler) GetSponsorProfile(c *gin.Context) {
	sponsorID, err := response.ParseUUIDParam(c, "sponsorId")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	profile, err := h.sponsorService.GetSponsorProfile(c.Request.Context(), sponsorID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
