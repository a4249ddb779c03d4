package handler

import (
	"net/http"
	"time"

	"anoa.com/peerlink/internal/modules/user/dto"
	"anoa.com/peerlink/internal/modules/user/service"
	"anoa.com/peerlink/pkg/response"
	"anoa.com/peerlink/pkg/validator"
	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type AuthHandler struct {
	authService  service.AuthService
	secureCookie bool
	frontendURL  string
}

func NewAuthHandler(authService service.AuthService, secureCookie bool, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		frontendURL:  frontendURL,
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var input dto.SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.Signup(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.setSessionCookies(c, res)
	c.JSON(http.StatusCreated, gin.H{"message": "user registered successfully", "user": res.User})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.setSessionCookies(c, res)
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "user": res.User})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(RefreshCookie)
	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		response.ResponseError(c, err)
		return
	}

	h.clearCookie(c, AccessCookie)
	h.clearCookie(c, RefreshCookie)
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, _ := c.Cookie(RefreshCookie)
	res, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.setSessionCookies(c, res)
	c.JSON(http.StatusOK, gin.H{"message": "token refreshed successfully"})
}

func (h *AuthHandler) UserInfo(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.authService.UserInfo(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	url, err := h.authService.GoogleLoginURL(c.DefaultQuery("role", "student"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	res, err := h.authService.GoogleCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.setSessionCookies(c, res)
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL)
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, res *dto.AuthResult) {
	h.setCookie(c, AccessCookie, res.AccessToken, res.AccessExpiresAt)
	if res.RefreshToken != "" {
		h.setCookie(c, RefreshCookie, res.RefreshToken, res.RefreshExpiresAt)
	}
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, expiresAt time.Time) {
	if h.secureCookie {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(name, value, int(time.Until(expiresAt).Seconds()), "/", "", h.secureCookie, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1, "/", "", h.secureCookie, true)
}
