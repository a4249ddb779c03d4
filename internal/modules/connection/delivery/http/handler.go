package handler

import (
	"net/http"

	"anoa.com/peerlink/internal/modules/connection/dto"
	"anoa.com/peerlink/internal/modules/connection/service"
	"anoa.com/peerlink/pkg/response"
	"anoa.com/peerlink/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConnectionHandler serves both the /connection routes and their /student aliases.
type ConnectionHandler struct {
	connectionService service.ConnectionService
}

func NewConnectionHandler(connectionService service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService}
}

func (h *ConnectionHandler) SendRequest(c *gin.Context) {
	var input dto.SendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	h.send(c, input.ConnectionUserID)
}

func (h *ConnectionHandler) StudentSendRequest(c *gin.Context) {
	var input dto.StudentSendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	h.send(c, input.ReceiverID)
}

func (h *ConnectionHandler) send(c *gin.Context, receiverID uuid.UUID) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	req, err := h.connectionService.SendRequest(c.Request.Context(), userID, receiverID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "connection request sent", "request": req})
}

func (h *ConnectionHandler) Accept(c *gin.Context) {
	h.respondBySender(c, dto.ActionAccept)
}

func (h *ConnectionHandler) Reject(c *gin.Context) {
	h.respondBySender(c, dto.ActionReject)
}

func (h *ConnectionHandler) respondBySender(c *gin.Context, action dto.Action) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.RespondBySenderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	req, err := h.connectionService.RespondBySender(c.Request.Context(), userID, input.SenderUserID, action)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "connection request " + string(req.Status), "request": req})
}

func (h *ConnectionHandler) HandleRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.HandleRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	req, err := h.connectionService.RespondToRequest(c.Request.Context(), userID, input.RequestID, input.Action)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "connection request " + string(req.Status), "request": req})
}

func (h *ConnectionHandler) ListPending(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.connectionService.ListPending(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ConnectionHandler) ListConnections(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.connectionService.ListConnections(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": res})
}

func (h *ConnectionHandler) RemoveConnection(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.RemoveConnectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.connectionService.RemoveConnection(c.Request.Context(), userID, input.StudentID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "connection removed"})
}
