package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/transport/http/response"
)

type ModelConfigHandler struct {
	service *app.ModelConfigService
}

type ModelConfigRequest struct {
	ModelName   string  `json:"model_name" binding:"required,max=128"`
	BaseURL     string  `json:"base_url" binding:"max=512"`
	APIKey      string  `json:"api_key" binding:"max=512"`
	Temperature float64 `json:"temperature"`
}

func NewModelConfigHandler(service *app.ModelConfigService) *ModelConfigHandler {
	return &ModelConfigHandler{service: service}
}

func (h *ModelConfigHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	cfg, err := h.service.Get(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get model config failed")
		return
	}
	if cfg == nil {
		response.OK(c, nil)
		return
	}

	response.OK(c, cfg)
}

func (h *ModelConfigHandler) Set(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req ModelConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	cfg, err := h.service.Set(app.ModelConfigInput{
		UserID:      userID,
		ModelName:   req.ModelName,
		BaseURL:     req.BaseURL,
		APIKey:      req.APIKey,
		Temperature: req.Temperature,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save model config failed")
		}
		return
	}

	response.OK(c, cfg)
}

func (h *ModelConfigHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.service.Delete(userID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete model config failed")
		return
	}

	response.OK(c, gin.H{"deleted": true})
}
