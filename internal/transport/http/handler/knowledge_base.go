package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/transport/http/response"
)

type KnowledgeBaseHandler struct {
	kbService *app.KnowledgeBaseService
}

func NewKnowledgeBaseHandler(kbService *app.KnowledgeBaseService) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{kbService: kbService}
}

// Create accepts multipart/form-data with name, description and files.
// Ingestion runs in the background; the response carries the base in its
// UPLOADING state along with the files that were saved and any per-file
// errors.
func (h *KnowledgeBaseHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	files, err := readUploadedFiles(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	result, err := h.kbService.Create(app.CreateKnowledgeBaseInput{
		UserID:      userID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Files:       files,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput),
			errors.Is(err, app.ErrTooManyFiles),
			errors.Is(err, app.ErrNoFilesSaved):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create knowledge base failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *KnowledgeBaseHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	bases, err := h.kbService.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list knowledge bases failed")
		return
	}

	response.OK(c, bases)
}

func (h *KnowledgeBaseHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	kbID, ok := pathID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid knowledge base id")
		return
	}

	detail, err := h.kbService.Get(userID, kbID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrKnowledgeBaseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeKnowledgeBaseNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get knowledge base failed")
		}
		return
	}

	response.OK(c, detail)
}

func (h *KnowledgeBaseHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	kbID, ok := pathID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid knowledge base id")
		return
	}

	if err := h.kbService.Delete(c.Request.Context(), userID, kbID); err != nil {
		switch {
		case errors.Is(err, app.ErrKnowledgeBaseNotFound):
			response.Error(c, http.StatusNotFound, response.CodeKnowledgeBaseNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete knowledge base failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_knowledge_base_id": kbID})
}
