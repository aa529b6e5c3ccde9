package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/model"
	"ragchat/internal/transport/http/middleware"
	"ragchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat runs one chat round and streams NDJSON events back. The request is
// multipart/form-data so file uploads can ride along with the message.
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	message := c.PostForm("message")
	if strings.TrimSpace(message) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "message is required")
		return
	}

	var conversationID uint
	if raw := c.PostForm("conversation_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid conversation_id")
			return
		}
		conversationID = uint(parsed)
	}

	kbIDs, err := parseIDList(c.PostFormArray("knowledge_base_ids"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid knowledge_base_ids")
		return
	}

	files, err := readUploadedFiles(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(c.Writer)
	emit := func(ev model.StreamEvent) error {
		if err := encoder.Encode(ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	// Emit errors mean the client hung up; there is nobody left to tell.
	_ = h.chatService.ProcessChat(c.Request.Context(), app.ChatInput{
		UserID:           userID,
		ConversationID:   conversationID,
		Message:          message,
		Files:            files,
		KnowledgeBaseIDs: kbIDs,
	}, emit)
}

// parseIDList accepts repeated form values as well as comma separated ones.
func parseIDList(raw []string) ([]uint, error) {
	var ids []uint
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			parsed, err := strconv.ParseUint(part, 10, 64)
			if err != nil || parsed == 0 {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			ids = append(ids, uint(parsed))
		}
	}
	return ids, nil
}

func readUploadedFiles(c *gin.Context) ([]app.UploadedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, err
	}

	var files []app.UploadedFile
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, app.UploadedFile{Name: header.Filename, Data: data})
	}
	return files, nil
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}
