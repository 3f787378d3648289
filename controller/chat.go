package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"renochat/lib"
	"renochat/model"
	"renochat/service"
)

// ChatController exposes the conversation state operations to the UI.
type ChatController struct {
	chat *service.ChatService
	mail *service.MailService
	auth *service.AuthService
}

func NewChatController(chat *service.ChatService, mail *service.MailService, auth *service.AuthService) *ChatController {
	return &ChatController{chat: chat, mail: mail, auth: auth}
}

func (ctrl *ChatController) SendMessage(c *gin.Context) {
	var input struct {
		Message string                `json:"message"`
		File    *model.FileAttachment `json:"file"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if input.Message == "" && input.File == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message or file required"})
		return
	}

	conversation, err := ctrl.chat.SendMessage(c.Request.Context(), input.Message, input.File)
	if err != nil {
		logger.Warnf("[%s] Failed to send message: %s", c.GetString("requestId"), err)
		switch {
		case errors.Is(err, service.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
		case errors.Is(err, service.ErrMessageTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "El mensaje es demasiado largo"})
		default:
			// The optimistic user message stays in the thread; the UI
			// renders the error state from this response.
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conversation})
}

func (ctrl *ChatController) ListConversations(c *gin.Context) {
	conversations, err := ctrl.chat.LoadConversations()
	if err != nil {
		if errors.Is(err, service.ErrNotAuthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
			return
		}
		logger.Warnf("[%s] Failed to load conversations: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (ctrl *ChatController) CreateConversation(c *gin.Context) {
	var input struct {
		Title string `json:"title"`
	}
	// Body is optional; an empty one gets the default title.
	_ = c.ShouldBindJSON(&input)

	conversation := ctrl.chat.CreateConversation(input.Title)
	if conversation == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conversation})
}

func (ctrl *ChatController) SelectConversation(c *gin.Context) {
	ctrl.chat.SelectConversation(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"conversation": ctrl.chat.GetCurrentConversation()})
}

func (ctrl *ChatController) DeleteConversation(c *gin.Context) {
	ctrl.chat.DeleteConversation(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}

// CurrentConversation returns the active thread with each message body
// rendered to HTML for display.
func (ctrl *ChatController) CurrentConversation(c *gin.Context) {
	conversation := ctrl.chat.GetCurrentConversation()
	if conversation == nil {
		c.JSON(http.StatusOK, gin.H{"conversation": nil})
		return
	}

	rendered := make([]string, len(conversation.Messages))
	for i, msg := range conversation.Messages {
		html, err := lib.RenderMarkdown(msg.Content)
		if err != nil {
			logger.Warnf("[%s] render message %d error, %s", c.GetString("requestId"), msg.ID, err)
			html = msg.Content
		}
		rendered[i] = html
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conversation, "rendered": rendered})
}

// Export mails the current conversation transcript. The recipient defaults
// to the signed-in user's address.
func (ctrl *ChatController) Export(c *gin.Context) {
	var input struct {
		Email string `json:"email"`
	}
	_ = c.ShouldBindJSON(&input)

	conversation := ctrl.chat.GetCurrentConversation()
	if conversation == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No current conversation"})
		return
	}

	recipient := input.Email
	if recipient == "" {
		user := ctrl.auth.CurrentUser()
		if user == nil || user.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No recipient address"})
			return
		}
		recipient = user.Email
	}

	if err := ctrl.mail.SendTranscript(conversation, recipient); err != nil {
		logger.Warnf("[%s] Failed to export conversation %s: %s", c.GetString("requestId"), conversation.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transcript sent to " + recipient})
}

// Upload forwards a raw file to the backend upload endpoint for the current
// conversation.
func (ctrl *ChatController) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Warnf("[%s] open uploaded file error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error al procesar el archivo"})
		return
	}
	defer file.Close()

	result, err := ctrl.chat.UploadFile(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		logger.Warnf("[%s] Failed to upload file: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload file"})
		return
	}
	c.JSON(http.StatusOK, result)
}
