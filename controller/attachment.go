package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"renochat/service"
)

// AttachmentController turns uploaded files and voice clips into attachment
// descriptors the send endpoint accepts. Validation failures come back as
// user-facing messages and nothing is attached.
type AttachmentController struct {
	attachments *service.AttachmentService
}

func NewAttachmentController(attachments *service.AttachmentService) *AttachmentController {
	return &AttachmentController{attachments: attachments}
}

func (ctrl *AttachmentController) Encode(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if fileHeader.Size > service.MaxAttachmentSize {
		// Reject before reading the content.
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrAttachmentTooLarge.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Warnf("[%s] open attachment error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error al procesar el archivo"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		logger.Warnf("[%s] read attachment error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error al procesar el archivo"})
		return
	}

	attachment, err := ctrl.attachments.Encode(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), content)
	if err != nil {
		if errors.Is(err, service.ErrAttachmentTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Warnf("[%s] encode attachment error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error al procesar el archivo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": attachment})
}

func (ctrl *AttachmentController) EncodeVoiceNote(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	duration, err := strconv.ParseFloat(c.PostForm("duration"), 64)
	if err != nil || duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid duration"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Warnf("[%s] open voice note error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error al procesar el archivo"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		logger.Warnf("[%s] read voice note error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error al procesar el archivo"})
		return
	}

	attachment, err := ctrl.attachments.EncodeVoiceNote(content, duration)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": attachment})
}
