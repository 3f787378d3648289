package main

import (
	"fmt"
	"os"
	"time"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"renochat/controller"
	"renochat/lib"
	"renochat/model"
	"renochat/platform"
	"renochat/service"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Client-Security-Token, Accept-Encoding, x-access-token")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()
		requestId := c.GetString("requestId")

		logrus.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			requestId,
			status,
			latency,
			clientIP,
			method,
			path,
			userAgent,
		)
	}
}

// SessionAuthMiddleware ...
// Rejects conversation traffic until a session has been established. A
// request carrying its own bearer token can resume a session the process
// no longer holds.
func SessionAuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	tokens := &service.TokenService{}
	return func(c *gin.Context) {
		if auth.IsAuthenticated() || auth.CheckAuth() {
			c.Next()
			return
		}
		if auth.ResumeWithToken(tokens.ExtractToken(c.Request)) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(401, gin.H{"message": "Please login first"})
	}
}

func main() {
	fmt.Println("Client shell started...")

	//Load the .env file
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("failed to load the env file")
	}

	platform.InitFile("./log", "gin")

	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())

	//init the durable store database
	platform.InitDB()
	model.InstallDB()

	// One backend client and one responder for the whole process, passed
	// down explicitly rather than looked up from ambient scope.
	apiClient := lib.NewApiClient(os.Getenv("API_BASE_URL"))
	store := service.NewSessionStore(platform.DB)
	authService := service.NewAuthService(apiClient, store)

	var responder service.Responder
	if os.Getenv("CHAT_PROVIDER") == "openai" {
		responder = service.NewOpenAIResponder(
			os.Getenv("LLM_BASE_URL"),
			os.Getenv("LLM_API_KEY"),
			os.Getenv("LLM_MODEL"),
		)
	} else {
		responder = service.NewWebhookResponder(os.Getenv("WEBHOOK_URL"))
	}

	chatService := service.NewChatService(authService, store, apiClient, responder)
	mailService := &service.MailService{}
	attachmentService := &service.AttachmentService{}

	auth := controller.NewAuthController(authService, chatService)
	chat := controller.NewChatController(chatService, mailService, authService)
	attachments := controller.NewAttachmentController(attachmentService)

	v1 := r.Group("/v1")
	{
		v1.POST("/login", auth.Login)
		v1.POST("/logout", auth.Logout)
		v1.GET("/session", auth.Session)

		authed := v1.Group("", SessionAuthMiddleware(authService))
		authed.POST("/chat", chat.SendMessage)
		authed.GET("/conversations", chat.ListConversations)
		authed.POST("/conversations", chat.CreateConversation)
		authed.GET("/conversations/current", chat.CurrentConversation)
		authed.PUT("/conversations/:id/select", chat.SelectConversation)
		authed.DELETE("/conversations/:id", chat.DeleteConversation)
		authed.POST("/conversations/current/export", chat.Export)
		authed.POST("/upload", chat.Upload)

		authed.POST("/attachments", attachments.Encode)
		authed.POST("/attachments/voice", attachments.EncodeVoiceNote)
	}

	c := cron.New()
	c.AddFunc("0 * * * *", func() {
		swept := store.SweepEphemeral(12 * time.Hour)
		if swept > 0 {
			platform.Logger.Infof("[sweep] removed %d idle ephemeral entries", swept)
		}
	})
	c.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
