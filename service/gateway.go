package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"renochat/lib"
	"renochat/model"
)

// FallbackReply is returned when the remote responder answers with a shape
// carrying no usable output.
const FallbackReply = "Lo siento, no pude obtener una respuesta."

// Responder turns a message-plus-context payload into an assistant reply.
// A transport or remote failure is propagated to the caller; responders
// never synthesize an apology for a failed exchange.
type Responder interface {
	SendMessage(ctx context.Context, req model.ChatRequest, user *model.User) (*model.ChatResponse, error)
}

// webhookPayload is the wire shape posted to the assistant webhook. The
// user sub-object is a flattened view of the employee profile.
type webhookPayload struct {
	Message        string                `json:"message"`
	ConversationID string                `json:"conversation_id"`
	HasFile        bool                  `json:"has_file"`
	File           *model.FileAttachment `json:"file"`
	User           *webhookUser          `json:"user"`
}

type webhookUser struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Role       string `json:"role"`
	RoleCode   string `json:"role_code"`
	EmployeeID string `json:"employee_id"`
}

// WebhookResponder posts to the fixed external assistant webhook. The call
// is deliberately unauthenticated: the webhook identifies the employee from
// the payload's user context, not from a bearer token.
type WebhookResponder struct {
	url    string
	client *http.Client
}

func NewWebhookResponder(url string) *WebhookResponder {
	return &WebhookResponder{
		url:    url,
		client: &http.Client{},
	}
}

func (w *WebhookResponder) SendMessage(ctx context.Context, req model.ChatRequest, user *model.User) (*model.ChatResponse, error) {
	payload := webhookPayload{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		HasFile:        req.HasFile,
		File:           req.File,
	}
	if user != nil {
		payload.User = &webhookUser{
			Email:      user.Email,
			Username:   user.Username,
			FullName:   user.Employee.FullName,
			Department: user.Employee.Department,
			Role:       user.Employee.RoleName,
			RoleCode:   user.Employee.RoleCode,
			EmployeeID: user.Employee.EmployeeID,
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode webhook response: %w", err)
	}

	aiContent := lib.NormalizeReply(extractOutput(body))
	return buildResponse(req, aiContent, time.Since(start), "webhook"), nil
}

// extractOutput pulls the assistant text out of whichever shape the webhook
// answered with: a one-element list carrying an output field, or an object
// carrying it directly.
func extractOutput(body json.RawMessage) string {
	type outputShape struct {
		Output string `json:"output"`
	}

	var list []outputShape
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) > 0 && list[0].Output != "" {
			return list[0].Output
		}
		return FallbackReply
	}

	var obj outputShape
	if err := json.Unmarshal(body, &obj); err == nil && obj.Output != "" {
		return obj.Output
	}
	return FallbackReply
}

// buildResponse wraps the echoed user message and the assistant reply into
// the standard envelope. A missing conversation id is filled with a fresh
// one so the caller always gets a usable target.
func buildResponse(req model.ChatRequest, aiContent string, elapsed time.Duration, source string) *model.ChatResponse {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	now := time.Now()
	return &model.ChatResponse{
		ConversationID: conversationID,
		UserMessage: model.Message{
			ID:        model.NewMessageID(),
			Content:   req.Message,
			IsUser:    true,
			Timestamp: now,
			HasFile:   req.HasFile,
			File:      req.File,
		},
		AIResponse: model.Message{
			ID:           model.NewMessageID(),
			Content:      aiContent,
			IsUser:       false,
			Timestamp:    now,
			ResponseTime: elapsed.Milliseconds(),
			HasFile:      false,
		},
		Source: source,
	}
}

// OpenAIResponder answers through an OpenAI-compatible completion API
// instead of the webhook, selected with CHAT_PROVIDER=openai for
// deployments that run their own model endpoint.
type OpenAIResponder struct {
	client *openai.Client
	model  string
}

func NewOpenAIResponder(baseURL, apiKey, modelName string) *OpenAIResponder {
	return &OpenAIResponder{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
		),
		model: modelName,
	}
}

func (o *OpenAIResponder) SendMessage(ctx context.Context, req model.ChatRequest, user *model.User) (*model.ChatResponse, error) {
	systemPrompt := "You are a helpful assistant."
	if user != nil && user.Employee.RoleDetail.ChatContext != "" {
		systemPrompt = user.Employee.RoleDetail.ChatContext
	}

	type promptMessage struct {
		Role    openai.ChatCompletionMessageParamRole
		Content string
	}
	messages := []promptMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: req.Message},
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{}),
		Model:    openai.F(o.model),
	}
	for _, message := range messages {
		var content any = message.Content
		params.Messages.Value = append(params.Messages.Value, openai.ChatCompletionMessageParam{
			Role:    openai.F(message.Role),
			Content: openai.F(content),
		})
	}

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	aiContent := FallbackReply
	if len(completion.Choices) > 0 && completion.Choices[0].Message.Content != "" {
		aiContent = completion.Choices[0].Message.Content
	}
	return buildResponse(req, aiContent, time.Since(start), "llm_api"), nil
}
