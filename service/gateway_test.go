package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"renochat/model"
)

func webhookServer(t *testing.T, status int, body string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("webhook call must not carry a bearer token")
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode webhook payload: %v", err)
			}
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestWebhookResponder_ListShape(t *testing.T) {
	srv := webhookServer(t, 200, `[{"output":"hola desde n8n"}]`, nil)
	defer srv.Close()

	resp, err := NewWebhookResponder(srv.URL).SendMessage(context.Background(),
		model.ChatRequest{Message: "hola", ConversationID: "c1"}, testUser())
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.AIResponse.Content != "hola desde n8n" {
		t.Errorf("content = %q", resp.AIResponse.Content)
	}
	if resp.ConversationID != "c1" {
		t.Errorf("conversation id = %q, want c1", resp.ConversationID)
	}
	if resp.Source != "webhook" {
		t.Errorf("source = %q", resp.Source)
	}
	if resp.UserMessage.Content != "hola" || !resp.UserMessage.IsUser {
		t.Errorf("user message = %+v", resp.UserMessage)
	}
	if resp.AIResponse.ResponseTime < 0 {
		t.Error("response time should be recorded")
	}
}

func TestWebhookResponder_ObjectShape(t *testing.T) {
	srv := webhookServer(t, 200, `{"output":"directo"}`, nil)
	defer srv.Close()

	resp, err := NewWebhookResponder(srv.URL).SendMessage(context.Background(),
		model.ChatRequest{Message: "hola", ConversationID: "c1"}, nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.AIResponse.Content != "directo" {
		t.Errorf("content = %q", resp.AIResponse.Content)
	}
}

func TestWebhookResponder_UnknownShapeFallsBack(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `[{"other":"x"}]`, `"just a string"`} {
		srv := webhookServer(t, 200, body, nil)
		resp, err := NewWebhookResponder(srv.URL).SendMessage(context.Background(),
			model.ChatRequest{Message: "hola", ConversationID: "c1"}, nil)
		srv.Close()
		if err != nil {
			t.Fatalf("body %s: %v", body, err)
		}
		if resp.AIResponse.Content != FallbackReply {
			t.Errorf("body %s: content = %q, want fallback", body, resp.AIResponse.Content)
		}
	}
}

func TestWebhookResponder_TransportFailurePropagates(t *testing.T) {
	srv := webhookServer(t, 500, `{}`, nil)
	defer srv.Close()

	if _, err := NewWebhookResponder(srv.URL).SendMessage(context.Background(),
		model.ChatRequest{Message: "hola"}, nil); err == nil {
		t.Fatal("expected non-2xx to propagate")
	}

	if _, err := NewWebhookResponder("http://127.0.0.1:1").SendMessage(context.Background(),
		model.ChatRequest{Message: "hola"}, nil); err == nil {
		t.Fatal("expected network failure to propagate")
	}
}

func TestWebhookResponder_PayloadShape(t *testing.T) {
	var payload map[string]any
	srv := webhookServer(t, 200, `[{"output":"ok"}]`, &payload)
	defer srv.Close()

	file := &model.FileAttachment{Name: "doc.pdf", Size: 12, Type: model.FileTypeDocument, Extension: "pdf"}
	_, err := NewWebhookResponder(srv.URL).SendMessage(context.Background(),
		model.ChatRequest{Message: "mira esto", ConversationID: "c9", File: file, HasFile: true}, testUser())
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if payload["message"] != "mira esto" || payload["conversation_id"] != "c9" {
		t.Errorf("payload = %+v", payload)
	}
	if payload["has_file"] != true {
		t.Error("has_file should be set")
	}
	userCtx, ok := payload["user"].(map[string]any)
	if !ok {
		t.Fatal("payload should carry a flattened user context")
	}
	if userCtx["email"] != "alice@example.com" || userCtx["employee_id"] != "E-42" {
		t.Errorf("user context = %+v", userCtx)
	}
	fileCtx, ok := payload["file"].(map[string]any)
	if !ok || fileCtx["name"] != "doc.pdf" {
		t.Errorf("file context = %+v", payload["file"])
	}
}

func TestWebhookResponder_GeneratesConversationID(t *testing.T) {
	srv := webhookServer(t, 200, `[{"output":"ok"}]`, nil)
	defer srv.Close()

	resp, err := NewWebhookResponder(srv.URL).SendMessage(context.Background(),
		model.ChatRequest{Message: "hola"}, nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.ConversationID == "" {
		t.Error("a missing conversation id should be filled in")
	}
}

func TestWebhookResponder_NormalizesHTMLReply(t *testing.T) {
	srv := webhookServer(t, 200, `[{"output":"<p>Hola <strong>mundo</strong></p>"}]`, nil)
	defer srv.Close()

	resp, err := NewWebhookResponder(srv.URL).SendMessage(context.Background(),
		model.ChatRequest{Message: "hola", ConversationID: "c1"}, nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.AIResponse.Content != "Hola **mundo**" {
		t.Errorf("content = %q, want markdown rendition", resp.AIResponse.Content)
	}
}
