package lib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"renochat/model"
)

// ErrAuthFailed marks a 401 from any bearer-authenticated backend call. The
// client token is cleared before this is returned.
var ErrAuthFailed = errors.New("authentication failed")

// ApiClient talks to the employee backend (login, profile, conversation
// listing, file upload). One instance is constructed at startup and passed
// to the services that need it.
type ApiClient struct {
	apiBase string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

// NewApiClient builds a client against the given API origin. The chatbot
// API lives under /api/chatbot on that origin.
func NewApiClient(baseURL string) *ApiClient {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &ApiClient{
		apiBase: strings.TrimRight(baseURL, "/") + "/api/chatbot",
		client:  &http.Client{},
	}
}

func (a *ApiClient) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *ApiClient) ClearToken() {
	a.SetToken("")
}

func (a *ApiClient) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *ApiClient) BaseURL() string {
	return a.apiBase
}

func (a *ApiClient) request(method, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.apiBase+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		a.ClearToken()
		return ErrAuthFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Login exchanges credentials for a session. The bearer token is retained on
// success so subsequent authenticated calls carry it.
func (a *ApiClient) Login(creds model.LoginRequest) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := a.request(http.MethodPost, "/employee/login/", creds, &resp); err != nil {
		return nil, err
	}
	if resp.Success {
		a.SetToken(resp.Access)
	}
	return &resp, nil
}

func (a *ApiClient) GetProfile() (*model.User, error) {
	var user model.User
	if err := a.request(http.MethodGet, "/employee/profile/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *ApiClient) GetConversations() ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := a.request(http.MethodGet, "/employee/conversations/", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (a *ApiClient) GetConversation(conversationID string) (*model.Conversation, error) {
	var conversation model.Conversation
	endpoint := fmt.Sprintf("/employee/conversations/%s/", conversationID)
	if err := a.request(http.MethodGet, endpoint, nil, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// UploadFile sends a file to the conversation upload endpoint as a multipart
// form. The backend only distinguishes images from documents.
func (a *ApiClient) UploadFile(conversationID, fileName, mimeType string, content io.Reader) (map[string]any, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}

	fileType := "document"
	if strings.HasPrefix(mimeType, "image/") {
		fileType = "image"
	}
	writer.WriteField("file_name", fileName)
	writer.WriteField("file_type", fileType)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/employee/conversations/%s/upload/", a.apiBase, conversationID)
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		a.ClearToken()
		return nil, ErrAuthFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return result, nil
}

// Logout drops the retained bearer token. The backend keeps no server-side
// session for this client.
func (a *ApiClient) Logout() {
	a.ClearToken()
}
