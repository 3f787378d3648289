package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	"renochat/lib"
	"renochat/model"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// backendServer fakes the employee backend. profile may be nil to answer 401.
func backendServer(t *testing.T, profile *model.User) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chatbot/employee/profile/":
			if profile == nil || r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(profile)
		case "/api/chatbot/employee/login/":
			json.NewEncoder(w).Encode(model.LoginResponse{
				Success: true,
				User:    *testUser(),
				Access:  signedToken(t, time.Hour),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLoginWithCredentials(t *testing.T) {
	srv := backendServer(t, nil)
	defer srv.Close()

	store := NewSessionStore(openTestDB(t))
	client := lib.NewApiClient(srv.URL)
	auth := NewAuthService(client, store)

	resp, err := auth.LoginWithCredentials(model.LoginRequest{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("LoginWithCredentials: %v", err)
	}
	if !auth.IsAuthenticated() {
		t.Fatal("session should be established")
	}
	if auth.CurrentUser().Username != "alice" {
		t.Errorf("current user = %+v", auth.CurrentUser())
	}
	if client.Token() != resp.Access {
		t.Error("client should carry the bearer token")
	}

	// Credentials persisted for restore.
	if token, ok := store.LoadToken(); !ok || token != resp.Access {
		t.Error("token should be persisted")
	}
	if _, err := store.LoadUser(); err != nil {
		t.Errorf("user should be persisted: %v", err)
	}
}

func TestCheckAuth_NoCredentials(t *testing.T) {
	store := NewSessionStore(openTestDB(t))
	auth := NewAuthService(lib.NewApiClient("http://127.0.0.1:1"), store)

	if auth.CheckAuth() {
		t.Fatal("no credentials should not restore a session")
	}
}

func TestCheckAuth_BackendUnreachableUsesCache(t *testing.T) {
	store := NewSessionStore(openTestDB(t))
	client := lib.NewApiClient("http://127.0.0.1:1")
	auth := NewAuthService(client, store)

	token := signedToken(t, time.Hour)
	if err := store.SaveCredentials(token, testUser()); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	if !auth.CheckAuth() {
		t.Fatal("cached user should restore the session")
	}
	if auth.CurrentUser().Username != "alice" {
		t.Errorf("current user = %+v", auth.CurrentUser())
	}
	if client.Token() != token {
		t.Error("restored token should be set on the client")
	}
}

func TestCheckAuth_ProfileRefreshOverwritesCache(t *testing.T) {
	fresh := testUser()
	fresh.Employee.FullName = "Alice Renamed"
	srv := backendServer(t, fresh)
	defer srv.Close()

	store := NewSessionStore(openTestDB(t))
	auth := NewAuthService(lib.NewApiClient(srv.URL), store)

	stale := testUser()
	stale.Employee.FullName = "Alice Stale"
	if err := store.SaveCredentials(signedToken(t, time.Hour), stale); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	if !auth.CheckAuth() {
		t.Fatal("restore should succeed")
	}
	if auth.CurrentUser().Employee.FullName != "Alice Renamed" {
		t.Errorf("current user = %+v, want the refreshed profile", auth.CurrentUser())
	}
	cached, err := store.LoadUser()
	if err != nil {
		t.Fatalf("LoadUser: %v", err)
	}
	if cached.Employee.FullName != "Alice Renamed" {
		t.Error("cache should be overwritten with the fresh profile")
	}
}

func TestCheckAuth_RejectedTokenWipesCredentials(t *testing.T) {
	srv := backendServer(t, nil) // profile answers 401
	defer srv.Close()

	store := NewSessionStore(openTestDB(t))
	auth := NewAuthService(lib.NewApiClient(srv.URL), store)

	if err := store.SaveCredentials(signedToken(t, time.Hour), testUser()); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	if auth.CheckAuth() {
		t.Fatal("a rejected token must not restore a session")
	}
	if _, ok := store.LoadToken(); ok {
		t.Error("rejected credentials should be wiped")
	}
}

func TestCheckAuth_ExpiredTokenWipesCredentials(t *testing.T) {
	store := NewSessionStore(openTestDB(t))
	client := lib.NewApiClient("http://127.0.0.1:1")
	auth := NewAuthService(client, store)

	if err := store.SaveCredentials(signedToken(t, -time.Hour), testUser()); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	if auth.CheckAuth() {
		t.Fatal("an expired token must not restore a session")
	}
	if _, ok := store.LoadToken(); ok {
		t.Error("expired credentials should be wiped")
	}
}

func TestCheckAuth_CorruptCachedUserWipesCredentials(t *testing.T) {
	db := openTestDB(t)
	store := NewSessionStore(db)
	auth := NewAuthService(lib.NewApiClient("http://127.0.0.1:1"), store)

	if err := db.Create(&model.StoreEntry{Key: tokenKey, Value: signedToken(t, time.Hour)}).Error; err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := db.Create(&model.StoreEntry{Key: userKey, Value: "{corrupt"}).Error; err != nil {
		t.Fatalf("seed corrupt user: %v", err)
	}

	if auth.CheckAuth() {
		t.Fatal("a corrupt cache must not restore a session")
	}
	if _, ok := store.LoadToken(); ok {
		t.Error("credentials should be wiped on parse failure")
	}
}

func TestResumeWithToken(t *testing.T) {
	srv := backendServer(t, testUser())
	defer srv.Close()

	store := NewSessionStore(openTestDB(t))
	auth := NewAuthService(lib.NewApiClient(srv.URL), store)

	if auth.ResumeWithToken("") {
		t.Fatal("empty token must not resume a session")
	}
	if auth.ResumeWithToken(signedToken(t, -time.Hour)) {
		t.Fatal("expired token must not resume a session")
	}

	if !auth.ResumeWithToken(signedToken(t, time.Hour)) {
		t.Fatal("valid token should resume a session")
	}
	if !auth.IsAuthenticated() {
		t.Error("session should be established")
	}
	if auth.CurrentUser().Username != "alice" {
		t.Errorf("current user = %+v", auth.CurrentUser())
	}
	if _, ok := store.LoadToken(); !ok {
		t.Error("resumed token should be persisted for the next restore")
	}
}

func TestResumeWithToken_RejectedByBackend(t *testing.T) {
	srv := backendServer(t, nil) // profile answers 401
	defer srv.Close()

	store := NewSessionStore(openTestDB(t))
	client := lib.NewApiClient(srv.URL)
	auth := NewAuthService(client, store)

	if auth.ResumeWithToken(signedToken(t, time.Hour)) {
		t.Fatal("a token the backend rejects must not resume a session")
	}
	if auth.IsAuthenticated() {
		t.Error("no session should be established")
	}
	if client.Token() != "" {
		t.Error("rejected token should not stay on the client")
	}
}

func TestTokenService_Expired(t *testing.T) {
	ts := &TokenService{}

	if ts.Expired(signedToken(t, time.Hour)) {
		t.Error("future exp should not read as expired")
	}
	if !ts.Expired(signedToken(t, -time.Minute)) {
		t.Error("past exp should read as expired")
	}
	if !ts.Expired("garbage") {
		t.Error("unparseable token counts as expired")
	}
}

func TestTokenService_ExtractToken(t *testing.T) {
	ts := &TokenService{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ts.ExtractToken(req); got != "" {
		t.Errorf("ExtractToken = %q, want empty", got)
	}
	req.Header.Set("Authorization", "Bearer abc123")
	if got := ts.ExtractToken(req); got != "abc123" {
		t.Errorf("ExtractToken = %q", got)
	}
}
