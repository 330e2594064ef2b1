package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/whisper/comments/internal/api"
	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/featured"
	"github.com/whisper/comments/internal/moderation"
	"github.com/whisper/comments/internal/settings"
)

// memoryViews is an in-process ViewService.
type memoryViews struct {
	mu    sync.Mutex
	lists map[string][]featured.Item
}

func (m *memoryViews) List(_ context.Context, v featured.View, assetID string) ([]featured.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]featured.Item{}, m.lists[v.Key(assetID)]...), nil
}

func (m *memoryViews) Add(_ context.Context, v featured.View, assetID string, it featured.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[v.Key(assetID)] = featured.InsertSorted(m.lists[v.Key(assetID)], it, v.Less)
	return nil
}

func (m *memoryViews) Delete(_ context.Context, v featured.View, assetID, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[v.Key(assetID)] = featured.Remove(m.lists[v.Key(assetID)], commentID)
	return nil
}

type testServer struct {
	router *gin.Engine
	store  *comment.MemoryStore
}

func setupTestRouter(t *testing.T, s moderation.Settings) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := comment.NewMemoryStore()
	source := settings.NewStatic(s)
	views := &memoryViews{lists: map[string][]featured.Item{}}
	editor := comment.NewEditor(store, source, comment.DefaultConfig(), zerolog.Nop())

	services := &api.Services{
		Comments: editor,
		Settings: source,
		Views:    views,
		Loader:   store,
		Checks: map[string]func(context.Context) error{
			"store": func(context.Context) error { return nil },
		},
	}

	return &testServer{
		router: api.NewRouter(services, zerolog.Nop()),
		store:  store,
	}
}

type commentResponse struct {
	Comment *comment.Comment `json:"comment"`
	Errors  []struct {
		Code           string `json:"code"`
		TranslationKey string `json:"translation_key"`
	} `json:"errors"`
}

func (ts *testServer) do(t *testing.T, method, path, user string, body any) (*httptest.ResponseRecorder, commentResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp commentResponse
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func (ts *testServer) publish(t *testing.T, user, body string) *comment.Comment {
	t.Helper()
	w, resp := ts.do(t, http.MethodPost, "/v1/comments", user, map[string]string{
		"asset_id": "asset-1",
		"body":     body,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("publish status = %d, body = %s", w.Code, w.Body.String())
	}
	return resp.Comment
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
}

func TestHealthEndpoint_Unhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := api.NewRouter(&api.Services{
		Checks: map[string]func(context.Context) error{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("go_goroutines")) {
		t.Error("Expected Prometheus exposition output")
	}
}

func TestPublishAndEdit(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())

	created := ts.publish(t, "user-1", "hello there!")
	if created.Status != moderation.StatusNone {
		t.Fatalf("created status = %s, want NONE", created.Status)
	}

	w, resp := ts.do(t, http.MethodPatch, "/v1/comments/"+created.ID, "user-1", map[string]string{
		"body": "hello there, again!",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(resp.Errors) != 0 {
		t.Errorf("errors = %v, want none", resp.Errors)
	}
	if resp.Comment.Body != "hello there, again!" {
		t.Errorf("body = %q", resp.Comment.Body)
	}

	got := make([]string, len(resp.Comment.BodyHistory))
	for i, h := range resp.Comment.BodyHistory {
		got[i] = h.Body
	}
	if diff := cmp.Diff([]string{"hello there!", "hello there!"}, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestPublish_RequiresUser(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())

	w, _ := ts.do(t, http.MethodPost, "/v1/comments", "", map[string]string{
		"asset_id": "asset-1",
		"body":     "hi",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if ts.store.Len() != 0 {
		t.Errorf("store has %d comments, want 0", ts.store.Len())
	}
}

func TestPublish_Errors(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantKey    string
	}{
		{"missing asset", map[string]string{"body": "hi"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"blank body", map[string]string{"asset_id": "a", "body": "   "}, http.StatusBadRequest, "COMMENT_BODY_INVALID"},
		{"malformed json", "not an object", http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := ts.do(t, http.MethodPost, "/v1/comments", "user-1", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if len(resp.Errors) != 1 || resp.Errors[0].TranslationKey != tt.wantKey {
				t.Errorf("errors = %+v, want key %s", resp.Errors, tt.wantKey)
			}
		})
	}
}

func TestEdit_Errors(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())
	created := ts.publish(t, "user-1", "hello there!")

	tests := []struct {
		name       string
		id         string
		user       string
		body       string
		wantStatus int
		wantCode   string
		wantKey    string
		wantPrev   bool
	}{
		{"not found", "missing", "user-1", "x", http.StatusNotFound, "NOT_FOUND", "COMMENT_NOT_FOUND", false},
		{"other user", created.ID, "user-2", "x", http.StatusForbidden, "FORBIDDEN", "NOT_AUTHORIZED", false},
		{"unchanged body", created.ID, "user-1", "hello there!", http.StatusUnprocessableEntity, "NO_OP_EDIT", "EDIT_NO_CHANGE", true},
		{"empty body", created.ID, "user-1", "", http.StatusBadRequest, "INVALID_BODY", "COMMENT_BODY_INVALID", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := ts.do(t, http.MethodPatch, "/v1/comments/"+tt.id, tt.user, map[string]string{"body": tt.body})
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if len(resp.Errors) != 1 {
				t.Fatalf("errors = %+v, want exactly one", resp.Errors)
			}
			if resp.Errors[0].Code != tt.wantCode || resp.Errors[0].TranslationKey != tt.wantKey {
				t.Errorf("error = %+v, want %s/%s", resp.Errors[0], tt.wantCode, tt.wantKey)
			}
			if got := resp.Comment != nil; got != tt.wantPrev {
				t.Errorf("comment present = %v, want %v", got, tt.wantPrev)
			}
		})
	}

	stored, err := ts.store.Load(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stored.Version != created.Version {
		t.Errorf("version = %d, want %d", stored.Version, created.Version)
	}
}

func TestSetStatusThenEditKeepsAcceptance(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())
	created := ts.publish(t, "user-1", "hello there!")

	w, resp := ts.do(t, http.MethodPut, "/v1/comments/"+created.ID+"/status", "mod-1", map[string]string{
		"status": "ACCEPTED",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp.Comment.Status != moderation.StatusAccepted {
		t.Fatalf("status = %s, want ACCEPTED", resp.Comment.Status)
	}

	_, resp = ts.do(t, http.MethodPatch, "/v1/comments/"+created.ID, "user-1", map[string]string{"body": "edited"})
	if resp.Comment == nil || resp.Comment.Status != moderation.StatusAccepted {
		t.Errorf("edited comment = %+v, want ACCEPTED", resp.Comment)
	}
}

func TestSetStatus_Invalid(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())
	created := ts.publish(t, "user-1", "hello there!")

	w, _ := ts.do(t, http.MethodPut, "/v1/comments/"+created.ID+"/status", "mod-1", map[string]string{
		"status": "MAYBE",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())

	update := moderation.Settings{
		Mode:     moderation.ModePost,
		Wordlist: moderation.Wordlist{Banned: []string{"bad"}},
	}
	w, _ := ts.do(t, http.MethodPut, "/v1/settings/moderation", "admin", update)
	if w.Code != http.StatusOK {
		t.Fatalf("put settings = %d, body = %s", w.Code, w.Body.String())
	}

	w, _ = ts.do(t, http.MethodGet, "/v1/settings/moderation", "", nil)
	var got moderation.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(update, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	created := ts.publish(t, "user-1", "a bad word")
	if created.Status != moderation.StatusRejected {
		t.Errorf("status = %s, want REJECTED", created.Status)
	}

	w, _ = ts.do(t, http.MethodPut, "/v1/settings/moderation", "admin", map[string]string{"moderation": "SOMETIMES"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid mode status = %d, want 400", w.Code)
	}
}

func TestFeatureAndUnfeature(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())
	first := ts.publish(t, "user-1", "first")
	second := ts.publish(t, "user-2", "second")

	for _, id := range []string{first.ID, second.ID} {
		w, _ := ts.do(t, http.MethodPost, "/v1/assets/asset-1/featured/"+id, "mod-1", nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("feature %s = %d, body = %s", id, w.Code, w.Body.String())
		}
	}

	list := func() []string {
		req := httptest.NewRequest(http.MethodGet, "/v1/assets/asset-1/featured", nil)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		var body struct {
			Items []featured.Item `json:"items"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		out := make([]string, len(body.Items))
		for i, it := range body.Items {
			out[i] = it.CommentID
		}
		return out
	}

	got := list()
	if len(got) != 2 {
		t.Fatalf("featured = %v, want 2 entries", got)
	}

	w, _ := ts.do(t, http.MethodDelete, "/v1/assets/asset-1/featured/"+first.ID, "mod-1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unfeature = %d", w.Code)
	}
	if diff := cmp.Diff([]string{second.ID}, list()); diff != "" {
		t.Errorf("featured mismatch (-want +got):\n%s", diff)
	}
}

func TestListFeatured_IgnoresUsers(t *testing.T) {
	ts := setupTestRouter(t, moderation.DefaultSettings())
	mine := ts.publish(t, "user-1", "first")
	theirs := ts.publish(t, "troll", "second")

	for _, id := range []string{mine.ID, theirs.ID} {
		if w, _ := ts.do(t, http.MethodPost, "/v1/assets/asset-1/featured/"+id, "mod-1", nil); w.Code != http.StatusNoContent {
			t.Fatalf("feature %s = %d", id, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/assets/asset-1/featured?ignore=troll,%20nobody", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var body struct {
		Items []featured.Item `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].CommentID != mine.ID || body.Items[0].AuthorID != "user-1" {
		t.Errorf("items = %+v, want only %s by user-1", body.Items, mine.ID)
	}
}

func TestFeature_Refusals(t *testing.T) {
	ts := setupTestRouter(t, moderation.Settings{
		Mode:     moderation.ModePost,
		Wordlist: moderation.Wordlist{Banned: []string{"bad"}},
	})
	rejected := ts.publish(t, "user-1", "bad")
	visible := ts.publish(t, "user-1", "fine")

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"unknown comment", "/v1/assets/asset-1/featured/missing", http.StatusNotFound},
		{"wrong asset", "/v1/assets/asset-2/featured/" + visible.ID, http.StatusNotFound},
		{"hidden comment", "/v1/assets/asset-1/featured/" + rejected.ID, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := ts.do(t, http.MethodPost, tt.path, "mod-1", nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
