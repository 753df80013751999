package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/task"
)

// --- モック定義 ---

type mockTaskService struct {
	listFn     func(ctx context.Context, userID string) ([]*model.Task, error)
	createFn   func(ctx context.Context, userID string, in task.CreateInput) (*model.Task, error)
	completeFn func(ctx context.Context, userID string, taskID int64) (*model.Task, error)
	deleteFn   func(ctx context.Context, userID string, taskID int64) error
}

func (m *mockTaskService) List(ctx context.Context, userID string) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTaskService) Create(ctx context.Context, userID string, in task.CreateInput) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskService) Complete(ctx context.Context, userID string, taskID int64) (*model.Task, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, userID, taskID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskService) Delete(ctx context.Context, userID string, taskID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, taskID)
	}
	return errors.New("not implemented")
}

var _ TaskServiceInterface = (*mockTaskService)(nil)

// newAuthedRequest は認証済みユーザーIDとパスパラメータを持つリクエストを生成する。
func newAuthedRequest(method, target, body, userID string, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = withSession(ctx, userID)
	}
	return req.WithContext(ctx)
}

func strPtr(s string) *string { return &s }

var fixedTime = time.Date(2025, 10, 27, 9, 30, 0, 0, time.UTC)

// --- テスト ---

func TestTaskHandler_ListTasks_ReturnsJSONArray(t *testing.T) {
	svc := &mockTaskService{
		listFn: func(ctx context.Context, userID string) ([]*model.Task, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return []*model.Task{
				{ID: 2, UserID: userID, Title: "second", Description: strPtr("desc"), ScheduledAt: strPtr("2025-10-27T10:00:00"), CreatedAt: fixedTime, UpdatedAt: fixedTime},
				{ID: 1, UserID: userID, Title: "first", CreatedAt: fixedTime, UpdatedAt: fixedTime},
			}, nil
		},
	}
	h := NewTaskHandler(svc)

	w := httptest.NewRecorder()
	h.ListTasks(w, newAuthedRequest(http.MethodGet, "/api/tasks", "", "user-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	want := []map[string]any{
		{
			"id": float64(2), "title": "second", "description": "desc", "completed": false,
			"scheduledAt": "2025-10-27T10:00:00", "created_at": "2025-10-27T09:30:00Z", "updated_at": "2025-10-27T09:30:00Z",
		},
		{
			"id": float64(1), "title": "first", "description": nil, "completed": false,
			"scheduledAt": nil, "created_at": "2025-10-27T09:30:00Z", "updated_at": "2025-10-27T09:30:00Z",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskHandler_ListTasks_Empty_ReturnsEmptyArray(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	w := httptest.NewRecorder()
	h.ListTasks(w, newAuthedRequest(http.MethodGet, "/api/tasks", "", "user-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestTaskHandler_ListTasks_NoUser_Returns401(t *testing.T) {
	svc := &mockTaskService{
		listFn: func(ctx context.Context, userID string) ([]*model.Task, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewTaskHandler(svc)

	w := httptest.NewRecorder()
	h.ListTasks(w, newAuthedRequest(http.MethodGet, "/api/tasks", "", "", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestTaskHandler_CreateTask_Returns201(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(ctx context.Context, userID string, in task.CreateInput) (*model.Task, error) {
			want := task.CreateInput{Title: "Buy milk", Description: strPtr("2 liters"), ScheduledAt: strPtr("2025-10-27T10:00:00")}
			if diff := cmp.Diff(want, in); diff != "" {
				t.Errorf("input mismatch (-want +got):\n%s", diff)
			}
			return &model.Task{
				ID: 10, UserID: userID, Title: in.Title, Description: in.Description,
				ScheduledAt: in.ScheduledAt, CreatedAt: fixedTime, UpdatedAt: fixedTime,
			}, nil
		},
	}
	h := NewTaskHandler(svc)

	body := `{"title":"Buy milk","description":"2 liters","scheduledAt":"2025-10-27T10:00:00"}`
	w := httptest.NewRecorder()
	h.CreateTask(w, newAuthedRequest(http.MethodPost, "/api/tasks", body, "user-1", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	var got taskResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got.ID != 10 || got.Title != "Buy milk" || got.Completed {
		t.Errorf("task = %+v", got)
	}
	if got.ScheduledAt == nil || *got.ScheduledAt != "2025-10-27T10:00:00" {
		t.Errorf("scheduledAt = %v, want verbatim", got.ScheduledAt)
	}
}

func TestTaskHandler_CreateTask_InvalidBody_Returns400(t *testing.T) {
	longTitle := strings.Repeat("a", 256)
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing title", body: `{"description":"x"}`, want: "Title is required"},
		{name: "empty title", body: `{"title":""}`, want: "Title is required"},
		{name: "empty body", body: ``, want: "Title is required"},
		{name: "title too long", body: `{"title":"` + longTitle + `"}`, want: "Title must be at most 255 characters"},
		{name: "not json", body: `{`, want: "Invalid request body"},
		{name: "title not string", body: `{"title":42}`, want: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTaskService{
				createFn: func(ctx context.Context, userID string, in task.CreateInput) (*model.Task, error) {
					t.Fatal("service should not be called")
					return nil, nil
				},
			}
			h := NewTaskHandler(svc)

			w := httptest.NewRecorder()
			h.CreateTask(w, newAuthedRequest(http.MethodPost, "/api/tasks", tt.body, "user-1", nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			e := decodeError(t, strings.NewReader(w.Body.String()))
			if e.Error != tt.want {
				t.Errorf("error = %q, want %q", e.Error, tt.want)
			}
		})
	}
}

func TestTaskHandler_CreateTask_BodyTooLarge_Returns413(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(ctx context.Context, userID string, in task.CreateInput) (*model.Task, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewTaskHandler(svc)

	body := `{"title":"` + strings.Repeat("a", maxRequestBodyBytes+1) + `"}`
	w := httptest.NewRecorder()
	h.CreateTask(w, newAuthedRequest(http.MethodPost, "/api/tasks", body, "user-1", nil))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
	e := decodeError(t, strings.NewReader(w.Body.String()))
	if e.Error != "Request body too large" || e.Code != model.ErrCodePayloadTooLarge {
		t.Errorf("error = %+v", e)
	}
}

func TestTaskHandler_CreateTask_ServiceValidationError_Returns400(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(ctx context.Context, userID string, in task.CreateInput) (*model.Task, error) {
			return nil, model.NewValidationError("Title is required")
		},
	}
	h := NewTaskHandler(svc)

	w := httptest.NewRecorder()
	h.CreateTask(w, newAuthedRequest(http.MethodPost, "/api/tasks", `{"title":"   "}`, "user-1", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTaskHandler_CompleteTask(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		serviceErr error
		wantStatus int
	}{
		{name: "completed", id: "5", wantStatus: http.StatusOK},
		{name: "not found", id: "5", serviceErr: model.NewTaskNotFoundError(5), wantStatus: http.StatusNotFound},
		{name: "storage error", id: "5", serviceErr: model.NewStorageUnavailableError(), wantStatus: http.StatusInternalServerError},
		{name: "non integer id", id: "abc", wantStatus: http.StatusBadRequest},
		{name: "zero id", id: "0", wantStatus: http.StatusBadRequest},
		{name: "negative id", id: "-3", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockTaskService{
				completeFn: func(ctx context.Context, userID string, taskID int64) (*model.Task, error) {
					called = true
					if taskID != 5 {
						t.Errorf("taskID = %d, want 5", taskID)
					}
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &model.Task{ID: taskID, UserID: userID, Title: "t", Completed: true, CreatedAt: fixedTime, UpdatedAt: fixedTime}, nil
				},
			}
			h := NewTaskHandler(svc)

			w := httptest.NewRecorder()
			h.CompleteTask(w, newAuthedRequest(http.MethodPut, "/api/tasks/"+tt.id+"/complete", "", "user-1", map[string]string{"id": tt.id}))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusBadRequest && called {
				t.Error("service should not be called for an invalid id")
			}
			if tt.wantStatus == http.StatusOK {
				var got taskResponse
				if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
					t.Fatalf("failed to decode: %v", err)
				}
				if !got.Completed {
					t.Error("completed should be true")
				}
			}
		})
	}
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		serviceErr error
		wantStatus int
	}{
		{name: "deleted", id: "9", wantStatus: http.StatusOK},
		{name: "not found", id: "9", serviceErr: model.NewTaskNotFoundError(9), wantStatus: http.StatusNotFound},
		{name: "non integer id", id: "1.5", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTaskService{
				deleteFn: func(ctx context.Context, userID string, taskID int64) error {
					return tt.serviceErr
				},
			}
			h := NewTaskHandler(svc)

			w := httptest.NewRecorder()
			h.DeleteTask(w, newAuthedRequest(http.MethodDelete, "/api/tasks/"+tt.id, "", "user-1", map[string]string{"id": tt.id}))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				var got deleteTaskResponse
				if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
					t.Fatalf("failed to decode: %v", err)
				}
				if got != (deleteTaskResponse{Success: true, ID: 9}) {
					t.Errorf("body = %+v", got)
				}
			}
		})
	}
}

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeValidationFailed, http.StatusBadRequest},
		{model.ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{model.ErrCodeCSRFFailed, http.StatusForbidden},
		{model.ErrCodeAuthenticationFailed, http.StatusUnauthorized},
		{model.ErrCodeUnauthorized, http.StatusUnauthorized},
		{model.ErrCodeTaskNotFound, http.StatusNotFound},
		{model.ErrCodeStorageUnavailable, http.StatusInternalServerError},
		{model.ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code}); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
