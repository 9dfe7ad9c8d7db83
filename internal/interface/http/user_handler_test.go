package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearsolutions/users-api/internal/application"
	"github.com/clearsolutions/users-api/internal/domain/entity"
	"github.com/clearsolutions/users-api/internal/domain/repository"
	"github.com/clearsolutions/users-api/pkg/helpers"
	"github.com/clearsolutions/users-api/pkg/response"
	"github.com/clearsolutions/users-api/pkg/validation"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID   map[string]*entity.User
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*entity.User)}
}

func (r *stubUserRepo) Save(_ context.Context, u *entity.User) (*entity.User, error) {
	for _, other := range r.byID {
		if other.Email == u.Email && other.ID != u.ID {
			return nil, repository.ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		r.nextID++
		u.ID = newTestID(r.nextID)
	}
	clone := *u
	r.byID[u.ID] = &clone
	return u, nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) GetAllByBirthDateRange(_ context.Context, from, to time.Time, pageIndex, pageSize int) ([]*entity.User, error) {
	var matched []*entity.User
	for _, u := range r.byID {
		if u.BirthDate.Before(from) || u.BirthDate.After(to) {
			continue
		}
		clone := *u
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	skip := pageIndex * pageSize
	if skip >= len(matched) {
		return []*entity.User{}, nil
	}
	end := skip + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], nil
}

// newTestID produces deterministic, valid UUID strings.
func newTestID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

// ---------------------------------------------------------------------------
// Router fixture
// ---------------------------------------------------------------------------

func setupRouter(repo *stubUserRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	clock := helpers.FixedClock{T: testNow}
	svc := application.NewService(repo, validation.New(18, clock), nil)
	h := NewUserHandler(svc, nil, clock)

	r := gin.New()
	users := r.Group("/api/v1/users")
	users.GET("", h.GetUsers)
	users.POST("", h.CreateUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not valid JSON: %v (%s)", err, w.Body.String())
	}
	return body
}

func expectBadRequest(t *testing.T, w *httptest.ResponseRecorder, wantMessage string) {
	t.Helper()
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%s)", w.Code, w.Body.String())
	}
	body := decodeError(t, w)
	if wantMessage != "" && body.Message != wantMessage {
		t.Errorf("message = %q, want %q", body.Message, wantMessage)
	}
	if body.HTTPStatus != "BAD_REQUEST" {
		t.Errorf("httpStatus = %q, want BAD_REQUEST", body.HTTPStatus)
	}
	if !body.Date.Equal(testNow) {
		t.Errorf("date = %v, want the injected clock time %v", body.Date, testNow)
	}
}

func seed(repo *stubUserRepo, email string, birth time.Time) *entity.User {
	u := &entity.User{
		Email:     email,
		FirstName: "Jane",
		LastName:  "Doe",
		BirthDate: birth,
	}
	saved, _ := repo.Save(context.Background(), u)
	return saved
}

const validBody = `{
	"email": "jane@example.com",
	"firstName": "Jane",
	"lastName": "Doe",
	"birthDate": "1990-03-02",
	"phoneNumber": "123456789"
}`

// ---------------------------------------------------------------------------
// POST /api/v1/users
// ---------------------------------------------------------------------------

func TestCreateUser_Created(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", validBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.ID == "" {
		t.Fatalf("expected {\"id\": ...}, got %s", w.Body.String())
	}
	if _, err := repo.GetByID(context.Background(), body.ID); err != nil {
		t.Errorf("created user not found in store: %v", err)
	}
}

func TestCreateUser_ValidationFailure(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users",
		`{"email": "nope", "firstName": "Jane", "lastName": "Doe", "birthDate": "2010-01-01"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeError(t, w)
	if !strings.Contains(body.Message, "email") || !strings.Contains(body.Message, "birthDate") {
		t.Errorf("aggregated message should name every failed field, got %q", body.Message)
	}
	if body.HTTPStatus != "BAD_REQUEST" {
		t.Errorf("httpStatus = %q", body.HTTPStatus)
	}
}

func TestCreateUser_MalformedBody(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", `{"email": `)
	expectBadRequest(t, w, "malformed request body")
}

func TestCreateUser_BadDateFormat(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users",
		`{"email": "jane@example.com", "firstName": "Jane", "lastName": "Doe", "birthDate": "02-03-1990"}`)
	expectBadRequest(t, w, "birthDate must be a valid date in format YYYY-MM-DD")
}

func TestCreateUser_DuplicateEmailConflict(t *testing.T) {
	repo := newStubUserRepo()
	seed(repo, "jane@example.com", time.Date(1990, time.March, 2, 0, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPost, "/api/v1/users", validBody)
	expectBadRequest(t, w, "User with email jane@example.com already exist")
}

// ---------------------------------------------------------------------------
// PUT /api/v1/users/:id
// ---------------------------------------------------------------------------

func TestUpdateUser_SuccessCarriesSelfDeleteLink(t *testing.T) {
	repo := newStubUserRepo()
	u := seed(repo, "jane@example.com", time.Date(1990, time.March, 2, 0, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPut, "/api/v1/users/"+u.ID, `{"firstName": "Janet"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	var body struct {
		Links map[string]response.Link `json:"_links"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	link, ok := body.Links["selfDelete"]
	if !ok {
		t.Fatalf("missing selfDelete link in %s", w.Body.String())
	}
	if link.Href != "/api/v1/users/"+u.ID || link.Type != http.MethodDelete {
		t.Errorf("selfDelete = %+v", link)
	}

	after, _ := repo.GetByID(context.Background(), u.ID)
	if after.FirstName != "Janet" || after.LastName != "Doe" {
		t.Errorf("merge went wrong: %+v", after)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	id := "ffffffff-ffff-ffff-ffff-ffffffffffff"
	w := doJSON(t, r, http.MethodPut, "/api/v1/users/"+id, `{"firstName": "Janet"}`)
	expectBadRequest(t, w, "User with id '"+id+"' not found")
}

func TestUpdateUser_InvalidID(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPut, "/api/v1/users/not-a-uuid", `{"firstName": "Janet"}`)
	expectBadRequest(t, w, "id must be a valid UUID")
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	repo := newStubUserRepo()
	u := seed(repo, "jane@example.com", time.Date(1990, time.March, 2, 0, 0, 0, 0, time.UTC))
	seed(repo, "taken@example.com", time.Date(1991, time.April, 3, 0, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodPut, "/api/v1/users/"+u.ID, `{"email": "taken@example.com"}`)
	expectBadRequest(t, w, "User with email taken@example.com already exist")

	after, _ := repo.GetByID(context.Background(), u.ID)
	if after.Email != "jane@example.com" {
		t.Errorf("record modified despite conflict: %+v", after)
	}
}

// ---------------------------------------------------------------------------
// DELETE /api/v1/users/:id
// ---------------------------------------------------------------------------

func TestDeleteUser_IdempotentOK(t *testing.T) {
	repo := newStubUserRepo()
	u := seed(repo, "jane@example.com", time.Date(1990, time.March, 2, 0, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodDelete, "/api/v1/users/"+u.ID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("delete #%d: status = %d, want 200", i+1, w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("delete #%d: body should be empty, got %s", i+1, w.Body.String())
		}
	}
}

func TestDeleteUser_InvalidID(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/users/nope", "")
	expectBadRequest(t, w, "id must be a valid UUID")
}

// ---------------------------------------------------------------------------
// GET /api/v1/users
// ---------------------------------------------------------------------------

func TestGetUsers_ListWithLinks(t *testing.T) {
	repo := newStubUserRepo()
	seed(repo, "a@example.com", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC))
	seed(repo, "b@example.com", time.Date(2000, time.February, 1, 0, 0, 0, 0, time.UTC))
	seed(repo, "c@example.com", time.Date(2000, time.June, 1, 0, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users?from=2000-01-01&to=2000-03-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	var list []struct {
		ID        string                   `json:"id"`
		Email     string                   `json:"email"`
		BirthDate string                   `json:"birthDate"`
		Links     map[string]response.Link `json:"_links"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("bad body: %v (%s)", err, w.Body.String())
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 users in range, got %d", len(list))
	}
	for _, item := range list {
		link, ok := item.Links["selfDelete"]
		if !ok {
			t.Errorf("user %s has no selfDelete link", item.ID)
			continue
		}
		if link.Href != "/api/v1/users/"+item.ID || link.Type != http.MethodDelete {
			t.Errorf("selfDelete = %+v", link)
		}
	}
}

func TestGetUsers_EmptyRangeIsEmptyArray(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users?from=2000-01-01&to=2000-03-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %s", w.Body.String())
	}
}

func TestGetUsers_FromAfterTo(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users?from=2000-05-01&to=2000-01-01", "")
	expectBadRequest(t, w, "From date is after to date")
}

func TestGetUsers_MissingRequiredParams(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users?to=2000-01-01", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := decodeError(t, w).Message; !strings.Contains(msg, "from") {
		t.Errorf("message should name the missing parameter, got %q", msg)
	}
}

func TestGetUsers_BadDate(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users?from=01/05/2000&to=2000-06-01", "")
	expectBadRequest(t, w, "from must be a valid date in format YYYY-MM-DD")
}

func TestGetUsers_PageSizeTooLarge(t *testing.T) {
	repo := newStubUserRepo()
	r := setupRouter(repo)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users?from=2000-01-01&to=2000-06-01&pageSize=501", "")
	expectBadRequest(t, w, "pageSize must be at most 500")
}

func TestGetUsers_PaginationDefaultsApply(t *testing.T) {
	repo := newStubUserRepo()
	for i := 0; i < 3; i++ {
		seed(repo, newTestID(i+100)+"@example.com", time.Date(2000, time.January, 1+i, 0, 0, 0, 0, time.UTC))
	}
	r := setupRouter(repo)

	// no pageIndex/pageSize: defaults 0 and 50 must kick in
	w := doJSON(t, r, http.MethodGet, "/api/v1/users?from=2000-01-01&to=2000-12-31", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	var list []json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 3 {
		t.Fatalf("expected 3 users with default paging, got %d (%v)", len(list), err)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/users?from=2000-01-01&to=2000-12-31&pageIndex=1&pageSize=2", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected 1 user on page 1 with pageSize 2, got %d (%v)", len(list), err)
	}
}
