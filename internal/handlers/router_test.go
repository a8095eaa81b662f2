package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
	contextutils "challengeapp/internal/utils"
)

type fakeUserService struct {
	users map[string]*models.User
}

func (f *fakeUserService) CreateUser(_ context.Context, _, _, _, _ string, _ []string) (*models.User, error) {
	panic("not used in this test")
}

func (f *fakeUserService) AuthenticateUser(_ context.Context, username, password string) (*models.User, error) {
	u, ok := f.users[username]
	if !ok || password != "s3cret" {
		return nil, contextutils.ErrInvalidCredentials
	}
	return u, nil
}

func (f *fakeUserService) GetUserByID(_ context.Context, id int) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, contextutils.ErrRecordNotFound
}

func (f *fakeUserService) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, contextutils.ErrRecordNotFound
}

func (f *fakeUserService) ListUsers(_ context.Context) ([]models.User, error) {
	panic("not used in this test")
}

func (f *fakeUserService) UpdateSubscriptions(_ context.Context, userID int, subscriptions []string) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.Subscriptions = strings.Join(subscriptions, ",")
			return nil
		}
	}
	return contextutils.ErrRecordNotFound
}

func (f *fakeUserService) UpdatePassword(_ context.Context, _ int, _ string) error {
	panic("not used in this test")
}

func (f *fakeUserService) DeleteUser(_ context.Context, _ int) error {
	panic("not used in this test")
}

type fakeChallengeService struct {
	challenges map[string][]models.Challenge
}

func (f *fakeChallengeService) CreateChallenge(_ context.Context, matiere, question, date string) (*models.Challenge, error) {
	c := models.Challenge{ID: 99, Ref: "NEW-099", Question: question, Matiere: matiere, Date: date}
	f.challenges[matiere] = append(f.challenges[matiere], c)
	return &c, nil
}

func (f *fakeChallengeService) ListChallenges(_ context.Context, matiere string) ([]models.Challenge, error) {
	return f.challenges[matiere], nil
}

func (f *fakeChallengeService) GetChallengeByRef(_ context.Context, _ string) (*models.Challenge, error) {
	panic("not used in this test")
}

func (f *fakeChallengeService) BackfillRefs(_ context.Context) (int, error) {
	panic("not used in this test")
}

type fakeMatiereService struct{}

func (f *fakeMatiereService) CreateMatiere(_ context.Context, name, _, granularite string) (*models.Matiere, error) {
	return &models.Matiere{ID: 1, Name: name, Granularite: granularite}, nil
}

func (f *fakeMatiereService) GetMatiere(_ context.Context, _ string) (*models.Matiere, error) {
	panic("not used in this test")
}

func (f *fakeMatiereService) ListMatieres(_ context.Context) ([]models.Matiere, error) {
	return []models.Matiere{{ID: 1, Name: "maths", Granularite: "semaine"}}, nil
}

func (f *fakeMatiereService) SetGranularity(_ context.Context, _, _ string) error {
	panic("not used in this test")
}

func (f *fakeMatiereService) GranularityFor(_ context.Context, _ string) (string, error) {
	return "semaine", nil
}

type fakeDailyChallengeService struct {
	challenges map[string]*models.Challenge
}

func (f *fakeDailyChallengeService) CurrentForMatiere(_ context.Context, matiere string, _ time.Time) (*models.Challenge, error) {
	return f.challenges[matiere], nil
}

func (f *fakeDailyChallengeService) ChallengeOfTheDay(_ context.Context, user *models.User, _ time.Time) (*scheduler.DailyPick, error) {
	for _, matiere := range scheduler.ParseSubscriptions(user.Subscriptions) {
		if ch, ok := f.challenges[matiere]; ok {
			return &scheduler.DailyPick{Challenge: ch, Matiere: matiere, Available: []string{matiere}}, nil
		}
	}
	return nil, nil
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.SessionSecret = "test-session-secret"
	cfg.Server.Debug = true
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	logger := observability.NewLogger(nil)

	users := &fakeUserService{users: map[string]*models.User{
		"alice": {ID: 1, Username: "alice", Role: "student", Subscriptions: "maths"},
		"root":  {ID: 2, Username: "root", Role: "admin"},
	}}
	challenges := &fakeChallengeService{challenges: map[string][]models.Challenge{
		"maths": {{ID: 1, Ref: "MAT-001", Question: "1+1?", Matiere: "maths", Date: "2024-01-01"}},
	}}
	daily := &fakeDailyChallengeService{challenges: map[string]*models.Challenge{
		"maths": {ID: 1, Ref: "MAT-001", Question: "1+1?", Matiere: "maths", Date: "2024-01-01"},
	}}

	return NewRouter(cfg, users, challenges, &fakeMatiereService{}, daily, logger)
}

func login(t *testing.T, r *gin.Engine, username string) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"`+username+`","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func doRequest(r *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doRequest(testRouter(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginBadCredentials(t *testing.T) {
	r := testRouter()
	w := doRequest(r, http.MethodPost, "/v1/auth/login", `{"username":"alice","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDailyRequiresAuth(t *testing.T) {
	w := doRequest(testRouter(), http.MethodGet, "/v1/daily", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDailyChallengeFlow(t *testing.T) {
	r := testRouter()
	cookies := login(t, r, "alice")

	w := doRequest(r, http.MethodGet, "/v1/daily", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Available bool   `json:"available"`
		Matiere   string `json:"matiere"`
		Challenge struct {
			Ref string `json:"ref"`
		} `json:"challenge"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
	assert.Equal(t, "maths", resp.Matiere)
	assert.Equal(t, "MAT-001", resp.Challenge.Ref)
}

func TestCurrentChallengeForSubject(t *testing.T) {
	r := testRouter()
	cookies := login(t, r, "alice")

	w := doRequest(r, http.MethodGet, "/v1/challenges/maths/current", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":true`)

	// Subject without content: a normal response, not an error.
	w = doRequest(r, http.MethodGet, "/v1/challenges/histoire/current", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":false`)
}

func TestCreateChallengeRequiresAdmin(t *testing.T) {
	r := testRouter()
	body := `{"matiere":"maths","question":"2+2?","date":"2024-01-02"}`

	student := login(t, r, "alice")
	w := doRequest(r, http.MethodPost, "/v1/challenges", body, student)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := login(t, r, "root")
	w = doRequest(r, http.MethodPost, "/v1/challenges", body, admin)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSubscriptionsRoundTrip(t *testing.T) {
	r := testRouter()
	cookies := login(t, r, "alice")

	w := doRequest(r, http.MethodPut, "/v1/subscriptions", `{"subscriptions":["maths","histoire"]}`, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/v1/subscriptions", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "histoire")
}
