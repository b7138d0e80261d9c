package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/core/internal/config"
	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/models"
)

type fakeUserRepo struct {
	users map[string]*models.User
}

func (f *fakeUserRepo) GetByID(userID string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUserRepo) Update(u *models.User) error {
	f.users[u.UserID] = u
	return nil
}

func newTrialTestServer(users *fakeUserRepo) *Server {
	return &Server{
		cfg:       &config.Config{TrialDuration: 14 * 24 * time.Hour},
		planTable: entitlements.DefaultPlanTable(),
		users:     users,
	}
}

func performTrialStart(s *Server, userID string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/trial/start", nil)
	c.Set(contextUserIDKey, userID)
	s.trialStartHandler(c)
	return w
}

// S6 — trial start race. Two calls for the same not-yet-started user:
// the first transitions to active, the second observes the new state
// and reports the already_active conflict without altering the trial
// dates a second time.
func TestScenarioS6TrialStartRaceSecondCallObservesAlreadyActive(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{
		"u1": {UserID: "u1", TrialStatus: models.TrialNotStarted},
	}}
	s := newTrialTestServer(users)

	first := performTrialStart(s, "u1")
	require.Equal(t, http.StatusOK, first.Code)

	startedAt := *users.users["u1"].TrialStartedAt
	endsAt := *users.users["u1"].TrialEndsAt

	second := performTrialStart(s, "u1")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "already_active")

	assert.Equal(t, startedAt, *users.users["u1"].TrialStartedAt, "the losing call must not move trialStartedAt")
	assert.Equal(t, endsAt, *users.users["u1"].TrialEndsAt, "the losing call must not move trialEndsAt")
}

func TestTrialStartGrantsTrialToFreshUser(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*models.User{
		"u1": {UserID: "u1", TrialStatus: models.TrialNotStarted},
	}}
	s := newTrialTestServer(users)

	w := performTrialStart(s, "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TrialActive, users.users["u1"].TrialStatus)
	require.NotNil(t, users.users["u1"].TrialEndsAt)
}
