package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medtrain_backend/internal/config"
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/repository"
	"medtrain_backend/internal/service"
	"medtrain_backend/internal/util"
	"medtrain_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubLearner struct{}

func (stubLearner) Snapshot(ctx context.Context, userID, courseID uint) (service.LearnerSnapshot, error) {
	return service.LearnerSnapshot{Ability: 0.5, Mastery: 0.5}, nil
}

type stubScheduler struct{ names []string }

func (s *stubScheduler) Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error {
	s.names = append(s.names, name)
	return nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	user   *model.User
	course *model.Course
	mcq    *model.Mcq
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent), TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	ts := &testServer{db: db}
	ts.user = &model.User{Name: "Imane", Email: "imane@hospital.test", Role: model.Student}
	require.NoError(t, db.Create(ts.user).Error)
	ts.course = &model.Course{Title: "Neurology"}
	require.NoError(t, db.Create(ts.course).Error)
	ts.mcq = &model.Mcq{
		CourseID:      ts.course.ID,
		Type:          model.McqTypeQCS,
		Difficulty:    model.DifficultyMedium,
		EstimatedTime: 60,
		Content:       "Which artery supplies Broca's area?",
		Options: []model.McqOption{
			{Position: 1, Content: "Middle cerebral artery", IsCorrect: true},
			{Position: 2, Content: "Posterior cerebral artery"},
		},
	}
	require.NoError(t, db.Create(ts.mcq).Error)

	sessionRepo := repository.NewTrainingSessionRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	mcqRepo := repository.NewMcqRepository(db)
	modeRepo := repository.NewModeRepository(db)
	scheduler := &stubScheduler{}

	resolver := service.NewSessionParameterResolver(modeRepo, service.NewAdaptiveParameterEngine(stubLearner{}))
	selector := service.NewQuestionSelector(mcqRepo, stubLearner{}, scheduler)
	thresholds := service.NewSettingsThresholdProvider(repository.NewEvaluationSettingRepository(db), nil,
		config.EvaluationConfig{CorrectThreshold: 0.5})
	sessions := service.NewTrainingSessionService(db, sessionRepo, progressRepo,
		repository.NewCourseRepository(db), mcqRepo, repository.NewUserRepository(db),
		modeRepo, resolver, selector, service.NewSessionEvaluator(progressRepo, thresholds), scheduler,
		map[string]int{"easy": 5, "medium": 10, "hard": 15})

	sc := NewTrainingSessionController(sessions)
	mc := NewModeController(service.NewModeService(modeRepo))

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Set("user", &util.Claims{UserID: ts.user.ID, Role: ts.user.Role})
		}
		c.Next()
	})
	api.POST("/training-sessions", sc.Create)
	api.GET("/training-sessions/:id", sc.Get)
	api.DELETE("/training-sessions/:id", sc.Delete)
	api.GET("/training-sessions/:id/questions", sc.NextQuestions)
	api.POST("/training-sessions/:id/attempts", sc.SubmitAttempt)
	api.POST("/training-sessions/:id/complete", sc.Complete)
	api.GET("/mode", mc.Get)
	api.PUT("/mode", mc.Update)

	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func TestTrainingSessionHTTPFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/training-sessions", gin.H{
		"title":               "Stroke review",
		"course":              ts.course.ID,
		"qcs":                 true,
		"number_of_questions": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session model.TrainingSession
	decodeData(t, w, &session)
	assert.Equal(t, model.SessionPending, session.Status)
	assert.Equal(t, 1, session.NumberOfQuestions)

	base := fmt.Sprintf("/api/training-sessions/%d", session.ID)

	w = ts.do(t, http.MethodGet, base+"/questions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sel struct {
		Data    []map[string]any `json:"data"`
		IsFinal bool             `json:"is_final"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sel))
	require.Len(t, sel.Data, 1)
	assert.True(t, sel.IsFinal)
	assert.NotContains(t, w.Body.String(), "is_correct")

	correct := ts.mcq.Options[0].ID
	w = ts.do(t, http.MethodPost, base+"/attempts", gin.H{
		"mcq_id":              ts.mcq.ID,
		"selected_option_ids": []uint{correct},
		"time_spent":          40,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, base+"/attempts", gin.H{"mcq_id": ts.mcq.ID, "skipped": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, base+"/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = ts.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var metrics service.Metrics
	decodeData(t, w, &metrics)
	assert.Equal(t, 1, metrics.CorrectAnswers)
	assert.Equal(t, 10, metrics.XPEarned)
	assert.Equal(t, 40, metrics.TimeSpent)

	w = ts.do(t, http.MethodPost, base+"/attempts", gin.H{"mcq_id": ts.mcq.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrainingSessionHTTPErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad id", http.MethodGet, "/api/training-sessions/abc", nil, http.StatusBadRequest},
		{"missing course", http.MethodPost, "/api/training-sessions", gin.H{"title": "x"}, http.StatusBadRequest},
		{"unknown course", http.MethodPost, "/api/training-sessions", gin.H{"course": 999}, http.StatusNotFound},
		{"past schedule", http.MethodPost, "/api/training-sessions", gin.H{
			"course":       ts.course.ID,
			"status":       "SCHEDULED",
			"scheduled_at": time.Now().Add(-time.Hour),
		}, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/training-sessions/404/questions", nil, http.StatusNotFound},
		{"invalid definer", http.MethodPut, "/api/mode", gin.H{"qcm": "ROBOT"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestTrainingSessionRequiresUser(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/training-sessions/1", nil)
	req.Header.Set("X-Anonymous", "1")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestModeHTTP(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/mode", gin.H{"difficulty": "ASSISTANT", "time_limit": "ORIGINAL"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/mode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mode model.Mode
	decodeData(t, w, &mode)
	assert.Equal(t, model.DefinerAssistant, mode.Difficulty)
	assert.Equal(t, model.DefinerOriginal, mode.TimeLimit)
	assert.Equal(t, model.DefinerUser, mode.QCM)
}
