package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"challengeapp/internal/observability"
)

func validationRouter(schema string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/t", ValidateRequestBody(schema, observability.NewLogger(nil)), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestValidateRequestBody(t *testing.T) {
	tests := []struct {
		name       string
		schema     string
		body       string
		wantStatus int
	}{
		{name: "valid login", schema: "login", body: `{"username":"alice","password":"s3cret"}`, wantStatus: http.StatusOK},
		{name: "login missing password", schema: "login", body: `{"username":"alice"}`, wantStatus: http.StatusBadRequest},
		{name: "login empty username", schema: "login", body: `{"username":"","password":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "login unexpected field", schema: "login", body: `{"username":"a","password":"b","extra":1}`, wantStatus: http.StatusBadRequest},
		{name: "not json", schema: "login", body: `username=alice`, wantStatus: http.StatusBadRequest},
		{name: "valid challenge", schema: "challenge_create", body: `{"matiere":"maths","question":"1+1?","date":"2024-01-01"}`, wantStatus: http.StatusOK},
		{name: "challenge missing date", schema: "challenge_create", body: `{"matiere":"maths","question":"1+1?"}`, wantStatus: http.StatusBadRequest},
		{name: "valid subscriptions", schema: "subscriptions_update", body: `{"subscriptions":["maths","histoire"]}`, wantStatus: http.StatusOK},
		{name: "empty subscriptions allowed", schema: "subscriptions_update", body: `{"subscriptions":[]}`, wantStatus: http.StatusOK},
		{name: "subscriptions wrong type", schema: "subscriptions_update", body: `{"subscriptions":"maths"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validationRouter(tt.schema)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/t", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestValidateRequestBodyPreservesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var bound struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	r.POST("/t", ValidateRequestBody("login", observability.NewLogger(nil)), func(c *gin.Context) {
		if err := c.ShouldBindJSON(&bound); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/t", strings.NewReader(`{"username":"alice","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", bound.Username)
}
