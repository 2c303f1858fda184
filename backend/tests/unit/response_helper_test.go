package unit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	response "broker-dashboard-app/backend/internal/infra/common"

	"github.com/gin-gonic/gin"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, recorder
}

func TestSuccessResponse(t *testing.T) {
	c, recorder := newTestContext(t)
	response.Success(c, http.StatusOK, gin.H{"value": 42}, nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var body response.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Success || body.Error != nil {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestFailResponse(t *testing.T) {
	c, recorder := newTestContext(t)
	response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "slow down", nil)

	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", recorder.Code)
	}

	var body response.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error == nil {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Error.Code != response.ErrTooManyRequests || body.Error.Message != "slow down" {
		t.Fatalf("unexpected error payload: %+v", body.Error)
	}
}

func TestFailWithError(t *testing.T) {
	c, recorder := newTestContext(t)
	response.FailWithError(c, http.StatusBadGateway, errors.New("crm timeout"), response.ErrUpstream)

	var body response.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error == nil || body.Error.Code != response.ErrUpstream || body.Error.Message != "crm timeout" {
		t.Fatalf("unexpected error payload: %+v", body.Error)
	}
}

func TestFailWithError_NilError(t *testing.T) {
	c, recorder := newTestContext(t)
	response.FailWithError(c, http.StatusInternalServerError, nil, response.ErrInternal)

	var body response.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error == nil || body.Error.Message != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("nil error should fall back to status text: %+v", body.Error)
	}
}
