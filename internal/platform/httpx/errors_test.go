package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type localizedErr struct{}

func (localizedErr) Error() string       { return "invoice: not draft" }
func (localizedErr) Unwrap() error       { return ErrConflict }
func (localizedErr) UserMessage() string { return "لا يمكن تعديل فاتورة غير مسودة" }

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("clients: %w", ErrNotFound), http.StatusNotFound},
		{ErrDuplicate, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{localizedErr{}, http.StatusConflict},
		{errors.New("pg: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pg: relation invoices does not exist"))
	p := decodeProblem(t, rec)
	assert.Equal(t, GenericMessage, p.Detail)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestRespondErrorUsesLocalizedMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("update: %w", localizedErr{}))
	assert.Equal(t, "لا يمكن تعديل فاتورة غير مسودة", decodeProblem(t, rec).Detail)
}

func TestRespondErrorIncludesValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, &ValidationError{Fields: map[string]string{"due_date": "gtefield"}})
	p := decodeProblem(t, rec)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "gtefield", p.Errors["due_date"])
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","bogus":1}`))
	var target struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, ErrValidation)
}
