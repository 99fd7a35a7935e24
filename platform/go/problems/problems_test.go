package problems

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Write(rec, New("Conflict", "already there", TypeConflict, http.StatusConflict, map[string][]string{"id": {"taken"}}))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, TypeConflict, body.Type)
	require.Equal(t, "already there", body.Detail)
	require.Equal(t, []string{"taken"}, body.Errors["id"])
}

func TestType(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://palmyra.pro/problems/trial-expired", Type("trial-expired"))
}
