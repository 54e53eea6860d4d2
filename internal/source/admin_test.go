package source

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachAdminRoutes(t *testing.T) {
	mux := http.NewServeMux()
	AttachAdminRoutes(mux, NewSyntheticSource(SyntheticOptions{}))

	req := httptest.NewRequest(http.MethodGet, "/debug/source", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Source string `json:"source"`
		Stats  *Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "synthetic", body.Source)
	require.NotNil(t, body.Stats)
	assert.False(t, body.Stats.Connected)
}
