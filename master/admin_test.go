package master

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminHandlerHealthRootOnly(t *testing.T) {
	a := &AdminServer{Master: New(&Runner{}, nil)}
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// TestAdminHandlerUnmatchedPathIs404 guards against ServeMux's "/" being a
// catch-all subtree pattern: any unregistered path must 404, not fall
// through to the health check, per spec §6's "Unmatched" route behavior.
func TestAdminHandlerUnmatchedPathIs404(t *testing.T) {
	a := &AdminServer{Master: New(&Runner{}, nil)}
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/bogus")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
