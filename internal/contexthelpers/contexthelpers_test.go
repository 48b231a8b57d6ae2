package contexthelpers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/recoverfit/internal/contexthelpers"
)

func TestRoundTrip(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/workouts/1", nil)
	if got := contexthelpers.ClientKey(r.Context()); got != "" {
		t.Errorf("ClientKey() on a fresh request = %q, want empty", got)
	}

	r = contexthelpers.SetCurrentPath(r, "/workouts/1")
	r = contexthelpers.SetCSPNonce(r, "nonce")
	r = contexthelpers.SetClientKey(r, "client")

	ctx := r.Context()
	for name, got := range map[string]string{
		"/workouts/1": contexthelpers.CurrentPath(ctx),
		"nonce":       contexthelpers.CSPNonce(ctx),
		"client":      contexthelpers.ClientKey(ctx),
	} {
		if got != name {
			t.Errorf("got %q, want %q", got, name)
		}
	}
}
