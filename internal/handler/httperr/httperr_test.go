package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/apiclient"
	chatService "github.com/nestfeed/client/internal/service/chat"
	sessionService "github.com/nestfeed/client/internal/service/session"
)

func TestWriteMapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "expired session redirects",
			err:    fmt.Errorf("token: %w", sessionService.ErrSessionExpired),
			status: http.StatusUnauthorized,
			body:   `{"error":"token: session expired","redirect":"/login"}`,
		},
		{
			name:   "validation",
			err:    chatService.ErrEmptyMessage,
			status: http.StatusBadRequest,
			body:   `{"error":"message is empty"}`,
		},
		{
			name:   "client error passes through",
			err:    &apiclient.APIError{Status: http.StatusNotFound, Message: "User not found"},
			status: http.StatusNotFound,
			body:   `{"error":"User not found"}`,
		},
		{
			name:   "server error becomes bad gateway",
			err:    &apiclient.APIError{Status: http.StatusInternalServerError, Message: "db down"},
			status: http.StatusBadGateway,
			body:   `{"error":"db down"}`,
		},
		{
			name:   "transport error uses fallback",
			err:    errors.New("dial tcp: refused"),
			status: http.StatusBadGateway,
			body:   `{"error":"Failed to load"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Write(rec, zap.NewNop(), tc.err, "Failed to load")
			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}
