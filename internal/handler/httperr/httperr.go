// Package httperr maps client-core errors onto gateway responses.
package httperr

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/apiclient"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/service/account"
	chatService "github.com/nestfeed/client/internal/service/chat"
	"github.com/nestfeed/client/internal/service/feed"
	"github.com/nestfeed/client/internal/service/friends"
	sessionService "github.com/nestfeed/client/internal/service/session"
	"github.com/nestfeed/client/pkg/utils"
)

// LoginPath is where the UI sends users without a live session.
const LoginPath = "/login"

var statusByError = []struct {
	err    error
	status int
}{
	{sessionService.ErrCredentialsRequired, http.StatusBadRequest},

	{chatService.ErrEmptyMessage, http.StatusBadRequest},
	{chatService.ErrNoCorrespondent, http.StatusBadRequest},
	{chatService.ErrUnknownCorrespondent, http.StatusNotFound},
	{chatService.ErrNotActive, http.StatusConflict},
	{chatService.ErrAlreadyActive, http.StatusConflict},
	{chatService.ErrSelectionSuperseded, http.StatusConflict},
	{chatService.ErrActivationCanceled, http.StatusConflict},

	{feed.ErrEmptyPost, http.StatusBadRequest},
	{feed.ErrInvalidPage, http.StatusBadRequest},

	{friends.ErrInvalidStatus, http.StatusBadRequest},
	{friends.ErrReceiverRequired, http.StatusBadRequest},

	{account.ErrFieldsRequired, http.StatusBadRequest},
	{account.ErrEmailRequired, http.StatusBadRequest},
	{account.ErrOTPRequired, http.StatusBadRequest},
	{account.ErrPasswordRequired, http.StatusBadRequest},
	{account.ErrPasswordMismatch, http.StatusBadRequest},
	{account.ErrImageRequired, http.StatusBadRequest},
}

// IsSessionError reports whether err means the user must log in again.
func IsSessionError(err error) bool {
	return errors.Is(err, sessionService.ErrNotLoggedIn) ||
		errors.Is(err, sessionService.ErrSessionExpired)
}

// Write answers with the status err maps to. fallback is the message shown for
// upstream failures the server did not explain.
func Write(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	logger = logging.OrNop(logger)
	if IsSessionError(err) {
		utils.RespondRedirect(w, http.StatusUnauthorized, err.Error(), LoginPath)
		return
	}

	for _, entry := range statusByError {
		if errors.Is(err, entry.err) {
			utils.RespondError(w, entry.status, entry.err.Error())
			return
		}
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			// the server rejected a token we still considered live
			utils.RespondRedirect(w, http.StatusUnauthorized, apiErr.Message, LoginPath)
		case apiErr.Status >= 400 && apiErr.Status < 500:
			utils.RespondError(w, apiErr.Status, apiErr.Message)
		default:
			logger.Warn("upstream request failed", zap.Int("status", apiErr.Status), zap.String("message", apiErr.Message))
			utils.RespondError(w, http.StatusBadGateway, apiclient.Message(err, fallback))
		}
		return
	}

	if errors.Is(err, context.Canceled) {
		logger.Debug("request canceled", zap.Error(err))
		return
	}

	logger.Warn("request failed", zap.Error(err))
	utils.RespondError(w, http.StatusBadGateway, fallback)
}
