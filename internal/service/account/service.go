package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nestfeed/client/internal/apiclient"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/social"
)

var (
	ErrFieldsRequired   = errors.New("name, email and password are required")
	ErrEmailRequired    = errors.New("email is required")
	ErrOTPRequired      = errors.New("otp is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrImageRequired    = errors.New("image is required")
)

// API is the slice of the REST API account screens need.
type API interface {
	Register(ctx context.Context, reg apiclient.Registration) (string, error)
	SendOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, otp, newPassword string) (string, error)
	Me(ctx context.Context) (social.User, error)
	UpdateProfile(ctx context.Context, update apiclient.ProfileUpdate) (string, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error)
	UploadProfilePic(ctx context.Context, fileName string, image io.Reader) (social.User, error)
	FriendProfile(ctx context.Context, userID string) (social.Profile, error)
	SearchUsers(ctx context.Context, query string) ([]social.User, error)
	SidebarFriends(ctx context.Context) ([]social.User, error)
}

// IdentityWriter stores identity fields back into the session.
type IdentityWriter interface {
	Remember(ctx context.Context, user social.User) error
}

// Service covers registration, password reset and profile management.
type Service struct {
	api      API
	identity IdentityWriter
	logger   *zap.Logger
}

func NewService(api API, identity IdentityWriter, logger *zap.Logger) *Service {
	return &Service{
		api:      api,
		identity: identity,
		logger:   logging.OrNop(logger).With(zap.String("component", "account")),
	}
}

// Registration is the sign-up form.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates an account. Validation failures send nothing.
func (s *Service) Register(ctx context.Context, reg Registration) (string, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		return "", ErrFieldsRequired
	}
	if reg.Password != reg.ConfirmPassword {
		return "", ErrPasswordMismatch
	}

	msg, err := s.api.Register(ctx, apiclient.Registration{
		Name:     reg.Name,
		Email:    reg.Email,
		Password: reg.Password,
	})
	if err != nil {
		s.logger.Warn("registration failed", zap.String("email", reg.Email), zap.Error(err))
		return "", err
	}
	return msg, nil
}

// SendOTP mails a password-reset code.
func (s *Service) SendOTP(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	msg, err := s.api.SendOTP(ctx, email)
	if err != nil {
		s.logger.Warn("send otp failed", zap.Error(err))
		return "", err
	}
	return msg, nil
}

// PasswordReset is the second step of the reset flow.
type PasswordReset struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPassword sets a new password with a mailed code.
func (s *Service) ResetPassword(ctx context.Context, reset PasswordReset) (string, error) {
	reset.Email = strings.TrimSpace(reset.Email)
	reset.OTP = strings.TrimSpace(reset.OTP)
	switch {
	case reset.Email == "":
		return "", ErrEmailRequired
	case reset.OTP == "":
		return "", ErrOTPRequired
	case reset.NewPassword == "":
		return "", ErrPasswordRequired
	case reset.NewPassword != reset.ConfirmPassword:
		return "", ErrPasswordMismatch
	}

	msg, err := s.api.VerifyOTP(ctx, reset.Email, reset.OTP, reset.NewPassword)
	if err != nil {
		s.logger.Warn("password reset failed", zap.Error(err))
		return "", err
	}
	return msg, nil
}

// Profile fetches the current user.
func (s *Service) Profile(ctx context.Context) (social.User, error) {
	return s.api.Me(ctx)
}

// UpdateProfile changes name and email. CurrentPassword confirms the change.
func (s *Service) UpdateProfile(ctx context.Context, name, email, currentPassword string) (string, error) {
	if currentPassword == "" {
		return "", ErrPasswordRequired
	}
	msg, err := s.api.UpdateProfile(ctx, apiclient.ProfileUpdate{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: currentPassword,
	})
	if err != nil {
		s.logger.Warn("profile update failed", zap.Error(err))
		return "", err
	}
	if name = strings.TrimSpace(name); name != "" {
		if err := s.identity.Remember(ctx, social.User{Name: name}); err != nil {
			s.logger.Warn("failed to store updated name", zap.Error(err))
		}
	}
	return msg, nil
}

// PasswordChange is the settings form for a logged-in password change.
type PasswordChange struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePassword replaces the password after checking the confirmation.
func (s *Service) ChangePassword(ctx context.Context, change PasswordChange) (string, error) {
	if change.OldPassword == "" || change.NewPassword == "" {
		return "", ErrPasswordRequired
	}
	if change.NewPassword != change.ConfirmPassword {
		return "", ErrPasswordMismatch
	}
	msg, err := s.api.ChangePassword(ctx, change.OldPassword, change.NewPassword)
	if err != nil {
		s.logger.Warn("password change failed", zap.Error(err))
		return "", err
	}
	return msg, nil
}

// UploadProfilePicture replaces the profile picture and stores the new URL in
// the session.
func (s *Service) UploadProfilePicture(ctx context.Context, fileName string, image io.Reader) (social.User, error) {
	if image == nil || fileName == "" {
		return social.User{}, ErrImageRequired
	}
	user, err := s.api.UploadProfilePic(ctx, fileName, image)
	if err != nil {
		s.logger.Warn("profile picture upload failed", zap.Error(err))
		return social.User{}, err
	}
	if user.ProfilePic != "" {
		if err := s.identity.Remember(ctx, social.User{ProfilePic: user.ProfilePic}); err != nil {
			s.logger.Warn("failed to store profile picture", zap.Error(err))
		}
	}
	return user, nil
}

// FriendProfile fetches another user's page.
func (s *Service) FriendProfile(ctx context.Context, userID string) (social.Profile, error) {
	return s.api.FriendProfile(ctx, userID)
}

// Search finds users by name. A blank query returns nothing without a request.
func (s *Service) Search(ctx context.Context, query string) ([]social.User, error) {
	if strings.TrimSpace(query) == "" {
		return []social.User{}, nil
	}
	users, err := s.api.SearchUsers(ctx, query)
	if err != nil {
		s.logger.Warn("user search failed", zap.Error(err))
		return nil, err
	}
	return users, nil
}

// Settings loads the profile and the friend list in parallel.
func (s *Service) Settings(ctx context.Context) (social.Settings, error) {
	var out social.Settings

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.api.Me(gctx)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		out.User = user
		return nil
	})
	g.Go(func() error {
		friends, err := s.api.SidebarFriends(gctx)
		if err != nil {
			return fmt.Errorf("fetch friends: %w", err)
		}
		out.Friends = friends
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("failed to load settings", zap.Error(err))
		return social.Settings{}, err
	}
	return out, nil
}
