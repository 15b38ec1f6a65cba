package account

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestfeed/client/internal/apiclient"
	"github.com/nestfeed/client/internal/model/social"
)

type fakeAPI struct {
	calls      atomic.Int32
	registered []apiclient.Registration
	verified   []string
	meErr      error
	friendsErr error
	uploaded   string
	searches   []string
}

func (f *fakeAPI) Register(_ context.Context, reg apiclient.Registration) (string, error) {
	f.calls.Add(1)
	f.registered = append(f.registered, reg)
	return "User registered", nil
}

func (f *fakeAPI) SendOTP(context.Context, string) (string, error) {
	f.calls.Add(1)
	return "OTP sent", nil
}

func (f *fakeAPI) VerifyOTP(_ context.Context, email, otp, newPassword string) (string, error) {
	f.calls.Add(1)
	f.verified = append(f.verified, email+"/"+otp+"/"+newPassword)
	return "Password reset", nil
}

func (f *fakeAPI) Me(context.Context) (social.User, error) {
	f.calls.Add(1)
	return social.User{ID: "me", Name: "Alice"}, f.meErr
}

func (f *fakeAPI) UpdateProfile(context.Context, apiclient.ProfileUpdate) (string, error) {
	f.calls.Add(1)
	return "Profile updated", nil
}

func (f *fakeAPI) ChangePassword(context.Context, string, string) (string, error) {
	f.calls.Add(1)
	return "Password changed", nil
}

func (f *fakeAPI) UploadProfilePic(_ context.Context, name string, image io.Reader) (social.User, error) {
	f.calls.Add(1)
	data, _ := io.ReadAll(image)
	f.uploaded = name + ":" + string(data)
	return social.User{ID: "me", ProfilePic: "https://cdn/new.png"}, nil
}

func (f *fakeAPI) FriendProfile(_ context.Context, id string) (social.Profile, error) {
	f.calls.Add(1)
	return social.Profile{User: social.User{ID: id}}, nil
}

func (f *fakeAPI) SearchUsers(_ context.Context, q string) ([]social.User, error) {
	f.calls.Add(1)
	f.searches = append(f.searches, q)
	return []social.User{{ID: "u1"}}, nil
}

func (f *fakeAPI) SidebarFriends(context.Context) ([]social.User, error) {
	f.calls.Add(1)
	return []social.User{{ID: "u1"}, {ID: "u2"}}, f.friendsErr
}

type recordingIdentity struct {
	remembered []social.User
}

func (r *recordingIdentity) Remember(_ context.Context, user social.User) error {
	r.remembered = append(r.remembered, user)
	return nil
}

func TestRegisterValidatesBeforeRequest(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, &recordingIdentity{}, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Name: "A", Email: "a@x", Password: "1"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	_, err = svc.Register(ctx, Registration{Email: "a@x", Password: "1", ConfirmPassword: "1"})
	assert.ErrorIs(t, err, ErrFieldsRequired)
	assert.Zero(t, api.calls.Load())

	msg, err := svc.Register(ctx, Registration{Name: " Alice ", Email: "a@x", Password: "pw", ConfirmPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "User registered", msg)
	assert.Equal(t, "Alice", api.registered[0].Name)
}

func TestResetPasswordValidation(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, &recordingIdentity{}, nil)
	ctx := context.Background()

	_, err := svc.ResetPassword(ctx, PasswordReset{Email: "a@x", NewPassword: "n", ConfirmPassword: "n"})
	assert.ErrorIs(t, err, ErrOTPRequired)
	_, err = svc.ResetPassword(ctx, PasswordReset{Email: "a@x", OTP: "1234", NewPassword: "n", ConfirmPassword: "m"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	_, err = svc.SendOTP(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmailRequired)
	assert.Zero(t, api.calls.Load())

	_, err = svc.ResetPassword(ctx, PasswordReset{Email: "a@x", OTP: " 1234 ", NewPassword: "n", ConfirmPassword: "n"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x/1234/n"}, api.verified)
}

func TestChangePasswordMismatch(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, &recordingIdentity{}, nil)

	_, err := svc.ChangePassword(context.Background(), PasswordChange{OldPassword: "o", NewPassword: "a", ConfirmPassword: "b"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Zero(t, api.calls.Load())
}

func TestUploadStoresPictureInSession(t *testing.T) {
	api := &fakeAPI{}
	identity := &recordingIdentity{}
	svc := NewService(api, identity, nil)

	user, err := svc.UploadProfilePicture(context.Background(), "me.png", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.png", user.ProfilePic)
	assert.Equal(t, "me.png:bytes", api.uploaded)
	require.Len(t, identity.remembered, 1)
	assert.Equal(t, "https://cdn/new.png", identity.remembered[0].ProfilePic)
}

func TestSearchBlankSkipsRequest(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, &recordingIdentity{}, nil)

	users, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Zero(t, api.calls.Load())

	users, err = svc.Search(context.Background(), "ali")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSettingsLoadsBothInParallel(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, &recordingIdentity{}, nil)

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alice", settings.User.Name)
	assert.Len(t, settings.Friends, 2)
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestSettingsFailsWhenEitherFails(t *testing.T) {
	api := &fakeAPI{friendsErr: errors.New("down")}
	svc := NewService(api, &recordingIdentity{}, nil)

	_, err := svc.Settings(context.Background())
	assert.ErrorIs(t, err, api.friendsErr)
}
