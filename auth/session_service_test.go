package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/directory"
	"github.com/jrsteele09/go-session-server/identity"
	"github.com/jrsteele09/go-session-server/internal/mocks"
	"github.com/jrsteele09/go-session-server/internal/utils"
	"github.com/jrsteele09/go-session-server/status"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testUsername   = "alice"
	testPassword   = "pw"
	testUpstreamID = "upstream-alice"
	testSessionID  = "sid-generated"
	testAccess     = "access-1"
)

var testIdentity = &identity.UpstreamIdentity{
	UpstreamUserID: testUpstreamID,
	AccessToken:    testAccess,
	RefreshToken:   "refresh-1",
	SessionState:   "state-1",
	ExpiresIn:      3600,
	Affiliation:    "Capybaras",
}

var testCredentials = directory.Credentials{
	AccessToken:  testAccess,
	RefreshToken: "refresh-1",
	SessionState: "state-1",
	ExpiresIn:    3600,
}

type mockFixture struct {
	provider  *mocks.MockProvider
	directory *mocks.MockDirectory
	now       time.Time
}

func setupMockFixture(t *testing.T) *mockFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	return &mockFixture{
		provider:  mocks.NewMockProvider(ctrl),
		directory: mocks.NewMockDirectory(ctrl),
		now:       time.Unix(4500, 0),
	}
}

func (f *mockFixture) service(t *testing.T, opts ...auth.SessionServiceOption) *auth.SessionService {
	t.Helper()
	opts = append([]auth.SessionServiceOption{
		auth.WithNowTime(func() time.Time { return f.now }),
		auth.WithSessionIDGenerator(func() string { return testSessionID }),
		auth.WithLogger(zerolog.Nop()),
	}, opts...)
	s, err := auth.NewSessionService(f.provider, f.directory, opts...)
	require.NoError(t, err)
	return s
}

func (f *mockFixture) expectIdentity(ident *identity.UpstreamIdentity) {
	f.provider.EXPECT().
		GetIdentity(gomock.Any(), identity.Credentials{Username: testUsername, Password: testPassword}).
		Return(ident, nil)
}

func TestNewSessionService_RequiresCollaborators(t *testing.T) {
	f := setupMockFixture(t)

	_, err := auth.NewSessionService(nil, f.directory)
	require.Error(t, err)

	_, err = auth.NewSessionService(f.provider, nil)
	require.Error(t, err)
}

func TestLogin_AuthFailedNeverTouchesDirectory(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(&identity.UpstreamIdentity{Description: "Invalid user credentials"})

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.AuthFailed, res.Status)
	require.Equal(t, "Invalid user credentials", res.Description)
	require.Nil(t, res.SessionID)
}

func TestLogin_AuthFailedWithoutUpstreamMessage(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(&identity.UpstreamIdentity{UpstreamUserID: testUpstreamID})

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.AuthFailed, res.Status)
	require.Equal(t, auth.InvalidCredentialsErr.Error(), res.Description)
}

func TestLogin_ProviderUnavailable(t *testing.T) {
	f := setupMockFixture(t)
	f.provider.EXPECT().GetIdentity(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: connection refused"))

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.DownstreamUnavailable, res.Status)
	require.Contains(t, res.Description, "connection refused")
	require.Nil(t, res.SessionID)
}

func TestLogin_NewUserCreatesOnce(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(testIdentity)
	gomock.InOrder(
		f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(false, nil),
		f.directory.EXPECT().CreateUser(gomock.Any(), testUpstreamID, testCredentials, testSessionID).
			Return(directory.Success(), nil).Times(1),
	)

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.OK, res.Status)
	require.Equal(t, status.DescriptionSuccess, res.Description)
	require.Equal(t, testSessionID, utils.Value(res.SessionID))
}

func TestLogin_CreateFailedReturnsDirectoryMessage(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(testIdentity)
	f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(false, nil)
	f.directory.EXPECT().CreateUser(gomock.Any(), testUpstreamID, gomock.Any(), gomock.Any()).
		Return(directory.Failure(status.Conflict, status.DescriptionUserExists), nil)

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.CreateFailed, res.Status)
	require.Equal(t, status.DescriptionUserExists, res.Description)
	require.Nil(t, res.SessionID)
}

func TestLogin_ExistingUserUpdatesThenResolves(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(testIdentity)
	gomock.InOrder(
		f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(true, nil),
		f.directory.EXPECT().UpdateCredentials(gomock.Any(), testUpstreamID, testCredentials).Return(directory.Success(), nil),
		f.directory.EXPECT().ResolveSessionID(gomock.Any(), testUpstreamID).Return("sid-existing", true, nil),
	)

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.OK, res.Status)
	require.Equal(t, "sid-existing", utils.Value(res.SessionID))
}

func TestLogin_UpdateFailedSkipsResolve(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(testIdentity)
	f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(true, nil)
	f.directory.EXPECT().UpdateCredentials(gomock.Any(), testUpstreamID, gomock.Any()).
		Return(directory.Failure(status.UpdateFailed, "write rejected"), nil)

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.UpdateFailed, res.Status)
	require.Equal(t, "write rejected", res.Description)
	require.Nil(t, res.SessionID)
}

func TestLogin_MissingSessionIDIsResolutionFailure(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(testIdentity)
	f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(true, nil)
	f.directory.EXPECT().UpdateCredentials(gomock.Any(), testUpstreamID, gomock.Any()).Return(directory.Success(), nil)
	f.directory.EXPECT().ResolveSessionID(gomock.Any(), testUpstreamID).Return("", false, nil)

	res := f.service(t).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.ResolutionFailed, res.Status)
	require.Equal(t, status.DescriptionResolution, res.Description)
	require.Nil(t, res.SessionID)
}

func TestLogin_DirectoryUnavailable(t *testing.T) {
	storageErr := errors.New("storage offline")

	tests := []struct {
		name   string
		expect func(f *mockFixture)
	}{
		{
			name: "exists",
			expect: func(f *mockFixture) {
				f.directory.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, storageErr)
			},
		},
		{
			name: "create",
			expect: func(f *mockFixture) {
				f.directory.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil)
				f.directory.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(directory.Result{}, storageErr)
			},
		},
		{
			name: "update",
			expect: func(f *mockFixture) {
				f.directory.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil)
				f.directory.EXPECT().UpdateCredentials(gomock.Any(), gomock.Any(), gomock.Any()).Return(directory.Result{}, storageErr)
			},
		},
		{
			name: "resolve",
			expect: func(f *mockFixture) {
				f.directory.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil)
				f.directory.EXPECT().UpdateCredentials(gomock.Any(), gomock.Any(), gomock.Any()).Return(directory.Success(), nil)
				f.directory.EXPECT().ResolveSessionID(gomock.Any(), gomock.Any()).Return("", false, storageErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupMockFixture(t)
			f.expectIdentity(testIdentity)
			tt.expect(f)

			res := f.service(t).Login(context.Background(), testUsername, testPassword)

			require.Equal(t, status.DownstreamUnavailable, res.Status)
			require.Equal(t, "storage offline", res.Description)
			require.Nil(t, res.SessionID)
		})
	}
}

func TestLogin_EligibilityRejectsNewIdentity(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(&identity.UpstreamIdentity{
		UpstreamUserID: testUpstreamID,
		AccessToken:    testAccess,
		Affiliation:    "Otters",
	})
	f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(false, nil)

	res := f.service(t, auth.WithEligibility(auth.AffiliationEligibility("Capybaras"))).
		Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.EligibilityRejected, res.Status)
	require.Contains(t, res.Description, "Otters")
	require.Nil(t, res.SessionID)
}

func TestLogin_EligibilityAdmitsMatchingIdentity(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(testIdentity)
	f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(false, nil)
	f.directory.EXPECT().CreateUser(gomock.Any(), testUpstreamID, testCredentials, testSessionID).Return(directory.Success(), nil)

	res := f.service(t, auth.WithEligibility(auth.AffiliationEligibility(" capybaras "))).
		Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.OK, res.Status)
}

func TestLogin_EligibilityNotAppliedToExistingUsers(t *testing.T) {
	f := setupMockFixture(t)
	f.expectIdentity(&identity.UpstreamIdentity{UpstreamUserID: testUpstreamID, AccessToken: testAccess})
	f.directory.EXPECT().Exists(gomock.Any(), testUpstreamID).Return(true, nil)
	f.directory.EXPECT().UpdateCredentials(gomock.Any(), testUpstreamID, gomock.Any()).Return(directory.Success(), nil)
	f.directory.EXPECT().ResolveSessionID(gomock.Any(), testUpstreamID).Return("sid-existing", true, nil)

	rejectAll := func(context.Context, *identity.UpstreamIdentity) (bool, string) { return false, "closed" }
	res := f.service(t, auth.WithEligibility(rejectAll)).Login(context.Background(), testUsername, testPassword)

	require.Equal(t, status.OK, res.Status)
	require.Equal(t, "sid-existing", utils.Value(res.SessionID))
}

func TestResolveToken_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name      string
		now       int64
		issuedAt  int64
		expiresIn int64
		want      status.Code
	}{
		{name: "expires exactly now", now: 4600, issuedAt: 1000, expiresIn: 3600, want: status.TokenExpired},
		{name: "one second left", now: 4599, issuedAt: 1000, expiresIn: 3600, want: status.OK},
		{name: "long expired", now: 4700, issuedAt: 1000, expiresIn: 3600, want: status.TokenExpired},
		{name: "well within lifetime", now: 4500, issuedAt: 1000, expiresIn: 3600, want: status.OK},
		{name: "zero lifetime", now: 1000, issuedAt: 1000, expiresIn: 0, want: status.TokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupMockFixture(t)
			f.now = time.Unix(tt.now, 0)
			f.directory.EXPECT().LookupBySessionID(gomock.Any(), testSessionID).Return(directory.TokenRecord{
				Result:      directory.Success(),
				SessionID:   testSessionID,
				AccessToken: testAccess,
				IssuedAt:    time.Unix(tt.issuedAt, 0),
				ExpiresIn:   tt.expiresIn,
			}, nil)

			res := f.service(t).ResolveToken(context.Background(), testSessionID)

			require.Equal(t, tt.want, res.Status)
			if tt.want == status.OK {
				require.Equal(t, status.DescriptionSuccess, res.Description)
				require.Equal(t, testAccess, utils.Value(res.AccessToken))
			} else {
				require.Equal(t, status.DescriptionTokenExpired, res.Description)
				require.Nil(t, res.AccessToken)
			}
		})
	}
}

func TestResolveToken_LookupFailurePropagatesVerbatim(t *testing.T) {
	f := setupMockFixture(t)
	f.directory.EXPECT().LookupBySessionID(gomock.Any(), "ghost").Return(directory.NotFound("ghost"), nil)

	res := f.service(t).ResolveToken(context.Background(), "ghost")

	require.Equal(t, status.LookupFailed, res.Status)
	require.Equal(t, status.DescriptionSessionNotFound, res.Description)
	require.Nil(t, res.AccessToken)
}

func TestResolveToken_DirectoryUnavailable(t *testing.T) {
	f := setupMockFixture(t)
	f.directory.EXPECT().LookupBySessionID(gomock.Any(), testSessionID).Return(directory.TokenRecord{}, errors.New("timeout"))

	res := f.service(t).ResolveToken(context.Background(), testSessionID)

	require.Equal(t, status.DownstreamUnavailable, res.Status)
	require.Equal(t, "timeout", res.Description)
	require.Nil(t, res.AccessToken)
}
