package fakeprovider

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-server/identity"
)

var _ identity.Provider = (*FakeProvider)(nil)

const rejectedDescription = "Invalid user credentials"

type account struct {
	password    string
	userID      string
	affiliation string
}

// FakeProvider is an in-memory identity provider used in tests and the memory backend.
type FakeProvider struct {
	accounts  map[string]account
	expiresIn int64
	calls     int
	lock      sync.RWMutex
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		accounts:  make(map[string]account),
		expiresIn: 3600,
	}
}

// AddUser registers an account and returns its upstream user id.
func (fp *FakeProvider) AddUser(username, password, affiliation string) string {
	fp.lock.Lock()
	defer fp.lock.Unlock()

	userID := uuid.New().String()
	fp.accounts[username] = account{
		password:    password,
		userID:      userID,
		affiliation: affiliation,
	}
	return userID
}

// SetExpiresIn changes the lifetime of tokens issued from now on.
func (fp *FakeProvider) SetExpiresIn(seconds int64) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.expiresIn = seconds
}

// Calls returns how many times GetIdentity has been invoked.
func (fp *FakeProvider) Calls() int {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return fp.calls
}

func (fp *FakeProvider) GetIdentity(_ context.Context, creds identity.Credentials) (*identity.UpstreamIdentity, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.calls++

	acc, ok := fp.accounts[creds.Username]
	if !ok || acc.password != creds.Password {
		return &identity.UpstreamIdentity{Description: rejectedDescription}, nil
	}

	return &identity.UpstreamIdentity{
		UpstreamUserID: acc.userID,
		AccessToken:    "access-" + uuid.New().String(),
		RefreshToken:   "refresh-" + uuid.New().String(),
		SessionState:   uuid.New().String(),
		ExpiresIn:      fp.expiresIn,
		Affiliation:    acc.affiliation,
	}, nil
}
