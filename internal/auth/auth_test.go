package auth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/readmeforge/readme-front/internal/idp"
	"github.com/readmeforge/readme-front/internal/session"
	"github.com/readmeforge/readme-front/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider is an idp.Provider with scripted results
type fakeProvider struct {
	missing     []string
	exchangeErr error
	userInfo    *idp.UserInfo
	userInfoErr error
	exchanges   atomic.Int32
	lastCode    string
	deadline    time.Time
}

var _ idp.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		userInfo: &idp.UserInfo{
			ProviderType: "github",
			Subject:      "583231",
			Login:        "octocat",
			Name:         "The Octocat",
			AvatarURL:    "https://avatars.githubusercontent.com/u/583231",
			Scopes:       []string{"read:user", "repo"},
		},
	}
}

func (p *fakeProvider) Type() string      { return "github" }
func (p *fakeProvider) Missing() []string { return p.missing }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://github.com/login/oauth/authorize?client_id=test&state=" + state
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	p.exchanges.Add(1)
	p.lastCode = code
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil, errors.New("exchange called without a deadline")
	}
	p.deadline = deadline
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "gho_test"}, nil
}

func (p *fakeProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*idp.UserInfo, error) {
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.userInfo, nil
}

// failingStorage rejects every write
type failingStorage struct {
	storage.MemoryStorage
}

func (s *failingStorage) UpsertUser(ctx context.Context, user storage.UserRecord) error {
	return errors.New("firestore unavailable")
}

func newTestCodec(t *testing.T) *session.Codec {
	t.Helper()
	codec, err := session.NewCodec([]byte(strings.Repeat("k", 32)), time.Hour)
	require.NoError(t, err)
	return codec
}
