package gitsync

import (
	"context"
	"errors"
	"fmt"
	"net"
	gohttp "net/http"
	"slices"
	"strings"
	"sync"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
)

// githubAppUser is the user name GitHub expects next to an installation token.
const githubAppUser = "x-access-token"

func (s *Synchronizer) auth(ctx context.Context) (transport.AuthMethod, error) {
	if s.secret == nil {
		return nil, nil
	}

	typed, err := s.secret.Typed(ctx)
	if err != nil {
		return nil, fmt.Errorf("credentials %q: %w", s.secret.Name, err)
	}

	am, err := authFromTyped(ctx, s.gh, typed)
	if err != nil {
		return nil, fmt.Errorf("credentials %q: %w", s.secret.Name, err)
	}

	return am, nil
}

func authFromTyped(ctx context.Context, gh *GitHubTokens, value any) (transport.AuthMethod, error) {
	switch value := value.(type) {
	case config.SecretBasicAuth:
		return newHTTPAuth(value.Headers, value.Username, value.Password, "")

	case config.SecretTokenAuth:
		return newHTTPAuth(nil, "", "", value.Token)

	case config.SecretGitHubApp:
		token, err := gh.Token(ctx, value)
		if err != nil {
			return nil, err
		}
		return newHTTPAuth(nil, githubAppUser, token, "")

	case config.SecretSSHKey:
		return newSSHAuth(value)

	default:
		return nil, fmt.Errorf("unsupported authentication type for git: %T", value)
	}
}

// httpAuth authenticates smart HTTP requests with a bearer token when one is
// set and with basic credentials otherwise. Static headers go on every request.
type httpAuth struct {
	user     string
	password string
	token    string
	header   gohttp.Header
}

// newHTTPAuth parses headers given as "Name: value".
func newHTTPAuth(headers []string, user, password, token string) (*httpAuth, error) {
	a := &httpAuth{user: user, password: password, token: token, header: make(gohttp.Header, len(headers))}

	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if name = strings.TrimSpace(name); !ok || name == "" {
			return nil, fmt.Errorf("header %q is not of the form 'Name: value'", h)
		}
		a.header.Add(name, strings.TrimSpace(value))
	}

	return a, nil
}

func (a *httpAuth) Name() string {
	if a.token != "" {
		return "http-bearer"
	}
	return "http-basic"
}

func (a *httpAuth) String() string {
	return a.Name()
}

func (a *httpAuth) SetAuth(r *gohttp.Request) {
	for name, values := range a.header {
		r.Header[name] = slices.Clone(values)
	}

	if a.token != "" {
		r.Header.Set("Authorization", "Bearer "+a.token)
		return
	}

	r.SetBasicAuth(a.user, a.password)
}

// GitHubTokens mints GitHub App installation tokens. One transport is kept per
// app, installation and key file, and each transport caches its token until
// it expires, so entries sharing an app share a token.
type GitHubTokens struct {
	mu         sync.Mutex
	transports map[config.SecretGitHubApp]*ghinstallation.Transport
}

func NewGitHubTokens() *GitHubTokens {
	return &GitHubTokens{transports: make(map[config.SecretGitHubApp]*ghinstallation.Transport)}
}

func (gh *GitHubTokens) Token(ctx context.Context, app config.SecretGitHubApp) (string, error) {
	tr, err := gh.transport(app)
	if err != nil {
		return "", err
	}

	token, err := tr.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("github app %d installation %d: %w", app.IntegrationID, app.InstallationID, err)
	}

	return token, nil
}

func (gh *GitHubTokens) transport(app config.SecretGitHubApp) (*ghinstallation.Transport, error) {
	gh.mu.Lock()
	defer gh.mu.Unlock()

	if tr, ok := gh.transports[app]; ok {
		return tr, nil
	}

	tr, err := ghinstallation.NewKeyFromFile(gohttp.DefaultTransport, app.IntegrationID, app.InstallationID, app.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("github app %d: %w", app.IntegrationID, err)
	}

	gh.transports[app] = tr
	return tr, nil
}

// newSSHAuth authenticates as the git user and accepts only hosts whose key
// matches one of the configured fingerprints.
func newSSHAuth(key config.SecretSSHKey) (*gitssh.PublicKeys, error) {
	if len(key.Fingerprints) == 0 {
		return nil, errors.New("ssh_key authentication needs at least one host key fingerprint")
	}

	am, err := gitssh.NewPublicKeys("git", []byte(key.Key), key.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("ssh key: %w", err)
	}

	am.HostKeyCallback = knownFingerprints(key.Fingerprints)
	return am, nil
}

func knownFingerprints(fingerprints []string) ssh.HostKeyCallback {
	return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
		if fp := ssh.FingerprintSHA256(key); !slices.Contains(fingerprints, fp) {
			return fmt.Errorf("host key of %s has unknown fingerprint %s", hostname, fp)
		}
		return nil
	}
}
