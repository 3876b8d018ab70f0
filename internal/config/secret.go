package config

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var wellknownFingerprints = []string{
	"SHA256:uNiVztksCsDhcc0u9e8BujQXVUpKZIDTMczCvj3tD2s", // github.com https://docs.github.com/en/github/authenticating-to-github/githubs-ssh-key-fingerprints
	"SHA256:p2QAMXNIC1TJYWeIOttrVc98/R1BUFWu3/LiyKgUfQM", // github.com
	"SHA256:+DiY3wvvV6TuJJhbpZisF/zLDA0zPMSvHdkr4UvCOqU", // github.com
	"SHA256:zzXQOXSRBEiUtuE8AikJYKwbHaxvSc0ojez9YXaGp1A", // bitbucket.org https://support.atlassian.com/bitbucket-cloud/docs/configure-ssh-and-two-step-verification/
	"SHA256:ohD8VZEXGWo6Ez8GSEJQ9WpafgLFsOfLOtGGQCQo6Og", // dev.azure.com https://github.com/MicrosoftDocs/azure-devops-docs/issues/7726 (also available through user settings after signing in)
}

// Secret holds credentials used to clone private grammar repositories. It is
// declared in the manifest's secrets table and referenced from a language by
// name:
//
//	[languages.internal]
//	git = "https://git.example.com/tree-sitter-internal.git"
//	credentials = "example"
//
//	[secrets.example]
//	type = "basic_auth"
//	username = "bot"
//	password = "${EXAMPLE_GIT_PASSWORD}"
//
// String values may refer to environment variables using the ${VAR_NAME}
// syntax; they are expanded when the secret is resolved, never when the
// manifest is written back.
//
// Supported types:
//
//   - "basic_auth": "username" and "password". "headers" (string array) is
//     optional and sets additional HTTP headers, e.g. "Header-Name: value".
//   - "token_auth": "token", sent as a bearer token.
//   - "ssh_key": "key" (private key as PEM), optional "passphrase" and
//     "fingerprints". Without fingerprints, the well-known host keys of
//     GitHub, Bitbucket and Azure DevOps are accepted.
//   - "github_app_auth": "integration_id", "installation_id" and
//     "private_key" (path to a PEM file).
type Secret struct {
	Name  string         `json:"-"`
	Value map[string]any `json:"-"`
}

// get retrieves the values from any external source as necessary.
// NB: only environment variables are supported so far.
func (s *Secret) get() map[string]any {
	value := make(map[string]any, len(s.Value))

	for k, v := range s.Value {
		switch v := v.(type) {
		case string:
			value[k] = os.ExpandEnv(v)
		case []any:
			expanded := make([]any, len(v))
			for i, item := range v {
				if str, ok := item.(string); ok {
					expanded[i] = os.ExpandEnv(str)
				} else {
					expanded[i] = item
				}
			}
			value[k] = expanded
		default: // Keep non-string values as is
			value[k] = v
		}
	}

	return value
}

// Typed resolves the secret into one of the Secret* value types.
func (s *Secret) Typed(context.Context) (any, error) {
	m := s.get()

	if len(m) == 0 {
		return nil, fmt.Errorf("secret %q is not configured", s.Name)
	}

	switch m["type"] {
	case "github_app_auth":
		var value SecretGitHubApp
		if err := decode(m, &value); err != nil {
			return nil, err
		} else if value.IntegrationID == 0 || value.InstallationID == 0 || value.PrivateKey == "" {
			return nil, errors.New("missing integration_id, installation_id or private_key in GitHub App secret")
		}

		return value, nil

	case "ssh_key":
		var value SecretSSHKey
		if err := decode(m, &value); err != nil {
			return nil, err
		} else if value.Key == "" {
			return nil, errors.New("missing key in SSH secret")
		}

		// If no fingerprints are provided, use well-known ones for popular services.
		if len(value.Fingerprints) == 0 {
			value.Fingerprints = wellknownFingerprints
		}

		return value, nil

	case "basic_auth":
		var value SecretBasicAuth
		if err := decode(m, &value); err != nil {
			return nil, err
		} else if value.Password == "" {
			return nil, errors.New("missing password in basic auth secret")
		}

		return value, nil

	case "token_auth":
		var value SecretTokenAuth
		if err := decode(m, &value); err != nil {
			return nil, err
		} else if value.Token == "" {
			return nil, errors.New("missing token in token auth secret")
		}

		return value, nil

	default:
		return nil, fmt.Errorf("unknown secret type %q", s.Value["type"])
	}
}

type SecretGitHubApp struct {
	IntegrationID  int64  `toml:"integration_id"`
	InstallationID int64  `toml:"installation_id"`
	PrivateKey     string `toml:"private_key"` // Path to the private key PEM file.
}

type SecretSSHKey struct {
	Key          string   `toml:"key"`          // Private key as PEM.
	Passphrase   string   `toml:"passphrase"`   // Optional passphrase for the private key.
	Fingerprints []string `toml:"fingerprints"` // Optional SSH host key fingerprints.
}

type SecretBasicAuth struct {
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Headers  []string `toml:"headers"` // Optional additional headers for HTTP requests.
}

type SecretTokenAuth struct {
	Token string `toml:"token"` // Bearer token for HTTP authentication.
}
