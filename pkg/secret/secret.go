// Package secret stores and resolves Slack tokens in the OS keychain.
package secret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"aquabot/pkg/config"
)

const serviceName = "aquabot"

const (
	AccountAPIToken = "api-token"
	AccountAppToken = "app-token"
)

// ErrNotFound reports that the keychain has no entry for the account.
var ErrNotFound = errors.New("secret not found")

// Get retrieves a secret from the system keychain.
func Get(account string) (string, error) {
	value, err := keyring.Get(serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", account, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s from keychain: %w", account, err)
	}
	return value, nil
}

// Set stores a secret in the system keychain.
func Set(account string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s: empty value", account)
	}
	if err := keyring.Set(serviceName, account, value); err != nil {
		return fmt.Errorf("write %s to keychain: %w", account, err)
	}
	return nil
}

// Account maps the CLI names "api" and "app" to keychain accounts.
func Account(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "api":
		return AccountAPIToken, nil
	case "app":
		return AccountAppToken, nil
	default:
		return "", fmt.Errorf("unknown token kind %q (want api or app)", kind)
	}
}

// ResolveTokens fills empty token fields of cfg from the keychain.
//
// Values already set by the config file or environment are kept.
func ResolveTokens(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	fill := func(field *string, account string) error {
		if strings.TrimSpace(*field) != "" {
			return nil
		}
		value, err := Get(account)
		if err != nil {
			return err
		}
		*field = value
		return nil
	}

	if err := fill(&cfg.APIToken, AccountAPIToken); err != nil {
		return err
	}
	return fill(&cfg.AppToken, AccountAppToken)
}
