// Package secrets reads credentials from the environment or the OS keyring.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const Service = "go-jobpost-automation"

// Lookup returns value when set, otherwise the keyring entry for account.
// A missing entry is not an error.
func Lookup(value, account string) (string, error) {
	if v := strings.TrimSpace(value); v != "" {
		return v, nil
	}
	secret, err := keyring.Get(Service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return secret, nil
}

func Store(account, secret string) error {
	return keyring.Set(Service, account, secret)
}

func Delete(account string) error {
	err := keyring.Delete(Service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
