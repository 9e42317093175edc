//go:build darwin

package auth

import (
	"errors"

	keychain "github.com/keybase/go-keychain"
)

// SystemKeychain returns the macOS keychain. Items are stored as generic
// passwords accessible only while the device is unlocked.
func SystemKeychain() (Keychain, error) {
	return macKeychain{}, nil
}

type macKeychain struct{}

func (macKeychain) Set(service, account string, data []byte) error {
	// Replace any previous key under the same tuple
	_ = keychain.DeleteGenericPasswordItem(service, account)

	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(service)
	item.SetAccount(account)
	item.SetData(data)
	item.SetAccessible(keychain.AccessibleWhenUnlockedThisDeviceOnly)
	item.SetSynchronizable(keychain.SynchronizableNo)
	return keychain.AddItem(item)
}

func (macKeychain) Get(service, account string) ([]byte, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(service)
	query.SetAccount(account)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.New("keychain item not found")
	}
	return results[0].Data, nil
}

func (macKeychain) Delete(service, account string) error {
	return keychain.DeleteGenericPasswordItem(service, account)
}
