// Package config loads the accounts file and the server settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Account describes one configured collection: where it lives and how to
// authenticate against it.
type Account struct {
	Name     string `yaml:"-"`
	Backend  string `yaml:"backend"`
	URL      string `yaml:"url"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// Accounts is the parsed accounts file.
type Accounts struct {
	Accounts map[string]Account `yaml:"accounts"`
}

// DefaultAccountsPath returns the default location of the accounts file.
func DefaultAccountsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "accounts.yaml"
	}
	return filepath.Join(home, ".config", "gpxity", "accounts.yaml")
}

// LoadAccounts reads an accounts file. A missing file yields an empty
// account set, not an error.
func LoadAccounts(path string) (*Accounts, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Accounts{Accounts: map[string]Account{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var result Accounts
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", path, err)
	}
	if result.Accounts == nil {
		result.Accounts = map[string]Account{}
	}
	for name, account := range result.Accounts {
		account.Name = name
		result.Accounts[name] = account
	}
	return &result, nil
}

// Lookup resolves an account reference. A name not found in the file is
// interpreted as a local directory path, so plain paths work without any
// configuration.
func (a *Accounts) Lookup(name string) (Account, error) {
	if account, ok := a.Accounts[name]; ok {
		return account, nil
	}
	if info, err := os.Stat(name); err == nil && info.IsDir() {
		return Account{Name: name, Backend: "directory", URL: name}, nil
	}
	return Account{}, fmt.Errorf("unknown account %q", name)
}
