// Package keybackend resolves the access keys used to sign and verify
// presigned blob URLs.
package keybackend

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/filedock/filedock"
)

// KeyPair is one access key credential. Pairs with an empty access or secret
// key are ignored wherever they appear.
type KeyPair struct {
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
}

func (p KeyPair) valid() bool {
	return p.AccessKey != "" && p.SecretKey != ""
}

// KeysConfig names the credential sources: pairs written inline in the
// config file, and an optional JSON key file.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline"`
	File   string    `mapstructure:"file"`
}

// Static is a SecretStore over a fixed set of key pairs. Keys are resolved
// once at startup; rotating them requires a restart.
type Static struct {
	secrets map[string]string
}

func NewStatic(pairs ...KeyPair) *Static {
	secrets := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.valid() {
			secrets[p.AccessKey] = p.SecretKey
		}
	}
	return &Static{secrets: secrets}
}

// Lookup returns the secret key for accessKey, or ErrUnauthorized for keys
// the store does not hold.
func (s *Static) Lookup(accessKey string) (string, error) {
	secretKey, found := s.secrets[accessKey]
	if !found {
		return "", fmt.Errorf("access key not found: %w", filedock.ErrUnauthorized)
	}
	return secretKey, nil
}

// ReadKeyFile parses a JSON array of key pairs:
//
//	[{"access_key": "AKIA...", "secret_key": "wJalrXUt..."}]
//
// Pairs come back in file order, incomplete entries included; callers decide
// what to skip.
func ReadKeyFile(path string) ([]KeyPair, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var pairs []KeyPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", path, err)
	}
	return pairs, nil
}

// Load builds a Static store from every configured source. File pairs are
// applied after inline pairs, so on a duplicate access key the file wins.
func Load(cfg KeysConfig) (*Static, error) {
	pairs := make([]KeyPair, 0, len(cfg.Inline))
	pairs = append(pairs, cfg.Inline...)

	if cfg.File != "" {
		filePairs, err := ReadKeyFile(cfg.File)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, filePairs...)
	}

	return NewStatic(pairs...), nil
}
