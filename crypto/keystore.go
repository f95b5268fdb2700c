package crypto

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// LoadOrCreateKey reads a hex-encoded private key from path, generating and
// persisting a fresh key when the file does not exist.
func LoadOrCreateKey(path string) (*PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		decoded, decodeErr := hex.DecodeString(strings.TrimSpace(string(raw)))
		if decodeErr != nil {
			return nil, fmt.Errorf("keystore %s: %w", path, decodeErr)
		}
		return PrivateKeyFromBytes(decoded)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	encoded := hex.EncodeToString(key.Bytes())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}
