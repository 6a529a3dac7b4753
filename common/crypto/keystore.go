package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseMasterKey turns the hex-encoded master key from the environment into
// the 32 raw bytes the AES-GCM helpers expect. It only decodes; fetching the
// key from env or config is the caller's job.
//
// A fresh key comes from:
//
//	openssl rand -hex 32
func ParseMasterKey(rawHex string) ([]byte, error) {
	raw := strings.TrimSpace(rawHex)
	if raw == "" {
		return nil, fmt.Errorf("master key is empty")
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid hex in master key: %w", err)
	}

	if len(key) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes (%d hex chars), got %d bytes",
			KeySize, KeySize*2, len(key))
	}

	return key, nil
}
