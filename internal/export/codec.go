// ABOUTME: Versioned, checksummed JSON encoding for descriptors.
// ABOUTME: Shared by every DescriptorStore so records are portable between backends.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DescriptorVersion is the current on-disk schema version.
// Increment when the Descriptor layout changes incompatibly.
const DescriptorVersion = 1

type envelope struct {
	Version    int             `json:"version"`
	Checksum   string          `json:"checksum"`
	Descriptor json.RawMessage `json:"descriptor"`
}

// EncodeDescriptor serialises d with a version and SHA256 checksum.
func EncodeDescriptor(d Descriptor) ([]byte, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}
	return json.Marshal(envelope{
		Version:    DescriptorVersion,
		Checksum:   checksum(body),
		Descriptor: body,
	})
}

// DecodeDescriptor parses and validates data written by EncodeDescriptor.
func DecodeDescriptor(data []byte) (*Descriptor, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("descriptor is corrupted (invalid JSON): %w", err)
	}
	if env.Version != DescriptorVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrDescriptorVersion, env.Version, DescriptorVersion)
	}
	if checksum(env.Descriptor) != env.Checksum {
		return nil, ErrDescriptorChecksum
	}
	var d Descriptor
	if err := json.Unmarshal(env.Descriptor, &d); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor: %w", err)
	}
	return &d, nil
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
