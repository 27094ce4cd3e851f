package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// fingerprintLen is the number of hex digest characters kept.
const fingerprintLen = 16

// Fingerprint derives a deterministic key for an operation class and its
// parameters: "<operationClass>:<16 hex chars>". Map keys are serialized in
// sorted order at every nesting level, so parameter sets that are equal
// regardless of construction order yield the same fingerprint.
func Fingerprint(operationClass string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}

	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", operationClass, err)
	}

	sum := sha256.Sum256(b)

	return operationClass + ":" + hex.EncodeToString(sum[:])[:fingerprintLen], nil
}

// MustFingerprint is Fingerprint for parameters known to be serializable.
func MustFingerprint(operationClass string, params map[string]any) string {
	fp, err := Fingerprint(operationClass, params)
	if err != nil {
		panic(err)
	}
	return fp
}
