package semantic

import (
	"github.com/minio/highwayhash"
)

// fingerprintKey is the fixed 32-byte HighwayHash key. Fingerprints only
// need to be stable within one process, not secret.
var fingerprintKey = []byte("tsweave-semantic-fingerprint-v1!")

// Fingerprint returns a 64-bit content hash of text.
func Fingerprint(text string) uint64 {
	hash, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		// Only reachable with a key that is not 32 bytes long.
		panic(err)
	}
	_, _ = hash.Write([]byte(text))
	return hash.Sum64()
}
