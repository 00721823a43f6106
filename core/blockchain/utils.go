package blockchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// cancelCheckInterval is how many attempts pass between context checks.
const cancelCheckInterval = 1024

// MeetsDifficulty reports whether the first difficulty hex characters of hash are '0'.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}
	return strings.HasPrefix(hash, strings.Repeat("0", difficulty))
}

func hashAtNonce(prefix string, nonce uint64) string {
	hash := sha256.Sum256([]byte(prefix + strconv.FormatUint(nonce, 10)))
	return hex.EncodeToString(hash[:])
}

// searchNonce tries start, start+step, start+2*step, ... until a hash meets
// difficulty or ctx is done.
func searchNonce(ctx context.Context, prefix string, start, step uint64, difficulty int) (uint64, string, error) {
	zeros := strings.Repeat("0", max(difficulty, 0))

	for i, nonce := 0, start; ; i, nonce = i+1, nonce+step {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, "", err
			}
		}
		hash := hashAtNonce(prefix, nonce)
		if strings.HasPrefix(hash, zeros) {
			return nonce, hash, nil
		}
	}
}
