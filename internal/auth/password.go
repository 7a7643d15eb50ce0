package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Hashes are encoded as "pbkdf2:<digest>:<iterations>$<salt>$<hex key>",
// the format werkzeug's generate_password_hash writes, so accounts created
// by earlier deployments keep working.

const (
	DefaultIterations = 600000
	saltLength        = 16
	saltChars         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var errMalformedHash = errors.New("malformed password hash")

// Hasher produces and verifies PBKDF2-HMAC-SHA256 password hashes.
type Hasher struct {
	Iterations int
}

func NewHasher() *Hasher { return &Hasher{Iterations: DefaultIterations} }

func (h *Hasher) Hash(password string) (string, error) {
	iterations := h.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	salt, err := randomSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", iterations, salt, hex.EncodeToString(key)), nil
}

// Verify reports whether password matches encoded. Malformed hashes never
// match.
func (h *Hasher) Verify(encoded, password string) bool {
	method, salt, want, ok := splitHash(encoded)
	if !ok {
		return false
	}
	newHash, size, iterations, err := parseMethod(method)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(want)
	if err != nil || len(expected) != size {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, size, newHash)
	return hmac.Equal(got, expected)
}

func splitHash(encoded string) (method, salt, key string, ok bool) {
	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func parseMethod(method string) (func() hash.Hash, int, int, error) {
	fields := strings.Split(method, ":")
	if len(fields) < 2 || len(fields) > 3 || fields[0] != "pbkdf2" {
		return nil, 0, 0, errMalformedHash
	}

	var newHash func() hash.Hash
	var size int
	switch fields[1] {
	case "sha256":
		newHash, size = sha256.New, sha256.Size
	case "sha512":
		newHash, size = sha512.New, sha512.Size
	default:
		return nil, 0, 0, fmt.Errorf("%w: digest %q", errMalformedHash, fields[1])
	}

	iterations := DefaultIterations
	if len(fields) == 3 {
		n, err := strconv.Atoi(fields[2])
		if err != nil || n <= 0 {
			return nil, 0, 0, fmt.Errorf("%w: iterations %q", errMalformedHash, fields[2])
		}
		iterations = n
	}
	return newHash, size, iterations, nil
}

func randomSalt(n int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(saltChars)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(saltChars[idx.Int64()])
	}
	return sb.String(), nil
}
