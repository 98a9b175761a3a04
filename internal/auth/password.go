package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes.
const bcryptMaxPasswordBytes = 72

const argon2MaxPasswordBytes = 1024

var ErrInvalidHash = errors.New("invalid password hash")

// PasswordHasher produces salted, slow hashes and verifies passwords against them.
type PasswordHasher interface {
	// Hash returns an encoded hash that embeds its salt and parameters.
	Hash(password string) (string, error)

	// Verify returns (true, nil) on match and (false, nil) on mismatch.
	// An error means the hash itself could not be used.
	Verify(password, hash string) (bool, error)

	// MaxPasswordBytes is the longest password the hasher accepts.
	MaxPasswordBytes() int
}

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > bcryptMaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	if len(password) > bcryptMaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	return true, nil
}

func (h *BcryptHasher) MaxPasswordBytes() int { return bcryptMaxPasswordBytes }

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultArgon2Params: 1 pass over 64 MiB with 4 lanes.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// Argon2idHasher encodes hashes in PHC form:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type Argon2idHasher struct {
	params Argon2Params
}

func NewArgon2idHasher(params Argon2Params) *Argon2idHasher {
	return &Argon2idHasher{params: params}
}

func (h *Argon2idHasher) Hash(password string) (string, error) {
	if len(password) > argon2MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrInvalidHash
	}
	if threads == 0 || threads > 255 {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 || len(expected) > 1024 {
		return false, ErrInvalidHash
	}

	if len(password) > argon2MaxPasswordBytes {
		return false, nil
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, uint8(threads), uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *Argon2idHasher) MaxPasswordBytes() int { return argon2MaxPasswordBytes }
