package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// DefaultBcryptCost matches the cost used for legacy bcrypt credentials.
const DefaultBcryptCost = 12

const bcryptMaxBytes = 72

const argon2Prefix = "$argon2id$"

var errInvalidHash = errors.New("invalid password hash format")

// Hasher hashes and verifies credentials.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// PasswordByteLimiter is implemented by hashers that only accept passwords up to a
// fixed number of bytes.
type PasswordByteLimiter interface {
	MaxPasswordBytes() int
}

// MaxPasswordBytes returns the byte limit of hasher, or 0 when it has none.
func MaxPasswordBytes(hasher Hasher) int {
	if l, ok := hasher.(PasswordByteLimiter); ok {
		return l.MaxPasswordBytes()
	}
	return 0
}

// Argon2Params controls the Argon2id work factor.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultArgon2Params returns the default Argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    argon2Time,
		Memory:  argon2Memory,
		Threads: argon2Threads,
		KeyLen:  argon2KeyLen,
	}
}

// Argon2Hasher hashes passwords using Argon2id.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher creates an Argon2id hasher. Zero fields fall back to defaults.
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	def := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	if params.KeyLen == 0 {
		params.KeyLen = def.KeyLen
	}
	return &Argon2Hasher{params: params}
}

// Hash hashes a password using Argon2id.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	p := h.params
	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return encodeArgon2Hash(hash, salt, p.Time, p.Memory, p.Threads), nil
}

// Verify verifies a password against an Argon2id hash.
func (h *Argon2Hasher) Verify(password, encodedHash string) bool {
	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}

func encodeArgon2Hash(hash, salt []byte, time, memory uint32, threads uint8) string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		memory, time, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func decodeArgon2Hash(encoded string) (hash, salt []byte, time, memory uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, nil, 0, 0, 0, errInvalidHash
		}
		switch kv[0] {
		case "m":
			v, perr := strconv.ParseUint(kv[1], 10, 32)
			if perr != nil || v == 0 {
				return nil, nil, 0, 0, 0, errInvalidHash
			}
			memory = uint32(v)
		case "t":
			v, perr := strconv.ParseUint(kv[1], 10, 32)
			if perr != nil || v == 0 {
				return nil, nil, 0, 0, 0, errInvalidHash
			}
			time = uint32(v)
		case "p":
			v, perr := strconv.ParseUint(kv[1], 10, 8)
			if perr != nil || v == 0 {
				return nil, nil, 0, 0, 0, errInvalidHash
			}
			threads = uint8(v)
		default:
			return nil, nil, 0, 0, 0, errInvalidHash
		}
	}
	if memory == 0 || time == 0 || threads == 0 {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, 0, 0, 0, errInvalidHash
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	return hash, salt, time, memory, threads, nil
}

// BcryptHasher hashes passwords using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. Out-of-range costs fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash hashes a password using bcrypt.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected by Hash.
func (h *BcryptHasher) MaxPasswordBytes() int {
	return bcryptMaxBytes
}

// Verify verifies a password against a bcrypt hash.
func (h *BcryptHasher) Verify(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}

// MultiHasher hashes with the primary algorithm and verifies any supported format,
// so existing credentials keep working after the algorithm is switched.
type MultiHasher struct {
	primary Hasher
	argon2  *Argon2Hasher
	bcrypt  *BcryptHasher
}

// NewMultiHasher creates a hasher that writes with primary.
func NewMultiHasher(primary Hasher, argon *Argon2Hasher, bc *BcryptHasher) *MultiHasher {
	return &MultiHasher{primary: primary, argon2: argon, bcrypt: bc}
}

// Hash hashes with the primary algorithm.
func (h *MultiHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// MaxPasswordBytes reports the primary hasher's limit.
func (h *MultiHasher) MaxPasswordBytes() int {
	return MaxPasswordBytes(h.primary)
}

// Verify dispatches on the encoded hash prefix.
func (h *MultiHasher) Verify(password, encodedHash string) bool {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return h.argon2 != nil && h.argon2.Verify(password, encodedHash)
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return h.bcrypt != nil && h.bcrypt.Verify(password, encodedHash)
	default:
		return false
	}
}

// NewHasher builds the hasher for the named algorithm ("argon2id" or "bcrypt").
func NewHasher(algorithm string, params Argon2Params, bcryptCost int) (*MultiHasher, error) {
	argon := NewArgon2Hasher(params)
	bc := NewBcryptHasher(bcryptCost)

	switch strings.ToLower(algorithm) {
	case "", "argon2id", "argon2":
		return NewMultiHasher(argon, argon, bc), nil
	case "bcrypt":
		return NewMultiHasher(bc, argon, bc), nil
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", algorithm)
	}
}
