package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Davincible/polysecret/pkg/secure"
	"github.com/Davincible/polysecret/pkg/shareset"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize   = 32
	NonceSize  = 12
	KeySize    = 32
	Iterations = 100000

	SealedExt = ".sealed"
)

var ErrDecrypt = errors.New("failed to decrypt")

// Envelope is the on-disk form of a sealed share-set. Format records how the
// plaintext share-set is encoded.
type Envelope struct {
	Format     shareset.Format `json:"format"`
	Salt       []byte          `json:"salt"`
	Nonce      []byte          `json:"nonce"`
	Ciphertext []byte          `json:"ciphertext"`
}

func IsSealed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SealedExt)
}

// Seal encrypts an encoded share-set with a key derived from password.
func Seal(data []byte, format shareset.Format, password []byte) (*Envelope, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &Envelope{
		Format:     format,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, data, []byte(format)),
	}, nil
}

// Open decrypts the envelope. A wrong password and tampered contents both
// yield ErrDecrypt.
func Open(env *Envelope, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}

	gcm, err := newGCM(password, env.Salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, []byte(env.Format))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

func newGCM(password, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(password, salt, Iterations, KeySize, sha256.New)
	defer secure.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SealedFile stores one share-set encrypted at a fixed path.
type SealedFile struct {
	path string
}

func NewSealedFile(path string) *SealedFile {
	return &SealedFile{path: path}
}

func (s *SealedFile) Save(set *shareset.ShareSet, format shareset.Format, password []byte) error {
	data, err := set.Marshal(format)
	if err != nil {
		return fmt.Errorf("failed to encode share-set: %w", err)
	}
	defer secure.Zero(data)

	env, err := Seal(data, format, password)
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(s.path, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (s *SealedFile) Load(password []byte) (*shareset.ShareSet, error) {
	jsonData, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(jsonData, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	plaintext, err := Open(&env, password)
	if err != nil {
		return nil, err
	}
	defer secure.Zero(plaintext)

	set, err := shareset.Parse(plaintext, env.Format)
	if err != nil {
		return nil, err
	}
	set.Name = filepath.Base(s.path)
	return set, nil
}

func (s *SealedFile) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
