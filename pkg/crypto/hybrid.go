package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

var (
	ErrInvalidAESKeySize         = errors.New("invalid AES key size")
	ErrCiphertextTooShort        = errors.New("ciphertext too short, cannot extract IV")
	ErrCiphertextNotBlockAligned = errors.New("ciphertext length is not a multiple of the AES block size")
	ErrInvalidPadding            = errors.New("invalid PKCS#7 padding")
	ErrOAEPDecryptFailed         = errors.New("RSA-OAEP decryption failed")
)

const (
	// AES-256 requires a 32-byte key.
	aes256KeyBytes = 32
)

// AESCipher is the symmetric half of the hybrid exchange with the auth
// server: AES-256-CBC with PKCS#7 padding. A random IV is generated per
// message and prepended to the ciphertext, so decryption needs nothing
// beyond the ciphertext and the key.
type AESCipher struct {
	key []byte
}

// NewAESCipher creates an AESCipher with a freshly generated random key.
// The key lives as long as the cipher instance; the request path uses one
// instance per client lifetime.
func NewAESCipher() (*AESCipher, error) {
	key := make([]byte, aes256KeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate AES key: %w", err)
	}
	return &AESCipher{key: key}, nil
}

// NewAESCipherFromKey creates an AESCipher around an existing key, e.g. the
// session key unwrapped from the auth server's response archive.
func NewAESCipherFromKey(key []byte) (*AESCipher, error) {
	if len(key) != aes256KeyBytes {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAESKeySize, aes256KeyBytes, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &AESCipher{key: k}, nil
}

// Key returns a copy of the cipher's key material.
func (c *AESCipher) Key() []byte {
	k := make([]byte, len(c.key))
	copy(k, c.key)
	return k
}

// Encrypt pads the plaintext with PKCS#7, encrypts it with AES-CBC under a
// random IV, and returns IV || ciphertext.
func (c *AESCipher) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// Decrypt expects IV || ciphertext as produced by Encrypt, strips the IV,
// decrypts, and removes the PKCS#7 padding. Malformed padding is reported
// as ErrInvalidPadding rather than returned as garbage plaintext.
func (c *AESCipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < aes.BlockSize {
		return nil, fmt.Errorf("%w: length %d, minimum %d", ErrCiphertextTooShort, len(data), aes.BlockSize)
	}
	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrCiphertextNotBlockAligned, len(ciphertext))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// EncryptOAEP wraps data (typically an AES ciphertext or key blob) with
// RSA-OAEP/SHA-256 under the recipient's public key.
func EncryptOAEP(pub *rsa.PublicKey, data []byte) ([]byte, error) {
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, data, nil)
	if err != nil {
		return nil, fmt.Errorf("RSA-OAEP encryption failed: %w", err)
	}
	return out, nil
}

// DecryptOAEP unwraps an RSA-OAEP/SHA-256 blob with the local private key.
// A key mismatch fails loudly with ErrOAEPDecryptFailed; OAEP cannot
// produce corrupted plaintext silently.
func DecryptOAEP(priv *rsa.PrivateKey, data []byte) ([]byte, error) {
	out, err := rsa.DecryptOAEP(sha256.New(), nil, priv, data, nil)
	if err != nil {
		return nil, ErrOAEPDecryptFailed
	}
	return out, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
