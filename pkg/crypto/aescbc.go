// Package crypto implements the alias-derived AES-256-CBC decryption used by Lksfy pages.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"

	"key-resolver-go/pkg/types"
)

const (
	keySalt = "sDye71jNq5"
	ivSalt  = "7M9u8DG4X"
)

// DeriveKey returns the 32-byte AES key for alias.
//
// The key is the first 32 characters of the lowercase hex SHA-256 of the salted
// alias, used as raw bytes. The hex is not decoded; upstream does the same.
func DeriveKey(alias string) []byte {
	return hexPrefix(keySalt+alias, 32)
}

// DeriveIV returns the 16-byte CBC IV for alias, derived like DeriveKey.
func DeriveIV(alias string) []byte {
	return hexPrefix(ivSalt+alias, aes.BlockSize)
}

func hexPrefix(seed string, n int) []byte {
	sum := sha256.Sum256([]byte(seed))
	return []byte(hex.EncodeToString(sum[:])[:n])
}

// Decrypt base64-decodes ciphertext twice and decrypts it with the key and IV
// derived from alias. The PKCS#7 padding is removed and the plaintext must be UTF-8.
func Decrypt(ciphertext, alias string) ([]byte, error) {
	raw, err := decodeTwice(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrCrypto, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", types.ErrCrypto, len(raw))
	}

	block, err := aes.NewCipher(DeriveKey(alias))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrCrypto, err)
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, DeriveIV(alias)).CryptBlocks(plain, raw)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrCrypto, err)
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("%w: plaintext is empty after unpadding", types.ErrCrypto)
	}
	if !utf8.Valid(plain) {
		return nil, fmt.Errorf("%w: plaintext is not valid UTF-8", types.ErrCrypto)
	}
	return plain, nil
}

// DecryptString is Decrypt returning text.
func DecryptString(ciphertext, alias string) (string, error) {
	plain, err := Decrypt(ciphertext, alias)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func decodeTwice(s string) ([]byte, error) {
	once, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("outer base64: %w", err)
	}
	twice, err := base64.StdEncoding.DecodeString(string(once))
	if err != nil {
		return nil, fmt.Errorf("inner base64: %w", err)
	}
	return twice, nil
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return data[:len(data)-n], nil
}
