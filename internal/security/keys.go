package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
)

var (
	// ErrInvalidKey is returned when PEM content or the key type is not usable for signing.
	ErrInvalidKey = errors.New("invalid key")
	// ErrKeyMismatch is returned when the configured public key does not belong to the private key.
	ErrKeyMismatch = errors.New("public key does not match private key")
)

// KeyPair is the signing material for locally issued access tokens.
type KeyPair struct {
	Signer crypto.Signer
	Public crypto.PublicKey
	// Alg is the JWS algorithm name derived from the key type.
	Alg string
}

// LoadKeyPair parses the private key and, when given, the public key. Each value may be
// inline PEM (literal "\n" sequences from env files are expanded) or a path to a PEM file.
// An empty public key is derived from the private key.
func LoadKeyPair(privateKey, publicKey string) (KeyPair, error) {
	signer, err := parseSigner(privateKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("private key: %w", err)
	}
	pub := signer.Public()
	if strings.TrimSpace(publicKey) != "" {
		pub, err = parsePublic(publicKey)
		if err != nil {
			return KeyPair{}, fmt.Errorf("public key: %w", err)
		}
		if !samePublicKey(signer.Public(), pub) {
			return KeyPair{}, ErrKeyMismatch
		}
	}
	alg := KeyAlg(pub)
	if alg == "" {
		return KeyPair{}, ErrInvalidKey
	}
	return KeyPair{Signer: signer, Public: pub, Alg: alg}, nil
}

// KeyAlg returns "RS256" for RSA and "ES256" for ECDSA P-256 keys; empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		if k.Curve == elliptic.P256() {
			return "ES256"
		}
	}
	return ""
}

func readPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

func decodeBlock(s string) (*pem.Block, error) {
	raw, err := readPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

func parseSigner(s string) (crypto.Signer, error) {
	block, err := decodeBlock(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	}
	return nil, ErrInvalidKey
}

func parsePublic(s string) (crypto.PublicKey, error) {
	block, err := decodeBlock(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	}
	return nil, ErrInvalidKey
}

func samePublicKey(a, b crypto.PublicKey) bool {
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	if e, ok := a.(equaler); ok {
		return e.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}
