package crypto

// rsa.go implements the asymmetric half of the download challenge. Clients
// register a PEM encoded RSA public key with the coordinator; the
// coordinator proves a downloader holds the matching private key by
// encrypting a nonce that only the key holder can recover. OAEP with
// SHA-256 for both the message digest and the MGF1 mask is part of the wire
// contract with clients and cannot be changed without breaking them.

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"gitlab.com/NebulousLabs/errors"
)

var (
	// ErrInvalidPEM is the error when key data does not contain a PEM
	// block.
	ErrInvalidPEM = errors.New("data is not a PEM encoded key")

	// ErrNotRSAKey is the error when a PEM block decodes to something
	// other than an RSA public key.
	ErrNotRSAKey = errors.New("PEM block does not contain an RSA public key")
)

// ParsePublicKeyPEM decodes a PEM encoded PKIX RSA public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.AddContext(err, "unable to parse public key")
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return rsaPub, nil
}

// EncodePublicKeyPEM encodes an RSA public key as a PEM encoded PKIX
// block, the format accepted by ParsePublicKeyPEM.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, errors.AddContext(err, "unable to marshal public key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// EncryptOAEP encrypts msg under pub using OAEP with SHA-256 for both the
// digest and the MGF1 mask.
func EncryptOAEP(pub *rsa.PublicKey, msg []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, msg, nil)
}

// DecryptOAEP reverses EncryptOAEP. Only clients and tests hold private
// keys; the coordinator never decrypts.
func DecryptOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), nil, priv, ciphertext, nil)
}
