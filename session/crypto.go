package session

import (
	"crypto/rand"
	"crypto/rsa"

	/* #nosec - the platform mandates OAEP over SHA-1 */
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

// ParsePublicKey decodes the platform-supplied RSA public key from PEM.
// Both PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") encodings are
// accepted.
func ParsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, expected *rsa.PublicKey", parsed)
	}
	return key, nil
}

// encryptPassword applies the platform's password scheme: RSA-OAEP with a
// SHA-1 digest, base64 standard encoding. The scheme is an upstream contract,
// not a local choice.
func encryptPassword(pub *rsa.PublicKey, password string) (string, error) {
	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, []byte(password), nil)
	if err != nil {
		return "", fmt.Errorf("encrypting password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
