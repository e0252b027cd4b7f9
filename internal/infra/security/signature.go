// File: internal/infra/security/signature.go
package security

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"errors"

	"github.com/rs/zerolog"
)

// SignatureVerifier checks provider-signed purchase payloads (SHA1withRSA
// over the raw JSON, X.509 public key). It never panics or returns an error
// outward: any malformed input verifies false. The permissive path exists for
// local development against sandbox storefronts that return unsigned
// purchases; it must never be enabled in a release configuration, which
// config loading enforces.
type SignatureVerifier struct {
	pub        *rsa.PublicKey
	permissive bool
	log        *zerolog.Logger
}

// NewSignatureVerifier decodes the base64 X.509 public key once up front.
// permissive may only be true in dev builds.
func NewSignatureVerifier(base64PublicKey string, permissive bool, logger *zerolog.Logger) (*SignatureVerifier, error) {
	v := &SignatureVerifier{permissive: permissive, log: logger}
	if base64PublicKey == "" {
		if !permissive {
			return nil, errors.New("signature verifier: public key empty")
		}
		return v, nil
	}
	der, err := base64.StdEncoding.DecodeString(base64PublicKey)
	if err != nil {
		return nil, errors.New("signature verifier: public key is not valid base64")
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.New("signature verifier: public key is not valid X.509")
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("signature verifier: public key is not RSA")
	}
	v.pub = rsaKey
	return v, nil
}

// Verify reports whether signature (base64) is a valid SHA1withRSA signature
// over signedData. Blank or malformed inputs fail closed unless the verifier
// was built permissive.
func (v *SignatureVerifier) Verify(signedData, signature string) bool {
	if signedData == "" || signature == "" || v.pub == nil {
		if v.permissive {
			v.log.Warn().Msg("signature check bypassed (permissive dev mode)")
			return true
		}
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		v.log.Debug().Msg("signature is not valid base64")
		return false
	}

	digest := sha1.Sum([]byte(signedData))
	if err := rsa.VerifyPKCS1v15(v.pub, crypto.SHA1, digest[:], sig); err != nil {
		return false
	}
	return true
}
