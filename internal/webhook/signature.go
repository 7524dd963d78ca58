package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"strings"
)

var ErrSignatureMismatch = errors.New("webhook signature mismatch")

// Verifier checks the HMAC signature GitHub attaches to webhook deliveries.
// The algorithm is fixed by configuration, never negotiated from the header.
type Verifier struct {
	Secret    string
	Algorithm string // "sha256" (default) or "sha1"
}

// Open reports whether verification is disabled because no secret is
// configured. Running open is insecure and callers should log it loudly.
func (v Verifier) Open() bool {
	return v.Secret == ""
}

// HeaderName returns the request header carrying the signature for the
// configured algorithm.
func (v Verifier) HeaderName() string {
	if v.Algorithm == "sha1" {
		return "X-Hub-Signature"
	}
	return "X-Hub-Signature-256"
}

// Verify checks header against the keyed digest of body. It returns nil in
// open mode, and ErrSignatureMismatch when the header is missing, malformed,
// or carries a digest that does not match.
func (v Verifier) Verify(body []byte, header string) error {
	if v.Open() {
		return nil
	}

	prefix := v.algorithm() + "="
	if !strings.HasPrefix(header, prefix) {
		return ErrSignatureMismatch
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(v.newHash(), []byte(v.Secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrSignatureMismatch
	}
	return nil
}

func (v Verifier) algorithm() string {
	if v.Algorithm == "sha1" {
		return "sha1"
	}
	return "sha256"
}

func (v Verifier) newHash() func() hash.Hash {
	if v.Algorithm == "sha1" {
		return sha1.New
	}
	return sha256.New
}
