// Package etransaction implements the wire format of the bank payment
// gateway: canonical message composition, RSA PKCS#1 v1.5 / SHA-1
// signatures and callback parsing.
//
// The scheme is imposed by the bank and cannot be changed on our side.
package etransaction

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SuccessCode is the gateway error code of an authorized payment.
const SuccessCode = "00000"

var (
	// ErrInvalidSignature is returned when a signature does not verify
	// against the expected key.
	ErrInvalidSignature = errors.New("invalid gateway signature")

	// ErrMalformedCallback is returned when a callback query string misses
	// required fields or carries unparsable values.
	ErrMalformedCallback = errors.New("malformed gateway callback")
)

// Signer signs outgoing payment requests with the association's private key.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8).
func NewSigner(pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in private key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &Signer{key: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return &Signer{key: key}, nil
}

// Sign returns the base64 PKCS#1 v1.5 / SHA-1 signature of the message.
func (s *Signer) Sign(message []byte) (string, error) {
	digest := sha1.Sum(message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing gateway message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verifier checks callback signatures against the bank's public key.
type Verifier struct {
	key *rsa.PublicKey
}

// NewVerifier parses a PEM-encoded RSA public key (PKIX or PKCS#1).
func NewVerifier(pemBytes []byte) (*Verifier, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in public key")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return &Verifier{key: key}, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return &Verifier{key: key}, nil
}

// Verify checks a base64 PKCS#1 v1.5 / SHA-1 signature over the message.
func (v *Verifier) Verify(message []byte, b64sig string) error {
	sig, err := base64.StdEncoding.DecodeString(b64sig)
	if err != nil {
		return ErrInvalidSignature
	}
	digest := sha1.Sum(message)
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA1, digest[:], sig); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// PaymentMessage composes the canonical payment payload: key=value pairs in
// stable field order, joined by '&' and newline-terminated.
func PaymentMessage(amountCents int64, basketID int64, merchantRef string) []byte {
	fields := []string{
		"Amount=" + strconv.FormatInt(amountCents, 10),
		"BasketID=" + strconv.FormatInt(basketID, 10),
		"Auto=" + merchantRef,
		"Error=" + SuccessCode,
	}
	return []byte(strings.Join(fields, "&") + "\n")
}

// Callback holds the fields of a gateway answer.
type Callback struct {
	AmountCents int64
	BasketID    int64
	Auto        string
	ErrorCode   string
}

// Authorized reports whether the gateway accepted the payment.
func (c Callback) Authorized() bool {
	return c.ErrorCode == SuccessCode && c.Auto != ""
}

// ParseCallback splits a raw callback query string into its fields, the
// signed part and the signature. The bank signs everything before the
// trailing Sig pair, so the signed part is the query minus that last pair.
func ParseCallback(rawQuery string) (Callback, []byte, string, error) {
	idx := strings.LastIndex(rawQuery, "&Sig=")
	if idx < 0 {
		return Callback{}, nil, "", fmt.Errorf("%w: missing Sig field", ErrMalformedCallback)
	}
	signed := rawQuery[:idx]

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Callback{}, nil, "", fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	for _, field := range []string{"Amount", "BasketID", "Error", "Sig"} {
		if !values.Has(field) {
			return Callback{}, nil, "", fmt.Errorf("%w: missing %s field", ErrMalformedCallback, field)
		}
	}

	amount, err := strconv.ParseInt(values.Get("Amount"), 10, 64)
	if err != nil {
		return Callback{}, nil, "", fmt.Errorf("%w: bad Amount: %v", ErrMalformedCallback, err)
	}
	basketID, err := strconv.ParseInt(values.Get("BasketID"), 10, 64)
	if err != nil {
		return Callback{}, nil, "", fmt.Errorf("%w: bad BasketID: %v", ErrMalformedCallback, err)
	}

	callback := Callback{
		AmountCents: amount,
		BasketID:    basketID,
		Auto:        values.Get("Auto"),
		ErrorCode:   values.Get("Error"),
	}
	return callback, []byte(signed), values.Get("Sig"), nil
}
