package etransaction

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPair(t *testing.T) (*Signer, *Verifier) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey),
	})

	signer, err := NewSigner(privPEM)
	require.NoError(t, err)
	verifier, err := NewVerifier(pubPEM)
	require.NoError(t, err)
	return signer, verifier
}

func TestPaymentMessageFormat(t *testing.T) {
	message := PaymentMessage(1350, 42, "b2c9a1")
	assert.Equal(t, "Amount=1350&BasketID=42&Auto=b2c9a1&Error=00000\n", string(message))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, verifier := testKeyPair(t)
	message := PaymentMessage(1350, 42, "b2c9a1")

	sig, err := signer.Sign(message)
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify(message, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	signer, verifier := testKeyPair(t)

	sig, err := signer.Sign(PaymentMessage(1350, 42, "b2c9a1"))
	require.NoError(t, err)

	tampered := PaymentMessage(9999, 42, "b2c9a1")
	assert.ErrorIs(t, verifier.Verify(tampered, sig), ErrInvalidSignature)
}

func TestVerifyRejectsGarbageSignature(t *testing.T) {
	_, verifier := testKeyPair(t)
	message := PaymentMessage(1350, 42, "b2c9a1")

	assert.ErrorIs(t, verifier.Verify(message, "not base64 !!"), ErrInvalidSignature)
	assert.ErrorIs(t, verifier.Verify(message, "AAAA"), ErrInvalidSignature)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	signer, _ := testKeyPair(t)
	_, otherVerifier := testKeyPair(t)
	message := PaymentMessage(1350, 42, "b2c9a1")

	sig, err := signer.Sign(message)
	require.NoError(t, err)
	assert.ErrorIs(t, otherVerifier.Verify(message, sig), ErrInvalidSignature)
}

func TestParseCallback(t *testing.T) {
	rawQuery := "Amount=1350&BasketID=42&Auto=b2c9a1&Error=00000&Sig=" + url.QueryEscape("c2ln+x/y=")

	callback, signed, sig, err := ParseCallback(rawQuery)
	require.NoError(t, err)
	assert.Equal(t, int64(1350), callback.AmountCents)
	assert.Equal(t, int64(42), callback.BasketID)
	assert.Equal(t, "b2c9a1", callback.Auto)
	assert.Equal(t, SuccessCode, callback.ErrorCode)
	assert.Equal(t, "Amount=1350&BasketID=42&Auto=b2c9a1&Error=00000", string(signed))
	assert.Equal(t, "c2ln+x/y=", sig)
}

func TestParseCallbackSignedPartStopsAtLastSig(t *testing.T) {
	signer, verifier := testKeyPair(t)
	signedPart := "Amount=1350&BasketID=42&Auto=b2c9a1&Error=00000"
	sig, err := signer.Sign([]byte(signedPart))
	require.NoError(t, err)

	rawQuery := signedPart + "&Sig=" + url.QueryEscape(sig)
	_, signed, parsedSig, err := ParseCallback(rawQuery)
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify(signed, parsedSig))
}

func TestParseCallbackMissingFields(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
	}{
		{"no Sig", "Amount=1350&BasketID=42&Error=00000"},
		{"no Amount", "BasketID=42&Error=00000&Sig=abc"},
		{"no BasketID", "Amount=1350&Error=00000&Sig=abc"},
		{"no Error", "Amount=1350&BasketID=42&Sig=abc"},
		{"bad Amount", "Amount=a+lot&BasketID=42&Error=00000&Sig=abc"},
		{"bad BasketID", "Amount=1350&BasketID=x&Error=00000&Sig=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParseCallback(tt.rawQuery)
			assert.ErrorIs(t, err, ErrMalformedCallback)
		})
	}
}

func TestCallbackAuthorized(t *testing.T) {
	assert.True(t, Callback{ErrorCode: SuccessCode, Auto: "b2c9a1"}.Authorized())
	assert.False(t, Callback{ErrorCode: "00114", Auto: "b2c9a1"}.Authorized())
	assert.False(t, Callback{ErrorCode: SuccessCode}.Authorized())
}
