package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header value against an
// HMAC-SHA256 of the raw request body, using a constant-time comparison so
// the check cannot leak timing information about the expected digest.
func VerifySignature(secret []byte, header string, body []byte) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}

	sigBytes, err := hex.DecodeString(header[len(signaturePrefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(sigBytes, expected)
}
