package httpsig

import (
	"context"
	"crypto"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-fed/httpsig"
)

var (
	// ErrMalformed is returned when the Signature header cannot be parsed
	// or does not cover the required headers.
	ErrMalformed = errors.New("signature verification failed")

	// ErrKeyNotFound is returned when the public key named by keyId cannot be resolved.
	ErrKeyNotFound = errors.New("public key not found")

	// ErrInvalidSignature is returned when the signature or body digest does not match.
	ErrInvalidSignature = errors.New("invalid signature")
)

// KeyFunc resolves a keyId to the signer's public key.
type KeyFunc func(ctx context.Context, keyID string) (crypto.PublicKey, error)

// Verify verifies the signature of the request, returning the keyId of the signer.
// body is the request body the caller has already read; when it is not empty the
// signature must cover the Digest header and the digest must match.
// The returned error wraps one of ErrMalformed, ErrKeyNotFound or ErrInvalidSignature.
func Verify(req *http.Request, body []byte, keyFn KeyFunc) (string, error) {
	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	required := []string{RequestTarget, "host", "date"}
	if len(body) > 0 {
		required = append(required, "digest")
	}
	signed := SignedHeaders(req)
	for _, h := range required {
		if !contains(signed, h) {
			return "", fmt.Errorf("%w: header %q is not signed", ErrMalformed, h)
		}
	}
	if contains(signed, "digest") {
		if err := VerifyDigest(req, body); err != nil {
			return "", err
		}
	}

	keyID := verifier.KeyId()
	pubKey, err := keyFn(req.Context(), keyID)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrKeyNotFound, keyID, err)
	}
	if err := verifier.Verify(pubKey, httpsig.RSA_SHA256); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return keyID, nil
}

// VerifyDigest checks the SHA-256 value of the Digest header against body.
func VerifyDigest(req *http.Request, body []byte) error {
	header := req.Header.Get("Digest")
	if header == "" {
		return fmt.Errorf("%w: Digest header is missing", ErrInvalidSignature)
	}
	want := sha256.Sum256(body)
	for _, part := range strings.Split(header, ",") {
		alg, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(alg, "SHA-256") {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
		if subtle.ConstantTimeCompare(got, want[:]) != 1 {
			return fmt.Errorf("%w: digest mismatch", ErrInvalidSignature)
		}
		return nil
	}
	return fmt.Errorf("%w: no SHA-256 digest", ErrInvalidSignature)
}

// SignedHeaders returns the lower cased header names listed in the headers
// parameter of the request's signature. The default is date.
func SignedHeaders(req *http.Request) []string {
	params := signatureParams(signatureHeader(req))
	headers, ok := params["headers"]
	if !ok || strings.TrimSpace(headers) == "" {
		return []string{"date"}
	}
	return strings.Fields(strings.ToLower(headers))
}

func signatureHeader(req *http.Request) string {
	if sig := req.Header.Get("Signature"); sig != "" {
		return sig
	}
	auth := req.Header.Get("Authorization")
	if v, ok := strings.CutPrefix(auth, "Signature "); ok {
		return v
	}
	return ""
}

// signatureParams splits a signature header into its key="value" parameters.
func signatureParams(header string) map[string]string {
	params := make(map[string]string)
	for header != "" {
		var k, v string
		k, header, _ = strings.Cut(header, "=")
		k = strings.TrimSpace(k)
		if strings.HasPrefix(header, `"`) {
			end := strings.Index(header[1:], `"`)
			if end == -1 {
				v, header = header[1:], ""
			} else {
				v, header = header[1:end+1], header[end+2:]
			}
		} else {
			v, header, _ = strings.Cut(header, ",")
		}
		header = strings.TrimLeft(header, ", ")
		if k != "" {
			params[k] = v
		}
	}
	return params
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
