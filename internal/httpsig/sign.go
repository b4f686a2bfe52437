// Package httpsig implements the HTTP Signature scheme as defined in draft-cavage-http-signatures-10.
package httpsig

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// RequestTarget is the pseudo-header used to sign the request target.
	RequestTarget = "(request-target)"
)

// Sign signs the request using the given keyID and privateKey.
// POST requests cover (request-target), host, date and digest; the Digest
// header is computed from body. GET requests cover (request-target), host,
// date and accept.
func Sign(req *http.Request, keyID string, privateKey crypto.PrivateKey, body []byte) error {
	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("unsupported private key type %T", privateKey)
	}
	req.Header.Set("Date", time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")) // Date must be in GMT, not UTC 🤯
	headersToSign := []string{RequestTarget, "host", "date"}
	switch req.Method {
	case "GET", "HEAD":
		headersToSign = append(headersToSign, "accept")
	default:
		headersToSign = append(headersToSign, "digest")
		req.Header.Set("Digest", Digest(body))
	}

	s, err := signingString(req, headersToSign)
	if err != nil {
		return err
	}
	hash := sha256.Sum256([]byte(s))
	sig, err := rsa.SignPKCS1v15(rand.Reader, rsaKey, crypto.SHA256, hash[:])
	if err != nil {
		return err
	}
	enc := base64.StdEncoding.EncodeToString(sig)
	req.Header.Set("Signature", fmt.Sprintf(`keyId="%s",algorithm="rsa-sha256",headers="%s",signature="%s"`, keyID, strings.Join(headersToSign, " "), enc))
	return nil
}

// Digest returns the value of a Digest header for body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// signingString builds the string covered by the signature from the named headers.
func signingString(req *http.Request, headers []string) (string, error) {
	var sb bytes.Buffer
	for _, header := range headers {
		switch header = strings.ToLower(header); header {
		case RequestTarget:
			sb.WriteString("(request-target): ")
			sb.WriteString(strings.ToLower(req.Method))
			sb.WriteString(" ")
			sb.WriteString(req.URL.Path)
			if req.URL.RawQuery != "" {
				sb.WriteString("?")
				sb.WriteString(req.URL.RawQuery)
			}
		case "host":
			host := req.Host
			if host == "" {
				host = req.URL.Host
			}
			sb.WriteString("host: ")
			sb.WriteString(host)
		case "date", "accept", "digest", "content-type":
			sb.WriteString(header)
			sb.WriteString(": ")
			sb.WriteString(req.Header.Get(header))
		default:
			return "", errors.New("unknown header to sign: " + header)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
