package googleauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyDER  []byte
)

// newTestKey returns a process-wide RSA key; generating one per test is slow.
func newTestKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()

	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			panic(err)
		}
		testKey, testKeyDER = key, der
	})

	return testKey, testKeyDER
}

// pemLines renders der as a PEM body joined with sep, 64 columns per line.
func pemLines(der []byte, sep string) string {
	body := base64.StdEncoding.EncodeToString(der)

	lines := []string{pemBeginMarker}
	for len(body) > 64 {
		lines = append(lines, body[:64])
		body = body[64:]
	}
	lines = append(lines, body, pemEndMarker)

	return strings.Join(lines, sep) + sep
}
