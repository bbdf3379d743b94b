package capability

import (
	"crypto/rand"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// keyPattern matches spec.md §6's API key shape: an ASCII tag, "_", then
// exactly 32 alphanumeric characters.
var keyPattern = regexp.MustCompile(`^([A-Za-z0-9]+)_([A-Za-z0-9]{32})$`)

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// splitAPIKey validates the key format and returns its tag and secret.
func splitAPIKey(raw string) (tag, secret string, ok bool) {
	m := keyPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IssueAPIKey generates a new key for tag, returning the plaintext form to
// hand to the caller once (it is never recoverable afterward) and the
// record to persist via KeyStore.Put.
func IssueAPIKey(tag, actorID string, permissions, ipAllowlist []string) (plaintext string, record *APIKey, err error) {
	secret, err := randomSecret(32)
	if err != nil {
		return "", nil, err
	}
	plaintext = fmt.Sprintf("%s_%s", tag, secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	record = &APIKey{
		Tag:         tag,
		SecretHash:  string(hash),
		ActorID:     actorID,
		Permissions: permissions,
		IPAllowlist: ipAllowlist,
	}
	return plaintext, record, nil
}

func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = secretAlphabet[int(b)%len(secretAlphabet)]
	}
	return string(out), nil
}
