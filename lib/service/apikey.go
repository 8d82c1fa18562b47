// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// IssueAPIKey derives an ingest API key for clientID from the shared
// secret. The key has the form "clientID.signature" where signature is
// the base64url-encoded (unpadded) HMAC-SHA256 of the client ID under
// the secret. Keys are deterministic: reissuing for the same client ID
// and secret yields the same key, so operators can regenerate a lost
// key without rotating the secret.
func IssueAPIKey(secret []byte, clientID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(clientID))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return clientID + "." + signature
}

// VerifyAPIKey checks an ingest API key against the shared secret and
// returns the embedded client ID on success.
//
// The returned error describes the verification failure and is safe to
// log: it never includes the expected signature, so a logged rejection
// cannot leak key material.
func VerifyAPIKey(secret []byte, key string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("api key: secret is empty")
	}
	if key == "" {
		return "", errors.New("api key: key is empty")
	}

	clientID, providedSignature, found := strings.Cut(key, ".")
	if !found || clientID == "" || providedSignature == "" {
		return "", errors.New("api key: malformed key, want clientID.signature")
	}

	provided, err := base64.RawURLEncoding.DecodeString(providedSignature)
	if err != nil {
		return "", fmt.Errorf("api key: invalid base64url signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(clientID))
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, provided) {
		return "", errors.New("api key: signature mismatch")
	}
	return clientID, nil
}
