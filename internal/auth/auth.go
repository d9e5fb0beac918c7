// Package auth models the credential file the completion engine reads at
// startup. The OAuth device-code dance that produces this file is handled
// out-of-band by a separate login command; this package only loads what
// that flow writes, and reports plainly whether completion can be enabled
// at all.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Credentials holds an API URL plus a bearer token, an API key, or both
// (Header prefers the token).
type Credentials struct {
	APIURL      string `json:"apiUrl"`
	AccessToken string `json:"accessToken,omitempty"`
	APIKey      string `json:"apiKey,omitempty"`
}

// Authenticated reports whether a request can be authorized at all.
func (c Credentials) Authenticated() bool {
	return c.AccessToken != "" || c.APIKey != ""
}

// Header returns the Authorization-style header name and value to send with
// every completion/chat/session request. A bearer token takes precedence
// over an API key.
func (c Credentials) Header() (name, value string) {
	if c.AccessToken != "" {
		return "Authorization", "Bearer " + c.AccessToken
	}
	if c.APIKey != "" {
		return "API-KEY", c.APIKey
	}
	return "", ""
}

// Load reads credentials from path. A missing file is not an error — it
// reports ok=false so the caller can disable completion at init rather
// than fail startup.
func Load(path string) (creds Credentials, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, fmt.Errorf("reading credentials file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, false, fmt.Errorf("parsing credentials file %s: %w", path, err)
	}

	return creds, creds.Authenticated(), nil
}

// Save writes creds to path as indented JSON. It does not create parent
// directories; they must already exist. Present for symmetry and for tests
// that round-trip a file; the
// device-code flow that normally produces this file is not implemented
// here.
func Save(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "\t")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials file %s: %w", path, err)
	}
	return nil
}
