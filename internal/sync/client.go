package sync

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/existflow/irontrack/internal/tracker"
)

// Config holds sync configuration
type Config struct {
	ServerURL     string `json:"server_url"`
	Token         string `json:"token"`
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	LastSync      int64  `json:"last_sync"`
	LastSyncAt    int64  `json:"last_sync_at,omitempty"`
	HasSyncedOnce bool   `json:"has_synced_once"`
	AutoSync      bool   `json:"auto_sync"`
	EncryptionKey string `json:"encryption_key,omitempty"` // Base64 encoded
	Salt          string `json:"salt,omitempty"`           // Base64 encoded salt for key derivation
}

// Client is the sync client
type Client struct {
	config     *Config
	configPath string
	httpClient *http.Client
	crypto     *Crypto
}

// NewClient creates a new sync client
func NewClient() (*Client, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(home, ".irontrack", "sync.json")

	c := &Client{
		configPath: configPath,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	// Load existing config
	c.loadConfig()

	return c, nil
}

func (c *Client) loadConfig() {
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.config = &Config{
			ServerURL: "http://localhost:8080",
			AutoSync:  true,
		}
		return
	}

	c.config = &Config{}
	json.Unmarshal(data, c.config)
}

func (c *Client) saveConfig() error {
	dir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0600)
}

// SetServer sets the sync server URL
func (c *Client) SetServer(url string) error {
	c.config.ServerURL = url
	return c.saveConfig()
}

// IsLoggedIn returns true if user is logged in
func (c *Client) IsLoggedIn() bool {
	return c.config.Token != ""
}

// SetAutoSync toggles background syncing
func (c *Client) SetAutoSync(enabled bool) error {
	c.config.AutoSync = enabled
	return c.saveConfig()
}

// CanAutoSync reports whether background sync may run. It requires a login
// and one completed manual sync, so the first merge of a device always
// happens where the user can see it.
func (c *Client) CanAutoSync() bool {
	return c.IsLoggedIn() && c.config.AutoSync && c.config.HasSyncedOnce
}

// SetSyncedOnce records that a full sync has completed on this device
func (c *Client) SetSyncedOnce() error {
	c.config.HasSyncedOnce = true
	return c.saveConfig()
}

// ShouldAutoSync reports whether a CLI invocation should sync opportunistically.
// CLI runs are short-lived, so instead of a background loop they sync at most
// every 12 hours unless forced.
func (c *Client) ShouldAutoSync() bool {
	if !c.IsLoggedIn() || !c.config.AutoSync || !c.config.HasSyncedOnce {
		return false
	}
	return time.Since(time.Unix(c.config.LastSyncAt, 0)) > 12*time.Hour
}

// UpdateSyncTime records when the last opportunistic sync ran
func (c *Client) UpdateSyncTime() error {
	c.config.LastSyncAt = time.Now().Unix()
	return c.saveConfig()
}

type authResult struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Register creates a new account
func (c *Client) Register(email, displayName, password string) error {
	body, _ := json.Marshal(map[string]string{
		"email":        email,
		"display_name": displayName,
		"password":     password,
	})

	resp, err := c.httpClient.Post(
		c.config.ServerURL+"/api/v1/register",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return &tracker.AuthError{Kind: tracker.AuthErrorTransient, Message: "failed to connect", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &tracker.AuthError{Kind: authErrorKind(resp.StatusCode), Message: fmt.Sprintf("register failed: %s", string(respBody))}
	}

	var result authResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	c.config.Token = result.Token
	c.config.UserID = result.UserID
	c.config.Email = email
	return c.saveConfig()
}

// Login authenticates with email and password
func (c *Client) Login(email, password string) error {
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	resp, err := c.httpClient.Post(
		c.config.ServerURL+"/api/v1/login",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return &tracker.AuthError{Kind: tracker.AuthErrorTransient, Message: "failed to connect", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &tracker.AuthError{Kind: authErrorKind(resp.StatusCode), Message: fmt.Sprintf("login failed: %s", string(respBody))}
	}

	var result authResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	c.config.Token = result.Token
	c.config.UserID = result.UserID
	c.config.Email = email
	return c.saveConfig()
}

// RequestMagicLink asks the server to issue a passwordless login token for
// the email. The token comes back in the response so the CLI can print it;
// a hosted deployment would mail it instead.
func (c *Client) RequestMagicLink(email string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email})

	resp, err := c.httpClient.Post(
		c.config.ServerURL+"/api/v1/magic-link",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", &tracker.AuthError{Kind: tracker.AuthErrorTransient, Message: "failed to connect", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("magic link request failed: %s", string(respBody))
	}

	var result struct {
		Message string `json:"message"`
		Token   string `json:"token,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// VerifyMagicLink exchanges a magic link token for a session
func (c *Client) VerifyMagicLink(token string) error {
	resp, err := c.httpClient.Get(c.config.ServerURL + "/api/v1/magic-link/" + token)
	if err != nil {
		return &tracker.AuthError{Kind: tracker.AuthErrorTransient, Message: "failed to connect", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &tracker.AuthError{Kind: authErrorKind(resp.StatusCode), Message: fmt.Sprintf("magic link verify failed: %s", string(respBody))}
	}

	var result struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	c.config.Token = result.Token
	c.config.UserID = result.UserID
	c.config.Email = result.Email
	return c.saveConfig()
}

// Logout clears the session
func (c *Client) Logout() error {
	c.config.Token = ""
	c.config.UserID = ""
	c.config.Email = ""
	c.config.LastSync = 0
	c.config.HasSyncedOnce = false
	return c.saveConfig()
}

// GetStatus returns current sync status
func (c *Client) GetStatus() (string, string, int64) {
	return c.config.ServerURL, c.config.Email, c.config.LastSync
}

// UserID returns the server-side account id, empty when logged out
func (c *Client) UserID() string {
	return c.config.UserID
}

// GetEncryptionKey returns the display key (first 16 chars)
func (c *Client) GetEncryptionKey() string {
	return c.config.EncryptionKey
}

// GenerateEncryptionKey generates encryption key from password
func (c *Client) GenerateEncryptionKey(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}

	// Store salt as base64
	c.config.Salt = base64.StdEncoding.EncodeToString(salt)

	// Generate display key
	c.config.EncryptionKey = DeriveKeyDisplay(password, salt)

	if err := c.saveConfig(); err != nil {
		return "", err
	}

	return c.config.EncryptionKey, nil
}

// GetCrypto returns a Crypto instance for encryption/decryption
func (c *Client) GetCrypto(password string) (*Crypto, error) {
	if c.config.Salt == "" {
		return nil, fmt.Errorf("no encryption key configured, run 'irontrack sync key' first")
	}

	salt, err := base64.StdEncoding.DecodeString(c.config.Salt)
	if err != nil {
		return nil, err
	}

	return NewCrypto(password, salt), nil
}

// authErrorKind classifies an HTTP status: 4xx means the credentials are
// wrong, anything else is worth retrying.
func authErrorKind(status int) tracker.AuthErrorKind {
	if status >= 400 && status < 500 {
		return tracker.AuthErrorCredentials
	}
	return tracker.AuthErrorTransient
}
