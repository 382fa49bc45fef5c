// Package steam provides the authenticated client for the Steam Community
// and Web API endpoints the bridge proxies.
//
// Every privileged confirmation call computes a fresh time-based proof at
// call time; nothing here caches or reuses proofs. Vendor failures are
// surfaced with their raw message text and are never retried.
package steam

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"steam_bridge/internal/guard"
)

// Options configures a Client. Zero values fall back to the public vendor
// endpoints and the system clock.
type Options struct {
	CommunityURL string
	APIBaseURL   string
	Clock        func() time.Time
}

// Client is an authenticated vendor client. It is exclusively owned by one
// session record and released via Close.
type Client struct {
	http         *resty.Client
	communityURL string
	apiURL       string

	steamID     string
	accountName string
	sessionID   string
	accessToken string

	sharedSecret   string
	identitySecret string
	deviceID       string

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// NewClient creates an unauthenticated client. Requests carry no timeout and
// are never retried: a hung vendor call hangs the corresponding request.
func NewClient(opts Options) *Client {
	communityURL := opts.CommunityURL
	if communityURL == "" {
		communityURL = "https://steamcommunity.com"
	}
	apiURL := opts.APIBaseURL
	if apiURL == "" {
		apiURL = "https://api.steampowered.com"
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	httpClient := resty.New().
		SetHeader("User-Agent", "Mozilla/5.0 (Linux; Android 9) steam-bridge/1.0")

	return &Client{
		http:         httpClient,
		communityURL: strings.TrimSuffix(communityURL, "/"),
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		now:          now,
		done:         make(chan struct{}),
	}
}

// SteamID returns the account's 64-bit identifier, empty before login.
func (c *Client) SteamID() string { return c.steamID }

// AccountName returns the login name used to authenticate.
func (c *Client) AccountName() string { return c.accountName }

// SetSecrets stores the secret material used for confirmation proofs. An
// empty deviceID is derived from the account's steam ID once known.
func (c *Client) SetSecrets(sharedSecret, identitySecret, deviceID string) {
	c.sharedSecret = sharedSecret
	c.identitySecret = identitySecret
	c.deviceID = deviceID
}

// Secrets returns the stored secret material. Callers must not log or
// expose the returned values.
func (c *Client) Secrets() (sharedSecret, identitySecret, deviceID string) {
	return c.sharedSecret, c.identitySecret, c.deviceID
}

// Close releases the client, stopping any background polling it owns.
// Calls issued after Close fail.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) closedErr() error {
	select {
	case <-c.done:
		return fmt.Errorf("client closed")
	default:
		return nil
	}
}

// rsaKeyResponse is the vendor's password-encryption key envelope.
type rsaKeyResponse struct {
	Success      bool   `json:"success"`
	PublicKeyMod string `json:"publickey_mod"`
	PublicKeyExp string `json:"publickey_exp"`
	Timestamp    string `json:"timestamp"`
}

// doLoginResponse is the vendor's login envelope.
type doLoginResponse struct {
	Success            bool   `json:"success"`
	RequiresTwoFactor  bool   `json:"requires_twofactor"`
	Message            string `json:"message"`
	OAuth              string `json:"oauth"`
	TransferParameters struct {
		SteamID string `json:"steamid"`
	} `json:"transfer_parameters"`
}

// RequiresTwoFactor reports whether a login failure asks for a SteamGuard
// code, mirroring how the vendor phrases it.
func RequiresTwoFactor(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SteamGuard")
}

// Login authenticates with account name, password and an optional two-factor
// code. The password is RSA-encrypted with the vendor-supplied key before
// submission.
func (c *Client) Login(username, password, twoFactorCode string) error {
	if err := c.closedErr(); err != nil {
		return err
	}

	var keyResp rsaKeyResponse
	resp, err := c.http.R().
		SetQueryParam("username", username).
		SetResult(&keyResp).
		Get(c.communityURL + "/login/getrsakey/")
	if err != nil {
		return fmt.Errorf("fetching login key: %w", err)
	}
	if !resp.IsSuccess() || !keyResp.Success {
		return fmt.Errorf("login key request failed: status %d", resp.StatusCode())
	}

	encrypted, err := encryptPassword(password, keyResp.PublicKeyMod, keyResp.PublicKeyExp)
	if err != nil {
		return fmt.Errorf("encrypting password: %w", err)
	}

	var loginResp doLoginResponse
	resp, err = c.http.R().
		SetFormData(map[string]string{
			"username":          username,
			"password":          encrypted,
			"twofactorcode":     twoFactorCode,
			"rsatimestamp":      keyResp.Timestamp,
			"remember_login":    "true",
			"oauth_client_id":   "DE45CD61",
			"oauth_scope":       "read_profile write_profile read_client write_client",
			"donotcache":        fmt.Sprintf("%d", c.now().UnixMilli()),
			"emailauth":         "",
			"captchagid":        "-1",
			"captcha_text":      "",
			"emailsteamid":      "",
			"loginfriendlyname": "",
		}).
		SetResult(&loginResp).
		Post(c.communityURL + "/login/dologin/")
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("login failed: status %d", resp.StatusCode())
	}
	if !loginResp.Success {
		message := loginResp.Message
		if message == "" && loginResp.RequiresTwoFactor {
			message = "SteamGuard Mobile Authenticator code required"
		}
		if message == "" {
			message = "login failed"
		}
		return fmt.Errorf("%s", message)
	}

	c.accountName = username
	c.steamID = loginResp.TransferParameters.SteamID
	c.sessionID = c.cookieValue("sessionid")
	if c.sessionID == "" {
		c.sessionID = randomSessionCookie()
		c.http.SetCookie(&http.Cookie{Name: "sessionid", Value: c.sessionID, Path: "/"})
	}

	if loginResp.OAuth != "" {
		var oauth struct {
			SteamID    string `json:"steamid"`
			OAuthToken string `json:"oauth_token"`
		}
		if err := json.Unmarshal([]byte(loginResp.OAuth), &oauth); err == nil {
			c.accessToken = oauth.OAuthToken
			if c.steamID == "" {
				c.steamID = oauth.SteamID
			}
		}
	}

	if c.deviceID == "" && c.steamID != "" {
		c.deviceID = guard.DeviceIDForSteamID(c.steamID)
	}

	log.Printf("[Steam] Logged in as %s (%s)", username, c.steamID)
	return nil
}

// LoginWithSharedSecret computes the auth code from the shared secret at call
// time and logs in with it.
func (c *Client) LoginWithSharedSecret(username, password, sharedSecret string) error {
	code := ""
	if sharedSecret != "" {
		var err error
		code, err = guard.AuthCode(sharedSecret, c.now())
		if err != nil {
			return fmt.Errorf("generating auth code: %w", err)
		}
	}
	if err := c.Login(username, password, code); err != nil {
		return err
	}
	c.sharedSecret = sharedSecret
	return nil
}

// StartPolling watches for active received offers on a fixed interval until
// the client is closed, logging count changes. Mirrors the offer polling the
// trade manager runs for each logged-in account.
func (c *Client) StartPolling(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		lastCount := -1
		for {
			select {
			case <-ticker.C:
				offers, err := c.IncomingOffers()
				if err != nil {
					log.Printf("[Steam] Offer poll for %s failed: %v", c.steamID, err)
					continue
				}
				if len(offers) != lastCount {
					log.Printf("[Steam] %s has %d active incoming offers", c.steamID, len(offers))
					lastCount = len(offers)
				}
			case <-c.done:
				return
			}
		}
	}()
}

// encryptPassword RSA-encrypts a password with the vendor's hex-encoded
// modulus and exponent.
func encryptPassword(password, mod, exp string) (string, error) {
	n, ok := new(big.Int).SetString(mod, 16)
	if !ok {
		return "", fmt.Errorf("invalid key modulus")
	}
	e, ok := new(big.Int).SetString(exp, 16)
	if !ok {
		return "", fmt.Errorf("invalid key exponent")
	}

	pub := &rsa.PublicKey{N: n, E: int(e.Int64())}
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// cookieValue reads a cookie from the client's jar for the community host.
func (c *Client) cookieValue(name string) string {
	jar := c.http.GetClient().Jar
	if jar == nil {
		return ""
	}
	u, err := url.Parse(c.communityURL)
	if err != nil {
		return ""
	}
	for _, cookie := range jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func randomSessionCookie() string {
	raw := make([]byte, 12)
	rand.Read(raw)
	return hex.EncodeToString(raw)
}
