package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Steam sign-in is OpenID 2.0, not OAuth2: the callback parameters must be
// posted back to Steam with mode=check_authentication and are only trusted
// when Steam answers is_valid:true.

const (
	DefaultOpenIDEndpoint = "https://steamcommunity.com/openid/login"
	claimedIDPrefix       = "https://steamcommunity.com/openid/id/"
)

var (
	ErrOpenIDInvalid   = errors.New("openid assertion rejected")
	ErrOpenIDClaimedID = errors.New("malformed claimed_id")
)

// SteamOpenID performs the Steam OpenID 2.0 handshake.
type SteamOpenID struct {
	// Endpoint is overridable in tests.
	Endpoint string
	HTTP     *http.Client
}

func NewSteamOpenID() SteamOpenID {
	return SteamOpenID{
		Endpoint: DefaultOpenIDEndpoint,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthURL builds the checkid_setup redirect target. returnTo must be the
// absolute callback URL, state included.
func (s SteamOpenID) AuthURL(returnTo string) string {
	realm := realmOf(returnTo)
	params := url.Values{
		"openid.ns":         {"http://specs.openid.net/auth/2.0"},
		"openid.mode":       {"checkid_setup"},
		"openid.return_to":  {returnTo},
		"openid.realm":      {realm},
		"openid.identity":   {"http://specs.openid.net/auth/2.0/identifier_select"},
		"openid.claimed_id": {"http://specs.openid.net/auth/2.0/identifier_select"},
	}
	return s.Endpoint + "?" + params.Encode()
}

// Verify re-posts the callback parameters to Steam and extracts the SteamID
// from the claimed identity once Steam confirms the assertion.
func (s SteamOpenID) Verify(ctx context.Context, params url.Values) (string, error) {
	check := url.Values{}
	for k, vs := range params {
		if strings.HasPrefix(k, "openid.") {
			check[k] = vs
		}
	}
	check.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint,
		strings.NewReader(check.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("openid check failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openid check read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !isValidAssertion(string(body)) {
		return "", ErrOpenIDInvalid
	}

	return SteamIDFromClaimedID(params.Get("openid.claimed_id"))
}

// isValidAssertion looks for the is_valid:true line in a key-value response.
func isValidAssertion(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "is_valid:true" {
			return true
		}
	}
	return false
}

// SteamIDFromClaimedID parses the 17-digit id off the claimed identity URL.
func SteamIDFromClaimedID(claimedID string) (string, error) {
	id, ok := strings.CutPrefix(claimedID, claimedIDPrefix)
	if !ok {
		return "", ErrOpenIDClaimedID
	}
	if len(id) != 17 || strings.Trim(id, "0123456789") != "" {
		return "", ErrOpenIDClaimedID
	}
	return id, nil
}

func realmOf(returnTo string) string {
	u, err := url.Parse(returnTo)
	if err != nil {
		return returnTo
	}
	return u.Scheme + "://" + u.Host
}
