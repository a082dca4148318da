package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

// AuthType selects which credential authorizes outgoing calls.
type AuthType string

const (
	// AuthTenant is the app-level credential, no per-user consent required.
	AuthTenant AuthType = "tenant"
	// AuthUser is the OAuth credential scoped to one authenticated user.
	AuthUser AuthType = "user"
)

// Credential is a live bearer token with its expiry.
type Credential struct {
	Value     string
	ExpiresAt time.Time
	AuthType  AuthType
}

// TokenManager acquires and caches the access tokens that authorize every API
// call, refreshing them before expiry. It holds at most one live tenant
// credential and one live user credential. Access is serialized so that two
// near-simultaneous expiry detections produce a single refresh; the second
// caller observes the refreshed credential.
type TokenManager struct {
	appID     string
	appSecret string
	baseURL   string
	http      *http.Client
	now       func() time.Time

	mu           sync.Mutex
	tenant       *Credential
	user         *Credential
	refreshToken string
	fetches      int
}

// NewTokenManager returns a manager that exchanges appID/appSecret for tenant
// tokens against baseURL. httpClient may be nil.
func NewTokenManager(appID, appSecret, baseURL string, httpClient *http.Client) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultTimeout}
	}
	if baseURL == "" {
		baseURL = constants.DefaultBaseURL
	}
	return &TokenManager{
		appID:     appID,
		appSecret: appSecret,
		baseURL:   baseURL,
		http:      httpClient,
		now:       time.Now,
	}
}

// Token returns a currently valid bearer token for the given auth type. The
// cached credential is reused while now < expiry - safety margin; otherwise a
// fresh one is fetched, stored and returned.
func (tm *TokenManager) Token(ctx context.Context, at AuthType) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	cred := tm.tenant
	if at == AuthUser {
		cred = tm.user
	}
	if cred != nil && tm.now().Before(cred.ExpiresAt.Add(-constants.TokenSafetyMargin)) {
		return cred.Value, nil
	}

	if at == AuthUser {
		return tm.refreshUserLocked(ctx)
	}
	return tm.fetchTenantLocked(ctx)
}

// Invalidate drops the cached credential for the given auth type, forcing the
// next Token call to fetch a fresh one. Called when the store reports a token
// as expired despite the local expiry still being in the future.
func (tm *TokenManager) Invalidate(at AuthType) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if at == AuthUser {
		tm.user = nil
		return
	}
	tm.tenant = nil
}

// Fetches returns how many token requests have been made against the store.
func (tm *TokenManager) Fetches() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.fetches
}

type tenantTokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tenantTokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (tm *TokenManager) fetchTenantLocked(ctx context.Context) (string, error) {
	if tm.appID == "" || tm.appSecret == "" {
		return "", &APIError{Kind: KindAuth, Msg: constants.ErrNoAppCredentials.Error()}
	}

	var tr tenantTokenResponse
	status, err := tm.postJSON(ctx, "/auth/v3/tenant_access_token/internal",
		tenantTokenRequest{AppID: tm.appID, AppSecret: tm.appSecret}, &tr)
	if err != nil {
		return "", err
	}
	if tr.Code != constants.CodeOK {
		return "", &APIError{Kind: KindAuth, Code: tr.Code, Msg: tr.Msg, HTTPStatus: status}
	}

	tm.tenant = &Credential{
		Value:     tr.TenantAccessToken,
		ExpiresAt: tm.now().Add(time.Duration(tr.Expire) * time.Second),
		AuthType:  AuthTenant,
	}
	return tm.tenant.Value, nil
}

// AuthorizationURL builds the browser URL a user visits to grant access. The
// code delivered to redirectURI afterwards goes to ExchangeAuthorizationCode.
func (tm *TokenManager) AuthorizationURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("app_id", tm.appID)
	q.Set("redirect_uri", redirectURI)
	if state != "" {
		q.Set("state", state)
	}
	return tm.baseURL + "/authen/v1/authorize?" + q.Encode()
}

type userTokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type userTokenResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	} `json:"data"`
}

// ExchangeAuthorizationCode trades an OAuth authorization code for a user
// credential. Renewal afterwards goes through the stored refresh token, never
// the original code.
func (tm *TokenManager) ExchangeAuthorizationCode(ctx context.Context, code string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var ur userTokenResponse
	status, err := tm.postJSON(ctx, "/authen/v1/oidc/access_token",
		userTokenRequest{GrantType: "authorization_code", Code: code}, &ur)
	if err != nil {
		return err
	}
	return tm.storeUserLocked(status, &ur)
}

func (tm *TokenManager) refreshUserLocked(ctx context.Context) (string, error) {
	if tm.refreshToken == "" {
		return "", &APIError{Kind: KindAuth, Msg: constants.ErrNoRefreshToken.Error()}
	}

	var ur userTokenResponse
	status, err := tm.postJSON(ctx, "/authen/v1/oidc/refresh_access_token",
		userTokenRequest{GrantType: "refresh_token", RefreshToken: tm.refreshToken}, &ur)
	if err != nil {
		return "", err
	}
	if err := tm.storeUserLocked(status, &ur); err != nil {
		return "", err
	}
	return tm.user.Value, nil
}

func (tm *TokenManager) storeUserLocked(status int, ur *userTokenResponse) error {
	if ur.Code != constants.CodeOK {
		return &APIError{Kind: KindAuth, Code: ur.Code, Msg: ur.Msg, HTTPStatus: status}
	}
	tm.user = &Credential{
		Value:     ur.Data.AccessToken,
		ExpiresAt: tm.now().Add(time.Duration(ur.Data.ExpiresIn) * time.Second),
		AuthType:  AuthUser,
	}
	if ur.Data.RefreshToken != "" {
		tm.refreshToken = ur.Data.RefreshToken
	}
	return nil
}

func (tm *TokenManager) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, errors.Wrap(err, "marshal token request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tm.http.Do(req)
	if err != nil {
		return 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()
	tm.fetches++

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, errors.Wrap(constants.ErrInvalidResponse, err.Error())
	}
	return resp.StatusCode, nil
}
