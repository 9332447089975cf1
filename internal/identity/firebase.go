package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/angelmondragon/ecofinds-storefront/pkg/gcp"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Provider checks credentials against the identity service.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Account, error)
	SignUp(ctx context.Context, email, password, displayName string) (Account, error)
	SignOut(ctx context.Context, uid string) error
}

type adminClient interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
}

// FirebaseProvider signs users in through the Identity Toolkit REST API and
// revokes refresh tokens through the Admin SDK.
type FirebaseProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
	admin    adminClient
	logg     *logger.Logger
}

// NewFirebaseProvider builds the provider. The admin client is optional; without
// it sign-out only ends the local session.
func NewFirebaseProvider(ctx context.Context, fbCfg config.FirebaseConfig, gcpCfg config.GCPConfig, logg *logger.Logger) (*FirebaseProvider, error) {
	if strings.TrimSpace(fbCfg.APIKey) == "" {
		return nil, fmt.Errorf("firebase api key is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	p := &FirebaseProvider{
		endpoint: strings.TrimRight(fbCfg.IdentityEndpoint, "/"),
		apiKey:   fbCfg.APIKey,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logg: logg,
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: gcpCfg.ProjectID}, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		logg.WarnErr(ctx, "identity.firebase_app_init_failed", err)
		return p, nil
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		logg.WarnErr(ctx, "identity.firebase_auth_init_failed", err)
		return p, nil
	}
	p.admin = authClient
	return p, nil
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type updateRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (Account, error) {
	var res accountResponse
	if err := p.call(ctx, "accounts:signInWithPassword", passwordRequest{Email: email, Password: password, ReturnSecureToken: true}, &res); err != nil {
		return Account{}, err
	}
	account := Account{UID: res.LocalID, Email: res.Email, DisplayName: res.DisplayName}
	if account.DisplayName == "" && p.admin != nil {
		if user, err := p.admin.GetUser(ctx, res.LocalID); err == nil && user.UserInfo != nil {
			account.DisplayName = user.DisplayName
		}
	}
	return account, nil
}

// SignUp creates the account and sets its display name.
func (p *FirebaseProvider) SignUp(ctx context.Context, email, password, displayName string) (Account, error) {
	var res accountResponse
	if err := p.call(ctx, "accounts:signUp", passwordRequest{Email: email, Password: password, ReturnSecureToken: true}, &res); err != nil {
		return Account{}, err
	}
	account := Account{UID: res.LocalID, Email: res.Email, DisplayName: displayName}
	if displayName != "" {
		var updated accountResponse
		if err := p.call(ctx, "accounts:update", updateRequest{IDToken: res.IDToken, DisplayName: displayName}, &updated); err != nil {
			p.logg.WarnErr(p.logg.WithUserID(ctx, res.LocalID), "identity.set_display_name_failed", err)
		}
	}
	return account, nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	if p.admin == nil {
		return nil
	}
	if err := p.admin.RevokeRefreshTokens(ctx, uid); err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil
		}
		return &ProviderError{Code: ProviderNetworkFailed, Err: err}
	}
	return nil
}

func (p *FirebaseProvider) call(ctx context.Context, method string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	target := p.endpoint + "/" + method + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return &ProviderError{Code: ProviderNetworkFailed, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ProviderError{Code: ProviderNetworkFailed, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil || apiErr.Error.Message == "" {
			return &ProviderError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode)}
		}
		return &ProviderError{Code: parseProviderCode(apiErr.Error.Message), Message: apiErr.Error.Message}
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func newRESTProvider(endpoint, apiKey string, client *http.Client, admin adminClient) *FirebaseProvider {
	return &FirebaseProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     client,
		admin:    admin,
		logg:     logger.Nop(),
	}
}
