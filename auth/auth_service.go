package auth

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/authcodes"
	"github.com/jrsteele09/feedback-mcp-gateway/clients"
	interrors "github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/utils"
	"github.com/jrsteele09/feedback-mcp-gateway/oauthmodel"
	"github.com/jrsteele09/feedback-mcp-gateway/token"
	"github.com/pkg/errors"
)

const (
	defaultAuthCodeTimeout = 10 * time.Minute
)

// Repos holds all repository dependencies for the AuthorizationService
type Repos struct {
	Clients clients.Repo   // Registered OAuth clients
	Codes   authcodes.Repo // Outstanding authorization codes
}

// AuthorizationService implements the OAuth 2.1 steps: discovery, dynamic
// registration, authorize and token. It also validates bearer tokens for the MCP endpoint.
type AuthorizationService struct {
	repos       Repos
	tokens      *token.Manager
	validator   *Validator
	issuer      string
	codeTimeout time.Duration
	tokenLength int
	metadata    []byte
	nowTime     func() time.Time
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithAuthCodeTimeout sets how long an issued authorization code stays redeemable.
func WithAuthCodeTimeout(d time.Duration) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		if d > 0 {
			as.codeTimeout = d
		}
	}
}

// WithTokenLength sets the number of random bytes behind client ids, secrets and codes.
func WithTokenLength(n int) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		if n >= 16 {
			as.tokenLength = n
		}
	}
}

// NewAuthorizationService initializes a new AuthorizationService. issuer is the
// public base URL the endpoints are advertised under.
func NewAuthorizationService(
	issuer string,
	repos Repos,
	tokens *token.Manager,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if repos.Clients == nil {
		return nil, errors.New("[NewAuthorizationService] Clients repo is required")
	}
	if repos.Codes == nil {
		return nil, errors.New("[NewAuthorizationService] Codes repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthorizationService] token manager is required")
	}
	if !oauthmodel.IsAbsoluteURI(issuer) {
		return nil, errors.Errorf("[NewAuthorizationService] issuer %q must be an absolute URL", issuer)
	}

	as := &AuthorizationService{
		repos:       repos,
		tokens:      tokens,
		validator:   NewValidator(),
		issuer:      strings.TrimRight(issuer, "/"),
		codeTimeout: defaultAuthCodeTimeout,
		tokenLength: utils.OpaqueTokenBytes,
		nowTime:     time.Now,
	}

	for _, opt := range options {
		opt(as)
	}

	metadata, err := json.Marshal(oauthmodel.AuthorizationServerMetadata{
		Issuer:                            as.issuer,
		AuthorizationEndpoint:             as.issuer + oauthmodel.PathAuthorize,
		TokenEndpoint:                     as.issuer + oauthmodel.PathToken,
		RegistrationEndpoint:              as.issuer + oauthmodel.PathRegister,
		ResponseTypesSupported:            []oauthmodel.ResponseType{oauthmodel.CodeResponseType},
		GrantTypesSupported:               supportedGrantTypes(),
		TokenEndpointAuthMethodsSupported: []oauthmodel.AuthMethodType{oauthmodel.AuthMethodNone, oauthmodel.AuthMethodClientSecretPost},
		CodeChallengeMethodsSupported:     []oauthmodel.CodeMethodType{oauthmodel.CodeMethodTypeS256},
	})
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthorizationService] marshal metadata")
	}
	as.metadata = metadata

	return as, nil
}

// Issuer returns the issuer URL.
func (as *AuthorizationService) Issuer() string {
	return as.issuer
}

// Metadata returns the authorization server metadata document. The bytes are
// computed once, so every call returns an identical document.
func (as *AuthorizationService) Metadata() []byte {
	out := make([]byte, len(as.metadata))
	copy(out, as.metadata)
	return out
}

// ProtectedResourceMetadata describes resource as protected by this issuer.
func (as *AuthorizationService) ProtectedResourceMetadata(resource string) ([]byte, error) {
	b, err := json.Marshal(oauthmodel.ProtectedResourceMetadata{
		Resource:               resource,
		AuthorizationServers:   []string{as.issuer},
		BearerMethodsSupported: []string{"header"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationService.ProtectedResourceMetadata] marshal")
	}
	return b, nil
}

// RegisterClient performs dynamic client registration from a JSON body.
func (as *AuthorizationService) RegisterClient(body []byte) (*oauthmodel.RegistrationResponse, error) {
	var req oauthmodel.RegistrationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, invalidRequest("registration body is not valid JSON")
	}
	for _, uri := range req.RedirectURIs {
		if !oauthmodel.IsAbsoluteURI(uri) {
			return nil, invalidRedirectURI("redirect_uri " + uri + " is not an absolute URI")
		}
	}

	clientID, err := utils.RandomString(as.tokenLength)
	if err != nil {
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.RegisterClient] client id"))
	}

	now := as.nowTime()
	client := &clients.Client{
		ID:           clientID,
		RedirectURIs: append([]string{}, req.RedirectURIs...),
		Name:         req.ClientName,
		AuthMethod:   clients.AuthMethodNone,
		CreatedAt:    now,
	}

	resp := &oauthmodel.RegistrationResponse{
		ClientID:                clientID,
		ClientIDIssuedAt:        now.Unix(),
		RedirectURIs:            client.RedirectURIs,
		ClientName:              req.ClientName,
		GrantTypes:              supportedGrantTypes(),
		ResponseTypes:           []oauthmodel.ResponseType{oauthmodel.CodeResponseType},
		TokenEndpointAuthMethod: oauthmodel.AuthMethodNone,
	}

	if req.WantsSecret() {
		secret, err := utils.RandomString(as.tokenLength)
		if err != nil {
			return nil, serverError(errors.Wrap(err, "[AuthorizationService.RegisterClient] client secret"))
		}
		if err := client.SetSecret(secret); err != nil {
			return nil, serverError(errors.Wrap(err, "[AuthorizationService.RegisterClient] hash secret"))
		}
		client.AuthMethod = clients.AuthMethodSecretPost
		resp.ClientSecret = secret
		resp.ClientSecretExpiresAt = utils.Ptr(int64(0))
		resp.TokenEndpointAuthMethod = oauthmodel.AuthMethodClientSecretPost
	}

	if err := as.repos.Clients.Upsert(client); err != nil {
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.RegisterClient] repos.Clients.Upsert"))
	}
	return resp, nil
}

// ValidateAuthorizeRequest checks an authorize request without creating any
// state. It returns the client and the parameters with the redirect URI resolved.
// Errors are not safe to redirect with: the redirect URI is not trusted yet.
func (as *AuthorizationService) ValidateAuthorizeRequest(params *oauthmodel.AuthorizationParameters) (*clients.Client, *oauthmodel.AuthorizationParameters, error) {
	if params == nil || strings.TrimSpace(params.ClientID) == "" {
		return nil, nil, invalidRequest(oauthmodel.ErrMissingClientID.Error())
	}

	client, err := as.repos.Clients.Get(params.ClientID)
	if err != nil {
		return nil, nil, unknownClient()
	}

	if err := params.Validate(); err != nil {
		return nil, nil, invalidRequest(err.Error())
	}

	redirectURI, err := as.validator.ResolveRedirectURI(client, params.RedirectURI)
	if err != nil {
		return nil, nil, invalidRedirectURI(err.Error())
	}

	resolved := *params
	resolved.RedirectURI = redirectURI
	return client, &resolved, nil
}

// Approve mints an authorization code for the request and returns the URL the
// user agent should be redirected to.
//
// Approval is implicit: whoever submits the consent form is trusted. The consent
// page itself is the trust boundary.
func (as *AuthorizationService) Approve(params *oauthmodel.AuthorizationParameters) (string, error) {
	_, resolved, err := as.ValidateAuthorizeRequest(params)
	if err != nil {
		return "", err
	}

	code, err := utils.RandomString(as.tokenLength)
	if err != nil {
		return "", serverError(errors.Wrap(err, "[AuthorizationService.Approve] code"))
	}

	if err := as.repos.Codes.Upsert(&authcodes.Code{
		Code:                code,
		ClientID:            resolved.ClientID,
		RedirectURI:         resolved.RedirectURI,
		CodeChallenge:       resolved.CodeChallenge,
		CodeChallengeMethod: string(resolved.CodeChallengeMethod),
		ExpiresAt:           as.nowTime().Add(as.codeTimeout),
	}); err != nil {
		return "", serverError(errors.Wrap(err, "[AuthorizationService.Approve] repos.Codes.Upsert"))
	}

	redirect, err := callbackURL(resolved.RedirectURI, code, resolved.State)
	if err != nil {
		return "", invalidRedirectURI(err.Error())
	}
	return redirect, nil
}

// Token handles the OAuth 2.0 token request.
func (as *AuthorizationService) Token(req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	var (
		rec *token.Record
		err error
	)
	switch req.GrantType {
	case oauthmodel.AuthorizationCodeGrant:
		rec, err = as.exchangeCode(req)
	case oauthmodel.RefreshTokenGrant:
		rec, err = as.refresh(req)
	case "":
		return nil, invalidRequest("grant_type is required")
	default:
		return nil, unsupportedGrantType(req.GrantType)
	}
	if err != nil {
		return nil, err
	}

	return &oauthmodel.TokenResponse{
		AccessToken:  rec.AccessToken,
		TokenType:    oauthmodel.TokenTypeBearer,
		ExpiresIn:    int(as.tokens.AccessTokenExpiry().Seconds()),
		RefreshToken: rec.RefreshToken,
	}, nil
}

// ValidateBearer checks an Authorization header value and returns the token record.
func (as *AuthorizationService) ValidateBearer(authHeader string) (*token.Record, error) {
	raw, err := BearerToken(authHeader)
	if err != nil {
		return nil, err
	}
	rec, err := as.tokens.Validate(raw)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationService.ValidateBearer]")
	}
	return rec, nil
}

// Cleanup drops expired codes and tokens. Expiry is also enforced lazily, so this only reclaims memory.
func (as *AuthorizationService) Cleanup() (codes, tokens int) {
	return as.repos.Codes.DeleteExpired(as.nowTime()), as.tokens.Cleanup()
}

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.Wrap(interrors.ErrUnauthorized, "missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.Wrap(interrors.ErrUnauthorized, "invalid Authorization header format")
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", errors.Wrap(interrors.ErrUnauthorized, "empty token")
	}
	return tok, nil
}

func (as *AuthorizationService) exchangeCode(req oauthmodel.TokenRequest) (*token.Record, error) {
	if req.Code == "" {
		return nil, invalidRequest("code is required")
	}

	code, err := as.repos.Codes.Get(req.Code)
	if err != nil {
		return nil, invalidGrant("unknown authorization code")
	}
	if code.Expired(as.nowTime()) {
		_ = as.repos.Codes.Delete(req.Code)
		return nil, invalidGrant("authorization code expired")
	}
	if code.ClientID != req.ClientID {
		return nil, invalidGrant("authorization code was issued to another client")
	}
	// The code's owner is registered, so client errors past this point are credential failures.
	if err := as.authenticateClient(req.ClientID, req.ClientSecret); err != nil {
		return nil, err
	}
	if req.RedirectURI != "" && req.RedirectURI != code.RedirectURI {
		return nil, invalidGrant("redirect_uri does not match the authorization request")
	}
	if err := as.validator.ValidatePKCE(req.CodeVerifier, code.CodeChallenge, oauthmodel.CodeMethodType(code.CodeChallengeMethod)); err != nil {
		return nil, invalidGrant(err.Error())
	}

	// Only the caller that removes the code may mint tokens for it.
	if _, err := as.repos.Codes.Consume(req.Code); err != nil {
		return nil, invalidGrant("authorization code already redeemed")
	}

	rec, err := as.tokens.Issue(code.ClientID)
	if err != nil {
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.Token] tokens.Issue"))
	}
	return rec, nil
}

func (as *AuthorizationService) refresh(req oauthmodel.TokenRequest) (*token.Record, error) {
	if req.RefreshToken == "" {
		return nil, invalidRequest("refresh_token is required")
	}

	clientID := req.ClientID
	if clientID == "" {
		owner, err := as.tokens.RefreshOwner(req.RefreshToken)
		if err != nil {
			return nil, invalidGrant("unknown refresh token")
		}
		// Confidential clients have to identify themselves.
		if client, err := as.repos.Clients.Get(owner); err == nil && !client.IsPublic() {
			return nil, invalidClient("client authentication required")
		}
	} else if err := as.authenticateClient(clientID, req.ClientSecret); err != nil {
		return nil, err
	}

	rec, err := as.tokens.Refresh(req.RefreshToken, clientID)
	if err != nil {
		if interrors.Is(err, interrors.ErrInvalidGrant) {
			return nil, invalidGrant("refresh token is invalid or already used")
		}
		return nil, serverError(errors.Wrap(err, "[AuthorizationService.Token] tokens.Refresh"))
	}
	return rec, nil
}

// authenticateClient checks credentials when a client_id is presented. An empty
// client_id is left for the grant to reject.
func (as *AuthorizationService) authenticateClient(clientID, clientSecret string) error {
	if clientID == "" {
		return nil
	}
	client, err := as.repos.Clients.Get(clientID)
	if err != nil {
		return invalidClient("unknown client")
	}
	if err := as.validator.ValidateClientCredentials(client, clientSecret); err != nil {
		return invalidClient(err.Error())
	}
	return nil
}

func callbackURL(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", errors.Wrap(err, "invalid redirect_uri")
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func supportedGrantTypes() []oauthmodel.GrantType {
	return []oauthmodel.GrantType{oauthmodel.AuthorizationCodeGrant, oauthmodel.RefreshTokenGrant}
}
