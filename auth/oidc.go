package auth

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/globals"
)

// Authenticate verifies a given OIDC ID-Token using the configured OIDC provider.
// It returns the user's id if verification was successful (or an empty string if no provider was configured).
// TODO: Currently, the userId is set to the "email" property of the claim, this could be made configurable. But: ensure that this is unique across the user base!
func Authenticate(idToken, oidcProvider string, cfg *config.Config) (string, error) {
	userId := ""
	if idToken == "" || len(cfg.OIDCConfigs) == 0 {
		return "", nil
	}
	var oidcConf *config.OIDCConfig
	for _, c := range cfg.OIDCConfigs {
		if c.Name == oidcProvider {
			oidcConf = &c
			break
		}
	}
	if oidcConf == nil {
		globals.AppLogger.Debug("no oidc config found for provider", "provider", oidcProvider)
		return "", nil
	}
	provider, err := oidc.NewProvider(context.Background(), oidcConf.ProviderUrl)
	if err != nil {
		return "", err
	}
	conf := oidc.Config{}
	if oidcConf.ClientId == "" {
		conf.SkipClientIDCheck = true
	} else {
		conf.ClientID = oidcConf.ClientId
	}
	verifier := provider.Verifier(&conf)
	verifiedIdToken, err := verifier.Verify(context.Background(), idToken)
	if err != nil {
		globals.AppLogger.Error("could not verify id token", "error", err)
		return "", err
	}

	claims := struct {
		Email string `json:"email"`
	}{}
	err = verifiedIdToken.Claims(&claims)
	if err != nil {
		return "", err
	}
	if claims.Email != "" {
		userId = claims.Email
	}
	return userId, nil
}

// ResolveUserId resolves the calling user of an HTTP request. With at
// least one OIDC provider configured, the id token (header or query)
// is the only accepted credential. Without any provider the server
// trusts the X-User-Id header, which keeps requests attributable to a
// stable id behind a front proxy or in development.
func ResolveUserId(r *http.Request, cfg *config.Config) string {
	idToken := r.Header.Get("X-Id-Token")
	provider := r.Header.Get("X-Id-Provider")
	if idToken == "" {
		idToken = r.URL.Query().Get("id_token")
		provider = r.URL.Query().Get("provider")
	}
	if len(cfg.OIDCConfigs) > 0 {
		userId, err := Authenticate(idToken, provider, cfg)
		if err != nil {
			return ""
		}
		return userId
	}
	if userId := r.Header.Get("X-User-Id"); userId != "" {
		return userId
	}
	return r.URL.Query().Get("user_id")
}
