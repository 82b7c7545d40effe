package directory

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/golang-jwt/jwt/v5"
	"software.sslmate.com/src/go-pkcs12"

	"appregwatch/internal/common/security"
	"appregwatch/internal/config"
)

// graphScope is the scope requested for application-permission tokens.
const graphScope = "https://graph.microsoft.com/.default"

// tokenClaims represents relevant claims from Microsoft Entra ID JWT tokens
type tokenClaims struct {
	AppDisplayName string   `json:"app_displayname"` // Application display name from Entra ID
	Roles          []string `json:"roles"`           // Assigned application roles (e.g., Application.Read.All)
	jwt.RegisteredClaims
}

// newCredential builds a token credential from the configuration,
// preferring the client secret and falling back to a PFX certificate.
func newCredential(cfg *config.Config, logger *slog.Logger) (azcore.TokenCredential, error) {
	if cfg.ClientSecret != "" {
		logger.Debug("Authentication method: Client Secret",
			"clientID", security.MaskGUID(cfg.ClientID), "secret", security.MaskSecret(cfg.ClientSecret))
		return azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	}

	if cfg.PfxPath != "" {
		logger.Debug("Authentication method: PFX Certificate File", "path", cfg.PfxPath)
		pfxData, err := os.ReadFile(cfg.PfxPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read PFX file: %w", err)
		}
		return newCertCredential(cfg.TenantID, cfg.ClientID, pfxData, cfg.PfxPassword)
	}

	return nil, fmt.Errorf("no valid authentication method configured (set AZURE_CLIENT_SECRET or AZURE_PFX_PATH)")
}

func newCertCredential(tenantID, clientID string, pfxData []byte, password string) (*azidentity.ClientCertificateCredential, error) {
	// go-pkcs12 supports SHA-256 and other modern PFX algorithms
	key, cert, caCerts, err := pkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PFX: %w", err)
	}

	privKey, ok := key.(crypto.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("decoded key is not a valid crypto.PrivateKey")
	}

	// azidentity expects the leaf certificate first
	certs := []*x509.Certificate{cert}
	if len(caCerts) > 0 {
		certs = append(certs, caCerts...)
	}

	opts := &azidentity.ClientCertificateCredentialOptions{
		SendCertificateChain: true,
	}

	return azidentity.NewClientCertificateCredential(tenantID, clientID, certs, privKey, opts)
}

// logTokenClaims acquires a token and logs its application name and roles
// at debug level. Best-effort: failures are logged, never fatal.
func logTokenClaims(ctx context.Context, cred azcore.TokenCredential, logger *slog.Logger) {
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{graphScope},
	})
	if err != nil {
		logger.Debug("Could not retrieve token for claims display", "error", err)
		return
	}

	appName, roles, err := parseTokenClaims(token.Token)
	if err != nil {
		logger.Debug("Could not parse JWT claims", "error", err)
		return
	}

	logger.Debug("Token acquired",
		"application", appName,
		"roles", roles,
		"token", security.MaskAccessToken(token.Token),
		"expiresOn", token.ExpiresOn.Format("2006-01-02 15:04:05 MST"))
}

// parseTokenClaims extracts application name and assigned roles from a JWT access token.
func parseTokenClaims(tokenString string) (string, string, error) {
	// Parse without verification (token already validated by the Azure SDK)
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &tokenClaims{})
	if err != nil {
		return "", "", fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok {
		return "", "", fmt.Errorf("failed to extract claims from token")
	}

	appName := claims.AppDisplayName
	if appName == "" {
		appName = "(not available)"
	}

	rolesStr := "(none)"
	if len(claims.Roles) > 0 {
		rolesStr = strings.Join(claims.Roles, ", ")
	}

	return appName, rolesStr, nil
}
