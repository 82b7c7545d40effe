package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/applications"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"appregwatch/internal/common/security"
	"appregwatch/internal/config"
)

// graphTimeLayout mirrors the directory's timestamp serialization
// (seven fractional digits, UTC marker).
const graphTimeLayout = "2006-01-02T15:04:05.0000000Z07:00"

// accountSelectFields are the user fields requested for monitored accounts.
var accountSelectFields = []string{
	"id", "displayName", "userPrincipalName", "mail",
	"passwordPolicies", "lastPasswordChangeDateTime",
}

// Client wraps the Microsoft Graph SDK client for the two record kinds
// this tool reads: application registrations and monitored user accounts.
type Client struct {
	graph  *msgraphsdk.GraphServiceClient
	cred   azcore.TokenCredential
	logger *slog.Logger
}

// NewClient creates credentials and initializes the Graph SDK client.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	logger.Debug("Setting up Microsoft Graph client",
		"tenantID", security.MaskGUID(cfg.TenantID), "clientID", security.MaskGUID(cfg.ClientID))

	cred, err := newCredential(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("authentication setup failed: %w", err)
	}

	graph, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{graphScope})
	if err != nil {
		return nil, fmt.Errorf("graph client initialization failed: %w", err)
	}

	logTokenClaims(ctx, cred, logger)

	return &Client{graph: graph, cred: cred, logger: logger}, nil
}

// Credential exposes the token credential for other Graph consumers
// (the workbook sink attaches its own bearer tokens).
func (c *Client) Credential() azcore.TokenCredential {
	return c.cred
}

// FetchApplications retrieves all application registrations with their
// password credentials and expanded owners. Failures are logged with the
// directory's error code, message and request id, and yield an empty
// collection so the rest of the run can proceed.
func (c *Client) FetchApplications(ctx context.Context) []AppRegistration {
	headers := abstractions.NewRequestHeaders()
	headers.Add("ConsistencyLevel", "eventual")

	requestConfig := &applications.ApplicationsRequestBuilderGetRequestConfiguration{
		Headers: headers,
		QueryParameters: &applications.ApplicationsRequestBuilderGetQueryParameters{
			Select: []string{"id", "appId", "displayName", "passwordCredentials"},
			Expand: []string{"owners($select=userPrincipalName,mail)"},
			Top:    int32Ptr(999),
		},
	}

	c.logger.Debug("Calling Graph API: GET /applications")

	result, err := c.graph.Applications().Get(ctx, requestConfig)
	if err != nil {
		code, message, requestID := describeODataError(err)
		c.logger.Error("Error fetching app registrations",
			"error", err, "code", code, "description", message, "requestID", requestID)
		return nil
	}

	var apps []AppRegistration
	for _, app := range result.GetValue() {
		apps = append(apps, mapApplication(app))
	}

	c.logger.Info("Fetched app registrations", "count", len(apps))
	return apps
}

// FetchAccounts looks up each monitored account by principal name.
// A missing or unreadable account is logged and skipped; it never aborts
// the batch.
func (c *Client) FetchAccounts(ctx context.Context, upns []string) []UserAccount {
	var accounts []UserAccount

	for _, upn := range upns {
		requestConfig := &users.UserItemRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.UserItemRequestBuilderGetQueryParameters{
				Select: accountSelectFields,
			},
		}

		c.logger.Debug("Calling Graph API: GET /users/{upn}", "upn", upn)

		user, err := c.graph.Users().ByUserId(upn).Get(ctx, requestConfig)
		if err != nil {
			code, message, requestID := describeODataError(err)
			c.logger.Warn("Skipping monitored account",
				"upn", upn, "code", code, "description", message, "requestID", requestID)
			continue
		}

		accounts = append(accounts, mapUser(user))
	}

	c.logger.Info("Fetched monitored accounts", "requested", len(upns), "found", len(accounts))
	return accounts
}

func mapApplication(app models.Applicationable) AppRegistration {
	reg := AppRegistration{
		ID:          deref(app.GetId()),
		AppID:       deref(app.GetAppId()),
		DisplayName: deref(app.GetDisplayName()),
	}

	for _, cred := range app.GetPasswordCredentials() {
		credential := Credential{
			DisplayName: deref(cred.GetDisplayName()),
		}
		if keyID := cred.GetKeyId(); keyID != nil {
			credential.KeyID = keyID.String()
		}
		if end := cred.GetEndDateTime(); end != nil {
			credential.EndDateTime = end.UTC().Format(graphTimeLayout)
		}
		reg.Credentials = append(reg.Credentials, credential)
	}

	// Expanded owners come back as directory objects; only user principals
	// carry a UPN.
	for _, obj := range app.GetOwners() {
		user, ok := obj.(models.Userable)
		if !ok {
			continue
		}
		owner := Owner{
			UserPrincipalName: deref(user.GetUserPrincipalName()),
			Mail:              deref(user.GetMail()),
		}
		if owner.UserPrincipalName == "" && owner.Mail == "" {
			continue
		}
		reg.Owners = append(reg.Owners, owner)
	}

	return reg
}

func mapUser(user models.Userable) UserAccount {
	account := UserAccount{
		ID:                deref(user.GetId()),
		DisplayName:       deref(user.GetDisplayName()),
		UserPrincipalName: deref(user.GetUserPrincipalName()),
		Mail:              deref(user.GetMail()),
		PasswordPolicies:  deref(user.GetPasswordPolicies()),
	}
	if changed := user.GetLastPasswordChangeDateTime(); changed != nil {
		account.LastPasswordChange = changed.UTC().Format(graphTimeLayout)
	}
	return account
}

// describeODataError extracts code, message and request id from a Graph
// OData error for structured logging. Non-OData errors yield empty fields.
func describeODataError(err error) (code, message, requestID string) {
	var odataErr *odataerrors.ODataError
	if !errors.As(err, &odataErr) {
		return "", "", ""
	}

	mainErr := odataErr.GetErrorEscaped()
	if mainErr == nil {
		return "", "", ""
	}

	code = deref(mainErr.GetCode())
	message = deref(mainErr.GetMessage())
	if inner := mainErr.GetInnerError(); inner != nil {
		requestID = deref(inner.GetRequestId())
	}
	return code, message, requestID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func int32Ptr(i int32) *int32 {
	return &i
}
