// Package sharepoint writes report rows into a fixed range of an Excel
// workbook stored in a SharePoint document library, using the Graph
// workbook REST API directly.
package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"appregwatch/internal/directory"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope     = "https://graph.microsoft.com/.default"

	worksheetName = "Sheet1"
	rangeColumns  = 4

	// The clear step blanks A2:D1000, so a write may never exceed 999 rows.
	MaxRows = 999
)

// Client targets one workbook file identified by site, drive and item ID.
type Client struct {
	cred    azcore.TokenCredential
	http    *http.Client
	baseURL string

	siteID  string
	driveID string
	fileID  string

	logger *slog.Logger
}

// NewClient returns a workbook client reusing the directory credential.
func NewClient(cred azcore.TokenCredential, siteID, driveID, fileID string, logger *slog.Logger) *Client {
	return &Client{
		cred:    cred,
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		siteID:  siteID,
		driveID: driveID,
		fileID:  fileID,
		logger:  logger,
	}
}

// Drive is a document library of a SharePoint site.
type Drive struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListDrives returns the document libraries of a site, used to discover
// the drive ID for configuration.
func (c *Client) ListDrives(ctx context.Context, siteID string) ([]Drive, error) {
	var out struct {
		Value []Drive `json:"value"`
	}
	url := fmt.Sprintf("%s/sites/%s/drives", c.baseURL, siteID)
	if err := c.do(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, fmt.Errorf("listing drives for site %s: %w", siteID, err)
	}
	return out.Value, nil
}

// OverwriteRows replaces the data region of the workbook: it blanks
// A2:D1000 and then writes the given rows starting at A2. The header row
// is left untouched. Rows beyond MaxRows are refused before any write.
func (c *Client) OverwriteRows(ctx context.Context, rows [][]string) error {
	if len(rows) > MaxRows {
		return fmt.Errorf("workbook write of %d rows exceeds the %d-row range", len(rows), MaxRows)
	}

	name, err := c.itemName(ctx)
	if err != nil {
		return err
	}
	c.logger.Debug("Resolved workbook item", "name", name)

	blank := make([][]string, MaxRows)
	for i := range blank {
		blank[i] = make([]string, rangeColumns)
	}
	clearAddr := fmt.Sprintf("A2:D%d", MaxRows+1)
	if err := c.patchRange(ctx, clearAddr, blank); err != nil {
		return fmt.Errorf("clearing workbook range %s: %w", clearAddr, err)
	}

	if len(rows) == 0 {
		c.logger.Info("Workbook cleared, no rows to write")
		return nil
	}

	writeAddr := fmt.Sprintf("A2:D%d", len(rows)+1)
	if err := c.patchRange(ctx, writeAddr, rows); err != nil {
		return fmt.Errorf("writing workbook range %s: %w", writeAddr, err)
	}
	c.logger.Info("Workbook updated", "rows", len(rows))
	return nil
}

func (c *Client) itemName(ctx context.Context) (string, error) {
	var item struct {
		Name string `json:"name"`
	}
	url := fmt.Sprintf("%s/sites/%s/drives/%s/items/%s", c.baseURL, c.siteID, c.driveID, c.fileID)
	if err := c.do(ctx, http.MethodGet, url, nil, &item); err != nil {
		return "", fmt.Errorf("resolving workbook item: %w", err)
	}
	return item.Name, nil
}

func (c *Client) patchRange(ctx context.Context, address string, values [][]string) error {
	url := fmt.Sprintf("%s/sites/%s/drives/%s/items/%s/workbook/worksheets/%s/range(address='%s')",
		c.baseURL, c.siteID, c.driveID, c.fileID, worksheetName, address)
	body := map[string]any{"values": values}
	return c.do(ctx, http.MethodPatch, url, body, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{graphScope}})
	if err != nil {
		return fmt.Errorf("acquiring token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s returned %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// ProjectRows builds the tabular workbook projection of classified
// registrations: name, expiry date, days to expiry, owner list.
// Registrations without a usable expiry are skipped.
func ProjectRows(apps []directory.AppRegistration) [][]string {
	var rows [][]string
	for _, app := range apps {
		if app.DaysToExpiry == nil {
			continue
		}
		date := app.ExpiryDate
		if len(date) >= 10 {
			date = date[:10]
		}
		owners := "No owners"
		if emails := app.OwnerEmails(); len(emails) > 0 {
			owners = strings.Join(emails, ", ")
		}
		rows = append(rows, []string{
			app.DisplayName,
			date,
			strconv.Itoa(*app.DaysToExpiry),
			owners,
		})
	}
	return rows
}
