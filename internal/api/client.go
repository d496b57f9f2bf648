// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loadout-tf/extension/internal/model"
)

// inspectEndpoint markers inside a steam inspect link.
const (
	tf2InspectMarker = "tf_econ_item_preview"
	cs2InspectMarker = "csgo_econ_action_preview"
)

// Options configures the endpoints the client talks to.
type Options struct {
	ClassInfoURL   string
	InspectTF2URL  string
	InspectCS2URL  string
	Repository     string
	WorkshopURL    string
	WorkshopUGCURL string
	Timeout        time.Duration
}

// Client handles communication with the inspect backend, the content
// repository and the workshop aggregator.
type Client struct {
	classInfoURL   string
	inspectTF2URL  string
	inspectCS2URL  string
	repository     string
	workshopURL    string
	workshopUGCURL string
	httpClient     *http.Client
}

// New creates a new API client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		classInfoURL:   strings.TrimRight(opts.ClassInfoURL, "/"),
		inspectTF2URL:  opts.InspectTF2URL,
		inspectCS2URL:  opts.InspectCS2URL,
		repository:     strings.TrimRight(opts.Repository, "/") + "/",
		workshopURL:    opts.WorkshopURL,
		workshopUGCURL: strings.TrimRight(opts.WorkshopUGCURL, "/") + "/",
		httpClient:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// classInfoResponse is the asset class info envelope.
type classInfoResponse struct {
	Success bool             `json:"success"`
	Result  *model.ClassInfo `json:"result"`
}

// GetAssetClassInfo fetches the asset class description for a market
// listing.
func (c *Client) GetAssetClassInfo(ctx context.Context, appID, classID int) (*model.ClassInfo, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%d/%d", c.classInfoURL, appID, classID))
	if err != nil {
		return nil, fmt.Errorf("class info request failed: %w", err)
	}

	var response classInfoResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode class info: %w", err)
	}
	if !response.Success || response.Result == nil {
		return nil, fmt.Errorf("class info refused for app %d class %d", appID, classID)
	}
	return response.Result, nil
}

// inspectResponse is the weapon inspect envelope.
type inspectResponse struct {
	Success bool            `json:"success"`
	Item    *model.EconItem `json:"item"`
}

// ErrNoInspectEndpoint marks an inspect link no backend can serve.
var ErrNoInspectEndpoint = fmt.Errorf("no inspect endpoint for link")

// InspectItem resolves a steam inspect link into the item's economy
// attributes. Links that match no known game return
// ErrNoInspectEndpoint without a request.
func (c *Client) InspectItem(ctx context.Context, inspectLink string) (*model.EconItem, error) {
	var endpoint string
	switch {
	case strings.Contains(inspectLink, tf2InspectMarker):
		endpoint = c.inspectTF2URL
	case strings.Contains(inspectLink, cs2InspectMarker):
		endpoint = c.inspectCS2URL
	default:
		return nil, ErrNoInspectEndpoint
	}

	body, err := c.get(ctx, endpoint+"?url="+url.QueryEscape(inspectLink))
	if err != nil {
		return nil, fmt.Errorf("inspect request failed: %w", err)
	}

	var response inspectResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode inspect response: %w", err)
	}
	if !response.Success || response.Item == nil {
		return nil, fmt.Errorf("inspect refused for link %q", inspectLink)
	}
	return response.Item, nil
}

// FetchItems downloads the generated item schema for a language.
func (c *Client) FetchItems(ctx context.Context, lang string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%sgenerated/items/items_%s.json", c.repository, lang))
}

// FetchMedals downloads the generated medal schema for a language.
func (c *Client) FetchMedals(ctx context.Context, lang string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%sgenerated/items/medals_%s.json", c.repository, lang))
}

// FetchWarpaintDefinitions downloads the warpaint proto definitions.
func (c *Client) FetchWarpaintDefinitions(ctx context.Context) ([]byte, error) {
	return c.get(ctx, c.repository+"generated/warpaint_definitions.json")
}

// FetchWorkshopItems downloads the community workshop item listing.
func (c *Client) FetchWorkshopItems(ctx context.Context) ([]byte, error) {
	return c.get(ctx, c.workshopURL)
}

// FetchWorkshopMetadata downloads the per-item manifest of a workshop
// submission.
func (c *Client) FetchWorkshopMetadata(ctx context.Context, creatorID, itemID string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%s%s/%s/%s.json", c.workshopUGCURL, creatorID, itemID, itemID))
}

// InspectLink builds the inspect link for a listing from its asset
// actions. assetID is the asset's own id; a link that carries the
// %assetid% placeholder cannot be built without it.
func InspectLink(actions []model.AssetAction, listingOrSteamID, assetID string) (string, bool) {
	for _, action := range actions {
		link := action.Link
		if !strings.HasPrefix(link, "steam://rungame/") {
			continue
		}
		if assetID == "" && strings.Contains(link, "%assetid%") {
			return "", false
		}
		link = strings.ReplaceAll(link, "%listingid%", listingOrSteamID)
		link = strings.ReplaceAll(link, "%owner_steamid%", listingOrSteamID)
		return strings.ReplaceAll(link, "%assetid%", assetID), true
	}
	return "", false
}
