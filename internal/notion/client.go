package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ProtocolVersion is the fixed API version header sent on every request.
const ProtocolVersion = "2025-09-03"

const defaultBaseURL = "https://api.notion.com"

// Client is the authenticated, paginated UpstreamClient.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL builds a Client against a non-default base URL, for
// tests that stand up a fake upstream server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

func (c *Client) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", ProtocolVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (c *Client) ListDataSources(ctx context.Context, databaseID string) ([]DataSourceInfo, error) {
	data, err := c.request(ctx, http.MethodGet, "/v1/databases/"+databaseID, nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		DataSources []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data_sources"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decoding database descriptor: %w", err)
	}

	out := make([]DataSourceInfo, len(parsed.DataSources))
	for i, ds := range parsed.DataSources {
		out[i] = DataSourceInfo{ID: ds.ID, Name: ds.Name}
	}
	return out, nil
}

func (c *Client) QueryDataSourcePageIds(ctx context.Context, dataSourceID string) ([]string, error) {
	var ids []string
	cursor := ""
	for {
		body := map[string]any{}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		data, err := c.request(ctx, http.MethodPost, "/v1/data_sources/"+dataSourceID+"/query", body)
		if err != nil {
			return nil, err
		}

		var parsed struct {
			Results []struct {
				ID string `json:"id"`
			} `json:"results"`
			HasMore    bool   `json:"has_more"`
			NextCursor string `json:"next_cursor"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("decoding data source query: %w", err)
		}
		for _, r := range parsed.Results {
			ids = append(ids, r.ID)
		}
		if !parsed.HasMore || parsed.NextCursor == "" {
			break
		}
		cursor = parsed.NextCursor
	}
	return ids, nil
}

func (c *Client) GetPageMetadata(ctx context.Context, pageID string) (PageMetadata, error) {
	data, err := c.request(ctx, http.MethodGet, "/v1/pages/"+pageID, nil)
	if err != nil {
		return PageMetadata{}, err
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return PageMetadata{}, fmt.Errorf("decoding page metadata: %w", err)
	}

	meta := PageMetadata{}
	meta.ID, _ = parsed["id"].(string)
	meta.URL, _ = parsed["url"].(string)
	meta.CreatedTime, _ = parsed["created_time"].(string)
	meta.LastEditedTime, _ = parsed["last_edited_time"].(string)
	meta.Parent = parseParent(asMap(parsed["parent"]))

	decoded, title, hasTitle := decodeProperties(asMap(parsed["properties"]))
	meta.Properties = decoded
	meta.Title = title
	meta.HasTitle = hasTitle

	return meta, nil
}

func (c *Client) GetPageParent(ctx context.Context, pageID string) (ParentRef, error) {
	data, err := c.request(ctx, http.MethodGet, "/v1/pages/"+pageID, nil)
	if err != nil {
		return ParentRef{}, err
	}

	var parsed struct {
		Parent map[string]interface{} `json:"parent"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ParentRef{}, fmt.Errorf("decoding page parent: %w", err)
	}
	return parseParent(parsed.Parent), nil
}

func (c *Client) listChildrenPage(ctx context.Context, blockID, cursor string) ([]Block, string, bool, error) {
	path := fmt.Sprintf("/v1/blocks/%s/children?page_size=100", blockID)
	if cursor != "" {
		path += "&start_cursor=" + url.QueryEscape(cursor)
	}
	data, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", false, err
	}

	var parsed struct {
		Results    []map[string]interface{} `json:"results"`
		HasMore    bool                      `json:"has_more"`
		NextCursor string                    `json:"next_cursor"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, "", false, fmt.Errorf("decoding block children: %w", err)
	}

	blocks := make([]Block, len(parsed.Results))
	for i, raw := range parsed.Results {
		blocks[i] = parseBlock(raw)
	}
	return blocks, parsed.NextCursor, parsed.HasMore, nil
}

func (c *Client) listChildren(ctx context.Context, blockID string) ([]Block, error) {
	var out []Block
	cursor := ""
	for {
		page, next, hasMore, err := c.listChildrenPage(ctx, blockID, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if !hasMore || next == "" {
			break
		}
		cursor = next
	}
	return out, nil
}

// FetchBlocks materializes a bounded, pre-order block tree rooted at rootID.
// Root's immediate children are always fetched; deeper levels are expanded
// only while the depth budget remains, with a synthetic "children" marker
// inserted ahead of each expanded subtree (spec §4.1.2).
func (c *Client) FetchBlocks(ctx context.Context, rootID string, maxDepth int) ([]Block, error) {
	return c.fetchChildren(ctx, rootID, maxDepth)
}

func (c *Client) fetchChildren(ctx context.Context, blockID string, depth int) ([]Block, error) {
	children, err := c.listChildren(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if depth == 0 {
		return children, nil
	}

	out := make([]Block, 0, len(children))
	for _, b := range children {
		out = append(out, b)
		if b.HasChildren {
			sub, err := c.fetchChildren(ctx, b.ID, depth-1)
			if err != nil {
				return nil, err
			}
			out = append(out, Block{Type: ChildrenMarker})
			out = append(out, sub...)
		}
	}
	return out, nil
}
