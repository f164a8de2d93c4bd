package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/handler/rest"
)

// AdminClient reads the admin API of a running wall.
type AdminClient struct {
	base   string
	key    string
	client *http.Client
}

func NewAdminClient(base, key string) *AdminClient {
	return &AdminClient{
		base:   strings.TrimRight(base, "/"),
		key:    key,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *AdminClient) Status(ctx context.Context) (model.WallStatus, error) {
	var status model.WallStatus
	err := c.get(ctx, "/api/admin/status", nil, &status)
	return status, err
}

func (c *AdminClient) Logs(ctx context.Context, limit int) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	err := c.get(ctx, "/api/admin/logs", url.Values{"limit": {strconv.Itoa(limit)}}, &entries)
	return entries, err
}

func (c *AdminClient) Pending(ctx context.Context) (model.PendingList, error) {
	var pending model.PendingList
	err := c.get(ctx, "/api/admin/messages/pending", nil, &pending)
	return pending, err
}

func (c *AdminClient) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if c.key != "" {
		req.Header.Set(rest.AdminKeyHeader, c.key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("admin api %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e rest.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("admin api %s: %s %s", path, resp.Status, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("admin api %s: decode: %w", path, err)
	}
	return nil
}
