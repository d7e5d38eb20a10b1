package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"packsend-service/internal/pkg/config"
	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/shared"

	"github.com/go-resty/resty/v2"
)

const consignmentPath = "/api/consignments/{transfer_id}"

type upsertRequest struct {
	TransferID int64 `json:"transfer_id"`
}

type upsertResponse struct {
	OK            bool   `json:"ok"`
	ConsignmentID string `json:"consignment_id"`
	Message       string `json:"message"`
}

// Client pushes committed transfers to the downstream consignment system.
// A client without a base URL is disabled and never dials out.
type Client struct {
	http    *resty.Client
	enabled bool
	logger  *slog.Logger
}

func NewClient(cfg config.MirrorConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	c := &Client{enabled: baseURL != "", logger: logger}
	if !c.enabled {
		return c
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		c.http.SetAuthToken(cfg.Token)
	}
	return c
}

func (c *Client) Enabled() bool { return c.enabled }

// UpsertConsignment is idempotent on the remote side, keyed by transfer id.
func (c *Client) UpsertConsignment(ctx context.Context, transferID int64) (shared.MirrorResult, error) {
	if !c.enabled {
		return shared.MirrorResult{OK: true, Message: "mirror disabled"}, nil
	}

	var out upsertResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("transfer_id", fmt.Sprint(transferID)).
		SetBody(upsertRequest{TransferID: transferID}).
		SetResult(&out).
		Put(consignmentPath)
	if err != nil {
		return shared.MirrorResult{}, errs.Wrap(err, "mirror upsert")
	}
	if resp.IsError() {
		c.logger.Warn("mirror rejected consignment upsert",
			"transfer_id", transferID, "status", resp.StatusCode())
		return shared.MirrorResult{
			OK:      false,
			Message: fmt.Sprintf("mirror responded %d", resp.StatusCode()),
		}, nil
	}

	return shared.MirrorResult{OK: out.OK, Reference: out.ConsignmentID, Message: out.Message}, nil
}
