// Package smartup is a client for the Smartup ERP balance export API.
package smartup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/epco/stocksync/internal/config"
	"github.com/epco/stocksync/internal/domain/models"
)

// DateLayout is the DD.MM.YYYY format the API expects for date filters.
const DateLayout = "02.01.2006"

const balanceExportPath = "/b/anor/mxsx/mkw/balance$export"

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("smartup: unexpected status")

// Client exposes the Smartup operations used by the sync pipeline.
type Client interface {
	ExportBalance(ctx context.Context, req BalanceRequest) ([]models.BalanceItem, error)
}

// BalanceRequest selects one date window of one scope.
type BalanceRequest struct {
	FilialID      string
	FilialCode    string
	WarehouseCode string
	Condition     string
	Begin         time.Time
	End           time.Time
}

type warehouseFilter struct {
	WarehouseCode string `json:"warehouse_code"`
}

type balancePayload struct {
	WarehouseCodes    []warehouseFilter `json:"warehouse_codes"`
	FilialCode        string            `json:"filial_code"`
	BeginDate         string            `json:"begin_date"`
	EndDate           string            `json:"end_date"`
	ProductConditions []string          `json:"product_conditions"`
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a Smartup client with basic auth, a per-request timeout and
// bounded retries with exponential backoff on transport errors, 429 and 5xx.
func NewClient(cfg config.SmartupConfig) *APIClient {
	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.Username, cfg.Password).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &APIClient{httpClient: restyClient}
}

// ExportBalance fetches the balance lines of one scope for [Begin, End].
func (c *APIClient) ExportBalance(ctx context.Context, req BalanceRequest) ([]models.BalanceItem, error) {
	payload := balancePayload{
		WarehouseCodes:    []warehouseFilter{{WarehouseCode: req.WarehouseCode}},
		FilialCode:        req.FilialCode,
		BeginDate:         req.Begin.Format(DateLayout),
		EndDate:           req.End.Format(DateLayout),
		ProductConditions: []string{req.Condition},
	}

	result := new(models.BalanceResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("filial_id", req.FilialID).
		SetBody(payload).
		SetResult(result).
		ForceContentType("application/json").
		Post(balanceExportPath)
	if err != nil {
		return nil, fmt.Errorf("export balance: %w", err)
	}

	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: code=%d, body=%s", ErrUnexpectedStatus, resp.StatusCode(), truncate(resp.String(), 200))
	}

	return result.Balance, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
