package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pipeline-dashboard-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GetTrades fetches one page of trades. Page 0 lets the backend pick the
// first page.
func (c *RestClient) GetTrades(ctx context.Context, page int) ([]models.RawTrade, error) {
	req := c.client.R().SetResult(&models.TradesResponse{})
	if page > 0 {
		req.SetQueryParam("page", strconv.Itoa(page))
	}

	resp, err := c.doRequest(ctx, resty.MethodGet, pathTrades, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	return resp.Result().(*models.TradesResponse).Trades, nil
}

// GetPipelines fetches every pipeline.
func (c *RestClient) GetPipelines(ctx context.Context) ([]models.Pipeline, error) {
	req := c.client.R().SetResult(&models.PipelinesResponse{})

	resp, err := c.doRequest(ctx, resty.MethodGet, pathPipelines, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get pipelines: %w", err)
	}
	return resp.Result().(*models.PipelinesResponse).Pipelines, nil
}

// GetPositions fetches the current position snapshot.
func (c *RestClient) GetPositions(ctx context.Context) ([]models.Position, error) {
	req := c.client.R().SetResult(&models.PositionsResponse{})

	resp, err := c.doRequest(ctx, resty.MethodGet, pathPositions, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	return resp.Result().(*models.PositionsResponse).Positions, nil
}

// GetPrice fetches the current price of symbol.
func (c *RestClient) GetPrice(ctx context.Context, symbol string) (*models.PriceResponse, error) {
	req := c.client.R().
		SetPathParam("symbol", symbol).
		SetResult(&models.PriceResponse{})

	resp, err := c.doRequest(ctx, resty.MethodGet, pathPrice, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get price of %s: %w", symbol, err)
	}
	price := resp.Result().(*models.PriceResponse)
	if price.Symbol == "" {
		price.Symbol = symbol
	}
	return price, nil
}

// GetPipelinesMetrics fetches the backend's aggregate pipeline metrics.
func (c *RestClient) GetPipelinesMetrics(ctx context.Context) (models.PipelinesMetrics, error) {
	var metrics models.PipelinesMetrics
	req := c.client.R().SetResult(&metrics)

	if _, err := c.doRequest(ctx, resty.MethodGet, pathPipelinesMetrics, req); err != nil {
		return nil, fmt.Errorf("failed to get pipelines metrics: %w", err)
	}
	return metrics, nil
}

// GetResources fetches the option lists used to configure new pipelines.
func (c *RestClient) GetResources(ctx context.Context, names []string) (models.Resources, error) {
	var resources models.Resources
	req := c.client.R().
		SetRawPathParam("names", strings.Join(names, ",")).
		SetResult(&resources)

	if _, err := c.doRequest(ctx, resty.MethodGet, pathResources, req); err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	return resources, nil
}

// GetAccountBalance fetches the live and testnet futures balances.
func (c *RestClient) GetAccountBalance(ctx context.Context) (*models.BalanceResponse, error) {
	req := c.client.R().SetResult(&models.BalanceResponse{})

	resp, err := c.doRequest(ctx, resty.MethodGet, pathBalance, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}
	return resp.Result().(*models.BalanceResponse), nil
}

// StartBot starts a new pipeline.
func (c *RestClient) StartBot(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error) {
	req := c.client.R().SetBody(params)
	return c.command(ctx, resty.MethodPost, pathStartBot, req, "start bot")
}

// EditBot changes the configuration of a stopped pipeline.
func (c *RestClient) EditBot(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error) {
	req := c.client.R().SetBody(params)
	return c.command(ctx, resty.MethodPut, pathStartBot, req, "edit bot")
}

// StopBot stops a running pipeline.
func (c *RestClient) StopBot(ctx context.Context, pipelineID int64) (*models.CommandResponse, error) {
	req := c.client.R().SetBody(map[string]int64{"pipelineId": pipelineID})
	return c.command(ctx, resty.MethodPut, pathStopBot, req, "stop bot")
}

// DeleteBot deletes a pipeline.
func (c *RestClient) DeleteBot(ctx context.Context, pipelineID int64) (*models.CommandResponse, error) {
	req := c.client.R().SetPathParam("pipelineId", strconv.FormatInt(pipelineID, 10))
	return c.command(ctx, resty.MethodDelete, pathDeleteBot, req, "delete bot")
}

// command runs a mutating request. It is sent once unless the backend
// throttled it. A client error status whose body is a command envelope is a
// business rejection and is returned as such.
func (c *RestClient) command(ctx context.Context, method, url string, req *resty.Request, action string) (*models.CommandResponse, error) {
	req.SetHeader("Content-Type", "application/json").
		SetResult(&models.CommandResponse{}).
		SetError(&models.CommandResponse{})

	resp, err := c.doRequest(ctx, method, url, req)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError && resp != nil {
			if rejected, ok := resp.Error().(*models.CommandResponse); ok && rejected.Message != "" {
				rejected.Success = false
				c.logger.Info("Command rejected by backend",
					zap.String("action", action),
					zap.Int("status", statusErr.Code),
					zap.String("message", rejected.Message))
				return rejected, nil
			}
		}
		c.logger.Error("Command failed", zap.String("action", action), zap.Error(err))
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}

	result := resp.Result().(*models.CommandResponse)
	c.logger.Info("Command acknowledged",
		zap.String("action", action),
		zap.Bool("success", result.Success),
		zap.String("message", result.Message))
	return result, nil
}
