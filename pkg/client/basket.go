package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"sharebasket/pkg/basketcode"
	"sharebasket/pkg/model"

	"github.com/google/uuid"
)

const IdempotencyHeader = "Idempotency-Key"

// BasketClient talks to one baskets server. The base URL is fixed at
// construction.
type BasketClient struct {
	httpClient *HttpClient
}

func NewBasketClient(baseURL string, timeout time.Duration) *BasketClient {
	return &BasketClient{
		httpClient: NewHttpClient(baseURL, timeout),
	}
}

// NewIdempotencyKey returns a fresh key for AddItem. Reuse it when retrying
// the same add.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

func (c *BasketClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(ctx, maxWait)
}

// CreateBasket creates a basket. A non-empty name joins it right away.
func (c *BasketClient) CreateBasket(ctx context.Context, name string) (*model.CreateBasketResponse, error) {
	var body any
	if name != "" {
		body = model.CreateBasketRequest{Name: name}
	}
	resp, err := c.httpClient.POST(ctx, "/baskets", body)
	if err != nil {
		return nil, err
	}

	var out model.CreateBasketResponse
	if err := decode("create basket", resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinBasket returns the canonical code.
func (c *BasketClient) JoinBasket(ctx context.Context, code, name string) (string, error) {
	resp, err := c.httpClient.POST(ctx, basketPath(code)+"/participants", model.JoinBasketRequest{Name: name})
	if err != nil {
		return "", err
	}

	var out model.JoinBasketResponse
	if err := decode("join basket", resp, http.StatusOK, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

func (c *BasketClient) GetBasket(ctx context.Context, code string) (*model.Basket, error) {
	resp, err := c.httpClient.GET(ctx, basketPath(code))
	if err != nil {
		return nil, err
	}

	var out model.Basket
	if err := decode("get basket", resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddItem sends the item with idempotencyKey, or a fresh key when empty.
func (c *BasketClient) AddItem(ctx context.Context, code string, item model.NewItem, idempotencyKey string) (*model.Item, error) {
	if idempotencyKey == "" {
		idempotencyKey = NewIdempotencyKey()
	}
	resp, err := c.httpClient.POSTWithHeaders(ctx, basketPath(code)+"/items", item, map[string]string{
		IdempotencyHeader: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	var out model.Item
	if err := decode("add item", resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BasketClient) DeleteItem(ctx context.Context, code string, id int64) error {
	resp, err := c.httpClient.DELETE(ctx, fmt.Sprintf("%s/items/%d", basketPath(code), id))
	if err != nil {
		return err
	}
	return decode("delete item", resp, http.StatusOK, nil)
}

func (c *BasketClient) ListItems(ctx context.Context, code string) ([]*model.Item, error) {
	resp, err := c.httpClient.GET(ctx, basketPath(code)+"/items")
	if err != nil {
		return nil, err
	}

	var out model.ItemList
	if err := decode("list items", resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []*model.Item{}
	}
	return out.Items, nil
}

func (c *BasketClient) Totals(ctx context.Context, code, participant string) (*model.Summary, error) {
	path := basketPath(code) + "/totals"
	if participant != "" {
		path += "?" + url.Values{"participant": {participant}}.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}

	var out model.Summary
	if err := decode("totals", resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func basketPath(code string) string {
	return "/baskets/" + url.PathEscape(basketcode.Normalize(code))
}

func decode(op string, resp *Response, want int, target any) error {
	if resp.StatusCode != want {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 && target == nil {
			return nil
		}
		return errorFromResponse(op, resp)
	}
	if target == nil {
		return nil
	}
	if err := resp.DecodeJSON(target); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
