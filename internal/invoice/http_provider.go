package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const maxPayloadBytes = 1 << 20

type HTTPProviderConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPProvider reads invoices and orders from the CMS API.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPProvider(cfg HTTPProviderConfig, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout > 0 {
		c := *client
		c.Timeout = cfg.Timeout
		client = &c
	}

	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  client,
	}
}

func (p *HTTPProvider) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	body, err := p.get(ctx, "invoices", id)
	if err != nil {
		return nil, err
	}

	if err := validateJSONSchema(invoiceSchema, body); err != nil {
		return nil, err
	}

	var payload invoicePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}

	inv, err := payload.toDomain()
	if err != nil {
		return nil, err
	}

	if err := ValidateInvoice(inv, true); err != nil {
		return nil, err
	}

	if inv.ID != id {
		return nil, fmt.Errorf("%w: asked for invoice %d, got %d", ErrShapeMismatch, id, inv.ID)
	}

	return inv, nil
}

func (p *HTTPProvider) GetOrder(ctx context.Context, id int64) (*Order, error) {
	body, err := p.get(ctx, "orders", id)
	if err != nil {
		return nil, err
	}

	if err := validateJSONSchema(orderSchema, body); err != nil {
		return nil, err
	}

	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}

	order, err := payload.toDomain()
	if err != nil {
		return nil, err
	}

	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	if order.ID != id {
		return nil, fmt.Errorf("%w: asked for order %d, got %d", ErrShapeMismatch, id, order.ID)
	}

	return order, nil
}

func (p *HTTPProvider) get(ctx context.Context, collection string, id int64) ([]byte, error) {
	url := p.baseURL + "/" + collection + "/" + strconv.FormatInt(id, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		log.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("Provider returned non-success status")
		return nil, fmt.Errorf("%w: %s %d returned status %d", ErrNotFound, collection, id, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	return body, nil
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

var _ Provider = (*HTTPProvider)(nil)
