package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/assetbuyer/pkg/order"
)

// maxPages bounds a single query so a misbehaving relayer cannot keep us
// paging forever.
const maxPages = 100

// ErrListingTooLarge is wrapped in the FetchError returned when a listing
// does not fit in maxPages pages. Partial results are never returned.
var ErrListingTooLarge = errors.New("relayer listing exceeds page limit")

// RelayerConfig configures a StandardRelayerOrderProvider.
type RelayerConfig struct {
	BaseURL string        // e.g. "https://api.relayer.example"
	PerPage int           // records per request, DefaultPerPage when zero
	Timeout time.Duration // per request, used only when Client is nil
	Client  *http.Client
	Logger  *zap.Logger
}

// StandardRelayerOrderProvider fetches orders from a relayer speaking the
// 0x Standard Relayer API v2. Every record is validated before it is
// returned, since relayer data is untrusted.
type StandardRelayerOrderProvider struct {
	base    *url.URL
	perPage int
	client  *http.Client
	logger  *zap.Logger
}

// NewStandardRelayerOrderProvider checks cfg and returns a provider.
func NewStandardRelayerOrderProvider(cfg RelayerConfig) (*StandardRelayerOrderProvider, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("relayer url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("relayer url %q: scheme must be http or https", cfg.BaseURL)
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardRelayerOrderProvider{
		base:    base,
		perPage: perPage,
		client:  client,
		logger:  logger,
	}, nil
}

// GetOrders pages through the relayer's listing for the requested pair and
// returns only records matching it exactly, in relayer order.
func (p *StandardRelayerOrderProvider) GetOrders(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	orders := make([]order.SignedOrder, 0)
	complete := false
	for page := 1; page <= maxPages && !complete; page++ {
		res, err := p.fetchPage(ctx, req, page)
		if err != nil {
			return nil, err
		}
		for i, rec := range res.Records {
			o, err := rec.Order.ToOrder()
			if err != nil {
				var verr *order.ValidationError
				if errors.As(err, &verr) {
					verr.Name = fmt.Sprintf("page[%d].records[%d]", page, i)
				}
				return nil, err
			}
			// relayers may ignore filters they do not support
			if o.Matches(req.MakerAssetData, req.TakerAssetData) {
				orders = append(orders, o)
			}
		}
		complete = len(res.Records) < p.perPage || page*p.perPage >= res.Total
	}
	if !complete {
		p.logger.Warn("relayer_listing_truncated",
			zap.String("relayer", p.base.Host),
			zap.Int("pages", maxPages),
			zap.Int("per_page", p.perPage))
		return nil, &FetchError{
			URL: p.base.JoinPath("v2", "orders").String(),
			Err: fmt.Errorf("%w: more than %d pages of %d records", ErrListingTooLarge, maxPages, p.perPage),
		}
	}

	p.logger.Debug("relayer_orders_fetched",
		zap.String("relayer", p.base.Host),
		zap.Int("orders", len(orders)))
	return &Response{Orders: orders}, nil
}

func (p *StandardRelayerOrderProvider) fetchPage(ctx context.Context, req Request, page int) (*OrdersPage, error) {
	q := url.Values{}
	q.Set("makerAssetData", req.MakerAssetData.Hex())
	q.Set("takerAssetData", req.TakerAssetData.Hex())
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(p.perPage))
	u := p.base.JoinPath("v2", "orders")
	u.RawQuery = q.Encode()
	target := u.String()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Warn("relayer_bad_status",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode))
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	var out OrdersPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode page: %w", err)}
	}
	return &out, nil
}

var _ OrderProvider = (*StandardRelayerOrderProvider)(nil)
