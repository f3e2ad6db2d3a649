package storefront

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// ShopifyConfig configures the Shopify Admin REST client.
type ShopifyConfig struct {
	StoreURL    string // "shop.myshopify.com" or a full base URL
	AccessToken string
	APIVersion  string
	RateLimit   float64 // requests per second
	Burst       int
	Timeout     time.Duration
}

// HTTPDoer lets tests substitute the transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Shopify talks to the Shopify Admin REST API. All calls share one token bucket.
type Shopify struct {
	baseURL string
	token   string
	http    HTTPDoer
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Client = (*Shopify)(nil)

func NewShopify(cfg ShopifyConfig, logger *slog.Logger) (*Shopify, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.StoreURL) == "" || cfg.AccessToken == "" {
		return nil, common.ConfigError("shopify store url and access token are required", common.ErrInvalidInput)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-01"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	base := strings.TrimRight(cfg.StoreURL, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	return &Shopify{
		baseURL: fmt.Sprintf("%s/admin/api/%s", base, cfg.APIVersion),
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:  logger,
	}, nil
}

// WithHTTPClient replaces the underlying transport.
func (s *Shopify) WithHTTPClient(doer HTTPDoer) *Shopify {
	s.http = doer
	return s
}

type productPayload struct {
	Title          string           `json:"title,omitempty"`
	BodyHTML       string           `json:"body_html,omitempty"`
	Vendor         string           `json:"vendor,omitempty"`
	ProductType    string           `json:"product_type,omitempty"`
	Status         string           `json:"status,omitempty"`
	Tags           string           `json:"tags,omitempty"`
	SEODescription string           `json:"metafields_global_description_tag,omitempty"`
	Variants       []variantPayload `json:"variants,omitempty"`
	Metafields     []Metafield      `json:"metafields,omitempty"`
}

type variantPayload struct {
	ID             int64       `json:"id,omitempty"`
	Price          string      `json:"price,omitempty"`
	CompareAtPrice string      `json:"compare_at_price,omitempty"`
	Metafields     []Metafield `json:"metafields,omitempty"`
}

type productResponse struct {
	Product struct {
		ID       int64 `json:"id"`
		Variants []struct {
			ID int64 `json:"id"`
		} `json:"variants"`
	} `json:"product"`
}

func (s *Shopify) CreateProduct(ctx context.Context, in ProductInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("create product: empty title: %w", common.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = constants.ProductStatusDraft
	}
	body := map[string]productPayload{
		"product": {
			Title:          in.Title,
			BodyHTML:       in.BodyHTML,
			Vendor:         in.Vendor,
			ProductType:    in.ProductType,
			Status:         string(status),
			Tags:           strings.Join(in.Tags, ", "),
			SEODescription: in.SEODescription,
			Variants:       []variantPayload{{Price: in.Price, CompareAtPrice: in.CompareAtPrice}},
			Metafields:     in.Metafields,
		},
	}

	raw, err := s.send(ctx, "create_product", http.MethodPost, "/products.json", body, http.StatusCreated)
	if err != nil {
		return "", err
	}
	var resp productResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", common.RemoteError("decode create product response", err)
	}
	if resp.Product.ID == 0 {
		return "", common.RemoteError("create product response has no id", common.ErrInvalidInput)
	}
	id := strconv.FormatInt(resp.Product.ID, 10)
	s.logger.Info("storefront.product.created", "product_id", id, "title", in.Title)
	return id, nil
}

func (s *Shopify) AttachImage(ctx context.Context, productID, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image %s: %w", imagePath, err)
	}
	body := map[string]any{
		"image": map[string]string{
			"attachment": base64.StdEncoding.EncodeToString(data),
			"filename":   filepath.Base(imagePath),
		},
	}
	path := fmt.Sprintf("/products/%s/images.json", productID)
	if _, err := s.send(ctx, "attach_image", http.MethodPost, path, body, http.StatusCreated); err != nil {
		return err
	}
	s.logger.Info("storefront.image.attached", "product_id", productID, "image", filepath.Base(imagePath))
	return nil
}

func (s *Shopify) UpdateProductMetadata(ctx context.Context, productID, key, value string) error {
	raw, err := s.send(ctx, "get_variants", http.MethodGet,
		fmt.Sprintf("/products/%s.json?fields=id,variants", productID), nil, http.StatusOK)
	if err != nil {
		return err
	}
	var resp productResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return common.RemoteError("decode product response", err)
	}

	field := TextMetafield(key, value)
	if len(resp.Product.Variants) == 0 {
		body := map[string]Metafield{"metafield": field}
		_, err := s.send(ctx, "create_metafield", http.MethodPost,
			fmt.Sprintf("/products/%s/metafields.json", productID), body, http.StatusCreated)
		return err
	}

	for _, v := range resp.Product.Variants {
		body := map[string]variantPayload{
			"variant": {ID: v.ID, Metafields: []Metafield{field}},
		}
		path := fmt.Sprintf("/variants/%d.json", v.ID)
		if _, err := s.send(ctx, "update_variant", http.MethodPut, path, body, http.StatusOK); err != nil {
			return err
		}
	}
	s.logger.Info("storefront.metadata.updated",
		"product_id", productID, "key", key, "variants", len(resp.Product.Variants))
	return nil
}

func (s *Shopify) SetStatus(ctx context.Context, productID string, status constants.ProductStatus) error {
	id, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return fmt.Errorf("set status: product id %q: %w", productID, common.ErrInvalidInput)
	}
	body := map[string]any{
		"product": map[string]any{"id": id, "status": string(status)},
	}
	if _, err := s.send(ctx, "set_status", http.MethodPut,
		fmt.Sprintf("/products/%s.json", productID), body, http.StatusOK); err != nil {
		return err
	}
	s.logger.Info("storefront.product.status", "product_id", productID, "status", status)
	return nil
}

// send issues one throttled request and returns the body when the status matches want.
func (s *Shopify) send(ctx context.Context, op, method, path string, body any, want int) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqID := uuid.New().String()
	start := time.Now()

	var reader io.Reader
	size := 0
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			s.logger.Error("storefront.http.encode_error", "req_id", reqID, "op", op, "error", err)
			return nil, fmt.Errorf("encode json: %w", err)
		}
		reader = bytes.NewReader(bs)
		size = len(bs)
	}

	url := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", s.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.logger.Info("storefront.http.request",
		"req_id", reqID,
		"op", op,
		"method", method,
		"url", url,
		"content_length", size,
	)

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Error("storefront.http.send_error",
			"req_id", reqID, "op", op, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, common.NetworkError("storefront "+op, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			s.logger.Warn("storefront.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NetworkError("read storefront response", err)
	}

	s.logger.Info("storefront.http.response",
		"req_id", reqID,
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != want {
		s.logger.Error("storefront.http.unexpected_status",
			"req_id", reqID, "op", op, "status", resp.StatusCode, "want", want, "body", string(raw))
		return raw, &RemoteError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
