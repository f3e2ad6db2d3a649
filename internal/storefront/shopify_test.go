package storefront

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

type recordedRequest struct {
	Method string
	Path   string
	Token  string
	Body   map[string]any
}

type fakeShop struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Token:  r.Header.Get("X-Shopify-Access-Token"),
		Body:   body,
	})
	f.mu.Unlock()
	f.handler(w, r)
}

func newTestShopify(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Shopify, *fakeShop) {
	t.Helper()
	fake := &fakeShop{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewShopify(ShopifyConfig{
		StoreURL:    srv.URL,
		AccessToken: "shpat_test",
		RateLimit:   1000,
		Burst:       100,
	}, nil)
	require.NoError(t, err)
	return client, fake
}

func TestCreateProductRequestShape(t *testing.T) {
	client, fake := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"product":{"id":632910392,"variants":[{"id":808950810}]}}`)
	})

	id, err := client.CreateProduct(context.Background(), ProductInput{
		Title:          "Annual Widget Report",
		BodyHTML:       "<p>desc</p>",
		Vendor:         "Your Vendor",
		ProductType:    "Digital Product",
		Price:          "19.99",
		CompareAtPrice: "29.00",
		Tags:           []string{"Reports", "2024"},
		SEODescription: "seo",
		Metafields:     []Metafield{IntegerMetafield("page_count", 12)},
	})
	require.NoError(t, err)
	assert.Equal(t, "632910392", id)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/admin/api/2024-01/products.json", req.Path)
	assert.Equal(t, "shpat_test", req.Token)

	product := req.Body["product"].(map[string]any)
	assert.Equal(t, "Annual Widget Report", product["title"])
	assert.Equal(t, "draft", product["status"])
	assert.Equal(t, "Reports, 2024", product["tags"])
	assert.Equal(t, "seo", product["metafields_global_description_tag"])
	variant := product["variants"].([]any)[0].(map[string]any)
	assert.Equal(t, "19.99", variant["price"])
	assert.Equal(t, "29.00", variant["compare_at_price"])
	mf := product["metafields"].([]any)[0].(map[string]any)
	assert.Equal(t, "custom", mf["namespace"])
	assert.Equal(t, "page_count", mf["key"])
	assert.Equal(t, "12", mf["value"])
}

func TestCreateProductNon201IsRemoteError(t *testing.T) {
	client, _ := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"errors":{"title":["can't be blank"]}}`)
	})

	_, err := client.CreateProduct(context.Background(), ProductInput{Title: "X"})
	require.Error(t, err)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnprocessableEntity, re.Status)
	assert.Equal(t, "create_product", re.Op)
	assert.Equal(t, common.KindRemote, common.KindOf(err))
}

func TestCreateProductRejectsEmptyTitle(t *testing.T) {
	client, fake := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.CreateProduct(context.Background(), ProductInput{Title: "  "})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Empty(t, fake.requests)
}

func TestAttachImageSendsBase64(t *testing.T) {
	img := filepath.Join(t.TempDir(), "widget.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpegbytes"), 0o644))

	client, fake := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"image":{"id":1}}`)
	})

	require.NoError(t, client.AttachImage(context.Background(), "42", img))

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/admin/api/2024-01/products/42/images.json", fake.requests[0].Path)
	image := fake.requests[0].Body["image"].(map[string]any)
	assert.Equal(t, "widget.jpg", image["filename"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpegbytes")), image["attachment"])
}

func TestUpdateProductMetadataTouchesEveryVariant(t *testing.T) {
	client, fake := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"product":{"id":42,"variants":[{"id":1001},{"id":1002}]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"variant":{}}`)
	})

	err := client.UpdateProductMetadata(context.Background(), "42", constants.DigitalDownloadKey, "https://drive/x")
	require.NoError(t, err)

	require.Len(t, fake.requests, 3)
	assert.Equal(t, "/admin/api/2024-01/products/42.json", fake.requests[0].Path)
	assert.Equal(t, "/admin/api/2024-01/variants/1001.json", fake.requests[1].Path)
	assert.Equal(t, "/admin/api/2024-01/variants/1002.json", fake.requests[2].Path)

	variant := fake.requests[1].Body["variant"].(map[string]any)
	assert.EqualValues(t, 1001, variant["id"])
	mf := variant["metafields"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{
		"namespace": "custom",
		"key":       "digital_download",
		"type":      "single_line_text_field",
		"value":     "https://drive/x",
	}, mf)
}

func TestUpdateProductMetadataStopsOnVariantFailure(t *testing.T) {
	client, fake := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"product":{"id":42,"variants":[{"id":1001},{"id":1002}]}}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.UpdateProductMetadata(context.Background(), "42", "digital_download", "https://drive/x")
	assert.ErrorIs(t, err, common.ErrRemote)
	assert.Len(t, fake.requests, 2)
}

func TestSetStatus(t *testing.T) {
	client, fake := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"product":{"id":42}}`)
	})

	require.NoError(t, client.SetStatus(context.Background(), "42", constants.ProductStatusActive))

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPut, fake.requests[0].Method)
	assert.Equal(t, "/admin/api/2024-01/products/42.json", fake.requests[0].Path)
	product := fake.requests[0].Body["product"].(map[string]any)
	assert.Equal(t, "active", product["status"])
	assert.EqualValues(t, 42, product["id"])
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewShopify(ShopifyConfig{StoreURL: url, AccessToken: "t"}, nil)
	require.NoError(t, err)

	err = client.SetStatus(context.Background(), "1", constants.ProductStatusActive)
	assert.Equal(t, common.KindNetwork, common.KindOf(err))
}

func TestCanceledContextIsCanceled(t *testing.T) {
	client, fake := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.SetStatus(ctx, "1", constants.ProductStatusActive)
	assert.Equal(t, common.KindCanceled, common.KindOf(err))
	assert.Empty(t, fake.requests)
}

func TestNewShopifyRequiresCredentials(t *testing.T) {
	_, err := NewShopify(ShopifyConfig{StoreURL: "shop.myshopify.com"}, nil)
	assert.ErrorIs(t, err, common.ErrConfig)

	s, err := NewShopify(ShopifyConfig{StoreURL: "shop.myshopify.com/", AccessToken: "t", APIVersion: "2024-04"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.myshopify.com/admin/api/2024-04", s.baseURL)
}
