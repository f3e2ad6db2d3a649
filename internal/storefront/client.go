package storefront

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// Client is the subset of the storefront admin API the pipeline drives.
type Client interface {
	// CreateProduct creates a product and returns its storefront id.
	CreateProduct(ctx context.Context, in ProductInput) (string, error)
	// AttachImage uploads a local image and attaches it to the product.
	AttachImage(ctx context.Context, productID, imagePath string) error
	// UpdateProductMetadata sets a custom metafield on every variant of the product.
	UpdateProductMetadata(ctx context.Context, productID, key, value string) error
	// SetStatus changes the publication status of the product.
	SetStatus(ctx context.Context, productID string, status constants.ProductStatus) error
}

// ProductInput describes a product to create.
type ProductInput struct {
	Title          string
	BodyHTML       string
	Vendor         string
	ProductType    string
	Status         constants.ProductStatus
	Price          string
	CompareAtPrice string
	Tags           []string
	SEODescription string
	Metafields     []Metafield
}

// Metafield is a custom typed value attached to a product or variant.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// TextMetafield builds a single-line text metafield in the default namespace.
func TextMetafield(key, value string) Metafield {
	return Metafield{Namespace: constants.MetafieldNamespace, Key: key, Type: "single_line_text_field", Value: value}
}

// IntegerMetafield builds an integer metafield in the default namespace.
func IntegerMetafield(key string, value int) Metafield {
	return Metafield{Namespace: constants.MetafieldNamespace, Key: key, Type: "number_integer", Value: fmt.Sprint(value)}
}

// RemoteError is a non-2xx answer from the storefront.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("storefront %s: status %d: %s", e.Op, e.Status, body)
}

func (e *RemoteError) Unwrap() error {
	return common.ErrRemote
}
