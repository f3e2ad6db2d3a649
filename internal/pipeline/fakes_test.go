package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/catalog"
	"github.com/joseph-ayodele/digital-products/internal/common"
	"github.com/joseph-ayodele/digital-products/internal/ingest"
	"github.com/joseph-ayodele/digital-products/internal/ledger"
	"github.com/joseph-ayodele/digital-products/internal/storefront"
)

type fakeStorefront struct {
	mu       sync.Mutex
	nextID   int
	created  map[string]storefront.ProductInput
	images   map[string]string
	metadata map[string]string
	statuses map[string]constants.ProductStatus

	metaCalls int

	createErr map[string]error // by title
	imageErr  error
	metaErr   map[string]error // by product id
	statusErr map[string]error // by product id
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{
		nextID:    1000,
		created:   map[string]storefront.ProductInput{},
		images:    map[string]string{},
		metadata:  map[string]string{},
		statuses:  map[string]constants.ProductStatus{},
		createErr: map[string]error{},
		metaErr:   map[string]error{},
		statusErr: map[string]error{},
	}
}

func (f *fakeStorefront) CreateProduct(_ context.Context, in storefront.ProductInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[in.Title]; err != nil {
		return "", err
	}
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.created[id] = in
	return id, nil
}

func (f *fakeStorefront) AttachImage(_ context.Context, productID, imagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return f.imageErr
	}
	f.images[productID] = filepath.Base(imagePath)
	return nil
}

func (f *fakeStorefront) UpdateProductMetadata(_ context.Context, productID, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	if err := f.metaErr[productID]; err != nil {
		return err
	}
	if key != constants.DigitalDownloadKey {
		return fmt.Errorf("unexpected key %q", key)
	}
	f.metadata[productID] = value
	return nil
}

func (f *fakeStorefront) SetStatus(_ context.Context, productID string, status constants.ProductStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statusErr[productID]; err != nil {
		return err
	}
	f.statuses[productID] = status
	return nil
}

func (f *fakeStorefront) titles() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for id, in := range f.created {
		out[in.Title] = id
	}
	return out
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
	fail    map[string]error // by base name
}

func (u *fakeUploader) Backend() string { return "fake" }

func (u *fakeUploader) Upload(_ context.Context, localPath string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	name := filepath.Base(localPath)
	if err := u.fail[name]; err != nil {
		return "", err
	}
	u.uploads = append(u.uploads, name)
	return "https://files.example/" + name, nil
}

type fakeInspector struct {
	fail map[string]bool // by base name
}

func (i fakeInspector) PageCount(path string) (int, error) {
	if i.fail[filepath.Base(path)] {
		return 0, fmt.Errorf("read pdf %s: malformed xref", path)
	}
	return 12, nil
}

type countingObserver struct {
	mu    sync.Mutex
	items map[string]int
	ops   map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{items: map[string]int{}, ops: map[string]int{}}
}

func (o *countingObserver) RecordItem(stage, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[stage+"/"+outcome]++
}

func (o *countingObserver) RecordStage(string, time.Duration) {}

func (o *countingObserver) RecordOperation(op string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops[op]++
}

func (o *countingObserver) RecordUpload(int64) {}

// failingAppendLedger reports a ledger write failure on every append.
type failingAppendLedger struct {
	ledger.Store
}

func (failingAppendLedger) Append(context.Context, string, string) error {
	return common.LedgerIOError("append row", os.ErrPermission)
}

type fixture struct {
	root     string
	shop     *fakeStorefront
	uploader *fakeUploader
	store    *ledger.CSVStore
	observer *countingObserver
	orch     *Orchestrator
	tmpl     *catalog.Template
}

func newFixture(t *testing.T, pdfs []string, images []string) *fixture {
	t.Helper()
	root := t.TempDir()
	for _, p := range pdfs {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("%PDF-1.4\n%%EOF\n"), 0o644))
	}
	if len(images) > 0 {
		require.NoError(t, os.MkdirAll(filepath.Join(root, constants.ImagesDir), 0o755))
		for _, img := range images {
			require.NoError(t, os.WriteFile(filepath.Join(root, constants.ImagesDir, img), []byte("jpg"), 0o644))
		}
	}

	store := ledger.NewCSVStore(filepath.Join(root, constants.LedgerFileName), nil)
	require.NoError(t, store.Init(context.Background()))

	f := &fixture{
		root:     root,
		shop:     newFakeStorefront(),
		uploader: &fakeUploader{fail: map[string]error{}},
		store:    store,
		observer: newCountingObserver(),
		tmpl: &catalog.Template{
			Description:             "<p>desc</p>",
			Price:                   "19.99",
			CompareToPrice:          "29.00",
			Collections:             []string{"Reports"},
			SearchEngineDescription: "seo",
			Vendor:                  catalog.DefaultVendor,
			ProductType:             catalog.DefaultProductType,
		},
	}
	f.orch = f.build(t, store, nil)
	return f
}

func (f *fixture) build(t *testing.T, store ledger.Store, inspector ingest.Inspector) *Orchestrator {
	t.Helper()
	orch, err := New(Dependencies{
		Scanner:    ingest.NewFSScanner(nil),
		Inspector:  inspector,
		Ledger:     store,
		Storefront: f.shop,
		Storage:    f.uploader,
		Observer:   f.observer,
	})
	require.NoError(t, err)
	return orch
}

func (f *fixture) rows(t *testing.T) []ledger.Row {
	t.Helper()
	rows, err := f.store.ReadAll(context.Background())
	require.NoError(t, err)
	return rows
}
