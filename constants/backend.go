package constants

// Ledger backends selectable through LEDGER_BACKEND.
const (
	LedgerCSV      = "csv"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// Storage backends selectable through STORAGE_BACKEND.
const (
	StorageDrive = "drive"
	StorageGCS   = "gcs"
	StorageS3    = "s3"
)

// DigitalDownloadKey is the variant metafield that carries the shareable link.
const DigitalDownloadKey = "digital_download"

// MetafieldNamespace is the namespace used for every metafield this tool writes.
const MetafieldNamespace = "custom"
