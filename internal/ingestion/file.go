package ingestion

import (
	"context"
	"fmt"
	"log"
	"os"

	"lottery-bridge-lab/internal/storage"
)

// ImportFile ingests a CSV draw file into store.
func ImportFile(ctx context.Context, path string, store storage.DrawStore, logger *log.Logger) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open draw file: %w", err)
	}
	defer f.Close()

	m := NewManager(ManagerOptions{
		Source: NewCSVSource(f),
		Store:  store,
		Logger: logger,
	})
	return m.Ingest(ctx)
}
