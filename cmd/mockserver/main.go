// Command mockserver serves a FLARECAST-compatible property API from a JSON
// fixture, for local end-to-end runs of the ETL without network access.
//
// Usage:
//
//	go run ./cmd/mockserver \
//	  -fixture data/mock/flarecast_regions.json \
//	  -addr :8002
//
// Then point the ETL at it with FLARECAST_URL=http://localhost:8002.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/flare-region-etl/internal/adapter/flarecast/flarecasttest"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mockserver failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":8002", "listen address")
	fixture := flag.String("fixture", "data/mock/flarecast_regions.json", "region list fixture ({\"data\":[...]})")
	dataset := flag.String("dataset", "production_02", "dataset name served under /region/{dataset}/list")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("service", "flarecast-mock")

	regions, err := flarecasttest.LoadFixture(*fixture)
	if err != nil {
		return err
	}
	logger.Info("fixture loaded", "path", *fixture, "regions", len(regions))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           flarecasttest.NewHandler(*dataset, regions, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("mock FLARECAST service listening", "addr", *addr, "dataset", *dataset)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
