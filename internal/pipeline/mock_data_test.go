package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flare-region-etl/internal/adapter/catalog"
	"github.com/couchcryptid/flare-region-etl/internal/adapter/flarecast"
	"github.com/couchcryptid/flare-region-etl/internal/adapter/flarecast/flarecasttest"
	"github.com/couchcryptid/flare-region-etl/internal/domain"
	"github.com/couchcryptid/flare-region-etl/internal/observability"
	"github.com/couchcryptid/flare-region-etl/internal/pipeline"
)

func mockDataPath(name string) string {
	return filepath.Join("..", "..", "data", "mock", name)
}

// TestPipeline_WithMockData runs the whole catalog fixture through the real
// adapters against the fixture-backed property service.
func TestPipeline_WithMockData(t *testing.T) {
	freezeClock(t)
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	regions, err := flarecasttest.LoadFixture(mockDataPath("flarecast_regions.json"))
	require.NoError(t, err)
	srv := httptest.NewServer(flarecasttest.NewHandler("production_02", regions, logger))
	defer srv.Close()

	client := flarecast.NewClient(flarecast.Options{
		BaseURL: srv.URL,
		Dataset: "production_02",
		Timeout: 5 * time.Second,
	}, metrics, logger)
	fetcher := flarecast.NewCachedFetcher(client, 16, metrics)

	enricher := pipeline.NewRegionEnricher(fetcher, domain.NewMatcher(15), domain.NewAssembler(25, nil),
		enricherConfig(pipeline.ModeTimeSeries), metrics, logger)

	out := filepath.Join(t.TempDir(), "helcats_list_flarecast.json")
	p := pipeline.New(
		catalog.NewReader(mockDataPath("helcats_sample.json"), logger),
		enricher,
		[]pipeline.BatchLoader{catalog.NewFileWriter(out, logger)},
		logger, metrics,
		pipeline.Options{EventTypes: []string{"swpc", "hessi"}, Workers: 3},
	)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, report.CatalogEvents)
	assert.Equal(t, 5, report.Selected)
	assert.Equal(t, 1, report.MatchedByNumber)
	assert.Equal(t, 1, report.MatchedByPosition)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, 1, report.SkippedBeforeDataStart)
	assert.Equal(t, 1, report.SkippedNoRegion)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 5)

	byNumber := rows[0]
	assert.Equal(t, "HCME_A__20130513_01", byNumber["CME_ID"])
	match := byNumber[domain.KeyFlarecastMatch].(map[string]any)
	assert.Equal(t, "number", match["method"])
	assert.InDelta(t, 2748, match["harp"], 0)

	series := byNumber[domain.KeyFlarecastData].(map[string]any)
	values := series["r_values_br"].([]any)
	require.Len(t, values, 25)
	assert.Nil(t, values[17], "the fixture has no sample 7 hours before the match")
	assert.InDelta(t, 3.4, values[24], 1e-9)
	assert.NotNil(t, values[0])

	byPosition := rows[1]
	match = byPosition[domain.KeyFlarecastMatch].(map[string]any)
	assert.Equal(t, "position", match["method"])
	assert.InDelta(t, 2750, match["harp"], 0)
	series = byPosition[domain.KeyFlarecastData].(map[string]any)
	values = series["usiz_tot"].([]any)
	assert.NotNil(t, values[24])
	assert.NotNil(t, values[23])
	assert.Nil(t, values[22])

	for _, row := range rows[2:] {
		assert.NotContains(t, row, domain.KeyFlarecastData)
	}
}
