package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/internal/config"
	"github.com/scimma/lsst-quality-filter/internal/engine"
)

const locusDoc = `{"data": [{"id": "ANT2026xyz", "type": "locus", "attributes": {"locus_id": "ANT2026xyz", "ra": 150.5, "dec": -30.25}}]}`

func alertsDoc(snr string) string {
	return `{"data": [{"id": "lsst:1", "type": "alert", "attributes": {"mjd": 61000.5, "properties": {
		"lsst_diaSource_snr": ` + snr + `,
		"lsst_diaSource_ssObjectId": null,
		"lsst_diaSource_psfFlux_flag": false,
		"lsst_diaSource_centroid_flag": false,
		"lsst_diaSource_shape_flag": false,
		"lsst_diaSource_isDipole": false,
		"lsst_diaSource_pixelFlags_saturated": false,
		"lsst_diaSource_pixelFlags_edge": false,
		"lsst_diaSource_pixelFlags_cr": false,
		"lsst_diaSource_pixelFlags_streak": false
	}}}]}`
}

func antaresStub(t *testing.T, loci, alerts string) config.AntaresConfig {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/loci":
			w.Write([]byte(loci))
		case "/v1/loci/ANT2026xyz/alerts":
			w.Write([]byte(alerts))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return config.AntaresConfig{BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second}
}

func TestRun_Pass(t *testing.T) {
	cfg := antaresStub(t, locusDoc, alertsDoc("15.2"))
	var out bytes.Buffer

	code := run(context.Background(), &out, cfg, "170055002004914266", false, zap.NewNop())

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Locus ID : ANT2026xyz")
	assert.Contains(t, out.String(), "Alerts   : 1")
	assert.Contains(t, out.String(), "PASS: locus tagged 'lsst_scimma_quality_transient'")
}

func TestRun_Reject(t *testing.T) {
	cfg := antaresStub(t, locusDoc, alertsDoc("10.0"))
	var out bytes.Buffer

	code := run(context.Background(), &out, cfg, "170055002004914266", true, zap.NewNop())

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), `"check": "snr"`)
	assert.Contains(t, out.String(), "REJECT: locus was not tagged")
}

func TestRun_NotFound(t *testing.T) {
	cfg := antaresStub(t, `{"data": []}`, "")
	var out bytes.Buffer

	code := run(context.Background(), &out, cfg, "1", false, zap.NewNop())

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "ERROR: Locus not found")
}

func TestRun_InvalidProperties(t *testing.T) {
	cfg := antaresStub(t, locusDoc, alertsDoc(`"bright"`))
	var out bytes.Buffer

	code := run(context.Background(), &out, cfg, "170055002004914266", false, zap.NewNop())

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "lsst_diaSource_snr")
}

func TestRun_ReportEncodingError(t *testing.T) {
	cfg := antaresStub(t, locusDoc, alertsDoc("15.2"))
	orig := marshalReport
	marshalReport = func(*engine.Report) ([]byte, error) {
		return nil, errors.New("unsupported value")
	}
	t.Cleanup(func() { marshalReport = orig })
	var out bytes.Buffer

	code := run(context.Background(), &out, cfg, "170055002004914266", true, zap.NewNop())

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "ERROR: encode report: unsupported value")
	assert.NotContains(t, out.String(), "PASS:")
}
