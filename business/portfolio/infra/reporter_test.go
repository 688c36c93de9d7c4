package infra_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	marketdomain "github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/business/portfolio/domain"
	"github.com/fd1az/lendscope/business/portfolio/infra"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleReport() *domain.Report {
	return &domain.Report{
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Totals: domain.Totals{
			TotalDeposited: dec("1500"),
			CurrentAPR:     dec("8.52"),
			MaxAPR:         dec("10.95"),
			IdleUSD:        dec("2000.5"),
		},
		Chains: []domain.ChainSummary{{
			Chain:       "BASE",
			Block:       5000,
			Pools:       1,
			SuppliedUSD: dec("1000"),
			Assets: []domain.AssetSummary{{
				Chain:      "BASE",
				Asset:      "USDC",
				Supplied:   domain.Deposit{Amount: dec("1000"), USD: dec("1000")},
				CurrentAPR: dec("7.3"),
				MaxAPR:     dec("10.95"),
			}},
		}},
		GoodPools: []marketdomain.Pool{
			{
				Platform:   "Impermax",
				Chain:      "BASE",
				Asset:      "USDC",
				Borrowable: common.HexToAddress("0x1001"),
				APRNew:     dec("12.5"),
				TVLUSD:     dec("250000"),
				VaultAPR:   marketdomain.UnknownVaultAPR(),
			},
			{
				Platform:       "Impermax",
				Chain:          "BASE",
				Asset:          "USDC",
				OppositeSymbol: "AERO",
				Borrowable:     common.HexToAddress("0x1002"),
				APRNew:         dec("9"),
				VaultAPR:       marketdomain.KnownVaultAPR(dec("4.2")),
			},
		},
		Prices: map[string]decimal.Decimal{"USDC": dec("1")},
	}
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	if err := infra.NewConsoleReporter(&buf).Report(context.Background(), sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"TOTALS", "1500.00", "8.52%",
		"CHAINS", "BASE @5000", "1 pools", "7.30%",
		"GOOD POOLS", "Impermax USDC/?", "Impermax USDC/AERO", "unknown", "4.20",
		"1 good pools have no vault APR history",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestJSONReporter(t *testing.T) {
	decimal.MarshalJSONWithoutQuotes = true
	defer func() { decimal.MarshalJSONWithoutQuotes = false }()

	var buf bytes.Buffer
	if err := infra.NewJSONReporter(&buf).Report(context.Background(), sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Totals struct {
			TotalDeposited json.Number `json:"totalDeposited"`
		} `json:"totals"`
		GoodPools []struct {
			VaultAPR json.RawMessage `json:"vaultAPR"`
		} `json:"goodPools"`
	}
	d := json.NewDecoder(&buf)
	d.UseNumber()
	if err := d.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Totals.TotalDeposited.String() != "1500" {
		t.Errorf("expected numeric 1500, got %s", got.Totals.TotalDeposited)
	}
	if len(got.GoodPools) != 2 {
		t.Fatalf("expected 2 good pools, got %d", len(got.GoodPools))
	}
	if string(got.GoodPools[0].VaultAPR) != `"unknown"` {
		t.Errorf("expected unknown sentinel, got %s", got.GoodPools[0].VaultAPR)
	}
	if string(got.GoodPools[1].VaultAPR) != "4.2" {
		t.Errorf("expected 4.2, got %s", got.GoodPools[1].VaultAPR)
	}
}

type lastReport struct {
	report *domain.Report
}

func (l lastReport) LastReport() *domain.Report {
	return l.report
}

func TestReportHandler(t *testing.T) {
	tests := []struct {
		name   string
		report *domain.Report
		status int
	}{
		{"no report yet", nil, http.StatusServiceUnavailable},
		{"latest report", sampleReport(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			infra.ReportHandler(lastReport{tt.report}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected json content type, got %q", ct)
			}
			if tt.report != nil && !strings.Contains(rec.Body.String(), `"goodPools"`) {
				t.Errorf("expected report body, got %s", rec.Body.String())
			}
		})
	}
}
