package main

import (
	"strings"
	"testing"
	"time"

	"github.com/dnldd/sweep/fetch"
	"github.com/peterldowns/testy/assert"
)

func TestNewFetcher(t *testing.T) {
	// Ensure binance is used when no historic data is configured.
	cfg := &Config{Market: "BTCUSDT"}
	fetcher, err := newFetcher(cfg, time.UTC)
	assert.NoError(t, err)
	_, ok := fetcher.(*fetch.BinanceClient)
	assert.True(t, ok)

	// Ensure historic data covering the configured market is used.
	cfg.DataFilepath = "testdata/historicdata.json"
	fetcher, err = newFetcher(cfg, time.UTC)
	assert.NoError(t, err)
	historicData, ok := fetcher.(*fetch.HistoricData)
	assert.True(t, ok)
	assert.Equal(t, historicData.Market(), "BTCUSDT")

	// Ensure historic data of another market is rejected.
	cfg.Market = "ETHUSDT"
	fetcher, err = newFetcher(cfg, time.UTC)
	assert.Error(t, err)
	assert.Nil(t, fetcher)
	assert.True(t, strings.Contains(err.Error(), "covers BTCUSDT, expected ETHUSDT"))

	// Ensure unreadable historic data is rejected.
	cfg.DataFilepath = "testdata/missing.json"
	_, err = newFetcher(cfg, time.UTC)
	assert.Error(t, err)
}
