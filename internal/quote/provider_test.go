package quote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/massive-com/client-go/v2/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/implied-vol/internal/config"
	"github.com/contactkeval/implied-vol/internal/ivol"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

var (
	asOf     = time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	expiry   = time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	spyCall  = Contract{Underlying: "SPY", Strike: 580, Expiry: expiry, Kind: pricing.Call}
	spyPut   = Contract{Underlying: "spy", Strike: 580, Expiry: expiry, Kind: pricing.Put}
	fixedNow = func() time.Time { return asOf }
)

func TestOptionSymbol(t *testing.T) {
	assert.Equal(t, "O:SPY250117C00580000", spyCall.Symbol())
	assert.Equal(t, "O:SPY250117P00580000", spyPut.Symbol())
	assert.Equal(t, "O:AAPL250117C00182500", OptionSymbol("aapl", expiry, pricing.Call, 182.5))
}

func TestExpiryClose(t *testing.T) {
	assert.True(t, time.Date(2025, 1, 17, 21, 0, 0, 0, time.UTC).Equal(ExpiryClose(expiry)))

	summer, err := ParseExpiry("2025-07-18")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 7, 18, 20, 0, 0, 0, time.UTC).Equal(summer))
	assert.Equal(t, "O:SPY250718C00600000", OptionSymbol("SPY", summer, pricing.Call, 600))

	_, err = ParseExpiry("17/01/2025")
	assert.Error(t, err)
}

func TestQuoteMid(t *testing.T) {
	assert.Equal(t, 2.5, Quote{Bid: 2, Ask: 3, Last: 9}.Mid())
	assert.Equal(t, 9.0, Quote{Bid: 0, Ask: 3, Last: 9}.Mid())
	assert.Equal(t, 0.0, Quote{}.Mid())
}

func TestSyntheticRoundTrip(t *testing.T) {
	p := NewSyntheticProvider(581.39, 0.18, 0.04)
	p.now = fixedNow

	q, err := p.GetQuote(context.Background(), spyCall)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", q.Source)
	assert.Less(t, q.Bid, q.Ask)

	res, err := ivol.Solve(context.Background(), ivol.Request{
		Spot:        q.Spot,
		Strike:      q.Contract.Strike,
		Expiry:      q.DaysToExpiry() / 365,
		Rate:        0.04,
		MarketPrice: q.Mid(),
		Kind:        q.Contract.Kind,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.18, res.Volatility, 1e-4)
}

func TestSyntheticExpired(t *testing.T) {
	p := NewSyntheticProvider(100, 0.2, 0.05)
	p.now = func() time.Time { return expiry.Add(time.Hour) }

	_, err := p.GetQuote(context.Background(), spyCall)
	assert.ErrorIs(t, err, ErrNoQuote)
}

const quotesCSV = `underlying,expiry,strike,kind,spot,bid,ask,last,as_of
SPY,2025-01-17,580,call,581.39,12.10,12.18,12.14,2025-01-02T15:00:00Z
SPY,2025-01-17,580,put,581.39,8.40,8.46,,2025-01-02T15:00:00Z
SPY,not-a-date,590,call,581.39,1,2,1.5,2025-01-02T15:00:00Z
SPY,2025-01-17,600,straddle,581.39,1,2,1.5,2025-01-02T15:00:00Z
`

func writeQuotes(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, QuotesFile), []byte(body), 0644))
	return dir
}

func TestLocalCSVProvider(t *testing.T) {
	p := NewLocalCSVProvider(writeQuotes(t, quotesCSV), nil)

	q, err := p.GetQuote(context.Background(), spyCall)
	require.NoError(t, err)
	assert.Equal(t, 581.39, q.Spot)
	assert.InDelta(t, 12.14, q.Mid(), 1e-12)
	assert.True(t, asOf.Equal(q.AsOf))
	// 2025-01-02 15:00Z to the 2025-01-17 16:00 EST close.
	assert.InDelta(t, 15.25, q.DaysToExpiry(), 1e-9)

	q, err = p.GetQuote(context.Background(), spyPut)
	require.NoError(t, err)
	assert.InDelta(t, 8.43, q.Mid(), 1e-12)
	assert.Zero(t, q.Last)

	_, err = p.GetQuote(context.Background(), Contract{Underlying: "SPY", Strike: 590, Expiry: expiry, Kind: pricing.Call})
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestLocalCSVFallsBackToSecondary(t *testing.T) {
	synth := NewSyntheticProvider(100, 0.3, 0.01)
	synth.now = fixedNow
	p := NewLocalCSVProvider(writeQuotes(t, quotesCSV), synth)

	missing := Contract{Underlying: "QQQ", Strike: 500, Expiry: expiry, Kind: pricing.Put}
	q, err := p.GetQuote(context.Background(), missing)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", q.Source)
	assert.Same(t, synth, p.Secondary())
}

func TestLocalCSVMissingFile(t *testing.T) {
	p := NewLocalCSVProvider(t.TempDir(), nil)
	_, err := p.GetQuote(context.Background(), spyCall)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadQuotesBadHeader(t *testing.T) {
	_, err := readQuotes(strings.NewReader("a,b,c,d,e,f,g,h,i\n"))
	assert.ErrorContains(t, err, "unexpected column")
}

type fakeSnapshots struct {
	res    *models.GetOptionContractSnapshotResponse
	err    error
	params *models.GetOptionContractSnapshotParams
}

func (f *fakeSnapshots) GetOptionContractSnapshot(
	ctx context.Context,
	params *models.GetOptionContractSnapshotParams,
	options ...models.RequestOption,
) (*models.GetOptionContractSnapshotResponse, error) {
	f.params = params
	return f.res, f.err
}

func TestMassiveProvider(t *testing.T) {
	res := &models.GetOptionContractSnapshotResponse{}
	res.Results.UnderlyingAsset.Price = 581.39
	res.Results.LastQuote.Bid = 12.10
	res.Results.LastQuote.Ask = 12.18
	res.Results.LastTrade.Price = 12.14

	fake := &fakeSnapshots{res: res}
	p := &massiveProvider{client: fake, now: fixedNow}

	q, err := p.GetQuote(context.Background(), spyCall)
	require.NoError(t, err)
	assert.Equal(t, "SPY", fake.params.UnderlyingAsset)
	assert.Equal(t, "O:SPY250117C00580000", fake.params.OptionContract)
	assert.Equal(t, 581.39, q.Spot)
	assert.InDelta(t, 12.14, q.Mid(), 1e-12)
	assert.Equal(t, "massive", q.Source)
}

func TestMassiveProviderUpperCasesUnderlying(t *testing.T) {
	res := &models.GetOptionContractSnapshotResponse{}
	res.Results.UnderlyingAsset.Price = 581.39
	res.Results.LastTrade.Price = 7.9

	fake := &fakeSnapshots{res: res}
	p := &massiveProvider{client: fake, now: fixedNow}

	_, err := p.GetQuote(context.Background(), spyPut)
	require.NoError(t, err)
	assert.Equal(t, "SPY", fake.params.UnderlyingAsset)
	assert.Equal(t, "O:SPY250117P00580000", fake.params.OptionContract)
}

func TestMassiveProviderErrorFallsBack(t *testing.T) {
	synth := NewSyntheticProvider(581.39, 0.2, 0.04)
	synth.now = fixedNow

	p := &massiveProvider{client: &fakeSnapshots{err: errors.New("status 403")}, secondary: synth, now: fixedNow}
	q, err := p.GetQuote(context.Background(), spyCall)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", q.Source)

	p.secondary = nil
	_, err = p.GetQuote(context.Background(), spyCall)
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestMassiveProviderEmptySnapshot(t *testing.T) {
	p := &massiveProvider{client: &fakeSnapshots{res: &models.GetOptionContractSnapshotResponse{}}, now: fixedNow}
	_, err := p.GetQuote(context.Background(), spyCall)
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestFromConfig(t *testing.T) {
	p, err := FromConfig(config.QuoteConfig{Provider: "csv", Fallback: "synthetic", Dir: "x", Spot: 100, Vol: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "csv", p.Name())
	require.NotNil(t, p.Secondary())
	assert.Equal(t, "synthetic", p.Secondary().Name())

	_, err = FromConfig(config.QuoteConfig{Provider: "massive"})
	assert.ErrorContains(t, err, "api_key")

	_, err = FromConfig(config.QuoteConfig{Provider: "bloomberg"})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = FromConfig(config.QuoteConfig{Provider: "synthetic", Fallback: "csv", Spot: 100, Vol: 0.2})
	assert.ErrorContains(t, err, "never used")

	_, err = FromConfig(config.QuoteConfig{Provider: "csv", Fallback: "csv", Dir: "x"})
	assert.ErrorContains(t, err, "own fallback")
}
