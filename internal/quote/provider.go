// Package quote supplies observed option prices that implied volatility is
// solved from.
//
// Providers can be chained: when a provider has no quote for a contract it
// delegates to its secondary provider, if one is configured.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/contactkeval/implied-vol/internal/config"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

// ErrNoQuote is returned when a provider (and its secondaries) has no usable
// price for a contract.
var ErrNoQuote = errors.New("no quote available")

// Provider supplies option quotes.
type Provider interface {
	Name() string
	Secondary() Provider
	GetQuote(ctx context.Context, c Contract) (Quote, error)
}

// Contract identifies a listed option.
type Contract struct {
	Underlying string
	Strike     float64
	Expiry     time.Time
	Kind       pricing.Kind
}

// Symbol returns the OCC ticker of the contract.
func (c Contract) Symbol() string {
	return OptionSymbol(c.Underlying, c.Expiry, c.Kind, c.Strike)
}

// Quote is a market snapshot of an option and its underlying.
type Quote struct {
	Contract Contract
	Spot     float64
	Bid      float64
	Ask      float64
	Last     float64
	AsOf     time.Time
	Source   string
}

// Mid returns the bid/ask midpoint when both sides are positive, otherwise
// the last trade price.
func (q Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// DaysToExpiry returns calendar days from the quote time to expiry.
func (q Quote) DaysToExpiry() float64 {
	return q.Contract.Expiry.Sub(q.AsOf).Hours() / 24
}

// Listed options stop trading at the 16:00 New York close on expiration day.
const closeHour = 16

var newYork = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ExpiryClose returns the market close on the calendar date of day.
func ExpiryClose(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, closeHour, 0, 0, 0, newYork)
}

// ParseExpiry parses a YYYY-MM-DD expiration date and returns its market
// close.
func ParseExpiry(s string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("expiry: %w", err)
	}
	return ExpiryClose(day), nil
}

// OptionSymbol formats an OCC-style option ticker:
// O:<root><YYMMDD><C|P><strike*1000 padded to 8 digits>.
func OptionSymbol(underlying string, expiry time.Time, kind pricing.Kind, strike float64) string {
	right := "C"
	if kind == pricing.Put {
		right = "P"
	}
	return fmt.Sprintf("O:%s%s%s%08d",
		strings.ToUpper(underlying),
		expiry.UTC().Format("060102"),
		right,
		int(math.Round(strike*1000)))
}

// fallback delegates to secondary when err is ErrNoQuote.
func fallback(ctx context.Context, secondary Provider, c Contract, err error) (Quote, error) {
	if secondary == nil || !errors.Is(err, ErrNoQuote) {
		return Quote{}, err
	}
	return secondary.GetQuote(ctx, c)
}

// FromConfig builds the configured provider chain.
func FromConfig(cfg config.QuoteConfig) (Provider, error) {
	if err := cfg.CheckFallback(); err != nil {
		return nil, err
	}
	var secondary Provider
	if cfg.Fallback != "" {
		p, err := build(cfg.Fallback, cfg, nil)
		if err != nil {
			return nil, err
		}
		secondary = p
	}
	return build(cfg.Provider, cfg, secondary)
}

func build(name string, cfg config.QuoteConfig, secondary Provider) (Provider, error) {
	switch name {
	case "synthetic":
		return NewSyntheticProvider(cfg.Spot, cfg.Vol, cfg.Rate), nil
	case "csv":
		return NewLocalCSVProvider(cfg.Dir, secondary), nil
	case "massive":
		if cfg.APIKey == "" {
			return nil, errors.New("quotes: massive provider needs quotes.api_key")
		}
		return NewMassiveProvider(cfg.APIKey, secondary), nil
	}
	return nil, fmt.Errorf("quotes: unknown provider %q", name)
}
