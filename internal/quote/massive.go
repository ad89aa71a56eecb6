package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"

	"github.com/contactkeval/implied-vol/internal/logger"
)

// snapshotClient is the part of the Massive REST client used here.
type snapshotClient interface {
	GetOptionContractSnapshot(
		ctx context.Context,
		params *models.GetOptionContractSnapshotParams,
		options ...models.RequestOption,
	) (*models.GetOptionContractSnapshotResponse, error)
}

// massiveProvider reads option contract snapshots from the Massive API.
type massiveProvider struct {
	client    snapshotClient
	secondary Provider
	now       func() time.Time
}

// NewMassiveProvider constructs a Massive-backed provider authenticated with
// apiKey.
func NewMassiveProvider(apiKey string, secondary Provider) *massiveProvider {
	logger.Infof("initializing Massive quote provider")
	return &massiveProvider{
		client:    massive.New(apiKey),
		secondary: secondary,
		now:       time.Now,
	}
}

func (p *massiveProvider) Name() string { return "massive" }

func (p *massiveProvider) Secondary() Provider { return p.secondary }

// GetQuote fetches the contract snapshot. The underlying price comes from the
// snapshot's underlying asset block; the option price from the last quote,
// falling back to the last trade.
func (p *massiveProvider) GetQuote(ctx context.Context, c Contract) (Quote, error) {
	symbol := c.Symbol()
	logger.Debugf("massive: snapshot request %s", symbol)

	res, err := p.client.GetOptionContractSnapshot(ctx, &models.GetOptionContractSnapshotParams{
		UnderlyingAsset: strings.ToUpper(c.Underlying),
		OptionContract:  symbol,
	})
	if err != nil {
		logger.Errorf("massive: snapshot %s: %v", symbol, err)
		return fallback(ctx, p.secondary, c, fmt.Errorf("%w: massive snapshot %s: %v", ErrNoQuote, symbol, err))
	}

	snap := res.Results
	q := Quote{
		Contract: c,
		Spot:     snap.UnderlyingAsset.Price,
		Bid:      snap.LastQuote.Bid,
		Ask:      snap.LastQuote.Ask,
		Last:     snap.LastTrade.Price,
		AsOf:     p.now().UTC(),
		Source:   p.Name(),
	}
	logger.Tracef("massive: %s spot=%.4f bid=%.4f ask=%.4f last=%.4f", symbol, q.Spot, q.Bid, q.Ask, q.Last)

	if q.Spot <= 0 || q.Mid() <= 0 {
		return fallback(ctx, p.secondary, c, fmt.Errorf("%w: massive snapshot %s has no usable prices", ErrNoQuote, symbol))
	}
	return q, nil
}
