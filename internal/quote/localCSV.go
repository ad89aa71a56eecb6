package quote

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/contactkeval/implied-vol/internal/logger"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

// QuotesFile is the file read from the provider directory.
const QuotesFile = "quotes.csv"

// quoteColumns is the expected header of QuotesFile.
var quoteColumns = []string{"underlying", "expiry", "strike", "kind", "spot", "bid", "ask", "last", "as_of"}

// localCSVProvider serves quotes from <dir>/quotes.csv. The file is read
// once, on first use.
type localCSVProvider struct {
	dir       string
	secondary Provider

	once   sync.Once
	quotes map[string]Quote
	err    error
}

// NewLocalCSVProvider convenience constructor.
func NewLocalCSVProvider(dir string, secondary Provider) *localCSVProvider {
	return &localCSVProvider{dir: dir, secondary: secondary}
}

func (p *localCSVProvider) Name() string { return "csv" }

func (p *localCSVProvider) Secondary() Provider { return p.secondary }

func (p *localCSVProvider) GetQuote(ctx context.Context, c Contract) (Quote, error) {
	p.once.Do(p.load)
	if p.err != nil {
		return Quote{}, p.err
	}

	q, ok := p.quotes[c.Symbol()]
	if !ok {
		logger.Debugf("csv: no quote for %s", c.Symbol())
		return fallback(ctx, p.secondary, c, fmt.Errorf("%w: %s not in %s", ErrNoQuote, c.Symbol(), QuotesFile))
	}
	return q, nil
}

func (p *localCSVProvider) load() {
	path := filepath.Join(p.dir, QuotesFile)
	f, err := os.Open(path)
	if err != nil {
		p.err = fmt.Errorf("open quotes file: %w", err)
		return
	}
	defer f.Close()

	p.quotes, p.err = readQuotes(f)
	if p.err == nil {
		logger.Infof("csv: loaded %d quotes from %s", len(p.quotes), path)
	}
}

// readQuotes parses a quotes CSV keyed by OCC symbol. Malformed rows are
// skipped.
func readQuotes(r io.Reader) (map[string]Quote, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(quoteColumns)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range quoteColumns {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return nil, fmt.Errorf("unexpected column %d: %q, want %q", i, header[i], col)
		}
	}

	out := make(map[string]Quote)
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logger.Debugf("csv: skipping line %d: %v", line, err)
			continue
		}
		q, err := parseRow(row)
		if err != nil {
			logger.Debugf("csv: skipping line %d: %v", line, err)
			continue
		}
		out[q.Contract.Symbol()] = q
	}
	return out, nil
}

func parseRow(row []string) (Quote, error) {
	expiry, err := ParseExpiry(row[1])
	if err != nil {
		return Quote{}, err
	}
	kind, err := pricing.ParseKind(row[3])
	if err != nil {
		return Quote{}, err
	}
	asOf, err := time.Parse(time.RFC3339, row[8])
	if err != nil {
		return Quote{}, fmt.Errorf("as_of: %w", err)
	}

	nums := make([]float64, 0, 5)
	for _, i := range []int{2, 4, 5, 6, 7} {
		s := strings.TrimSpace(row[i])
		if s == "" {
			nums = append(nums, 0)
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Quote{}, fmt.Errorf("%s: %w", quoteColumns[i], err)
		}
		nums = append(nums, v)
	}

	return Quote{
		Contract: Contract{
			Underlying: strings.ToUpper(strings.TrimSpace(row[0])),
			Expiry:     expiry,
			Strike:     nums[0],
			Kind:       kind,
		},
		Spot:   nums[1],
		Bid:    nums[2],
		Ask:    nums[3],
		Last:   nums[4],
		AsOf:   asOf,
		Source: "csv",
	}, nil
}
