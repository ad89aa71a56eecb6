package calculator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/implied-vol/internal/ivol"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

func newCalc(t *testing.T, opts ...ivol.Option) *Calculator {
	t.Helper()
	s, err := ivol.New(opts...)
	require.NoError(t, err)
	return New(s, nil)
}

func refForm() Form {
	return Form{Spot: "100", Strike: "100", Days: "365", Rate: "0.05", MarketPrice: "10.4506", Kind: "call"}
}

func TestImpliedVolReferenceCase(t *testing.T) {
	out := newCalc(t).ImpliedVol(context.Background(), refForm())

	require.NoError(t, out.Err)
	assert.InDelta(t, 0.2, out.Volatility, 1e-4)
	assert.Equal(t, "20.00", out.Percent)
	assert.Equal(t, "Implied Volatility: 20.00%", out.Message)
	assert.Equal(t, 19, out.Iterations)
}

func TestImpliedVolInvalidInput(t *testing.T) {
	cases := map[string]func(f *Form){
		"zero spot":       func(f *Form) { f.Spot = "0" },
		"negative strike": func(f *Form) { f.Strike = "-100" },
		"zero days":       func(f *Form) { f.Days = "0" },
		"negative rate":   func(f *Form) { f.Rate = "-0.01" },
		"text spot":       func(f *Form) { f.Spot = "abc" },
		"empty price":     func(f *Form) { f.MarketPrice = "" },
		"NaN price":       func(f *Form) { f.MarketPrice = "NaN" },
		"zero price":      func(f *Form) { f.MarketPrice = "0" },
		"negative price":  func(f *Form) { f.MarketPrice = "-3" },
	}

	c := newCalc(t)
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := refForm()
			mutate(&f)
			out := c.ImpliedVol(context.Background(), f)
			assert.ErrorIs(t, out.Err, pricing.ErrInvalidParameter)
			assert.Equal(t, MsgInvalidInput, out.Message)
			assert.Zero(t, out.Volatility)
		})
	}
}

func TestImpliedVolUnsupportedKind(t *testing.T) {
	f := refForm()
	f.Kind = "straddle"

	out := newCalc(t).ImpliedVol(context.Background(), f)
	assert.ErrorIs(t, out.Err, pricing.ErrUnsupportedOptionKind)
	assert.Equal(t, "Unsupported option type: straddle.", out.Message)
}

func TestImpliedVolOutOfBracket(t *testing.T) {
	f := refForm()
	f.MarketPrice = "99.5"

	out := newCalc(t).ImpliedVol(context.Background(), f)
	assert.ErrorIs(t, out.Err, ivol.ErrNoArbitrageFreeSolution)
	assert.Equal(t, "No implied volatility in [1.00%, 300.00%] matches price 99.50.", out.Message)
}

func TestImpliedVolConvergenceFailure(t *testing.T) {
	out := newCalc(t, ivol.WithMaxIterations(3)).ImpliedVol(context.Background(), refForm())
	assert.ErrorIs(t, out.Err, ivol.ErrConvergenceFailure)
	assert.Equal(t, MsgNoConvergence, out.Message)
}

func TestImpliedVolPut(t *testing.T) {
	f := refForm()
	f.Kind = "PUT"
	f.MarketPrice = "5.5735"

	out := newCalc(t).ImpliedVol(context.Background(), f)
	require.NoError(t, out.Err)
	assert.Equal(t, "20.00", out.Percent)
}

func TestParseFormConvertsDays(t *testing.T) {
	f := refForm()
	f.Days = " 73 "

	in, err := ParseForm(f)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, in.Expiry, 1e-12)
	assert.Equal(t, pricing.Call, in.Kind)
}

func TestParseFormFieldError(t *testing.T) {
	f := refForm()
	f.Strike = "0"

	_, err := ParseForm(f)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "strike", fe.Field)
}

func TestPrice(t *testing.T) {
	c := newCalc(t)
	out := c.Price(PriceForm{Spot: "100", Strike: "100", Days: "365", Rate: "0.05", Vol: "0.2", Kind: "call"})
	require.NoError(t, out.Err)
	assert.InDelta(t, 10.4506, out.Price, 1e-3)
	assert.Equal(t, "Option Price: 10.4506", out.Message)

	out = c.Price(PriceForm{Spot: "100", Strike: "100", Days: "365", Rate: "0.05", Vol: "0", Kind: "call"})
	assert.ErrorIs(t, out.Err, pricing.ErrInvalidParameter)
	assert.Equal(t, MsgInvalidInput, out.Message)
}

func TestPriceOverflowingVolatility(t *testing.T) {
	c := newCalc(t)
	var out Outcome
	require.NotPanics(t, func() {
		out = c.Price(PriceForm{Spot: "100", Strike: "100", Days: "3.65e22", Rate: "0", Vol: "1e300", Kind: "call"})
	})
	assert.ErrorIs(t, out.Err, pricing.ErrInvalidParameter)
	assert.Equal(t, MsgInvalidInput, out.Message)
}

func TestBlankKindMessage(t *testing.T) {
	f := refForm()
	f.Kind = "  "
	out := newCalc(t).ImpliedVol(context.Background(), f)
	assert.ErrorIs(t, out.Err, pricing.ErrUnsupportedOptionKind)
	assert.Equal(t, "Unsupported option type: (empty).", out.Message)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "20.00", Percent(0.2))
	assert.Equal(t, "12.35", Percent(0.123456))
	assert.Equal(t, "300.00", Percent(3))
}
