package calculator

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/implied-vol/internal/ivol"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Float64 {
			return false
		}
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}); err != nil {
		panic(err)
	}
	return v
}

// Input is a parsed implied volatility form. Expiry is in years.
type Input struct {
	Spot        float64 `validate:"finite,gt=0"`
	Strike      float64 `validate:"finite,gt=0"`
	Expiry      float64 `validate:"finite,gt=0"`
	Rate        float64 `validate:"finite,gte=0"`
	MarketPrice float64 `validate:"finite"`
	Kind        pricing.Kind
}

// Request converts the input to a solver request.
func (in Input) Request() ivol.Request {
	return ivol.Request{
		Spot:        in.Spot,
		Strike:      in.Strike,
		Expiry:      in.Expiry,
		Rate:        in.Rate,
		MarketPrice: in.MarketPrice,
		Kind:        in.Kind,
	}
}

// PriceInput is a parsed price form.
type PriceInput struct {
	Spot   float64 `validate:"finite,gt=0"`
	Strike float64 `validate:"finite,gt=0"`
	Expiry float64 `validate:"finite,gt=0"`
	Rate   float64 `validate:"finite,gte=0"`
	Vol    float64 `validate:"finite,gt=0"`
	Kind   pricing.Kind
}

// Params converts the input to pricing parameters.
func (in PriceInput) Params() pricing.Params {
	return pricing.Params{
		Spot:   in.Spot,
		Strike: in.Strike,
		Expiry: in.Expiry,
		Rate:   in.Rate,
		Vol:    in.Vol,
		Kind:   in.Kind,
	}
}

// FieldError reports a form field that failed to parse or validate.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return pricing.ErrInvalidParameter }

// KindError reports an option kind other than call or put.
type KindError struct {
	Kind string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%v: %q", pricing.ErrUnsupportedOptionKind, e.Kind)
}

func (e *KindError) Unwrap() error { return pricing.ErrUnsupportedOptionKind }

// ParseForm parses and validates f. Days are converted to years.
func ParseForm(f Form) (Input, error) {
	var p parser
	in := Input{
		Spot:        p.number("spot", f.Spot),
		Strike:      p.number("strike", f.Strike),
		Expiry:      p.number("days", f.Days) / DaysPerYear,
		Rate:        p.number("rate", f.Rate),
		MarketPrice: p.number("price", f.MarketPrice),
	}
	if p.err != nil {
		return Input{}, p.err
	}
	if err := validateStruct(in); err != nil {
		return Input{}, err
	}
	kind, err := parseKind(f.Kind)
	if err != nil {
		return Input{}, err
	}
	in.Kind = kind
	return in, nil
}

// ParsePriceForm parses and validates f. Days are converted to years.
func ParsePriceForm(f PriceForm) (PriceInput, error) {
	var p parser
	in := PriceInput{
		Spot:   p.number("spot", f.Spot),
		Strike: p.number("strike", f.Strike),
		Expiry: p.number("days", f.Days) / DaysPerYear,
		Rate:   p.number("rate", f.Rate),
		Vol:    p.number("vol", f.Vol),
	}
	if p.err != nil {
		return PriceInput{}, p.err
	}
	if err := validateStruct(in); err != nil {
		return PriceInput{}, err
	}
	kind, err := parseKind(f.Kind)
	if err != nil {
		return PriceInput{}, err
	}
	in.Kind = kind
	return in, nil
}

// parser records the first parse failure so a form is parsed in one pass.
type parser struct {
	err error
}

func (p *parser) number(field, s string) float64 {
	if p.err != nil {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		p.err = &FieldError{Field: field, Value: s, Err: err}
		return 0
	}
	return d.InexactFloat64()
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return &FieldError{Field: strings.ToLower(fe.Field()), Value: fmt.Sprint(fe.Value()), Err: fmt.Errorf("failed %q", fe.Tag())}
		}
		return fmt.Errorf("%w: %v", pricing.ErrInvalidParameter, err)
	}
	return nil
}

func parseKind(s string) (pricing.Kind, error) {
	k, err := pricing.ParseKind(s)
	if err != nil {
		return "", &KindError{Kind: s}
	}
	return k, nil
}
