package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"
	"fxrates-engine/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

const (
	exchangeRatesLatestPath  = "/v1/latest"
	exchangeRatesSymbolsPath = "/v1/symbols"
	dateLayout               = "2006-01-02"
)

type ExchangeRatesAPIProvider struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Log     *zap.Logger
}

var _ application.RateProvider = (*ExchangeRatesAPIProvider)(nil)

type xrError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

type xrRatesResp struct {
	Success   *bool              `json:"success"`
	Timestamp int64              `json:"timestamp"`
	Base      string             `json:"base"`
	Date      string             `json:"date"`
	Rates     map[string]float64 `json:"rates"`
	Error     *xrError           `json:"error,omitempty"`
}

type xrSymbolsResp struct {
	Success *bool             `json:"success"`
	Symbols map[string]string `json:"symbols"`
	Error   *xrError          `json:"error,omitempty"`
}

func (p *ExchangeRatesAPIProvider) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// Symbols returns the provider's CODE -> display name table.
func (p *ExchangeRatesAPIProvider) Symbols(ctx context.Context) (map[string]string, error) {
	const op = "exchangeratesapi symbols"
	var body xrSymbolsResp
	if err := p.get(ctx, op, exchangeRatesSymbolsPath, nil, &body); err != nil {
		return nil, err
	}
	if body.Success == nil || !*body.Success {
		return nil, envelopeError(op, body.Error, "unsuccessful response")
	}
	if body.Symbols == nil {
		return nil, &domain.ProviderError{Op: op, Info: "response has no symbols"}
	}
	return body.Symbols, nil
}

// LatestRate asks for both codes against the provider base in one request and returns the cross-rate.
func (p *ExchangeRatesAPIProvider) LatestRate(ctx context.Context, from, to domain.Currency) (domain.RateQuote, error) {
	return p.rateAt(ctx, "exchangeratesapi latest", exchangeRatesLatestPath, from, to)
}

// RateOn is LatestRate against the historical endpoint for day.
func (p *ExchangeRatesAPIProvider) RateOn(ctx context.Context, day time.Time, from, to domain.Currency) (domain.RateQuote, error) {
	d := domain.StartOfDayUTC(day).Format(dateLayout)
	return p.rateAt(ctx, "exchangeratesapi "+d, "/v1/"+d, from, to)
}

// LatestRates returns every published rate rebased to base.
func (p *ExchangeRatesAPIProvider) LatestRates(ctx context.Context, base domain.Currency) (map[string]float64, time.Time, error) {
	const op = "exchangeratesapi latest"
	body, err := p.fetchRates(ctx, op, exchangeRatesLatestPath, nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	baseRate, ok := rateOf(body, base.Code)
	if !ok || baseRate <= 0 {
		return nil, time.Time{}, &domain.ProviderError{Op: op, Info: "missing rate for " + base.Code}
	}
	observed, err := observedAt(op, body)
	if err != nil {
		return nil, time.Time{}, err
	}
	out := make(map[string]float64, len(body.Rates)+1)
	for code, r := range body.Rates {
		if r > 0 {
			out[domain.NormalizeCode(code)] = r / baseRate
		}
	}
	if body.Base != "" {
		out[domain.NormalizeCode(body.Base)] = 1 / baseRate
	}
	out[base.Code] = 1
	return out, observed, nil
}

// HistoricalRates issues one request per sampled day, in date order. Failed days are skipped;
// the only error returned is ctx's when it is cancelled mid-series.
func (p *ExchangeRatesAPIProvider) HistoricalRates(ctx context.Context, from, to domain.Currency, start, end time.Time) ([]domain.RateQuote, error) {
	dates := SampleDates(start, end)
	log := p.log().With(zap.String("from", from.Code), zap.String("to", to.Code))
	out := make([]domain.RateQuote, 0, len(dates))
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		q, err := p.RateOn(ctx, d, from, to)
		if err != nil {
			log.Warn("historical.sample_failed", zap.String("date", d.Format(dateLayout)), zap.Error(err))
			continue
		}
		out = append(out, q)
	}
	log.Info("historical.done", zap.Int("sampled", len(dates)), zap.Int("returned", len(out)))
	return out, nil
}

func (p *ExchangeRatesAPIProvider) rateAt(ctx context.Context, op, path string, from, to domain.Currency) (domain.RateQuote, error) {
	q := url.Values{}
	q.Set("symbols", from.Code+","+to.Code)
	body, err := p.fetchRates(ctx, op, path, q)
	if err != nil {
		return domain.RateQuote{}, err
	}

	fromRate, ok := rateOf(body, from.Code)
	if !ok {
		return domain.RateQuote{}, &domain.ProviderError{Op: op, Info: "missing rate for " + from.Code}
	}
	toRate, ok := rateOf(body, to.Code)
	if !ok {
		return domain.RateQuote{}, &domain.ProviderError{Op: op, Info: "missing rate for " + to.Code}
	}
	if fromRate <= 0 {
		return domain.RateQuote{}, &domain.ProviderError{Op: op, Info: "non-positive rate for " + from.Code}
	}
	rate := toRate / fromRate
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return domain.RateQuote{}, &domain.ProviderError{Op: op, Info: fmt.Sprintf("invalid cross rate %v", rate)}
	}
	observed, err := observedAt(op, body)
	if err != nil {
		return domain.RateQuote{}, err
	}
	return domain.RateQuote{From: from, To: to, Rate: rate, ObservedAt: observed}, nil
}

func (p *ExchangeRatesAPIProvider) fetchRates(ctx context.Context, op, path string, q url.Values) (xrRatesResp, error) {
	var body xrRatesResp
	if err := p.get(ctx, op, path, q, &body); err != nil {
		return xrRatesResp{}, err
	}
	if (body.Success != nil && !*body.Success) || body.Error != nil {
		return xrRatesResp{}, envelopeError(op, body.Error, "unsuccessful response")
	}
	if body.Rates == nil {
		return xrRatesResp{}, &domain.ProviderError{Op: op, Info: "response has no rates"}
	}
	return body, nil
}

func (p *ExchangeRatesAPIProvider) get(ctx context.Context, op, path string, q url.Values, out any) error {
	if p.BaseURL == "" {
		return &domain.ProviderError{Op: op, Info: "missing configuration"}
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return &domain.ProviderError{Op: op, Info: "invalid base url", Err: err}
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q == nil {
		q = url.Values{}
	}
	if p.APIKey != "" {
		q.Set("access_key", p.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &domain.ProviderError{Op: op, Info: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := p.Client
	if client == nil {
		client = &httpx.Client{Log: p.Log}
	}
	if err := client.DoJSON(ctx, req, out); err != nil {
		var serr *httpx.StatusError
		if errors.As(err, &serr) {
			perr := &domain.ProviderError{Op: op, Status: serr.Code, Info: http.StatusText(serr.Code), Err: err}
			var env struct {
				Error *xrError `json:"error"`
			}
			if jsonErr := json.Unmarshal(serr.Body, &env); jsonErr == nil && env.Error != nil {
				perr.Code, perr.Info = env.Error.Code, env.Error.Info
			}
			return perr
		}
		return &domain.ProviderError{Op: op, Err: err}
	}
	return nil
}

func envelopeError(op string, e *xrError, fallback string) error {
	if e == nil {
		return &domain.ProviderError{Op: op, Info: fallback}
	}
	info := e.Info
	if info == "" {
		info = e.Type
	}
	return &domain.ProviderError{Op: op, Code: e.Code, Info: info}
}

// rateOf treats the response base as 1.0 so either side of a pair may be the base.
func rateOf(body xrRatesResp, code string) (float64, bool) {
	if body.Base != "" && strings.EqualFold(code, body.Base) {
		return 1.0, true
	}
	v, ok := body.Rates[code]
	return v, ok
}

func observedAt(op string, body xrRatesResp) (time.Time, error) {
	if body.Date != "" {
		d, err := time.Parse(dateLayout, body.Date)
		if err != nil {
			return time.Time{}, &domain.ProviderError{Op: op, Info: "invalid date " + body.Date, Err: err}
		}
		return domain.StartOfDayUTC(d), nil
	}
	if body.Timestamp > 0 {
		return domain.StartOfDayUTC(time.Unix(body.Timestamp, 0)), nil
	}
	return time.Time{}, &domain.ProviderError{Op: op, Info: "response has no date"}
}
