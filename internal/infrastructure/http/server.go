package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fxrates-engine/internal/adapters/logctx"
	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"
)

type Server struct {
	svc         *application.RatesService
	ready       func(ctx context.Context) error
	defaultBase string
	log         *zap.Logger
}

func NewServer(svc *application.RatesService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, defaultBase: "EUR", log: log}
}

// SetDefaultBase sets the base used by /rates when none is given.
func (s *Server) SetDefaultBase(code string) {
	if code != "" {
		s.defaultBase = code
	}
}

// SetReadyCheck installs the /readyz probe.
func (s *Server) SetReadyCheck(f func(ctx context.Context) error) { s.ready = f }

type currencyResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type quoteResponse struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Rate       float64   `json:"rate"`
	ObservedAt time.Time `json:"observed_at"`
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Mode  domain.Mode        `json:"mode"`
	Rates map[string]float64 `json:"rates"`
}

type historyPoint struct {
	Date types.Date `json:"date"`
	Rate float64    `json:"rate"`
}

type historyResponse struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Start  types.Date     `json:"start"`
	End    types.Date     `json:"end"`
	Points []historyPoint `json:"points"`
}

type modeBody struct {
	Mode string `json:"mode"`
}

func toCurrency(c domain.Currency) currencyResponse {
	return currencyResponse{Code: c.Code, Name: c.DisplayName}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logctx.From(r.Context(), s.log).Warn("request_failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, msg)
}

func parseDate(name, raw string) (types.Date, error) {
	t, err := time.Parse(types.DateFormat, raw)
	if err != nil {
		return types.Date{}, fmt.Errorf("query parameter '%s' must be a %s date", name, types.DateFormat)
	}
	return types.Date{Time: t}, nil
}

type queryParam struct {
	name string
	dest any
}

func bindQuery(r *http.Request, name string, required bool, dest any) error {
	return runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dest)
}

// bindRequired binds every param in order and stops at the first failure.
func bindRequired(r *http.Request, params ...queryParam) error {
	for _, p := range params {
		if err := bindQuery(r, p.name, true, p.dest); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) ListCurrencies(w http.ResponseWriter, _ *http.Request) {
	all := s.svc.Currencies()
	out := make([]currencyResponse, 0, len(all))
	for _, c := range all {
		out = append(out, toCurrency(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetCurrency(w http.ResponseWriter, r *http.Request) {
	var code string
	err := runtime.BindStyledParameterWithOptions("simple", "code", chi.URLParam(r, "code"), &code,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.svc.Currency(code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCurrency(c))
}

func (s *Server) SearchCurrency(w http.ResponseWriter, r *http.Request) {
	var name string
	if err := bindQuery(r, "name", true, &name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.svc.CurrencyByName(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCurrency(c))
}

func (s *Server) GetLatestRate(w http.ResponseWriter, r *http.Request) {
	var from, to string
	if err := bindRequired(r, queryParam{"from", &from}, queryParam{"to", &to}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := s.svc.LatestRate(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{From: q.From.Code, To: q.To.Code, Rate: q.Rate, ObservedAt: q.ObservedAt})
}

func (s *Server) GetLatestRates(w http.ResponseWriter, r *http.Request) {
	var param *string
	if err := bindQuery(r, "base", false, &param); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	base := s.defaultBase
	if param != nil && *param != "" {
		base = *param
	}
	rates, err := s.svc.LatestRates(r.Context(), base)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratesResponse{Base: domain.NormalizeCode(base), Mode: s.svc.Mode(), Rates: rates})
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var (
		from, to string
		amount   float64
	)
	if err := bindRequired(r, queryParam{"from", &from}, queryParam{"to", &to}, queryParam{"amount", &amount}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Convert(r.Context(), from, to, amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) GetHistoricalRates(w http.ResponseWriter, r *http.Request) {
	var from, to, rawStart, rawEnd string
	err := bindRequired(r, queryParam{"from", &from}, queryParam{"to", &to}, queryParam{"start", &rawStart}, queryParam{"end", &rawEnd})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseDate("start", rawStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDate("end", rawEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := s.svc.HistoricalRates(r.Context(), from, to, start.Time, end.Time)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(series) == 0 {
		writeError(w, http.StatusNotFound, "no historical data for selected range")
		return
	}
	resp := historyResponse{
		From:   domain.NormalizeCode(from),
		To:     domain.NormalizeCode(to),
		Start:  start,
		End:    end,
		Points: make([]historyPoint, 0, len(series)),
	}
	for _, q := range series {
		resp.Points = append(resp.Points, historyPoint{Date: types.Date{Time: q.ObservedAt}, Rate: q.Rate})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetCacheSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.CacheSummary(r.Context()))
}

func (s *Server) GetMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modeBody{Mode: string(s.svc.Mode())})
}

func (s *Server) PutMode(w http.ResponseWriter, r *http.Request) {
	var body modeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.svc.SwitchMode(body.Mode); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modeBody{Mode: string(s.svc.Mode())})
}
