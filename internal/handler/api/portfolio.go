package api

import (
	"errors"
	"time"

	models "CoinFolio/internal/domain/models"
	"CoinFolio/internal/usecase"
	xhttp "CoinFolio/pkg/http"
	"CoinFolio/pkg/http/middleware"
	xlogger "CoinFolio/pkg/logger"
	"CoinFolio/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// HealthChecker is implemented by backing services that can report liveness.
type HealthChecker interface {
	Name() string
	Health() error
}

// PortfolioHandler implements the Echo-based portfolio API.
type PortfolioHandler struct {
	logger    *xlogger.Logger
	portfolio *usecase.PortfolioUseCase
	summary   *usecase.SummaryUseCase
	macd      *usecase.MACDUseCase
	realtime  *usecase.RealtimeUseCase // nil when the live feed is disabled
	checkers  []HealthChecker
	jwtSecret string
}

func NewPortfolioHandler(
	logger *xlogger.Logger,
	portfolio *usecase.PortfolioUseCase,
	summary *usecase.SummaryUseCase,
	macd *usecase.MACDUseCase,
	realtime *usecase.RealtimeUseCase,
	jwtSecret string,
	checkers ...HealthChecker,
) *PortfolioHandler {
	return &PortfolioHandler{
		logger:    logger,
		portfolio: portfolio,
		summary:   summary,
		macd:      macd,
		realtime:  realtime,
		checkers:  checkers,
		jwtSecret: jwtSecret,
	}
}

func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/health", h.Health)

	g := e.Group("/api", middleware.JWT(h.jwtSecret))
	g.POST("/add_holding", h.AddHolding)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/valuation", h.Valuation)
	g.GET("/weekly_summary", h.WeeklySummary)
	g.GET("/macd_analysis", h.MACDAnalysis)
	g.GET("/realtime", h.Realtime)
}

func (h *PortfolioHandler) AddHolding(c echo.Context) error {
	req := &models.AddHoldingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.portfolio.AddHolding(c.Request().Context(), middleware.UserID(c), *req)
	if err != nil {
		return h.domainError(c, "add_holding", err)
	}
	return xhttp.CreatedResponse(c, addHoldingResponse{
		Transaction: toTransactionDTO(res.Transaction),
		Position:    toPositionDTO(res.Position),
	})
}

func (h *PortfolioHandler) Portfolio(c echo.Context) error {
	res, err := h.portfolio.GetPortfolio(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return h.domainError(c, "portfolio", err)
	}

	out := portfolioResponse{
		Positions:    make(map[string]positionDTO, len(res.Positions)),
		Transactions: make([]transactionDTO, 0, len(res.Transactions)),
	}
	for sym, pos := range res.Positions {
		out.Positions[sym] = toPositionDTO(pos)
	}
	// newest first
	for i := len(res.Transactions) - 1; i >= 0; i-- {
		out.Transactions = append(out.Transactions, toTransactionDTO(res.Transactions[i]))
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *PortfolioHandler) Valuation(c echo.Context) error {
	req := &models.ValuationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asOf := util.ParseDayDefault(req.AsOf, util.Day(time.Now()))

	v, err := h.portfolio.GetValuation(c.Request().Context(), middleware.UserID(c), asOf)
	if err != nil {
		return h.domainError(c, "valuation", err)
	}
	return xhttp.SuccessResponse(c, toValuationDTO(*v))
}

func (h *PortfolioHandler) WeeklySummary(c echo.Context) error {
	req := &models.WeeklySummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	params := usecase.WeeklySummaryParams{
		From: util.ParseDayDefault(req.From, time.Time{}),
		To:   util.ParseDayDefault(req.To, time.Time{}),
	}

	res, err := h.summary.GetWeeklySummary(c.Request().Context(), middleware.UserID(c), params)
	if err != nil {
		return h.domainError(c, "weekly_summary", err)
	}

	out := weeklySummaryResponse{
		Weeks:    make([]weekDTO, 0, len(res.Weeks)),
		Warnings: toWarningDTOs(res.Warnings),
	}
	if !res.From.IsZero() {
		out.From = util.FormatDay(res.From)
		out.To = util.FormatDay(res.To)
	}
	for _, w := range res.Weeks {
		out.Weeks = append(out.Weeks, weekDTO{
			WeekStart:     util.FormatDay(w.WeekStart),
			PortfolioVal:  price2(w.PortfolioVal),
			RealizedPnL:   price2(w.RealizedPnL),
			UnrealizedPnL: price2(w.UnrealizedPnL),
			ValueDelta:    price2(w.ValueDelta),
		})
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *PortfolioHandler) MACDAnalysis(c echo.Context) error {
	req := &models.MACDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.macd.GetMACD(c.Request().Context(), usecase.MACDParams{
		Symbol: req.Symbol,
		Fast:   req.Fast,
		Slow:   req.Slow,
		Signal: req.Signal,
	})
	if err != nil {
		return h.domainError(c, "macd_analysis", err)
	}

	out := macdResponse{
		Symbol:    res.Symbol,
		Fast:      res.Fast,
		Slow:      res.Slow,
		Signal:    res.Signal,
		TickCount: res.TickCount,
		MinTicks:  res.MinTicks,
		Stale:     res.Stale,
		Points:    make([]macdPointDTO, 0, len(res.Points)),
	}
	for _, p := range res.Points {
		out.Points = append(out.Points, macdPointDTO{
			Date:      util.FormatDay(p.Date),
			EMAFast:   p.EMAFast,
			EMASlow:   p.EMASlow,
			MACD:      p.MACD,
			Signal:    p.Signal,
			Histogram: p.Histogram,
			Crossover: string(p.Crossover),
		})
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *PortfolioHandler) Realtime(c echo.Context) error {
	if h.realtime == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("live feed is disabled"))
	}
	req := &models.RealtimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	q, err := h.realtime.Quote(req.Symbol)
	if err != nil {
		return h.domainError(c, "realtime", err)
	}
	out := realtimeResponse{
		Symbol:    q.Symbol,
		Price:     price2(q.Price),
		At:        q.At.UTC().Format(time.RFC3339),
		Connected: h.realtime.IsConnected(),
	}
	// best-effort indicator context; the quote stands alone if history fails
	if res, merr := h.macd.GetMACD(c.Request().Context(), usecase.MACDParams{Symbol: req.Symbol}); merr == nil && len(res.Points) > 0 {
		last := res.Points[len(res.Points)-1]
		out.Indicator = &macdPointDTO{
			Date:      util.FormatDay(last.Date),
			EMAFast:   last.EMAFast,
			EMASlow:   last.EMASlow,
			MACD:      last.MACD,
			Signal:    last.Signal,
			Histogram: last.Histogram,
			Crossover: string(last.Crossover),
		}
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *PortfolioHandler) Health(c echo.Context) error {
	out := healthResponse{Status: "ok", Components: make(map[string]string, len(h.checkers))}
	for _, hc := range h.checkers {
		if err := hc.Health(); err != nil {
			out.Status = "degraded"
			out.Components[hc.Name()] = err.Error()
			continue
		}
		out.Components[hc.Name()] = "ok"
	}
	return xhttp.SuccessResponse(c, out)
}

// domainError maps domain failures onto the API error surface. Validation
// and oversell rejections are client errors; upstream data outages are 502.
func (h *PortfolioHandler) domainError(c echo.Context, op string, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_VALIDATION",
			Field:   verr.Field,
			Message: verr.Error(),
		}})
	}
	if errors.Is(err, models.ErrInsufficientHoldings) {
		return xhttp.AppErrorResponse(c, xhttp.InsufficientHoldingsError(err.Error()))
	}
	if models.IsMarketDataUnavailable(err) {
		h.logger.Error("market data unavailable", xlogger.String("op", op), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.MarketDataUnavailableError(err.Error()))
	}
	if errors.Is(err, models.ErrSymbolNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	}
	h.logger.Error("usecase error", xlogger.String("op", op), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

// Wire DTOs. Prices render with 2 decimal places, quantities with 8.

type transactionDTO struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Type     string  `json:"type"`
	Date     string  `json:"date"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Total    float64 `json:"total"`
}

type positionDTO struct {
	Symbol       string  `json:"symbol"`
	NetQuantity  float64 `json:"net_quantity"`
	AvgCostBasis float64 `json:"avg_cost_basis"`
	CostValue    float64 `json:"cost_value"`
}

type addHoldingResponse struct {
	Transaction transactionDTO `json:"transaction"`
	Position    positionDTO    `json:"position"`
}

type portfolioResponse struct {
	Positions    map[string]positionDTO `json:"positions"`
	Transactions []transactionDTO       `json:"transactions"`
}

type warningDTO struct {
	Symbol string `json:"symbol"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type symbolValuationDTO struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AvgCostBasis  float64 `json:"avg_cost_basis"`
	LatestPrice   float64 `json:"latest_price"`
	PriceDate     string  `json:"price_date"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

type valuationDTO struct {
	AsOf               string                        `json:"as_of"`
	PerSymbol          map[string]symbolValuationDTO `json:"per_symbol"`
	TotalValue         float64                       `json:"total_value"`
	TotalUnrealizedPnL float64                       `json:"total_unrealized_pnl"`
	Warnings           []warningDTO                  `json:"warnings,omitempty"`
}

type weekDTO struct {
	WeekStart     string  `json:"week_start"`
	PortfolioVal  float64 `json:"portfolio_value"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	ValueDelta    float64 `json:"value_delta"`
}

type weeklySummaryResponse struct {
	From     string       `json:"from,omitempty"`
	To       string       `json:"to,omitempty"`
	Weeks    []weekDTO    `json:"weeks"`
	Warnings []warningDTO `json:"warnings,omitempty"`
}

type macdPointDTO struct {
	Date      string  `json:"date"`
	EMAFast   float64 `json:"ema_fast"`
	EMASlow   float64 `json:"ema_slow"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Crossover string  `json:"crossover,omitempty"`
}

type macdResponse struct {
	Symbol    string         `json:"symbol"`
	Fast      int            `json:"fast"`
	Slow      int            `json:"slow"`
	Signal    int            `json:"signal"`
	TickCount int            `json:"tick_count"`
	MinTicks  int            `json:"min_ticks"`
	Stale     bool           `json:"stale"`
	Points    []macdPointDTO `json:"points"`
}

type realtimeResponse struct {
	Symbol    string        `json:"symbol"`
	Price     float64       `json:"price"`
	At        string        `json:"at"`
	Connected bool          `json:"connected"`
	Indicator *macdPointDTO `json:"indicator,omitempty"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

func toTransactionDTO(t models.Transaction) transactionDTO {
	return transactionDTO{
		ID:       t.ID,
		Symbol:   t.Symbol,
		Type:     string(t.Type),
		Date:     util.FormatDay(t.Date),
		Price:    price2(t.Price),
		Quantity: qty8(t.Quantity),
		Total:    price2(t.Total()),
	}
}

func toPositionDTO(p models.Position) positionDTO {
	return positionDTO{
		Symbol:       p.Symbol,
		NetQuantity:  qty8(p.NetQuantity),
		AvgCostBasis: price2(p.AvgCostBasis),
		CostValue:    price2(p.CostValue()),
	}
}

func toValuationDTO(v models.Valuation) valuationDTO {
	out := valuationDTO{
		AsOf:               util.FormatDay(v.AsOf),
		PerSymbol:          make(map[string]symbolValuationDTO, len(v.PerSymbol)),
		TotalValue:         price2(v.TotalValue),
		TotalUnrealizedPnL: price2(v.TotalUnrealizedPnL),
		Warnings:           toWarningDTOs(v.Warnings),
	}
	for sym, sv := range v.PerSymbol {
		out.PerSymbol[sym] = symbolValuationDTO{
			Symbol:        sv.Symbol,
			Quantity:      qty8(sv.Quantity),
			AvgCostBasis:  price2(sv.AvgCostBasis),
			LatestPrice:   price2(sv.LatestPrice),
			PriceDate:     util.FormatDay(sv.PriceDate),
			MarketValue:   price2(sv.MarketValue),
			UnrealizedPnL: price2(sv.UnrealizedPnL),
		}
	}
	return out
}

func toWarningDTOs(ws []models.Warning) []warningDTO {
	if len(ws) == 0 {
		return nil
	}
	out := make([]warningDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, warningDTO{Symbol: w.Symbol, Code: w.Code, Reason: w.Reason})
	}
	return out
}

func price2(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}

func qty8(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(8).Float64()
	return v
}
