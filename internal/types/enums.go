package types

// Segment classifies a customer's consumption profile. The segment drives both
// synthetic load shapes and the one-hot encoding consumed by the forecaster.
type Segment string

const (
	SegmentResidential Segment = "residential"
	SegmentSME         Segment = "sme"
	SegmentIndustrial  Segment = "industrial"
)

// Tariff identifies the customer's contracted tariff scheme. Values follow the
// Portuguese retail naming used on invoices.
type Tariff string

const (
	TariffSimples   Tariff = "Simples"
	TariffBihorario Tariff = "Bi-horário"
)

// ModelKind distinguishes the model families the platform trains and serves.
type ModelKind string

const (
	// ModelKindInterval is the primary 15-minute-ahead consumption model.
	ModelKindInterval ModelKind = "interval_15m"
	// ModelKindPowerAdvisor predicts the ideal contracted power (kVA) per customer.
	ModelKindPowerAdvisor ModelKind = "power_advisor"
)

// ForecastMethod labels which path produced a monthly forecast, so clients can
// communicate confidence appropriately.
type ForecastMethod string

const (
	// MethodRidgeDaily is the trained path: a daily-resolution ridge model with
	// temperature and seasonality features, rolled out to month end.
	MethodRidgeDaily ForecastMethod = "ridge_daily_temp_seasonality_lag"
	// MethodFallbackRecentAvg is the sparse-history path: a plain extrapolation
	// of the recent daily average.
	MethodFallbackRecentAvg ForecastMethod = "fallback_recent_avg"
)

// ForecastHorizon is a named rollout length for the interval forecast endpoint.
type ForecastHorizon string

const (
	HorizonDay  ForecastHorizon = "day"
	HorizonWeek ForecastHorizon = "week"
)

// Steps returns the number of 15-minute rollout steps for the horizon.
// Unknown horizons default to one day.
func (h ForecastHorizon) Steps() int {
	switch h {
	case HorizonWeek:
		return 7 * 96
	default:
		return 96
	}
}
