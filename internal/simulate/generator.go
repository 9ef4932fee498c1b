// Package simulate produces synthetic smart-meter telemetry for development
// and demo environments. The load model layers per-segment daily curves,
// dwelling and household factors, temperature comfort effects, solar
// self-consumption, and EV night charging, with autocorrelated noise so the
// series behaves like a real meter rather than white noise.
//
// All randomness flows from one seeded generator, so a fleet replayed with
// the same seed produces the same telemetry.
package simulate

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"kynex/internal/types"
)

// Interval and billing constants of the synthetic feed.
const (
	IntervalMinutes = 15
	intervalHours   = float64(IntervalMinutes) / 60.0

	// DefaultRateEURPerKWh prices readings for customers without a
	// contracted rate on file.
	DefaultRateEURPerKWh = 0.20

	// contractedCapRatio caps simulated load below the breaker trip point.
	contractedCapRatio = 0.92

	// floorWatts is the standby draw a connected meter never goes under.
	floorWatts = 40.0
)

// Generator simulates one fleet's telemetry stream.
type Generator struct {
	rng      *rand.Rand
	lastSeen map[string]float64
	logger   *slog.Logger
}

// NewGenerator creates a seeded generator. The same seed replays the same
// stream for the same customer fleet and time range.
func NewGenerator(seed uint64, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0xDA3E39CB94B95BDB)),
		lastSeen: make(map[string]float64),
		logger:   logger,
	}
}

// Prime seeds the per-customer autocorrelation state from existing readings
// so a restarted generator continues smoothly instead of jumping.
func (g *Generator) Prime(latest map[string]types.TelemetryReading) {
	for id, r := range latest {
		g.lastSeen[id] = r.Watts
	}
}

// baseLoad returns the deterministic load shape for the segment at the given
// fractional hour.
func baseLoad(segment types.Segment, hour float64, weekend bool) float64 {
	switch segment {
	case types.SegmentSME:
		load := 420.0 + 900.0*math.Exp(-((hour-13.0)*(hour-13.0))/18.0)
		if weekend {
			load *= 0.55
		}
		return load
	case types.SegmentIndustrial:
		return 1500.0 + 1200.0*math.Exp(-((hour-11.0)*(hour-11.0))/26.0)
	default:
		morning := 220.0 * math.Exp(-((hour-7.5)*(hour-7.5))/5.5)
		evening := 380.0 * math.Exp(-((hour-20.5)*(hour-20.5))/7.0)
		load := 180.0 + morning + evening
		if weekend {
			load *= 1.15
		}
		return load
	}
}

// seasonalTemp mirrors the forecast encoder's approximation with generator
// noise on top.
func (g *Generator) seasonalTemp(ts time.Time, city string) float64 {
	day := float64(ts.UTC().YearDay())
	base := 16.0 + 7.0*math.Sin(2*math.Pi*(day-170)/365.0)
	switch city {
	case "Porto", "Matosinhos", "Vila Nova de Gaia", "Aveiro":
		base -= 1.0
	}
	return base + g.rng.NormFloat64()*1.2
}

// Step produces one reading for the customer at ts, carrying forward the
// autocorrelation state from the previous step.
func (g *Generator) Step(ts time.Time, c *types.CustomerProfile) types.TelemetryReading {
	ts = ts.UTC()
	hour := float64(ts.Hour()) + float64(ts.Minute())/60.0
	dow := (int(ts.Weekday()) + 6) % 7
	weekend := dow >= 5

	tempC := g.seasonalTemp(ts, c.City)
	load := baseLoad(c.Segment, hour, weekend)

	// Dwelling size and household scale the curve.
	area := 90.0
	if c.HomeAreaM2 != nil {
		area = *c.HomeAreaM2
	}
	areaFactor := clamp(1.0+(area-80.0)/420.0, 0.7, 2.2)
	household := 2
	if c.HouseholdSize != nil {
		household = *c.HouseholdSize
	}
	householdFactor := clamp(1.0+float64(household-2)*0.08, 0.75, 2.0)
	load *= areaFactor * householdFactor

	// Heating below 19C, cooling above 25C.
	tempEffect := 18.0*math.Max(0, 19.0-tempC) + 14.0*math.Max(0, tempC-25.0)

	// Solar production cuts midday consumption.
	if c.HasSolar != nil && *c.HasSolar && hour >= 10 && hour <= 16 {
		cut := 0.10 + 0.18*math.Exp(-((hour-13.0)*(hour-13.0))/4.5)
		load *= 1.0 - cut
	}

	// EV night charging shows up as occasional large spikes.
	evCount := 0
	if c.EVCount != nil {
		evCount = *c.EVCount
	}
	if evCount > 0 && hour <= 6 && g.rng.Float64() < 0.10 {
		load += 900.0 * float64(evCount)
	}

	cap := c.ContractedPowerKVA * 1000.0 * contractedCapRatio

	last, ok := g.lastSeen[c.ID]
	if !ok {
		last = load
	}

	noise := g.rng.NormFloat64() * math.Max(12.0, 0.03*load)
	watts := 0.70*load + 0.25*last + 0.05*tempEffect + noise
	watts = clamp(watts, floorWatts, cap)

	// Occasional appliance or machine peaks.
	peakProb := 0.002
	if c.Segment == types.SegmentResidential {
		peakProb = 0.004
	}
	if g.rng.Float64() < peakProb {
		watts = math.Min(cap, watts+800.0+g.rng.Float64()*1400.0)
	}

	g.lastSeen[c.ID] = watts

	rate := DefaultRateEURPerKWh
	if c.PriceEURPerKWh != nil {
		rate = *c.PriceEURPerKWh
	}

	return types.TelemetryReading{
		CustomerID: c.ID,
		Timestamp:  ts,
		Watts:      watts,
		Euros:      (watts / 1000.0) * rate * intervalHours,
		TempC:      &tempC,
	}
}

// GenerateSteps advances the whole fleet through `steps` intervals starting
// at start, inserting one batch per interval. Intended for backfill; tick
// mode calls it with steps=1 on each boundary.
func (g *Generator) GenerateSteps(
	ctx context.Context,
	telemetry types.TelemetryRepository,
	customers []types.CustomerProfile,
	start time.Time,
	steps int,
) error {
	ts := FloorToInterval(start)
	for i := 0; i < steps; i++ {
		batch := make([]types.TelemetryReading, 0, len(customers))
		for j := range customers {
			batch = append(batch, g.Step(ts, &customers[j]))
		}
		if err := telemetry.InsertBatch(ctx, batch); err != nil {
			return err
		}
		ts = ts.Add(IntervalMinutes * time.Minute)
	}
	g.logger.Info("telemetry generated", "customers", len(customers), "steps", steps, "from", FloorToInterval(start))
	return nil
}

// FloorToInterval truncates ts to the previous 15-minute boundary.
func FloorToInterval(ts time.Time) time.Time {
	ts = ts.UTC()
	return ts.Truncate(IntervalMinutes * time.Minute)
}

// NextBoundary returns the next 15-minute boundary at or after ts.
func NextBoundary(ts time.Time) time.Time {
	floored := FloorToInterval(ts)
	if floored.Equal(ts) {
		return floored
	}
	return floored.Add(IntervalMinutes * time.Minute)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
