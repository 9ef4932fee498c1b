package simulate

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynex/internal/types"
)

type captureRepo struct {
	types.TelemetryRepository
	batches [][]types.TelemetryReading
}

func (c *captureRepo) InsertBatch(_ context.Context, readings []types.TelemetryReading) error {
	batch := make([]types.TelemetryReading, len(readings))
	copy(batch, readings)
	c.batches = append(c.batches, batch)
	return nil
}

func residentialCustomer() types.CustomerProfile {
	area := 110.0
	household := 3
	solar := false
	ev := 0
	price := 0.20
	return types.CustomerProfile{
		ID:                 "cust-1",
		Name:               "Cliente 001",
		Segment:            types.SegmentResidential,
		City:               "Braga",
		ContractedPowerKVA: 6.9,
		Tariff:             types.TariffSimples,
		PriceEURPerKWh:     &price,
		HomeAreaM2:         &area,
		HouseholdSize:      &household,
		HasSolar:           &solar,
		EVCount:            &ev,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestStepStaysWithinBounds(t *testing.T) {
	g := NewGenerator(7, quietLogger())
	c := residentialCustomer()
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 96*7; i++ {
		r := g.Step(ts, &c)
		assert.GreaterOrEqual(t, r.Watts, floorWatts)
		assert.LessOrEqual(t, r.Watts, c.ContractedPowerKVA*1000.0*contractedCapRatio)
		require.NotNil(t, r.TempC)
		ts = ts.Add(IntervalMinutes * time.Minute)
	}
}

func TestStepDeterministicForSeed(t *testing.T) {
	c := residentialCustomer()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewGenerator(42, quietLogger())
	b := NewGenerator(42, quietLogger())
	for i := 0; i < 20; i++ {
		ra := a.Step(ts, &c)
		rb := b.Step(ts, &c)
		assert.Equal(t, ra.Watts, rb.Watts)
		ts = ts.Add(IntervalMinutes * time.Minute)
	}
}

func TestStepEurosFollowRate(t *testing.T) {
	g := NewGenerator(3, quietLogger())
	c := residentialCustomer()
	r := g.Step(time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC), &c)
	want := (r.Watts / 1000.0) * 0.20 * 0.25
	assert.InDelta(t, want, r.Euros, 1e-12)
}

func TestEveningExceedsNightOnAverage(t *testing.T) {
	g := NewGenerator(11, quietLogger())
	c := residentialCustomer()

	var night, evening float64
	const days = 30
	for d := 0; d < days; d++ {
		day := time.Date(2026, 3, 2+d, 0, 0, 0, 0, time.UTC)
		night += g.Step(day.Add(3*time.Hour), &c).Watts
		evening += g.Step(day.Add(20*time.Hour+30*time.Minute), &c).Watts
	}
	assert.Greater(t, evening/days, night/days)
}

func TestSolarCutsMidday(t *testing.T) {
	withSolar := residentialCustomer()
	solar := true
	withSolar.HasSolar = &solar
	without := residentialCustomer()

	ga := NewGenerator(5, quietLogger())
	gb := NewGenerator(5, quietLogger())

	var sumSolar, sumPlain float64
	const days = 40
	for d := 0; d < days; d++ {
		noon := time.Date(2026, 3, 2+d, 13, 0, 0, 0, time.UTC)
		sumSolar += ga.Step(noon, &withSolar).Watts
		sumPlain += gb.Step(noon, &without).Watts
	}
	assert.Less(t, sumSolar, sumPlain)
}

func TestGenerateStepsBatchesPerInterval(t *testing.T) {
	g := NewGenerator(1, quietLogger())
	repo := &captureRepo{}
	fleet := NewFleet(4, rand.New(rand.NewPCG(9, 9)))

	start := time.Date(2026, 3, 1, 10, 7, 0, 0, time.UTC)
	err := g.GenerateSteps(context.Background(), repo, fleet, start, 3)
	require.NoError(t, err)
	require.Len(t, repo.batches, 3)

	for i, batch := range repo.batches {
		require.Len(t, batch, 4)
		wantTS := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * IntervalMinutes * time.Minute)
		for _, r := range batch {
			assert.True(t, wantTS.Equal(r.Timestamp))
		}
	}
}

func TestPrimeContinuesFromLatest(t *testing.T) {
	c := residentialCustomer()
	g := NewGenerator(2, quietLogger())
	g.Prime(map[string]types.TelemetryReading{
		c.ID: {CustomerID: c.ID, Watts: 5000},
	})
	r := g.Step(time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), &c)
	// 25% carryover from a 5kW state keeps the next reading well above the
	// unprimed night baseline.
	assert.Greater(t, r.Watts, 900.0)
}

func TestIntervalHelpers(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 7, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), FloorToInterval(ts))
	assert.Equal(t, time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC), NextBoundary(ts))

	exact := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, exact, NextBoundary(exact))
}

func TestNewFleetSegmentsAndFields(t *testing.T) {
	fleet := NewFleet(200, rand.New(rand.NewPCG(7, 7)))
	require.Len(t, fleet, 200)

	counts := map[types.Segment]int{}
	for _, c := range fleet {
		counts[c.Segment]++
		assert.NotEmpty(t, c.ID)
		assert.Greater(t, c.ContractedPowerKVA, 0.0)
		require.NotNil(t, c.PriceEURPerKWh)
		if c.Segment == types.SegmentResidential {
			require.NotNil(t, c.HomeAreaM2)
			require.NotNil(t, c.HouseholdSize)
		}
	}
	assert.Greater(t, counts[types.SegmentResidential], counts[types.SegmentSME])
	assert.Greater(t, counts[types.SegmentSME], 0)
	assert.Greater(t, counts[types.SegmentIndustrial], 0)
}
