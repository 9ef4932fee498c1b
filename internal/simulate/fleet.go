package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"kynex/internal/types"
)

var (
	cities = []string{
		"Lisboa", "Porto", "Braga", "Coimbra", "Aveiro",
		"Faro", "Setúbal", "Leiria", "Matosinhos", "Vila Nova de Gaia",
	}

	residentialKVA = []float64{3.45, 4.6, 5.75, 6.9, 10.35}
	smeKVA         = []float64{10.35, 13.8, 17.25, 20.7}
	industrialKVA  = []float64{27.6, 34.5, 41.4, 69.0}
)

// NewFleet builds n random customer profiles. Segment mix is roughly 70%
// residential, 20% SME, 10% industrial, matching the telemetry the load
// model is tuned for.
func NewFleet(n int, rng *rand.Rand) []types.CustomerProfile {
	fleet := make([]types.CustomerProfile, 0, n)
	for i := 0; i < n; i++ {
		fleet = append(fleet, newCustomer(i, rng))
	}
	return fleet
}

func newCustomer(i int, rng *rand.Rand) types.CustomerProfile {
	var segment types.Segment
	switch r := rng.Float64(); {
	case r < 0.70:
		segment = types.SegmentResidential
	case r < 0.90:
		segment = types.SegmentSME
	default:
		segment = types.SegmentIndustrial
	}

	tariff := types.TariffSimples
	if rng.Float64() < 0.35 {
		tariff = types.TariffBihorario
	}

	var kva float64
	price := 0.155 + rng.Float64()*0.06
	c := types.CustomerProfile{
		ID:               uuid.NewString(),
		Name:             fmt.Sprintf("Cliente %03d", i+1),
		City:             cities[rng.IntN(len(cities))],
		Segment:          segment,
		Tariff:           tariff,
		Utility:          "SU Eletricidade",
		FixedDailyFeeEUR: 0.18 + rng.Float64()*0.25,
	}

	switch segment {
	case types.SegmentResidential:
		kva = residentialKVA[rng.IntN(len(residentialKVA))]
		area := 55.0 + rng.Float64()*130.0
		household := 1 + rng.IntN(5)
		solar := rng.Float64() < 0.18
		ev := 0
		if rng.Float64() < 0.12 {
			ev = 1 + rng.IntN(2)
		}
		c.HomeAreaM2 = &area
		c.HouseholdSize = &household
		c.HasSolar = &solar
		c.EVCount = &ev
	case types.SegmentSME:
		kva = smeKVA[rng.IntN(len(smeKVA))]
		area := 120.0 + rng.Float64()*380.0
		c.HomeAreaM2 = &area
	default:
		kva = industrialKVA[rng.IntN(len(industrialKVA))]
	}

	c.ContractedPowerKVA = kva
	c.PriceEURPerKWh = &price
	return c
}
