package exporter

import (
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

func testResult(name string) *press.Result {
	return &press.Result{
		Sample: name,
		Mass:   100,
		Curve: press.CorrectedCurve{
			Force:        []float64{0, 10, 20},
			Displacement: []float64{0, 0.2023688425155601, 0.04354394776841852},
		},
		Work: press.WorkSeries{0, 1.0118442125778004, -1.3705292086293233},
		Energy: press.EnergyResult{
			Specific: []float64{0, 0.002810678368271668, -0.0038070255795258977},
			Total:    -0.0038055555555555555,
		},
		Metrics: press.DerivedMetrics{
			PeakPressure:     3.4430490663471143,
			CompressionRatio: 0.4,
		},
	}
}
