package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(v float64)
}

type Metrics struct {
	OrdersPlaced             Counter
	OrdersFailed             Counter
	OrdersFilled             Counter
	Rebuilds                 Counter
	ReconciliationMismatches Counter
	SpacingPercent           Gauge
	ActiveLevels             Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	c := noopCounter{}
	g := noopGauge{}
	return &Metrics{
		OrdersPlaced:             c,
		OrdersFailed:             c,
		OrdersFilled:             c,
		Rebuilds:                 c,
		ReconciliationMismatches: c,
		SpacingPercent:           g,
		ActiveLevels:             g,
	}
}
