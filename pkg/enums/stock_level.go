package enums

// StockLevel classifies a unit count against the configured thresholds.
type StockLevel string

const (
	StockLevelCritical StockLevel = "critical"
	StockLevelLow      StockLevel = "low"
	StockLevelSafe     StockLevel = "safe"
)

// ClassifyStock maps units onto a level: at or below criticalMax is critical,
// at or below lowMax is low, anything above is safe.
func ClassifyStock(units, criticalMax, lowMax int) StockLevel {
	switch {
	case units <= criticalMax:
		return StockLevelCritical
	case units <= lowMax:
		return StockLevelLow
	default:
		return StockLevelSafe
	}
}
