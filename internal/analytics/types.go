// Package analytics holds the three deterministic engines behind the
// dashboard: cost analysis, demand profiling and sustainability scoring.
// Each engine consumes timestamped readings and returns a fully
// recomputed report; nothing here touches the database or the network.
package analytics

import (
	"errors"
	"time"
)

// ErrInvalidInput is returned by transport-boundary helpers when a batch
// cannot be interpreted at all. The engines themselves never return it:
// they are total over their documented input domain.
var ErrInvalidInput = errors.New("analytics: invalid input")

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// CostBreakdown is the billing decomposition of a reading set. It is
// recomputed in full on every call; the ID exists only so outer layers
// can reference the artifact.
type CostBreakdown struct {
	ID            string    `json:"id"`
	EnergyDataID  string    `json:"energy_data_id"`
	PeakCost      float64   `json:"peak_cost"`
	OffPeakCost   float64   `json:"off_peak_cost"`
	DemandCharges float64   `json:"demand_charges"`
	FixedCharges  float64   `json:"fixed_charges"`
	Taxes         float64   `json:"taxes"`
	OtherCharges  float64   `json:"other_charges"`
	CreatedAt     time.Time `json:"created_at"`
}

// Total is the sum of every charge component.
func (b CostBreakdown) Total() float64 {
	return b.PeakCost + b.OffPeakCost + b.DemandCharges + b.FixedCharges + b.Taxes + b.OtherCharges
}

type CostMetrics struct {
	AverageCostPerKwh float64 `json:"averageCostPerKwh"`
	PeakCostPerKwh    float64 `json:"peakCostPerKwh"`
	OffPeakCostPerKwh float64 `json:"offPeakCostPerKwh"`
	DemandCostPerKw   float64 `json:"demandCostPerKw"`
}

type CostComparison struct {
	Current       CostBreakdown `json:"current"`
	Previous      CostBreakdown `json:"previous"`
	TotalChange   float64       `json:"totalChange"`
	AverageChange float64       `json:"averageChange"`
	PeakChange    float64       `json:"peakChange"`
	OffPeakChange float64       `json:"offPeakChange"`
}

type CostAnomaly struct {
	Date         time.Time `json:"date"`
	ActualCost   float64   `json:"actualCost"`
	ExpectedCost float64   `json:"expectedCost"`
	Deviation    float64   `json:"deviation"`
	Severity     Severity  `json:"severity"`
	Confidence   float64   `json:"confidence"`
	Impact       float64   `json:"impact"`
	Context      string    `json:"context"`
	RootCause    string    `json:"rootCause"`
}

type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type CostForecast struct {
	Date               time.Time          `json:"date"`
	PredictedCost      float64            `json:"predictedCost"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
}

type TimeOfUseCost struct {
	Hour    int     `json:"hour"`
	Weekday int     `json:"weekday"`
	Cost    float64 `json:"cost"`
}

type OpportunityCategory string

const (
	CategoryPeakReduction    OpportunityCategory = "peak-reduction"
	CategoryEfficiency       OpportunityCategory = "efficiency"
	CategoryRateOptimization OpportunityCategory = "rate-optimization"
	CategoryDemandResponse   OpportunityCategory = "demand-response"
)

type CostSavingOpportunity struct {
	ID                  string              `json:"id"`
	Description         string              `json:"description"`
	PotentialSavings    float64             `json:"potentialSavings"`
	ImplementationCost  float64             `json:"implementationCost,omitempty"`
	PaybackPeriod       float64             `json:"paybackPeriod,omitempty"`
	Category            OpportunityCategory `json:"category"`
	Priority            Priority            `json:"priority"`
	Confidence          float64             `json:"confidence"`
	ImplementationSteps []string            `json:"implementationSteps"`
	ROI                 float64             `json:"roi"`
}

// PatternBucket is one cell of a usage-pattern aggregation: the average
// cost for the bucket plus a confidence that grows with sample count.
type PatternBucket struct {
	Average    float64 `json:"average"`
	Samples    int     `json:"samples"`
	Confidence float64 `json:"confidence"`
}

type CostPatterns struct {
	Hourly  []PatternBucket `json:"hourly"`  // 24 buckets
	Weekly  []PatternBucket `json:"weekly"`  // 7 buckets
	Monthly []PatternBucket `json:"monthly"` // 12 buckets
}

// CostAnalysisReport is the full output of CostAnalyzer.AnalyzeCosts.
type CostAnalysisReport struct {
	Breakdown           CostBreakdown           `json:"breakdown"`
	Metrics             CostMetrics             `json:"metrics"`
	Comparison          CostComparison          `json:"comparison"`
	Anomalies           []CostAnomaly           `json:"anomalies"`
	HourlyForecast      []CostForecast          `json:"hourlyForecast"`
	DailyForecast       []CostForecast          `json:"dailyForecast"`
	TimeOfUse           []TimeOfUseCost         `json:"timeOfUse"`
	SavingOpportunities []CostSavingOpportunity `json:"savingOpportunities"`
	Patterns            CostPatterns            `json:"patterns"`
}

type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

type PeakPrediction struct {
	Time             time.Time          `json:"time"`
	PredictedDemand  float64            `json:"predictedDemand"`
	Confidence       float64            `json:"confidence"`
	UncertaintyRange ConfidenceInterval `json:"uncertaintyRange"`
}

type RecommendationType string

const (
	RecommendationImmediate RecommendationType = "immediate"
	RecommendationScheduled RecommendationType = "scheduled"
	RecommendationStrategic RecommendationType = "strategic"
)

type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type DemandRecommendation struct {
	ID               string             `json:"id"`
	Type             RecommendationType `json:"type"`
	Action           string             `json:"action"`
	Impact           float64            `json:"impact"` // kW
	Priority         Priority           `json:"priority"`
	TimeWindow       TimeWindow         `json:"timeWindow"`
	Details          string             `json:"details"`
	EstimatedSavings float64            `json:"estimatedSavings"`
	Requirements     []string           `json:"requirements"`
	Risks            []string           `json:"risks"`
}

type DemandAlert struct {
	Level   Severity `json:"level"`
	Message string   `json:"message"`
}

type RealTimeMetrics struct {
	AverageDemand float64       `json:"averageDemand"`
	LoadFactor    float64       `json:"loadFactor"`
	PowerFactor   float64       `json:"powerFactor"`
	Alerts        []DemandAlert `json:"alerts"`
}

type DemandPatterns struct {
	HourlyProfile  []float64 `json:"hourlyProfile"`  // 24 averages
	WeekdayProfile []float64 `json:"weekdayProfile"` // 7 averages
}

type DemandForecastPoint struct {
	Time            time.Time `json:"time"`
	PredictedDemand float64   `json:"predictedDemand"`
}

// DemandProfile is the full output of DemandAnalyzer.Analyze. PeakDemand
// is scoped to the analyzer's rolling 30-day history, not the lifetime
// of the meter.
type DemandProfile struct {
	CurrentDemand   float64                `json:"currentDemand"`
	PeakDemand      float64                `json:"peakDemand"`
	PredictedPeak   PeakPrediction         `json:"predictedPeak"`
	DemandTrend     TrendDirection         `json:"demandTrend"`
	TimeToNextPeak  float64                `json:"timeToNextPeak"` // minutes
	Recommendations []DemandRecommendation `json:"recommendations"`
	RealTimeMetrics RealTimeMetrics        `json:"realTimeMetrics"`
	Predictions     []DemandForecastPoint  `json:"predictions"`
	Patterns        DemandPatterns         `json:"patterns"`
}

type EmissionSource struct {
	Name      string  `json:"name"`
	Share     float64 `json:"share"`
	Emissions float64 `json:"emissions"` // kg CO2
}

type CarbonFootprint struct {
	TotalEmissions        float64          `json:"totalEmissions"` // kg CO2
	EmissionsPerKwh       float64          `json:"emissionsPerKwh"`
	CarbonIntensity       float64          `json:"carbonIntensity"` // g CO2/kWh
	ReductionFromBaseline float64          `json:"reductionFromBaseline"`
	Sources               []EmissionSource `json:"sources"`
}

type RenewableEnergy struct {
	Solar              float64     `json:"solar"` // kWh
	Wind               float64     `json:"wind"`  // kWh
	Percentage         float64     `json:"percentage"`
	GridUsage          float64     `json:"gridUsage"`
	PeakRenewableHours []time.Time `json:"peakRenewableHours"`
}

type EquipmentEfficiency struct {
	Name              string  `json:"name"`
	Score             float64 `json:"score"`
	UsageShare        float64 `json:"usageShare"`
	MaintenanceStatus string  `json:"maintenanceStatus"`
}

type Efficiency struct {
	EnergyPerSquareFoot float64               `json:"energyPerSquareFoot"`
	Equipment           []EquipmentEfficiency `json:"equipment"`
	WasteEnergy         float64               `json:"wasteEnergy"` // kWh
}

type SustainabilityRecommendation struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Priority      Priority `json:"priority"`
	Description   string   `json:"description"`
	EstimatedCost float64  `json:"estimatedCost"`
	PaybackPeriod float64  `json:"paybackPeriod"` // months
	Steps         []string `json:"steps"`
}

type SustainabilityScore struct {
	Overall         int                            `json:"overall"`
	CarbonScore     float64                        `json:"carbonScore"`
	RenewableScore  float64                        `json:"renewableScore"`
	EfficiencyScore float64                        `json:"efficiencyScore"`
	WasteScore      float64                        `json:"wasteScore"`
	Trend           string                         `json:"trend"`
	Recommendations []SustainabilityRecommendation `json:"recommendations"`
}

// SustainabilityMetrics is the full output of SustainabilityAnalyzer.Analyze.
type SustainabilityMetrics struct {
	CarbonFootprint     CarbonFootprint     `json:"carbonFootprint"`
	RenewableEnergy     RenewableEnergy     `json:"renewableEnergy"`
	Efficiency          Efficiency          `json:"efficiency"`
	SustainabilityScore SustainabilityScore `json:"sustainabilityScore"`
}
