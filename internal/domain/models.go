package domain

import "time"

type Facility struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Meter struct {
	ID         int64  `db:"id" json:"id"`
	FacilityID int64  `db:"facility_id" json:"facility_id"`
	Serial     string `db:"serial" json:"serial"`
}

// Reading is a single timestamped energy measurement. Value is kWh for
// consumption-oriented analysis and kW for demand-oriented analysis; the
// analytics engines treat it as a plain magnitude either way.
type Reading struct {
	ID        int64     `db:"id" json:"id"`
	MeterID   int64     `db:"meter_id" json:"meter_id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Value     float64   `db:"value" json:"value"`
}
