package repository

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smartutility/energy-insights/internal/domain"
)

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) ListFacilities() ([]domain.Facility, error) {
	var out []domain.Facility
	err := r.db.Select(&out, `SELECT id, name FROM facilities ORDER BY id`)
	return out, err
}

func (r *Repos) ListMeters() ([]domain.Meter, error) {
	var out []domain.Meter
	err := r.db.Select(&out, `SELECT id, facility_id, serial FROM meters ORDER BY id`)
	return out, err
}

func (r *Repos) InsertReading(rd *domain.Reading) error {
	_, err := r.db.Exec(`INSERT INTO readings(meter_id, timestamp, value) VALUES ($1,$2,$3)`,
		rd.MeterID, rd.Timestamp, rd.Value)
	return err
}

// ReadingsInRange returns a meter's readings between from and to,
// ordered by timestamp. The analytics engines re-sort defensively, but
// keeping the query ordered makes the rolling demand buffer cheap.
func (r *Repos) ReadingsInRange(meterID int64, from, to time.Time) ([]domain.Reading, error) {
	var out []domain.Reading
	err := r.db.Select(&out,
		`SELECT id, meter_id, timestamp, value FROM readings
		 WHERE meter_id = $1 AND timestamp >= $2 AND timestamp < $3
		 ORDER BY timestamp`,
		meterID, from, to)
	return out, err
}

// RecentReadings returns the last n readings for a meter, oldest first.
func (r *Repos) RecentReadings(meterID int64, n int) ([]domain.Reading, error) {
	var out []domain.Reading
	err := r.db.Select(&out,
		`SELECT id, meter_id, timestamp, value FROM (
		   SELECT id, meter_id, timestamp, value FROM readings
		   WHERE meter_id = $1 ORDER BY timestamp DESC LIMIT $2
		 ) latest ORDER BY timestamp`,
		meterID, n)
	return out, err
}
