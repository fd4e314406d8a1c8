// Package dataset holds the loaded rental records as an immutable snapshot
// and the store that hands the current snapshot to request handlers.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"bike-dashboard/internal/models"
)

// ErrInvalidRange is returned when a range starts after it ends.
var ErrInvalidRange = errors.New("start date is after end date")

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// NewDateRange truncates both bounds to calendar dates and checks their order.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: models.TruncateDay(start), End: models.TruncateDay(end)}
	if r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			r.Start.Format(models.DateLayout), r.End.Format(models.DateLayout))
	}
	return r, nil
}

// Contains reports whether t's calendar date lies inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := models.TruncateDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of calendar days in the range, bounds included.
func (r DateRange) Days() int {
	if r.Start.After(r.End) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(models.DateLayout) + ".." + r.End.Format(models.DateLayout)
}

// Dataset is a read-only snapshot of the rental records.
type Dataset struct {
	records  []models.RentalRecord
	bounds   DateRange
	source   string
	loadedAt time.Time
}

// New copies records, orders them by date and hour and computes the date
// bounds. source names where the records came from.
func New(records []models.RentalRecord, source string) *Dataset {
	cp := make([]models.RentalRecord, len(records))
	copy(cp, records)
	for i := range cp {
		cp[i].Date = models.TruncateDay(cp[i].Date)
	}
	sort.SliceStable(cp, func(i, j int) bool {
		if !cp[i].Date.Equal(cp[j].Date) {
			return cp[i].Date.Before(cp[j].Date)
		}
		return cp[i].Hour < cp[j].Hour
	})

	ds := &Dataset{
		records:  cp,
		source:   source,
		loadedAt: time.Now().UTC(),
	}
	if len(cp) > 0 {
		ds.bounds = DateRange{Start: cp[0].Date, End: cp[len(cp)-1].Date}
	}
	return ds
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Source names where the records were loaded from.
func (d *Dataset) Source() string { return d.source }

// LoadedAt returns when the snapshot was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Bounds returns the minimum and maximum record dates. ok is false for an
// empty dataset.
func (d *Dataset) Bounds() (r DateRange, ok bool) {
	return d.bounds, len(d.records) > 0
}

// Records returns a copy of every record.
func (d *Dataset) Records() []models.RentalRecord {
	cp := make([]models.RentalRecord, len(d.records))
	copy(cp, d.records)
	return cp
}

// Filter returns the records whose date lies inside r.
func (d *Dataset) Filter(r DateRange) []models.RentalRecord {
	// records are sorted by date, so the matching rows are contiguous
	lo := sort.Search(len(d.records), func(i int) bool {
		return !d.records[i].Date.Before(r.Start)
	})
	hi := sort.Search(len(d.records), func(i int) bool {
		return d.records[i].Date.After(r.End)
	})
	if lo >= hi {
		return []models.RentalRecord{}
	}
	out := make([]models.RentalRecord, hi-lo)
	copy(out, d.records[lo:hi])
	return out
}

// Clamp limits r to the dataset bounds the way a bounded date picker would.
// A range entirely outside the data collapses onto the nearest bound.
func (d *Dataset) Clamp(r DateRange) DateRange {
	b, ok := d.Bounds()
	if !ok {
		return r
	}
	clamp := func(t time.Time) time.Time {
		if t.Before(b.Start) {
			return b.Start
		}
		if t.After(b.End) {
			return b.End
		}
		return t
	}
	return DateRange{Start: clamp(r.Start), End: clamp(r.End)}
}

// Store holds the current dataset. Readers never block; a reload swaps in a
// new snapshot without touching the old one.
type Store struct {
	current atomic.Pointer[Dataset]
}

// NewStore creates a store serving ds.
func NewStore(ds *Dataset) *Store {
	s := &Store{}
	s.current.Store(ds)
	return s
}

// Current returns the dataset being served, or nil before the first load.
func (s *Store) Current() *Dataset {
	return s.current.Load()
}

// Swap replaces the served dataset and returns the previous one.
func (s *Store) Swap(ds *Dataset) *Dataset {
	return s.current.Swap(ds)
}
