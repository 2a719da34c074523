package database

import (
	"fmt"
	"time"

	"advisorbot/models"
)

const dateLayout = "2006-01-02"

// SlotTimes is the fixed set of daily consultation slots (IST).
var SlotTimes = []string{"14:00", "15:00"}

// ProvisionStore builds a fresh aggregate with every weekday in the
// inclusive [startDate, endDate] window carrying all daily slots as
// available. Weekends are skipped entirely.
func ProvisionStore(startDate, endDate string) (*models.Store, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("slot store: invalid window start %q: %w", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("slot store: invalid window end %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("slot store: window end %s before start %s", endDate, startDate)
	}

	store := &models.Store{
		Slots:    make(map[string]map[string]models.Slot),
		Waitlist: []models.WaitlistEntry{},
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		day := make(map[string]models.Slot, len(SlotTimes))
		for _, t := range SlotTimes {
			day[t] = models.Slot{Status: models.SlotAvailable}
		}
		store.Slots[d.Format(dateLayout)] = day
	}

	return store, nil
}
