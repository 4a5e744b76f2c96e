package scheduling

import "time"

// GenerateDaySlots computes the candidate slot grid for one calendar day.
// Slot starts are always hour-aligned, one per integer hour in
// [workStartHour, workEndHour); slotDurationMin only stretches each slot's
// end, not the spacing between starts. Downstream UIs depend on the hourly
// grid, so the spacing stays hourly even for sub-hour durations.
func GenerateDaySlots(day time.Time, workStartHour, workEndHour, slotDurationMin int) []Slot {
	if workEndHour <= workStartHour {
		return []Slot{}
	}

	slots := make([]Slot, 0, workEndHour-workStartHour)
	for hour := workStartHour; hour < workEndHour; hour++ {
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
		slots = append(slots, Slot{
			Start:     start,
			End:       start.Add(time.Duration(slotDurationMin) * time.Minute),
			Available: true,
		})
	}
	return slots
}

// dayBounds returns the inclusive range covering one local calendar day,
// matching the booking queries' closed interval.
func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999_000_000, day.Location())
	return start, end
}
