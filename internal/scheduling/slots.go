package scheduling

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"clinic-booking/internal/apierrors"

	"github.com/google/uuid"
)

const clockLayout = "15:04"

// busyInterval is a half-open occupied period expressed in minutes of the day.
type busyInterval struct {
	start int32
	end   int32
}

// parseClock parses an HH:MM clinic clock time into minutes of the day.
func parseClock(value string) (int32, error) {
	parsed, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, err
	}
	return int32(parsed.Hour()*60 + parsed.Minute()), nil
}

// formatClock formats minutes of the day as HH:MM.
func formatClock(minuteOfDay int32) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}

// dateOnly truncates the given time to its date.
func dateOnly(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

// minutesIntoDay returns how many minutes after the given day's midnight the value is.
func minutesIntoDay(day time.Time, value time.Time) int32 {
	return int32(value.Sub(day) / time.Minute)
}

// computeSlots walks the availability window from left to right emitting every start
// time whose slot does not intersect a busy interval. On a conflict the cursor jumps
// to the end of the overlapping interval that releases the doctor first, so occupied
// periods are skipped instead of rescanned.
func computeSlots(windowStart, windowEnd, duration int32, busy []busyInterval) []string {
	slots := make([]string, 0)
	if duration <= 0 {
		return slots
	}
	sorted := make([]busyInterval, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })
	cursor := windowStart
	for cursor+duration <= windowEnd {
		if release, conflicts := earliestRelease(sorted, cursor, cursor+duration); conflicts {
			cursor = release
			continue
		}
		slots = append(slots, formatClock(cursor))
		cursor += duration
	}
	return slots
}

// earliestRelease returns the end of the busy interval that overlaps [start, end)
// and finishes first, if any. Intervals are expected sorted by start.
func earliestRelease(busy []busyInterval, start, end int32) (int32, bool) {
	var release int32
	conflicts := false
	for _, interval := range busy {
		if interval.start >= end {
			break
		}
		if interval.end <= start {
			continue
		}
		if !conflicts || interval.end < release {
			release = interval.end
			conflicts = true
		}
	}
	return release, conflicts
}

func (d defaultService) GetBookableSlots(ctx context.Context, doctorUUID uuid.UUID, specialtyUUID uuid.UUID, date time.Time) ([]string, error) {
	// slot arithmetic runs in UTC, the zone the date parameters are parsed in
	now := d.now().UTC()
	day := dateOnly(date.UTC())
	if day.Before(dateOnly(now)) {
		return []string{}, nil
	}
	doctor, err := d.repository.FindDoctorByUUID(ctx, doctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrDoctorNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	duration, err := d.repository.FindConsultationDuration(ctx, doctor.ID, specialtyUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if duration == 0 {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrUnsupportedCombination), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	return d.computeDaySlots(ctx, doctor.ID, day, duration, now)
}

func (d defaultService) GetBookableDays(ctx context.Context, doctorUUID uuid.UUID, specialtyUUID uuid.UUID, year int, month time.Month) ([]int, error) {
	now := d.now().UTC()
	doctor, err := d.repository.FindDoctorByUUID(ctx, doctorUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if doctor == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrDoctorNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	duration, err := d.repository.FindConsultationDuration(ctx, doctor.ID, specialtyUUID)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if duration == 0 {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrUnsupportedCombination), apierrors.WithHTTPStatusCode(http.StatusUnprocessableEntity))
	}
	days := make([]int, 0)
	today := dateOnly(now)
	for day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); day.Month() == month; day = day.AddDate(0, 0, 1) {
		if day.Before(today) {
			continue
		}
		slots, err := d.computeDaySlots(ctx, doctor.ID, day, duration, now)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			days = append(days, day.Day())
		}
	}
	return days, nil
}

// computeDaySlots resolves the doctor's recurring windows and occupied periods for
// the given day and runs the slot walk over each window. On the current day the
// window start is raised by the booking lead time.
func (d defaultService) computeDaySlots(ctx context.Context, doctorID int64, day time.Time, duration int32, now time.Time) ([]string, error) {
	slots := make([]string, 0)
	windows, err := d.repository.ListWeekdayAvailability(ctx, doctorID, int32(day.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	if len(windows) == 0 {
		return slots, nil
	}
	dayEnd := day.AddDate(0, 0, 1)
	entries, err := d.repository.ListBusyEntries(ctx, doctorID, day, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	busy := make([]busyInterval, 0, len(entries))
	for _, entry := range entries {
		start := entry.StartAt
		if start.Before(day) {
			start = day
		}
		end := entry.EndAt
		if end.After(dayEnd) {
			end = dayEnd
		}
		busy = append(busy, busyInterval{start: minutesIntoDay(day, start), end: minutesIntoDay(day, end)})
	}
	var minStart int32
	if day.Equal(dateOnly(now)) {
		minStart = minutesIntoDay(day, now.Add(sameDayLeadTime))
	}
	for _, window := range windows {
		windowStart, err := parseClock(window.StartTime)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		windowEnd, err := parseClock(window.EndTime)
		if err != nil {
			return nil, fmt.Errorf("an unexpected error occurred: %w", err)
		}
		if windowStart < minStart {
			windowStart = minStart
		}
		slots = append(slots, computeSlots(windowStart, windowEnd, duration, busy)...)
	}
	return slots, nil
}
