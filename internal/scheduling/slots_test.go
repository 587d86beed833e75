package scheduling

import (
	"clinic-booking/internal/mock"
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestComputeSlots(t *testing.T) {
	type args struct {
		windowStart int32
		windowEnd   int32
		duration    int32
		busy        []busyInterval
	}
	tests := []struct {
		name string
		args args
		want []string
	}{
		{
			name: "should split a free window into consecutive slots",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   9 * 60,
				duration:    30,
			},
			want: []string{"08:00", "08:30"},
		},
		{
			name: "should skip the slot taken by a busy interval",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   9 * 60,
				duration:    30,
				busy:        []busyInterval{{start: 8 * 60, end: 8*60 + 30}},
			},
			want: []string{"08:30"},
		},
		{
			name: "should not emit a slot that does not fit before the window end",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   8*60 + 50,
				duration:    30,
			},
			want: []string{"08:00"},
		},
		{
			name: "should resume right after a busy interval that is not slot aligned",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   10 * 60,
				duration:    30,
				busy:        []busyInterval{{start: 8*60 + 10, end: 8*60 + 40}},
			},
			want: []string{"08:40", "09:10"},
		},
		{
			name: "should jump over overlapping busy intervals through the earliest release",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   11 * 60,
				duration:    60,
				busy: []busyInterval{
					{start: 8 * 60, end: 9 * 60},
					{start: 8*60 + 30, end: 9*60 + 30},
				},
			},
			want: []string{"09:30"},
		},
		{
			name: "should ignore busy intervals outside the window",
			args: args{
				windowStart: 9 * 60,
				windowEnd:   10 * 60,
				duration:    30,
				busy: []busyInterval{
					{start: 7 * 60, end: 8 * 60},
					{start: 11 * 60, end: 12 * 60},
				},
			},
			want: []string{"09:00", "09:30"},
		},
		{
			name: "should emit nothing when the whole window is taken",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   9 * 60,
				duration:    30,
				busy:        []busyInterval{{start: 7 * 60, end: 10 * 60}},
			},
			want: []string{},
		},
		{
			name: "should emit nothing for a zero duration",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   9 * 60,
				duration:    0,
			},
			want: []string{},
		},
		{
			name: "should handle unsorted busy intervals",
			args: args{
				windowStart: 8 * 60,
				windowEnd:   10 * 60,
				duration:    30,
				busy: []busyInterval{
					{start: 9 * 60, end: 9*60 + 30},
					{start: 8 * 60, end: 8*60 + 30},
				},
			},
			want: []string{"08:30", "09:30"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeSlots(tt.args.windowStart, tt.args.windowEnd, tt.args.duration, tt.args.busy); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("computeSlots() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEarliestRelease(t *testing.T) {
	busy := []busyInterval{
		{start: 8 * 60, end: 9 * 60},
		{start: 8*60 + 30, end: 8*60 + 45},
		{start: 10 * 60, end: 11 * 60},
	}
	type args struct {
		start int32
		end   int32
	}
	tests := []struct {
		name          string
		args          args
		wantRelease   int32
		wantConflicts bool
	}{
		{
			name:          "should return the overlapping interval that releases first",
			args:          args{start: 8 * 60, end: 9 * 60},
			wantRelease:   8*60 + 45,
			wantConflicts: true,
		},
		{
			name:          "should not conflict with a period between intervals",
			args:          args{start: 9 * 60, end: 10 * 60},
			wantRelease:   0,
			wantConflicts: false,
		},
		{
			name:          "should not conflict when periods only touch",
			args:          args{start: 11 * 60, end: 12 * 60},
			wantRelease:   0,
			wantConflicts: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release, conflicts := earliestRelease(busy, tt.args.start, tt.args.end)
			if release != tt.wantRelease || conflicts != tt.wantConflicts {
				t.Errorf("earliestRelease() = (%v, %v), want (%v, %v)", release, conflicts, tt.wantRelease, tt.wantConflicts)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int32
		wantErr bool
	}{
		{
			name:  "should parse a morning time",
			value: "08:30",
			want:  8*60 + 30,
		},
		{
			name:  "should parse midnight",
			value: "00:00",
			want:  0,
		},
		{
			name:    "should reject a malformed time",
			value:   "8h30",
			wantErr: true,
		},
		{
			name:    "should reject an out of range time",
			value:   "25:00",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClock(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseClock() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseClock() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(8*60 + 5); got != "08:05" {
		t.Errorf("formatClock() = %v, want 08:05", got)
	}
	if got := formatClock(0); got != "00:00" {
		t.Errorf("formatClock() = %v, want 00:00", got)
	}
}

func TestGetBookableSlotsLocalClock(t *testing.T) {
	// dates arrive in UTC while the server clock may tick in another zone, so the
	// same-day lead time must still raise the window start
	local := time.FixedZone("UTC-5", -5*60*60)
	doctorUUID := uuid.New()
	dbConn := mock.MustCreateConnectionMock()
	mock.MockDBResults(dbConn,
		withQueryResult(findDoctorByUUIDQuery, sqlmock.NewRows(doctorColumns()).AddRow(5, doctorUUID, 2, "John Doe")),
		withQueryResult(findConsultationDurationQuery, durationRows(30)),
		withQueryResult(listWeekdayAvailabilityQuery, sqlmock.NewRows(availabilityColumns()).AddRow(1, 5, 1, "08:00", "12:00")),
		withQueryResult(listBusyEntriesQuery, sqlmock.NewRows(entryColumns())),
	)
	service := newTestService(dbConn)
	service.now = func() time.Time { return fixedNow.In(local) }

	got, err := service.GetBookableSlots(context.Background(), doctorUUID, uuid.New(), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetBookableSlots() error = %v", err)
	}
	want := []string{"09:30", "10:00", "10:30", "11:00", "11:30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetBookableSlots() = %v, want %v", got, want)
	}
	if err = dbConn.SQLMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet database expectations: %v", err)
	}
}
