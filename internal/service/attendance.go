package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/msomdec/tempo/internal/calendar"
	"github.com/msomdec/tempo/internal/domain"
)

const (
	// ProgressBarSegments is roughly how many segments the year bar shows.
	ProgressBarSegments = 50
	// DotGridColumns is the column count of the year dot grid.
	DotGridColumns = 20
)

// AttendanceStats summarises a year of attendance as of Today.
type AttendanceStats struct {
	DaysAttended     int
	Today            int
	TotalDays        int
	DaysRemaining    int
	PercentRemaining float64
	PercentComplete  float64
	AttendanceRate   float64
}

// DayCell is one dot of the year grid.
type DayCell struct {
	Day      int
	Date     string
	Label    string
	Attended bool
	IsToday  bool
	IsPast   bool
}

// BarSegment is one segment of the year progress bar covering a run of
// consecutive days. Ratio is attended days over past days in the run.
type BarSegment struct {
	Start    int
	Ratio    float64
	HasToday bool
	IsPast   bool
	IsFuture bool
}

// AttendanceModel holds which days of the current year have a logged session.
type AttendanceModel struct {
	sessions domain.GymSessionRepository
	userID   string
	now      time.Time

	Attended map[int]bool
}

// NewAttendanceModel returns a model for the year containing now. now's
// location decides which calendar day is today.
func NewAttendanceModel(sessions domain.GymSessionRepository, userID string, now time.Time) *AttendanceModel {
	return &AttendanceModel{sessions: sessions, userID: userID, now: now, Attended: map[int]bool{}}
}

func (m *AttendanceModel) Year() int {
	return m.now.Year()
}

// Fetch loads the session dates of the year. On failure the year shows as
// empty.
func (m *AttendanceModel) Fetch(ctx context.Context) {
	from, to := calendar.YearBounds(m.now.Year())
	dates, err := m.sessions.ListDates(ctx, m.userID, from, to)
	attended := make(map[int]bool, len(dates))
	if err != nil {
		slog.Error("fetch attendance", "error", err)
		m.Attended = attended
		return
	}
	for _, d := range dates {
		t, err := calendar.ParseISODate(d, m.now.Location())
		if err != nil {
			slog.Warn("skip malformed session date", "date", d)
			continue
		}
		attended[calendar.DayOfYear(t)] = true
	}
	m.Attended = attended
}

func (m *AttendanceModel) Stats() AttendanceStats {
	today := calendar.DayOfYear(m.now)
	total := calendar.DaysInYear(m.now.Year())
	attended := len(m.Attended)

	var rate float64
	if today > 0 {
		rate = float64(attended) / float64(today) * 100
	}
	return AttendanceStats{
		DaysAttended:     attended,
		Today:            today,
		TotalDays:        total,
		DaysRemaining:    total - today,
		PercentRemaining: float64(total-today) / float64(total) * 100,
		PercentComplete:  float64(today) / float64(total) * 100,
		AttendanceRate:   rate,
	}
}

// Cells returns one cell per day of the year.
func (m *AttendanceModel) Cells() []DayCell {
	today := calendar.DayOfYear(m.now)
	total := calendar.DaysInYear(m.now.Year())
	cells := make([]DayCell, total)
	for i := range cells {
		day := i + 1
		date := calendar.DateFromDayOfYear(day, m.now.Year(), m.now.Location())
		cells[i] = DayCell{
			Day:      day,
			Date:     calendar.FormatISODate(date),
			Label:    calendar.FormatDateShort(date),
			Attended: m.Attended[day],
			IsToday:  day == today,
			IsPast:   day < today,
		}
	}
	return cells
}

// Segments groups the year into runs of ceil(total/ProgressBarSegments) days.
func (m *AttendanceModel) Segments() []BarSegment {
	today := calendar.DayOfYear(m.now)
	total := calendar.DaysInYear(m.now.Year())
	size := int(math.Ceil(float64(total) / ProgressBarSegments))

	var segments []BarSegment
	for start := 1; start <= total; start += size {
		end := min(start+size-1, total)
		var attended, past int
		for d := start; d <= end; d++ {
			if d < today {
				past++
			}
			if m.Attended[d] {
				attended++
			}
		}
		seg := BarSegment{
			Start:    start,
			HasToday: today >= start && today <= end,
			IsPast:   start < today,
			IsFuture: start > today,
		}
		if past > 0 {
			seg.Ratio = float64(attended) / float64(past)
		}
		segments = append(segments, seg)
	}
	return segments
}
