package playtime

import (
	"math"
	"testing"
	"time"
)

func localTime(t *testing.T, year int, month time.Month, day, hour, min, sec int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, sec, 0, time.Local)
}

func TestSplitByDaySingleDay(t *testing.T) {
	session := NewSession("game123",
		localTime(t, 2024, time.January, 1, 10, 0, 0),
		localTime(t, 2024, time.January, 1, 12, 0, 0))

	splits := SplitByDay(session)
	if len(splits) != 1 {
		t.Fatalf("splits = %d, want 1", len(splits))
	}
	if splits[0] != session {
		t.Fatalf("single-day session should come back unchanged, got %+v", splits[0])
	}
	if splits[0].Duration != 7200.0 {
		t.Fatalf("duration = %v, want 7200", splits[0].Duration)
	}
}

func TestSplitByDayAcrossMidnight(t *testing.T) {
	session := NewSession("game123",
		localTime(t, 2024, time.January, 1, 22, 0, 0),
		localTime(t, 2024, time.January, 2, 2, 0, 0))

	splits := SplitByDay(session)
	if len(splits) != 2 {
		t.Fatalf("splits = %d, want 2", len(splits))
	}

	first, second := splits[0], splits[1]

	wantFirstEnd := localTime(t, 2024, time.January, 1, 23, 59, 59)
	if !first.EndedAt.Equal(wantFirstEnd) {
		t.Errorf("first segment ends %v, want %v", first.EndedAt, wantFirstEnd)
	}
	if first.Duration <= 7100.0 || first.Duration >= 7200.0 {
		t.Errorf("first duration = %v, want just under 2h", first.Duration)
	}

	wantSecondStart := localTime(t, 2024, time.January, 2, 0, 0, 0)
	if !second.StartedAt.Equal(wantSecondStart) {
		t.Errorf("second segment starts %v, want %v", second.StartedAt, wantSecondStart)
	}
	if second.Duration != 7200.0 {
		t.Errorf("second duration = %v, want 7200", second.Duration)
	}
}

func TestSplitByDayEndingAtMidnight(t *testing.T) {
	session := NewSession("game123",
		localTime(t, 2024, time.January, 1, 22, 0, 0),
		localTime(t, 2024, time.January, 2, 0, 0, 0))

	splits := SplitByDay(session)
	if len(splits) != 1 {
		t.Fatalf("splits = %d, want 1 (no zero-length trailing segment)", len(splits))
	}
	if got := splits[0].EndedAt; !got.Equal(localTime(t, 2024, time.January, 1, 23, 59, 59)) {
		t.Fatalf("segment ends %v, want 23:59:59", got)
	}
}

func TestSplitByDayProperties(t *testing.T) {
	tests := []struct {
		name         string
		start, end   time.Time
		wantSegments int
	}{
		{
			name:         "within one day",
			start:        localTime(t, 2024, time.March, 10, 9, 15, 30),
			end:          localTime(t, 2024, time.March, 10, 23, 59, 59),
			wantSegments: 1,
		},
		{
			name:         "two days",
			start:        localTime(t, 2024, time.March, 10, 18, 0, 0),
			end:          localTime(t, 2024, time.March, 11, 6, 0, 0),
			wantSegments: 2,
		},
		{
			name:         "four days",
			start:        localTime(t, 2024, time.February, 28, 12, 0, 0),
			end:          localTime(t, 2024, time.March, 2, 12, 0, 0),
			wantSegments: 4,
		},
		{
			name:         "starting at midnight",
			start:        localTime(t, 2024, time.March, 10, 0, 0, 0),
			end:          localTime(t, 2024, time.March, 11, 1, 0, 0),
			wantSegments: 2,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			session := NewSession("g", test.start, test.end)
			splits := SplitByDay(session)

			if len(splits) != test.wantSegments {
				t.Fatalf("segments = %d, want %d", len(splits), test.wantSegments)
			}

			var sum float64
			for i, s := range splits {
				sum += s.Duration

				if s.Duration <= 0 {
					t.Errorf("segment %d has non-positive duration %v", i, s.Duration)
				}
				if s.MultiDay() {
					t.Errorf("segment %d spans multiple days: %v .. %v", i, s.StartedAt, s.EndedAt)
				}
				if i > 0 && !splits[i-1].EndedAt.Before(s.StartedAt) {
					t.Errorf("segment %d overlaps or precedes segment %d", i, i-1)
				}
			}

			// One second is swallowed at each midnight (day segments
			// end at 23:59:59); the sum matches up to that.
			lost := float64(test.wantSegments - 1)
			if diff := math.Abs(session.Duration - sum - lost); diff > 1e-9 {
				t.Errorf("durations sum to %v, want %v (+%v boundary seconds)", sum, session.Duration, lost)
			}
		})
	}
}

func TestMultiDay(t *testing.T) {
	sameDay := NewSession("g",
		localTime(t, 2024, time.January, 1, 0, 0, 0),
		localTime(t, 2024, time.January, 1, 23, 59, 59))
	if sameDay.MultiDay() {
		t.Error("session within one day reported as multi-day")
	}

	crossing := NewSession("g",
		localTime(t, 2024, time.January, 1, 23, 0, 0),
		localTime(t, 2024, time.January, 2, 1, 0, 0))
	if !crossing.MultiDay() {
		t.Error("midnight-crossing session not reported as multi-day")
	}
}
