package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("IST", 5*3600+1800)

func at(day time.Time, hh, mm int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, testLoc)
}

func testPolicy() Policy {
	return Policy{CutoffHour: 11, Cooldown: 30 * time.Minute, Location: testLoc}
}

func TestAfterCutoff(t *testing.T) {
	p := testPolicy()
	today := time.Date(2024, 6, 3, 0, 0, 0, 0, testLoc)

	testCases := []struct {
		name string
		day  time.Time
		now  time.Time
		want bool
	}{
		{name: "past day early morning", day: today.AddDate(0, 0, -1), now: at(today, 7, 0), want: true},
		{name: "today before cutoff", day: today, now: at(today, 10, 59), want: false},
		{name: "today at cutoff", day: today, now: at(today, 11, 0), want: true},
		{name: "today after cutoff", day: today, now: at(today, 15, 30), want: true},
		{name: "future day", day: today.AddDate(0, 0, 1), now: at(today, 23, 0), want: false},
		{name: "now given in UTC", day: today, now: at(today, 11, 5).UTC(), want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.AfterCutoff(tc.day, tc.now))
		})
	}
}

func TestEvaluateStatuses(t *testing.T) {
	p := testPolicy()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, testLoc)

	roster := []StudentScans{
		{StudentID: 1, Name: "No Scan", TagID: "T1"},
		{StudentID: 2, Name: "Bounce", TagID: "T2", Scans: []time.Time{at(day, 8, 5), at(day, 8, 2)}},
		{StudentID: 3, Name: "Exited", TagID: "T3", Scans: []time.Time{at(day, 16, 10), at(day, 8, 0)}},
		{StudentID: 4, Name: "Single", TagID: "T4", Scans: []time.Time{at(day, 9, 15)}},
		{StudentID: 5, Name: "Exactly thirty", TagID: "T5", Scans: []time.Time{at(day, 7, 30), at(day, 8, 0)}},
	}

	t.Run("before cutoff", func(t *testing.T) {
		rows := p.Evaluate(day, at(day, 10, 0), roster)
		require.Len(t, rows, 5)

		byID := map[int64]Row{}
		for _, r := range rows {
			byID[r.StudentID] = r
		}

		assert.Equal(t, StatusPending, byID[1].Status)
		assert.Equal(t, MsgAwaiting, byID[1].Message)
		assert.Nil(t, byID[1].InTime)

		bounce := byID[2]
		assert.Equal(t, StatusPresent, bounce.Status)
		require.NotNil(t, bounce.InTime)
		assert.Equal(t, "08:02 AM", bounce.InTime.Format("03:04 PM"))
		assert.Nil(t, bounce.OutTime)
		assert.Equal(t, MsgInside, bounce.Message)
		assert.Equal(t, 2, bounce.ScanCount)

		exited := byID[3]
		require.NotNil(t, exited.OutTime)
		assert.Equal(t, "04:10 PM", exited.OutTime.Format("03:04 PM"))
		assert.Equal(t, MsgExited, exited.Message)

		single := byID[4]
		assert.Equal(t, StatusPresent, single.Status)
		assert.Nil(t, single.OutTime)

		assert.NotNil(t, byID[5].OutTime, "a gap of exactly the cooldown counts as an exit")
	})

	t.Run("after cutoff", func(t *testing.T) {
		rows := p.Evaluate(day, at(day, 11, 30), roster)
		for _, r := range rows {
			if r.StudentID == 1 {
				assert.Equal(t, StatusAbsent, r.Status)
				assert.Equal(t, MsgNoScan, r.Message)
			}
		}
	})
}

func TestEvaluateOrdering(t *testing.T) {
	p := testPolicy()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, testLoc)

	roster := []StudentScans{
		{StudentID: 1},
		{StudentID: 2, Scans: []time.Time{at(day, 9, 0)}},
		{StudentID: 3},
		{StudentID: 4, Scans: []time.Time{at(day, 7, 45)}},
		{StudentID: 5, Scans: []time.Time{at(day, 8, 30)}},
	}

	rows := p.Evaluate(day, at(day, 12, 0), roster)
	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.StudentID)
	}
	assert.Equal(t, []int64{4, 5, 2, 1, 3}, ids)
}

func TestTallyMatchesRows(t *testing.T) {
	p := testPolicy()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, testLoc)
	roster := []StudentScans{
		{StudentID: 1},
		{StudentID: 2, Scans: []time.Time{at(day, 9, 0)}},
		{StudentID: 3},
	}

	for _, now := range []time.Time{at(day, 9, 0), at(day, 14, 0)} {
		rows := p.Evaluate(day, now, roster)
		st := Tally(rows)
		assert.Equal(t, len(rows), st.Total)
		assert.Equal(t, st.Total, st.Present+st.Pending+st.Absent)
		assert.Equal(t, 1, st.Present)
	}
}

func TestPastDayNeverPending(t *testing.T) {
	p := testPolicy()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, testLoc)
	rows := p.Evaluate(day, at(day.AddDate(0, 0, 1), 6, 0), []StudentScans{{StudentID: 9}})
	require.Len(t, rows, 1)
	assert.Equal(t, StatusAbsent, rows[0].Status)
}
