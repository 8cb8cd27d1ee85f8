package prescription

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
)

func d(s string) domain.Date { return domain.MustParseDate(s) }

func rx(issued string, days int) *Prescription {
	return &Prescription{PrescriptionDate: d(issued), ValidityDays: days}
}

func TestComputeExpiry(t *testing.T) {
	cases := []struct {
		name   string
		issued string
		days   int
		want   string
	}{
		{"same day", "2024-01-01", 0, "2024-01-01"},
		{"fifteen days", "2024-01-01", 15, "2024-01-16"},
		{"month rollover", "2024-01-20", 15, "2024-02-04"},
		{"leap day", "2024-02-20", 9, "2024-02-29"},
		{"non leap year", "2023-02-20", 9, "2023-03-01"},
		{"year rollover", "2024-12-01", 60, "2025-01-30"},
		{"longest period", "2024-01-01", 240, "2024-08-28"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeExpiry(d(tc.issued), tc.days)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestComputeExpiry_NegativeDays(t *testing.T) {
	_, err := ComputeExpiry(d("2024-01-01"), -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValidityDays)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestComputeExpiry_Deterministic(t *testing.T) {
	issued := d("2024-03-10")
	first, err := ComputeExpiry(issued, 90)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ComputeExpiry(issued, 90)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
}

func TestClassifyStatus_Boundaries(t *testing.T) {
	today := d("2024-05-10")
	cases := []struct {
		name   string
		offset int
		want   Status
	}{
		{"expired long ago", -30, StatusExpired},
		{"expired yesterday", -1, StatusExpired},
		{"expires today", 0, StatusExpiringSoon},
		{"expires tomorrow", 1, StatusExpiringSoon},
		{"end of window", Window, StatusExpiringSoon},
		{"just past window", Window + 1, StatusValid},
		{"far future", 200, StatusValid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStatus(today.AddDays(tc.offset), today))
		})
	}
}

func TestClassifyStatus_Total(t *testing.T) {
	today := d("2024-01-31")
	for offset := -40; offset <= 40; offset++ {
		s := ClassifyStatus(today.AddDays(offset), today)
		hits := 0
		for _, v := range []Status{StatusValid, StatusExpiringSoon, StatusExpired} {
			if s == v {
				hits++
			}
		}
		assert.Equal(t, 1, hits, "offset %d produced %q", offset, s)
	}
}

func freshness(s Status) int {
	switch s {
	case StatusExpired:
		return 0
	case StatusExpiringSoon:
		return 1
	default:
		return 2
	}
}

func TestClassifyStatus_MonotonicInValidity(t *testing.T) {
	today := d("2024-06-15")
	issued := d("2024-05-01")
	prev := -1
	for days := 0; days <= 120; days++ {
		s, err := rx(issued.String(), days).Status(today)
		require.NoError(t, err)
		f := freshness(s)
		assert.GreaterOrEqual(t, f, prev, "validity %d went from freshness %d to %d", days, prev, f)
		prev = f
	}
}

func TestScenarios(t *testing.T) {
	cases := []struct {
		issued     string
		days       int
		today      string
		wantExpiry string
		want       Status
	}{
		{"2024-01-01", 15, "2024-01-16", "2024-01-16", StatusExpiringSoon},
		{"2024-01-01", 15, "2024-01-20", "2024-01-16", StatusExpired},
		{"2024-01-01", 90, "2024-01-20", "2024-03-31", StatusValid},
	}
	for _, tc := range cases {
		p := rx(tc.issued, tc.days)
		expiry, err := p.ExpiryDate()
		require.NoError(t, err)
		assert.Equal(t, tc.wantExpiry, expiry.String())

		s, err := p.Status(d(tc.today))
		require.NoError(t, err)
		assert.Equal(t, tc.want, s)
	}
}

func TestFilterByStatus(t *testing.T) {
	today := d("2024-01-20")
	ps := []*Prescription{
		rx("2024-01-01", 15), // expired
		rx("2024-01-01", 90), // valid
		rx("2024-01-10", 15), // expiring, 2024-01-25
		rx("2023-06-01", 30), // expired
		rx("2024-01-20", 0),  // expiring, today
	}

	all, err := FilterByStatus(ps, FilterAll, today)
	require.NoError(t, err)
	require.Len(t, all, len(ps))
	for i := range ps {
		assert.Same(t, ps[i], all[i])
	}

	unset, err := FilterByStatus(ps, "", today)
	require.NoError(t, err)
	assert.Len(t, unset, len(ps))

	expired, err := FilterByStatus(ps, FilterExpired, today)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Same(t, ps[0], expired[0])
	assert.Same(t, ps[3], expired[1])

	expiring, err := FilterByStatus(ps, FilterExpiringSoon, today)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	assert.Same(t, ps[2], expiring[0])
	assert.Same(t, ps[4], expiring[1])

	valid, err := FilterByStatus(ps, FilterValid, today)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Same(t, ps[1], valid[0])

	// input untouched
	assert.Equal(t, 15, ps[0].ValidityDays)
	assert.Len(t, ps, 5)
}

func TestFilterByStatus_Errors(t *testing.T) {
	today := d("2024-01-20")

	_, err := FilterByStatus(nil, StatusFilter("soon"), today)
	assert.ErrorIs(t, err, ErrInvalidStatusFilter)

	_, err = FilterByStatus([]*Prescription{rx("2024-01-01", -5)}, FilterValid, today)
	assert.ErrorIs(t, err, ErrInvalidValidityDays)
}

func TestParseStatusFilter(t *testing.T) {
	for in, want := range map[string]StatusFilter{
		"":              FilterAll,
		"all":           FilterAll,
		"valid":         FilterValid,
		"expiring-soon": FilterExpiringSoon,
		"expired":       FilterExpired,
	} {
		got, err := ParseStatusFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseStatusFilter("Vencida")
	assert.Error(t, err)
}

func TestCountByStatus(t *testing.T) {
	today := d("2024-01-20")
	counts, err := CountByStatus([]*Prescription{
		rx("2024-01-01", 15),
		rx("2024-01-01", 90),
		rx("2024-01-10", 15),
		rx("2024-01-20", 0),
	}, today)
	require.NoError(t, err)
	assert.Equal(t, StatusCounts{Valid: 1, Expiring: 2, Expired: 1}, counts)
	assert.Equal(t, 4, counts.Total())
}

func TestIsAllowedValidity(t *testing.T) {
	assert.True(t, IsAllowedValidity(15))
	assert.True(t, IsAllowedValidity(240))
	assert.False(t, IsAllowedValidity(0))
	assert.False(t, IsAllowedValidity(45))
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewAll, v)

	v, err = ParseView("expiring")
	require.NoError(t, err)
	assert.Equal(t, ViewExpiring, v)

	_, err = ParseView("oldest")
	assert.ErrorIs(t, err, ErrInvalidView)
}
