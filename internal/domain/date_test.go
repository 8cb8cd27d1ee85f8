package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-01-16", "2024-01-16"},
		{" 2024-02-29 ", "2024-02-29"},
		{"16/01/2024", "2024-01-16"},
		{"01/12/2023", "2023-12-01"},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.String())
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2023-02-29", "2024-13-01", "31/02/2024", "tomorrow", "2024/01/16"} {
		_, err := ParseDate(in)
		require.Error(t, err, in)

		var pe *ParseError
		require.True(t, errors.As(err, &pe), in)
		assert.Equal(t, in, pe.Input)
		assert.ErrorIs(t, err, ErrParse)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2024-02-27", d.AddDays(-1).String())

	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.Equal(t, -3, d.DaysUntil(d.AddDays(-3)))
	assert.Equal(t, -1, d.Compare(d.AddDays(1)))
	assert.Equal(t, 0, d.Compare(NewDate(2024, time.February, 28)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
}

func TestDateOf_UsesLocationDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 01:30 UTC on the 17th is still the 16th in Brasília.
	ts := time.Date(2024, time.January, 17, 1, 30, 0, 0, time.UTC).In(loc)
	assert.Equal(t, "2024-01-16", DateOf(ts).String())
}

func TestDate_Format(t *testing.T) {
	assert.Equal(t, "16/01/2024", MustParseDate("2024-01-16").Format())
	assert.Equal(t, "", Date{}.Format())
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		On    Date  `json:"on"`
		Maybe *Date `json:"maybe"`
	}

	b, err := json.Marshal(payload{On: MustParseDate("2024-01-16")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2024-01-16","maybe":null}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"on":"16/01/2024","maybe":"2024-02-01"}`), &p))
	assert.Equal(t, "2024-01-16", p.On.String())
	require.NotNil(t, p.Maybe)
	assert.Equal(t, "2024-02-01", p.Maybe.String())

	err = json.Unmarshal([]byte(`{"on":"2024-99-01"}`), &p)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDate_SQL(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-05", d.String())

	require.NoError(t, d.Scan("2024-03-06T00:00:00Z"))
	assert.Equal(t, "2024-03-06", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-07")))
	assert.Equal(t, "2024-03-07", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-07", v)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	v, err = d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, d.Scan(42))
}

func TestSessionContext(t *testing.T) {
	ctx := WithSession(t.Context(), Session{Email: "a@b.c", Role: RoleAdmin})
	s, ok := SessionFrom(ctx)
	require.True(t, ok)
	assert.True(t, s.IsAdmin())

	_, ok = SessionFrom(t.Context())
	assert.False(t, ok)
}
