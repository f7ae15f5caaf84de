package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseFrequency(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected Frequency
		err      error
	}{
		"daily label":   {input: "Daily", expected: Daily},
		"daily code":    {input: "d", expected: Daily},
		"weekly label":  {input: "WEEKLY", expected: Weekly},
		"weekly anchor": {input: "W-SUN", expected: Weekly},
		"month end":     {input: "ME", expected: Monthly},
		"legacy month":  {input: "M", expected: Monthly},
		"yearly":        {input: " Yearly ", expected: Yearly},
		"annual code":   {input: "A", expected: Yearly},
		"unknown":       {input: "hourly", err: ErrUnknownFrequency},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			freq, err := ParseFrequency(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, freq)
		})
	}
}

func TestFrequencyText(t *testing.T) {
	for _, freq := range Frequencies {
		text, err := freq.MarshalText()
		require.Nil(t, err)

		var decoded Frequency
		require.Nil(t, decoded.UnmarshalText(text))
		assert.Equal(t, freq, decoded)

		require.Nil(t, decoded.UnmarshalText([]byte(freq.Code())))
		assert.Equal(t, freq, decoded)
	}

	_, err := Frequency(42).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownFrequency)
	assert.False(t, Frequency(42).Valid())
}

func TestAnchor(t *testing.T) {
	// 2023-01-04 is a Wednesday
	wed := time.Date(2023, 1, 4, 15, 30, 0, 0, time.UTC)

	testData := map[string]struct {
		freq   Frequency
		input  time.Time
		anchor time.Time
		start  time.Time
	}{
		"daily drops time of day": {freq: Daily, input: wed, anchor: date(2023, 1, 4), start: date(2023, 1, 4)},
		"weekly ends sunday":      {freq: Weekly, input: wed, anchor: date(2023, 1, 8), start: date(2023, 1, 2)},
		"weekly sunday is anchor": {freq: Weekly, input: date(2023, 1, 8), anchor: date(2023, 1, 8), start: date(2023, 1, 2)},
		"weekly monday":           {freq: Weekly, input: date(2023, 1, 9), anchor: date(2023, 1, 15), start: date(2023, 1, 9)},
		"monthly leap february":   {freq: Monthly, input: date(2024, 2, 10), anchor: date(2024, 2, 29), start: date(2024, 2, 1)},
		"monthly december":        {freq: Monthly, input: date(2023, 12, 1), anchor: date(2023, 12, 31), start: date(2023, 12, 1)},
		"yearly":                  {freq: Yearly, input: wed, anchor: date(2023, 12, 31), start: date(2023, 1, 1)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.anchor, td.freq.Anchor(td.input))
			assert.Equal(t, td.start, td.freq.Start(td.input))
		})
	}
}

func TestAdd(t *testing.T) {
	testData := map[string]struct {
		freq     Frequency
		input    time.Time
		n        int
		expected time.Time
	}{
		"daily forward":           {freq: Daily, input: date(2023, 2, 27), n: 3, expected: date(2023, 3, 2)},
		"daily backward":          {freq: Daily, input: date(2023, 3, 1), n: -1, expected: date(2023, 2, 28)},
		"weekly":                  {freq: Weekly, input: date(2023, 1, 4), n: 2, expected: date(2023, 1, 22)},
		"monthly from january 31": {freq: Monthly, input: date(2023, 1, 31), n: 1, expected: date(2023, 2, 28)},
		"monthly across year":     {freq: Monthly, input: date(2023, 11, 30), n: 3, expected: date(2024, 2, 29)},
		"monthly backward":        {freq: Monthly, input: date(2024, 3, 31), n: -1, expected: date(2024, 2, 29)},
		"yearly":                  {freq: Yearly, input: date(2020, 6, 1), n: 2, expected: date(2022, 12, 31)},
		"zero steps gives anchor": {freq: Monthly, input: date(2020, 6, 1), n: 0, expected: date(2020, 6, 30)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.freq.Add(td.input, td.n))
		})
	}
}

func TestGrid(t *testing.T) {
	testData := map[string]struct {
		freq     Frequency
		start    time.Time
		end      time.Time
		expected []time.Time
	}{
		"daily": {
			freq: Daily, start: date(2020, 2, 28), end: date(2020, 3, 1),
			expected: []time.Time{date(2020, 2, 28), date(2020, 2, 29), date(2020, 3, 1)},
		},
		"weekly partial weeks": {
			freq: Weekly, start: date(2023, 1, 7), end: date(2023, 1, 9),
			expected: []time.Time{date(2023, 1, 8), date(2023, 1, 15)},
		},
		"monthly": {
			freq: Monthly, start: date(2022, 11, 15), end: date(2023, 1, 2),
			expected: []time.Time{date(2022, 11, 30), date(2022, 12, 31), date(2023, 1, 31)},
		},
		"yearly": {
			freq: Yearly, start: date(2019, 12, 31), end: date(2021, 1, 1),
			expected: []time.Time{date(2019, 12, 31), date(2020, 12, 31), date(2021, 12, 31)},
		},
		"same period": {
			freq: Monthly, start: date(2022, 5, 1), end: date(2022, 5, 31),
			expected: []time.Time{date(2022, 5, 31)},
		},
		"reversed": {
			freq: Daily, start: date(2022, 5, 2), end: date(2022, 5, 1),
			expected: []time.Time{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			grid := td.freq.Grid(td.start, td.end)
			assert.Equal(t, td.expected, grid)
			assert.Equal(t, len(td.expected), td.freq.Periods(td.start, td.end))
		})
	}
}

func TestGridLongSpan(t *testing.T) {
	start := date(1700, 1, 1)
	end := date(2013, 1, 14)

	testData := map[string]struct {
		freq  Frequency
		len   int
		first time.Time
		last  time.Time
	}{
		"daily": {freq: Daily, len: 114335, first: start, last: end},
		"weekly": {
			freq: Weekly, len: 16335, first: date(1700, 1, 3), last: date(2013, 1, 20),
		},
		"yearly": {
			freq: Yearly, len: 314, first: date(1700, 12, 31), last: date(2013, 12, 31),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			grid := td.freq.Grid(start, end)
			require.Len(t, grid, td.len)
			assert.Equal(t, td.len, td.freq.Periods(start, end))
			assert.Equal(t, td.first, grid[0])
			assert.Equal(t, td.last, grid[len(grid)-1])
		})
	}
}
