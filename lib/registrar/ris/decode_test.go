package ris

import (
	"errors"
	"testing"
	"time"
	"utregister/lib/registrar/term"
	"utregister/lib/timezone"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, timezone.Location)
}

func decoder(year int, semester term.Semester) Decoder {
	return Decoder{Term: term.Term{Year: year, Semester: semester}}
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name     string
		decoder  Decoder
		span     string
		expected []Window
	}{
		{
			name:     "empty",
			decoder:  decoder(2023, term.Fall),
			span:     "",
			expected: nil,
		},
		{
			name:    "weekdays",
			decoder: decoder(2023, term.Fall),
			span:    "MO-TU, 9:00 AM - 10:00 AM",
			expected: []Window{
				{Start: at(2023, time.August, 7, 9, 0), Stop: at(2023, time.August, 7, 10, 0)},
				{Start: at(2023, time.August, 8, 9, 0), Stop: at(2023, time.August, 8, 10, 0)},
			},
		},
		{
			name:    "inherited month and marker, spring rollback",
			decoder: decoder(2024, term.Spring),
			span:    "DEC 1-5, 9-11 AM",
			expected: []Window{
				{Start: at(2023, time.December, 1, 9, 0), Stop: at(2023, time.December, 1, 11, 0)},
				{Start: at(2023, time.December, 2, 9, 0), Stop: at(2023, time.December, 2, 11, 0)},
				{Start: at(2023, time.December, 3, 9, 0), Stop: at(2023, time.December, 3, 11, 0)},
				{Start: at(2023, time.December, 4, 9, 0), Stop: at(2023, time.December, 4, 11, 0)},
				{Start: at(2023, time.December, 5, 9, 0), Stop: at(2023, time.December, 5, 11, 0)},
			},
		},
		{
			name:    "spring january keeps its year",
			decoder: decoder(2024, term.Spring),
			span:    "JAN 8, 8:00 AM - Midnight",
			expected: []Window{
				{Start: at(2024, time.January, 8, 8, 0), Stop: at(2024, time.January, 8, 23, 59)},
			},
		},
		{
			name:    "fall keeps august",
			decoder: decoder(2023, term.Fall),
			span:    "AUG 30-SEP 2, 8 AM-5 PM",
			expected: []Window{
				{Start: at(2023, time.August, 30, 8, 0), Stop: at(2023, time.August, 30, 17, 0)},
				{Start: at(2023, time.August, 31, 8, 0), Stop: at(2023, time.August, 31, 17, 0)},
				{Start: at(2023, time.September, 1, 8, 0), Stop: at(2023, time.September, 1, 17, 0)},
				{Start: at(2023, time.September, 2, 8, 0), Stop: at(2023, time.September, 2, 17, 0)},
			},
		},
		{
			name:    "full month names and noon",
			decoder: decoder(2024, term.Summer),
			span:    " April 2 , Noon - 6:30 p.m. ",
			expected: []Window{
				{Start: at(2024, time.April, 2, 12, 0), Stop: at(2024, time.April, 2, 18, 30)},
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			windows, err := test.decoder.Decode(test.span)
			require.NoError(t, err)
			diff := cmp.Diff(test.expected, windows)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	d := decoder(2024, term.Spring)
	spans := []string{
		"DEC 1-5",
		"DEC 1-5, 9 AM, 10 AM",
		"DEC 1-2-3, 9-10 AM",
		"DEC 1-5, 9 AM",
		"DEC 1-5, 9-10-11 AM",
		"FOO 1, 9-10 AM",
		"DEC 1-5, 9-10",
		"DEC 5-1, 9-10 AM",
		"FEB 30, 9-10 AM",
		"MO-DEC 3, 9-10 AM",
		"DEC 1-5, 13:00 PM - 2 PM",
		", 9-10 AM",
		"NOV 13, 10 PM - 2 AM",
		"NOV 13, 11-1 PM",
	}
	for _, span := range spans {
		_, err := d.Decode(span)
		require.Error(t, err, span)

		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), span)
		require.Equal(t, span, parseErr.Span)
		require.NotEmpty(t, parseErr.Reason)
	}
}

func TestDecodeAll(t *testing.T) {
	d := decoder(2024, term.Spring)
	spans := []string{
		"NOV 13, 8-10 PM",
		"DEC 1-5",
		"JAN 8, 8:00 AM - Midnight",
	}

	_, err := d.DecodeAll(spans)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, "DEC 1-5", parseErr.Span)

	windows, errs := d.DecodeLenient(spans)
	require.Len(t, errs, 1)
	require.Equal(t, "DEC 1-5", errs[0].Span)
	require.Equal(t, []Window{
		{Start: at(2023, time.November, 13, 20, 0), Stop: at(2023, time.November, 13, 22, 0)},
		{Start: at(2024, time.January, 8, 8, 0), Stop: at(2024, time.January, 8, 23, 59)},
	}, windows)
}

func TestDecodeLocation(t *testing.T) {
	d := Decoder{Term: term.Term{Year: 2023, Semester: term.Fall}, Location: time.UTC}
	windows, err := d.Decode("APR 3, 9-10 AM")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	require.Equal(t, time.Date(2023, time.April, 3, 9, 0, 0, 0, time.UTC), windows[0].Start)
}

func TestNext(t *testing.T) {
	windows := []Window{
		{Start: at(2024, time.January, 8, 8, 0), Stop: at(2024, time.January, 8, 23, 59)},
		{Start: at(2023, time.November, 13, 20, 0), Stop: at(2023, time.November, 13, 22, 0)},
	}

	next, ok := Next(windows, at(2023, time.November, 1, 0, 0))
	require.True(t, ok)
	require.Equal(t, windows[1], next)

	next, ok = Next(windows, at(2023, time.November, 13, 21, 0))
	require.True(t, ok)
	require.True(t, next.Contains(at(2023, time.November, 13, 21, 0)))

	next, ok = Next(windows, at(2023, time.November, 14, 0, 0))
	require.True(t, ok)
	require.Equal(t, windows[0], next)

	_, ok = Next(windows, at(2024, time.January, 9, 0, 0))
	require.False(t, ok)
}
