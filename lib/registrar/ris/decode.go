package ris

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"utregister/lib/registrar/term"
	"utregister/lib/timezone"
)

// Window is a single day's registration access window.
type Window struct {
	Start time.Time
	Stop  time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.Stop)
}

// ParseError carries the raw span that failed to decode.
type ParseError struct {
	Span   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse registration span %q: %s", e.Span, e.Reason)
}

// a single span never covers more than this many days
const maxSpanDays = 366

var referenceMonths = []string{
	"january",
	"february",
	"march",
	"april",
	"may",
	"june",
	"july",
	"august",
	"september",
	"october",
	"november",
	"december",
}

func parseMonth(text string) (time.Month, bool) {
	text = strings.ToLower(strings.TrimSuffix(text, "."))
	if len(text) < 3 {
		return 0, false
	}
	for i, month := range referenceMonths {
		if strings.HasPrefix(month, text) {
			return time.January + time.Month(i), true
		}
	}
	return 0, false
}

func parseWeekday(text string) (time.Weekday, bool) {
	text = strings.ToLower(strings.TrimSuffix(text, "."))
	if len(text) < 2 || strings.Contains(text, " ") {
		return 0, false
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.HasPrefix(strings.ToLower(wd.String()), text) {
			return wd, true
		}
	}
	return 0, false
}

var clockRegex = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(?:([AaPp])\.?\s*[Mm]\.?)?$`)

type clock struct {
	hour   string
	minute string
	marker string
}

func parseClock(text string) (clock, bool) {
	match := clockRegex.FindStringSubmatch(text)
	if match == nil {
		return clock{}, false
	}
	c := clock{hour: match[1], minute: match[2]}
	if c.minute == "" {
		c.minute = "00"
	}
	if match[3] != "" {
		c.marker = strings.ToUpper(match[3]) + "M"
	}
	return c, true
}

func (c clock) resolve() (time.Time, error) {
	return time.Parse("3:04 PM", fmt.Sprintf("%s:%s %s", c.hour, c.minute, c.marker))
}

// Decoder expands registration spans like "DEC 1-5, 9-11 AM" into one
// Window per day.
type Decoder struct {
	Term term.Term
	// defaults to timezone.Location
	Location *time.Location
}

func (d Decoder) location() *time.Location {
	if d.Location == nil {
		return timezone.Location
	}
	return d.Location
}

// yearFor places month in the calendar year it falls in for the term.
// Spring registration opens in the fall of the previous year.
func (d Decoder) yearFor(month time.Month) int {
	year := d.Term.Year
	if d.Term.Semester == term.Spring && month >= time.August {
		year--
	}
	return year
}

func splitTokens(text string) []string {
	tokens := strings.Split(text, "-")
	for i, t := range tokens {
		tokens[i] = strings.Trim(t, " \t\n")
	}
	return tokens
}

func (d Decoder) parseDay(token string) (time.Time, error) {
	fields := strings.Fields(token)
	if len(fields) < 2 || len(fields) > 3 {
		return time.Time{}, fmt.Errorf("day %q is not <month> <day>", token)
	}
	month, ok := parseMonth(fields[0])
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", fields[0])
	}
	day, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("day of month %q is not a number", fields[1])
	}
	year := d.yearFor(month)
	if len(fields) == 3 {
		year, err = strconv.Atoi(fields[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("year %q is not a number", fields[2])
		}
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, d.location())
	if date.Day() != day || date.Month() != month {
		return time.Time{}, fmt.Errorf("%s %d does not exist in %d", month, day, year)
	}
	return date, nil
}

func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, offset)
}

func (d Decoder) resolveDays(days []string) (start time.Time, stop time.Time, err error) {
	if len(days) == 1 {
		days = []string{days[0], days[0]}
	}

	startWeekday, isWeekday := parseWeekday(days[0])
	if isWeekday {
		stopWeekday, ok := parseWeekday(days[1])
		if !ok {
			return start, stop, fmt.Errorf("day %q is not a weekday", days[1])
		}
		start = nextWeekday(d.Term.Start(d.location()), startWeekday)
		stop = nextWeekday(start, stopWeekday)
		return start, stop, nil
	}

	if !strings.Contains(days[1], " ") {
		month := strings.Fields(days[0])
		if len(month) == 0 {
			return start, stop, fmt.Errorf("missing start day")
		}
		days[1] = month[0] + " " + days[1]
	}

	start, err = d.parseDay(days[0])
	if err != nil {
		return start, stop, err
	}
	stop, err = d.parseDay(days[1])
	if err != nil {
		return start, stop, err
	}
	if stop.Before(start) {
		return start, stop, fmt.Errorf("range ends before it starts")
	}
	return start, stop, nil
}

func resolveTimes(startText, stopText string) (start time.Time, stop time.Time, err error) {
	if strings.EqualFold(stopText, "Midnight") {
		stopText = "11:59 PM"
	}
	if strings.EqualFold(startText, "Noon") {
		startText = "12:00 PM"
	}
	if strings.EqualFold(stopText, "Noon") {
		stopText = "12:00 PM"
	}

	startClock, ok := parseClock(startText)
	if !ok {
		return start, stop, fmt.Errorf("unknown time %q", startText)
	}
	stopClock, ok := parseClock(stopText)
	if !ok {
		return start, stop, fmt.Errorf("unknown time %q", stopText)
	}
	if stopClock.marker == "" {
		return start, stop, fmt.Errorf("time %q is missing AM/PM", stopText)
	}
	// "9-11 AM", the start shares the stop's marker
	if startClock.marker == "" {
		startClock.marker = stopClock.marker
	}

	start, err = startClock.resolve()
	if err != nil {
		return start, stop, err
	}
	stop, err = stopClock.resolve()
	if err != nil {
		return start, stop, err
	}
	if stop.Before(start) {
		return start, stop, fmt.Errorf("window ends before it starts")
	}
	return start, stop, nil
}

func onDay(day, clock time.Time) time.Time {
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0,
		day.Location(),
	)
}

// Decode expands a single "<days>, <start> - <stop>" span. An empty span
// has no windows.
func (d Decoder) Decode(span string) ([]Window, error) {
	trimmed := strings.Trim(span, " \t\n")
	if trimmed == "" {
		return nil, nil
	}
	fail := func(reason string) error {
		return &ParseError{Span: span, Reason: reason}
	}

	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return nil, fail(fmt.Sprintf("expected <days>, <times> but found %d comma separated parts", len(parts)))
	}
	days := splitTokens(parts[0])
	if len(days) < 1 || len(days) > 2 {
		return nil, fail(fmt.Sprintf("expected 1 or 2 days but found %d", len(days)))
	}
	times := splitTokens(parts[1])
	if len(times) != 2 {
		return nil, fail(fmt.Sprintf("expected a start and stop time but found %d times", len(times)))
	}

	startDay, stopDay, err := d.resolveDays(days)
	if err != nil {
		return nil, fail(err.Error())
	}
	startClock, stopClock, err := resolveTimes(times[0], times[1])
	if err != nil {
		return nil, fail(err.Error())
	}

	var windows []Window
	for day := startDay; !day.After(stopDay); day = day.AddDate(0, 0, 1) {
		if len(windows) >= maxSpanDays {
			return nil, fail("range is longer than a year")
		}
		windows = append(windows, Window{
			Start: onDay(day, startClock),
			Stop:  onDay(day, stopClock),
		})
	}
	return windows, nil
}

// DecodeAll decodes every span, stopping at the first failure.
func (d Decoder) DecodeAll(spans []string) ([]Window, error) {
	var windows []Window
	for _, span := range spans {
		decoded, err := d.Decode(span)
		if err != nil {
			return nil, err
		}
		windows = append(windows, decoded...)
	}
	return windows, nil
}

// DecodeLenient decodes every span it can, collecting the failures
// instead of aborting on them.
func (d Decoder) DecodeLenient(spans []string) ([]Window, []*ParseError) {
	var windows []Window
	var errs []*ParseError
	for _, span := range spans {
		decoded, err := d.Decode(span)
		if err != nil {
			errs = append(errs, err.(*ParseError))
			continue
		}
		windows = append(windows, decoded...)
	}
	return windows, errs
}
