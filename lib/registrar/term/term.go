package term

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Semester string

const (
	Spring Semester = "Spring"
	Summer Semester = "Summer"
	Fall   Semester = "Fall"
)

var semesterDigits = map[Semester]int{
	Spring: 2,
	Summer: 6,
	Fall:   9,
}

// firstMonth is the calendar month each semester starts in.
var firstMonth = map[Semester]time.Month{
	Spring: time.January,
	Summer: time.June,
	Fall:   time.August,
}

// ParseSemester accepts a semester name in any case.
func ParseSemester(text string) (Semester, error) {
	normalized := strings.ToLower(strings.Trim(text, " \t\n"))
	for s := range semesterDigits {
		if strings.ToLower(string(s)) == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown semester %q, expected Spring, Summer or Fall", text)
}

// Term is a single registration term, e.g. Fall 2023.
type Term struct {
	Year     int
	Semester Semester
}

func New(year int, semester Semester) (Term, error) {
	if _, ok := semesterDigits[semester]; !ok {
		return Term{}, fmt.Errorf("unknown semester %q", semester)
	}
	if year < 1000 || year > 9999 {
		return Term{}, fmt.Errorf("year %d is not a four digit year", year)
	}
	return Term{Year: year, Semester: semester}, nil
}

// Code is the five character ccyys term code, year followed by the semester digit.
func (t Term) Code() string {
	return strconv.Itoa(t.Year) + strconv.Itoa(semesterDigits[t.Semester])
}

// ParseCode is the inverse of Term.Code.
func ParseCode(code string) (Term, error) {
	if len(code) != 5 {
		return Term{}, fmt.Errorf("term code %q must be 5 characters", code)
	}
	year, err := strconv.Atoi(code[:4])
	if err != nil {
		return Term{}, fmt.Errorf("term code %q: %w", code, err)
	}
	for s, digit := range semesterDigits {
		if strconv.Itoa(digit) == code[4:] {
			return New(year, s)
		}
	}
	return Term{}, fmt.Errorf("term code %q has unknown semester digit", code)
}

// Start is the first day of the term's first month.
func (t Term) Start(loc *time.Location) time.Time {
	return time.Date(t.Year, firstMonth[t.Semester], 1, 0, 0, 0, 0, loc)
}

func (t Term) String() string {
	return fmt.Sprintf("%s %d", t.Semester, t.Year)
}
