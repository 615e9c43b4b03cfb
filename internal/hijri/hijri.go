// Package hijri converts Gregorian dates to the tabular Islamic calendar.
//
// The tabular (Kuwaiti) scheme uses a fixed 30 year cycle with 11 leap years.
// It can differ from Umm al-Qura by a day around month boundaries, which is
// acceptable for a printed reference date.
package hijri

import (
	"fmt"
	"time"
)

// Date is a Hijri calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

var monthNamesAR = [12]string{
	"محرم", "صفر", "ربيع الأول", "ربيع الآخر", "جمادى الأولى", "جمادى الآخرة",
	"رجب", "شعبان", "رمضان", "شوال", "ذو القعدة", "ذو الحجة",
}

// String renders the date as YYYY/MM/DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// MonthName returns the Arabic month name.
func (d Date) MonthName() string {
	if d.Month < 1 || d.Month > 12 {
		return ""
	}
	return monthNamesAR[d.Month-1]
}

// Long renders the date with the Arabic month name and the هـ suffix.
func (d Date) Long() string {
	return fmt.Sprintf("%d %s %d هـ", d.Day, d.MonthName(), d.Year)
}

// Tabular implements the converter used by the document renderer.
type Tabular struct{}

// ToHijri converts the calendar day of t (in t's location) to Hijri.
func (Tabular) ToHijri(t time.Time) Date {
	return FromGregorian(t.Year(), int(t.Month()), t.Day())
}

// Format implements the render.HijriConverter contract.
func (c Tabular) Format(t time.Time) string {
	return c.ToHijri(t).String()
}

// FromGregorian converts a proleptic Gregorian date.
func FromGregorian(year, month, day int) Date {
	jdn := julianDay(year, month, day)

	l := jdn - 1948440 + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29
	m := (24 * l) / 709
	d := l - (709*m)/24
	y := 30*n + j - 30

	return Date{Year: y, Month: m, Day: d}
}

func julianDay(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}
