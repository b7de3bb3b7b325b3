package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO date format used for schedule keys.
const DateLayout = "2006-01-02"

// UnsetLocationName is shown for days that have no location yet.
const UnsetLocationName = "未設定"

// Category classifies a schedule item.
type Category string

const (
	CategoryTransport     Category = "Transport"
	CategoryFood          Category = "Food"
	CategoryAttraction    Category = "Attraction"
	CategoryAccommodation Category = "Accommodation"
	CategoryActivity      Category = "Activity"
	CategoryShopping      Category = "Shopping"
)

// Valid reports whether c is empty or one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case "", CategoryTransport, CategoryFood, CategoryAttraction,
		CategoryAccommodation, CategoryActivity, CategoryShopping:
		return true
	}
	return false
}

// ScheduleItem is one entry of a day's plan.
type ScheduleItem struct {
	ID       string   `json:"id" firestore:"id"`
	Time     string   `json:"time" firestore:"time"` // "HH:MM"
	Title    string   `json:"title" firestore:"title"`
	Location string   `json:"location,omitempty" firestore:"location,omitempty"`
	Category Category `json:"category,omitempty" firestore:"category,omitempty"`
	Note     string   `json:"note,omitempty" firestore:"note,omitempty"`
}

// WeatherInfo is one forecast slot for a day.
type WeatherInfo struct {
	Time      string  `json:"time" firestore:"time"`
	Temp      float64 `json:"temp" firestore:"temp"`
	FeelsLike float64 `json:"feelsLike" firestore:"feelsLike"`
	Condition string  `json:"condition" firestore:"condition"`
	Icon      string  `json:"icon,omitempty" firestore:"icon,omitempty"`
}

// DayMetadata describes where the group is on a given day.
type DayMetadata struct {
	LocationName string        `json:"locationName" firestore:"locationName"`
	Forecast     []WeatherInfo `json:"forecast" firestore:"forecast"`
	IsLive       bool          `json:"isLive" firestore:"isLive"`
}

// DayData is the value stored under one date key of the schedule field.
type DayData struct {
	Items    []ScheduleItem `json:"items" firestore:"items"`
	Metadata DayMetadata    `json:"metadata" firestore:"metadata"`
}

// Schedule maps ISO dates to their day data.
type Schedule map[string]DayData

// DefaultDay is the day shown for a date that has nothing stored yet.
func DefaultDay() DayData {
	return DayData{
		Items: []ScheduleItem{},
		Metadata: DayMetadata{
			LocationName: UnsetLocationName,
			Forecast:     []WeatherInfo{},
			IsLive:       false,
		},
	}
}

// Dates returns the schedule's dates in lexicographic (and therefore chronological) order.
func (s Schedule) Dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Day returns the stored day for date, or DefaultDay when there is none.
func (s Schedule) Day(date string) DayData {
	if day, ok := s[date]; ok {
		return day
	}
	return DefaultDay()
}

// Clone deep-copies the schedule so callers can mutate it and write it back whole.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for date, day := range s {
		items := make([]ScheduleItem, len(day.Items))
		copy(items, day.Items)
		forecast := make([]WeatherInfo, len(day.Metadata.Forecast))
		copy(forecast, day.Metadata.Forecast)
		day.Items = items
		day.Metadata.Forecast = forecast
		out[date] = day
	}
	return out
}

// ShiftTime moves an "HH:MM" time by minutes on a 24 hour clock.
// An empty time is treated as unset and becomes "12:00" without shifting.
func ShiftTime(hhmm string, minutes int) string {
	if hhmm == "" {
		return "12:00"
	}
	parts := strings.SplitN(hhmm, ":", 2)
	hours, _ := strconv.Atoi(parts[0])
	mins := 0
	if len(parts) == 2 {
		mins, _ = strconv.Atoi(parts[1])
	}
	total := ((hours*60+mins+minutes)%(24*60) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// CountdownState tells whether the trip has dates and whether it has started.
type CountdownState string

const (
	CountdownUnscheduled CountdownState = "unscheduled"
	CountdownUpcoming    CountdownState = "upcoming"
	CountdownInProgress  CountdownState = "in_progress"
)

// Countdown is the "days until departure" banner.
type Countdown struct {
	State   CountdownState `json:"state"`
	Days    int            `json:"days"`
	Message string         `json:"message"`
}

// CountdownFrom computes the banner for the schedule's first date relative to now.
// Dates are midnight UTC, matching how the browser client parses ISO dates.
func (s Schedule) CountdownFrom(now time.Time) Countdown {
	dates := s.Dates()
	if len(dates) == 0 {
		return Countdown{State: CountdownUnscheduled, Message: "尚未設定行程日期"}
	}
	start, err := time.Parse(DateLayout, dates[0])
	if err != nil {
		return Countdown{State: CountdownUnscheduled, Message: "尚未設定行程日期"}
	}
	diff := start.Sub(now)
	if diff < 0 {
		return Countdown{State: CountdownInProgress, Message: "旅程進行中"}
	}
	days := int(diff / (24 * time.Hour))
	return Countdown{
		State:   CountdownUpcoming,
		Days:    days,
		Message: fmt.Sprintf("距離出發還有 %d 天", days),
	}
}
