package screentime

import "sort"

// AppUsage is total minutes for one app.
type AppUsage struct {
	AppName string `json:"appName"`
	Minutes int64  `json:"minutes"`
}

// DailySummary aggregates one child's usage for a single day.
type DailySummary struct {
	Date         string           `json:"date"`
	TotalMinutes int64            `json:"totalMinutes"`
	ByCategory   map[string]int64 `json:"byCategory"`
	ByHour       []int64          `json:"byHour"` // 24 buckets
	TopApps      []AppUsage       `json:"topApps"`
}

// DayTotal is total minutes for one calendar day.
type DayTotal struct {
	Date    string `json:"date"`
	Minutes int64  `json:"minutes"`
}

// WeeklySummary aggregates one child's usage over a 7-day window.
type WeeklySummary struct {
	StartDate    string           `json:"startDate"`
	EndDate      string           `json:"endDate"`
	TotalMinutes int64            `json:"totalMinutes"`
	AverageDaily float64          `json:"averageDaily"`
	ByDay        []DayTotal       `json:"byDay"`
	ByCategory   map[string]int64 `json:"byCategory"`
}

const topAppCount = 5

// SummarizeDay builds a daily summary from one day's logs.
func SummarizeDay(date string, logs []*Log) *DailySummary {
	s := &DailySummary{
		Date:       date,
		ByCategory: make(map[string]int64),
		ByHour:     make([]int64, 24),
	}

	apps := make(map[string]int64)
	for _, l := range logs {
		s.TotalMinutes += l.DurationMinutes
		s.ByCategory[l.Category] += l.DurationMinutes
		if l.Hour >= 0 && l.Hour < 24 {
			s.ByHour[l.Hour] += l.DurationMinutes
		}
		apps[l.AppName] += l.DurationMinutes
	}

	for name, mins := range apps {
		s.TopApps = append(s.TopApps, AppUsage{AppName: name, Minutes: mins})
	}
	sort.Slice(s.TopApps, func(i, j int) bool {
		if s.TopApps[i].Minutes != s.TopApps[j].Minutes {
			return s.TopApps[i].Minutes > s.TopApps[j].Minutes
		}
		return s.TopApps[i].AppName < s.TopApps[j].AppName
	})
	if len(s.TopApps) > topAppCount {
		s.TopApps = s.TopApps[:topAppCount]
	}
	if s.TopApps == nil {
		s.TopApps = []AppUsage{}
	}
	return s
}

// SummarizeWeek builds a weekly summary from logs within the window.
// dates must list the 7 calendar days oldest-first; logs outside the
// window are ignored.
func SummarizeWeek(dates []string, logs []*Log) *WeeklySummary {
	s := &WeeklySummary{
		ByCategory: make(map[string]int64),
	}
	if len(dates) > 0 {
		s.StartDate = dates[0]
		s.EndDate = dates[len(dates)-1]
	}

	byDay := make(map[string]int64)
	for _, l := range logs {
		byDay[l.Date] += l.DurationMinutes
		s.ByCategory[l.Category] += l.DurationMinutes
		s.TotalMinutes += l.DurationMinutes
	}

	for _, d := range dates {
		s.ByDay = append(s.ByDay, DayTotal{Date: d, Minutes: byDay[d]})
	}
	if len(dates) > 0 {
		s.AverageDaily = float64(s.TotalMinutes) / float64(len(dates))
	}
	return s
}

// WindowDates returns the n calendar days ending on endDate, oldest
// first, in "2006-01-02" form.
func WindowDates(endDate string, n int) []string {
	end, err := parseDate(endDate)
	if err != nil {
		return nil
	}
	dates := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		dates = append(dates, end.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	return dates
}
