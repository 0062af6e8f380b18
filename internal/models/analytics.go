package models

// ReportPeriod is the date range a report covers (YYYY-MM-DD)
type ReportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ResponseMetrics holds response latency figures
type ResponseMetrics struct {
	AvgResponseTime float64 `json:"avg_response_time"` // Hours, 0 when nothing was resolved
}

// CategoryProgress counts resolved versus open records for one category
type CategoryProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"` // resolved
	Pending   int `json:"pending"`   // pending or in-progress
}

// WeeklyReport represents the rolling 7-day analytics view
type WeeklyReport struct {
	Period          ReportPeriod                  `json:"period"`
	TotalEmails     int                           `json:"total_emails"`
	Categories      map[Category]int              `json:"categories"`
	Sentiments      map[Sentiment]int             `json:"sentiments"`
	Priorities      map[int]int                   `json:"priorities"`
	Languages       map[string]int                `json:"languages"`
	ResponseMetrics ResponseMetrics               `json:"response_metrics"`
	ByCategory      map[Category]CategoryProgress `json:"by_category"`
}

// DailyCount is the number of emails received in one trailing 24h window
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ResponseStatistics represents the rolling 30-day statistics view
type ResponseStatistics struct {
	DailyCounts      []DailyCount         `json:"daily_counts"`
	Categories       map[Category]int     `json:"categories"`
	Priorities       map[int]int          `json:"priorities"`
	AvgResponseTimes map[Category]float64 `json:"avg_response_times"` // Hours per category
	TotalResponses   int                  `json:"total_responses"`    // Resolved in the last 7 days
}

// AnalyticsResponse represents the API response for analytics
type AnalyticsResponse struct {
	Success    bool                `json:"success"`
	Report     *WeeklyReport       `json:"report,omitempty"`
	Statistics *ResponseStatistics `json:"statistics,omitempty"`
	Error      string              `json:"error,omitempty"`
}
