package common

// Matomo API methods used by the dashboard
const (
	MethodLiveCounters          = "Live.getCounters"
	MethodVisitInfoPerLocalTime = "VisitTime.getVisitInformationPerLocalTime"
	ParamIDSite                 = "idSite"
	ParamLastMinutes            = "lastMinutes"
	ParamPeriod                 = "period"
	ParamDate                   = "date"
	ActiveWindowInMinutes       = "30"
	HealthProbeWindowInMinutes  = "1"
	PeriodDay                   = "day"
	DateToday                   = "today"
)

// Cache keys, one per metric
const (
	KeyActive30    = "active_30"
	KeyHourlyToday = "hourly_today"
)
