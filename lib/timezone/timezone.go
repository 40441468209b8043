package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kathmandu")
	if err != nil {
		panic(err)
	}
}

// force timezone to be in Kathmandu because the exchange publishes
// trading dates in local time and our servers may end up elsewhere,
// which would shift dates when manipulating <time.Time>.Year()/Month()/Day()
func Now() time.Time {
	return time.Now().In(Location)
}

// Today returns midnight of the current trading day in exchange time.
func Today() time.Time {
	now := Now()
	return Date(now.Year(), now.Month(), now.Day())
}

// Date returns midnight of the given trading day in exchange time.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Location)
}
