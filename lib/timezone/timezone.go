package timezone

import (
	"time"
	_ "time/tzdata"
)

// Location is where the registrar publishes its registration times.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Chicago")
	if err != nil {
		panic(err)
	}
}

// force timezone to be in Austin because the host running the cli may
// be anywhere, and registration windows are published in local time
func Now() time.Time {
	return time.Now().In(Location)
}
