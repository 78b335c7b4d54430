package filestore_test

import "time"

func testTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
