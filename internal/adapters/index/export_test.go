package index

import "time"

// SetClock replaces the cache clock for testing staleness.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// ChooseFileForTest exports chooseFile for testing.
var ChooseFileForTest = chooseFile
