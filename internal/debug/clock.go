package debug

import "time"

// now is indirected so tests can pin timestamps.
var now = time.Now
