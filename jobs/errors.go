package jobs

import "errors"

// ErrSyncInProgress is returned when a sync is requested while another one runs
var ErrSyncInProgress = errors.New("coordinate sync already in progress")
