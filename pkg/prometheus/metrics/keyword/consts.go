package keyword

var (
	Pins             = "shm_pins_total"              // num of pin commands
	Unpins           = "shm_unpins_total"            // num of unpin commands
	PinStatusChecks  = "shm_pin_status_total"        // num of pin-status commands
	Errored          = "shm_errors_total"            // num of rejected commands
	PurgePasses      = "shm_purge_passes_total"      // num of purge-all walks
	PurgedBytes      = "shm_purged_bytes_total"      // content bytes evicted
	ReclaimableBytes = "shm_reclaimable_bytes"       // gauge: queue byte sum
	ReclaimQueueLen  = "shm_reclaim_queue_length"    // gauge: queued intervals
	Regions          = "shm_regions"                 // gauge: open regions
)
