package integration

import "time"

// Timing bounds the polling loops inside step actions.
type Timing struct {
	OAuthTimeout       time.Duration `json:"oauth_timeout"`
	OAuthPollInterval  time.Duration `json:"oauth_poll_interval"`
	ExportTimeout      time.Duration `json:"export_timeout"`
	ExportPollInterval time.Duration `json:"export_poll_interval"`
}

// ProductionTiming waits up to 5 minutes for OAuth (every 2s) and 10
// minutes for export jobs (every 3s).
func ProductionTiming() Timing {
	return Timing{
		OAuthTimeout:       5 * time.Minute,
		OAuthPollInterval:  2 * time.Second,
		ExportTimeout:      10 * time.Minute,
		ExportPollInterval: 3 * time.Second,
	}
}

// TestTiming keeps every loop well under a second.
func TestTiming() Timing {
	return Timing{
		OAuthTimeout:       500 * time.Millisecond,
		OAuthPollInterval:  5 * time.Millisecond,
		ExportTimeout:      500 * time.Millisecond,
		ExportPollInterval: 5 * time.Millisecond,
	}
}

// TimingProfile returns the named profile ("production" or "test").
func TimingProfile(name string) (Timing, bool) {
	switch name {
	case "production", "":
		return ProductionTiming(), true
	case "test":
		return TestTiming(), true
	default:
		return Timing{}, false
	}
}
