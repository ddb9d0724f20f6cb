package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readability
var (
	LogLevel      string // sets the log level (zap log level values)
	LogFormat     string // text vs json
	LogFilter     string // zapfilter rules, e.g. "*:info arbiter:debug"
	NatsURL       string // URL of the NATS server (empty = no NATS adapters)
	ReferenceDir  string // directory containing track/car reference packs
	Track         string // track key of the session
	Car           string // car key of the session
	CoachingFile  string // path to coaching config file (thresholds, cooldowns)
	TelemetryFile string // JSON-lines telemetry file for replay mode
	SessionDB     string // path to sqlite session store (empty = no persistence)
	PollInterval  string // cadence at which the arbiter is polled
	WatchRefs     bool   // reload reference packs on file changes
)
