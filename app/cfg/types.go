package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DataDir    string
	ConfigFile string
	DBPath     string

	// Application configuration
	Port                 string
	APIAccessKey         string
	AutoStart            bool
	DefaultCheckInterval int

	// Outbound HTTP
	UserAgent   string
	HTTPTimeout time.Duration
	SendDelay   time.Duration

	// Application metadata
	Timezone  string
	Debug     bool
	LogFile   string
	LogFormat string
	Version   string
}
