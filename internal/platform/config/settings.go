package config

import "time"

// Settings is the process configuration shared by the server and hlsctl.
type Settings struct {
	Port      string
	LogLevel  string
	LogFormat string

	DatabaseDSN    string
	DBAutoMigrate  bool
	QueryTimeout   time.Duration
	SegmentSlack   time.Duration
	CamerasFile    string
	GapTolerance   time.Duration
	TargetDuration int
	URLPrefix      string
	InitSegment    string
}

// FromEnv reads Settings from the environment, applying defaults.
func FromEnv() Settings {
	return Settings{
		Port:      GetEnv("PORT", "8080"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "json"),

		DatabaseDSN:    GetEnv("DATABASE_DSN", "recordings.db"),
		DBAutoMigrate:  GetEnvBool("DB_AUTO_MIGRATE", false),
		QueryTimeout:   GetEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		SegmentSlack:   GetEnvDuration("SEGMENT_SLACK", time.Minute),
		CamerasFile:    GetEnv("CAMERAS_FILE", "cameras.yaml"),
		GapTolerance:   GetEnvDuration("GAP_TOLERANCE", 0),
		TargetDuration: GetEnvInt("DEFAULT_TARGET_DURATION", 5),
		URLPrefix:      GetEnv("SEGMENT_URL_PREFIX", "/files"),
		InitSegment:    GetEnv("INIT_SEGMENT_NAME", ""),
	}
}
