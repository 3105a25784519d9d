package store

import (
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG  PGConfig
	CH  CHConfig
	RDS RedisConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// boot knobs
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	// Role tags the connection in system.query_log, e.g. "api" or "resumer"
	Role string
}

// RedisConfig configures redis connectivity
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// FromConfig reads backend settings from env using the service prefixes
// SERVICE_PGSQL_*, SERVICE_CLICKHOUSE_* and SERVICE_REDIS_*; a backend is enabled when its url is set
func FromConfig(root config.Conf, role string) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CLICKHOUSE_")
	rd := root.Prefix("SERVICE_REDIS_")

	pgURL := pg.MaySecret("DBURL", "")
	chURL := ch.MaySecret("DBURL", "")
	rdAddr := rd.MayString("ADDR", "")

	return Config{
		AppName: "celoid-" + role,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 8)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled: chURL != "",
			URL:     chURL,
			Role:    role,
		},
		RDS: RedisConfig{
			Enabled:  rdAddr != "",
			Addr:     rdAddr,
			Password: rd.MaySecret("PASSWORD", ""),
			DB:       rd.MayInt("DB", 0),
		},
	}
}
