// Package conf is the repository's configuration surface: a YAML document
// (via github.com/goccy/go-yaml) loaded into a Conf tree, defaulted and
// validated via setDefaults()/validate() []error per section, with pool
// sizes auto-tuned against the host's CPU count where that makes sense.
package conf

import (
	"fmt"
	"os"
	"runtime"

	"github.com/goccy/go-yaml"
)

// Conf is the root configuration document.
type Conf struct {
	Log       Log       `yaml:"log"`
	Timer     Timer     `yaml:"timer"`
	MLDP      MLDP      `yaml:"mldp"`
	Socket    Socket    `yaml:"socket"`
	Resolve   Resolve   `yaml:"resolve"`
	Transport Transport `yaml:"transport"`
}

// Log configures the flog level ("debug", "info", "warn", "error", "none").
type Log struct {
	Level string `yaml:"level"`
}

// Timer configures the shared sweep timer wheel.
type Timer struct {
	// TaskFreqHz is the rate at which the timer task sweeps the active list.
	TaskFreqHz int `yaml:"task_freq_hz"`
	// TickRateHz is the underlying OS tick rate; must be >= TaskFreqHz.
	TickRateHz int `yaml:"tick_rate_hz"`
	// PoolSize is the fixed number of timer cells in the pool.
	PoolSize int `yaml:"pool_size"`
}

// MLDP configures the MLDPv1 host-group membership engine.
type MLDP struct {
	// PoolSize is the fixed number of host-group records.
	PoolSize int `yaml:"pool_size"`
	// UnsolicitedReportDlySec is the unsolicited-report delay armed on Join.
	UnsolicitedReportDlySec int `yaml:"unsolicited_report_dly_sec"`
	// ReportRetryDlySec is the rearm delay after a transient transmit error.
	ReportRetryDlySec int `yaml:"report_retry_dly_sec"`
	// MaxResponseDlyCapSec caps the random query-response delay window.
	MaxResponseDlyCapSec int `yaml:"max_response_dly_cap_sec"`
}

// Socket configures the App-layer retry wrapper defaults.
type Socket struct {
	RetryMax    int `yaml:"retry_max"`
	TimeoutMs   int `yaml:"timeout_ms"`
	DlyMs       int `yaml:"dly_ms"`
	RxThreshold int `yaml:"rx_threshold"`
}

// Resolve configures name resolution bounds: the addrinfo pool size and the
// DNS result cache's capacity and TTL.
type Resolve struct {
	AddrInfoMax    int `yaml:"addr_info_max"`
	DNSCacheSize   int `yaml:"dns_cache_size"`
	DNSCacheTTLSec int `yaml:"dns_cache_ttl_sec"`
}

// Transport configures the TCP transport-socket backing: connection-level
// tuning plus the smux session multiplexed over it.
type Transport struct {
	KeepAlive       bool `yaml:"keep_alive"`
	KeepAlivePeriod int  `yaml:"keep_alive_period"`
	NoDelay         bool `yaml:"no_delay"`
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`

	SMUX SMUX `yaml:"smux"`
}

// SMUX configures the smux session layered over each TCP connection.
type SMUX struct {
	Version           int `yaml:"version"`
	MaxFrameSize      int `yaml:"max_frame_size"`
	MaxReceiveBuffer  int `yaml:"max_receive_buffer"`
	MaxStreamBuffer   int `yaml:"max_stream_buffer"`
	KeepAliveInterval int `yaml:"keep_alive_interval"`
	KeepAliveTimeout  int `yaml:"keep_alive_timeout"`
}

// LoadFromFile reads, parses, defaults, and validates a YAML config file.
func LoadFromFile(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Conf
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.setDefaults()
	if errs := c.validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %v", errs)
	}
	return &c, nil
}

func (c *Conf) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	cpus := runtime.NumCPU()

	if c.Timer.TaskFreqHz == 0 {
		c.Timer.TaskFreqHz = 100
	}
	if c.Timer.TickRateHz == 0 {
		c.Timer.TickRateHz = 1000
	}
	if c.Timer.PoolSize == 0 {
		// Scale with CPU count: 32 timers per core, between 64 and 4096.
		c.Timer.PoolSize = clampInt(cpus*32, 64, 4096)
	}

	if c.MLDP.PoolSize == 0 {
		c.MLDP.PoolSize = clampInt(cpus*8, 16, 1024)
	}
	if c.MLDP.UnsolicitedReportDlySec == 0 {
		c.MLDP.UnsolicitedReportDlySec = 2
	}
	if c.MLDP.ReportRetryDlySec == 0 {
		c.MLDP.ReportRetryDlySec = 2
	}
	if c.MLDP.MaxResponseDlyCapSec == 0 {
		c.MLDP.MaxResponseDlyCapSec = 10
	}

	if c.Socket.RetryMax == 0 {
		c.Socket.RetryMax = 3
	}
	if c.Socket.TimeoutMs == 0 {
		c.Socket.TimeoutMs = 1000
	}
	if c.Socket.DlyMs == 0 {
		c.Socket.DlyMs = 500
	}
	if c.Socket.RxThreshold == 0 {
		c.Socket.RxThreshold = 1
	}

	if c.Resolve.AddrInfoMax == 0 {
		c.Resolve.AddrInfoMax = clampInt(cpus*64, 64, 2048)
	}
	if c.Resolve.DNSCacheSize == 0 {
		c.Resolve.DNSCacheSize = 256
	}
	if c.Resolve.DNSCacheTTLSec == 0 {
		c.Resolve.DNSCacheTTLSec = 300
	}

	if c.Transport.KeepAlivePeriod == 0 {
		c.Transport.KeepAlivePeriod = 30
	}
	if c.Transport.ReadBufferSize == 0 {
		c.Transport.ReadBufferSize = 4 * 1024 * 1024
	}
	if c.Transport.WriteBufferSize == 0 {
		c.Transport.WriteBufferSize = 4 * 1024 * 1024
	}
	if c.Transport.SMUX.Version == 0 {
		c.Transport.SMUX.Version = 1
	}
	if c.Transport.SMUX.MaxFrameSize == 0 {
		c.Transport.SMUX.MaxFrameSize = 32 * 1024
	}
	if c.Transport.SMUX.MaxReceiveBuffer == 0 {
		c.Transport.SMUX.MaxReceiveBuffer = 4 * 1024 * 1024
	}
	if c.Transport.SMUX.MaxStreamBuffer == 0 {
		c.Transport.SMUX.MaxStreamBuffer = 2 * 1024 * 1024
	}
	if c.Transport.SMUX.KeepAliveInterval == 0 {
		c.Transport.SMUX.KeepAliveInterval = 10
	}
	if c.Transport.SMUX.KeepAliveTimeout == 0 {
		c.Transport.SMUX.KeepAliveTimeout = 30
	}
}

func (c *Conf) validate() []error {
	var errs []error

	if c.Timer.TickRateHz < c.Timer.TaskFreqHz {
		errs = append(errs, fmt.Errorf("timer.tick_rate_hz (%d) must be >= timer.task_freq_hz (%d)", c.Timer.TickRateHz, c.Timer.TaskFreqHz))
	}
	if c.Timer.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("timer.pool_size must be >= 1"))
	}
	if c.MLDP.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("mldp.pool_size must be >= 1"))
	}
	if c.Socket.RetryMax < 0 {
		errs = append(errs, fmt.Errorf("socket.retry_max must be >= 0"))
	}
	if c.Resolve.AddrInfoMax < 1 {
		errs = append(errs, fmt.Errorf("resolve.addr_info_max must be >= 1"))
	}
	if c.Transport.SMUX.Version != 1 && c.Transport.SMUX.Version != 2 {
		errs = append(errs, fmt.Errorf("transport.smux.version must be 1 or 2"))
	}
	if c.Transport.ReadBufferSize < 1024 {
		errs = append(errs, fmt.Errorf("transport.read_buffer_size must be at least 1024 bytes"))
	}
	if c.Transport.WriteBufferSize < 1024 {
		errs = append(errs, fmt.Errorf("transport.write_buffer_size must be at least 1024 bytes"))
	}

	return errs
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
