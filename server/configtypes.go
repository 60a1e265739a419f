package server

type TLSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

type RedisConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix"`
}

type StoreConfig struct {
	Type  StoreType   `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

type PrometheusConfig struct {
	AccessToken string `yaml:"access_token"`
}

type Config struct {
	BaseURL  string `yaml:"base_url"`
	BindHost string `yaml:"bind_host"`
	BindPort int    `yaml:"bind_port"`

	TLS   TLSConfig   `yaml:"tls"`
	Store StoreConfig `yaml:"store"`

	// PingIntervalSeconds is the interval between server pings on each
	// websocket connection.
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`

	Prometheus PrometheusConfig `yaml:"prometheus"`
}
