// Package config loads node configuration from the environment, a YAML file
// and the command line. It is built on top of spf13/viper and spf13/cobra.
package config

import (
	"time"
)

type CompositorContract interface {
	LoadEnv() error
	LoadConf(path string) error
}

type Compositor struct {
	CMDLine *CMDLine
	Conf    *Conf
	Env     *Env
}

type Conf struct {
	Node            *Node       `mapstructure:"node"`
	HTTPServer      *HTTPServer `mapstructure:"http_server"`
	TLS             *TLS        `mapstructure:"tls"`
	RPC             *RPC        `mapstructure:"rpc"`
	Auth            *Auth       `mapstructure:"auth"`
	Storage         *Storage    `mapstructure:"storage"`
	Discovery       *Discovery  `mapstructure:"discovery"`
	Log             *Log        `mapstructure:"log"`
	DisableWarnings *[]string   `mapstructure:"disable_warnings"`
}

type Node struct {
	Mode       *string `mapstructure:"mode"`
	Name       *string `mapstructure:"name"`
	ShowConfig *bool   `mapstructure:"show_config"`
}

type HTTPServer struct {
	Address        *string        `mapstructure:"address"`
	Port           *string        `mapstructure:"port"`
	WSPath         *string        `mapstructure:"ws_path"`
	SessionTTL     *time.Duration `mapstructure:"session_ttl"`
	ReadTimeout    *time.Duration `mapstructure:"read_timeout"`
	IdleTimeout    *time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout   *time.Duration `mapstructure:"write_timeout"`
	PingInterval   *time.Duration `mapstructure:"ping_interval"`
	MaxConnections *int           `mapstructure:"max_connections"`
	MaxMessageSize *int64         `mapstructure:"max_message_size"`
	AllowedOrigins *[]string      `mapstructure:"allowed_origins"`
}

type TLS struct {
	TlsEnabled *bool   `mapstructure:"enabled"`
	CertFile   *string `mapstructure:"cert_file"`
	KeyFile    *string `mapstructure:"key_file"`
}

type RPC struct {
	ComDir *string `mapstructure:"com_dir"`
	// HandlerTimeout of zero lets handlers run without a deadline.
	HandlerTimeout *time.Duration `mapstructure:"handler_timeout"`
	AuthMethod     *string        `mapstructure:"auth_method"`
}

type Auth struct {
	AllowAnonymous *bool   `mapstructure:"allow_anonymous"`
	JWTSecret      *string `mapstructure:"jwt_secret"`
	JWTIssuer      *string `mapstructure:"jwt_issuer"`
	// APIKeys maps a key id to the bcrypt hash of its secret.
	APIKeys *map[string]string `mapstructure:"api_keys"`
	OIDC    *OIDC              `mapstructure:"oidc"`
}

type OIDC struct {
	Issuer   *string `mapstructure:"issuer"`
	ClientID *string `mapstructure:"client_id"`
}

type Storage struct {
	SQLitePath *string `mapstructure:"sqlite_path"`
}

type Discovery struct {
	Enabled     *bool          `mapstructure:"enabled"`
	Endpoints   *[]string      `mapstructure:"endpoints"`
	Prefix      *string        `mapstructure:"prefix"`
	TTL         *time.Duration `mapstructure:"ttl"`
	DialTimeout *time.Duration `mapstructure:"dial_timeout"`
	// AdvertiseURL overrides the ws URL published for this node.
	AdvertiseURL *string `mapstructure:"advertise_url"`
}

type Log struct {
	JSON    *bool   `mapstructure:"json_format"`
	Level   *string `mapstructure:"level"`
	OutPath *string `mapstructure:"output"`
}

// Env holds RDATA_* environment variables.
type Env struct {
	ConfigPath *string `mapstructure:"config_path"`
	NodePath   *string `mapstructure:"node_path"`
}

type CMDLine struct {
	Run  Run
	Node Root
}

type Root struct {
	Debug bool `persistent:"true" full:"debug" short:"d" def:"false" desc:"Set debug mode"`
}

type Run struct {
	ConfigPath string `persistent:"true" full:"config" short:"c" def:"" desc:"Path to configuration file (overrides RDATA_CONFIG_PATH)"`
}
