package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "RDATA"

func NewCompositor() *Compositor {
	return &Compositor{}
}

// LoadEnv reads RDATA_* variables. A .env file in the working directory,
// if present, is applied first without overriding the real environment.
func (c *Compositor) LoadEnv() error {
	return c.loadEnv(".env")
}

func (c *Compositor) loadEnv(dotenv string) error {
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", dotenv, err)
	}

	v := viper.New()

	// defaults
	v.SetDefault("config_path", "./config.yaml")
	v.SetDefault("node_path", "./")

	// RDATA_*
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return fmt.Errorf("error unmarshaling env: %w", err)
	}

	c.Env = &env
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node.name", "noname")
	v.SetDefault("node.mode", "dev")
	v.SetDefault("node.show_config", false)

	v.SetDefault("http_server.address", "0.0.0.0")
	v.SetDefault("http_server.port", "8080")
	v.SetDefault("http_server.ws_path", "/ws")
	v.SetDefault("http_server.session_ttl", "30m")
	v.SetDefault("http_server.read_timeout", "5s")
	v.SetDefault("http_server.idle_timeout", "60s")
	v.SetDefault("http_server.write_timeout", "10s")
	v.SetDefault("http_server.ping_interval", "30s")
	v.SetDefault("http_server.max_connections", 100)
	v.SetDefault("http_server.max_message_size", 1<<20)
	v.SetDefault("http_server.allowed_origins", []string{"*"})

	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.cert_file", "./cert/server.crt")
	v.SetDefault("tls.key_file", "./cert/server.key")

	v.SetDefault("rpc.com_dir", "./com/")
	v.SetDefault("rpc.handler_timeout", "0s")
	v.SetDefault("rpc.auth_method", "authenticate")

	v.SetDefault("auth.allow_anonymous", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.api_keys", map[string]string{})
	v.SetDefault("auth.oidc.issuer", "")
	v.SetDefault("auth.oidc.client_id", "")

	v.SetDefault("storage.sqlite_path", "./db/node.db")

	v.SetDefault("discovery.enabled", false)
	v.SetDefault("discovery.endpoints", []string{"127.0.0.1:2379"})
	v.SetDefault("discovery.prefix", "/rdata/nodes")
	v.SetDefault("discovery.ttl", "10s")
	v.SetDefault("discovery.dial_timeout", "5s")
	v.SetDefault("discovery.advertise_url", "")

	v.SetDefault("log.json_format", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "%2%")
	v.SetDefault("disable_warnings", []string{})
}

func (c *Compositor) LoadConf(path string) error {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}

	var cfg Conf
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	c.Conf = &cfg
	return nil
}

// LoadCMDLine binds every CMDLine section to the command of the same name.
func (c *Compositor) LoadCMDLine(root *cobra.Command) error {
	cmdLine := &CMDLine{}
	c.CMDLine = cmdLine

	t := reflect.TypeOf(cmdLine).Elem()
	v := reflect.ValueOf(cmdLine).Elem()

	for i := 0; i < t.NumField(); i++ {
		use := strings.ToLower(t.Field(i).Name)

		var cmd *cobra.Command
		if use == root.Use {
			cmd = root
		}
		for _, sub := range root.Commands() {
			if sub.Name() == use {
				cmd = sub
				break
			}
		}
		if cmd == nil {
			continue
		}

		if err := Unmarshal(cmd, v.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("flags for %q: %w", use, err)
		}
	}
	return nil
}

// Unmarshal registers a flag for every field of target using the
// persistent, full, short, def and desc struct tags.
func Unmarshal(cmd *cobra.Command, target any) error {
	t := reflect.TypeOf(target).Elem()
	v := reflect.ValueOf(target).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		valPtr := v.Field(i).Addr().Interface()

		full := field.Tag.Get("full")
		short := field.Tag.Get("short")
		def := field.Tag.Get("def")
		desc := field.Tag.Get("desc")

		flagSet := cmd.Flags()
		if field.Tag.Get("persistent") == "true" {
			flagSet = cmd.PersistentFlags()
		}

		switch {
		case field.Type == reflect.TypeOf(time.Duration(0)):
			var defVal time.Duration
			if def != "" {
				d, err := time.ParseDuration(def)
				if err != nil {
					return fmt.Errorf("default of %s: %w", full, err)
				}
				defVal = d
			}
			flagSet.DurationVarP(valPtr.(*time.Duration), full, short, defVal, desc)

		case field.Type.Kind() == reflect.String:
			flagSet.StringVarP(valPtr.(*string), full, short, def, desc)

		case field.Type.Kind() == reflect.Bool:
			defVal, err := strconv.ParseBool(def)
			if err != nil && def != "" {
				return fmt.Errorf("default of %s: %w", full, err)
			}
			flagSet.BoolVarP(valPtr.(*bool), full, short, defVal, desc)

		case field.Type.Kind() == reflect.Int:
			defVal, err := strconv.Atoi(def)
			if err != nil && def != "" {
				return fmt.Errorf("default of %s: %w", full, err)
			}
			flagSet.IntVarP(valPtr.(*int), full, short, defVal, desc)

		case field.Type.Kind() == reflect.Slice && field.Type.Elem().Kind() == reflect.String:
			defVals := []string{}
			if def != "" {
				defVals = strings.Split(def, ",")
			}
			flagSet.StringSliceVarP(valPtr.(*[]string), full, short, defVals, desc)

		default:
			return fmt.Errorf("unsupported field type %s for flag %s", field.Type, full)
		}
	}
	return nil
}
