package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFunc_LoadConf(t *testing.T) {
	path := writeFile(t, "config.yaml", `
node:
  name: edge-1
http_server:
  port: "9090"
  session_ttl: 5m
rpc:
  handler_timeout: 2s
auth:
  jwt_secret: s3cret
  api_keys:
    ci: "$2a$10$abcdefghijklmnopqrstuv"
discovery:
  endpoints: ["etcd-a:2379", "etcd-b:2379"]
`)

	c := NewCompositor()
	if err := c.LoadConf(path); err != nil {
		t.Fatalf("LoadConf: %v", err)
	}
	cfg := c.Conf

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"node.name", *cfg.Node.Name, "edge-1"},
		{"node.mode default", *cfg.Node.Mode, "dev"},
		{"http_server.port", *cfg.HTTPServer.Port, "9090"},
		{"http_server.ws_path default", *cfg.HTTPServer.WSPath, "/ws"},
		{"http_server.session_ttl", *cfg.HTTPServer.SessionTTL, 5 * time.Minute},
		{"http_server.max_connections default", *cfg.HTTPServer.MaxConnections, 100},
		{"rpc.handler_timeout", *cfg.RPC.HandlerTimeout, 2 * time.Second},
		{"rpc.auth_method default", *cfg.RPC.AuthMethod, "authenticate"},
		{"auth.jwt_secret", *cfg.Auth.JWTSecret, "s3cret"},
		{"auth.api_keys", len(*cfg.Auth.APIKeys), 1},
		{"discovery.endpoints", len(*cfg.Discovery.Endpoints), 2},
		{"discovery.ttl default", *cfg.Discovery.TTL, 10 * time.Second},
		{"log.output default", *cfg.Log.OutPath, "%2%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v; want %v", tt.got, tt.want)
			}
		})
	}
}

func TestFunc_LoadConfMissingFile(t *testing.T) {
	c := NewCompositor()
	if err := c.LoadConf(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestFunc_LoadEnv(t *testing.T) {
	dotenv := writeFile(t, ".env", "RDATA_NODE_PATH=/srv/from-dotenv\nRDATA_CONFIG_PATH=/etc/from-dotenv.yaml\n")
	t.Setenv("RDATA_CONFIG_PATH", "/etc/rdata/config.yaml")
	t.Setenv("RDATA_NODE_PATH", "")
	os.Unsetenv("RDATA_NODE_PATH")

	c := NewCompositor()
	if err := c.loadEnv(dotenv); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if *c.Env.ConfigPath != "/etc/rdata/config.yaml" {
		t.Errorf("real environment must win over .env, got %s", *c.Env.ConfigPath)
	}
	if *c.Env.NodePath != "/srv/from-dotenv" {
		t.Errorf("node_path = %s; want value from .env", *c.Env.NodePath)
	}

	if err := NewCompositor().loadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env must be ignored: %v", err)
	}
}

func TestFunc_LoadCMDLine(t *testing.T) {
	root := &cobra.Command{Use: "node"}
	root.AddCommand(&cobra.Command{Use: "run", Run: func(*cobra.Command, []string) {}})

	c := NewCompositor()
	if err := c.LoadCMDLine(root); err != nil {
		t.Fatalf("LoadCMDLine: %v", err)
	}

	root.SetArgs([]string{"run", "-c", "/tmp/node.yaml", "--debug"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if c.CMDLine.Run.ConfigPath != "/tmp/node.yaml" {
		t.Errorf("config flag = %q", c.CMDLine.Run.ConfigPath)
	}
	if !c.CMDLine.Node.Debug {
		t.Error("debug flag not set")
	}
}

func TestFunc_UnmarshalUnsupported(t *testing.T) {
	var target struct {
		Ratio float64 `full:"ratio"`
	}
	if err := Unmarshal(&cobra.Command{Use: "x"}, &target); err == nil {
		t.Error("expected an error for an unsupported flag type")
	}
}

func TestFunc_PrintMasksSecrets(t *testing.T) {
	path := writeFile(t, "config.yaml", "auth:\n  jwt_secret: topsecret\n  api_keys:\n    ci: hash-value\n")
	c := NewCompositor()
	if err := c.LoadConf(path); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	c.Print(&buf, c.Conf)
	out := buf.String()

	if strings.Contains(out, "topsecret") || strings.Contains(out, "hash-value") {
		t.Errorf("secret leaked:\n%s", out)
	}
	for _, want := range []string{"jwt_secret: ********", "api_keys: [ci]", "ws_path: \"/ws\"", "session_ttl: 30m0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}
