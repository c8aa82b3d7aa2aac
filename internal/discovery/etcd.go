// Package discovery publishes the node in etcd so that clients can find
// its WebSocket endpoint.
//
// Each node owns one key, <prefix>/<node uuid>, holding a JSON Instance.
// The key is attached to a lease, so a node that dies without revoking it
// disappears after the lease TTL.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var ErrNoEndpoints = errors.New("discovery: no etcd endpoints configured")

type Instance struct {
	NodeID    string `json:"node_id"`
	URL       string `json:"url"`
	Version   string `json:"version"`
	StartedAt int64  `json:"started_at"`
}

type Options struct {
	Endpoints   []string
	Prefix      string
	TTL         time.Duration
	DialTimeout time.Duration
	Log         *slog.Logger
}

type Registrar struct {
	client *clientv3.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger

	mu      sync.Mutex
	leaseID clientv3.LeaseID
	key     string
}

func New(o Options) (*Registrar, error) {
	if len(o.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.TTL < time.Second {
		o.TTL = 10 * time.Second
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   o.Endpoints,
		DialTimeout: o.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: connect etcd: %w", err)
	}
	return &Registrar{client: c, prefix: o.Prefix, ttl: o.TTL, log: o.Log}, nil
}

// Key returns the etcd key of a node.
func Key(prefix, nodeID string) string {
	return strings.TrimRight(prefix, "/") + "/" + nodeID
}

// Register puts inst under a fresh lease and keeps the lease alive until
// ctx is done or Deregister is called.
func (r *Registrar) Register(ctx context.Context, inst Instance) error {
	lease, err := r.client.Grant(ctx, int64(r.ttl/time.Second))
	if err != nil {
		return fmt.Errorf("discovery: grant lease: %w", err)
	}

	val, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	key := Key(r.prefix, inst.NodeID)
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("discovery: put %s: %w", key, err)
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("discovery: keepalive: %w", err)
	}

	r.mu.Lock()
	r.leaseID = lease.ID
	r.key = key
	r.mu.Unlock()

	go func() {
		for range ch {
		}
		// channel closes on ctx cancel, revoke or lost lease
		if ctx.Err() == nil {
			r.log.Warn("discovery lease keepalive stopped", slog.String("key", key))
		}
	}()

	r.log.Info("node registered in discovery", slog.String("key", key), slog.String("url", inst.URL))
	return nil
}

// Deregister revokes the lease, which removes the key.
func (r *Registrar) Deregister(ctx context.Context) error {
	r.mu.Lock()
	id := r.leaseID
	r.leaseID = 0
	r.mu.Unlock()
	if id == 0 {
		return nil
	}
	if _, err := r.client.Revoke(ctx, id); err != nil {
		return fmt.Errorf("discovery: revoke lease: %w", err)
	}
	return nil
}

// Nodes lists the instances currently published under the prefix.
func (r *Registrar) Nodes(ctx context.Context) ([]Instance, error) {
	resp, err := r.client.Get(ctx, strings.TrimRight(r.prefix, "/")+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func (r *Registrar) Close() error {
	return r.client.Close()
}

// AdvertiseURL builds the ws URL other parties should dial. Wildcard
// listen addresses are replaced with the host name.
func AdvertiseURL(override, address, port, wsPath string, tls bool, hostname string) string {
	if override != "" {
		return override
	}
	host := address
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = hostname
	}
	scheme := "ws"
	if tls {
		scheme = "wss"
	}
	if !strings.HasPrefix(wsPath, "/") {
		wsPath = "/" + wsPath
	}
	u := url.URL{Scheme: scheme, Host: net.JoinHostPort(host, port), Path: wsPath}
	return u.String()
}
