package registry

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/akyaiy/rdata-node/internal/server/session"
)

func okHandler(context.Context, *session.Client, any) (any, error) { return true, nil }

func TestFunc_Register(t *testing.T) {
	b := NewBuilder("bulkRequest", "authenticate")
	if err := b.RegisterFunc("test", okHandler); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name    string
		method  string
		handler Handler
		want    error
	}{
		{"empty", "", HandlerFunc(okHandler), ErrEmptyName},
		{"reserved bulk", "bulkRequest", HandlerFunc(okHandler), ErrReservedName},
		{"reserved auth", "authenticate", HandlerFunc(okHandler), ErrReservedName},
		{"duplicate", "test", HandlerFunc(okHandler), ErrDuplicateName},
		{"nil handler", "other", nil, ErrNilHandler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.Register(tt.method, tt.handler); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFunc_Lookup(t *testing.T) {
	b := NewBuilder()
	b.RegisterFunc("kv.get", okHandler)
	b.Register("kv.set", CallbackFunc(func(_ context.Context, _ *session.Client, _ any, reply Reply) {
		reply(true, nil)
	}))
	r := b.Build()

	if _, ok := r.Lookup("kv.get"); !ok {
		t.Error("kv.get not found")
	}
	if _, ok := r.Lookup("KV.GET"); ok {
		t.Error("lookup must be case-sensitive")
	}
	if _, ok := r.Lookup("kv"); ok {
		t.Error("lookup must be exact")
	}
	if got, want := r.Names(), []string{"kv.get", "kv.set"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}

	// the built registry is detached from the builder
	b.RegisterFunc("late", okHandler)
	if _, ok := r.Lookup("late"); ok || r.Len() != 2 {
		t.Error("registry changed after Build")
	}
}

func TestFunc_HandlerAdapters(t *testing.T) {
	var got []any
	reply := func(result any, err error) { got = append(got, result, err) }

	HandlerFunc(okHandler).ServeRPC(context.Background(), nil, nil, reply)
	if len(got) != 2 || got[0] != true || got[1] != nil {
		t.Errorf("HandlerFunc reply = %v", got)
	}
}
