package store

import (
	"context"
	"testing"
)

func TestNilRedis(t *testing.T) {
	var r *Redis
	if r.Healthy(context.Background()) {
		t.Error("nil redis reported healthy")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil redis: %v", err)
	}
}

func TestRedisUnreachable(t *testing.T) {
	r := NewRedis("127.0.0.1:1")
	defer r.Close()
	if r.Healthy(context.Background()) {
		t.Error("redis on a closed port reported healthy")
	}
}
