// health_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/aerogrid/svc-gis/internal/logging"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestIsReadyTrueWhenBothPingersSucceed(t *testing.T) {
	c := New(fakePinger{}, fakePinger{}, logging.New("error", t.TempDir()))
	if !c.IsReady(context.Background()) {
		t.Fatal("expected ready")
	}
}

func TestIsReadyFalseWhenStoreUnreachable(t *testing.T) {
	c := New(fakePinger{err: errors.New("store down")}, fakePinger{}, logging.New("error", t.TempDir()))
	if c.IsReady(context.Background()) {
		t.Fatal("expected not ready")
	}
}

func TestIsReadyFalseWhenQueueUnreachable(t *testing.T) {
	c := New(fakePinger{}, fakePinger{err: errors.New("queue down")}, logging.New("error", t.TempDir()))
	if c.IsReady(context.Background()) {
		t.Fatal("expected not ready")
	}
}
