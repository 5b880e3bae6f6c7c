// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package promexp_test

import (
	"expvar"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gomumble/mumble/internal/promexp"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func testMap() *expvar.Map {
	m := new(expvar.Map)
	sent := new(expvar.Int)
	sent.Set(12)
	m.Set("messages_sent", sent)
	pending := new(expvar.Int)
	pending.Set(2)
	m.Set("requests_pending", pending)
	ratio := new(expvar.Float)
	ratio.Set(0.5)
	m.Set("ratio", ratio)
	m.Set("label", new(expvar.String)) // not a number
	return m
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(promexp.New("mumble", testMap(), "requests_pending")); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: unexpected error: %v", err)
	}

	type metric struct {
		Type  dto.MetricType
		Value float64
	}
	got := make(map[string]metric)
	for _, mf := range mfs {
		m := mf.GetMetric()[0]
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			got[mf.GetName()] = metric{mf.GetType(), m.GetCounter().GetValue()}
		case dto.MetricType_GAUGE:
			got[mf.GetName()] = metric{mf.GetType(), m.GetGauge().GetValue()}
		}
	}
	if diff := cmp.Diff(map[string]metric{
		"mumble_messages_sent":    {dto.MetricType_COUNTER, 12},
		"mumble_requests_pending": {dto.MetricType_GAUGE, 2},
		"mumble_ratio":            {dto.MetricType_COUNTER, 0.5},
	}, got); diff != "" {
		t.Errorf("Metrics (-want, +got):\n%s", diff)
	}
}

func TestHandler(t *testing.T) {
	h, err := promexp.Handler(promexp.New("mumble", testMap()))
	if err != nil {
		t.Fatalf("Handler: unexpected error: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	rsp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	defer rsp.Body.Close()
	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		t.Fatalf("Read body: %v", err)
	}
	if !strings.Contains(string(body), "mumble_messages_sent 12") {
		t.Errorf("Body does not contain the counter:\n%s", body)
	}
}
