package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"DAQ-Lab/DLPIO8/internal/sampler"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testSample = sampler.Sample{
	Device:  "DLP-IO8-G",
	At:      time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC),
	Elapsed: 2500 * time.Millisecond,
	Readings: []sampler.Reading{
		{Channel: 1, Volts: 1.25},
		{Channel: 4, Err: errors.New("timed out waiting for device response")},
		{Channel: 8, Volts: 0},
	},
}

func TestEncodeSample(t *testing.T) {
	data, err := EncodeSample(testSample)
	if err != nil {
		t.Fatalf("EncodeSample err=%v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}

	if got["device"] != "DLP-IO8-G" || got["elapsed_s"] != 2.5 {
		t.Errorf("got payload %s", data)
	}

	readings := got["readings"].([]interface{})
	if len(readings) != 3 {
		t.Fatalf("got %d readings want 3", len(readings))
	}

	failed := readings[1].(map[string]interface{})
	if _, ok := failed["volts"]; ok {
		t.Errorf("failed reading should have no volts: %v", failed)
	}
	if failed["error"] != "timed out waiting for device response" {
		t.Errorf("failed reading error: %v", failed["error"])
	}

	// a real 0V reading keeps its value
	zero := readings[2].(map[string]interface{})
	if v, ok := zero["volts"]; !ok || v != 0.0 {
		t.Errorf("zero reading lost its value: %v", zero)
	}
}

func TestListKey(t *testing.T) {
	if got := ListKey("DLP-IO8-G"); got != "dlpio8:DLP-IO8-G:samples" {
		t.Errorf("got %q", got)
	}
}

func TestSamplePoints(t *testing.T) {
	points := SamplePoints("dlpio8", testSample)
	if len(points) != 2 {
		t.Fatalf("got %d points want 2, failed readings must be skipped", len(points))
	}

	p := points[0]
	if p.Name() != "dlpio8" {
		t.Errorf("got measurement %q", p.Name())
	}
	if !p.Time().Equal(testSample.At) {
		t.Errorf("got time %v", p.Time())
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["channel"] != "1" || tags["device"] != "DLP-IO8-G" {
		t.Errorf("got tags %v", tags)
	}

	fields := p.FieldList()
	if len(fields) != 1 || fields[0].Key != "volts" || fields[0].Value != 1.25 {
		t.Errorf("got fields %+v", fields)
	}

	if points[1].TagList()[0].Value != "8" && points[1].TagList()[1].Value != "8" {
		t.Errorf("second point is not channel 8: %+v", points[1].TagList())
	}
}

// scriptedRedis answers commands without a server, failing the ones named in fail
type scriptedRedis struct {
	fail map[string]error
	seen []string
}

func (h *scriptedRedis) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("no server in tests")
	}
}

func (h *scriptedRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.seen = append(h.seen, cmd.Name())
		if err := h.fail[cmd.Name()]; err != nil {
			cmd.SetErr(err)
			return err
		}
		return nil
	}
}

func (h *scriptedRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newScriptedPublisher(t *testing.T, hook *scriptedRedis) (*RedisPublisher, *observer.ObservedLogs) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	client.AddHook(hook)
	t.Cleanup(func() { client.Close() })

	core, logs := observer.New(zap.WarnLevel)
	return &RedisPublisher{client: client, channel: "dlpio8_samples", logger: zap.New(core)}, logs
}

func TestRedisWritePublishesAndCapsList(t *testing.T) {
	hook := &scriptedRedis{}
	p, logs := newScriptedPublisher(t, hook)

	if err := p.Write(context.Background(), testSample); err != nil {
		t.Fatalf("Write err=%v", err)
	}

	want := []string{"publish", "lpush", "ltrim"}
	if len(hook.seen) != len(want) {
		t.Fatalf("got commands %v want %v", hook.seen, want)
	}
	for i := range want {
		if hook.seen[i] != want[i] {
			t.Errorf("command %d: got %s want %s", i, hook.seen[i], want[i])
		}
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected warnings: %v", logs.All())
	}
}

func TestRedisTrimFailureIsLogged(t *testing.T) {
	hook := &scriptedRedis{fail: map[string]error{"ltrim": errors.New("READONLY replica")}}
	p, logs := newScriptedPublisher(t, hook)

	if err := p.Write(context.Background(), testSample); err != nil {
		t.Fatalf("Write err=%v", err)
	}
	if logs.FilterMessage("Failed to trim sample list").Len() != 1 {
		t.Errorf("trim failure was not logged: %v", logs.All())
	}
}

func TestRedisPublishFailureIsReturned(t *testing.T) {
	hook := &scriptedRedis{fail: map[string]error{"publish": errors.New("connection refused")}}
	p, _ := newScriptedPublisher(t, hook)

	if err := p.Write(context.Background(), testSample); err == nil {
		t.Fatal("expected publish error")
	}
	if len(hook.seen) != 1 {
		t.Errorf("commands after failed publish: %v", hook.seen)
	}
}
