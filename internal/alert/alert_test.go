package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAlert = Alert{
	ID:         "a1",
	Type:       "fall",
	Confidence: 1,
	At:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	Device:     "unit-7",
}

type fakeNotifier struct {
	got    []Alert
	err    error
	closed bool
}

func (f *fakeNotifier) Notify(_ context.Context, a Alert) error {
	f.got = append(f.got, a)
	return f.err
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &fakeNotifier{err: boom}
	b := &fakeNotifier{}
	f := Fanout{a, b}

	err := f.Notify(context.Background(), testAlert)
	require.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)

	require.NoError(t, f.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestLogNotifier(t *testing.T) {
	var lines []string
	old := Logf
	Logf = func(format string, args ...any) { lines = append(lines, format) }
	t.Cleanup(func() { Logf = old })

	require.NoError(t, LogNotifier{}.Notify(context.Background(), testAlert))
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "EMERGENCY")
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type fakeMQTT struct {
	token        mqtt.Token
	topic        string
	qos          byte
	retained     bool
	payload      []byte
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.qos = qos
	f.retained = retained
	f.payload = payload.([]byte)
	return f.token
}

func (f *fakeMQTT) Disconnect(uint) { f.disconnected = true }

func TestMQTT_PublishesJSON(t *testing.T) {
	c := &fakeMQTT{token: newFakeToken(nil, true)}
	m := newMQTT(c, MQTTOptions{Topic: "fallwatch/events", QoS: 1, Retain: true})

	require.NoError(t, m.Notify(context.Background(), testAlert))
	assert.Equal(t, "fallwatch/events", c.topic)
	assert.Equal(t, byte(1), c.qos)
	assert.True(t, c.retained)

	var got Alert
	require.NoError(t, json.Unmarshal(c.payload, &got))
	assert.Equal(t, testAlert, got)

	require.NoError(t, m.Close())
	assert.True(t, c.disconnected)
}

func TestMQTT_PublishError(t *testing.T) {
	c := &fakeMQTT{token: newFakeToken(errors.New("not connected"), true)}
	m := newMQTT(c, MQTTOptions{Topic: "t"})
	err := m.Notify(context.Background(), testAlert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestMQTT_PublishTimeout(t *testing.T) {
	c := &fakeMQTT{token: newFakeToken(nil, false)}
	m := newMQTT(c, MQTTOptions{Topic: "t", Timeout: 10 * time.Millisecond})
	err := m.Notify(context.Background(), testAlert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestMQTT_PublishContextCanceled(t *testing.T) {
	c := &fakeMQTT{token: newFakeToken(nil, false)}
	m := newMQTT(c, MQTTOptions{Topic: "t", Timeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Notify(ctx, testAlert), context.Canceled)
}

func TestNewMQTT_RequiresBroker(t *testing.T) {
	_, err := NewMQTT(MQTTOptions{})
	require.Error(t, err)
}

type fakeConn struct {
	writes  [][]byte
	closed  bool
	failErr error
}

func (f *fakeConn) Write(p []byte) (int, error) {
	if f.failErr != nil {
		return 0, f.failErr
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestUDP_SendsJSONDatagram(t *testing.T) {
	conn := &fakeConn{}
	var gotAddr *net.UDPAddr
	u, err := newUDP("192.168.10.255:4000",
		func(network, address string) (*net.UDPAddr, error) {
			return net.ResolveUDPAddr(network, address)
		},
		func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
			gotAddr = raddr
			return conn, nil
		})
	require.NoError(t, err)
	require.NotNil(t, gotAddr)
	assert.Equal(t, 4000, gotAddr.Port)

	require.NoError(t, u.Notify(context.Background(), testAlert))
	require.Len(t, conn.writes, 1)
	assert.True(t, strings.HasPrefix(string(conn.writes[0]), `{"id":"a1","type":"fall"`))

	require.NoError(t, u.Close())
	assert.True(t, conn.closed)
}

func TestUDP_ResolveError(t *testing.T) {
	_, err := newUDP("bad", func(string, string) (*net.UDPAddr, error) {
		return nil, errors.New("no such host")
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve bad")
}

func TestUDP_WriteError(t *testing.T) {
	conn := &fakeConn{failErr: errors.New("network unreachable")}
	u, err := newUDP("127.0.0.1:4000", net.ResolveUDPAddr, func(string, *net.UDPAddr, *net.UDPAddr) (udpConn, error) {
		return conn, nil
	})
	require.NoError(t, err)
	require.Error(t, u.Notify(context.Background(), testAlert))
}

type fakeLine struct {
	mu     sync.Mutex
	values []int
	closed bool
}

func (f *fakeLine) SetValue(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, v)
	return nil
}

func (f *fakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLine) snapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.values...)
}

func TestGPIOLine_PulsesHighThenLow(t *testing.T) {
	line := &fakeLine{}
	g := newGPIOLine(line, 20*time.Millisecond)

	require.NoError(t, g.Notify(context.Background(), testAlert))
	assert.Equal(t, []int{1}, line.snapshot())

	require.Eventually(t, func() bool {
		v := line.snapshot()
		return len(v) == 2 && v[1] == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, g.Close())
	assert.True(t, line.closed)
}

func TestGPIOLine_CloseDrivesLow(t *testing.T) {
	line := &fakeLine{}
	g := newGPIOLine(line, time.Hour)
	require.NoError(t, g.Notify(context.Background(), testAlert))
	require.NoError(t, g.Close())
	assert.Equal(t, []int{1, 0}, line.snapshot())
}
