package notify

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikermcconnell/BusScheduler-sub001/infra/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/internal/eventbus"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeClient struct {
	mu       sync.Mutex
	payloads [][]byte
	topics   []string
}

func (f *fakeClient) IsConnected() bool      { return true }
func (f *fakeClient) Connect() paho.Token    { return &fakeToken{} }
func (f *fakeClient) Disconnect(uint)        {}
func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))
	return &fakeToken{}
}

func newTestNotifier(cli pahoClient, topic string) *MQTTNotifier {
	return &MQTTNotifier{
		cli:   cli,
		topic: topic,
		log:   logger.NopLogger{},
		done:  make(chan struct{}),
	}
}

func TestPublishEncodesEvent(t *testing.T) {
	cli := &fakeClient{}
	n := newTestNotifier(cli, "schedule/edits")

	ev := eventbus.EditEvent{Op: "endTrip", TripNumber: 4, Revision: "r9", Trips: 12, Time: time.Now()}
	require.NoError(t, n.Publish(ev))

	require.Len(t, cli.payloads, 1)
	assert.Equal(t, "schedule/edits", cli.topics[0])
	var got eventbus.EditEvent
	require.NoError(t, json.Unmarshal(cli.payloads[0], &got))
	assert.Equal(t, "endTrip", got.Op)
	assert.Equal(t, 4, got.TripNumber)
	assert.Equal(t, "r9", got.Revision)
}

func TestRunForwardsBusEvents(t *testing.T) {
	cli := &fakeClient{}
	n := newTestNotifier(cli, "schedule/edits")

	bus := eventbus.NewEditBus()
	defer bus.Close()
	sub := bus.Subscribe()
	n.Run(sub)

	bus.Publish(eventbus.EditEvent{Op: "addTrip", Revision: "r1"})

	assert.Eventually(t, func() bool {
		cli.mu.Lock()
		defer cli.mu.Unlock()
		return len(cli.payloads) == 1
	}, time.Second, 10*time.Millisecond)

	n.Close()
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883"}
	cfg.SetDefaults()
	assert.Equal(t, "busched-notifier", cfg.ClientID)
	assert.Equal(t, "schedule/edits", cfg.Topic)
}
