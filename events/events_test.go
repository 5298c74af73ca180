package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Notify(_ context.Context, ev Event) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok, failing := &recorder{}, &recorder{err: boom}
	ev := Event{Type: TypeMatchUpdated, TournamentID: 3}

	err := Multi{ok, nil, failing}.Notify(context.Background(), ev)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Event{ev}, ok.got)
	assert.Equal(t, []Event{ev}, failing.got)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "brackets.42.match_updated", Subject("brackets", Event{Type: TypeMatchUpdated, TournamentID: 42}))
}

func TestHub_BroadcastsToRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	inRoom := &Client{Hub: hub, Send: make(chan []byte, 4), Room: RoomFor(1)}
	otherRoom := &Client{Hub: hub, Send: make(chan []byte, 4), Room: RoomFor(2)}
	require.True(t, hub.Join(inRoom))
	require.True(t, hub.Join(otherRoom))
	require.Eventually(t, func() bool {
		return hub.ClientCount(RoomFor(1)) == 1 && hub.ClientCount(RoomFor(2)) == 1
	}, time.Second, 5*time.Millisecond)

	err := hub.Notify(ctx, Event{Type: TypeMatchesReady, TournamentID: 1, Payload: []string{"m1"}})
	require.NoError(t, err)

	select {
	case raw := <-inRoom.Send:
		var msg struct {
			Type    Type     `json:"type"`
			Payload []string `json:"payload"`
			RoomID  string   `json:"room_id"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, TypeMatchesReady, msg.Type)
		assert.Equal(t, []string{"m1"}, msg.Payload)
		assert.Equal(t, "tournament_1", msg.RoomID)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	assert.Len(t, otherRoom.Send, 0)

	hub.Leave(inRoom)
	require.Eventually(t, func() bool { return hub.ClientCount(RoomFor(1)) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-inRoom.Send
	assert.False(t, open)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	member := &Client{Hub: hub, Send: make(chan []byte, 1), Room: RoomFor(4)}
	require.True(t, hub.Join(member))
	require.Eventually(t, func() bool { return hub.ClientCount(RoomFor(4)) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped

	_, open := <-member.Send
	assert.False(t, open)
	assert.Zero(t, hub.ClientCount(RoomFor(4)))

	returned := make(chan bool, 1)
	go func() {
		hub.Leave(member)
		returned <- hub.Join(&Client{Hub: hub, Send: make(chan []byte, 1), Room: RoomFor(4)})
	}()
	select {
	case joined := <-returned:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Run returned")
	}
}

// Runs against a real server when NATS_URL is set.
func TestNATSPublisher_Integration(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	pub, err := ConnectNATS(url, "bracket-engine-test")
	require.NoError(t, err)
	defer pub.Close()

	sub, err := pub.nc.SubscribeSync("brackets.9.>")
	require.NoError(t, err)
	require.NoError(t, pub.nc.Flush())

	require.NoError(t, pub.Notify(context.Background(), Event{Type: TypeBracketGenerated, TournamentID: 9}))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "brackets.9.bracket_generated", msg.Subject)

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, TypeBracketGenerated, ev.Type)
}
