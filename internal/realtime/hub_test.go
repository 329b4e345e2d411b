package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"whisply/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, postID string) *Client {
	return &Client{
		Hub:    hub,
		PostID: postID,
		Send:   make(chan []byte, 16),
	}
}

func receiveEnvelope(t *testing.T, c *Client) *Envelope {
	t.Helper()
	select {
	case raw := <-c.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return &env
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func mustPayload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestHubRelaysToRoomMembersExceptSender(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	postA := uuid.NewString()
	postB := uuid.NewString()

	sender := newTestClient(hub, postA)
	neighbor := newTestClient(hub, postA)
	stranger := newTestClient(hub, postB)

	hub.Register <- sender
	hub.Register <- neighbor
	hub.Register <- stranger

	hub.Relay <- Inbound{
		Sender: sender,
		Envelope: Envelope{
			Event:   EventTyping,
			PostID:  postA,
			Payload: mustPayload(t, TypingPayload{Author: "alice"}),
		},
	}

	env := receiveEnvelope(t, neighbor)
	require.NotNil(t, env, "room member should receive the relayed event")
	assert.Equal(t, EventSomeoneTyping, env.Event)
	assert.Equal(t, postA, env.PostID)

	var p TypingPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "alice", p.Author)

	assert.Nil(t, receiveEnvelope(t, sender), "sender must not receive its own event")
	assert.Nil(t, receiveEnvelope(t, stranger), "other rooms must not see the event")
}

func TestHubStampsSequenceForUnconfirmedComments(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	postID := uuid.NewString()
	sender := newTestClient(hub, postID)
	receiver := newTestClient(hub, postID)
	hub.Register <- sender
	hub.Register <- receiver

	comment := &models.Comment{
		ID:     uuid.New(),
		PostID: uuid.MustParse(postID),
		Text:   "first",
		Author: "alice",
	}
	hub.Relay <- Inbound{
		Sender: sender,
		Envelope: Envelope{
			Event:   EventNewComment,
			PostID:  postID,
			Payload: mustPayload(t, comment),
		},
	}

	env := receiveEnvelope(t, receiver)
	require.NotNil(t, env)
	assert.Equal(t, EventReceiveComment, env.Event)

	var got models.Comment
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, comment.ID, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestHubPreservesConfirmedSequence(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	postID := uuid.NewString()
	sender := newTestClient(hub, postID)
	receiver := newTestClient(hub, postID)
	hub.Register <- sender
	hub.Register <- receiver

	confirmed := &models.Comment{
		ID:        uuid.New(),
		PostID:    uuid.MustParse(postID),
		Text:      "persisted first",
		Author:    "alice",
		Seq:       5,
		CreatedAt: time.Now(),
	}
	hub.Relay <- Inbound{
		Sender: sender,
		Envelope: Envelope{
			Event:   EventNewComment,
			PostID:  postID,
			Payload: mustPayload(t, confirmed),
		},
	}

	env := receiveEnvelope(t, receiver)
	require.NotNil(t, env)
	var got models.Comment
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, int64(5), got.Seq, "server-assigned sequence must pass through untouched")

	// The room counter advanced past the confirmed sequence, so the next
	// unconfirmed comment sorts after it.
	unconfirmed := &models.Comment{ID: uuid.New(), PostID: confirmed.PostID, Text: "second", Author: "bob"}
	hub.Relay <- Inbound{
		Sender: sender,
		Envelope: Envelope{
			Event:   EventNewComment,
			PostID:  postID,
			Payload: mustPayload(t, unconfirmed),
		},
	}

	env = receiveEnvelope(t, receiver)
	require.NotNil(t, env)
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, int64(6), got.Seq)
}

func TestHubDropsUnknownEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	postID := uuid.NewString()
	sender := newTestClient(hub, postID)
	receiver := newTestClient(hub, postID)
	hub.Register <- sender
	hub.Register <- receiver

	hub.Relay <- Inbound{
		Sender: sender,
		Envelope: Envelope{
			Event:   "deleteEverything",
			PostID:  postID,
			Payload: mustPayload(t, map[string]string{}),
		},
	}

	assert.Nil(t, receiveEnvelope(t, receiver))
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	postID := uuid.NewString()
	sender := newTestClient(hub, postID)
	leaver := newTestClient(hub, postID)
	hub.Register <- sender
	hub.Register <- leaver

	assert.Eventually(t, func() bool { return hub.RoomSize(postID) == 2 }, time.Second, 10*time.Millisecond)

	hub.Unregister <- leaver

	hub.Relay <- Inbound{
		Sender: sender,
		Envelope: Envelope{
			Event:   EventTyping,
			PostID:  postID,
			Payload: mustPayload(t, TypingPayload{Author: "alice"}),
		},
	}

	assert.Nil(t, receiveEnvelope(t, leaver))
	assert.Eventually(t, func() bool { return hub.RoomSize(postID) == 1 }, time.Second, 10*time.Millisecond)
}

func TestHubRoomCount(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := newTestClient(hub, uuid.NewString())
	b := newTestClient(hub, uuid.NewString())
	hub.Register <- a
	hub.Register <- b
	assert.Eventually(t, func() bool { return hub.RoomCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Unregister <- a
	hub.Unregister <- b

	// Unregister sends are processed in order; both rooms are gone once
	// the second one is handled.
	assert.Eventually(t, func() bool { return hub.RoomCount() == 0 }, time.Second, 10*time.Millisecond)
}
