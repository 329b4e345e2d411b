package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"whisply/internal/models"
)

// Inbound is an event read off one client's connection, waiting to be
// relayed to the rest of its room.
type Inbound struct {
	Sender   *Client
	Envelope Envelope
}

// Hub maintains the set of active clients, partitioned into rooms keyed
// by post ID, and relays events to every room member except the sender.
type Hub struct {
	// Rooms maps post ID to the set of active client connections viewing
	// that post.
	rooms map[string]map[*Client]bool

	// Last sequence number handed out per room. Comments that arrive
	// without a server-assigned sequence get stamped here so receivers
	// can merge by sequence rather than arrival order.
	lastSeq map[string]int64

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Inbound events from the clients.
	Relay chan Inbound

	// Mutex to protect concurrent access to the rooms map.
	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		lastSeq:    make(map[string]int64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Relay:      make(chan Inbound),
	}
}

// Run starts the hub's processing loop. Membership changes and fan-out
// are serialized here, so an event is never relayed to a client after
// its unregister has been processed.
func (h *Hub) Run() {
	log.Println("Realtime hub started.")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.PostID]; !ok {
				h.rooms[client.PostID] = make(map[*Client]bool)
			}
			h.rooms[client.PostID][client] = true
			log.Printf("Realtime client registered in room %s. Room size: %d", client.PostID, len(h.rooms[client.PostID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.PostID]; ok {
				if _, clientOk := room[client]; clientOk {
					delete(room, client)
					if len(room) == 0 {
						delete(h.rooms, client.PostID)
						delete(h.lastSeq, client.PostID)
						log.Printf("Realtime room %s is now empty.", client.PostID)
					} else {
						log.Printf("Realtime client left room %s. Remaining: %d", client.PostID, len(room))
					}
				}
			}
			h.mu.Unlock()

		case in := <-h.Relay:
			h.relay(in)
		}
	}
}

// relay rebroadcasts one inbound event to every other member of the
// sender's room. Delivery is fire-and-forget: a recipient whose send
// buffer is full is skipped.
func (h *Hub) relay(in Inbound) {
	outName, ok := relayedName[in.Envelope.Event]
	if !ok {
		log.Printf("Realtime hub: unknown event %q from room %s, dropped", in.Envelope.Event, in.Envelope.PostID)
		return
	}

	out := Envelope{
		Event:   outName,
		PostID:  in.Envelope.PostID,
		Payload: in.Envelope.Payload,
	}

	if in.Envelope.Event == EventNewComment {
		out.Payload = h.stampSequence(in.Envelope.PostID, in.Envelope.Payload)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		log.Printf("Realtime hub: failed to marshal outbound event: %v", err)
		return
	}

	h.mu.RLock()
	for client := range h.rooms[in.Envelope.PostID] {
		if client == in.Sender {
			continue
		}
		select {
		case client.Send <- raw:
		default:
			log.Printf("Realtime send buffer full for a client in room %s, event dropped", in.Envelope.PostID)
		}
	}
	h.mu.RUnlock()
}

// stampSequence assigns the room's next sequence number to a comment
// that does not carry one yet. Comments confirmed by the persistence
// layer already have a sequence; those just advance the room counter.
func (h *Hub) stampSequence(postID string, payload json.RawMessage) json.RawMessage {
	var comment models.Comment
	if err := json.Unmarshal(payload, &comment); err != nil {
		log.Printf("Realtime hub: unparseable comment payload in room %s: %v", postID, err)
		return payload
	}

	if comment.Seq > 0 {
		if comment.Seq > h.lastSeq[postID] {
			h.lastSeq[postID] = comment.Seq
		}
		return payload
	}

	h.lastSeq[postID]++
	comment.Seq = h.lastSeq[postID]
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}

	stamped, err := json.Marshal(&comment)
	if err != nil {
		log.Printf("Realtime hub: failed to re-marshal stamped comment: %v", err)
		return payload
	}
	return stamped
}

// RoomSize reports the number of clients currently viewing a post.
func (h *Hub) RoomSize(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[postID])
}

// RoomCount reports the number of rooms with at least one viewer.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
