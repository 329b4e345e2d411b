package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"whisply/internal/handlers"
	"whisply/internal/models"
	"whisply/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ViewState is the lifecycle state of one post view.
type ViewState int

const (
	StateLoading ViewState = iota
	StateReady
	StateNotFound
)

// Emitter sends a viewer's realtime events into its room. A live
// websocket connection is the production implementation; tests plug in
// a recording fake.
type Emitter interface {
	Emit(env realtime.Envelope) error
}

const defaultTypingTTL = 1500 * time.Millisecond

// Viewer models one reader on a post page: it loads the post over HTTP,
// mirrors the comment log locally, and exchanges realtime events with
// the other viewers in the room.
//
// Comment submission is optimistic. The comment is appended locally
// first, then persisted; on success the provisional entry is replaced
// by the server-confirmed record and that record is broadcast to the
// room. The confirmed record is the single source of truth for id and
// sequence number, so every viewer converges on the same log.
type Viewer struct {
	BaseURL string
	Author  string

	// TypingTTL is how long a typing notice stays visible after the
	// last signal. Tests shorten it.
	TypingTTL time.Duration

	client  *http.Client
	emitter Emitter

	mu         sync.Mutex
	state      ViewState
	post       *models.Post
	comments   []*models.Comment
	seen       map[uuid.UUID]bool
	pendingIDs map[uuid.UUID]bool

	// Session-scoped reaction tallies, keyed by comment id then emoji.
	// Tallies are not persisted; a reload starts from zero.
	reactions map[string]map[string]int
	applied   map[string]bool

	typingBy    string
	typingTimer *time.Timer
}

// NewViewer creates a viewer for the server at baseURL. The emitter may
// be nil until Connect is called.
func NewViewer(baseURL, author string, emitter Emitter) *Viewer {
	return &Viewer{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Author:     author,
		TypingTTL:  defaultTypingTTL,
		client:     &http.Client{Timeout: 10 * time.Second},
		emitter:    emitter,
		state:      StateLoading,
		seen:       make(map[uuid.UUID]bool),
		pendingIDs: make(map[uuid.UUID]bool),
		reactions:  make(map[string]map[string]int),
		applied:    make(map[string]bool),
	}
}

// Load fetches the post and its historical comment log. A missing post
// moves the viewer to StateNotFound instead of returning an error, the
// same way the page would render a not-found view.
func (v *Viewer) Load(ctx context.Context, postID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/posts/%s", v.BaseURL, postID), nil)
	if err != nil {
		return err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("load post %s: %w", postID, err)
	}
	defer resp.Body.Close()

	v.mu.Lock()
	defer v.mu.Unlock()

	if resp.StatusCode == http.StatusNotFound {
		v.state = StateNotFound
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("load post %s: unexpected status %d", postID, resp.StatusCode)
	}

	var view handlers.PostWithCommentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return fmt.Errorf("decode post view: %w", err)
	}

	v.post = view.Post
	v.comments = view.Comments
	for _, c := range view.Comments {
		v.seen[c.ID] = true
	}
	v.state = StateReady
	return nil
}

// State reports the viewer's lifecycle state.
func (v *Viewer) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Post returns the loaded post, nil before Load succeeds.
func (v *Viewer) Post() *models.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.post
}

// Comments returns a snapshot of the local comment log in display order.
func (v *Viewer) Comments() []*models.Comment {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*models.Comment, len(v.comments))
	copy(out, v.comments)
	return out
}

// SubmitComment appends a comment optimistically, persists it, then
// broadcasts the server-confirmed record to the room. Whitespace-only
// text is ignored entirely: nothing is appended, persisted or emitted.
func (v *Viewer) SubmitComment(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return fmt.Errorf("cannot comment before the post is loaded")
	}
	postID := v.post.ID

	provisional := &models.Comment{
		ID:        uuid.New(),
		PostID:    postID,
		Text:      text,
		Author:    v.Author,
		CreatedAt: time.Now(),
	}
	v.comments = append(v.comments, provisional)
	v.seen[provisional.ID] = true
	v.pendingIDs[provisional.ID] = true
	v.mu.Unlock()

	confirmed, err := v.persistComment(ctx, postID, text)
	if err != nil {
		// The provisional entry stays visible; the reader's own words
		// are never silently discarded.
		log.Printf("Viewer %s: comment persist failed, keeping provisional entry: %v", v.Author, err)
		return err
	}

	v.mu.Lock()
	for i, c := range v.comments {
		if c.ID == provisional.ID {
			v.comments[i] = confirmed
			break
		}
	}
	delete(v.seen, provisional.ID)
	delete(v.pendingIDs, provisional.ID)
	v.seen[confirmed.ID] = true
	v.sortLocked()
	v.mu.Unlock()

	return v.emit(realtime.EventNewComment, postID.String(), confirmed)
}

func (v *Viewer) persistComment(ctx context.Context, postID uuid.UUID, text string) (*models.Comment, error) {
	body, err := json.Marshal(handlers.CreateCommentRequest{Text: text, Author: v.Author})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/posts/%s/comments", v.BaseURL, postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create comment: unexpected status %d", resp.StatusCode)
	}

	var confirmed models.Comment
	if err := json.NewDecoder(resp.Body).Decode(&confirmed); err != nil {
		return nil, fmt.Errorf("decode confirmed comment: %w", err)
	}
	return &confirmed, nil
}

// ReceiveComment merges a relayed comment into the local log. Comments
// already present are skipped, so a viewer never shows its own comment
// twice. Events arriving before the view is ready, or without an id,
// are dropped.
func (v *Viewer) ReceiveComment(comment *models.Comment) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateReady {
		return
	}
	if comment == nil || comment.ID == uuid.Nil {
		return
	}
	if v.seen[comment.ID] {
		return
	}

	v.comments = append(v.comments, comment)
	v.seen[comment.ID] = true
	v.sortLocked()
}

// sortLocked keeps the log in sequence order, with unconfirmed
// provisional entries sinking to the end in submission order.
func (v *Viewer) sortLocked() {
	sort.SliceStable(v.comments, func(i, j int) bool {
		a, b := v.comments[i], v.comments[j]
		if a.Seq == 0 || b.Seq == 0 {
			return false
		}
		return a.Seq < b.Seq
	})
}

// NotifyTyping tells the room this viewer is typing.
func (v *Viewer) NotifyTyping() error {
	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return nil
	}
	postID := v.post.ID.String()
	v.mu.Unlock()

	return v.emit(realtime.EventTyping, postID, realtime.TypingPayload{Author: v.Author})
}

// ReceiveTyping shows a typing notice for the given author. The notice
// clears itself after TypingTTL unless another signal arrives first.
func (v *Viewer) ReceiveTyping(author string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateReady {
		return
	}

	v.typingBy = author
	if v.typingTimer != nil {
		v.typingTimer.Stop()
	}
	v.typingTimer = time.AfterFunc(v.TypingTTL, func() {
		v.mu.Lock()
		v.typingBy = ""
		v.mu.Unlock()
	})
}

// TypingBy returns the author currently shown as typing, or "".
func (v *Viewer) TypingBy() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typingBy
}

// SendReaction applies an emoji reaction locally and broadcasts it. The
// reaction is applied before the emit, so the sender's own view updates
// immediately; the event id makes any echo of the same event a no-op.
func (v *Viewer) SendReaction(commentID uuid.UUID, emoji string) error {
	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return nil
	}
	postID := v.post.ID.String()
	payload := realtime.ReactionPayload{
		EventID:   uuid.NewString(),
		CommentID: commentID.String(),
		Emoji:     emoji,
	}
	v.applyReactionLocked(payload)
	v.mu.Unlock()

	return v.emit(realtime.EventReactComment, postID, payload)
}

// ReceiveReaction applies a relayed reaction. Application is idempotent
// per event id, so tallies only ever grow by one per distinct reaction.
func (v *Viewer) ReceiveReaction(payload realtime.ReactionPayload) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateReady {
		return
	}
	v.applyReactionLocked(payload)
}

func (v *Viewer) applyReactionLocked(payload realtime.ReactionPayload) {
	if payload.EventID == "" || v.applied[payload.EventID] {
		return
	}
	v.applied[payload.EventID] = true

	if v.reactions[payload.CommentID] == nil {
		v.reactions[payload.CommentID] = make(map[string]int)
	}
	v.reactions[payload.CommentID][payload.Emoji]++
}

// ReactionCount returns the session tally for one emoji on one comment.
func (v *Viewer) ReactionCount(commentID uuid.UUID, emoji string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reactions[commentID.String()][emoji]
}

// HandleEnvelope dispatches one relayed event to the matching handler.
func (v *Viewer) HandleEnvelope(env realtime.Envelope) {
	switch env.Event {
	case realtime.EventReceiveComment:
		var comment models.Comment
		if err := json.Unmarshal(env.Payload, &comment); err != nil {
			log.Printf("Viewer %s: malformed comment payload: %v", v.Author, err)
			return
		}
		v.ReceiveComment(&comment)

	case realtime.EventSomeoneTyping:
		var p realtime.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Viewer %s: malformed typing payload: %v", v.Author, err)
			return
		}
		v.ReceiveTyping(p.Author)

	case realtime.EventUpdateReaction:
		var p realtime.ReactionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Viewer %s: malformed reaction payload: %v", v.Author, err)
			return
		}
		v.ReceiveReaction(p)

	default:
		log.Printf("Viewer %s: unknown event %q ignored", v.Author, env.Event)
	}
}

func (v *Viewer) emit(event, postID string, payload interface{}) error {
	if v.emitter == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return v.emitter.Emit(realtime.Envelope{
		Event:   event,
		PostID:  postID,
		Payload: raw,
	})
}

// wsEmitter sends envelopes over a live websocket connection. Writes
// are serialized; gorilla connections allow one concurrent writer.
type wsEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(env realtime.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteJSON(env)
}

// Connect dials the server's realtime endpoint for the loaded post and
// starts reading relayed events until the context is cancelled or the
// connection drops.
func (v *Viewer) Connect(ctx context.Context, wsURL string) error {
	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return fmt.Errorf("cannot connect before the post is loaded")
	}
	postID := v.post.ID
	v.mu.Unlock()

	url := fmt.Sprintf("%s?postId=%s", wsURL, postID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial realtime endpoint: %w", err)
	}

	v.mu.Lock()
	v.emitter = &wsEmitter{conn: conn}
	v.mu.Unlock()

	go func() {
		defer conn.Close()
		for {
			var env realtime.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if ctx.Err() == nil {
					log.Printf("Viewer %s: realtime connection closed: %v", v.Author, err)
				}
				return
			}
			v.HandleEnvelope(env)
		}
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return nil
}
