package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"whisply/internal/handlers"
	"whisply/internal/models"

	"github.com/google/uuid"
)

// SimConfig tunes a load-simulation run against a live server.
type SimConfig struct {
	NumAuthors       int
	NumPosts         int
	ViewersPerPost   int
	SimulationTime   time.Duration
	CommentFrequency float64 // comments per viewer per second
	TypingFrequency  float64
	ReactFrequency   float64
	EngineURL        string
	RealtimeURL      string
}

// SimulationStats aggregates what happened during a run.
type SimulationStats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	CommentsSent    int64
	TypingSignals   int64
	ReactionsSent   int64
}

func (s *SimulationStats) record(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	if success {
		s.SuccessRequests++
	} else {
		s.FailedRequests++
	}
}

// Simulator seeds authors and posts over HTTP, then attaches a crowd of
// realtime viewers to each post and lets them comment, type and react
// at the configured rates.
type Simulator struct {
	config  SimConfig
	stats   *SimulationStats
	client  *http.Client
	posts   []*models.Post
	viewers []*Viewer
}

func NewSimulator(config SimConfig) *Simulator {
	return &Simulator{
		config: config,
		stats:  &SimulationStats{StartTime: time.Now()},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Run seeds the data set, attaches the viewers and drives activity
// until the configured duration elapses.
func (s *Simulator) Run(ctx context.Context) error {
	log.Printf("Starting simulation: %d posts, %d viewers each", s.config.NumPosts, s.config.ViewersPerPost)

	if err := s.seed(ctx); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.config.SimulationTime)
	defer cancel()

	if err := s.attachViewers(runCtx); err != nil {
		return fmt.Errorf("attaching viewers failed: %w", err)
	}

	var wg sync.WaitGroup
	for _, viewer := range s.viewers {
		wg.Add(1)
		go func(v *Viewer) {
			defer wg.Done()
			s.driveViewer(runCtx, v)
		}(viewer)
	}
	wg.Wait()

	s.report()
	return nil
}

// seed registers authors and publishes posts through the public API, so
// the simulation exercises the same paths as real traffic.
func (s *Simulator) seed(ctx context.Context) error {
	for i := 0; i < s.config.NumAuthors; i++ {
		username := fmt.Sprintf("sim_author_%d_%s", i, uuid.NewString()[:8])
		token, err := s.registerAndLogin(ctx, username)
		if err != nil {
			return err
		}

		postsPerAuthor := s.config.NumPosts / s.config.NumAuthors
		if i < s.config.NumPosts%s.config.NumAuthors {
			postsPerAuthor++
		}
		for j := 0; j < postsPerAuthor; j++ {
			post, err := s.createPost(ctx, token, fmt.Sprintf("Post %d by %s", j, username))
			if err != nil {
				return err
			}
			s.posts = append(s.posts, post)
		}
	}
	log.Printf("Seeded %d posts across %d authors", len(s.posts), s.config.NumAuthors)
	return nil
}

func (s *Simulator) registerAndLogin(ctx context.Context, username string) (string, error) {
	email := username + "@sim.whisply.local"
	signup := map[string]string{
		"username":        username,
		"email":           email,
		"password":        "simulated-pw-1",
		"confirmPassword": "simulated-pw-1",
	}
	if _, err := s.postJSON(ctx, "/auth/signup", "", signup, http.StatusCreated); err != nil {
		return "", err
	}

	login := map[string]string{"email": email, "password": "simulated-pw-1"}
	raw, err := s.postJSON(ctx, "/auth/login", "", login, http.StatusOK)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (s *Simulator) createPost(ctx context.Context, token, title string) (*models.Post, error) {
	req := handlers.CreatePostRequest{
		Title:     title,
		Content:   "Generated content for load simulation.",
		Published: true,
	}
	raw, err := s.postJSON(ctx, "/posts", token, req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var post models.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Simulator) postJSON(ctx context.Context, path, token string, body interface{}, wantStatus int) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.EngineURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.stats.record(false)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		s.stats.record(false)
		return nil, fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	s.stats.record(true)

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Simulator) attachViewers(ctx context.Context) error {
	for _, post := range s.posts {
		for i := 0; i < s.config.ViewersPerPost; i++ {
			viewer := NewViewer(s.config.EngineURL, fmt.Sprintf("viewer_%s", uuid.NewString()[:8]), nil)
			if err := viewer.Load(ctx, post.ID); err != nil {
				return err
			}
			if err := viewer.Connect(ctx, s.config.RealtimeURL); err != nil {
				return err
			}
			s.viewers = append(s.viewers, viewer)
		}
	}
	log.Printf("Attached %d realtime viewers", len(s.viewers))
	return nil
}

// driveViewer ticks at 100ms and rolls against each activity's
// per-second frequency, the same way the traffic generators in the
// engine benchmarks do.
func (s *Simulator) driveViewer(ctx context.Context, v *Viewer) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick := 0.1
			if rand.Float64() < s.config.TypingFrequency*tick {
				if err := v.NotifyTyping(); err == nil {
					s.stats.mu.Lock()
					s.stats.TypingSignals++
					s.stats.mu.Unlock()
				}
			}
			if rand.Float64() < s.config.CommentFrequency*tick {
				text := fmt.Sprintf("Comment from %s at %s", v.Author, time.Now().Format(time.RFC3339Nano))
				if err := v.SubmitComment(ctx, text); err == nil {
					s.stats.mu.Lock()
					s.stats.CommentsSent++
					s.stats.mu.Unlock()
				}
			}
			if rand.Float64() < s.config.ReactFrequency*tick {
				comments := v.Comments()
				if len(comments) > 0 {
					target := comments[rand.Intn(len(comments))]
					if err := v.SendReaction(target.ID, randomEmoji()); err == nil {
						s.stats.mu.Lock()
						s.stats.ReactionsSent++
						s.stats.mu.Unlock()
					}
				}
			}
		}
	}
}

var emojis = []string{"👍", "❤️", "😂", "🎉", "🤔"}

func randomEmoji() string {
	return emojis[rand.Intn(len(emojis))]
}

func (s *Simulator) report() {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	elapsed := time.Since(s.stats.StartTime)
	log.Printf("Simulation finished in %s", elapsed.Round(time.Millisecond))
	log.Printf("  HTTP requests: %d total, %d ok, %d failed",
		s.stats.TotalRequests, s.stats.SuccessRequests, s.stats.FailedRequests)
	log.Printf("  Realtime: %d comments, %d typing signals, %d reactions",
		s.stats.CommentsSent, s.stats.TypingSignals, s.stats.ReactionsSent)

	// Spot-check convergence: every viewer of the same post should hold
	// a log of the same length once traffic stops.
	byPost := make(map[string][]int)
	for _, v := range s.viewers {
		if post := v.Post(); post != nil {
			byPost[post.ID.String()] = append(byPost[post.ID.String()], len(v.Comments()))
		}
	}
	for postID, sizes := range byPost {
		converged := true
		for _, n := range sizes[1:] {
			if n != sizes[0] {
				converged = false
				break
			}
		}
		if !converged {
			log.Printf("  WARNING: viewers of post %s diverged: %v", postID, sizes)
		}
	}
}
