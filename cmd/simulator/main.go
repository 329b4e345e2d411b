package main

import (
	"context"
	"log"
	"time"

	"whisply/simulator"
)

func main() {
	config := simulator.SimConfig{
		NumAuthors:       3,
		NumPosts:         5,
		ViewersPerPost:   10,
		SimulationTime:   2 * time.Minute,
		CommentFrequency: 0.2,
		TypingFrequency:  0.5,
		ReactFrequency:   0.3,
		EngineURL:        "http://localhost:8080",
		RealtimeURL:      "ws://localhost:8080/ws",
	}

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Engine URL: %s", config.EngineURL)
	log.Printf("- Posts: %d across %d authors", config.NumPosts, config.NumAuthors)
	log.Printf("- Viewers per post: %d", config.ViewersPerPost)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Comment frequency: %.2f comments/viewer/sec", config.CommentFrequency)
	log.Printf("- Typing frequency: %.2f signals/viewer/sec", config.TypingFrequency)
	log.Printf("- Reaction frequency: %.2f reactions/viewer/sec", config.ReactFrequency)

	sim := simulator.NewSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime+time.Minute)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
}
