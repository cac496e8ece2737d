// Package main provides an in-memory conversation backend for trying the
// console locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/takeover/internal/devserver"
	"github.com/raphaelgruber/takeover/internal/models"
)

var demoMessages = []string{
	"Hi, is my order on its way?",
	"Can I change the delivery address?",
	"The app keeps logging me out.",
	"Thanks, that worked!",
	"I'd like to talk to a person please.",
}

func main() {
	// Parse flags
	demo := flag.Duration("demo", 0, "send a simulated user message at this interval (0 disables)")
	seed := flag.Bool("seed", true, "start with a few example conversations")
	flag.Parse()

	// Get server port from environment or default
	port := os.Getenv("TAKEOVER_DEVSERVER_PORT")
	if port == "" {
		port = "8123"
	}

	// Initialize logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srv := devserver.New(logger, devserver.EchoResponder)
	if *seed {
		seedConversations(srv)
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("REST API available", "url", fmt.Sprintf("http://localhost:%s/api/conversations", port))
		slog.Info("event stream available", "url", fmt.Sprintf("ws://localhost:%s/ws/all", port))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan struct{})
	if *demo > 0 {
		go runDemo(srv, *demo, stop)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stop)

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	srv.Hub().CloseAll()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func seedConversations(srv *devserver.Server) {
	srv.UserMessage("4915112345678", models.TextPart{Content: "Hello! Do you ship to Austria?"})
	srv.UserMessage("4915112345678", models.TextPart{Content: "And how long does it take?"})
	srv.UserMessage("4369912345678",
		models.TextPart{Content: "Here is the receipt"},
		models.MediaPart{MimeType: "image/jpeg", URI: "https://example.com/media/receipt.jpg"},
	)
	srv.UserMessage("4917612345678", models.MediaPart{
		MimeType: "application/pdf",
		URI:      "https://example.com/media/invoice-2291.pdf",
		Filename: "invoice-2291.pdf",
	})
	srv.Store().SetControl("4917612345678", models.ControlAdmin)
}

// runDemo plays the part of users writing in, sometimes from new numbers.
func runDemo(srv *devserver.Server, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ids := srv.Store().IDs()
		var id models.ConversationID
		if len(ids) == 0 || rand.IntN(4) == 0 {
			id = models.ConversationID(fmt.Sprintf("49%010d", rand.Int64N(1e10)))
		} else {
			id = ids[rand.IntN(len(ids))]
		}
		srv.UserMessage(id, models.TextPart{Content: demoMessages[rand.IntN(len(demoMessages))]})
	}
}
