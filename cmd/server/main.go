package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"blackbox/pkg/interp"
	"blackbox/pkg/scheduler"
	"blackbox/pkg/vfs"
	"blackbox/pkg/web"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	storage := flag.String("storage", "sketchbook", "sketchbook directory, or a .db file; empty keeps it in memory")
	delay := flag.Duration("delay", scheduler.DefaultIterationDelay, "pause between iterations of main's loop")
	budget := flag.Int("budget", interp.DefaultStepBudget, "statements a task may run without sleeping")
	flag.Parse()

	srv, err := web.NewServer(vfs.NewSketchbook(), web.Config{
		Storage:        *storage,
		IterationDelay: *delay,
		StepBudget:     *budget,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		log.Printf("server: %v", err)
	}
	if err := srv.Close(); err != nil {
		log.Printf("sketchbook: %v", err)
	}
}
