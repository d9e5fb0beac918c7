// Package main wires every package together into a small demo REPL: read a
// line, run it through the completion engine, take whatever suggestion has
// accumulated for it so far, and redisplay the line with that suggestion.
// The schema digest is computed once at startup; the REPL has no refresh
// command. It also starts the operator-facing debug HTTP server alongside
// it.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pxlapp/sqlcopilot/internal/auth"
	"github.com/pxlapp/sqlcopilot/internal/chat"
	"github.com/pxlapp/sqlcopilot/internal/config"
	"github.com/pxlapp/sqlcopilot/internal/controller"
	"github.com/pxlapp/sqlcopilot/internal/lineedit"
	"github.com/pxlapp/sqlcopilot/internal/render"
	"github.com/pxlapp/sqlcopilot/internal/schema"
	"github.com/pxlapp/sqlcopilot/internal/server"
	"github.com/pxlapp/sqlcopilot/internal/session"
	"github.com/pxlapp/sqlcopilot/internal/transport"
)

// newWorker builds the transport Worker and the Session/Controller it
// drives, or reports ok=false when there are no usable credentials, so
// the caller can simply leave completion disabled rather than fail
// startup.
func newWorker(cfg *config.Config, schemaDigest string) (w *transport.Worker, sess *session.Session, ctrl *controller.Controller, ok bool, err error) {
	creds, ok, err := auth.Load(cfg.Credentials.Path)
	if err != nil {
		return nil, nil, nil, false, fmt.Errorf("loading credentials: %w", err)
	}
	if !ok {
		return nil, nil, nil, false, nil
	}

	sess, err = session.New(schemaDigest)
	if err != nil {
		return nil, nil, nil, false, fmt.Errorf("creating session: %w", err)
	}

	ctrl = controller.New(sess, cfg.API.PrimeThreshold)
	w = transport.New(http.DefaultClient, cfg.API.URL, creds, ctrl, cfg.API.MaxTokens, log.Default())

	return w, sess, ctrl, true, nil
}

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var schemaDigest string
	if cfg.Database.DSN != "" {
		src, err := schema.NewPostgresSource(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer src.Close()

		digest, err := src.Digest(context.Background())
		if err != nil {
			// A failed refresh is logged and completion starts with an
			// empty schema digest rather than failing startup outright.
			log.Printf("schema refresh failed, completion will start unprimed: %v", err)
		} else {
			schemaDigest = digest
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, sess, ctrl, enabled, err := newWorker(cfg, schemaDigest)
	if err != nil {
		log.Fatalf("failed to initialize completion engine: %v", err)
	}
	if !enabled {
		log.Printf("no credentials found at %s: completion disabled", cfg.Credentials.Path)
	} else {
		go w.Run(ctx)

		debugSrv := server.New(sess, ctrl)
		httpSrv := &http.Server{Addr: ":8089", Handler: debugSrv}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("debug server error: %v", err)
			}
		}()
		defer httpSrv.Shutdown(ctx)

		creds, _, _ := auth.Load(cfg.Credentials.Path)
		chatClient := chat.New(http.DefaultClient, cfg.API.URL, creds)
		if err := chatClient.Session(ctx, sess.ID, schemaDigest); err != nil {
			log.Printf("failed to prime chat session: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		// The scanner below blocks on stdin, so exit from here rather than
		// waiting for the next line to be read.
		<-sigCh
		cancel()
		os.Exit(0)
	}()

	editor := lineedit.NewSimple(os.Stdout)
	renderer := render.New(os.Stdout, os.Stdin, int(os.Stdout.Fd()), editor)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("sqlcopilot demo REPL — type SQL, Ctrl+C to exit")

	for scanner.Scan() {
		line := scanner.Text()
		editor.Reset()
		editor.InsertAtCursor(line)

		var suggestion string
		if enabled {
			ctrl.OnEvent(line, len(line))
			suggestion = ctrl.Accept()
		}

		if err := renderer.Redisplay(suggestion); err != nil {
			log.Printf("redisplay error: %v", err)
		}
		fmt.Println()
	}
}
