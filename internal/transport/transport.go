// Package transport runs the single long-lived background goroutine that
// turns Controller generations into HTTP requests against the completion
// service: wait for a new generation, cancel whatever request is still in
// flight, issue the next one, and feed the streamed response into the
// controller one token at a time.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/pxlapp/sqlcopilot/internal/auth"
	"github.com/pxlapp/sqlcopilot/internal/controller"
	"github.com/pxlapp/sqlcopilot/internal/sse"
)

// completionRequestBody is the wire shape POSTed to the completion
// endpoint. requestId is the controller generation this request was
// issued for, so the server can tie a stream back to the change that
// triggered it; it is not a random correlation id. Prompt arrives already
// JSON-string-escaped from controller.Request, so it is embedded as a raw
// message rather than marshaled again.
type completionRequestBody struct {
	SessionID string          `json:"sessionId"`
	RequestID uint64          `json:"requestId"`
	Prompt    json.RawMessage `json:"prompt"`
	MaxTokens int             `json:"maxTokens"`
}

// Worker owns the HTTP client and the completion service's base URL, and
// drives the controller's generation loop for the lifetime of the
// process.
type Worker struct {
	client    *http.Client
	baseURL   string
	creds     auth.Credentials
	ctrl      *controller.Controller
	maxTokens int
	logger    *log.Logger
}

// New returns a Worker ready to be run. baseURL is the API root (e.g.
// "https://api.example.com/v1"); the completion endpoint path is appended
// to it. maxTokens is the max_tokens sent on real (non-prime) completion
// requests; priming requests always send 0.
func New(client *http.Client, baseURL string, creds auth.Credentials, ctrl *controller.Controller, maxTokens int, logger *log.Logger) *Worker {
	return &Worker{
		client:    client,
		baseURL:   baseURL,
		creds:     creds,
		ctrl:      ctrl,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Run blocks until ctx is done. It is meant to be started once, in its own
// goroutine, for the life of the process.
func (w *Worker) Run(ctx context.Context) {
	var lastActed uint64
	var cancelInFlight context.CancelFunc

	// Wake the generation wait when ctx is done so the loop can return.
	stopWake := context.AfterFunc(ctx, w.ctrl.Wake)
	defer stopWake()

	defer func() {
		if cancelInFlight != nil {
			cancelInFlight()
		}
	}()

	for {
		gen, err := w.ctrl.WaitForGeneration(ctx, lastActed)
		if err != nil {
			return
		}
		lastActed = gen

		if cancelInFlight != nil {
			cancelInFlight()
			cancelInFlight = nil
		}

		req := w.ctrl.GetRequest()
		if req.Mode == controller.ModeCancel {
			continue
		}

		reqCtx, cancel := context.WithCancel(ctx)
		cancelInFlight = cancel
		go w.issue(reqCtx, req)
	}
}

// issue performs one completion POST and streams the response into the
// controller until the body is exhausted, the request errors, or the
// controller's generation moves past req.Generation.
func (w *Worker) issue(ctx context.Context, req controller.Request) {
	maxTokens := w.maxTokens
	if req.Mode == controller.ModePrime {
		maxTokens = 0
	}

	body, err := json.Marshal(completionRequestBody{
		SessionID: req.SessionID,
		RequestID: req.Generation,
		Prompt:    json.RawMessage(`"` + req.Prompt + `"`),
		MaxTokens: maxTokens,
	})
	if err != nil {
		w.logger.Printf("transport: marshaling request: %v", err)
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/sql/completion", bytes.NewReader(body))
	if err != nil {
		w.logger.Printf("transport: building request: %v", err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if name, value := w.creds.Header(); name != "" {
		httpReq.Header.Set(name, value)
	}

	httpResp, err := w.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return // canceled by a newer generation; not an error worth logging
		}
		w.logger.Printf("transport: sending completion request: %v", err)
		return
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		w.logger.Printf("transport: completion endpoint returned status %d", httpResp.StatusCode)
		return
	}

	decoder := sse.New(func(ev sse.Event) {
		w.ctrl.OnToken(req.Generation, ev)
	})

	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return
		}
		if w.ctrl.Generation() != req.Generation {
			return
		}

		n, err := httpResp.Body.Read(buf)
		if n > 0 {
			if feedErr := decoder.Feed(buf[:n]); feedErr != nil {
				w.logger.Printf("transport: decoding completion stream: %v", feedErr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}
