package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pxlapp/sqlcopilot/internal/session"
	"github.com/pxlapp/sqlcopilot/internal/sse"
)

func newTestController(t *testing.T) (*Controller, *session.Session) {
	t.Helper()
	sess, err := session.New("schema")
	require.NoError(t, err)
	return New(sess, DefaultPrimeThreshold), sess
}

func strp(s string) *string { return &s }

func TestOnEvent_ShortPrefixPrimes_LongerPrefixCompletes(t *testing.T) {
	c, sess := newTestController(t)

	// "SEL" — 3 chars, not yet primed: primes.
	c.OnEvent("SEL", 3)
	req := c.GetRequest()
	assert.Equal(t, ModePrime, req.Mode)
	assert.True(t, sess.Primed)
	firstGen := req.Generation

	// "SELECT" — 6 chars, already primed: the change bumps to prime again
	// because cursorEnd > threshold, then the unchanged-input branch would
	// switch prime->completion on the next tick with no further typing.
	c.OnEvent("SELECT", 6)
	req = c.GetRequest()
	assert.Equal(t, ModePrime, req.Mode)
	assert.Greater(t, req.Generation, firstGen)

	// No further typing: prime -> completion transition.
	redraw := c.OnEvent("SELECT", 6)
	req = c.GetRequest()
	assert.Equal(t, ModeCompletion, req.Mode)
	_ = redraw
}

func TestOnEvent_RapidTypingAdvancesGenerationAtLeastOncePerChange(t *testing.T) {
	c, _ := newTestController(t)

	seen := []uint64{}
	prefixes := []string{"S", "SE", "SEL", "SELE", "SELEC", "SELECT"}
	for i, p := range prefixes {
		c.OnEvent(p, i+1)
		seen = append(seen, c.Generation())
	}

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.GreaterOrEqual(t, seen[len(seen)-1], uint64(len(prefixes)))
}

func TestAccept_SplicesAndClearsWithoutBumpingGeneration(t *testing.T) {
	c, _ := newTestController(t)
	c.OnEvent("SELECT", 6)
	genBefore := c.Generation()

	c.OnToken(genBefore, sse.Event{Token: strp(" FROM users")})

	out := c.Accept()
	assert.Equal(t, " FROM users", out)
	assert.Equal(t, genBefore, c.Generation())

	// Suggestion buffer is now empty; GetRequest's prompt is unaffected
	// (Accept only clears the suggestion, not the input).
	req := c.GetRequest()
	assert.Equal(t, "SELECT", req.Prompt)
}

func TestOnToken_StaleGenerationDiscarded(t *testing.T) {
	c, _ := newTestController(t)
	c.OnEvent("SELECT", 6)
	staleGen := c.Generation()

	// Advance the generation again (simulating another keystroke) before
	// the stale token arrives.
	c.OnEvent("SELECT ", 7)
	assert.Greater(t, c.Generation(), staleGen)

	c.OnToken(staleGen, sse.Event{Token: strp("ignored")})

	assert.Empty(t, c.Accept())
}

func TestOnEvent_SlashCommandNeverGeneratesARequest(t *testing.T) {
	c, _ := newTestController(t)

	genBefore := c.Generation()
	redraw := c.OnEvent(`\d+ users`, 9)
	assert.False(t, redraw)
	assert.Equal(t, genBefore, c.Generation())
}

func TestOnEvent_SlashCommandAfterLeadingWhitespace(t *testing.T) {
	c, _ := newTestController(t)

	genBefore := c.Generation()
	c.OnEvent("   \\timing", 9)
	assert.Equal(t, genBefore, c.Generation())
}

func TestOnEvent_InputChangeInvalidatesSuggestionBuffer(t *testing.T) {
	c, _ := newTestController(t)
	c.OnEvent("SELECT", 6)
	c.OnToken(c.Generation(), sse.Event{Token: strp(" FROM users")})
	require.NotEmpty(t, c.Accept())

	// Re-seed some suggestion text then change the input; the buffer must
	// be empty again before the next redraw decision is returned.
	c.OnToken(c.Generation(), sse.Event{Token: strp(" FROM users")})
	c.OnEvent("SELECT *", 8)
	assert.Empty(t, c.Accept())
}

func TestWaitForGeneration_WakesOnBump(t *testing.T) {
	c, _ := newTestController(t)

	done := make(chan uint64, 1)
	go func() {
		g, err := c.WaitForGeneration(context.Background(), 0)
		if err == nil {
			done <- g
		}
	}()

	time.Sleep(10 * time.Millisecond)
	c.OnEvent("SEL", 3)

	select {
	case g := <-done:
		assert.Greater(t, g, uint64(0))
	case <-time.After(time.Second):
		t.Fatal("WaitForGeneration did not wake up")
	}
}

func TestWaitForGeneration_RespectsContextCancellation(t *testing.T) {
	c, _ := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.WaitForGeneration(ctx, 0)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	c.Wake()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForGeneration did not observe cancellation")
	}
}
