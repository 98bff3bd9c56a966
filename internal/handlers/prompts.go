package handlers

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
)

// DefaultPromptTimeout is how long a mood prompt waits for its reply.
const DefaultPromptTimeout = 5 * time.Minute

// Prompt is a pending request for one mood text.
type Prompt struct {
	Instance registry.Instance
	Day      models.Weekday
	Slot     models.Slot
}

type pendingPrompt struct {
	prompt Prompt
	timer  clockwork.Timer
	seq    uint64
}

// Prompts owns the pending mood prompts, at most one per user. A newer prompt for
// the same user replaces the older one; an unanswered prompt expires silently.
type Prompts struct {
	client  chat.Client
	clock   clockwork.Clock
	timeout time.Duration
	log     *logger.Logger

	mu      sync.Mutex
	seq     uint64
	pending map[int64]*pendingPrompt
}

func NewPrompts(client chat.Client, clock clockwork.Clock, timeout time.Duration, log *logger.Logger) *Prompts {
	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}
	return &Prompts{
		client:  client,
		clock:   clock,
		timeout: timeout,
		log:     log,
		pending: map[int64]*pendingPrompt{},
	}
}

// Start sends text to the user's private chat and waits for one reply.
func (p *Prompts) Start(ctx context.Context, userID int64, pr Prompt, text string) error {
	if err := p.client.SendPrivate(ctx, userID, text, nil); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.pending[userID]; ok {
		old.timer.Stop()
	}
	p.seq++
	seq := p.seq
	p.pending[userID] = &pendingPrompt{
		prompt: pr,
		seq:    seq,
		timer:  p.clock.AfterFunc(p.timeout, func() { p.expire(userID, seq) }),
	}
	return nil
}

func (p *Prompts) expire(userID int64, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.pending[userID]; ok && cur.seq == seq {
		delete(p.pending, userID)
		p.log.Debugw("mood prompt expired", "user_id", userID, "instance", cur.prompt.Instance.Key)
	}
}

// Take removes and returns the pending prompt of userID.
func (p *Prompts) Take(userID int64) (Prompt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.pending[userID]
	if !ok {
		return Prompt{}, false
	}
	cur.timer.Stop()
	delete(p.pending, userID)
	return cur.prompt, true
}

// Pending reports whether userID has an open prompt.
func (p *Prompts) Pending(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[userID]
	return ok
}

func encouragement() string {
	return encouragements[rand.IntN(len(encouragements))]
}
