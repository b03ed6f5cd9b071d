package dispatch

import (
	"context"
	"sync"

	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/pacer"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/resolver"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
)

// mailboxSize bounds the per-chat queue; a chat flooding faster than its
// pipeline drains loses the overflow rather than growing without bound.
const mailboxSize = 32

// Dispatcher fans inbound messages out to one mailbox goroutine per chat:
// pacing one chat never blocks another, while messages within a chat keep
// strict delivery order.
type Dispatcher struct {
	resolver *resolver.Resolver
	pacer    *pacer.Pacer
	guard    *Guard

	mu     sync.Mutex
	boxes  map[string]chan job
	closed bool
}

type job struct {
	ctx       context.Context
	sess      *session.Session
	transport pacer.Transport
	chatID    string
	text      string
}

// NewDispatcher wires the pipeline components together.
func NewDispatcher(res *resolver.Resolver, pace *pacer.Pacer, guard *Guard) *Dispatcher {
	return &Dispatcher{
		resolver: res,
		pacer:    pace,
		guard:    guard,
		boxes:    make(map[string]chan job),
	}
}

// Enqueue hands one inbound message to its chat's mailbox, starting the
// mailbox worker on first use. A full mailbox drops the message.
func (d *Dispatcher) Enqueue(ctx context.Context, sess *session.Session, transport pacer.Transport, chatID, text string) {
	key := sess.ID + "|" + chatID

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	box, ok := d.boxes[key]
	if !ok {
		box = make(chan job, mailboxSize)
		d.boxes[key] = box
		go d.worker(box)
	}

	// The send stays under d.mu: DropSession closes mailboxes while holding
	// the same lock, so a send can never race a close. The channel is
	// buffered and the send non-blocking, so the lock is held only briefly.
	dropped := false
	select {
	case box <- job{ctx: ctx, sess: sess, transport: transport, chatID: chatID, text: text}:
	default:
		dropped = true
	}
	d.mu.Unlock()

	if dropped {
		L_warn("dispatch: mailbox full, dropping message", "session", sess.ID, "chat", chatID)
	}
}

// DropSession closes every mailbox belonging to a session, stopping its
// workers once their queues drain.
func (d *Dispatcher) DropSession(sessionID string) {
	prefix := sessionID + "|"

	d.mu.Lock()
	defer d.mu.Unlock()
	for key, box := range d.boxes {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			close(box)
			delete(d.boxes, key)
		}
	}
}

func (d *Dispatcher) worker(box <-chan job) {
	for j := range box {
		d.process(j)
	}
}

// process runs the full pipeline for one message. Shared state (settings
// pointer, chat metadata) is touched only in short critical sections; all
// slow work happens outside the session lock.
func (d *Dispatcher) process(j job) {
	j.sess.Mu.Lock()
	st := j.sess.Settings
	meta := j.sess.Chat(j.chatID)
	allowed := d.guard.AllowInbound(j.text, meta, st.CooldownSeconds)

	sendWelcome := false
	if allowed && !meta.HasReceivedWelcome {
		meta.HasReceivedWelcome = true
		sendWelcome = st.WelcomeMessage != ""
	}
	j.sess.Mu.Unlock()

	if !allowed {
		L_debug("dispatch: repeated message within cooldown, skipping", "session", j.sess.ID, "chat", j.chatID)
		return
	}

	d.pacer.WaitHuman()

	// Welcome is a side message: sent before the resolved reply, not
	// instead of it.
	if sendWelcome {
		if err := j.transport.SendText(j.ctx, j.chatID, st.WelcomeMessage); err != nil {
			L_warn("dispatch: welcome send failed", "session", j.sess.ID, "chat", j.chatID, "error", err)
		}
	}

	reply, source := d.resolver.Resolve(j.ctx, j.text, st)
	if st.SourceIndicator {
		reply = resolver.TagSource(reply, source)
	}

	j.sess.Mu.Lock()
	allowedOut := d.guard.AllowOutbound(reply, meta, st.CooldownSeconds)
	j.sess.Mu.Unlock()

	if !allowedOut {
		L_debug("dispatch: duplicate reply within cooldown, suppressing", "session", j.sess.ID, "chat", j.chatID)
		return
	}

	if err := d.pacer.Send(j.ctx, j.transport, j.chatID, reply); err != nil {
		L_error("dispatch: send failed", "session", j.sess.ID, "chat", j.chatID, "error", err)
		return
	}

	j.sess.Mu.Lock()
	d.guard.RecordOutbound(reply, meta)
	j.sess.Mu.Unlock()

	L_info("dispatch: replied", "session", j.sess.ID, "chat", j.chatID, "source", source)
}
