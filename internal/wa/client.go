package wa

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
)

const credsDBFile = "whatsapp.db"

// Client drives one paired account: it owns the whatsmeow connection, its
// credential store and the lifecycle transitions for that session. It is the
// session's outbound transport as well.
type Client struct {
	sess    *session.Session
	manager *Manager

	wa        *whatsmeow.Client
	container *sqlstore.Container
	db        *sql.DB
	dir       string

	ctx    context.Context
	cancel context.CancelFunc
}

func newClient(m *Manager, sess *session.Session) (*Client, error) {
	dir := filepath.Join(m.cfg.SessionsDir, sess.ID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	dbPath := filepath.Join(dir, credsDBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open credential db: %w", err)
	}

	storeLog := &waLogger{module: "store/" + sess.ID}
	container := sqlstore.NewWithDB(db, "sqlite3", storeLog)
	if err := container.Upgrade(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("upgrade credential store: %w", err)
	}

	device, err := container.GetFirstDevice(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("get device: %w", err)
	}

	clientLog := &waLogger{module: "client/" + sess.ID}
	wac := whatsmeow.NewClient(device, clientLog)
	// Reconnects go through the state machine so the delay and the
	// logged-out terminal state stay observable.
	wac.EnableAutoReconnect = false

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		sess:      sess,
		manager:   m,
		wa:        wac,
		container: container,
		db:        db,
		dir:       dir,
		ctx:       ctx,
		cancel:    cancel,
	}
	wac.AddEventHandler(c.handleEvent)
	return c, nil
}

// connect establishes the socket, entering the pairing flow first when the
// device has no stored identity.
func (c *Client) connect() {
	if c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(c.ctx)
		if err != nil {
			if !errors.Is(err, whatsmeow.ErrQRStoreContainsID) {
				L_error("wa: qr channel failed", "session", c.sess.ID, "error", err)
			}
		} else {
			go c.watchQR(qrChan)
		}
	}

	if err := c.wa.Connect(); err != nil {
		L_error("wa: connect failed", "session", c.sess.ID, "error", err)
		c.applyEvent(session.EventClosed{})
	}
}

// watchQR publishes each pairing challenge and renders it for the operator.
func (c *Client) watchQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case "code":
			c.applyEvent(session.EventPairingCode{Code: item.Code})
			fmt.Printf("\nSession %s: scan the QR code below with WhatsApp > Linked Devices\n\n", c.sess.ID)
			qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, os.Stdout)
		case "success":
			L_info("wa: pairing accepted, completing sync", "session", c.sess.ID)
		case "timeout":
			L_warn("wa: pairing code expired", "session", c.sess.ID)
		default:
			L_warn("wa: pairing ended", "session", c.sess.ID, "event", item.Event)
		}
	}
}

// applyEvent runs one transition and performs its effects.
func (c *Client) applyEvent(ev session.Event) {
	c.sess.Mu.Lock()
	next, eff := session.Transition(c.sess.Status, ev)
	prev := c.sess.Status
	c.sess.Status = next
	if eff.StorePairingCode {
		if pc, ok := ev.(session.EventPairingCode); ok {
			c.sess.PairingCode = pc.Code
		}
	}
	if eff.ClearPairingCode {
		c.sess.PairingCode = ""
	}
	c.sess.Mu.Unlock()

	if prev != next {
		L_info("wa: session status", "session", c.sess.ID, "from", prev, "to", next)
	}

	if eff.PersistCreds {
		if err := c.wa.Store.Save(c.ctx); err != nil {
			L_warn("wa: credential save failed", "session", c.sess.ID, "error", err)
		}
	}
	if eff.InvalidateCreds {
		go c.invalidateCreds()
	}
	if eff.ScheduleReconnect {
		go c.reconnectLater()
	}
}

func (c *Client) reconnectLater() {
	select {
	case <-c.ctx.Done():
		return
	case <-time.After(c.manager.reconnectDelay):
	}
	L_info("wa: reconnecting", "session", c.sess.ID)
	c.connect()
}

// invalidateCreds wipes the stored device identity after a logout. The
// session stays registered in logged_out state until the operator resets it.
func (c *Client) invalidateCreds() {
	devices, err := c.container.GetAllDevices(c.ctx)
	if err != nil {
		L_warn("wa: device list failed during logout", "session", c.sess.ID, "error", err)
		return
	}
	for _, d := range devices {
		if err := d.Delete(c.ctx); err != nil {
			L_warn("wa: device delete failed", "session", c.sess.ID, "error", err)
		}
	}
	L_warn("wa: logged out, stored credentials cleared", "session", c.sess.ID)
}

func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		c.handleMessage(v)
	case *events.Connected:
		c.applyEvent(session.EventOpened{})
	case *events.Disconnected:
		c.applyEvent(session.EventClosed{})
	case *events.LoggedOut:
		L_error("wa: logged out by server", "session", c.sess.ID, "reason", v.Reason)
		c.applyEvent(session.EventClosed{LoggedOut: true})
	case *events.StreamReplaced:
		L_warn("wa: stream replaced by another connection", "session", c.sess.ID)
		c.applyEvent(session.EventClosed{})
	case *events.StreamError:
		L_warn("wa: stream error", "session", c.sess.ID, "code", v.Code)
		c.applyEvent(session.EventClosed{})
	}
}

// handleMessage feeds an inbound text into the admin router or the reply
// pipeline. Group chats, own messages and non-text payloads are dropped.
func (c *Client) handleMessage(evt *events.Message) {
	text := extractText(evt.Message)
	if !shouldHandle(evt.Info, text) {
		return
	}

	chatID := evt.Info.Chat.String()
	senderJID := evt.Info.Sender.ToNonAD().String()
	L_debug("wa: message received", "session", c.sess.ID, "chat", chatID, "len", len(text))

	if c.manager.admin.Handle(c.ctx, c.sess, c, senderJID, chatID, text) {
		return
	}

	c.manager.dispatcher.Enqueue(c.ctx, c.sess, c, chatID, text)
}

// shouldHandle decides whether an inbound message enters the pipeline.
// Only our own echoes and payloads without usable text are skipped; group
// chats go through the same pipeline as direct ones.
func shouldHandle(info types.MessageInfo, text string) bool {
	if info.IsFromMe {
		return false
	}
	return strings.TrimSpace(text) != ""
}

// extractText pulls the usable text out of a message payload.
func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		if t := doc.GetCaption(); t != "" {
			return t
		}
		return doc.GetFileName()
	}
	return ""
}

// SendText implements the outbound transport.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	jid, err := parseDestination(chatID)
	if err != nil {
		return err
	}
	_, err = c.wa.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	return err
}

// SendContact delivers a vCard as a contact card.
func (c *Client) SendContact(ctx context.Context, chatID, displayName, vcard string) error {
	jid, err := parseDestination(chatID)
	if err != nil {
		return err
	}
	_, err = c.wa.SendMessage(ctx, jid, buildContactMessage(displayName, vcard))
	return err
}

func buildContactMessage(displayName, vcard string) *waE2E.Message {
	if displayName == "" {
		displayName = "Contacto"
	}
	return &waE2E.Message{
		ContactMessage: &waE2E.ContactMessage{
			DisplayName: proto.String(displayName),
			Vcard:       proto.String(vcard),
		},
	}
}

// SendPresence implements the outbound transport. Presence failures are not
// worth surfacing; the reply itself is what matters.
func (c *Client) SendPresence(ctx context.Context, chatID string, composing bool) {
	jid, err := parseDestination(chatID)
	if err != nil {
		return
	}
	state := types.ChatPresencePaused
	if composing {
		state = types.ChatPresenceComposing
	}
	if err := c.wa.SendChatPresence(ctx, jid, state, types.ChatPresenceMediaText); err != nil {
		L_debug("wa: presence failed", "session", c.sess.ID, "error", err)
	}
}

// disconnect tears down the socket and closes the credential db.
func (c *Client) disconnect() {
	c.cancel()
	c.wa.Disconnect()
	if err := c.db.Close(); err != nil {
		L_warn("wa: credential db close failed", "session", c.sess.ID, "error", err)
	}
}

// logout asks the server to unlink the device. Best-effort: a dead socket
// must not block a reset.
func (c *Client) logout() {
	if err := c.wa.Logout(c.ctx); err != nil {
		L_warn("wa: logout failed", "session", c.sess.ID, "error", err)
	}
}

// parseDestination accepts either a full JID or a bare phone number.
func parseDestination(to string) (types.JID, error) {
	if strings.Contains(to, "@") {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("invalid jid %q: %w", to, err)
		}
		return jid, nil
	}
	if to == "" {
		return types.EmptyJID, fmt.Errorf("empty destination")
	}
	return types.NewJID(to, types.DefaultUserServer), nil
}
