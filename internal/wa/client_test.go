package wa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

func TestShouldHandle(t *testing.T) {
	direct := types.MessageInfo{MessageSource: types.MessageSource{
		Chat: types.NewJID("51987654321", types.DefaultUserServer),
	}}
	group := types.MessageInfo{MessageSource: types.MessageSource{
		Chat:    types.NewJID("120363041234567890", types.GroupServer),
		IsGroup: true,
	}}
	fromMe := types.MessageInfo{MessageSource: types.MessageSource{
		Chat:     direct.Chat,
		IsFromMe: true,
	}}

	tests := []struct {
		name string
		info types.MessageInfo
		text string
		want bool
	}{
		{"direct chat with text", direct, "hola", true},
		{"group chat with text", group, "hola grupo", true},
		{"own echo skipped", fromMe, "hola", false},
		{"own echo in group skipped", types.MessageInfo{MessageSource: types.MessageSource{Chat: group.Chat, IsGroup: true, IsFromMe: true}}, "hola", false},
		{"empty text skipped", direct, "", false},
		{"whitespace only skipped", direct, "  \n ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldHandle(tt.info, tt.text); got != tt.want {
				t.Errorf("shouldHandle = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDestination(t *testing.T) {
	tests := []struct {
		name    string
		to      string
		want    string
		wantErr bool
	}{
		{"full jid", "51999000111@s.whatsapp.net", "51999000111@s.whatsapp.net", false},
		{"bare phone", "51999000111", "51999000111@s.whatsapp.net", false},
		{"group jid", "12036304@g.us", "12036304@g.us", false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jid, err := parseDestination(tt.to)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDestination(%q) succeeded, want error", tt.to)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDestination(%q): %v", tt.to, err)
			}
			if jid.String() != tt.want {
				t.Fatalf("parseDestination(%q) = %q, want %q", tt.to, jid.String(), tt.want)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil message", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hola")}, "hola"},
		{
			"extended text",
			&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("con enlace")}},
			"con enlace",
		},
		{
			"image caption",
			&waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("mira esto")}},
			"mira esto",
		},
		{
			"document caption",
			&waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{Caption: proto.String("informe")}},
			"informe",
		},
		{
			"document filename fallback",
			&waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{FileName: proto.String("informe.pdf")}},
			"informe.pdf",
		},
		{"image without caption", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.msg); got != tt.want {
				t.Fatalf("extractText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindToMediaType(t *testing.T) {
	tests := []struct {
		kind string
		mime string
		want whatsmeow.MediaType
	}{
		{"image", "", whatsmeow.MediaImage},
		{"video", "", whatsmeow.MediaVideo},
		{"audio", "", whatsmeow.MediaAudio},
		{"document", "", whatsmeow.MediaDocument},
		{"", "image/png", whatsmeow.MediaImage},
		{"", "audio/ogg", whatsmeow.MediaAudio},
		{"", "application/pdf", whatsmeow.MediaDocument},
	}

	for _, tt := range tests {
		if got := kindToMediaType(tt.kind, tt.mime); got != tt.want {
			t.Fatalf("kindToMediaType(%q, %q) = %v, want %v", tt.kind, tt.mime, got, tt.want)
		}
	}
}

func TestFetchMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image":
			w.Header().Set("Content-Type", "image/png; charset=binary")
			w.Write([]byte("png-bytes"))
		case "/untyped":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte("%PDF-1.4 something"))
		case "/missing":
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	data, mime, err := fetchMedia(context.Background(), srv.URL+"/image")
	if err != nil {
		t.Fatalf("fetchMedia: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("data = %q", data)
	}
	if mime != "image/png" {
		t.Fatalf("mime = %q, want image/png (parameters stripped)", mime)
	}

	_, mime, err = fetchMedia(context.Background(), srv.URL+"/untyped")
	if err != nil {
		t.Fatalf("fetchMedia untyped: %v", err)
	}
	if strings.Contains(mime, "octet-stream") {
		t.Fatalf("mime = %q, want sniffed type", mime)
	}

	if _, _, err := fetchMedia(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("fetchMedia on 404 succeeded, want error")
	}
}

func TestBuildContactMessage(t *testing.T) {
	vcard := "BEGIN:VCARD\nVERSION:3.0\nFN:Juan\nEND:VCARD"

	msg := buildContactMessage("Juan Perez", vcard)
	if got := msg.GetContactMessage().GetDisplayName(); got != "Juan Perez" {
		t.Errorf("display name = %q", got)
	}
	if got := msg.GetContactMessage().GetVcard(); got != vcard {
		t.Errorf("vcard = %q", got)
	}

	// Empty display name falls back to a generic label.
	msg = buildContactMessage("", vcard)
	if got := msg.GetContactMessage().GetDisplayName(); got != "Contacto" {
		t.Errorf("default display name = %q, want Contacto", got)
	}
}

func TestBuildMediaMessageShapes(t *testing.T) {
	resp := &whatsmeow.UploadResponse{}

	msg := buildMediaMessage(MediaSpec{Kind: "image", Caption: "pic"}, "image/jpeg", resp, 10)
	if msg.ImageMessage == nil || msg.ImageMessage.GetCaption() != "pic" {
		t.Fatalf("image message = %v", msg)
	}

	msg = buildMediaMessage(MediaSpec{Kind: "audio", PTT: true}, "audio/ogg", resp, 10)
	if msg.AudioMessage == nil || !msg.AudioMessage.GetPTT() {
		t.Fatalf("audio message = %v", msg)
	}

	msg = buildMediaMessage(MediaSpec{Kind: "document", Filename: "report.pdf"}, "application/pdf", resp, 10)
	if msg.DocumentMessage == nil || msg.DocumentMessage.GetFileName() != "report.pdf" {
		t.Fatalf("document message = %v", msg)
	}

	msg = buildMediaMessage(MediaSpec{Kind: "document"}, "application/zip", resp, 10)
	if msg.DocumentMessage.GetFileName() == "" {
		t.Fatal("document without filename should get a placeholder name")
	}
}
