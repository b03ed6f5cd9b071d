package wa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"

	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
)

const (
	maxMediaBytes     = 64 << 20
	mediaFetchTimeout = 30 * time.Second
)

// MediaSpec describes an outbound media message from the control plane. The
// payload is fetched from URL at send time.
type MediaSpec struct {
	To       string
	Kind     string // image, video, audio, document
	URL      string
	Caption  string
	Filename string // document name
	PTT      bool   // audio only: deliver as a voice note
}

var mediaFetchClient = &http.Client{Timeout: mediaFetchTimeout}

// SendMediaURL downloads the payload, uploads it to WhatsApp's media servers
// and sends the resulting message.
func (c *Client) SendMediaURL(ctx context.Context, spec MediaSpec) error {
	jid, err := parseDestination(spec.To)
	if err != nil {
		return err
	}

	data, mimeType, err := fetchMedia(ctx, spec.URL)
	if err != nil {
		return fmt.Errorf("fetch media: %w", err)
	}
	L_debug("wa: media fetched", "session", c.sess.ID, "bytes", len(data), "mime", mimeType)

	resp, err := c.wa.Upload(ctx, data, kindToMediaType(spec.Kind, mimeType))
	if err != nil {
		return fmt.Errorf("upload media: %w", err)
	}

	msg := buildMediaMessage(spec, mimeType, &resp, uint64(len(data)))
	_, err = c.wa.SendMessage(ctx, jid, msg)
	return err
}

func fetchMedia(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := mediaFetchClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxMediaBytes {
		return nil, "", fmt.Errorf("payload exceeds %d bytes", maxMediaBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// buildMediaMessage creates the proto message for a media upload.
func buildMediaMessage(spec MediaSpec, mimeType string, resp *whatsmeow.UploadResponse, fileLength uint64) *waE2E.Message {
	switch spec.Kind {
	case "image":
		return &waE2E.Message{
			ImageMessage: &waE2E.ImageMessage{
				Caption:       proto.String(spec.Caption),
				Mimetype:      proto.String(mimeType),
				URL:           &resp.URL,
				DirectPath:    &resp.DirectPath,
				MediaKey:      resp.MediaKey,
				FileEncSHA256: resp.FileEncSHA256,
				FileSHA256:    resp.FileSHA256,
				FileLength:    &fileLength,
			},
		}
	case "video":
		return &waE2E.Message{
			VideoMessage: &waE2E.VideoMessage{
				Caption:       proto.String(spec.Caption),
				Mimetype:      proto.String(mimeType),
				URL:           &resp.URL,
				DirectPath:    &resp.DirectPath,
				MediaKey:      resp.MediaKey,
				FileEncSHA256: resp.FileEncSHA256,
				FileSHA256:    resp.FileSHA256,
				FileLength:    &fileLength,
			},
		}
	case "audio":
		return &waE2E.Message{
			AudioMessage: &waE2E.AudioMessage{
				PTT:           proto.Bool(spec.PTT),
				Mimetype:      proto.String(mimeType),
				URL:           &resp.URL,
				DirectPath:    &resp.DirectPath,
				MediaKey:      resp.MediaKey,
				FileEncSHA256: resp.FileEncSHA256,
				FileSHA256:    resp.FileSHA256,
				FileLength:    &fileLength,
			},
		}
	default:
		filename := spec.Filename
		if filename == "" {
			filename = "document"
		}
		return &waE2E.Message{
			DocumentMessage: &waE2E.DocumentMessage{
				FileName:      proto.String(filename),
				Caption:       proto.String(spec.Caption),
				Mimetype:      proto.String(mimeType),
				URL:           &resp.URL,
				DirectPath:    &resp.DirectPath,
				MediaKey:      resp.MediaKey,
				FileEncSHA256: resp.FileEncSHA256,
				FileSHA256:    resp.FileSHA256,
				FileLength:    &fileLength,
			},
		}
	}
}

// kindToMediaType maps the declared kind to whatsmeow's upload type, falling
// back to the detected MIME type when the kind is unknown.
func kindToMediaType(kind, mimeType string) whatsmeow.MediaType {
	switch kind {
	case "image":
		return whatsmeow.MediaImage
	case "video":
		return whatsmeow.MediaVideo
	case "audio":
		return whatsmeow.MediaAudio
	case "document":
		return whatsmeow.MediaDocument
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return whatsmeow.MediaImage
	case strings.HasPrefix(mimeType, "video/"):
		return whatsmeow.MediaVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaDocument
	}
}
