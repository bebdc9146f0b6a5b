package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	// the last size is the largest
	ph := msg.Photo[len(msg.Photo)-1]
	r.acceptFile(msg.Chat.ID, ph.FileID, "")
}

// acceptDocument handles images sent as files. Telegram does not filter
// documents, so anything can arrive here; the controller validates it.
func (r *Router) acceptDocument(msg tgbotapi.Message) {
	r.acceptFile(msg.Chat.ID, msg.Document.FileID, msg.Document.FileName)
}

func (r *Router) acceptFile(cid int64, fileID, name string) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		log.Printf("telegram: get file chat=%d: %v", cid, err)
		r.SendError(cid, fmt.Errorf("could not fetch the file from Telegram"))
		return
	}
	ctx, cancel := context.WithTimeout(r.baseCtx(), 60*time.Second)
	defer cancel()
	data, err := r.download(ctx, url)
	if err != nil {
		log.Printf("telegram: download chat=%d: %v", cid, err)
		r.SendError(cid, fmt.Errorf("could not download the file"))
		return
	}

	s := r.session(cid)
	if err := s.ctl.SelectFile(upload.FromBytes(name, data)); err != nil {
		r.SendError(cid, err)
		return
	}
	r.sendPanel(cid, s)
}

// download reads at most MaxDownload+1 bytes so an oversized file still
// reaches validation and is rejected there.
func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	limit := r.MaxDownload
	if limit <= 0 {
		limit = upload.DefaultMaxBytes
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit+1))
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
