package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"plate-api/api/internal/config"
	"plate-api/api/internal/detect"
	"plate-api/api/internal/ocr"
	"plate-api/api/internal/ocr/gemini"
	"plate-api/api/internal/ocr/openai"
	"plate-api/api/internal/pipeline"
)

var httpc = &http.Client{Timeout: 60 * time.Second}

func main() {
	cfg := config.Load()
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("create upload dir %s: %v", cfg.UploadDir, err)
	}

	engines := &ocr.Engines{}
	if cfg.OpenAIAPIKey != "" {
		engines.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	if cfg.GeminiAPIKey != "" {
		engines.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	engine, err := engines.GetEngine(cfg.ExtractionEngine)
	if err != nil {
		log.Fatalf("select extraction engine: %v", err)
	}

	var detector detect.Detector = detect.Passthrough{}
	if cfg.YOLOConfig != "" && cfg.YOLOWeights != "" {
		detector = detect.NewYOLODetector(cfg.YOLOConfig, cfg.YOLOWeights, cfg.YOLOConfThreshold)
	}

	pipe := pipeline.New(detector, engine, nil)

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	b := &plateBot{bot: bot, pipe: pipe, token: cfg.TelegramBotToken, uploadDir: cfg.UploadDir}

	log.Printf("plate bot polling as @%s (engine=%s)", bot.Self.UserName, engine.Name())
	runPolling(context.Background(), bot, b.handleUpdate)
}

type plateBot struct {
	bot       *tgbotapi.BotAPI
	pipe      *pipeline.Service
	token     string
	uploadDir string
}

func (b *plateBot) handleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		switch upd.Message.Command() {
		case "start":
			b.send(cid, "Send me a vehicle photo and I will read its license plate. Commands: /health")
		case "health":
			b.send(cid, "OK: plate recognition pipeline is up")
		default:
			b.send(cid, "Unknown command")
		}
		return
	}

	if len(upd.Message.Photo) > 0 {
		b.send(cid, "Got the photo, processing…")
		b.handlePhoto(cid, upd.Message.Photo[len(upd.Message.Photo)-1])
	}
}

func (b *plateBot) handlePhoto(cid int64, ph tgbotapi.PhotoSize) {
	tf, err := b.bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		b.send(cid, "Could not fetch the file: "+err.Error())
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.token, tf.FilePath)
	img, err := download(url)
	if err != nil {
		b.send(cid, "Could not download the photo: "+err.Error())
		return
	}

	f, err := os.CreateTemp(b.uploadDir, "tg_*.jpg")
	if err != nil {
		b.send(cid, "Internal error: "+err.Error())
		return
	}
	if _, err := f.Write(img); err != nil {
		f.Close()
		os.Remove(f.Name())
		b.send(cid, "Internal error: "+err.Error())
		return
	}
	f.Close()

	// the pipeline owns the temp file from here on
	res := b.pipe.Recognize(context.Background(), f.Name())
	if !res.OK {
		b.send(cid, "Could not read the plate ("+string(res.Fail)+"): "+res.Message)
		return
	}
	b.send(cid, fmt.Sprintf("Plate: %s | %s | %s\n(model: %s, tokens: %d)",
		res.Plate.LeftNumber, res.Plate.MiddleText, res.Plate.RightNumber,
		res.Model, res.Usage.TotalTokens))
}

func (b *plateBot) send(chatID int64, text string) {
	_, _ = b.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func download(url string) ([]byte, error) {
	resp, err := httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		x, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(x))
	}
	return io.ReadAll(resp.Body)
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Printf("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Printf("polling error: %v; retry in %v", err, d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}
