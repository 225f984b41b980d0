package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/loa-kakao-bot/internal/adapter/loapresenter"
	appcfg "github.com/park285/loa-kakao-bot/internal/config"
	"github.com/park285/loa-kakao-bot/internal/irisfast"
	"github.com/park285/loa-kakao-bot/internal/loabuilder"
	"github.com/park285/loa-kakao-bot/internal/msgcat"
	"github.com/park285/loa-kakao-bot/internal/obslog"
	svcloa "github.com/park285/loa-kakao-bot/internal/service/loa"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XUserEmail != "" {
			h["X-User-Email"] = cfg.XUserEmail
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}

	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithMaxConnsPerHost(32),
		irisfast.WithLogger(logger),
	)
	probeIris(client, logger)

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.SetLogger(logger)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", state.String()))
	})
	egress := irisfast.NewEgress(cfg.IrisTransport, false, client, ws, logger)

	deps, err := loabuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("loa init error", zap.Error(err))
	}
	defer deps.Close()

	catalog, err := msgcat.New(cfg.LoaMessagesDir)
	if err != nil {
		logger.Fatal("message catalog error", zap.Error(err))
	}

	presenter := loapresenter.NewPresenter(
		func(room, message string) error {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			return egress.SendText(ctx, room, message)
		},
		func(room, imageBase64 string) error {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			return egress.SendImage(ctx, room, imageBase64)
		},
	)
	r := &router{
		service:   deps.Service,
		presenter: presenter,
		formatter: loapresenter.NewFormatter(prefixProvider{prefix: cfg.BotPrefix}, catalog),
		logger:    logger,
	}
	deps.Service.SetListener(svcloa.ListenerFunc(r.onEvent))

	ws.OnMessage(func(msg *irisfast.Message) {
		if msg == nil || msg.Msg == "" {
			return
		}
		if len(cfg.AllowedRooms) > 0 && !roomAllowed(cfg.AllowedRooms, msg.Room) {
			return
		}
		sub, args, ok := parseCommand(msg.Msg, cfg.BotPrefix)
		if !ok {
			return
		}
		meta := svcloa.SessionMeta{
			SessionID: sessionIDFor(msg),
			Room:      msg.Room,
			Sender:    msg.SenderName(),
		}
		// Avoid blocking the WS loop
		go r.handle(msg.Room, meta, sub, args)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		logger.Fatal("ws connect error", zap.Error(err))
	}
	cancel()
	logger.Info("loa bot started",
		zap.String("prefix", cfg.BotPrefix),
		zap.String("transport", irisfast.ParseTransport(cfg.IrisTransport)),
		zap.Int("default_level", cfg.LoaDefaultLevel),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := ws.Close(closeCtx); err != nil {
		logger.Warn("ws close error", zap.Error(err))
	}
}

func probeIris(client *irisfast.Client, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg, err := client.GetConfig(ctx)
	if err != nil {
		logger.Warn("iris /config probe failed", zap.Error(err))
		return
	}
	logger.Info("iris /config ok",
		zap.Int("port", cfg.Port),
		zap.Int("polling_speed", cfg.PollingSpeed),
		zap.Int("message_rate", cfg.MessageRate),
	)
}

func roomAllowed(allowed []string, room string) bool {
	for _, r := range allowed {
		if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(room)) {
			return true
		}
	}
	return false
}

func sessionIDFor(msg *irisfast.Message) string {
	uid := msg.UserID()
	if uid == "" {
		uid = "player"
	}
	return fmt.Sprintf("%s:%s", strings.TrimSpace(msg.Room), strings.TrimSpace(uid))
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }
