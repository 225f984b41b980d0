// Command irischeck verifies the Iris bridge the bot depends on: it probes
// /config, connects the WebSocket, prints incoming messages for a while and
// can send one test reply.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/loa-kakao-bot/internal/irisfast"
	"github.com/park285/loa-kakao-bot/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	room := flag.String("room", "", "room to send a test reply to")
	text := flag.String("text", "loa irischeck", "test reply text")
	transport := flag.String("transport", os.Getenv("IRIS_TRANSPORT"), "reply transport: http, ws or auto")
	dryrun := flag.Bool("dryrun", false, "log ws replies instead of sending them")
	window := flag.Duration("window", 10*time.Second, "how long to print incoming messages")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	baseURL := strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	if baseURL == "" {
		logger.Fatal("IRIS_BASE_URL is required")
	}
	headers := func() map[string]string {
		m := map[string]string{}
		for header, key := range map[string]string{"X-User-Id": "X_USER_ID", "X-User-Email": "X_USER_EMAIL", "X-Session-Id": "X_SESSION_ID"} {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				m[header] = v
			}
		}
		return m
	}

	client := irisfast.NewClient(baseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithTimeout(8*time.Second),
		irisfast.WithLogger(logger),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	cfg, err := client.GetConfig(ctx)
	cancel()
	if err != nil {
		logger.Error("/config failed", zap.Error(err))
	} else {
		logger.Info("/config ok",
			zap.Int("port", cfg.Port),
			zap.Int("polling_speed", cfg.PollingSpeed),
			zap.Int("message_rate", cfg.MessageRate),
			zap.String("endpoint", cfg.WebserverEndpoint),
		)
	}

	var ws *irisfast.WebSocket
	if wsURL == "" {
		logger.Info("IRIS_WS_URL not set; skipping WS check")
	} else {
		ws = irisfast.NewWebSocket(wsURL, 0, time.Second)
		ws.SetHeaderProvider(headers)
		ws.SetLogger(logger)
		ws.OnStateChange(func(state irisfast.WebSocketState) {
			logger.Info("ws_state", zap.String("state", state.String()))
		})
		ws.OnMessage(func(msg *irisfast.Message) {
			fmt.Printf("WS msg room=%s from=%s text=%q\n", msg.Room, msg.SenderName(), msg.Msg)
		})
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := ws.Connect(cctx)
		ccancel()
		if err != nil {
			logger.Error("ws connect failed", zap.Error(err))
			ws = nil
		}
	}

	if *room != "" {
		egress := irisfast.NewEgress(*transport, *dryrun, client, ws, logger)
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := egress.SendText(sctx, *room, *text); err != nil {
			logger.Error("test reply failed", zap.String("room", *room), zap.Error(err))
		} else {
			logger.Info("test reply sent", zap.String("room", *room), zap.String("transport", irisfast.ParseTransport(*transport)))
		}
		scancel()
	}

	if ws == nil {
		return
	}
	time.Sleep(*window)
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCancel()
	_ = ws.Close(closeCtx)
}
