package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nestfeed/client/internal/bootstrap"
	"github.com/nestfeed/client/internal/config"
	"github.com/nestfeed/client/internal/logging"
	"github.com/nestfeed/client/internal/model/chat"
	"github.com/nestfeed/client/internal/relay"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("配置加载失败: " + err.Error())
	}

	url := flag.String("url", cfg.Relay.URL, "中继 websocket 地址")
	token := flag.String("token", "", "用于 setup 的会话 token，留空则读取已保存的会话")
	to := flag.String("to", "", "发送测试消息的目标用户 ID")
	message := flag.String("message", "", "测试消息内容，需要同时指定 -to")
	listen := flag.Duration("listen", 30*time.Second, "发送后继续接收消息的时长，0 表示一直接收直到中断")
	debug := flag.Bool("debug", cfg.Debug, "输出调试日志")

	flag.Parse()

	logger, err := logging.New(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if envErr != nil {
		log.Debugf("无法加载 .env，改用系统环境变量: %v", envErr)
	}

	if (*to == "") != (strings.TrimSpace(*message) == "") {
		flag.Usage()
		log.Fatal("-to 与 -message 需要同时指定")
	}

	if *token == "" {
		*token, err = storedToken(cfg)
		if err != nil {
			log.Fatalf("读取会话失败，请先登录或通过 -token 指定: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *listen > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *listen)
		defer cancel()
	}

	if err := probe(ctx, logger, *url, *token, *to, *message, cfg.Relay); err != nil {
		log.Fatalf("中继测试失败: %v", err)
	}
}

// storedToken reads the token of the session nestctl or the gateway saved.
func storedToken(cfg *config.Config) (string, error) {
	core, err := bootstrap.New(cfg, nil)
	if err != nil {
		return "", err
	}
	defer core.Close()
	return core.Sessions.Token(context.Background())
}

func probe(ctx context.Context, logger *zap.Logger, url, token, to, message string, relayCfg config.RelayConfig) error {
	log := logger.Sugar()

	opts := relay.DefaultOptions()
	opts.HandshakeTimeout = relayCfg.HandshakeTimeout
	opts.PingInterval = relayCfg.PingInterval

	started := time.Now()
	client, err := relay.Dial(ctx, url, opts, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	log.Infof("已连接中继 %s，耗时 %s", url, time.Since(started).Round(time.Millisecond))

	client.OnMessage(func(msg chat.WireMessage) {
		log.Infof("收到消息: id=%s from=%s(%s) to=%s text=%q", msg.ID, msg.From.ID, msg.From.Name, msg.To.ID, msg.Message)
	})

	if err := client.Announce(token); err != nil {
		return err
	}
	log.Info("setup 已发送")

	if to != "" {
		if err := client.SendMessage(chat.OutboundMessage{From: token, To: to, Message: message}); err != nil {
			return err
		}
		log.Infof("测试消息已发送给 %s", to)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Info("接收时间结束")
		}
		return nil
	case <-client.Done():
		return errors.New("中继连接已断开")
	}
}
