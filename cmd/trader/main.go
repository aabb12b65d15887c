package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grid-trader-go/internal/config"
	"grid-trader-go/internal/engine"
	"grid-trader-go/internal/feed"
	"grid-trader-go/internal/logger"
	"grid-trader-go/internal/market"
	"grid-trader-go/internal/models"
	"grid-trader-go/internal/news"
	"grid-trader-go/internal/notify"
	"grid-trader-go/internal/reporter"
	"grid-trader-go/internal/server"
	"grid-trader-go/internal/state"
	"grid-trader-go/internal/strategy"

	"github.com/adshao/go-binance/v2"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	// 先用默认配置初始化日志，加载.env和配置文件时即可记录
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	// --- 加载 .env 文件 ---
	if err := godotenv.Load(); err != nil {
		logger.S().Info("未找到 .env 文件，将从系统环境变量中读取。")
	} else {
		logger.S().Info("成功从 .env 文件加载配置。")
	}

	// --- 加载 JSON 配置 ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("无法加载配置文件: %v", err)
	}

	// --- 使用文件中的配置重新初始化日志 ---
	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()
	log := logger.S()

	log.Infof("--- 启动网格交易 (%s @ %s) ---", cfg.Symbol, cfg.Exchange)

	// --- 状态存储 ---
	repo, err := state.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("初始化状态数据库失败: %v", err)
	}
	defer repo.Close()

	store, err := state.NewStore(repo, cfg, log)
	if err != nil {
		log.Fatalf("初始化状态存储失败: %v", err)
	}

	// --- 行情来源 ---
	testFeed := feed.NewTestFeed(cfg.TestStartPrice, cfg.TestVol)

	var (
		liveFeed      feed.PriceFeed
		stream        *feed.Stream
		binanceClient *binance.Client
	)
	switch cfg.Exchange {
	case "binance":
		binanceClient = binance.NewClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_SECRET_KEY"))
		stream = feed.NewStream(cfg.Symbol, log)
		stream.Start()
		defer stream.Stop()
		liveFeed = feed.NewBinanceFeed(binanceClient, stream)
	case "upbit":
		liveFeed = feed.NewUpbitFeed()
	default:
		log.Warnf("未知交易所 %q，只能使用模拟行情", cfg.Exchange)
	}

	priceFeed := &feed.Switcher{
		Test: testFeed,
		Live: liveFeed,
		UseTest: func() bool {
			testMode := true
			store.View(func(s *models.TradingState) { testMode = s.TestMode })
			return testMode
		},
	}

	// --- 交易规则校验 ---
	var resolver market.Resolver
	if binanceClient != nil {
		resolver = market.NewBinanceResolver(binanceClient)
	}
	validator := market.NewValidator(resolver, log)

	// --- 通知通道 ---
	var notifier notify.Notifier = notify.Nop{}
	tg := notify.NewTelegram(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"), log)
	if tg != nil {
		notifier = tg
		log.Info("Telegram通知通道已启用。")
	} else {
		log.Info("Telegram未配置，通知与人工确认均不可用。")
	}

	// --- 交易引擎 ---
	gate := engine.NewGate(notifier,
		time.Duration(cfg.ConfirmTimeoutSec)*time.Second,
		time.Duration(cfg.ConfirmPollSec)*time.Second, log)
	executor := engine.NewExecutor(cfg.Symbol, cfg.SlippageRate, validator, store, notifier, log)
	scheduler := engine.NewScheduler(cfg, store, priceFeed, executor, gate, notifier, log)

	// --- 新闻推送 ---
	fetcher := news.NewFetcher(cfg.NewsSources, log)
	newsLoop := news.NewLoop(fetcher, store, notifier,
		time.Duration(cfg.NewsIntervalMin)*time.Minute, cfg.NewsMaxItems, log)
	go newsLoop.Run()
	defer newsLoop.Stop()

	// --- 退出信号 ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// --- Telegram命令轮询 ---
	var poller *notify.Poller
	if tg != nil {
		poller = notify.NewPoller(tg, store, gate, log)
		poller.Price = func() (float64, error) { return priceFeed.Last(cfg.Symbol) }
		poller.ApplyStrategy = func(key string) (string, bool) {
			current, err := priceFeed.Last(cfg.Symbol)
			if err != nil {
				return "无法获取当前价: " + err.Error(), false
			}
			return strategy.Apply(store, current, key)
		}
		poller.ShowStrategy = func() string { return strategy.Show(store) }
		poller.NewsNow = func() int { return newsLoop.PushNow() }
		poller.Shutdown = func() { quit <- syscall.SIGTERM }
		go poller.Run()
		defer poller.Stop()
	}

	// --- HTTP状态服务 ---
	statusServer := server.New(cfg, store, priceFeed, log)
	statusServer.Tick = scheduler.RunOnce
	go statusServer.Run()
	defer statusServer.Stop()

	// --- 状态报表 ---
	statusReporter := reporter.New(store, 5*time.Minute, log)
	go statusReporter.Run()
	defer statusReporter.Stop()

	// --- 调度循环 ---
	go scheduler.Loop()

	<-quit
	log.Info("收到退出信号，正在停止...")

	scheduler.Stop()
	if err := store.Persist(); err != nil {
		log.Errorf("退出前保存状态失败: %v", err)
	} else {
		log.Info("状态已保存，进程退出。")
	}
}
