package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/manga-hub/internal/cache"
	"github.com/any-hub/manga-hub/internal/config"
	"github.com/any-hub/manga-hub/internal/logging"
	"github.com/any-hub/manga-hub/internal/proxy"
	"github.com/any-hub/manga-hub/internal/route"
	"github.com/any-hub/manga-hub/internal/server"
	"github.com/any-hub/manga-hub/internal/server/routes"
	"github.com/any-hub/manga-hub/internal/transcode"
	"github.com/any-hub/manga-hub/internal/upstream"
	"github.com/any-hub/manga-hub/internal/version"
	"github.com/any-hub/manga-hub/internal/wallpaper"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["origins"] = cfg.Origins()
		fields["wallpaper_titles"] = len(cfg.Wallpaper.Titles)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["origins"] = cfg.Origins()
	fields["max_cache_entries"] = cfg.Global.MaxCacheEntries
	fields["coalesce_misses"] = cfg.Global.CoalesceMisses
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(app, cfg.Global.ListenPort, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildApp 按“缓存 → 上游客户端 → 转码器 → 分类器 → 处理器 → Fiber”的顺序装配，
// 所有请求共享同一个缓存实例与 http.Client。
func buildApp(cfg *config.Config, logger *logrus.Logger) (*fiber.App, error) {
	store, err := cache.NewStore(cache.Options{MaxEntries: cfg.Global.MaxCacheEntries})
	if err != nil {
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}

	fetcher := upstream.NewFetcher(server.NewUpstreamClient(cfg), upstream.Options{
		MaxBodyBytes: cfg.Global.MaxUpstreamBodyBytes,
	})
	transcoder := transcode.NewWebPTranscoder(transcode.WebPOptions{})

	selector, err := wallpaper.NewSelector(wallpaper.Options{
		Titles:     cfg.Wallpaper.Titles,
		SearchURL:  cfg.Upstream.WallpaperSearch,
		QueryParam: cfg.Upstream.WallpaperQueryParam,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化壁纸选择器失败: %w", err)
	}

	classifier, err := route.NewClassifier(route.Options{
		Origins: route.Origins{
			API:     cfg.Upstream.APIBase,
			Cover:   cfg.Upstream.CoverBase,
			Chapter: cfg.Upstream.ChapterBase,
			Flag:    cfg.Upstream.FlagBase,
		},
		TTLOverrides: cfg.TTLOverrides(),
		Wallpaper:    selector,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化路由分类器失败: %w", err)
	}

	handler, err := proxy.NewHandler(proxy.Options{
		Classifier: classifier,
		Store:      store,
		Fetcher:    fetcher,
		Transcoder: transcoder,
		Logger:     logger,
		Coalesce:   cfg.Global.CoalesceMisses,
	})
	if err != nil {
		return nil, err
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Proxy:      proxy.NewForwarder(handler, logger),
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		return nil, err
	}
	routes.RegisterClassRoutes(app, classifier, store)
	return app, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("manga-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 MANGA_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("MANGA_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(app *fiber.App, port int, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
