package clicmds

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/scanhound/hound"
	"gitlab.com/scanhound/scanner"
	"gitlab.com/scanhound/scanner/netinfo"
	"gitlab.com/scanhound/scanner/report"
)

func ScanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "url as a start point",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "config to use",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "file or directory to write the json report to",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "datadir",
			Usage: "data directory",
			Value: "scanhoundtmp",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "max number of pages to fetch in parallel",
			Value: 8,
		},
		&cli.Int64Flag{
			Name:  "maxpages",
			Usage: "max number of discovered links before the spider stops following",
			Value: hound.DefaultMaxSpiderPages,
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "per request timeout in seconds",
			Value: 10,
		},
		&cli.StringFlag{
			Name:  "proxy",
			Usage: "http or socks5 proxy url",
			Value: "",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
			Value: false,
		},
		&cli.StringFlag{
			Name:  "catalog",
			Usage: "yaml file of additional vulnerabilities",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "xlsx",
			Usage: "also export the issues to this xlsx file",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "asndata",
			Usage: "ip range data file used to describe the target's addresses",
			Value: "",
		},
	}
}

// LoadConfig from the toml file named by --config, overlaid with any flags
// that were set on the command line
func LoadConfig(ctx *cli.Context) (*hound.Config, error) {
	cfg := hound.DefaultConfig()

	if path := ctx.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if err := toml.NewDecoder(strings.NewReader(string(data))).Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode config")
		}
	}

	if cfg.URL == "" || ctx.IsSet("url") {
		cfg.URL = ctx.String("url")
	}
	if cfg.DataPath == "" || ctx.IsSet("datadir") {
		cfg.DataPath = ctx.String("datadir")
	}
	if ctx.IsSet("output") {
		cfg.Output = ctx.String("output")
	}
	if ctx.IsSet("workers") {
		cfg.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("maxpages") {
		cfg.MaxSpiderPages = ctx.Int64("maxpages")
	}
	if ctx.IsSet("timeout") {
		cfg.TimeoutSeconds = ctx.Int("timeout")
	}
	if ctx.IsSet("proxy") {
		cfg.Proxy = ctx.String("proxy")
	}
	if ctx.IsSet("catalog") {
		cfg.CatalogPath = ctx.String("catalog")
	}
	if ctx.IsSet("xlsx") {
		cfg.XLSXPath = ctx.String("xlsx")
	}

	if cfg.URL == "" {
		return nil, errors.New("a target url is required")
	}
	return cfg, nil
}

func loadCatalog(path string) (*hound.Catalog, error) {
	catalog := hound.DefaultCatalog()
	if path == "" {
		return catalog, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := hound.LoadCatalogYAML(f, catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Scan spiders the target and writes the report
func Scan(ctx *cli.Context) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if ctx.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load vulnerability catalog")
		return err
	}

	spillDir := filepath.Join(cfg.DataPath, "evidence")
	if err := os.MkdirAll(spillDir, 0755); err != nil {
		return err
	}

	reporter := report.New(catalog,
		report.WithSpillDir(spillDir),
		report.WithSpillThreshold(cfg.SpillThreshold),
		report.WithDebugMessages(cfg.IncludeDebug))
	if err := reporter.Init(cfg.Output); err != nil {
		return err
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}).
		With().Timestamp().Logger().Hook(report.NewMessageHook(reporter))

	start := time.Now()
	reporter.RegisterInfo("start_time", start.Unix())
	reporter.RegisterInfo("target", cfg.URL)

	scanContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := scanner.New(cfg, reporter)
	log.Info().Msg("Starting scanhound")
	if err := s.Init(scanContext); err != nil {
		log.Error().Err(err).Msg("failed to init engine")
		return err
	}

	describeTarget(ctx.String("asndata"), s.Session().Domain(), reporter)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		if _, ok := <-c; !ok {
			return
		}
		log.Info().Msg("Ctrl-C Pressed, saving partial results")
		cancel()
		if _, ok := <-c; ok {
			os.Exit(1)
		}
	}()

	scanErr := s.Start()
	if errors.Is(scanErr, context.Canceled) {
		log.Warn().Msg("scan was interrupted, results are partial")
		scanErr = nil
	} else if scanErr != nil {
		log.Error().Err(scanErr).Msg("scan failure occurred")
	}

	if err := s.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop engine")
	}

	reporter.RegisterInfo("end_time", time.Now().Unix())
	reporter.RegisterInfo("elapsed", time.Since(start).Seconds())

	if cfg.XLSXPath != "" {
		if _, err := reporter.ExportExcel(cfg.XLSXPath); err != nil {
			log.Error().Err(err).Msg("failed to export xlsx")
		}
	}

	if cfg.Output != "" {
		archive, err := reporter.SaveOutput()
		if err != nil {
			log.Error().Err(err).Msg("failed to save output")
			return err
		}
		log.Info().Str("file", archive).Msg("saved output")
	}
	return scanErr
}

// describeTarget resolves domain and registers the network of each address
func describeTarget(asnData, domain string, reporter hound.Reporter) {
	if asnData == "" || domain == "" {
		return
	}
	addrs, err := net.LookupHost(domain)
	if err != nil {
		log.Debug().Err(err).Str("domain", domain).Msg("failed to resolve target")
		return
	}

	index := netinfo.New(asnData)
	networks := make(map[string]interface{}, len(addrs))
	for _, addr := range addrs {
		desc, err := index.Lookup(addr)
		if err != nil {
			log.Debug().Err(err).Str("ip", addr).Msg("failed to look up network")
			continue
		}
		log.Info().Str("ip", addr).Str("network", desc).Msg("target address")
		networks[addr] = desc
	}
	reporter.RegisterData("ip_networks", networks)
}
