package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/adapter"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/adapter/fileimport"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/adapter/ripe"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/adapter/worldbank"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/config"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository/backend"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/watcher"
)

const usage = `Usage: iyp [flags] <command> [args]

Commands:
  init              install graph constraints (and write a default config with -write-config)
  crawl [name...]   run the named crawlers, or every enabled one, once
  watch             run enabled crawlers on their poll intervals until interrupted
  import <file>...  ingest YAML or JSON graph documents (re-import on change with -watch)
  list              list crawlers

Flags:
`

func main() {
	// Command line flags
	configPath := flag.String("config", "", "config file path (default: $IYP_CONFIG, ./iyp.yaml, ~/.config/iyp/config.yaml)")
	writeConfig := flag.Bool("write-config", false, "init: save the default config to ./iyp.yaml when none exists")
	watchFiles := flag.Bool("watch", false, "import: keep running and re-import files when they change")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	config.LoadEnv(*configPath)
	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config", "err", err)
	}
	if err := cfg.Log.Apply(); err != nil {
		log.Fatal("Invalid log settings", "err", err)
	}
	if path != "" {
		log.Debug("Config loaded", "path", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	switch cmd {
	case "init":
		err = app.initGraph(ctx, path, *writeConfig)
	case "crawl":
		err = app.crawl(ctx, args)
	case "watch":
		err = app.watch(ctx)
	case "import":
		err = app.importFiles(ctx, args, *watchFiles)
	case "list":
		err = app.list()
	default:
		flag.Usage()
		os.Exit(2)
	}

	var connErr *domain.ConnectionError
	switch {
	case errors.As(err, &connErr):
		log.Fatal("Graph store unreachable", "backend", connErr.Backend, "err", connErr.Err)
	case err != nil:
		log.Fatal("Command failed", "command", cmd, "err", err)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

type app struct {
	cfg *config.Config
}

// openSession connects to the configured store and opens a session on it.
// The session owns the store.
func (a *app) openSession(ctx context.Context, events *service.EventBus) (*service.Session, error) {
	store, err := backend.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}

	sess, err := service.Open(ctx, store, service.Options{
		ChunkSize: a.cfg.Batch.ChunkSize,
		Events:    events,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return sess, nil
}

// registry builds the crawler registry from config
func (a *app) registry() (*adapter.Registry, error) {
	reg := adapter.NewRegistry(a.openSession)

	crawlers := []adapter.Crawler{
		ripe.NewROACrawler(a.cfg.Crawler(ripe.Name).URL),
		worldbank.NewPopulationCrawler(a.cfg.Crawler(worldbank.Name).URL),
	}
	for _, c := range crawlers {
		if err := reg.Register(c, a.cfg.Crawler(c.Name())); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (a *app) initGraph(ctx context.Context, path string, writeConfig bool) error {
	if writeConfig && path == "" {
		if err := a.cfg.Save(config.ConfigFileName); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		log.Info("Default config written", "path", config.ConfigFileName)
	}

	sess, err := a.openSession(ctx, nil)
	if err != nil {
		return err
	}
	log.Info("Graph constraints installed",
		"backend", a.cfg.Store.Backend,
		"constraints", len(sess.Constraints().Constraints()))
	return sess.Close()
}

func (a *app) crawl(ctx context.Context, names []string) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = reg.Enabled()
	}
	if len(names) == 0 {
		log.Warn("No crawlers enabled")
		return nil
	}

	var g errgroup.Group
	g.SetLimit(a.cfg.Crawl.Parallel)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if _, err := reg.Run(ctx, name); err != nil {
				log.Error("Crawler failed", "crawler", name, "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *app) watch(ctx context.Context) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	if err := reg.Start(ctx); err != nil {
		return err
	}
	log.Info("Watching", "crawlers", reg.Enabled())

	<-ctx.Done()
	log.Info("Shutting down...")
	return reg.Stop()
}

func (a *app) importFiles(ctx context.Context, paths []string, watch bool) error {
	if len(paths) == 0 {
		return fmt.Errorf("import: no files given")
	}

	for _, path := range paths {
		if err := a.importFile(ctx, path); err != nil {
			return err
		}
	}
	if !watch {
		return nil
	}

	err := watcher.New(paths...).Watch(ctx, func(path string) {
		if err := a.importFile(ctx, path); err != nil {
			log.Error("Re-import failed", "file", path, "err", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// importFile runs a one-off file.import crawler in its own session
func (a *app) importFile(ctx context.Context, path string) error {
	c, err := fileimport.New(path)
	if err != nil {
		return err
	}

	reg := adapter.NewRegistry(a.openSession)
	if err := reg.Register(c, config.CrawlerConfig{Enabled: true}); err != nil {
		return err
	}
	if _, err := reg.Run(ctx, c.Name()); err != nil {
		return err
	}
	log.Info("Imported",
		"file", path,
		"nodes", c.Result.NodesResolved,
		"external_ids", c.Result.ExternalIDs,
		"links", c.Result.LinksWritten)
	return nil
}

func (a *app) list() error {
	reg, err := a.registry()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tINTERVAL")
	for _, info := range reg.List() {
		fmt.Fprintf(w, "%s\t%v\t%s\n", info.Name, info.Enabled, info.PollInterval)
	}
	return w.Flush()
}
