// loadout_preview is the debug companion to the browser extension: it
// wires the full resolution stack against the live backends and runs
// one operation from the command line, logging every render
// instruction instead of drawing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/loadout-tf/extension/internal/api"
	"github.com/loadout-tf/extension/internal/assets"
	"github.com/loadout-tf/extension/internal/config"
	"github.com/loadout-tf/extension/internal/dispatcher"
	"github.com/loadout-tf/extension/internal/filter"
	"github.com/loadout-tf/extension/internal/loadout"
	"github.com/loadout-tf/extension/internal/logging"
	"github.com/loadout-tf/extension/internal/model"
	intotel "github.com/loadout-tf/extension/internal/otel"
	"github.com/loadout-tf/extension/internal/registry"
	"github.com/loadout-tf/extension/internal/resolver"
	"github.com/loadout-tf/extension/internal/store"
)

// Version can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const usage = `usage: loadout_preview <command> [args]

commands:
  inspect <listingID> <classID> [assetID] [class]   resolve one market listing
  search <query> [class]                            search the item schema
  equip <class> <templateID>...                     dress a character and print the preset
  presets                                           list saved presets
`

type app struct {
	logger   *slog.Logger
	store    *store.Manager
	cache    *assets.Cache
	registry *registry.Registry
	events   *dispatcher.Dispatcher
	loadout  *loadout.Manager
	resolver *resolver.Resolver
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfgErr := config.Load(".")

	logsDir := config.GetString("logsDir")
	_ = os.MkdirAll(logsDir, 0o755)
	logFile, err := os.OpenFile(logging.LogFilePath(logsDir, "loadout_preview", time.Now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	slogManager := logging.NewManager()
	slogManager.Setup(logFile, config.GetString("logLevel"), nil)
	logger := slogManager.Logger()
	logger.Info("starting up", "version", Version, "build_date", BuildDate)
	if cfgErr != nil {
		logger.Warn("no config file found, using defaults")
	}

	otelProvider, err := intotel.New(intotel.Config{
		Enabled:        config.GetBool("otel.enabled"),
		ServiceName:    config.GetString("otel.serviceName"),
		ExportInterval: time.Duration(config.GetInt("otel.exportIntervalSeconds")) * time.Second,
		MetricWriter:   logFile,
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		if err := otelProvider.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	zlog := zerolog.New(logFile).With().Timestamp().Logger()

	storeManager := store.NewManager(zlog)
	if err := storeManager.Connect(); err != nil {
		return fmt.Errorf("opening preference store: %w", err)
	}
	defer storeManager.Close()
	if err := storeManager.Setup(); err != nil {
		return fmt.Errorf("migrating preference store: %w", err)
	}

	events, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	client := api.New(api.Options{
		ClassInfoURL:   config.GetString("api.classInfoUrl"),
		InspectTF2URL:  config.GetString("api.inspectTf2Url"),
		InspectCS2URL:  config.GetString("api.inspectCs2Url"),
		Repository:     config.GetString("repository.tf2"),
		WorkshopURL:    config.GetString("repository.workshop"),
		WorkshopUGCURL: config.GetString("repository.workshopUgc"),
		Timeout:        config.APITimeout(),
	})

	a := &app{
		logger:   logger,
		store:    storeManager,
		cache:    assets.NewCache(client, logger),
		registry: registry.New(client, events, logger, config.GetString("lang")),
		events:   events,
	}
	a.loadout = loadout.NewManager(a.registry, events, nil, storeManager, logger)

	a.resolver, err = resolver.New(a.registry, a.cache, newLogRenderer(logger), storeManager, events, logger)
	if err != nil {
		return fmt.Errorf("creating resolver: %w", err)
	}
	a.resolver.SetDebounce(config.HoverDelay())
	a.resolver.SetTextureSize(config.TextureSize())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "inspect":
		return a.inspectListing(ctx, args[1:])
	case "search":
		return a.searchItems(ctx, args[1:])
	case "equip":
		return a.equipCharacter(ctx, args[1:])
	case "presets":
		return a.listPresets()
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// loadSchema pulls the item schema plus the optional extensions. Only
// the base schema is fatal; medals, warpaints and workshop entries
// degrade to a smaller catalog.
func (a *app) loadSchema(ctx context.Context) error {
	if err := a.registry.LoadItems(ctx); err != nil {
		return fmt.Errorf("loading item schema: %w", err)
	}
	if err := a.registry.LoadMedals(ctx); err != nil {
		a.logger.Warn("loading medals failed", "error", err)
	}
	if err := a.registry.LoadWarpaints(ctx); err != nil {
		a.logger.Warn("loading warpaints failed", "error", err)
	}
	if err := a.registry.LoadWorkshop(ctx); err != nil {
		a.logger.Warn("loading workshop items failed", "error", err)
	}
	return nil
}

func (a *app) inspectListing(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("inspect needs a listing id and a class id")
	}
	classID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid class id %q", args[1])
	}
	ref := resolver.ListingRef{
		Slot:             "cli",
		AppID:            model.AppIDTF2,
		ClassID:          classID,
		ListingOrSteamID: args[0],
		// Listings accept their own id in the asset slot, so the CLI
		// reuses it unless an explicit asset id is given.
		AssetID:   args[0],
		ClassName: "scout",
	}
	if len(args) > 2 {
		ref.AssetID = args[2]
	}
	if len(args) > 3 {
		ref.ClassName = args[3]
	}

	if err := a.loadSchema(ctx); err != nil {
		return err
	}

	state, err := a.resolver.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if state.Hidden {
		fmt.Println("listing has no previewable model")
		return nil
	}
	return printJSON(state)
}

func (a *app) searchItems(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("search needs a query")
	}
	if err := a.loadSchema(ctx); err != nil {
		return err
	}

	f := filter.New()
	if err := f.SetAttribute(filter.AttrName, args[0]); err != nil {
		return err
	}

	var class *model.CharacterClass
	if len(args) > 1 {
		c, ok := model.NPCToClass(args[1])
		if !ok {
			return fmt.Errorf("unknown class %q", args[1])
		}
		class = &c
	}

	excluded := 0
	matches := 0
	for id, template := range a.registry.Templates() {
		result := f.Match(template, &excluded, class, nil)
		if result == filter.Ok || result == filter.Conflicting {
			fmt.Printf("%s\t%s\n", id, template.Name())
			matches++
		}
	}
	fmt.Printf("%d items, %d hidden by filter\n", matches, excluded)
	return nil
}

func (a *app) equipCharacter(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("equip needs a class and at least one template id")
	}
	class, ok := model.NPCToClass(args[0])
	if !ok {
		return fmt.Errorf("unknown class %q", args[0])
	}
	if err := a.loadSchema(ctx); err != nil {
		return err
	}

	character := a.loadout.SelectCharacter(class, -1)
	for _, id := range args[1:] {
		template, ok := a.registry.Template(id)
		if !ok {
			a.logger.Warn("no such item in the schema", "id", id)
			continue
		}
		character.AddItem(template)
	}

	for _, item := range character.Items() {
		fmt.Printf("%s\t%s\n", item.ID, item.Template().Name())
	}
	fmt.Println("animation:", character.AnimationName())
	return printJSON(character.SavePreset(""))
}

func (a *app) listPresets() error {
	if err := a.loadout.LoadPresets(); err != nil {
		return err
	}
	records, err := a.store.Presets()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no saved presets")
		return nil
	}
	for _, record := range records {
		fmt.Printf("%s\t%s\n", record.Name, record.Character)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
