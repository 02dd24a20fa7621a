package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/debug"
	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/robot"
	"github.com/vanderheijden86/familytree/pkg/ui"
	"github.com/vanderheijden86/familytree/pkg/version"
)

// errCheckFailed makes --robot-check exit non-zero after printing its report.
var errCheckFailed = errors.New("family data check failed")

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	debugFlag := flag.Bool("debug", false, "Log debug output to stderr (same as FTV_DEBUG=1)")
	configPath := flag.String("config", "", "Read config from this file instead of the XDG config dir")
	dataPath := flag.String("data", "", "Family data file (JSON or SQLite)")
	dataURL := flag.String("url", "", "Load family data from this URL")
	family := flag.String("family", "", "Family name shown in the header, e.g. 王氏")
	watch := flag.Bool("watch", false, "Reload when the data file changes")
	logout := flag.Bool("logout", false, "Sign out and forget the stored session")

	var q queryFlags
	robotSearch := flag.String("robot-search", "", "Search and print JSON results")
	robotTree := flag.Bool("robot-tree", false, "Print the family tree as JSON")
	robotCheck := flag.Bool("robot-check", false, "Check the data for problems and print JSON")
	robotSources := flag.Bool("robot-sources", false, "List discovered data sources as JSON")
	flag.StringVar(&q.generations, "gen", "", "Comma-separated generations to search, e.g. 第一世,第二世")
	flag.StringVar(&q.yearStart, "year-start", "", "Earliest year for the year-range filter")
	flag.StringVar(&q.yearEnd, "year-end", "", "Latest year for the year-range filter")
	flag.BoolVar(&q.noInfo, "no-info", false, "Do not search in biography text")
	flag.StringVar(&q.view, "view", "", "Result shape for --robot-search: list or tree")
	flag.IntVar(&q.limit, "limit", 0, "Maximum matches for --robot-search (default from config)")

	var ex exportFlags
	flag.StringVar(&ex.sqlite, "export-sqlite", "", "Export the family to a SQLite database")
	flag.StringVar(&ex.svg, "export-svg", "", "Render the family tree to an SVG file")
	flag.StringVar(&ex.markdown, "export-md", "", "Export the family to a Markdown document")
	flag.BoolVar(&ex.prune, "prune", false, "With --search, render only the matching branches in --export-svg")
	flag.BoolVar(&ex.noHooks, "no-hooks", false, "Skip hooks from .ftv/hooks.yaml around exports")
	searchTerm := flag.String("search", "", "Highlight matches for this term in --export-svg")

	serve := flag.Bool("serve", false, "Serve the family data API over HTTP")
	addr := flag.String("addr", "", "Listen address for --serve (default from config)")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: ftv [options]")
		fmt.Println("\nA terminal browser for a family genealogy (族谱).")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("ftv %s\n", version.Version)
		os.Exit(0)
	}

	if *debugFlag {
		debug.SetEnabled(true)
	}

	isRobot := *robotSearch != "" || *robotTree || *robotCheck || *robotSources
	if isRobot {
		_ = os.Setenv(robot.EnvRobot, "1")
	}

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *dataURL != "" {
		cfg.Data.URL = *dataURL
	}
	if *family != "" {
		cfg.FamilyName = *family
	}
	if *watch {
		cfg.Data.Watch = true
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	debug.Dump("config", cfg)

	if *logout {
		_, s := gateFor(cfg)
		if s == nil {
			fmt.Println("This family does not require a login")
			os.Exit(0)
		}
		if err := s.Logout(); err != nil {
			fmt.Fprintf(os.Stderr, "Error signing out: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Signed out")
		os.Exit(0)
	}

	if *serve {
		if err := runServe(cfg, *debugFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	now := time.Now()

	if *robotSources {
		if err := runRobotSources(ctx, os.Stdout, cfg, now); err != nil {
			fmt.Fprintf(os.Stderr, "Error discovering sources: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if isRobot || ex.requested() {
		data, err := newDataLoader(cfg).LoadOrEmpty(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading family data: %v\n", err)
			os.Exit(1)
		}
		switch {
		case *robotSearch != "":
			q.term = *robotSearch
			err = runRobotSearch(os.Stdout, cfg, data, q, now)
		case *robotTree:
			err = runRobotTree(os.Stdout, data, now)
		case *robotCheck:
			err = runRobotCheck(os.Stdout, data, now)
		default:
			q.term = *searchTerm
			err = runExports(os.Stdout, cfg, data, ex, q, now)
		}
		if errors.Is(err, errCheckFailed) {
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	gate, s := gateFor(cfg)
	if err := ensureLogin(cfg, s); err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}

	tuiCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loader := newDataLoader(cfg)
	reloader, err := loader.newReloader(tuiCtx, cfg)
	if err != nil {
		// Keep going without live reload.
		debug.Log("watch disabled: %v", err)
	}

	m := ui.NewModel(ui.Options{
		Config:   cfg,
		Gate:     gate,
		Load:     loader.LoadOrEmpty,
		Source:   loader.describe(),
		Reloader: reloader,
		StateDir: config.StateDir(),
		Context:  tuiCtx,
	})

	final, err := runTUIProgram(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running ftv: %v\n", err)
		os.Exit(1)
	}
	if final.LoggedOut() {
		fmt.Println("已退出登录")
	}
	if metrics.Enabled() && debug.Enabled() {
		for _, st := range metrics.AllTimingStats() {
			debug.Dump("timing", st)
		}
	}
}
