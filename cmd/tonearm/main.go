package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tonearm/internal/analytics"
	"tonearm/internal/cmdlog"
	"tonearm/internal/config"
	"tonearm/internal/engine"
	"tonearm/internal/jobs"
	"tonearm/internal/lastfm"
	"tonearm/internal/metrics"
	"tonearm/internal/model"
	"tonearm/internal/store/featstore"
	"tonearm/internal/theme"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "resolve":
		cmdResolve()
	case "add":
		cmdAdd()
	case "recommend":
		cmdRecommend()
	case "rebuild":
		cmdRebuild()
	case "seed":
		cmdSeed()
	case "stats":
		cmdStats()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: tonearm <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./tonearm.yaml")
	fmt.Println("  resolve     Look up an album in the catalog or on Last.fm")
	fmt.Println("  add         Resolve an album and ingest its tags")
	fmt.Println("  recommend   Recommend albums for a selection")
	fmt.Println("  rebuild     Re-derive matrices and index from the feature log")
	fmt.Println("  seed        Bulk ingest releases from a CSV")
	fmt.Println("  stats       Show catalog and tag statistics")
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	metrics.StartServer(cfg.Metrics.Addr)
	return cfg
}

func newClient(cfg config.Config) lastfm.Client {
	if cfg.Lastfm.APIKey == "" {
		fmt.Println("warning: missing LASTFM_API_KEY; API calls will fail")
		return nil
	}
	return lastfm.NewHTTPClient(cfg.Lastfm.APIKey)
}

func openEngine(ctx context.Context, cfg config.Config) (*featstore.DB, *engine.Engine) {
	db, err := featstore.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	eng, err := engine.Open(ctx, db, newClient(cfg), engine.Options{
		TagsPerAlbum: cfg.Recommend.TagsPerAlbum,
		MaxCount:     cfg.Recommend.MaxCount,
	})
	if err != nil {
		_ = db.Close()
		fmt.Println("error:", err)
		os.Exit(1)
	}
	return db, eng
}

func cmdInit() {
	out := flag.NewFlagSet("init", flag.ExitOnError)
	path := out.String("path", "./tonearm.yaml", "path to write config")
	_ = out.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdResolve() {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	cfgPath := fs.String("config", "./tonearm.yaml", "config path")
	query := fs.String("q", "", "album name to resolve")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	ctx := context.Background()
	db, eng := openEngine(ctx, cfg)
	defer db.Close()
	_ = cmdlog.Run("resolve", func() error {
		res := eng.Resolve(ctx, *query)
		switch res.Kind {
		case engine.CacheHit:
			fmt.Println("cache hit:", res.Match)
		case engine.Candidates:
			fmt.Println("candidates:")
			for _, line := range jobs.FormatCandidates(res.Candidates) {
				fmt.Println(" ", line)
			}
		case engine.NotFound:
			fmt.Println("not found")
		case engine.Unavailable:
			fmt.Println("unavailable:", res.Reason)
		}
		return nil
	})
}

func cmdAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	cfgPath := fs.String("config", "./tonearm.yaml", "config path")
	query := fs.String("q", "", "album name to add")
	pick := fs.Int("pick", 0, "candidate index when the catalog has no match")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	ctx := context.Background()
	db, eng := openEngine(ctx, cfg)
	defer db.Close()
	err := cmdlog.Run("add", func() error {
		name, err := jobs.Add(ctx, eng, *query, *pick)
		if err != nil {
			return err
		}
		fmt.Println("in catalog:", name)
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func cmdRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	cfgPath := fs.String("config", "./tonearm.yaml", "config path")
	albums := fs.String("albums", "", "comma-separated catalog album names")
	count := fs.Int("n", 0, "number of recommendations")
	details := fs.Bool("details", false, "fetch artist and cover per result")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	ctx := context.Background()
	db, eng := openEngine(ctx, cfg)
	defer db.Close()
	_ = cmdlog.Run("recommend", func() error {
		n := *count
		if n <= 0 {
			n = cfg.Recommend.DefaultCount
		}
		selected := splitAlbums(*albums)
		var recs []model.Recommendation
		if *details {
			recs = eng.RecommendDetailed(ctx, selected, n)
		} else {
			recs = eng.Recommend(selected, n)
		}
		if len(recs) == 0 {
			fmt.Println("no recommendations (empty selection or cold start)")
			return nil
		}
		for _, r := range recs {
			if r.Artist != "" {
				fmt.Printf("%.1f%%  %s (%s)\n", r.Score, r.Album, r.Artist)
			} else {
				fmt.Printf("%.1f%%  %s\n", r.Score, r.Album)
			}
		}
		return nil
	})
}

func cmdRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	cfgPath := fs.String("config", "./tonearm.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	ctx := context.Background()
	db, eng := openEngine(ctx, cfg)
	defer db.Close()
	err := cmdlog.Run("rebuild", func() error { return eng.Rebuild(ctx) })
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Println("rebuilt:", len(eng.Snapshot().Catalog()), "albums")
}

func cmdSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "./tonearm.yaml", "config path")
	csvPath := fs.String("csv", "", "release CSV path (overrides config)")
	limit := fs.Int("limit", 0, "max releases to process (0 = all)")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	path := *csvPath
	if path == "" {
		path = cfg.Seed.CSVPath
	}
	if path == "" {
		fmt.Println("error: no CSV path given")
		os.Exit(1)
	}
	n := *limit
	if n == 0 {
		n = cfg.Seed.Limit
	}
	ctx := context.Background()
	db, eng := openEngine(ctx, cfg)
	defer db.Close()
	client := newClient(cfg)
	if client == nil {
		fmt.Println("error: seed requires a Last.fm API key")
		os.Exit(1)
	}
	err := cmdlog.Run("seed", func() error {
		res, err := jobs.Seed(ctx, db, client, eng, path, n, cfg.Recommend.TagsPerAlbum)
		fmt.Printf("processed=%d added=%d fallback=%d skipped=%d\n",
			res.Processed, res.Added, res.Fallback, res.Skipped)
		return err
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func cmdStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "./tonearm.yaml", "config path")
	top := fs.Int("top", 10, "number of top tags to show")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	ctx := context.Background()
	db, eng := openEngine(ctx, cfg)
	defer db.Close()
	_ = cmdlog.Run("stats", func() error {
		records, err := db.LoadRecords(ctx)
		if err != nil {
			return err
		}
		freq := analytics.TagFrequencies(records)
		fmt.Println("albums:", analytics.DistinctAlbums(records))
		fmt.Println("records:", len(records))
		fmt.Println("tags:", len(freq))
		if !eng.IsColdStart() {
			fmt.Println("index rows:", eng.Snapshot().Index.Len())
		}
		for _, tc := range analytics.TopTags(freq, *top) {
			fmt.Printf("  %-24s %d\n", tc.Tag, tc.Count)
		}
		return nil
	})
}

func splitAlbums(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
