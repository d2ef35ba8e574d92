package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/fieryfurry/qtm2/internal/config"
	"github.com/fieryfurry/qtm2/internal/torrent"
	"github.com/fieryfurry/qtm2/internal/upload"
)

// announceFlags collects repeated -a flags into an ordered URL list.
type announceFlags []string

func (a *announceFlags) String() string { return strings.Join(*a, ", ") }

func (a *announceFlags) Set(value string) error {
	*a = append(*a, value)
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
		log.Println("Proceeding with system environment variables...")
	}

	var announce announceFlags
	var (
		output      = flag.String("o", "", "output .torrent path (default: <path>.torrent)")
		private     = flag.Bool("private", false, "set the private flag in the info dictionary")
		comment     = flag.String("comment", "", "free-form comment field")
		source      = flag.String("source", "", "source tag for private-tracker cross-seeding")
		pieceLength = flag.Int64("piece-length", 0, "force piece length in bytes (power of two); 0 lets the planner choose")
		configPath  = flag.String("config", "", "settings file (default: per-user qtm2.toml)")
		doUpload    = flag.Bool("upload", false, "submit the finished torrent to the site afterwards")
	)
	flag.Var(&announce, "a", "announce URL (repeatable; first one becomes the primary tracker)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	contentPath := flag.Arg(0)

	cfgPath := *configPath
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			log.Fatalf("Could not resolve config directory: %v", err)
		}
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Could not load settings: %v", err)
	}

	if len(announce) == 0 && cfg.Announce != "" {
		announce = announceFlags{cfg.Announce}
	}
	isPrivate := *private || cfg.Private

	// Ctrl+C cancels the run between piece boundaries; no partial file is
	// left behind.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The callback runs on hasher workers; sync.Once keeps the lazy bar
	// construction race-free.
	var (
		bar     *progressbar.ProgressBar
		barOnce sync.Once
	)
	summary, err := torrent.Create(ctx, torrent.CreateOptions{
		Path:        contentPath,
		OutputPath:  *output,
		Announce:    announce,
		Private:     isPrivate,
		Comment:     *comment,
		Source:      *source,
		CreatedBy:   cfg.CreatedBy,
		PieceLength: *pieceLength,
		Progress: func(done, total int) {
			barOnce.Do(func() {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Hashing pieces"),
					progressbar.OptionShowCount(),
				)
			})
			bar.Set(done)
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("Aborted; nothing was written.")
			os.Exit(1)
		}
		log.Fatalf("Failed to create torrent: %v", err)
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	fmt.Printf("Created %s\n", summary.OutputPath)
	fmt.Printf("  Name:         %s\n", summary.Name)
	fmt.Printf("  Info hash:    %s\n", summary.HexHash())
	fmt.Printf("  Total size:   %s (%d files)\n", humanize.IBytes(uint64(summary.TotalLength)), summary.FileCount)
	fmt.Printf("  Pieces:       %d x %s\n", summary.PieceCount, humanize.IBytes(uint64(summary.PieceLength)))

	if *doUpload {
		if err := submit(ctx, summary); err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
		fmt.Println("Torrent submitted successfully.")
	}
}

// submit logs in with credentials from the environment and posts the torrent.
func submit(ctx context.Context, summary *torrent.Summary) error {
	siteURL := os.Getenv("QTM_SITE_URL")
	username := os.Getenv("QTM_USERNAME")
	password := os.Getenv("QTM_PASSWORD")
	if siteURL == "" || username == "" || password == "" {
		return errors.New("QTM_SITE_URL, QTM_USERNAME and QTM_PASSWORD must be set to upload")
	}

	client, err := upload.NewClient(siteURL)
	if err != nil {
		return err
	}
	if err := client.Login(ctx, username, password); err != nil {
		return err
	}
	return client.Submit(ctx, upload.Submission{
		TorrentPath: summary.OutputPath,
		Title:       summary.Name,
	})
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: qtm [flags] <path>

Creates a .torrent metafile for the file or directory at <path>.

Flags:
`)
	flag.PrintDefaults()
}
