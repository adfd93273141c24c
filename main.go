package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/ytget/ytdlp-mobile/internal/model"
	"github.com/ytget/ytdlp-mobile/mobile"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const usage = `ytdlp-mobile %s

Usage:
  ytdlp-mobile [-config FILE] <command> [flags] URL

Commands:
  info       print title, thumbnail and all formats
  formats    list formats (-kind combined|merge|audio, -exclude EXT)
  playlist   list the videos of a playlist URL
  download   download one format (-f ID -o PATH [-overwrite])
  start      run a download task (-request JSON) and stream its events
`

func main() {
	configPath := flag.String("config", "", "path to a YAML settings file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() { fmt.Fprintf(os.Stderr, usage, version) }
	flag.Parse()

	if *showVersion {
		fmt.Printf("ytdlp-mobile v%s\n", version)
		return
	}
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	bridge, err := mobile.NewBridge(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer bridge.Close()

	if err := run(bridge, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		bridge.Close()
		os.Exit(1)
	}
}

func run(bridge *mobile.Bridge, command string, args []string) error {
	switch command {
	case "info":
		url, err := singleURL(flag.NewFlagSet("info", flag.ExitOnError), args)
		if err != nil {
			return err
		}
		fmt.Println(bridge.GetVideoInfo(url))
	case "formats":
		return runFormats(bridge, args)
	case "playlist":
		url, err := singleURL(flag.NewFlagSet("playlist", flag.ExitOnError), args)
		if err != nil {
			return err
		}
		fmt.Println(bridge.GetPlaylistEntries(url))
	case "download":
		return runDownload(bridge, args)
	case "start":
		return runStart(bridge, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func singleURL(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one URL", fs.Name())
	}
	return fs.Arg(0), nil
}

func runFormats(bridge *mobile.Bridge, args []string) error {
	fs := flag.NewFlagSet("formats", flag.ExitOnError)
	kind := fs.String("kind", "combined", "combined, merge or audio")
	exclude := fs.String("exclude", "", "skip formats in this container")
	url, err := singleURL(fs, args)
	if err != nil {
		return err
	}

	var out string
	switch *kind {
	case "combined":
		out = bridge.GetCombinedFormats(url)
		if *exclude != "" {
			out = bridge.GetCombinedFormatsExcluding(url, *exclude)
		}
	case "merge":
		out = bridge.GetMergeCandidates(url)
	case "audio":
		out = bridge.GetAudioOnlyFormats(url)
		if *exclude != "" {
			out = bridge.GetAudioOnlyFormatsExcluding(url, *exclude)
		}
	default:
		return fmt.Errorf("unknown format kind %q", *kind)
	}
	fmt.Println(out)
	return nil
}

// barProgress renders DownloadFormat progress on a terminal bar
type barProgress struct {
	bar *progressbar.ProgressBar
	max int64
}

func (p *barProgress) OnProgress(downloaded, total int64) {
	if total > 0 && total != p.max {
		p.max = total
		p.bar.ChangeMax64(total)
	}
	_ = p.bar.Set64(downloaded)
}

func runDownload(bridge *mobile.Bridge, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	formatID := fs.String("f", "", "format id")
	output := fs.String("o", "", "output file path")
	overwrite := fs.Bool("overwrite", false, "replace an existing file")
	url, err := singleURL(fs, args)
	if err != nil {
		return err
	}
	if *formatID == "" || *output == "" {
		return fmt.Errorf("download: -f and -o are required")
	}

	progress := &barProgress{bar: progressbar.DefaultBytes(-1, "downloading")}
	if err := bridge.DownloadFormat(url, *formatID, *output, *overwrite, progress); err != nil {
		return err
	}
	_ = progress.bar.Finish()
	fmt.Printf("\nsaved to %s\n", *output)
	return nil
}

// eventPrinter prints task events and signals when a task finishes
type eventPrinter struct {
	done chan model.Event
}

func (p *eventPrinter) OnEvent(eventJSON string) {
	fmt.Println(eventJSON)

	var ev model.Event
	if err := json.Unmarshal([]byte(eventJSON), &ev); err != nil {
		return
	}
	if ev.Type == model.EventTypeState && model.DownloadState(ev.StateName).IsFinished() {
		p.done <- ev
	}
}

func runStart(bridge *mobile.Bridge, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	request := fs.String("request", "", "download request JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*request) == "" {
		return fmt.Errorf("start: -request is required")
	}

	printer := &eventPrinter{done: make(chan model.Event, 1)}
	bridge.SetEventSink(printer)

	taskID, err := bridge.StartDownload(*request)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interrupted := ctx.Done()
	for {
		select {
		case ev := <-printer.done:
			if ev.TaskID != taskID {
				continue
			}
			if ev.StateName == model.StateFailed.String() {
				return fmt.Errorf("task %s failed: %s", taskID, ev.Error)
			}
			return nil
		case <-interrupted:
			interrupted = nil
			if err := bridge.CancelDownload(taskID); err != nil {
				return err
			}
		}
	}
}
