package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/tmpim/tetrify"
)

var (
	threads     = flag.Int("threads", 4, "set the number of frames, images or audio segments processed at once")
	prioritize  = flag.Bool("prioritize", false, "prefer tetrominoes over garbage, trading accuracy for more pieces")
	skinsDir    = flag.String("skins", "assets", "set the directory of skins to draw with")
	clipsDir    = flag.String("clips", "assets/sounds", "set the directory of sound clips to rebuild audio with")
	metricName  = flag.String("metric", "rgb", "set the color distance metric (rgb, lab or ciede2000)")
	tileColor   = flag.String("tile-color", "mean", "set how a tile's color is computed (mean or dominant)")
	fit         = flag.Bool("fit", true, "resize tiles so the output is about as large as the source")
	audio       = flag.Bool("audio", true, "copy the source's audio track into output videos")
	approxAudio = flag.Bool("approx-audio", false, "rebuild the audio of output videos from sound clips")
	debug       = flag.Bool("debug", false, "show the output of ffmpeg")
)

// defaultIntegrationWidth is the board width of an integration run when none
// is given.
const defaultIntegrationWidth = 100

var errUsage = errors.New("invalid arguments")

// command is a parsed command line after the flags.
type command struct {
	name   string
	source string
	output string
	width  int
	height int
}

func usage() {
	log.Println("Usage: tetrify [options] approx-image <source> <output> <board_width> <board_height>")
	log.Println("       tetrify [options] approx-video <source> <output> <board_width> <board_height>")
	log.Println("       tetrify [options] approx-audio <source> <output>")
	log.Println("       tetrify [options] integration <dir> [board_width]")
	log.Println("")
	log.Println("Tetrify redraws an image or video as a board of Tetris pieces, using")
	log.Println("the skins found in the skins directory, and rebuilds audio out of")
	log.Println("the sound clips found in the clips directory.")
	log.Println("")
	log.Println("Options:")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if *threads <= 0 {
		log.Println("Threads must be greater than 0.")
		os.Exit(1)
	}

	metric, err := tetrify.ParseMetric(*metricName)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	mode, err := tetrify.ParseTileColor(*tileColor)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	// Arguments are checked before any skins or clips are loaded, so a bad
	// command line is reported as such.
	cmd, err := parseCommand(flag.Args())
	if errors.Is(err, errUsage) {
		usage()
		os.Exit(1)
	} else if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	solver := tetrify.DefaultSolverOptions()
	solver.Prioritize = *prioritize
	solver.Metric = metric

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	start := time.Now()

	switch cmd.name {
	case "approx-image":
		cat := loadCatalog(mode)

		board, err := tetrify.ApproxImageFile(cmd.source, cmd.output, cat,
			tetrify.ImageOptions{
				Width:    cmd.width,
				Height:   cmd.height,
				FitTiles: *fit,
				Solver:   solver,
			})
		if err != nil {
			log.Println("Failed to approximate image:", err)
			os.Exit(1)
		}

		log.Printf("Done! %d pieces and %d garbage in %s.\n", len(board.Placements),
			len(board.Garbage), time.Since(start).Round(time.Millisecond))
		log.Printf("Output written to \"%s\".\n", cmd.output)
	case "approx-video":
		cat := loadCatalog(mode)

		opts := tetrify.DefaultVideoOptions(cmd.width, cmd.height)
		opts.Workers = *threads
		opts.FitTiles = *fit
		opts.Audio = *audio || *approxAudio
		opts.Solver = solver
		opts.Debug = *debug
		opts.Logger = log.Default()
		if *approxAudio {
			opts.Clips = loadClips(ctx)
		}

		err := tetrify.ApproxVideo(ctx, cmd.source, cmd.output, cat, opts)
		if err != nil {
			log.Println("Failed to approximate video:", err)
			os.Exit(1)
		}

		log.Printf("Done! That took %s.\n", time.Since(start).Round(time.Millisecond))
		log.Printf("Output written to \"%s\".\n", cmd.output)
	case "approx-audio":
		clips := loadClips(ctx)

		opts := tetrify.DefaultAudioOptions()
		opts.Workers = *threads
		opts.Debug = *debug
		opts.Logger = log.Default()

		err := tetrify.ApproxAudio(ctx, cmd.source, cmd.output, clips, opts)
		if err != nil {
			log.Println("Failed to approximate audio:", err)
			os.Exit(1)
		}

		log.Printf("Done! That took %s.\n", time.Since(start).Round(time.Millisecond))
		log.Printf("Output written to \"%s\".\n", cmd.output)
	case "integration":
		cat := loadCatalog(mode)

		err := runIntegration(ctx, cmd.source, cmd.width, cat, solver)
		if err != nil {
			log.Println("Integration run failed:", err)
			os.Exit(1)
		}
	}
}

// parseCommand checks the argument count of a command and parses its board
// dimensions. It returns errUsage if the command is unknown or has the wrong
// number of arguments.
func parseCommand(args []string) (*command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	cmd := &command{name: args[0]}
	var err error

	switch cmd.name {
	case "approx-image", "approx-video":
		if len(args) != 5 {
			return nil, errUsage
		}

		cmd.source, cmd.output = args[1], args[2]
		if cmd.width, err = parseDimension("board_width", args[3]); err != nil {
			return nil, err
		}
		if cmd.height, err = parseDimension("board_height", args[4]); err != nil {
			return nil, err
		}
	case "approx-audio":
		if len(args) != 3 {
			return nil, errUsage
		}

		cmd.source, cmd.output = args[1], args[2]
	case "integration":
		if len(args) < 2 || len(args) > 3 {
			return nil, errUsage
		}

		cmd.source = args[1]
		cmd.width = defaultIntegrationWidth
		if len(args) == 3 {
			if cmd.width, err = parseDimension("board_width", args[2]); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errUsage
	}

	return cmd, nil
}

func parseDimension(name, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q: %w", name,
			arg, tetrify.ErrInvalidDimensions)
	}
	return n, nil
}

func loadCatalog(mode tetrify.TileColor) *tetrify.Catalog {
	cat, err := tetrify.LoadCatalog(*skinsDir, tetrify.CatalogOptions{
		TileColor: mode,
	})
	if err != nil {
		log.Println("Failed to load skins:", err)
		os.Exit(1)
	}

	log.Printf("Loaded %d skins with %dx%d tiles.\n", cat.Len(),
		cat.TileSize().X, cat.TileSize().Y)
	return cat
}

func loadClips(ctx context.Context) *tetrify.ClipSet {
	clips, err := tetrify.LoadClips(ctx, *clipsDir, tetrify.DefaultSampleRate)
	if err != nil {
		log.Println("Failed to load sound clips:", err)
		os.Exit(1)
	}

	log.Printf("Loaded %d sound clips.\n", clips.Len())
	return clips
}
