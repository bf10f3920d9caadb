package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/tmpim/tetrify"
)

var (
	skinsDir   = flag.String("skins", "assets", "set the directory of skins to draw with")
	width      = flag.Int("width", 100, "set the board width")
	workers    = flag.Int("workers", 8, "set the number of concurrent solvers")
	rounds     = flag.Int("n", 20, "set the number of images each worker approximates")
	prioritize = flag.Bool("prioritize", false, "prefer tetrominoes over garbage")
	cpuProfile = flag.String("cpuprofile", "", "write a CPU profile to this file")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		panic("must have path to image")
	}

	cat, err := tetrify.LoadCatalog(*skinsDir, tetrify.CatalogOptions{})
	if err != nil {
		panic(err)
	}

	img, err := tetrify.ReadImage(flag.Arg(0))
	if err != nil {
		panic(err)
	}

	height := max(1, img.Bounds().Dy()*(*width)/img.Bounds().Dx())
	opts := tetrify.ImageOptions{
		Width:    *width,
		Height:   height,
		FitTiles: true,
		Solver:   tetrify.DefaultSolverOptions(),
	}
	opts.Solver.Prioritize = *prioritize

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	wg := new(sync.WaitGroup)
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < *rounds; i++ {
				_, _, err := tetrify.ApproxImage(img, cat, opts)
				if err != nil {
					panic(err)
				}
			}
		}()
	}

	wg.Wait()
	fmt.Printf("%dx%d board, %d images took: %s\n", *width, height,
		(*workers)*(*rounds), time.Since(start))
}
