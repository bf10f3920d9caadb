package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tmpim/tetrify"
	"golang.org/x/sync/errgroup"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

type integrationResult struct {
	name    string
	width   int
	height  int
	score   float64
	garbage int
}

// runIntegration approximates every image in dir with a board width minos
// wide and reports how far each result is from its source.
func runIntegration(ctx context.Context, dir string, width int,
	cat *tetrify.Catalog, solver tetrify.SolverOptions) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	if len(paths) == 0 {
		return errors.New("no images found in " + dir)
	}

	log.Printf("Approximating %d images from %s...\n", len(paths), dir)
	start := time.Now()

	results := make([]integrationResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*threads)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := scoreImage(path, width, cat, solver)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			log.Printf("Diff: %.4f, Source: %s\n", res.score, path)
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].score < results[j].score
	})

	var total float64
	log.Println("")
	for _, res := range results {
		total += res.score
		log.Printf("%-32s %4dx%-4d diff %.4f, %d garbage\n", res.name,
			res.width, res.height, res.score, res.garbage)
	}

	log.Println("")
	log.Printf("Number of images: %d\n", len(results))
	log.Printf("Total diff: %.4f\n", total)
	log.Printf("Average diff: %.4f\n", total/float64(len(results)))
	log.Printf("Time elapsed: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func scoreImage(path string, width int, cat *tetrify.Catalog,
	solver tetrify.SolverOptions) (integrationResult, error) {
	img, err := tetrify.ReadImage(path)
	if err != nil {
		return integrationResult{}, err
	}

	size := img.Bounds().Size()
	height := 1
	if size.X > 0 && size.Y*width/size.X > 1 {
		height = size.Y * width / size.X
	}

	output, board, err := tetrify.ApproxImage(img, cat, tetrify.ImageOptions{
		Width:    width,
		Height:   height,
		FitTiles: true,
		Solver:   solver,
	})
	if err != nil {
		return integrationResult{}, err
	}

	score, err := tetrify.Score(img, output)
	if err != nil {
		return integrationResult{}, err
	}

	return integrationResult{
		name:    filepath.Base(path),
		width:   width,
		height:  height,
		score:   score,
		garbage: len(board.Garbage),
	}, nil
}
