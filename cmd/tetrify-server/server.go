package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/tmpim/tetrify"
)

// maxBoardSize bounds each board dimension a request may ask for.
const maxBoardSize = 1024

var (
	listen    = flag.String("listen", ":9999", "set the address to listen on")
	skinsDir  = flag.String("skins", "assets", "set the directory of skins to draw with")
	bodyLimit = flag.String("body-limit", "32M", "set the largest accepted image upload")
)

type skinsResponse struct {
	Skins      []string `json:"skins"`
	TileWidth  int      `json:"tile_width"`
	TileHeight int      `json:"tile_height"`
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	cat, err := tetrify.LoadCatalog(*skinsDir, tetrify.CatalogOptions{})
	if err != nil {
		log.Fatal("tetrify server: failed to load skins: ", err)
	}

	log.Printf("tetrify server: loaded %d skins from %s\n", cat.Len(), *skinsDir)

	e := newServer(cat)
	e.Use(middleware.Logger())

	log.Fatal(e.Start(*listen))
}

func newServer(cat *tetrify.Catalog) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.BodyLimit(*bodyLimit))

	api := e.Group("/api")

	api.GET("/skins", func(c echo.Context) error {
		return c.JSON(http.StatusOK, &skinsResponse{
			Skins:      cat.Names(),
			TileWidth:  cat.TileSize().X,
			TileHeight: cat.TileSize().Y,
		})
	})

	api.POST("/approx", func(c echo.Context) error {
		opts, err := approxOptions(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		img, err := tetrify.DecodeImage(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		output, _, err := tetrify.ApproxImage(img, cat, opts)
		if errors.Is(err, tetrify.ErrInvalidDimensions) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		} else if err != nil {
			return err
		}

		buf := new(bytes.Buffer)
		if err := png.Encode(buf, output); err != nil {
			return err
		}

		return c.Blob(http.StatusOK, "image/png", buf.Bytes())
	})

	return e
}

// approxOptions reads the approximation options from the query of c.
func approxOptions(c echo.Context) (tetrify.ImageOptions, error) {
	opts := tetrify.ImageOptions{
		FitTiles: true,
		Solver:   tetrify.DefaultSolverOptions(),
	}

	var err error
	opts.Width, err = boardDimension(c, "width")
	if err != nil {
		return opts, err
	}

	opts.Height, err = boardDimension(c, "height")
	if err != nil {
		return opts, err
	}

	if p := c.QueryParam("prioritize"); p != "" {
		opts.Solver.Prioritize, err = strconv.ParseBool(p)
		if err != nil {
			return opts, fmt.Errorf("prioritize must be a boolean, got %q", p)
		}
	}

	if f := c.QueryParam("fit"); f != "" {
		opts.FitTiles, err = strconv.ParseBool(f)
		if err != nil {
			return opts, fmt.Errorf("fit must be a boolean, got %q", f)
		}
	}

	opts.Solver.Metric, err = tetrify.ParseMetric(c.QueryParam("metric"))
	if err != nil {
		return opts, err
	}

	return opts, nil
}

func boardDimension(c echo.Context, name string) (int, error) {
	arg := c.QueryParam(name)
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 || n > maxBoardSize {
		return 0, fmt.Errorf("%s must be an integer from 1 to %d, got %q", name,
			maxBoardSize, arg)
	}
	return n, nil
}
