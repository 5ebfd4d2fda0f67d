// Package main prints the PREV'AIR station list, optionally sorted by
// distance from a location.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
	"github.com/prevairwatch/prevairwatch/internal/airquality/prevair"
	"github.com/prevairwatch/prevairwatch/internal/monitor"
)

func main() {
	location := flag.String("location", "", `sort by distance from "lat;lon"`)
	limit := flag.Int("n", 0, "print at most n stations (0 for all)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	_ = godotenv.Load()
	baseURL := os.Getenv("PREVAIR_BASE_URL")

	var home *airquality.Point
	if *location != "" {
		p, err := monitor.ParseLocation(*location)
		if err != nil {
			log.Fatal().Err(err).Str("location", *location).Msg("invalid location")
		}
		home = &p
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := prevair.NewClient(prevair.ClientConfig{
		BaseURL: baseURL,
		Logger:  log,
	})

	log.Debug().Str("url", client.BuildURL(prevair.EndpointStations, "", "")).Msg("fetching stations")
	stations, err := client.FetchStations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch stations")
	}

	distances := make(map[*airquality.Station]int, len(stations))
	if home != nil {
		for _, s := range stations {
			distances[s] = airquality.DistanceKm(home.Lat, home.Lon, s.Lat, s.Lon)
		}
		sort.SliceStable(stations, func(i, j int) bool {
			return distances[stations[i]] < distances[stations[j]]
		})
	}
	if *limit > 0 && *limit < len(stations) {
		stations = stations[:*limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if home != nil {
		fmt.Fprintln(w, "CODE\tINSEE\tNAME\tLAT\tLON\tKM")
	} else {
		fmt.Fprintln(w, "CODE\tINSEE\tNAME\tLAT\tLON")
	}
	for _, s := range stations {
		if home != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%d\n", s.Code, s.INSEE, s.Label(), s.Lat, s.Lon, distances[s])
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\n", s.Code, s.INSEE, s.Label(), s.Lat, s.Lon)
	}
	if err := w.Flush(); err != nil {
		log.Fatal().Err(err).Msg("failed to write station list")
	}

	log.Info().Int("stations", len(stations)).Msg("done")
}
