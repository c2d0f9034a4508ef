package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/samirrijal/mileage/internal/adapters/postgres"
	"github.com/samirrijal/mileage/internal/core/domain"
)

// ingestAgency downloads a GTFS feed and stores the agency and its routes.
// Each route gets the shape used by most of its trips.
func ingestAgency(ctx context.Context, agencies *postgres.AgencyRepo, routes *postgres.RouteRepo, client *http.Client, entry AgencyEntry) error {
	slog.Info("downloading GTFS", "agency", entry.Slug, "url", entry.GTFSURL)

	resp, err := client.Get(entry.GTFSURL)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, entry.GTFSURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	agency := &domain.Agency{Slug: entry.Slug, Name: entry.Name, URL: entry.GTFSURL, Timezone: entry.Timezone}
	if agency.Timezone == "" {
		agency.Timezone = "Europe/Madrid"
	}
	if err := agencies.Upsert(ctx, agency); err != nil {
		return fmt.Errorf("upsert agency: %w", err)
	}

	rs, err := readRoutes(zr, agency.ID)
	if err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	// shapes.txt is optional; routes without one get no shape
	shapes, err := readShapes(zr)
	if err != nil {
		slog.Warn("no shapes", "agency", entry.Slug, "error", err)
	} else {
		routeShapes, err := readRouteShapes(zr)
		if err != nil {
			slog.Warn("no trips", "agency", entry.Slug, "error", err)
		}
		for i := range rs {
			if line, ok := shapes[routeShapes[rs[i].RouteID]]; ok {
				rs[i].Shape = &line
			}
		}
	}

	if err := routes.UpsertBatch(ctx, rs); err != nil {
		return fmt.Errorf("upsert routes: %w", err)
	}

	withShape := 0
	for _, r := range rs {
		if r.Shape != nil {
			withShape++
		}
	}
	slog.Info("agency done", "agency", entry.Slug, "routes", len(rs), "with_shape", withShape)
	return nil
}

// readRoutes parses routes.txt.
func readRoutes(zr *zip.Reader, agencyID string) ([]domain.Route, error) {
	var out []domain.Route
	err := eachRecord(zr, "routes.txt", func(record []string, cols map[string]int) {
		routeID := getField(record, cols, "route_id")
		if routeID == "" {
			return
		}
		shortName := getField(record, cols, "route_short_name")
		longName := getField(record, cols, "route_long_name")
		routeType, _ := strconv.Atoi(getField(record, cols, "route_type"))
		color := getField(record, cols, "route_color")
		textColor := getField(record, cols, "route_text_color")

		if longName == "" {
			longName = shortName
		}
		if longName == "" {
			longName = routeID
		}
		if color == "" {
			color = "000000"
		}
		if textColor == "" {
			textColor = "FFFFFF"
		}

		out = append(out, domain.Route{
			RouteID:   routeID,
			AgencyID:  agencyID,
			ShortName: shortName,
			LongName:  longName,
			RouteType: routeType,
			Color:     color,
			TextColor: textColor,
		})
	})
	return out, err
}

// readRouteShapes maps each route to the shape_id used by most of its trips.
func readRouteShapes(zr *zip.Reader) (map[string]string, error) {
	counts := make(map[string]map[string]int)
	err := eachRecord(zr, "trips.txt", func(record []string, cols map[string]int) {
		routeID := getField(record, cols, "route_id")
		shapeID := getField(record, cols, "shape_id")
		if routeID == "" || shapeID == "" {
			return
		}
		if counts[routeID] == nil {
			counts[routeID] = make(map[string]int)
		}
		counts[routeID][shapeID]++
	})

	out := make(map[string]string, len(counts))
	for routeID, shapes := range counts {
		best, n := "", 0
		for shapeID, c := range shapes {
			if c > n || (c == n && shapeID < best) {
				best, n = shapeID, c
			}
		}
		out[routeID] = best
	}
	return out, err
}

// readShapes parses shapes.txt into polylines ordered by shape_pt_sequence.
func readShapes(zr *zip.Reader) (map[string]domain.Polyline, error) {
	type shapePoint struct {
		Lat float64
		Lon float64
		Seq int
	}
	points := make(map[string][]shapePoint)

	err := eachRecord(zr, "shapes.txt", func(record []string, cols map[string]int) {
		shapeID := getField(record, cols, "shape_id")
		lat, err1 := strconv.ParseFloat(getField(record, cols, "shape_pt_lat"), 64)
		lon, err2 := strconv.ParseFloat(getField(record, cols, "shape_pt_lon"), 64)
		seq, _ := strconv.Atoi(getField(record, cols, "shape_pt_sequence"))
		if shapeID == "" || err1 != nil || err2 != nil {
			return
		}
		points[shapeID] = append(points[shapeID], shapePoint{lat, lon, seq})
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Polyline, len(points))
	for shapeID, pts := range points {
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Seq < pts[j].Seq })

		pairs := make([][2]float64, len(pts))
		for i, p := range pts {
			pairs[i] = [2]float64{p.Lon, p.Lat}
		}
		line := domain.NewPolyline(pairs...)
		if line.Validate() != nil {
			continue
		}
		out[shapeID] = line
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// CSV helpers
// ---------------------------------------------------------------------------

func eachRecord(zr *zip.Reader, name string, fn func(record []string, cols map[string]int)) error {
	f, err := openCSV(zr, name)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return err
	}
	cols := indexColumns(header)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			continue
		}
		fn(record, cols)
	}
}

func openCSV(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("file %s not found in zip", name)
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		// Strip BOM from first column
		h = strings.TrimSpace(strings.TrimPrefix(h, "\xef\xbb\xbf"))
		cols[h] = i
	}
	return cols
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
