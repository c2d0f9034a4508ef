package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/samirrijal/mileage/internal/core/domain"
)

const testRegions = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"name":"west"},"geometry":{"type":"Polygon","coordinates":[[[-1,-1],[0,-1],[0,1],[-1,1],[-1,-1]]]}},
{"type":"Feature","properties":{"name":"east"},"geometry":{"type":"Polygon","coordinates":[[[0,-1],[1,-1],[1,1],[0,1],[0,-1]]]}}
]}`

const testLine = `{"type":"LineString","coordinates":[[-0.5,0],[0.5,0]]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// resetFlags restores flag defaults left over from a previous run.
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(mainCmd.PersistentFlags())
	resetFlags(computeCmd.Flags())
	var out bytes.Buffer
	mainCmd.SetArgs(args)
	mainCmd.SetOut(&out)
	mainCmd.SetIn(strings.NewReader(stdin))
	err := mainCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCompute(t *testing.T) {
	dir := t.TempDir()
	regions := writeFile(t, dir, "regions.geojson", testRegions)
	line := writeFile(t, dir, "line.geojson", testLine)

	out, err := execute(t, "", "compute", "-r", regions, "--unit", "deg", line)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	var res domain.MileageResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(res.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(res.Regions))
	}
	for _, e := range res.Regions {
		if math.Abs(e.Length-0.5) > 1e-9 {
			t.Errorf("%s: expected 0.5, got %g", e.Region, e.Length)
		}
	}
}

func TestCompute_StdinGeoJSON(t *testing.T) {
	dir := t.TempDir()
	regions := writeFile(t, dir, "regions.geojson", testRegions)

	out, err := execute(t, testLine, "compute", "-r", regions, "--unit", "km", "--regions", "west", "--geojson", "-")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !strings.Contains(out, `"FeatureCollection"`) {
		t.Errorf("expected a FeatureCollection, got %s", out)
	}
}

func TestCompute_Errors(t *testing.T) {
	dir := t.TempDir()
	regions := writeFile(t, dir, "regions.geojson", testRegions)
	line := writeFile(t, dir, "line.geojson", testLine)

	if _, err := execute(t, "", "compute", "-r", regions, "--unit", "furlongs", line); err == nil {
		t.Error("expected error for unknown unit")
	}
	if _, err := execute(t, "", "compute", "-r", regions, "--unit", "km", "--missing", "fail", "--regions", "atlantis", line); err == nil {
		t.Error("expected error for unresolvable region")
	}
	if _, err := execute(t, "", "compute", "-r", "", "--unit", "km", "--missing", "skip", "--regions", "", line); err == nil {
		t.Error("expected error without a regions file")
	}
}

func TestRegions(t *testing.T) {
	dir := t.TempDir()
	regions := writeFile(t, dir, "regions.geojson", testRegions)

	out, err := execute(t, "", "regions", "-r", regions)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "east") || !strings.HasPrefix(lines[2], "west") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}
