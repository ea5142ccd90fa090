package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/building-data/internal/dataset"
)

const longHeader = "building,timestamp,type,description,unit,value\n"

func newTestImporter(t *testing.T, opts Options) *Importer {
	t.Helper()
	im, err := New(opts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return im
}

func encode(t *testing.T, d dataset.Dataset) string {
	t.Helper()
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return buf.String()
}

func importFiles(t *testing.T, files map[string]string, order []string) *Result {
	t.Helper()
	dir := t.TempDir()
	var sources []Source
	for _, name := range order {
		sources = append(sources, Source{Path: writeFile(t, dir, name, files[name])})
	}
	res, err := newTestImporter(t, Options{}).Import(context.Background(), sources)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	return res
}

func TestImport_EndToEnd(t *testing.T) {
	files := map[string]string{
		"a.csv": longHeader +
			"buildingA,1642809600000,Elektrizität,P Summe,kW,1.5355268051\n" +
			"buildingA,1642810500000,Elektrizität,P Summe,kW,0.5147979489\n",
	}
	res := importFiles(t, files, []string{"a.csv"})

	want := `{"buildingA":{"name":"buildingA","sensors":[{"type":"Elektrizität","desc":"P Summe","unit":"kW"}],"dataframe":{"Elektrizität":{"1642809600000":1.5355268051,"1642810500000":0.5147979489}}}}`
	if got := encode(t, res.Dataset); got != want {
		t.Errorf("dataset =\n%s\nwant\n%s", got, want)
	}
	if res.Summary.Imported != 1 || len(res.Summary.Dropped) != 0 || len(res.Summary.Warnings) != 0 {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestImport_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", longHeader+
		"A,1000,Elektrizität,P Summe,kW,1\n"+
		"A,1000,Elektrizität,P Summe,kW,2\n"+
		"A,2000,Wärme,Q,kWh,0.1\n"+
		"B,1000,Wärme,Q,kWh,7\n")
	writeFile(t, dir, "b.csv", longHeader+
		"A,1000,Elektrizität,P Summe,kW,0.3\n"+
		"B,3000,Wärme,Q,kWh,n/a\n")

	im := newTestImporter(t, Options{SourceDir: dir})
	first, err := im.ImportDir(context.Background())
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}
	second, err := im.ImportDir(context.Background())
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}

	if encode(t, first.Dataset) != encode(t, second.Dataset) {
		t.Error("repeated import produced different output")
	}
	if first.Dataset["A"] == second.Dataset["A"] {
		t.Error("repeated import returned the same building pointer")
	}
}

func TestImport_OrderIndependent(t *testing.T) {
	// The same rows in one file, and split across files in two groupings.
	// Expected: Elektrizität {1000: 2, 2000: 2}, Wärme {1000: 5, 2000: 7}.
	const (
		x1a = "A,1000,Elektrizität,P Summe,kW,1\n"
		x1b = "A,1000,Elektrizität,P Summe,kW,3\n"
		x2  = "A,2000,Elektrizität,P Summe,kW,2\n"
		y1  = "A,1000,Wärme,Q,kWh,5\n"
		y2a = "A,2000,Wärme,Q,kWh,\n"
		y2b = "A,2000,Wärme,Q,kWh,7\n"
	)

	groupings := []map[string]string{
		{"all.csv": longHeader + x1a + y1 + x2 + x1b + y2a + y2b},
		{
			"a.csv": longHeader + x1a + y1,
			"b.csv": longHeader + x2 + y2b,
			"c.csv": longHeader + x1b + y2a,
		},
		{
			"a.csv": longHeader + x1b + y2b + y1,
			"b.csv": longHeader + x2 + y2a + x1a,
		},
		// Wärme is seen first here.
		{
			"a.csv": longHeader + y1 + y2a + y2b,
			"b.csv": longHeader + x1a + x1b + x2,
		},
	}

	var want string
	for i, files := range groupings {
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		// Forward and reversed source lists.
		orders := [][]string{names, reversed(names)}
		for _, order := range orders {
			got := encode(t, importFiles(t, files, order).Dataset)
			if want == "" {
				want = got
				continue
			}
			if got != want {
				t.Errorf("grouping %d order %v:\n got %s\nwant %s", i, order, got, want)
			}
		}
	}

	wantJSON := `"sensors":[{"type":"Elektrizität","desc":"P Summe","unit":"kW"},{"type":"Wärme","desc":"Q","unit":"kWh"}],` +
		`"dataframe":{"Elektrizität":{"1000":2,"2000":2},"Wärme":{"1000":5,"2000":7}}`
	if !strings.Contains(want, wantJSON) {
		t.Errorf("dataset = %s, want %s", want, wantJSON)
	}
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func TestImport_DuplicateResolutionAcrossFiles(t *testing.T) {
	files := map[string]string{
		"one.csv": longHeader + "buildingA,1642809600000,Elektrizität,P Summe,kW,1.0\n" +
			"buildingA,1642810500000,Elektrizität,P Summe,kW,1.0\n",
		"two.csv": longHeader + "buildingA,1642809600000,Elektrizität,P Summe,kW,3.0\n" +
			"buildingA,1642810500000,Elektrizität,P Summe,kW,\n",
	}
	res := importFiles(t, files, []string{"two.csv", "one.csv"})

	series := res.Dataset["buildingA"].Dataframe["Elektrizität"]
	if v, _ := series.Get(t0); v == nil || *v != 2.0 {
		t.Errorf("value at %d = %v, want 2.0", int64(t0), v)
	}
	if v, _ := series.Get(t1); v == nil || *v != 1.0 {
		t.Errorf("value at %d = %v, want 1.0", int64(t1), v)
	}
}

func TestImport_ConflictingMetadata(t *testing.T) {
	files := map[string]string{
		"1.csv": longHeader + "buildingA,1642809600000,Elektrizität,P Summe,kW,1.5\n",
		"2.csv": longHeader + "buildingA,1642810500000,Elektrizität,P Summe,W,1500\n",
	}
	res := importFiles(t, files, []string{"2.csv", "1.csv"})

	b, err := res.Dataset.Get("buildingA")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(b.Sensors) != 1 || b.Sensors[0].Unit != "kW" {
		t.Errorf("sensors = %+v, want single sensor with unit kW", b.Sensors)
	}
	if b.Dataframe["Elektrizität"].Len() != 2 {
		t.Errorf("series len = %d, want 2", b.Dataframe["Elektrizität"].Len())
	}
	if n := res.Summary.Count(KindConflictingMetadata); n != 1 {
		t.Errorf("ConflictingMetadata warnings = %d, want 1", n)
	}
}

func TestImport_SharedTypeKeepsFirstDescriptor(t *testing.T) {
	files := map[string]string{
		"a.csv": longHeader +
			"A,1000,Elektrizität,P Summe,kW,1\n" +
			"A,1000,Elektrizität,P L1,kW,9\n",
	}
	res := importFiles(t, files, []string{"a.csv"})

	b := res.Dataset["A"]
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(b.Sensors) != 1 || b.Sensors[0].Desc != "P Summe" {
		t.Errorf("sensors = %+v, want only P Summe", b.Sensors)
	}
	if v, _ := b.Dataframe["Elektrizität"].Get(1000); v == nil || *v != 1 {
		t.Errorf("value = %v, want 1 from the first descriptor", v)
	}
	if res.Summary.Count(KindConflictingMetadata) != 1 {
		t.Errorf("warnings = %+v, want one ConflictingMetadata", res.Summary.Warnings)
	}
}

func TestImport_EmptySeriesExcluded(t *testing.T) {
	files := map[string]string{
		"a.csv": longHeader +
			"A,1000,Elektrizität,P Summe,kW,1\n" +
			"A,1000,Wärme,Q,kWh,n/a\n" +
			"A,2000,Wärme,Q,kWh,error\n",
	}
	res := importFiles(t, files, []string{"a.csv"})

	b := res.Dataset["A"]
	if b == nil {
		t.Fatal("building A missing")
	}
	if _, ok := b.Dataframe["Wärme"]; ok {
		t.Error("empty series kept in dataframe")
	}
	if _, ok := b.Sensor("Wärme"); ok {
		t.Error("sensor of empty series kept")
	}

	found := false
	for _, w := range res.Summary.Warnings {
		if w.Kind == KindEmptySeries && w.Building == "A" && w.Type == "Wärme" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %+v, want EmptySeries for A/Wärme", res.Summary.Warnings)
	}
}

func TestImport_InvalidBuildingDropped(t *testing.T) {
	files := map[string]string{
		"a.csv": longHeader +
			"A,1000,Elektrizität,P Summe,kW,1\n" +
			"B,1000,Elektrizität,P Summe,kW,n/a\n" +
			"B,1000,Wärme,Q,kWh,\n",
	}
	res := importFiles(t, files, []string{"a.csv"})

	if _, ok := res.Dataset["B"]; ok {
		t.Error("building B should be excluded")
	}
	if res.Summary.Imported != 1 {
		t.Errorf("imported = %d, want 1", res.Summary.Imported)
	}
	if len(res.Summary.Dropped) != 1 {
		t.Fatalf("dropped = %+v, want one entry", res.Summary.Dropped)
	}
	if d := res.Summary.Dropped[0]; d.Building != "B" || d.Reason != ReasonInvalidBuilding {
		t.Errorf("drop = %+v, want {B InvalidBuilding}", d)
	}
}

func TestImport_BadSourceSkipped(t *testing.T) {
	files := map[string]string{
		"good.csv":   longHeader + "A,1000,Elektrizität,P Summe,kW,1\n",
		"broken.csv": "",
		"schema.csv": "building,type,value\nA,x,1\n",
	}
	res := importFiles(t, files, []string{"good.csv", "broken.csv", "schema.csv"})

	if res.Summary.Imported != 1 {
		t.Errorf("imported = %d, want 1", res.Summary.Imported)
	}
	reasons := map[string]string{}
	for _, d := range res.Summary.Dropped {
		reasons[filepath.Base(d.Building)] = d.Reason
	}
	if reasons["broken.csv"] != ReasonMalformedSource {
		t.Errorf("broken.csv reason = %q, want MalformedSource", reasons["broken.csv"])
	}
	if reasons["schema.csv"] != ReasonSchemaMismatch {
		t.Errorf("schema.csv reason = %q, want SchemaMismatch", reasons["schema.csv"])
	}
}

func TestImport_Aborted(t *testing.T) {
	dir := t.TempDir()
	im := newTestImporter(t, Options{})

	if _, err := im.Import(context.Background(), nil); !errors.Is(err, ErrImportAborted) {
		t.Errorf("no sources: error = %v, want ErrImportAborted", err)
	}

	bad := []Source{
		{Path: writeFile(t, dir, "a.csv", "")},
		{Path: filepath.Join(dir, "missing.csv")},
	}
	if _, err := im.Import(context.Background(), bad); !errors.Is(err, ErrImportAborted) {
		t.Errorf("all unreadable: error = %v, want ErrImportAborted", err)
	}

	empty := newTestImporter(t, Options{SourceDir: t.TempDir()})
	if _, err := empty.ImportDir(context.Background()); !errors.Is(err, ErrImportAborted) {
		t.Errorf("empty directory: error = %v, want ErrImportAborted", err)
	}
}

func TestImport_ZeroBuildingsIsNotAnError(t *testing.T) {
	files := map[string]string{
		"a.csv": longHeader + "A,1000,Elektrizität,P Summe,kW,n/a\n",
	}
	res := importFiles(t, files, []string{"a.csv"})

	if len(res.Dataset) != 0 || res.Summary.Imported != 0 {
		t.Errorf("dataset = %v, want empty", res.Dataset)
	}
	if got := encode(t, res.Dataset); got != "{}" {
		t.Errorf("encoded = %s, want {}", got)
	}
}

func TestImport_Cancelled(t *testing.T) {
	dir := t.TempDir()
	src := Source{Path: writeFile(t, dir, "a.csv", longHeader+"A,1000,x,,,1\n")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestImporter(t, Options{}).Import(ctx, []Source{src})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Import() error = %v, want context.Canceled", err)
	}
}

func TestImport_Weather(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", longHeader+
		"A,1642809600000,Elektrizität,P Summe,kW,1\n"+
		"A,1642810500000,Elektrizität,P Summe,kW,2\n")
	weather := writeFile(t, dir, "weather.csv",
		"station,quality,timestamp,temperature\n"+
			"x,1,2022-01-22 00:00:00,3.5\n"+
			"x,1,2022-01-23 00:00:00,4.5\n")

	im := newTestImporter(t, Options{SourceDir: dir, WeatherPath: weather})

	sources, err := im.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("Discover() = %+v, want only a.csv", sources)
	}

	res, err := im.Import(context.Background(), sources)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	b := res.Dataset["A"]
	if _, ok := b.Sensor(WeatherSensor.Type); !ok {
		t.Fatalf("sensors = %+v, want weather sensor", b.Sensors)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	temp := b.Dataframe[WeatherSensor.Type]
	if temp.Len() != 2 {
		t.Fatalf("weather series len = %d, want 2 (building timestamps only)", temp.Len())
	}
	if v, _ := temp.Get(t0); v == nil || *v != 3.5 {
		t.Errorf("temperature at t0 = %v, want 3.5", v)
	}
	if v, ok := temp.Get(t1); !ok || v != nil {
		t.Errorf("temperature at t1 = %v, %v; want explicit null", v, ok)
	}
}

func TestImport_WeatherUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", longHeader+"A,1000,Elektrizität,P Summe,kW,1\n")

	im := newTestImporter(t, Options{SourceDir: dir, WeatherPath: filepath.Join(t.TempDir(), "none.csv")})
	res, err := im.ImportDir(context.Background())
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}
	if res.Summary.Count(KindWeather) != 1 {
		t.Errorf("warnings = %+v, want one WeatherUnavailable", res.Summary.Warnings)
	}
	if _, ok := res.Dataset["A"].Dataframe[WeatherSensor.Type]; ok {
		t.Error("weather series joined from a missing file")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "x")
	writeFile(t, dir, "a.XLSX", "x")
	writeFile(t, dir, "c.csv.gz", "x")
	writeFile(t, dir, "notes.md", "x")
	writeFile(t, dir, ".hidden.csv", "x")
	writeFile(t, dir, "~$lock.xlsx", "x")

	im := newTestImporter(t, Options{SourceDir: dir, Extensions: []string{"csv", ".xlsx"}})
	sources, err := im.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	var got []string
	for _, s := range sources {
		got = append(got, filepath.Base(s.Path))
	}
	want := []string{"a.XLSX", "b.csv", "c.csv.gz"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscover_RelativeSourceDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "a.csv", longHeader+"A,1000,Elektrizität,P Summe,kW,1\n")
	weather := writeFile(t, dir, "weather.csv", "timestamp,temperature\n1000,3.5\n")
	t.Chdir(root)

	im := newTestImporter(t, Options{SourceDir: "data", WeatherPath: weather})
	sources, err := im.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(sources) != 1 || filepath.Base(sources[0].Path) != "a.csv" {
		t.Errorf("Discover() = %+v, want only a.csv", sources)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown clock", Options{Clock: "lunar"}},
		{"standard without location", Options{Clock: ClockStandard}},
		{"unknown format", Options{Format: "parquet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts, nil); !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("New() error = %v, want ErrInvalidOptions", err)
			}
		})
	}

	im := newTestImporter(t, Options{})
	if _, err := im.Discover(); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("Discover() without dir error = %v, want ErrInvalidOptions", err)
	}
}
