package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func exampleBuilding(t *testing.T) *Building {
	t.Helper()
	series, err := NewTimeSeries([]Point{
		{Timestamp: 1642809600000, Value: Float(1.5355268051)},
		{Timestamp: 1642810500000, Value: Float(0.5147979489)},
	})
	if err != nil {
		t.Fatalf("NewTimeSeries() error = %v", err)
	}
	return &Building{
		Name:      "buildingA",
		Sensors:   []Sensor{{Type: "Elektrizität", Desc: "P Summe", Unit: "kW"}},
		Dataframe: map[string]TimeSeries{"Elektrizität": series},
	}
}

func TestDataset_Encode(t *testing.T) {
	d := Dataset{"buildingA": exampleBuilding(t)}

	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := `{"buildingA":{"name":"buildingA","sensors":[{"type":"Elektrizität","desc":"P Summe","unit":"kW"}],"dataframe":{"Elektrizität":{"1642809600000":1.5355268051,"1642810500000":0.5147979489}}}}`
	if got := buf.String(); got != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}
}

func TestDataset_EncodeNull(t *testing.T) {
	series, err := NewTimeSeries([]Point{
		{Timestamp: 2000, Value: nil},
		{Timestamp: 3000, Value: Float(2)},
	})
	if err != nil {
		t.Fatalf("NewTimeSeries() error = %v", err)
	}
	d := Dataset{"b": {
		Name:      "b",
		Sensors:   []Sensor{{Type: "Wärme"}},
		Dataframe: map[string]TimeSeries{"Wärme": series},
	}}

	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(buf.String(), `{"2000":null,"3000":2}`) {
		t.Errorf("Encode() = %s, want null reading encoded", buf.String())
	}
}

func TestDataset_EncodeDeterministic(t *testing.T) {
	d := Dataset{
		"zeta":  exampleBuilding(t),
		"alpha": exampleBuilding(t),
	}
	d["zeta"].Name = "zeta"
	d["alpha"].Name = "alpha"

	var first bytes.Buffer
	if err := d.Encode(&first); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		var again bytes.Buffer
		if err := d.Encode(&again); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if !bytes.Equal(first.Bytes(), again.Bytes()) {
			t.Fatal("Encode() output differs between calls")
		}
	}
	if strings.Index(first.String(), `"alpha"`) > strings.Index(first.String(), `"zeta"`) {
		t.Error("buildings not encoded in ascending name order")
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	d := Dataset{"buildingA": exampleBuilding(t)}

	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	encoded := buf.String()

	got, err := Decode(strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	b, err := got.Get("buildingA")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !b.Dataframe["Elektrizität"].Equal(d["buildingA"].Dataframe["Elektrizität"]) {
		t.Error("decoded series differs from original")
	}

	var again bytes.Buffer
	if err := got.Encode(&again); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if again.String() != encoded {
		t.Errorf("re-encoded = %s, want %s", again.String(), encoded)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "bad timestamp key",
			input:   `{"a":{"name":"a","sensors":[{"type":"x","desc":"","unit":""}],"dataframe":{"x":{"yesterday":1}}}}`,
			wantErr: ErrInvalidTimestamp,
		},
		{
			name:    "name does not match key",
			input:   `{"a":{"name":"b","sensors":[{"type":"x","desc":"","unit":""}],"dataframe":{"x":{"1":1}}}}`,
			wantErr: ErrInvalidBuilding,
		},
		{
			name:    "empty dataframe",
			input:   `{"a":{"name":"a","sensors":[],"dataframe":{}}}`,
			wantErr: ErrInvalidBuilding,
		},
		{
			name:    "series without sensor",
			input:   `{"a":{"name":"a","sensors":[],"dataframe":{"x":{"1":1}}}}`,
			wantErr: ErrInvalidBuilding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuilding_Validate(t *testing.T) {
	b := exampleBuilding(t)
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	dup := b.Clone()
	dup.Sensors = append(dup.Sensors, dup.Sensors[0])
	if err := dup.Validate(); !errors.Is(err, ErrInvalidBuilding) {
		t.Errorf("duplicate sensor: Validate() error = %v, want ErrInvalidBuilding", err)
	}

	twoOwners := b.Clone()
	twoOwners.Sensors = append(twoOwners.Sensors, Sensor{Type: "Elektrizität", Desc: "P L1", Unit: "kW"})
	if err := twoOwners.Validate(); !errors.Is(err, ErrInvalidBuilding) {
		t.Errorf("two sensors for one type: Validate() error = %v, want ErrInvalidBuilding", err)
	}
}

func TestNewTimeSeries_Unordered(t *testing.T) {
	_, err := NewTimeSeries([]Point{{Timestamp: 2}, {Timestamp: 2}})
	if !errors.Is(err, ErrUnorderedSeries) {
		t.Errorf("NewTimeSeries() error = %v, want ErrUnorderedSeries", err)
	}
}

func TestTimeSeries_GetAndRange(t *testing.T) {
	series, err := NewTimeSeries([]Point{
		{Timestamp: 10, Value: Float(1)},
		{Timestamp: 20, Value: nil},
		{Timestamp: 30, Value: Float(3)},
		{Timestamp: 40, Value: Float(4)},
	})
	if err != nil {
		t.Fatalf("NewTimeSeries() error = %v", err)
	}

	if v, ok := series.Get(30); !ok || v == nil || *v != 3 {
		t.Errorf("Get(30) = %v, %v; want 3, true", v, ok)
	}
	if v, ok := series.Get(20); !ok || v != nil {
		t.Errorf("Get(20) = %v, %v; want nil, true", v, ok)
	}
	if _, ok := series.Get(25); ok {
		t.Error("Get(25) found a value for an absent timestamp")
	}

	tests := []struct {
		from, to int64
		want     []int64
	}{
		{20, 30, []int64{20, 30}},
		{0, 100, []int64{10, 20, 30, 40}},
		{11, 19, nil},
		{40, 40, []int64{40}},
		{50, 10, nil},
	}
	for _, tt := range tests {
		got := series.Range(tt.from, tt.to).Timestamps()
		if len(got) != len(tt.want) {
			t.Errorf("Range(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Range(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
				break
			}
		}
	}
}

func TestBuilding_Slice(t *testing.T) {
	b := exampleBuilding(t)

	got, err := b.Slice([]string{"Elektrizität"}, 1642809600000, 1642809600000)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if got["Elektrizität"].Len() != 1 {
		t.Errorf("Slice() len = %d, want 1", got["Elektrizität"].Len())
	}

	if _, err := b.Slice([]string{"Wasser"}, 0, 1); !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("Slice() error = %v, want ErrSensorNotFound", err)
	}
}

func TestStore_Swap(t *testing.T) {
	s := NewStore()
	if d, id := s.Load(); len(d) != 0 || id != "" {
		t.Fatalf("new store Load() = %v, %q; want empty", d, id)
	}
	if !s.LoadedAt().IsZero() {
		t.Error("new store LoadedAt() should be zero")
	}

	s.Swap(Dataset{"buildingA": exampleBuilding(t)}, "run-1")
	d, id := s.Load()
	if id != "run-1" {
		t.Errorf("Load() run = %q, want run-1", id)
	}
	if _, err := d.Get("buildingA"); err != nil {
		t.Errorf("Get() error = %v", err)
	}
	if s.LoadedAt().IsZero() {
		t.Error("LoadedAt() should be set after Swap")
	}

	if _, err := d.Get("missing"); !errors.Is(err, ErrBuildingNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrBuildingNotFound", err)
	}
}
