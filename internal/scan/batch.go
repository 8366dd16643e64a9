package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/poi"
)

// Batch is one scan result as written by a scanning collaborator.
// JSON documents are accepted too, since JSON is valid YAML.
type Batch struct {
	// FetchTime is when the scan was taken, in unix milliseconds.
	FetchTime int64 `yaml:"fetch_time"`

	// Bounds are the rectangles the scan covered, each [west, south, east, north].
	// A west edge greater than the east edge crosses the antimeridian.
	Bounds [][4]float64 `yaml:"bounds,omitempty"`

	// Cells maps a level-14 cell to the POIs found in it. Keys are quadkeys
	// ("2/01230123012301") or hex cell tokens ("487604c5").
	Cells map[string][]Poi `yaml:"cells"`
}

// Poi is one scanned point of interest.
type Poi struct {
	GUID  string         `yaml:"guid"`
	Lat   float64        `yaml:"lat"`
	Lng   float64        `yaml:"lng"`
	Title string         `yaml:"title,omitempty"`
	Tags  []string       `yaml:"tags,omitempty"`
	Data  map[string]any `yaml:"data,omitempty"`
}

// Load reads and parses a batch file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes and validates a batch document.
func Parse(data []byte) (*Batch, error) {
	var b Batch
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}
	return &b, nil
}

// Validate checks field ranges and cell keys.
func (b *Batch) Validate() error {
	if b.FetchTime <= 0 {
		return fmt.Errorf("fetch_time must be a positive unix millisecond timestamp")
	}
	for k, r := range b.Bounds {
		if r[1] < -90 || r[1] > 90 || r[3] < -90 || r[3] > 90 {
			return fmt.Errorf("bounds[%d]: latitude out of range", k)
		}
		if r[0] < -180 || r[0] > 180 || r[2] < -180 || r[2] > 180 {
			return fmt.Errorf("bounds[%d]: longitude out of range", k)
		}
	}
	for key, pois := range b.Cells {
		if _, err := cellKey(key); err != nil {
			return fmt.Errorf("cells[%q]: %w", key, err)
		}
		for k, p := range pois {
			if p.GUID == "" {
				return fmt.Errorf("cells[%q][%d]: guid is required", key, k)
			}
			if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
				return fmt.Errorf("cells[%q][%d]: coordinate (%v, %v) out of range", key, k, p.Lat, p.Lng)
			}
		}
	}
	return nil
}

// Time returns FetchTime as a time.Time.
func (b *Batch) Time() time.Time {
	return time.UnixMilli(b.FetchTime)
}

// ScannedBounds returns the covered rectangles.
func (b *Batch) ScannedBounds() []cell.Bounds {
	out := make([]cell.Bounds, 0, len(b.Bounds))
	for _, r := range b.Bounds {
		out = append(out, cell.NewBounds(r[0], r[1], r[2], r[3]))
	}
	return out
}

// Scan converts the batch into ingestion input. Two keys naming the same
// cell have their POIs concatenated in key order.
func (b *Batch) Scan() (poi.Scan, error) {
	keys := make([]string, 0, len(b.Cells))
	for k := range b.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(poi.Scan, len(b.Cells))
	for _, key := range keys {
		id, err := cellKey(key)
		if err != nil {
			return nil, fmt.Errorf("cells[%q]: %w", key, err)
		}
		pois := out[id]
		if pois == nil {
			pois = []poi.ScanPoi{}
		}
		for _, p := range b.Cells[key] {
			sp, err := p.scanPoi()
			if err != nil {
				return nil, fmt.Errorf("cells[%q]: %w", key, err)
			}
			pois = append(pois, sp)
		}
		out[id] = pois
	}
	return out, nil
}

func (p Poi) scanPoi() (poi.ScanPoi, error) {
	sp := poi.ScanPoi{GUID: p.GUID, Lat: p.Lat, Lng: p.Lng, Title: p.Title, Tags: p.Tags}
	if len(p.Data) > 0 {
		raw, err := json.Marshal(p.Data)
		if err != nil {
			return sp, fmt.Errorf("poi %s: encode data: %w", p.GUID, err)
		}
		sp.Data = raw
	}
	return sp, nil
}

// cellKey resolves a quadkey or hex token to a level-14 cell id.
func cellKey(key string) (cell.ID, error) {
	if strings.Contains(key, "/") {
		id, err := cell.ParseID(key)
		if err != nil {
			return "", err
		}
		if err := id.Check(poi.ScanLevel); err != nil {
			return "", err
		}
		return id, nil
	}
	c, err := cell.TokenToCell(key, poi.ScanLevel)
	if err != nil {
		return "", err
	}
	return c.ID(), nil
}
