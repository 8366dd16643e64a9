package poi

import (
	"encoding/json"
	"strings"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/store"
)

// Levels of the statistics hierarchy.
const (
	ScanLevel = 14
	Level15   = 15
	Level16   = 16
	LeafLevel = 17
)

// Table and index names.
const (
	PoisTable        = "pois"
	CellsTable       = "cells"
	CellIDsIndex     = "cell_ids"
	AncestorIDsIndex = "ancestor_ids"
)

// Schema is the fixed table layout of a Store.
var Schema = store.Schema{Tables: []store.Table{
	{Name: PoisTable, Indexes: []store.Index{
		{Name: CellIDsIndex, KeyPath: "$.cell_ids", MultiEntry: true},
	}},
	{Name: CellsTable, Indexes: []store.Index{
		{Name: AncestorIDsIndex, KeyPath: "$.ancestor_ids", MultiEntry: true},
	}},
}}

// UnknownKind is the kind of a POI that carries no tags.
const UnknownKind = "UNKNOWN"

// PoiRecord is a persisted point of interest.
//
// CellIDs always holds the level-14 and level-15 cells containing (Lat, Lng);
// it is recomputed on every write.
type PoiRecord struct {
	GUID           string          `json:"guid"`
	Lat            float64         `json:"lat"`
	Lng            float64         `json:"lng"`
	Name           string          `json:"name"`
	Tags           []string        `json:"tags,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	FirstFetchDate int64           `json:"first_fetch_date"`
	LastFetchDate  int64           `json:"last_fetch_date"`
	CellIDs        []cell.ID       `json:"cell_ids"`
}

// LatLng returns the record's coordinate.
func (p PoiRecord) LatLng() cell.LatLng {
	return cell.LatLng{Lat: p.Lat, Lng: p.Lng}
}

// Kind is the entity kind of the POI: the part of its first tag before any
// "/" (POKESTOP/ACTIVE is a POKESTOP).
func (p PoiRecord) Kind() string {
	if len(p.Tags) == 0 || p.Tags[0] == "" {
		return UnknownKind
	}
	kind, _, _ := strings.Cut(p.Tags[0], "/")
	return kind
}

// CellRecord marks a cell as scanned, whether or not it holds any POI.
type CellRecord struct {
	CellID         cell.ID     `json:"cell_id"`
	Level          int         `json:"level"`
	AncestorIDs    []cell.ID   `json:"ancestor_ids"`
	FirstFetchDate int64       `json:"first_fetch_date"`
	LastFetchDate  int64       `json:"last_fetch_date"`
	Center         cell.LatLng `json:"center"`
}

// ScanPoi is one POI as reported by a scan.
type ScanPoi struct {
	GUID  string          `json:"guid" yaml:"guid"`
	Lat   float64         `json:"lat" yaml:"lat"`
	Lng   float64         `json:"lng" yaml:"lng"`
	Title string          `json:"title" yaml:"title"`
	Tags  []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	Data  json.RawMessage `json:"data,omitempty" yaml:"-"`
}

// Scan maps each scanned level-14 cell to the POIs the scan found in it. A
// present key with no POIs is a scanned cell whose payload was empty.
type Scan map[cell.ID][]ScanPoi

// cellIDsOf returns the index keys of a POI at ll.
func cellIDsOf(ll cell.LatLng) []cell.ID {
	return []cell.ID{cell.MustIDOf(ll, ScanLevel), cell.MustIDOf(ll, Level15)}
}
