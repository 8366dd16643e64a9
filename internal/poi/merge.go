package poi

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cellstore/internal/cell"
)

// Merge folds a freshly scanned POI into its previous record, if any.
//
//   - Lat, Lng and CellIDs always come from p.
//   - Name is p.Title in NFC form, unless the title is empty, in which case
//     the previous name is kept.
//   - Tags come from p; Data comes from p unless p carries none.
//   - FirstFetchDate is kept from old, or set to fetchTime for a new POI.
//   - LastFetchDate is always fetchTime.
func Merge(old *PoiRecord, p ScanPoi, fetchTime int64) PoiRecord {
	ll := cell.LatLng{Lat: p.Lat, Lng: p.Lng}
	rec := PoiRecord{
		GUID:           p.GUID,
		Lat:            p.Lat,
		Lng:            p.Lng,
		Name:           norm.NFC.String(p.Title),
		Tags:           append([]string(nil), p.Tags...),
		Data:           p.Data,
		FirstFetchDate: fetchTime,
		LastFetchDate:  fetchTime,
		CellIDs:        cellIDsOf(ll),
	}
	if old == nil {
		return rec
	}

	rec.FirstFetchDate = old.FirstFetchDate
	if rec.Name == "" {
		rec.Name = old.Name
	}
	if len(rec.Data) == 0 {
		rec.Data = old.Data
	}
	return rec
}
