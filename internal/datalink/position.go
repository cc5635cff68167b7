package datalink

import (
	"time"

	"github.com/sdr-enthusiasts/acarshub-server/internal/physics"
)

// PositionBatch is one fetch of the ADS-B feed: a batch timestamp plus
// every aircraft visible to the receiver.
type PositionBatch struct {
	Now      float64          `json:"now"`
	Aircraft []PositionTarget `json:"aircraft"`
}

// PositionTarget is one aircraft entry from the ADS-B feed
// (tar1090/readsb aircraft.json shape, trimmed to the fields the
// dashboard renders).
type PositionTarget struct {
	Hex          string  `json:"hex"`
	Flight       string  `json:"flight"`
	Registration string  `json:"r,omitempty"`
	AltBaro      float64 `json:"alt_baro"`
	GS           float64 `json:"gs"`
	IAS          float64 `json:"ias"`
	TAS          float64 `json:"tas"`
	Mach         float64 `json:"mach"`
	Track        float64 `json:"track"`
	TrackRate    float64 `json:"track_rate"`
	Roll         float64 `json:"roll"`
	MagHeading   float64 `json:"mag_heading"`
	TrueHeading  float64 `json:"true_heading"`
	BaroRate     float64 `json:"baro_rate"`
	GeomRate     float64 `json:"geom_rate"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

// PositionSample is a snapshot of a prior live position's kinematic
// fields, kept in the bounded per-plane history ring.
type PositionSample struct {
	GS          float64 `json:"gs"`
	IAS         float64 `json:"ias"`
	TAS         float64 `json:"tas"`
	Mach        float64 `json:"mach"`
	Track       float64 `json:"track"`
	TrackRate   float64 `json:"track_rate"`
	Roll        float64 `json:"roll"`
	MagHeading  float64 `json:"mag_heading"`
	TrueHeading float64 `json:"true_heading"`
	BaroRate    float64 `json:"baro_rate"`
	GeomRate    float64 `json:"geom_rate"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// PositionMerger applies ADS-B position updates to planes and retires
// positions that have dropped out of the feed.
type PositionMerger struct {
	historyCap int
	deriveMag  bool
}

// NewPositionMerger creates a merger with the given history ring bound.
func NewPositionMerger(historyCap int, deriveMagneticHeading bool) *PositionMerger {
	return &PositionMerger{historyCap: historyCap, deriveMag: deriveMagneticHeading}
}

// Merge overwrites the plane's live position with the new target,
// first snapshotting the previous position into the history ring. The
// last-updated stamp comes from the batch timestamp, not per aircraft.
func (pm *PositionMerger) Merge(plane *Plane, t *PositionTarget, now float64) {
	if plane.Position != nil {
		plane.History = append(plane.History, PositionSample{})
		copy(plane.History[1:], plane.History)
		plane.History[0] = sampleOf(plane.Position)
		if len(plane.History) > pm.historyCap {
			plane.History = plane.History[:pm.historyCap]
		}
	}

	fix := *t
	if pm.deriveMag && fix.MagHeading == 0 && fix.TrueHeading != 0 && (fix.Lat != 0 || fix.Lon != 0) {
		fix.MagHeading = physics.TrueToMagnetic(fix.TrueHeading, fix.Lat, fix.Lon, fix.AltBaro, time.Now().UTC())
	}

	plane.Position = &fix
	plane.PositionUpdated = now
	plane.refreshIdentity(PositionIdentity(t))
}

// Sweep clears the live position of every plane whose position stamp is
// strictly older than the batch timestamp: the aircraft has dropped out
// of the feed. The plane and its history are kept.
func (pm *PositionMerger) Sweep(planes []*Plane, now float64) {
	for _, p := range planes {
		if p.Position != nil && p.PositionUpdated < now {
			p.Position = nil
			p.PositionUpdated = 0
		}
	}
}

func sampleOf(t *PositionTarget) PositionSample {
	return PositionSample{
		GS:          t.GS,
		IAS:         t.IAS,
		TAS:         t.TAS,
		Mach:        t.Mach,
		Track:       t.Track,
		TrackRate:   t.TrackRate,
		Roll:        t.Roll,
		MagHeading:  t.MagHeading,
		TrueHeading: t.TrueHeading,
		BaroRate:    t.BaroRate,
		GeomRate:    t.GeomRate,
		Lat:         t.Lat,
		Lon:         t.Lon,
	}
}
