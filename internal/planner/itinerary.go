package planner

import (
	"strings"

	"github.com/google/uuid"
	"tripsearch.onebusaway.org/internal/network"
)

// Kind classifies an itinerary.
type Kind string

const (
	KindDirect      Kind = "direct"
	KindTransfer    Kind = "transfer"
	KindWalkOnly    Kind = "walk_only"
	KindUnavailable Kind = "unavailable"
)

// LegType is the discriminator of the Leg union.
type LegType string

const (
	LegWalk     LegType = "walk"
	LegRide     LegType = "ride"
	LegTransfer LegType = "transfer"
)

// Tag values attached by RankAndTag.
const (
	TagRecommended = "Recommended"
	TagFastest     = "Fastest"
	TagCheapest    = "Cheapest"
	TagNoTransfer  = "No Transfer"
)

// Endpoint is a named point where a trip starts or ends.
type Endpoint struct {
	Name     string
	Location network.Coordinate
}

// Place is one end of a leg: either a free point or a stop.
type Place struct {
	Name     string
	StopID   string
	Location network.Coordinate
}

func placeFromEndpoint(e Endpoint) Place {
	return Place{Name: e.Name, Location: e.Location}
}

func placeFromStop(s network.Stop) Place {
	return Place{Name: s.Name, StopID: s.ID, Location: s.Location}
}

// Leg is one segment of an itinerary. It is implemented by *WalkLeg, *RideLeg and
// *TransferLeg only.
type Leg interface {
	Type() LegType
	DurationMinutes() int
	DistanceMeters() float64
	isLeg()
}

// WalkLeg is a walk between two places.
type WalkLeg struct {
	From     Place
	To       Place
	Distance float64
	Minutes  int
}

func (l *WalkLeg) Type() LegType           { return LegWalk }
func (l *WalkLeg) DurationMinutes() int    { return l.Minutes }
func (l *WalkLeg) DistanceMeters() float64 { return l.Distance }
func (*WalkLeg) isLeg()                    {}

// RideLeg is a ride on one line between two of its stops.
type RideLeg struct {
	Line        network.Line
	BoardStop   network.Stop
	AlightStop  network.Stop
	Distance    float64
	Minutes     int
	WaitMinutes int
	Fare        float64
	// Path is the ordered list of stops traversed, board and alight included.
	Path []network.Stop
}

func (l *RideLeg) Type() LegType           { return LegRide }
func (l *RideLeg) DurationMinutes() int    { return l.Minutes }
func (l *RideLeg) DistanceMeters() float64 { return l.Distance }
func (*RideLeg) isLeg()                    {}

// StopCount is the number of stops travelled, excluding the boarding stop.
func (l *RideLeg) StopCount() int {
	if len(l.Path) == 0 {
		return 0
	}
	return len(l.Path) - 1
}

// TransferLeg is a change of line at a single stop.
type TransferLeg struct {
	Stop    network.Stop
	Minutes int
}

func (l *TransferLeg) Type() LegType         { return LegTransfer }
func (l *TransferLeg) DurationMinutes() int  { return l.Minutes }
func (*TransferLeg) DistanceMeters() float64 { return 0 }
func (*TransferLeg) isLeg()                  {}

// Comparison relates an itinerary to the fastest and cheapest of its result set.
type Comparison struct {
	IsFastest               bool
	IsCheapest              bool
	DeltaMinutesFromFastest int
	DeltaFareFromCheapest   float64
}

// Itinerary is one proposed trip.
type Itinerary struct {
	ID              string
	Kind            Kind
	Legs            []Leg
	TotalMinutes    int
	TotalFareAmount float64
	TotalDistanceKm float64
	TransferCount   int
	QualityScore    float64
	IsRecommended   bool
	Tags            []string
	Comparison      Comparison
	Message         string
}

// LineIDs returns the IDs of the lines ridden, in order.
func (it *Itinerary) LineIDs() []string {
	var ids []string
	for _, leg := range it.Legs {
		if ride, ok := leg.(*RideLeg); ok {
			ids = append(ids, ride.Line.ID)
		}
	}
	return ids
}

// Summary lists the display names of the lines ridden, joined by " → ".
func (it *Itinerary) Summary() string {
	var names []string
	for _, leg := range it.Legs {
		if ride, ok := leg.(*RideLeg); ok {
			names = append(names, ride.Line.DisplayName())
		}
	}
	return strings.Join(names, " → ")
}

// Signature identifies itineraries that ride the same lines in the same order.
// Two itineraries with equal signatures are duplicates.
func (it *Itinerary) Signature() string {
	return strings.Join(it.LineIDs(), "\x00")
}

// WalkDistanceMeters sums the walking legs.
func (it *Itinerary) WalkDistanceMeters() float64 {
	var total float64
	for _, leg := range it.Legs {
		if leg.Type() == LegWalk {
			total += leg.DistanceMeters()
		}
	}
	return total
}

// HasTag reports whether tag is attached.
func (it *Itinerary) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// finalize recomputes the totals from the legs and derives a stable ID.
func (it *Itinerary) finalize() {
	var minutes, transfers int
	var meters, fare float64
	parts := []string{string(it.Kind)}

	for _, leg := range it.Legs {
		minutes += leg.DurationMinutes()
		meters += leg.DistanceMeters()
		switch l := leg.(type) {
		case *RideLeg:
			fare += l.Fare
			parts = append(parts, l.Line.ID, l.BoardStop.ID, l.AlightStop.ID)
		case *TransferLeg:
			transfers++
		}
	}

	it.TotalMinutes = minutes
	it.TotalFareAmount = fare
	it.TotalDistanceKm = meters / 1000
	it.TransferCount = transfers
	it.ID = itineraryID(parts...)
}

var itineraryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://onebusaway.org/tripsearch/itinerary"))

// itineraryID is name based so that identical searches yield identical IDs.
func itineraryID(parts ...string) string {
	return uuid.NewSHA1(itineraryNamespace, []byte(strings.Join(parts, "|"))).String()
}
