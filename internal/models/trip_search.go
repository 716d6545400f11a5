package models

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/twpayne/go-polyline"
	"tripsearch.onebusaway.org/internal/network"
	"tripsearch.onebusaway.org/internal/planner"
)

// MaxRequestResults bounds maxResults on the wire. The planner applies its own,
// usually lower, cap on top.
const MaxRequestResults = 100

// LocationInput is a request endpoint. Pointers distinguish a missing
// coordinate from zero.
type LocationInput struct {
	Lat  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng  *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Name string   `json:"name" validate:"max=200"`
}

type TripSearchRequest struct {
	Origin            LocationInput `json:"origin"`
	Destination       LocationInput `json:"destination"`
	MaxResults        *int          `json:"maxResults,omitempty" validate:"omitempty,gt=0,lte=100"`
	RequireAccessible bool          `json:"requireAccessible,omitempty"`
}

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports the first invalid field using its JSON path.
func (r TripSearchRequest) Validate() error {
	err := requestValidator.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Tag() == "required" {
			return fmt.Errorf("%s is required", path)
		}
		return fmt.Errorf("%s is out of range (%s=%s)", path, fe.Tag(), fe.Param())
	}
	return err
}

// ToPlannerRequest assumes Validate has passed.
func (r TripSearchRequest) ToPlannerRequest() planner.Request {
	req := planner.Request{
		Origin:            r.Origin.endpoint(),
		Destination:       r.Destination.endpoint(),
		RequireAccessible: r.RequireAccessible,
	}
	if r.MaxResults != nil {
		req.MaxResults = *r.MaxResults
	}
	return req
}

func (l LocationInput) endpoint() planner.Endpoint {
	var c network.Coordinate
	if l.Lat != nil {
		c.Lat = *l.Lat
	}
	if l.Lng != nil {
		c.Lon = *l.Lng
	}
	return planner.Endpoint{Name: l.Name, Location: c}
}

type TripSearchResponse struct {
	Itineraries      []ItineraryModel `json:"itineraries"`
	Total            int              `json:"total"`
	SearchDurationMs int64            `json:"searchDurationMs"`
	TimedOut         bool             `json:"timedOut"`
	FallbackReason   string           `json:"fallbackReason,omitempty"`
}

type ItineraryModel struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	TotalMinutes    int             `json:"totalMinutes"`
	TotalFareAmount float64         `json:"totalFareAmount"`
	TotalDistanceKm float64         `json:"totalDistanceKm"`
	TransferCount   int             `json:"transferCount"`
	QualityScore    float64         `json:"qualityScore"`
	IsRecommended   bool            `json:"isRecommended"`
	Tags            []string        `json:"tags"`
	Summary         string          `json:"summary,omitempty"`
	Message         string          `json:"message,omitempty"`
	Comparison      ComparisonModel `json:"comparison"`
	Legs            []LegModel      `json:"legs"`
}

type ComparisonModel struct {
	IsFastest               bool    `json:"isFastest"`
	IsCheapest              bool    `json:"isCheapest"`
	DeltaMinutesFromFastest int     `json:"deltaMinutesFromFastest"`
	DeltaFareFromCheapest   float64 `json:"deltaFareFromCheapest"`
}

type PlaceModel struct {
	Name   string  `json:"name,omitempty"`
	StopID string  `json:"stopId,omitempty"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

type LineModel struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// LegModel flattens the leg union; Type says which fields are set.
type LegModel struct {
	Type            string      `json:"type"`
	DurationMinutes int         `json:"durationMinutes"`
	DistanceMeters  float64     `json:"distanceMeters"`
	From            *PlaceModel `json:"from,omitempty"`
	To              *PlaceModel `json:"to,omitempty"`
	Line            *LineModel  `json:"line,omitempty"`
	WaitMinutes     int         `json:"waitMinutes,omitempty"`
	Fare            float64     `json:"fare,omitempty"`
	StopCount       int         `json:"stopCount,omitempty"`
	Polyline        string      `json:"polyline,omitempty"`
	Stop            *PlaceModel `json:"stop,omitempty"`
}

func NewTripSearchResponse(result *planner.Result) TripSearchResponse {
	itineraries := make([]ItineraryModel, len(result.Itineraries))
	for i := range result.Itineraries {
		itineraries[i] = NewItineraryModel(&result.Itineraries[i])
	}
	return TripSearchResponse{
		Itineraries:      itineraries,
		Total:            result.Total,
		SearchDurationMs: result.Duration.Milliseconds(),
		TimedOut:         result.TimedOut,
		FallbackReason:   result.FallbackReason,
	}
}

func NewItineraryModel(it *planner.Itinerary) ItineraryModel {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	legs := make([]LegModel, len(it.Legs))
	for i, leg := range it.Legs {
		legs[i] = newLegModel(leg)
	}
	return ItineraryModel{
		ID:              it.ID,
		Kind:            string(it.Kind),
		TotalMinutes:    it.TotalMinutes,
		TotalFareAmount: round(it.TotalFareAmount, 2),
		TotalDistanceKm: round(it.TotalDistanceKm, 2),
		TransferCount:   it.TransferCount,
		QualityScore:    round(it.QualityScore, 2),
		IsRecommended:   it.IsRecommended,
		Tags:            tags,
		Summary:         it.Summary(),
		Message:         it.Message,
		Comparison: ComparisonModel{
			IsFastest:               it.Comparison.IsFastest,
			IsCheapest:              it.Comparison.IsCheapest,
			DeltaMinutesFromFastest: it.Comparison.DeltaMinutesFromFastest,
			DeltaFareFromCheapest:   round(it.Comparison.DeltaFareFromCheapest, 2),
		},
		Legs: legs,
	}
}

func newLegModel(leg planner.Leg) LegModel {
	model := LegModel{
		Type:            string(leg.Type()),
		DurationMinutes: leg.DurationMinutes(),
		DistanceMeters:  round(leg.DistanceMeters(), 1),
	}
	switch l := leg.(type) {
	case *planner.WalkLeg:
		model.From = placeModel(l.From)
		model.To = placeModel(l.To)
	case *planner.RideLeg:
		model.From = stopPlace(l.BoardStop)
		model.To = stopPlace(l.AlightStop)
		model.Line = &LineModel{ID: l.Line.ID, Code: l.Line.Code, Name: l.Line.Name}
		model.WaitMinutes = l.WaitMinutes
		model.Fare = round(l.Fare, 2)
		model.StopCount = l.StopCount()
		model.Polyline = EncodePath(l.Path)
	case *planner.TransferLeg:
		model.Stop = stopPlace(l.Stop)
	}
	return model
}

// EncodePath encodes the stop coordinates as a Google encoded polyline.
func EncodePath(stops []network.Stop) string {
	if len(stops) == 0 {
		return ""
	}
	coords := make([][]float64, len(stops))
	for i, s := range stops {
		coords[i] = []float64{s.Location.Lat, s.Location.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

func placeModel(p planner.Place) *PlaceModel {
	return &PlaceModel{Name: p.Name, StopID: p.StopID, Lat: p.Location.Lat, Lng: p.Location.Lon}
}

func stopPlace(s network.Stop) *PlaceModel {
	return &PlaceModel{Name: s.Name, StopID: s.ID, Lat: s.Location.Lat, Lng: s.Location.Lon}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
