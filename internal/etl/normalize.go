package etl

import (
	"fmt"

	"go.uber.org/zap"
)

// ── Shape Normalizer ───────────────────────────────────────
// Datasets arrive as GeoJSON feature collections, flat lists, objects that
// wrap a list under some key, or a single bare object. Normalize classifies
// the shape and unwraps it into records. It never fails: anything it cannot
// interpret degrades to fewer (possibly zero) records and a log line.

// Shape is the classification Normalize settled on.
type Shape string

const (
	ShapeSequence          Shape = "sequence"
	ShapeFeatureCollection Shape = "feature_collection"
	ShapeKeyedList         Shape = "keyed_list"
	ShapeSingleObject      Shape = "single_object"
	ShapeUnknown           Shape = "unknown"
)

// Normalize unwraps doc into loose records. label names the dataset in logs.
func Normalize(doc any, label string, log *zap.Logger) []Record {
	records, _ := Classify(doc, label, log)
	return records
}

// Classify is Normalize that also reports the detected shape.
func Classify(doc any, label string, log *zap.Logger) ([]Record, Shape) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("label", label))

	if items, ok := viewSequence(doc); ok {
		return sequenceRecords(items, log), ShapeSequence
	}

	obj, ok := viewObject(doc)
	if !ok {
		log.Warn("unknown document shape, nothing to load", zap.String("type", fmt.Sprintf("%T", doc)))
		return nil, ShapeUnknown
	}
	log.Debug("top-level keys", zap.Strings("keys", obj.keys))

	if features, ok := obj.get("features"); ok {
		log.Debug("detected feature collection")
		return featureRecords(features, log), ShapeFeatureCollection
	}

	for _, k := range obj.keys {
		v, _ := obj.get(k)
		if items, ok := viewSequence(v); ok {
			log.Debug("using first list-valued key", zap.String("key", k))
			return sequenceRecords(items, log), ShapeKeyedList
		}
	}

	log.Debug("no list found, treating document as a single record")
	return []Record{obj.record()}, ShapeSingleObject
}

// sequenceRecords keeps every non-null object element. Non-object elements
// cannot carry fields; they are counted and skipped.
func sequenceRecords(items []any, log *zap.Logger) []Record {
	records := make([]Record, 0, len(items))
	skipped := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		obj, ok := viewObject(item)
		if !ok {
			skipped++
			continue
		}
		records = append(records, obj.record())
	}
	if skipped > 0 {
		log.Warn("skipped non-object list elements", zap.Int("count", skipped))
	}
	logSample(records, log)
	return records
}

func featureRecords(features any, log *zap.Logger) []Record {
	if features == nil {
		log.Warn("features is null")
		return nil
	}
	items, ok := viewSequence(features)
	if !ok {
		log.Warn("features is not a list", zap.String("type", fmt.Sprintf("%T", features)))
		return nil
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		feature, ok := viewObject(item)
		if !ok {
			continue
		}

		rec := Record{Data: map[string]any{}}
		if props, ok := feature.get("properties"); ok {
			if p, ok := viewObject(props); ok {
				rec = p.record()
			}
		}

		if geom, ok := feature.get("geometry"); ok {
			if g, ok := viewObject(geom); ok {
				coords, _ := g.get("coordinates")
				if pair, ok := viewSequence(coords); ok && len(pair) >= 2 {
					lng, lat := coordinates(pair)
					rec.Data["lng"] = lng
					rec.Data["lat"] = lat
				}
			}
		}
		records = append(records, rec)
	}
	logSample(records, log)
	return records
}

// coordinates reads a GeoJSON [lng, lat, ...] position. A bad component
// zeroes both so a point is never half-defaulted.
func coordinates(pair []any) (lng, lat float64) {
	lng, errLng := ToFloat(pair[0])
	lat, errLat := ToFloat(pair[1])
	if errLng != nil || errLat != nil {
		return 0, 0
	}
	return lng, lat
}

func logSample(records []Record, log *zap.Logger) {
	if len(records) == 0 || !log.Core().Enabled(zap.DebugLevel) {
		return
	}
	log.Debug("sample record", zap.Strings("keys", sortedKeys(records[0].Data)), zap.Int("records", len(records)))
}
