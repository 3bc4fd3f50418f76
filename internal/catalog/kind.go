package catalog

import (
	"fmt"
	"strings"
)

// Kind is a supported visual tag.
type Kind string

const (
	KindCard         Kind = "card"
	KindKPI          Kind = "kpi"
	KindGauge        Kind = "gauge"
	KindFunnel       Kind = "funnel"
	KindLine         Kind = "line"
	KindColumn       Kind = "column"
	KindBar          Kind = "bar"
	KindDonut        Kind = "donut"
	KindPie          Kind = "pie"
	KindMap          Kind = "map"
	KindTable        Kind = "table"
	KindMatrix       Kind = "matrix"
	KindSlicer       Kind = "slicer"
	KindText         Kind = "text"
	KindArea         Kind = "area"
	KindStackedBar   Kind = "stacked-bar"
	KindStackedArea  Kind = "stacked-area"
	KindBullet       Kind = "bullet"
	KindMultiRowCard Kind = "multi-row-card"
)

// kinds lists every supported kind in declaration order.
var kinds = []Kind{
	KindCard, KindKPI, KindGauge, KindFunnel, KindLine, KindColumn, KindBar,
	KindDonut, KindPie, KindMap, KindTable, KindMatrix, KindSlicer, KindText,
	KindArea, KindStackedBar, KindStackedArea, KindBullet, KindMultiRowCard,
}

// sdkTypes maps tags to the authoring SDK's visual type names.
var sdkTypes = map[Kind]string{
	KindCard:         "card",
	KindKPI:          "kpi",
	KindGauge:        "gauge",
	KindFunnel:       "funnel",
	KindLine:         "lineChart",
	KindColumn:       "clusteredColumnChart",
	KindBar:          "clusteredBarChart",
	KindDonut:        "donutChart",
	KindPie:          "pieChart",
	KindMap:          "filledMap",
	KindTable:        "tableEx",
	KindMatrix:       "pivotTable",
	KindSlicer:       "slicer",
	KindText:         "textbox",
	KindArea:         "areaChart",
	KindStackedBar:   "stackedBarChart",
	KindStackedArea:  "stackedAreaChart",
	KindBullet:       "bulletChart",
	KindMultiRowCard: "multiRowCard",
}

var bySDKType = func() map[string]Kind {
	m := make(map[string]Kind, len(sdkTypes))
	for k, v := range sdkTypes {
		m[strings.ToLower(v)] = k
	}
	return m
}()

// Kinds returns every supported kind.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Valid reports whether k is in the supported enumeration.
func (k Kind) Valid() bool {
	_, ok := sdkTypes[k]
	return ok
}

// SDKType returns the visual type name passed to createVisual.
func (k Kind) SDKType() string {
	return sdkTypes[k]
}

// ParseKind accepts a tag ("line") or an SDK type name ("lineChart"),
// case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	if k, ok := bySDKType[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown visual kind %q", s)
}

// UnmarshalText lets catalogs name kinds in either vocabulary.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		// Keep the raw value so validation can report it with its position.
		*k = Kind(text)
		return nil
	}
	*k = parsed
	return nil
}
