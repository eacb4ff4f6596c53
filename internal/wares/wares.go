// Package wares loads the trade ware table from libraries/wares.xml into
// exportable records: prices, production chains, faction owners and licence
// restrictions, with display strings resolved through the language layer.
package wares

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"sort"

	"github.com/x4tools/projector/internal/lang"
	"github.com/x4tools/projector/internal/overlay"
	"github.com/x4tools/projector/internal/resolve"
)

const libraryPath = "libraries/wares.xml"

// Production is one production method of a ware: cycle time, batch amount
// and the primary resources one batch consumes.
type Production struct {
	Time        float64        `json:"time" yaml:"time"`
	Amount      int            `json:"amount" yaml:"amount"`
	Method      string         `json:"method" yaml:"method"`
	Name        string         `json:"name" yaml:"name"`
	Consumption map[string]int `json:"consumption" yaml:"consumption"`
}

type wareDoc struct {
	XMLName xml.Name  `xml:"wares"`
	Wares   []wareXML `xml:"ware"`
}

type wareXML struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"name,attr"`
	Description string `xml:"description,attr"`
	FactoryName string `xml:"factoryname,attr"`
	Transport   string `xml:"transport,attr"`
	Volume      int    `xml:"volume,attr"`
	Tags        string `xml:"tags,attr"`
	Illegal     string `xml:"illegal,attr"`

	Price struct {
		Min     int `xml:"min,attr"`
		Average int `xml:"average,attr"`
		Max     int `xml:"max,attr"`
	} `xml:"price"`

	Productions []struct {
		Time    float64 `xml:"time,attr"`
		Amount  int     `xml:"amount,attr"`
		Method  string  `xml:"method,attr"`
		Name    string  `xml:"name,attr"`
		Primary struct {
			Wares []struct {
				Ware   string `xml:"ware,attr"`
				Amount int    `xml:"amount,attr"`
			} `xml:"ware"`
		} `xml:"primary"`
	} `xml:"production"`

	Restriction struct {
		Licence string `xml:"licence,attr"`
	} `xml:"restriction"`

	Owners []struct {
		Faction string `xml:"faction,attr"`
	} `xml:"owner"`
}

// Load reads the base game's ware table and every extension's, later layers
// overriding earlier ones by ware id. Extensions shipping their wares as
// patch documents instead of full tables are skipped with a debug log; patch
// application is not supported.
func Load(src overlay.Source, lr *lang.Resolver, logger *slog.Logger) ([]*resolve.Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	byID := make(map[string]*resolve.Record)
	if err := loadFile(src, libraryPath, lr, byID); err != nil {
		return nil, err
	}

	for _, ext := range src.Extensions() {
		path := "extensions/" + ext + "/" + libraryPath
		if !src.Exists(path) {
			continue
		}
		if err := loadFile(src, path, lr, byID); err != nil {
			logger.Debug("skipping extension ware table", "path", path, "err", err)
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*resolve.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

func loadFile(src overlay.Source, path string, lr *lang.Resolver, byID map[string]*resolve.Record) error {
	data, err := src.Open(path)
	if err != nil {
		return err
	}

	var doc wareDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, w := range doc.Wares {
		if w.ID == "" {
			continue
		}
		byID[w.ID] = toRecord(w, lr)
	}
	return nil
}

func toRecord(w wareXML, lr *lang.Resolver) *resolve.Record {
	productions := make([]Production, 0, len(w.Productions))
	for _, p := range w.Productions {
		consumption := make(map[string]int, len(p.Primary.Wares))
		for _, c := range p.Primary.Wares {
			consumption[c.Ware] = c.Amount
		}
		productions = append(productions, Production{
			Time:        p.Time,
			Amount:      p.Amount,
			Method:      p.Method,
			Name:        resolveText(lr, p.Name),
			Consumption: consumption,
		})
	}

	owners := make([]string, 0, len(w.Owners))
	for _, o := range w.Owners {
		if o.Faction != "" {
			owners = append(owners, o.Faction)
		}
	}

	return &resolve.Record{
		ID:    w.ID,
		Class: "ware",
		Attrs: map[string]any{
			"name":        resolveText(lr, w.Name),
			"description": resolveText(lr, w.Description),
			"factoryname": resolveText(lr, w.FactoryName),
			"group":       w.Transport,
			"volume":      w.Volume,
			"tags":        w.Tags,
			"illegal":     w.Illegal,
			"price_min":   w.Price.Min,
			"price_avg":   w.Price.Average,
			"price_max":   w.Price.Max,
			"licence":     w.Restriction.Licence,
			"production":  productions,
			"owners":      owners,
		},
	}
}

func resolveText(lr *lang.Resolver, v string) string {
	if lr == nil {
		return v
	}
	return lr.ResolveStripped(v)
}
