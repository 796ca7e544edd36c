package gazetteer

import (
	"context"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// zipAttrCandidates are the attribute names carrying the ZCTA code across
// shapefile vintages.
var zipAttrCandidates = []string{"ZCTA5CE20", "ZCTA5CE10", "ZCTA5CE", "GEOID20", "GEOID10", "GEOID"}

// StreamShapefile reads a ZCTA polygon shapefile and emits the same row
// contract as Stream: zip from the ZCTA attribute, lat/lng from the polygon
// centroid. This is an alternative source for vintages where the text
// gazetteer is not published; the builder consumes it unchanged.
func StreamShapefile(ctx context.Context, path string, opts Options) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	if opts.Columns == (Columns{}) {
		opts.Columns = DefaultColumns()
	}

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader, err := shp.Open(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "gazetteer: open shapefile %s", path)
			return
		}
		defer func() { _ = reader.Close() }()

		zipIdx := -1
		for _, name := range zipAttrCandidates {
			if zipIdx = fieldIndex(reader, name); zipIdx >= 0 {
				break
			}
		}
		if zipIdx < 0 {
			errCh <- eris.Wrapf(ErrMissingColumns, "want one of %s", strings.Join(zipAttrCandidates, ", "))
			return
		}

		line := 1 // keep numbering aligned with the text source, where line 1 is the header
		for reader.Next() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "gazetteer: context cancelled")
				return
			}
			line++

			_, shape := reader.Shape()
			poly, ok := shape.(*shp.Polygon)
			if !ok || len(poly.Points) == 0 {
				errCh <- eris.Wrapf(ErrMalformedRow, "shape %d: not a polygon", line-1)
				return
			}

			zip := strings.TrimSpace(reader.Attribute(zipIdx))
			lat, lng, err := polygonCentroid(poly)
			if err != nil {
				errCh <- eris.Wrapf(err, "gazetteer: centroid for %s", zip)
				return
			}

			row := Row{Line: line, Fields: map[string]string{
				opts.Columns.Zip: zip,
				opts.Columns.Lat: strconv.FormatFloat(lat, 'f', 6, 64),
				opts.Columns.Lng: strconv.FormatFloat(lng, 'f', 6, 64),
			}}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "gazetteer: context cancelled")
				return
			}
		}

		if err := reader.Err(); err != nil {
			errCh <- eris.Wrap(err, "gazetteer: read shapefile")
		}
	}()

	return rowCh, errCh
}

// polygonCentroid converts a shapefile polygon to a geom.Polygon (each part
// becomes a ring) and returns its area-weighted centroid as (lat, lng).
func polygonCentroid(p *shp.Polygon) (float64, float64, error) {
	rings := make([][]geom.Coord, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		rings = append(rings, ring)
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords(rings)
	if err != nil {
		return 0, 0, eris.Wrap(err, "build polygon")
	}

	c, err := xy.Centroid(poly)
	if err != nil {
		return 0, 0, eris.Wrap(err, "compute centroid")
	}

	// Shapefile coordinates are (x=lng, y=lat).
	return c.Y(), c.X(), nil
}

// fieldIndex returns the index of a named attribute field, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
