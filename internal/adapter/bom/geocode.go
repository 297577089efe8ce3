package bom

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/jsontok"
)

// Search resolves coord through the locations search endpoint. The returned
// code is raw; callers normalize it. An unset coordinate fails with
// domain.ErrNoLocation without touching the network.
func (c *Client) Search(ctx context.Context, coord domain.Coordinate) (domain.GeocodeResult, error) {
	if !coord.IsSet() {
		return domain.GeocodeResult{}, fmt.Errorf("search: %w", domain.ErrNoLocation)
	}

	doc, err := c.load(ctx, domain.FeedGeocode, c.SearchURL(coord), c.limits.Geocode)
	if err != nil {
		return domain.GeocodeResult{}, err
	}

	data, ok := doc.ContainerField(jsontok.Root, jsontok.KindArray, "data", "")
	if !ok || doc.Size(data) == 0 {
		c.logger.Warn("no search results", "coord", coord.String())
		return domain.GeocodeResult{}, nil
	}
	first, _ := doc.Index(data, 0)

	var result domain.GeocodeResult
	result.Code, _ = doc.StringField(first, "geohash", "")
	result.Name, _ = doc.StringField(first, "name", "")
	return result, nil
}
