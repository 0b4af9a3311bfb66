package geo

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNoLocalRecord signals that the local database has no usable entry for
// the address; the resolver falls through to the next source.
var ErrNoLocalRecord = errors.New("geo: no local database record")

// LocalDatabase serves lookups from a GeoLite2 City mmdb file on disk. When
// configured it is consulted before the HTTP provider, keeping the hot path
// off the network.
type LocalDatabase struct {
	reader *geoip2.Reader
}

func OpenLocalDatabase(path string) (*LocalDatabase, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo: open local database: %w", err)
	}
	return &LocalDatabase{reader: reader}, nil
}

func (d *LocalDatabase) Lookup(_ context.Context, ip string) (Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, fmt.Errorf("geo: invalid ip %q", ip)
	}

	record, err := d.reader.City(parsed)
	if err != nil {
		return Location{}, fmt.Errorf("geo: local database lookup: %w", err)
	}

	country := record.Country.Names["en"]
	if country == "" {
		country = CountryName(record.Country.IsoCode)
	}
	if country == "" {
		return Location{}, ErrNoLocalRecord
	}

	city := record.City.Names["en"]
	if city == "" {
		city = "Unknown"
	}

	return Location{Country: country, City: city}, nil
}

func (d *LocalDatabase) Close() error {
	return d.reader.Close()
}
