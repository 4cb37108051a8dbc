package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/gilby125/fly-or-drive/airports"
	"github.com/gilby125/fly-or-drive/config"
	"github.com/gilby125/fly-or-drive/pkg/geo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore keeps airports as :Airport nodes with latitude/longitude
// properties covered by a composite range index.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore connects and verifies connectivity.
func NewNeo4jStore(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jStore, error) {
	uri := strings.TrimSpace(cfg.URI)
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return &Neo4jStore{driver: driver, database: cfg.Database}, nil
}

// Close closes the driver.
func (n *Neo4jStore) Close() error {
	return n.driver.Close(context.Background())
}

// Ping verifies connectivity.
func (n *Neo4jStore) Ping(ctx context.Context) error {
	return n.driver.VerifyConnectivity(ctx)
}

func (n *Neo4jStore) read(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, n.driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
}

func (n *Neo4jStore) write(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, n.driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithWritersRouting())
}

// InitSchema creates the uniqueness constraint and the coordinate index.
func (n *Neo4jStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE CONSTRAINT airport_ident IF NOT EXISTS FOR (a:Airport) REQUIRE a.ident IS UNIQUE",
		"CREATE INDEX airport_lat_lon IF NOT EXISTS FOR (a:Airport) ON (a.latitude, a.longitude)",
		"CREATE INDEX airport_iata IF NOT EXISTS FOR (a:Airport) ON (a.iata_code)",
	}
	for _, stmt := range stmts {
		if _, err := n.write(ctx, stmt, nil); err != nil {
			return fmt.Errorf("neo4j schema %q: %w", stmt, err)
		}
	}
	return nil
}

// UpsertAirports merges rows into :Airport nodes keyed by ident.
func (n *Neo4jStore) UpsertAirports(ctx context.Context, rows []airports.Airport) error {
	params := make([]map[string]any, 0, len(rows))
	for _, a := range rows {
		params = append(params, airportParams(a))
	}
	_, err := n.write(ctx,
		"UNWIND $rows AS row "+
			"MERGE (a:Airport {ident: row.ident}) "+
			"SET a.iata_code = row.iata_code, a.name = row.name, a.municipality = row.municipality, "+
			"a.latitude = row.latitude, a.longitude = row.longitude, "+
			"a.iso_country = row.iso_country, a.active = row.active",
		map[string]any{"rows": params})
	if err != nil {
		return fmt.Errorf("failed to upsert %d airports: %w", len(rows), err)
	}
	return nil
}

const airportReturn = "RETURN a.ident AS ident, coalesce(a.iata_code, '') AS iata_code, a.name AS name, " +
	"coalesce(a.municipality, '') AS municipality, a.latitude AS latitude, a.longitude AS longitude, " +
	"a.iso_country AS iso_country, coalesce(a.active, true) AS active"

// QueryAirports implements airports.Store.
func (n *Neo4jStore) QueryAirports(ctx context.Context, box geo.BoundingBox, filter airports.Filter) ([]airports.Airport, error) {
	result, err := n.read(ctx,
		"MATCH (a:Airport) "+
			"WHERE a.latitude >= $minLat AND a.latitude <= $maxLat "+
			"AND a.longitude >= $minLon AND a.longitude <= $maxLon "+
			"AND ($includeInactive OR coalesce(a.active, true)) "+
			"AND ($country = '' OR a.iso_country = $country) "+
			airportReturn,
		map[string]any{
			"minLat":          box.MinLat,
			"maxLat":          box.MaxLat,
			"minLon":          box.MinLon,
			"maxLon":          box.MaxLon,
			"includeInactive": filter.IncludeInactive,
			"country":         strings.ToUpper(filter.ISOCountry),
		})
	if err != nil {
		return nil, fmt.Errorf("neo4j airports query: %w", err)
	}

	out := make([]airports.Airport, 0, len(result.Records))
	for _, rec := range result.Records {
		a, err := recordToAirport(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// AirportByIATA implements airports.Lookup.
func (n *Neo4jStore) AirportByIATA(ctx context.Context, iata string) (airports.Airport, bool, error) {
	result, err := n.read(ctx,
		"MATCH (a:Airport {iata_code: $iata}) WHERE coalesce(a.active, true) "+
			airportReturn+" ORDER BY ident LIMIT 1",
		map[string]any{"iata": strings.ToUpper(iata)})
	if err != nil {
		return airports.Airport{}, false, fmt.Errorf("neo4j iata lookup: %w", err)
	}
	if len(result.Records) == 0 {
		return airports.Airport{}, false, nil
	}
	a, err := recordToAirport(result.Records[0])
	if err != nil {
		return airports.Airport{}, false, err
	}
	return a, true, nil
}

func airportParams(a airports.Airport) map[string]any {
	return map[string]any{
		"ident":        a.Ident,
		"iata_code":    a.IATA,
		"name":         a.Name,
		"municipality": a.Municipality,
		"latitude":     a.Location.Lat,
		"longitude":    a.Location.Lon,
		"iso_country":  strings.ToUpper(a.ISOCountry),
		"active":       a.Active,
	}
}

func recordToAirport(rec *neo4j.Record) (airports.Airport, error) {
	var (
		a   airports.Airport
		err error
	)
	str := func(key string) string {
		if err != nil {
			return ""
		}
		var v string
		v, _, err = neo4j.GetRecordValue[string](rec, key)
		return v
	}
	num := func(key string) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, _, err = neo4j.GetRecordValue[float64](rec, key)
		return v
	}

	a.Ident = str("ident")
	a.IATA = str("iata_code")
	a.Name = str("name")
	a.Municipality = str("municipality")
	a.Location.Lat = num("latitude")
	a.Location.Lon = num("longitude")
	a.ISOCountry = str("iso_country")
	if err == nil {
		a.Active, _, err = neo4j.GetRecordValue[bool](rec, "active")
	}
	if err != nil {
		return airports.Airport{}, fmt.Errorf("decode airport record: %w", err)
	}
	return a, nil
}

var (
	_ airports.Store  = (*Neo4jStore)(nil)
	_ airports.Lookup = (*Neo4jStore)(nil)
)
