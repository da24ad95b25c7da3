// Package postgres implements the storage.Storage contract against
// PostgreSQL via pgx, for multi-writer production deployments.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

var tracer = otel.Tracer("sensapp/storage/postgres")

type Config struct {
	ConnString string
	MaxConns   int32
}

type Store struct {
	pool *pgxpool.Pool

	labelNames  *storage.DictCache
	labelValues *storage.DictCache
	stringVals  *storage.DictCache
	units       *storage.DictCache

	sensorIDs sync.Map // uuid string -> int64 sensor_id
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnString == "" {
		return nil, storage.ConfigurationError("postgres: connection string is empty")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, storage.ConfigurationError(fmt.Sprintf("postgres: parse dsn: %v", err))
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, storage.DatabaseError("open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storage.DatabaseError("ping", err)
	}
	return &Store{
		pool:        pool,
		labelNames:  storage.NewDictCache(),
		labelValues: storage.NewDictCache(),
		stringVals:  storage.NewDictCache(),
		units:       storage.NewDictCache(),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS units(
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sensors(
	sensor_id BIGSERIAL PRIMARY KEY,
	uuid UUID NOT NULL UNIQUE,
	name TEXT NOT NULL,
	type INTEGER NOT NULL,
	unit_fk BIGINT REFERENCES units(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sensors_name ON sensors(name);

CREATE TABLE IF NOT EXISTS labels_name_dictionary(
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS labels_description_dictionary(
	id BIGSERIAL PRIMARY KEY,
	description TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS labels(
	sensor_id BIGINT NOT NULL REFERENCES sensors(sensor_id),
	name_fk BIGINT NOT NULL REFERENCES labels_name_dictionary(id),
	description_fk BIGINT NOT NULL REFERENCES labels_description_dictionary(id),
	PRIMARY KEY (sensor_id, name_fk)
);
CREATE INDEX IF NOT EXISTS idx_labels_name_value ON labels(name_fk, description_fk);

CREATE TABLE IF NOT EXISTS strings_values_dictionary(
	id BIGSERIAL PRIMARY KEY,
	value TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS integer_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	value BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_integer_values ON integer_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS numeric_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	value NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_numeric_values ON numeric_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS float_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	value DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_float_values ON float_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS string_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	value_fk BIGINT NOT NULL REFERENCES strings_values_dictionary(id)
);
CREATE INDEX IF NOT EXISTS idx_string_values ON string_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS boolean_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	value BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_boolean_values ON boolean_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS location_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_location_values ON location_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS blob_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	value BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blob_values ON blob_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS json_values(
	sensor_id BIGINT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	value JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_json_values ON json_values(sensor_id, timestamp_ms);
`

func (s *Store) CreateOrMigrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return storage.DatabaseError("create_or_migrate", err)
	}
	return nil
}

func (s *Store) Vacuum(ctx context.Context) error {
	for _, table := range []string{"integer_values", "numeric_values", "float_values", "string_values",
		"boolean_values", "location_values", "blob_values", "json_values"} {
		if _, err := s.pool.Exec(ctx, "VACUUM "+table); err != nil {
			return storage.DatabaseError("vacuum "+table, err)
		}
	}
	return nil
}

func (s *Store) Sync(ctx context.Context, syncCh chan<- storage.Sync) error {
	select {
	case syncCh <- storage.Sync{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Store) Publish(ctx context.Context, batch *datamodel.Batch, syncCh chan<- storage.Sync) error {
	ctx, span := tracer.Start(ctx, "postgres.Publish")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return storage.DatabaseError("publish: begin", err)
	}
	defer tx.Rollback(ctx)

	for _, sb := range batch.Sensors {
		sensorID, err := s.ensureSensor(ctx, tx, sb.Sensor)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if err := s.insertSamples(ctx, tx, sensorID, sb.Samples()); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return storage.DatabaseError("publish: commit", err)
	}

	select {
	case syncCh <- storage.Sync{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Store) ensureSensor(ctx context.Context, tx pgx.Tx, sensor *datamodel.Sensor) (int64, error) {
	key := sensor.UUID.String()
	if v, ok := s.sensorIDs.Load(key); ok {
		return v.(int64), nil
	}

	var unitFK *int64
	if sensor.Unit != nil {
		id, err := s.resolveUnit(ctx, tx, sensor.Unit.Name, sensor.Unit.Description)
		if err != nil {
			return 0, err
		}
		unitFK = &id
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO sensors(uuid, name, type, unit_fk) VALUES ($1, $2, $3, $4)
		 ON CONFLICT(uuid) DO NOTHING`,
		sensor.UUID, sensor.Name, int(sensor.Kind), unitFK); err != nil {
		return 0, storage.DatabaseError("ensure_sensor: insert", err)
	}

	var sensorID int64
	if err := tx.QueryRow(ctx, `SELECT sensor_id FROM sensors WHERE uuid = $1`, sensor.UUID).Scan(&sensorID); err != nil {
		return 0, storage.DatabaseError("ensure_sensor: select", err)
	}

	for _, label := range sensor.Labels {
		nameFK, err := s.resolveDict(ctx, tx, s.labelNames, "labels_name_dictionary", "name", label.Key)
		if err != nil {
			return 0, err
		}
		valueFK, err := s.resolveDict(ctx, tx, s.labelValues, "labels_description_dictionary", "description", label.Value)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO labels(sensor_id, name_fk, description_fk) VALUES ($1, $2, $3)
			 ON CONFLICT(sensor_id, name_fk) DO NOTHING`,
			sensorID, nameFK, valueFK); err != nil {
			return 0, storage.DatabaseError("ensure_sensor: insert label", err)
		}
	}

	s.sensorIDs.Store(key, sensorID)
	return sensorID, nil
}

func (s *Store) resolveUnit(ctx context.Context, tx pgx.Tx, name, description string) (int64, error) {
	return s.units.Resolve(ctx, name, func(ctx context.Context) (int64, error) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO units(name, description) VALUES ($1, $2) ON CONFLICT(name) DO NOTHING`,
			name, description); err != nil {
			return 0, storage.DatabaseError("resolve_unit: insert", err)
		}
		var id int64
		if err := tx.QueryRow(ctx, `SELECT id FROM units WHERE name = $1`, name).Scan(&id); err != nil {
			return 0, storage.DatabaseError("resolve_unit: select", err)
		}
		return id, nil
	})
}

func (s *Store) resolveDict(ctx context.Context, tx pgx.Tx, cache *storage.DictCache, table, column, value string) (int64, error) {
	cacheKey := table + "\x1f" + value
	return cache.Resolve(ctx, cacheKey, func(ctx context.Context) (int64, error) {
		insertSQL := fmt.Sprintf(`INSERT INTO %s(%s) VALUES ($1) ON CONFLICT(%s) DO NOTHING`, table, column, column)
		if _, err := tx.Exec(ctx, insertSQL, value); err != nil {
			return 0, storage.DatabaseError("resolve_dict: insert "+table, err)
		}
		selectSQL := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1`, table, column)
		var id int64
		if err := tx.QueryRow(ctx, selectSQL, value).Scan(&id); err != nil {
			return 0, storage.DatabaseError("resolve_dict: select "+table, err)
		}
		return id, nil
	})
}

func (s *Store) insertSamples(ctx context.Context, tx pgx.Tx, sensorID int64, samples datamodel.TypedSamples) error {
	switch samples.Kind {
	case datamodel.KindInteger:
		batch := &pgx.Batch{}
		for _, p := range samples.Integers {
			batch.Queue(`INSERT INTO integer_values(sensor_id, timestamp_ms, value) VALUES ($1, $2, $3)`,
				sensorID, p.Time.UnixMilli(), p.Value)
		}
		return s.sendBatch(ctx, tx, batch, "integer")
	case datamodel.KindNumeric:
		batch := &pgx.Batch{}
		for _, p := range samples.Numerics {
			batch.Queue(`INSERT INTO numeric_values(sensor_id, timestamp_ms, value) VALUES ($1, $2, $3)`,
				sensorID, p.Time.UnixMilli(), p.Value.String())
		}
		return s.sendBatch(ctx, tx, batch, "numeric")
	case datamodel.KindFloat:
		batch := &pgx.Batch{}
		for _, p := range samples.Floats {
			if datamodel.IsStaleMarker(p.Value) {
				continue
			}
			batch.Queue(`INSERT INTO float_values(sensor_id, timestamp_ms, value) VALUES ($1, $2, $3)`,
				sensorID, p.Time.UnixMilli(), p.Value)
		}
		return s.sendBatch(ctx, tx, batch, "float")
	case datamodel.KindString:
		batch := &pgx.Batch{}
		for _, p := range samples.Strings {
			valueFK, err := s.resolveDict(ctx, tx, s.stringVals, "strings_values_dictionary", "value", p.Value)
			if err != nil {
				return err
			}
			batch.Queue(`INSERT INTO string_values(sensor_id, timestamp_ms, value_fk) VALUES ($1, $2, $3)`,
				sensorID, p.Time.UnixMilli(), valueFK)
		}
		return s.sendBatch(ctx, tx, batch, "string")
	case datamodel.KindBoolean:
		batch := &pgx.Batch{}
		for _, p := range samples.Booleans {
			batch.Queue(`INSERT INTO boolean_values(sensor_id, timestamp_ms, value) VALUES ($1, $2, $3)`,
				sensorID, p.Time.UnixMilli(), p.Value)
		}
		return s.sendBatch(ctx, tx, batch, "boolean")
	case datamodel.KindLocation:
		batch := &pgx.Batch{}
		for _, p := range samples.Locations {
			batch.Queue(`INSERT INTO location_values(sensor_id, timestamp_ms, latitude, longitude) VALUES ($1, $2, $3, $4)`,
				sensorID, p.Time.UnixMilli(), p.Value[1], p.Value[0])
		}
		return s.sendBatch(ctx, tx, batch, "location")
	case datamodel.KindBlob:
		batch := &pgx.Batch{}
		for _, p := range samples.Blobs {
			batch.Queue(`INSERT INTO blob_values(sensor_id, timestamp_ms, value) VALUES ($1, $2, $3)`,
				sensorID, p.Time.UnixMilli(), p.Value)
		}
		return s.sendBatch(ctx, tx, batch, "blob")
	case datamodel.KindJSON:
		batch := &pgx.Batch{}
		for _, p := range samples.JSONs {
			batch.Queue(`INSERT INTO json_values(sensor_id, timestamp_ms, value) VALUES ($1, $2, $3)`,
				sensorID, p.Time.UnixMilli(), p.Value)
		}
		return s.sendBatch(ctx, tx, batch, "json")
	}
	return nil
}

func (s *Store) sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, label string) error {
	if batch.Len() == 0 {
		return nil
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return storage.DatabaseError("insert_samples: "+label, err)
		}
	}
	return results.Close()
}

type sensorRow struct {
	id     int64
	sensor *datamodel.Sensor
}

func (s *Store) loadSensors(ctx context.Context, nameFilter string) ([]sensorRow, error) {
	query := `SELECT s.sensor_id, s.uuid, s.name, s.type, u.name, u.description
		FROM sensors s LEFT JOIN units u ON u.id = s.unit_fk`
	var args []any
	if nameFilter != "" {
		query += ` WHERE s.name = $1`
		args = append(args, nameFilter)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.DatabaseError("load_sensors", err)
	}
	defer rows.Close()

	var result []sensorRow
	for rows.Next() {
		var id int64
		var u uuid.UUID
		var name string
		var kind int
		var unitName, unitDesc *string
		if err := rows.Scan(&id, &u, &name, &kind, &unitName, &unitDesc); err != nil {
			return nil, storage.DatabaseError("load_sensors: scan", err)
		}
		var unit *datamodel.Unit
		if unitName != nil {
			desc := ""
			if unitDesc != nil {
				desc = *unitDesc
			}
			unit = &datamodel.Unit{Name: *unitName, Description: desc}
		}
		sensor := &datamodel.Sensor{UUID: u, Name: name, Kind: datamodel.SampleKind(kind), Unit: unit}
		result = append(result, sensorRow{id: id, sensor: sensor})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.DatabaseError("load_sensors: rows", err)
	}
	if err := s.attachLabels(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) attachLabels(ctx context.Context, rows []sensorRow) error {
	if len(rows) == 0 {
		return nil
	}
	byID := make(map[int64]*datamodel.Sensor, len(rows))
	ids := make([]int64, len(rows))
	for i, r := range rows {
		byID[r.id] = r.sensor
		ids[i] = r.id
	}
	query := `SELECT l.sensor_id, n.name, d.description
		FROM labels l
		JOIN labels_name_dictionary n ON n.id = l.name_fk
		JOIN labels_description_dictionary d ON d.id = l.description_fk
		WHERE l.sensor_id = ANY($1)`
	lrows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return storage.DatabaseError("attach_labels", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var sensorID int64
		var name, value string
		if err := lrows.Scan(&sensorID, &name, &value); err != nil {
			return storage.DatabaseError("attach_labels: scan", err)
		}
		if sensor, ok := byID[sensorID]; ok {
			sensor.Labels = append(sensor.Labels, datamodel.Label{Key: name, Value: value})
		}
	}
	return lrows.Err()
}

func (s *Store) ListSeries(ctx context.Context, metricFilter string) ([]*datamodel.Sensor, error) {
	rows, err := s.loadSensors(ctx, metricFilter)
	if err != nil {
		return nil, err
	}
	sensors := make([]*datamodel.Sensor, 0, len(rows))
	for _, r := range rows {
		sensors = append(sensors, r.sensor)
	}
	return sensors, nil
}

func (s *Store) ListMetrics(ctx context.Context) ([]storage.MetricSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.name, s.type, u.name, COUNT(*)
		FROM sensors s LEFT JOIN units u ON u.id = s.unit_fk
		GROUP BY s.name, s.type, u.name`)
	if err != nil {
		return nil, storage.DatabaseError("list_metrics", err)
	}
	defer rows.Close()

	var out []storage.MetricSummary
	for rows.Next() {
		var name string
		var kind int
		var unitName *string
		var count int64
		if err := rows.Scan(&name, &kind, &unitName, &count); err != nil {
			return nil, storage.DatabaseError("list_metrics: scan", err)
		}
		u := ""
		if unitName != nil {
			u = *unitName
		}
		out = append(out, storage.MetricSummary{Name: name, Kind: datamodel.SampleKind(kind), UnitName: u, SeriesCount: count})
	}
	return out, rows.Err()
}

func (s *Store) QuerySensorData(ctx context.Context, nameOrUUID string, startMS, endMS, limit int64) (*storage.SensorData, error) {
	ctx, span := tracer.Start(ctx, "postgres.QuerySensorData")
	defer span.End()

	var row sensorRow
	if u, err := uuid.Parse(nameOrUUID); err == nil {
		rows, err := s.loadSensors(ctx, "")
		if err != nil {
			return nil, err
		}
		found := false
		for _, r := range rows {
			if r.sensor.UUID == u {
				row = r
				found = true
				break
			}
		}
		if !found {
			return nil, nil
		}
	} else {
		rows, err := s.loadSensors(ctx, nameOrUUID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		row = rows[0]
	}

	samples, err := s.fetchSamples(ctx, row.id, row.sensor.Kind, startMS, endMS, limit)
	if err != nil {
		return nil, err
	}
	return &storage.SensorData{Sensor: row.sensor, Samples: samples}, nil
}

func (s *Store) QueryPrometheusTimeSeries(ctx context.Context, matcher datamodel.SensorMatcher, startMS, endMS int64) ([]storage.SensorData, error) {
	rows, err := s.loadSensors(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []storage.SensorData
	for _, r := range rows {
		if !storage.MatchSensor(matcher, r.sensor) {
			continue
		}
		samples, err := s.fetchSamples(ctx, r.id, r.sensor.Kind, startMS, endMS, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.SensorData{Sensor: r.sensor, Samples: samples})
	}
	return out, nil
}

func (s *Store) fetchSamples(ctx context.Context, sensorID int64, kind datamodel.SampleKind, startMS, endMS, limit int64) (datamodel.TypedSamples, error) {
	result := datamodel.NewTypedSamples(kind)

	where := "sensor_id = $1"
	args := []any{sensorID}
	pos := 2
	if startMS > 0 {
		where += fmt.Sprintf(" AND timestamp_ms >= $%d", pos)
		args = append(args, startMS)
		pos++
	}
	if endMS > 0 {
		where += fmt.Sprintf(" AND timestamp_ms <= $%d", pos)
		args = append(args, endMS)
		pos++
	}
	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, limit)
	}

	switch kind {
	case datamodel.KindInteger:
		rows, err := s.pool.Query(ctx, `SELECT timestamp_ms, value FROM integer_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: integer", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts, v int64
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: integer scan", err)
			}
			result.Integers = append(result.Integers, datamodel.IntegerSample{Time: fromMillis(ts), Value: v})
		}
		return result, rows.Err()
	case datamodel.KindNumeric:
		rows, err := s.pool.Query(ctx, `SELECT timestamp_ms, value::text FROM numeric_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: numeric", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var raw string
			if err := rows.Scan(&ts, &raw); err != nil {
				return result, storage.DatabaseError("fetch_samples: numeric scan", err)
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return result, storage.InvalidDataFormat("malformed numeric value", raw)
			}
			result.Numerics = append(result.Numerics, datamodel.NumericSample{Time: fromMillis(ts), Value: d})
		}
		return result, rows.Err()
	case datamodel.KindFloat:
		rows, err := s.pool.Query(ctx, `SELECT timestamp_ms, value FROM float_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: float", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v float64
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: float scan", err)
			}
			result.Floats = append(result.Floats, datamodel.FloatSample{Time: fromMillis(ts), Value: v})
		}
		return result, rows.Err()
	case datamodel.KindString:
		rows, err := s.pool.Query(ctx, `SELECT sv.timestamp_ms, d.value FROM string_values sv
			JOIN strings_values_dictionary d ON d.id = sv.value_fk
			WHERE sv.`+where+` ORDER BY sv.timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: string", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v string
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: string scan", err)
			}
			result.Strings = append(result.Strings, datamodel.StringSample{Time: fromMillis(ts), Value: v})
		}
		return result, rows.Err()
	case datamodel.KindBoolean:
		rows, err := s.pool.Query(ctx, `SELECT timestamp_ms, value FROM boolean_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: boolean", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v bool
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: boolean scan", err)
			}
			result.Booleans = append(result.Booleans, datamodel.BooleanSample{Time: fromMillis(ts), Value: v})
		}
		return result, rows.Err()
	case datamodel.KindLocation:
		rows, err := s.pool.Query(ctx, `SELECT timestamp_ms, latitude, longitude FROM location_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: location", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var lat, lon float64
			if err := rows.Scan(&ts, &lat, &lon); err != nil {
				return result, storage.DatabaseError("fetch_samples: location scan", err)
			}
			result.Locations = append(result.Locations, datamodel.LocationSample{Time: fromMillis(ts), Value: orb.Point{lon, lat}})
		}
		return result, rows.Err()
	case datamodel.KindBlob:
		rows, err := s.pool.Query(ctx, `SELECT timestamp_ms, value FROM blob_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: blob", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v []byte
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: blob scan", err)
			}
			result.Blobs = append(result.Blobs, datamodel.BlobSample{Time: fromMillis(ts), Value: v})
		}
		return result, rows.Err()
	case datamodel.KindJSON:
		rows, err := s.pool.Query(ctx, `SELECT timestamp_ms, value::text FROM json_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: json", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v string
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: json scan", err)
			}
			result.JSONs = append(result.JSONs, datamodel.JSONSample{Time: fromMillis(ts), Value: v})
		}
		return result, rows.Err()
	default:
		return result, nil
	}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func IsSource(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}
