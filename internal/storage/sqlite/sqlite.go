// Package sqlite implements the storage.Storage contract against SQLite,
// for single-node deployments and local development.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

var tracer = otel.Tracer("sensapp/storage/sqlite")

func decimalParse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func newPoint(lon, lat float64) orb.Point {
	return orb.Point{lon, lat}
}

// Pragmas configures SQLite's cache and journal behavior at open time.
type Pragmas struct {
	CacheMB    int  // cache_size in megabytes (<=0 to skip)
	WAL        bool // journal_mode=WAL
	SyncOff    bool // synchronous=OFF
	TempMemory bool // temp_store=MEMORY
}

type Config struct {
	Source  string
	Pragmas Pragmas
}

type Store struct {
	db *sql.DB

	labelNames  *storage.DictCache
	labelValues *storage.DictCache
	stringVals  *storage.DictCache
	units       *storage.DictCache

	sensorIDs sync.Map // uuid string -> int64 sensor_id
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Source == "" {
		return nil, storage.ConfigurationError("sqlite: database source is empty")
	}
	db, err := sql.Open("sqlite", cfg.Source)
	if err != nil {
		return nil, storage.DatabaseError("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storage.DatabaseError("ping", err)
	}
	if err := applyPragmas(ctx, db, cfg.Pragmas); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:          db,
		labelNames:  storage.NewDictCache(),
		labelValues: storage.NewDictCache(),
		stringVals:  storage.NewDictCache(),
		units:       storage.NewDictCache(),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func applyPragmas(ctx context.Context, db *sql.DB, p Pragmas) error {
	var pragmas []string
	if p.WAL {
		pragmas = append(pragmas, `PRAGMA journal_mode=WAL`)
	}
	if p.SyncOff {
		pragmas = append(pragmas, `PRAGMA synchronous=OFF`)
	}
	if p.TempMemory {
		pragmas = append(pragmas, `PRAGMA temp_store=MEMORY`)
	}
	if p.CacheMB > 0 {
		pragmas = append(pragmas, fmt.Sprintf(`PRAGMA cache_size=%d`, -p.CacheMB*1024))
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			slog.Warn("sqlite pragma failed", "pragma", pragma, "error", err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS units(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sensors(
	sensor_id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	type INTEGER NOT NULL,
	unit_fk INTEGER REFERENCES units(id),
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sensors_name ON sensors(name);

CREATE TABLE IF NOT EXISTS labels_name_dictionary(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS labels_description_dictionary(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	description TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS labels(
	sensor_id INTEGER NOT NULL REFERENCES sensors(sensor_id),
	name_fk INTEGER NOT NULL REFERENCES labels_name_dictionary(id),
	description_fk INTEGER NOT NULL REFERENCES labels_description_dictionary(id),
	PRIMARY KEY (sensor_id, name_fk)
);
CREATE INDEX IF NOT EXISTS idx_labels_name_value ON labels(name_fk, description_fk);

CREATE TABLE IF NOT EXISTS strings_values_dictionary(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS integer_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	value INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_integer_values ON integer_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS numeric_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_numeric_values ON numeric_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS float_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	value REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_float_values ON float_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS string_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	value_fk INTEGER NOT NULL REFERENCES strings_values_dictionary(id)
);
CREATE INDEX IF NOT EXISTS idx_string_values ON string_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS boolean_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	value INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_boolean_values ON boolean_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS location_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_location_values ON location_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS blob_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	value BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blob_values ON blob_values(sensor_id, timestamp_ms);

CREATE TABLE IF NOT EXISTS json_values(
	sensor_id INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_json_values ON json_values(sensor_id, timestamp_ms);
`

func (s *Store) CreateOrMigrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return storage.DatabaseError("create_or_migrate", err)
	}
	return nil
}

func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return storage.DatabaseError("vacuum", err)
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

// Publish commits every SingleSensorBatch in one transaction, creating
// sensor/label/dictionary rows on first sight of a sensor, then routes each
// sensor's TypedSamples to its type-specific value table.
func (s *Store) Publish(ctx context.Context, batch *datamodel.Batch, syncCh chan<- storage.Sync) error {
	ctx, span := tracer.Start(ctx, "sqlite.Publish")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return storage.DatabaseError("publish: begin", err)
	}
	defer tx.Rollback()

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

	if err := tx.Commit(); err != nil {
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

func (s *Store) ensureSensor(ctx context.Context, tx *sql.Tx, sensor *datamodel.Sensor) (int64, error) {
	key := sensor.UUID.String()
	if v, ok := s.sensorIDs.Load(key); ok {
		return v.(int64), nil
	}

	var unitFK sql.NullInt64
	if sensor.Unit != nil {
		id, err := s.resolveUnit(ctx, tx, sensor.Unit.Name, sensor.Unit.Description)
		if err != nil {
			return 0, err
		}
		unitFK = sql.NullInt64{Int64: id, Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO sensors(uuid, name, type, unit_fk, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(uuid) DO NOTHING`,
		key, sensor.Name, int(sensor.Kind), unitFK, time.Now().UnixMilli())
	if err != nil {
		return 0, storage.DatabaseError("ensure_sensor: insert", err)
	}

	var sensorID int64
	if err := tx.QueryRowContext(ctx, `SELECT sensor_id FROM sensors WHERE uuid = ?`, key).Scan(&sensorID); err != nil {
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
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO labels(sensor_id, name_fk, description_fk) VALUES (?, ?, ?)
			 ON CONFLICT(sensor_id, name_fk) DO NOTHING`,
			sensorID, nameFK, valueFK); err != nil {
			return 0, storage.DatabaseError("ensure_sensor: insert label", err)
		}
	}

	s.sensorIDs.Store(key, sensorID)
	return sensorID, nil
}

func (s *Store) resolveUnit(ctx context.Context, tx *sql.Tx, name, description string) (int64, error) {
	return s.units.Resolve(ctx, name, func(ctx context.Context) (int64, error) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO units(name, description) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			name, description); err != nil {
			return 0, storage.DatabaseError("resolve_unit: insert", err)
		}
		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM units WHERE name = ?`, name).Scan(&id); err != nil {
			return 0, storage.DatabaseError("resolve_unit: select", err)
		}
		return id, nil
	})
}

// resolveDict implements the compare-and-create dictionary lookup pattern
// shared by labels_name_dictionary, labels_description_dictionary and
// strings_values_dictionary: all three are `(id, <col>)` with <col> unique.
func (s *Store) resolveDict(ctx context.Context, tx *sql.Tx, cache *storage.DictCache, table, column, value string) (int64, error) {
	cacheKey := table + "\x1f" + value
	return cache.Resolve(ctx, cacheKey, func(ctx context.Context) (int64, error) {
		insertSQL := fmt.Sprintf(`INSERT INTO %s(%s) VALUES (?) ON CONFLICT(%s) DO NOTHING`, table, column, column)
		if _, err := tx.ExecContext(ctx, insertSQL, value); err != nil {
			return 0, storage.DatabaseError("resolve_dict: insert "+table, err)
		}
		selectSQL := fmt.Sprintf(`SELECT id FROM %s WHERE %s = ?`, table, column)
		var id int64
		if err := tx.QueryRowContext(ctx, selectSQL, value).Scan(&id); err != nil {
			return 0, storage.DatabaseError("resolve_dict: select "+table, err)
		}
		return id, nil
	})
}

func (s *Store) insertSamples(ctx context.Context, tx *sql.Tx, sensorID int64, samples datamodel.TypedSamples) error {
	switch samples.Kind {
	case datamodel.KindInteger:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO integer_values(sensor_id, timestamp_ms, value) VALUES (?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare integer", err)
		}
		defer stmt.Close()
		for _, p := range samples.Integers {
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), p.Value); err != nil {
				return storage.DatabaseError("insert_samples: integer", err)
			}
		}
	case datamodel.KindNumeric:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO numeric_values(sensor_id, timestamp_ms, value) VALUES (?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare numeric", err)
		}
		defer stmt.Close()
		for _, p := range samples.Numerics {
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), p.Value.String()); err != nil {
				return storage.DatabaseError("insert_samples: numeric", err)
			}
		}
	case datamodel.KindFloat:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO float_values(sensor_id, timestamp_ms, value) VALUES (?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare float", err)
		}
		defer stmt.Close()
		for _, p := range samples.Floats {
			if datamodel.IsStaleMarker(p.Value) {
				continue
			}
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), p.Value); err != nil {
				return storage.DatabaseError("insert_samples: float", err)
			}
		}
	case datamodel.KindString:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO string_values(sensor_id, timestamp_ms, value_fk) VALUES (?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare string", err)
		}
		defer stmt.Close()
		for _, p := range samples.Strings {
			valueFK, err := s.resolveDict(ctx, tx, s.stringVals, "strings_values_dictionary", "value", p.Value)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), valueFK); err != nil {
				return storage.DatabaseError("insert_samples: string", err)
			}
		}
	case datamodel.KindBoolean:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO boolean_values(sensor_id, timestamp_ms, value) VALUES (?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare boolean", err)
		}
		defer stmt.Close()
		for _, p := range samples.Booleans {
			v := 0
			if p.Value {
				v = 1
			}
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), v); err != nil {
				return storage.DatabaseError("insert_samples: boolean", err)
			}
		}
	case datamodel.KindLocation:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO location_values(sensor_id, timestamp_ms, latitude, longitude) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare location", err)
		}
		defer stmt.Close()
		for _, p := range samples.Locations {
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), p.Value[1], p.Value[0]); err != nil {
				return storage.DatabaseError("insert_samples: location", err)
			}
		}
	case datamodel.KindBlob:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO blob_values(sensor_id, timestamp_ms, value) VALUES (?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare blob", err)
		}
		defer stmt.Close()
		for _, p := range samples.Blobs {
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), p.Value); err != nil {
				return storage.DatabaseError("insert_samples: blob", err)
			}
		}
	case datamodel.KindJSON:
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO json_values(sensor_id, timestamp_ms, value) VALUES (?, ?, ?)`)
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare json", err)
		}
		defer stmt.Close()
		for _, p := range samples.JSONs {
			if _, err := stmt.ExecContext(ctx, sensorID, p.Time.UnixMilli(), p.Value); err != nil {
				return storage.DatabaseError("insert_samples: json", err)
			}
		}
	}
	return nil
}

// sensorRow is the in-memory projection of one sensors row plus its joined
// unit and labels, used both by ListSeries/ListMetrics and by the
// matcher-resolution path (§4.6).
type sensorRow struct {
	id     int64
	sensor *datamodel.Sensor
}

func (s *Store) loadSensors(ctx context.Context, nameFilter string) ([]sensorRow, error) {
	query := `SELECT s.sensor_id, s.uuid, s.name, s.type, u.name, u.description
		FROM sensors s LEFT JOIN units u ON u.id = s.unit_fk`
	var args []any
	if nameFilter != "" {
		query += ` WHERE s.name = ?`
		args = append(args, nameFilter)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.DatabaseError("load_sensors", err)
	}
	defer rows.Close()

	var result []sensorRow
	for rows.Next() {
		var id int64
		var uuidStr, name string
		var kind int
		var unitName, unitDesc sql.NullString
		if err := rows.Scan(&id, &uuidStr, &name, &kind, &unitName, &unitDesc); err != nil {
			return nil, storage.DatabaseError("load_sensors: scan", err)
		}
		u, err := uuid.Parse(uuidStr)
		if err != nil {
			return nil, storage.InvalidDataFormat("malformed sensor uuid", uuidStr)
		}
		var unit *datamodel.Unit
		if unitName.Valid {
			unit = &datamodel.Unit{Name: unitName.String, Description: unitDesc.String}
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
	placeholders := make([]string, len(rows))
	args := make([]any, len(rows))
	for i, r := range rows {
		byID[r.id] = r.sensor
		placeholders[i] = "?"
		args[i] = r.id
	}
	query := fmt.Sprintf(`SELECT l.sensor_id, n.name, d.description
		FROM labels l
		JOIN labels_name_dictionary n ON n.id = l.name_fk
		JOIN labels_description_dictionary d ON d.id = l.description_fk
		WHERE l.sensor_id IN (%s)`, strings.Join(placeholders, ","))
	lrows, err := s.db.QueryContext(ctx, query, args...)
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
	rows, err := s.db.QueryContext(ctx, `
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
		var unitName sql.NullString
		var count int64
		if err := rows.Scan(&name, &kind, &unitName, &count); err != nil {
			return nil, storage.DatabaseError("list_metrics: scan", err)
		}
		out = append(out, storage.MetricSummary{
			Name: name, Kind: datamodel.SampleKind(kind), UnitName: unitName.String, SeriesCount: count,
		})
	}
	return out, rows.Err()
}

func (s *Store) QuerySensorData(ctx context.Context, nameOrUUID string, startMS, endMS, limit int64) (*storage.SensorData, error) {
	ctx, span := tracer.Start(ctx, "sqlite.QuerySensorData")
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

	where := "sensor_id = ?"
	args := []any{sensorID}
	if startMS > 0 {
		where += " AND timestamp_ms >= ?"
		args = append(args, startMS)
	}
	if endMS > 0 {
		where += " AND timestamp_ms <= ?"
		args = append(args, endMS)
	}
	limitClause := ""
	if limit > 0 {
		limitClause = " LIMIT ?"
		args = append(args, limit)
	}

	switch kind {
	case datamodel.KindInteger:
		rows, err := s.db.QueryContext(ctx, `SELECT timestamp_ms, value FROM integer_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
		rows, err := s.db.QueryContext(ctx, `SELECT timestamp_ms, value FROM numeric_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
			d, err := decimalParse(raw)
			if err != nil {
				return result, storage.InvalidDataFormat("malformed numeric value", raw)
			}
			result.Numerics = append(result.Numerics, datamodel.NumericSample{Time: fromMillis(ts), Value: d})
		}
		return result, rows.Err()
	case datamodel.KindFloat:
		rows, err := s.db.QueryContext(ctx, `SELECT timestamp_ms, value FROM float_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
		rows, err := s.db.QueryContext(ctx, `SELECT sv.timestamp_ms, d.value FROM string_values sv
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
		rows, err := s.db.QueryContext(ctx, `SELECT timestamp_ms, value FROM boolean_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: boolean", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v int
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: boolean scan", err)
			}
			result.Booleans = append(result.Booleans, datamodel.BooleanSample{Time: fromMillis(ts), Value: v != 0})
		}
		return result, rows.Err()
	case datamodel.KindLocation:
		rows, err := s.db.QueryContext(ctx, `SELECT timestamp_ms, latitude, longitude FROM location_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
			result.Locations = append(result.Locations, datamodel.LocationSample{Time: fromMillis(ts), Value: newPoint(lon, lat)})
		}
		return result, rows.Err()
	case datamodel.KindBlob:
		rows, err := s.db.QueryContext(ctx, `SELECT timestamp_ms, value FROM blob_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
		rows, err := s.db.QueryContext(ctx, `SELECT timestamp_ms, value FROM json_values WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
	if src == "" {
		return false
	}
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "sqlite://"),
		strings.HasPrefix(lower, "file:"),
		strings.HasSuffix(lower, ".db"),
		src == ":memory:":
		return true
	default:
		return false
	}
}

func NormalizeSource(src string) string {
	if strings.HasPrefix(src, "sqlite://") {
		return strings.TrimPrefix(src, "sqlite://")
	}
	return src
}
