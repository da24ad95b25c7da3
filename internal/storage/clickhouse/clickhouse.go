// Package clickhouse implements the storage.Storage contract against
// ClickHouse, for high-volume analytical deployments. ClickHouse has no
// transactional ON CONFLICT: dictionary and sensor rows are resolved
// cache-first and inserted at-least-once, deduplicated at query time via
// ReplacingMergeTree's keep-latest-version semantics instead of a unique
// constraint. See DESIGN.md.
package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/pv/sensapp/internal/datamodel"
	"github.com/pv/sensapp/internal/storage"
)

var tracer = otel.Tracer("sensapp/storage/clickhouse")

type Config struct {
	DSN      string
	Database string
}

type Store struct {
	conn ch.Conn
	db   string

	labelNames  *storage.DictCache
	labelValues *storage.DictCache
	stringVals  *storage.DictCache
	units       *storage.DictCache

	sensorIDs sync.Map // uuid string -> int64 sensor_id
	nextID    int64
	nextIDMu  sync.Mutex
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, storage.ConfigurationError("clickhouse: DSN is empty")
	}
	opts, err := ch.ParseDSN(normalizeDSN(cfg.DSN))
	if err != nil {
		return nil, storage.ConfigurationError(fmt.Sprintf("clickhouse: parse dsn: %v", err))
	}
	conn, err := ch.Open(opts)
	if err != nil {
		return nil, storage.DatabaseError("open", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, storage.DatabaseError("ping", err)
	}
	database := cfg.Database
	if database == "" {
		database = opts.Auth.Database
	}
	if database == "" {
		database = "default"
	}
	return &Store{
		conn:        conn,
		db:          database,
		labelNames:  storage.NewDictCache(),
		labelValues: storage.NewDictCache(),
		stringVals:  storage.NewDictCache(),
		units:       storage.NewDictCache(),
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("%s.%s", s.db, name)
}

func (s *Store) schema() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id UInt64,
	name String,
	description String DEFAULT '',
	version UInt64
) ENGINE = ReplacingMergeTree(version) ORDER BY id;

CREATE TABLE IF NOT EXISTS %[2]s (
	sensor_id UInt64,
	uuid UUID,
	name String,
	type UInt8,
	unit_fk UInt64,
	created_at DateTime64(3),
	version UInt64
) ENGINE = ReplacingMergeTree(version) ORDER BY sensor_id;

CREATE TABLE IF NOT EXISTS %[3]s (
	id UInt64,
	name String,
	version UInt64
) ENGINE = ReplacingMergeTree(version) ORDER BY id;

CREATE TABLE IF NOT EXISTS %[4]s (
	id UInt64,
	description String,
	version UInt64
) ENGINE = ReplacingMergeTree(version) ORDER BY id;

CREATE TABLE IF NOT EXISTS %[5]s (
	sensor_id UInt64,
	name_fk UInt64,
	description_fk UInt64,
	version UInt64
) ENGINE = ReplacingMergeTree(version) ORDER BY (sensor_id, name_fk);

CREATE TABLE IF NOT EXISTS %[6]s (
	id UInt64,
	value String,
	version UInt64
) ENGINE = ReplacingMergeTree(version) ORDER BY id;

CREATE TABLE IF NOT EXISTS %[7]s (sensor_id UInt64, timestamp_ms Int64, value Int64) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
CREATE TABLE IF NOT EXISTS %[8]s (sensor_id UInt64, timestamp_ms Int64, value String) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
CREATE TABLE IF NOT EXISTS %[9]s (sensor_id UInt64, timestamp_ms Int64, value Float64) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
CREATE TABLE IF NOT EXISTS %[10]s (sensor_id UInt64, timestamp_ms Int64, value_fk UInt64) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
CREATE TABLE IF NOT EXISTS %[11]s (sensor_id UInt64, timestamp_ms Int64, value UInt8) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
CREATE TABLE IF NOT EXISTS %[12]s (sensor_id UInt64, timestamp_ms Int64, latitude Float64, longitude Float64) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
CREATE TABLE IF NOT EXISTS %[13]s (sensor_id UInt64, timestamp_ms Int64, value String) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
CREATE TABLE IF NOT EXISTS %[14]s (sensor_id UInt64, timestamp_ms Int64, value String) ENGINE = MergeTree ORDER BY (sensor_id, timestamp_ms);
`,
		s.table("units"), s.table("sensors"), s.table("labels_name_dictionary"), s.table("labels_description_dictionary"),
		s.table("labels"), s.table("strings_values_dictionary"),
		s.table("integer_values"), s.table("numeric_values"), s.table("float_values"), s.table("string_values"),
		s.table("boolean_values"), s.table("location_values"), s.table("blob_values"), s.table("json_values"))
}

func (s *Store) CreateOrMigrate(ctx context.Context) error {
	for _, stmt := range strings.Split(s.schema(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return storage.DatabaseError("create_or_migrate", err)
		}
	}
	return nil
}

func (s *Store) Vacuum(ctx context.Context) error {
	for _, t := range []string{"units", "sensors", "labels_name_dictionary", "labels_description_dictionary",
		"labels", "strings_values_dictionary"} {
		if err := s.conn.Exec(ctx, "OPTIMIZE TABLE "+s.table(t)+" FINAL"); err != nil {
			return storage.DatabaseError("vacuum "+t, err)
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

func (s *Store) allocID() int64 {
	s.nextIDMu.Lock()
	defer s.nextIDMu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *Store) Publish(ctx context.Context, batch *datamodel.Batch, syncCh chan<- storage.Sync) error {
	ctx, span := tracer.Start(ctx, "clickhouse.Publish")
	defer span.End()

	for _, sb := range batch.Sensors {
		sensorID, err := s.ensureSensor(ctx, sb.Sensor)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if err := s.insertSamples(ctx, sensorID, sb.Samples()); err != nil {
			span.RecordError(err)
			return err
		}
	}
	select {
	case syncCh <- storage.Sync{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Store) ensureSensor(ctx context.Context, sensor *datamodel.Sensor) (int64, error) {
	key := sensor.UUID.String()
	if v, ok := s.sensorIDs.Load(key); ok {
		return v.(int64), nil
	}

	var existing int64
	row := s.conn.QueryRow(ctx, fmt.Sprintf(`SELECT sensor_id FROM %s FINAL WHERE uuid = ? LIMIT 1`, s.table("sensors")), sensor.UUID)
	if err := row.Scan(&existing); err == nil {
		s.sensorIDs.Store(key, existing)
		return existing, nil
	}

	var unitFK uint64
	if sensor.Unit != nil {
		id, err := s.resolveUnit(ctx, sensor.Unit.Name, sensor.Unit.Description)
		if err != nil {
			return 0, err
		}
		unitFK = uint64(id)
	}

	sensorID := s.allocID()
	if err := s.conn.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (sensor_id, uuid, name, type, unit_fk, created_at, version) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.table("sensors")),
		uint64(sensorID), sensor.UUID, sensor.Name, uint8(sensor.Kind), unitFK, time.Now(), uint64(1)); err != nil {
		return 0, storage.DatabaseError("ensure_sensor: insert", err)
	}

	for _, label := range sensor.Labels {
		nameFK, err := s.resolveDict(ctx, s.labelNames, "labels_name_dictionary", label.Key)
		if err != nil {
			return 0, err
		}
		valueFK, err := s.resolveDict(ctx, s.labelValues, "labels_description_dictionary", label.Value)
		if err != nil {
			return 0, err
		}
		if err := s.conn.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (sensor_id, name_fk, description_fk, version) VALUES (?, ?, ?, ?)`, s.table("labels")),
			uint64(sensorID), uint64(nameFK), uint64(valueFK), uint64(1)); err != nil {
			return 0, storage.DatabaseError("ensure_sensor: insert label", err)
		}
	}

	s.sensorIDs.Store(key, sensorID)
	return sensorID, nil
}

func (s *Store) resolveUnit(ctx context.Context, name, description string) (int64, error) {
	return s.units.Resolve(ctx, name, func(ctx context.Context) (int64, error) {
		var existing uint64
		row := s.conn.QueryRow(ctx, fmt.Sprintf(`SELECT id FROM %s FINAL WHERE name = ? LIMIT 1`, s.table("units")), name)
		if err := row.Scan(&existing); err == nil {
			return int64(existing), nil
		}
		id := s.allocID()
		if err := s.conn.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, name, description, version) VALUES (?, ?, ?, ?)`, s.table("units")),
			uint64(id), name, description, uint64(1)); err != nil {
			return 0, storage.DatabaseError("resolve_unit: insert", err)
		}
		return id, nil
	})
}

func (s *Store) resolveDict(ctx context.Context, cache *storage.DictCache, table, value string) (int64, error) {
	cacheKey := table + "\x1f" + value
	return cache.Resolve(ctx, cacheKey, func(ctx context.Context) (int64, error) {
		column := "name"
		if table == "labels_description_dictionary" {
			column = "description"
		} else if table == "strings_values_dictionary" {
			column = "value"
		}
		var existing uint64
		row := s.conn.QueryRow(ctx, fmt.Sprintf(`SELECT id FROM %s FINAL WHERE %s = ? LIMIT 1`, s.table(table), column), value)
		if err := row.Scan(&existing); err == nil {
			return int64(existing), nil
		}
		id := s.allocID()
		if err := s.conn.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, %s, version) VALUES (?, ?, ?)`, s.table(table), column),
			uint64(id), value, uint64(1)); err != nil {
			return 0, storage.DatabaseError("resolve_dict: insert "+table, err)
		}
		return id, nil
	})
}

func (s *Store) insertSamples(ctx context.Context, sensorID int64, samples datamodel.TypedSamples) error {
	if samples.Len() == 0 {
		return nil
	}
	switch samples.Kind {
	case datamodel.KindInteger:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("integer_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare integer", err)
		}
		for _, p := range samples.Integers {
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), p.Value); err != nil {
				return storage.DatabaseError("insert_samples: integer append", err)
			}
		}
		return sendBatch(batch, "integer")
	case datamodel.KindNumeric:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("numeric_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare numeric", err)
		}
		for _, p := range samples.Numerics {
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), p.Value.String()); err != nil {
				return storage.DatabaseError("insert_samples: numeric append", err)
			}
		}
		return sendBatch(batch, "numeric")
	case datamodel.KindFloat:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("float_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare float", err)
		}
		for _, p := range samples.Floats {
			if datamodel.IsStaleMarker(p.Value) {
				continue
			}
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), p.Value); err != nil {
				return storage.DatabaseError("insert_samples: float append", err)
			}
		}
		return sendBatch(batch, "float")
	case datamodel.KindString:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("string_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare string", err)
		}
		for _, p := range samples.Strings {
			valueFK, err := s.resolveDict(ctx, s.stringVals, "strings_values_dictionary", p.Value)
			if err != nil {
				return err
			}
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), uint64(valueFK)); err != nil {
				return storage.DatabaseError("insert_samples: string append", err)
			}
		}
		return sendBatch(batch, "string")
	case datamodel.KindBoolean:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("boolean_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare boolean", err)
		}
		for _, p := range samples.Booleans {
			v := uint8(0)
			if p.Value {
				v = 1
			}
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), v); err != nil {
				return storage.DatabaseError("insert_samples: boolean append", err)
			}
		}
		return sendBatch(batch, "boolean")
	case datamodel.KindLocation:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("location_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare location", err)
		}
		for _, p := range samples.Locations {
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), p.Value[1], p.Value[0]); err != nil {
				return storage.DatabaseError("insert_samples: location append", err)
			}
		}
		return sendBatch(batch, "location")
	case datamodel.KindBlob:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("blob_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare blob", err)
		}
		for _, p := range samples.Blobs {
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), string(p.Value)); err != nil {
				return storage.DatabaseError("insert_samples: blob append", err)
			}
		}
		return sendBatch(batch, "blob")
	case datamodel.KindJSON:
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+s.table("json_values"))
		if err != nil {
			return storage.DatabaseError("insert_samples: prepare json", err)
		}
		for _, p := range samples.JSONs {
			if err := batch.Append(uint64(sensorID), p.Time.UnixMilli(), p.Value); err != nil {
				return storage.DatabaseError("insert_samples: json append", err)
			}
		}
		return sendBatch(batch, "json")
	}
	return nil
}

func sendBatch(batch ch.Batch, label string) error {
	if batch.Rows() == 0 {
		return nil
	}
	if err := batch.Send(); err != nil {
		return storage.DatabaseError("insert_samples: send "+label, err)
	}
	return nil
}

type sensorRow struct {
	id     int64
	sensor *datamodel.Sensor
}

func (s *Store) loadSensors(ctx context.Context, nameFilter string) ([]sensorRow, error) {
	query := fmt.Sprintf(`SELECT s.sensor_id, s.uuid, s.name, s.type, u.name, u.description
		FROM %s s FINAL LEFT JOIN %s u FINAL ON u.id = s.unit_fk`, s.table("sensors"), s.table("units"))
	var args []any
	if nameFilter != "" {
		query += ` WHERE s.name = ?`
		args = append(args, nameFilter)
	}
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.DatabaseError("load_sensors", err)
	}
	defer rows.Close()

	var result []sensorRow
	for rows.Next() {
		var id uint64
		var u uuid.UUID
		var name string
		var kind uint8
		var unitName, unitDesc string
		if err := rows.Scan(&id, &u, &name, &kind, &unitName, &unitDesc); err != nil {
			return nil, storage.DatabaseError("load_sensors: scan", err)
		}
		var unit *datamodel.Unit
		if unitName != "" {
			unit = &datamodel.Unit{Name: unitName, Description: unitDesc}
		}
		sensor := &datamodel.Sensor{UUID: u, Name: name, Kind: datamodel.SampleKind(kind), Unit: unit}
		result = append(result, sensorRow{id: int64(id), sensor: sensor})
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
	ids := make([]uint64, len(rows))
	for i, r := range rows {
		byID[r.id] = r.sensor
		ids[i] = uint64(r.id)
	}
	query := fmt.Sprintf(`SELECT l.sensor_id, n.name, d.description
		FROM %s l FINAL
		JOIN %s n FINAL ON n.id = l.name_fk
		JOIN %s d FINAL ON d.id = l.description_fk
		WHERE l.sensor_id IN ?`, s.table("labels"), s.table("labels_name_dictionary"), s.table("labels_description_dictionary"))
	lrows, err := s.conn.Query(ctx, query, ids)
	if err != nil {
		return storage.DatabaseError("attach_labels", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var sensorID uint64
		var name, value string
		if err := lrows.Scan(&sensorID, &name, &value); err != nil {
			return storage.DatabaseError("attach_labels: scan", err)
		}
		if sensor, ok := byID[int64(sensorID)]; ok {
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
	query := fmt.Sprintf(`SELECT s.name, s.type, u.name, COUNT(*)
		FROM %s s FINAL LEFT JOIN %s u FINAL ON u.id = s.unit_fk
		GROUP BY s.name, s.type, u.name`, s.table("sensors"), s.table("units"))
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, storage.DatabaseError("list_metrics", err)
	}
	defer rows.Close()

	var out []storage.MetricSummary
	for rows.Next() {
		var name string
		var kind uint8
		var unitName string
		var count uint64
		if err := rows.Scan(&name, &kind, &unitName, &count); err != nil {
			return nil, storage.DatabaseError("list_metrics: scan", err)
		}
		out = append(out, storage.MetricSummary{Name: name, Kind: datamodel.SampleKind(kind), UnitName: unitName, SeriesCount: int64(count)})
	}
	return out, rows.Err()
}

func (s *Store) QuerySensorData(ctx context.Context, nameOrUUID string, startMS, endMS, limit int64) (*storage.SensorData, error) {
	ctx, span := tracer.Start(ctx, "clickhouse.QuerySensorData")
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
	args := []any{uint64(sensorID)}
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
		limitClause = fmt.Sprintf(" LIMIT %d", limit)
	}

	switch kind {
	case datamodel.KindInteger:
		rows, err := s.conn.Query(ctx, `SELECT timestamp_ms, value FROM `+s.table("integer_values")+` WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
		rows, err := s.conn.Query(ctx, `SELECT timestamp_ms, value FROM `+s.table("numeric_values")+` WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
		rows, err := s.conn.Query(ctx, `SELECT timestamp_ms, value FROM `+s.table("float_values")+` WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
		rows, err := s.conn.Query(ctx, `SELECT sv.timestamp_ms, d.value FROM `+s.table("string_values")+` sv
			JOIN `+s.table("strings_values_dictionary")+` d FINAL ON d.id = sv.value_fk
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
		rows, err := s.conn.Query(ctx, `SELECT timestamp_ms, value FROM `+s.table("boolean_values")+` WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: boolean", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v uint8
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: boolean scan", err)
			}
			result.Booleans = append(result.Booleans, datamodel.BooleanSample{Time: fromMillis(ts), Value: v != 0})
		}
		return result, rows.Err()
	case datamodel.KindLocation:
		rows, err := s.conn.Query(ctx, `SELECT timestamp_ms, latitude, longitude FROM `+s.table("location_values")+` WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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
		rows, err := s.conn.Query(ctx, `SELECT timestamp_ms, value FROM `+s.table("blob_values")+` WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
		if err != nil {
			return result, storage.DatabaseError("fetch_samples: blob", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ts int64
			var v string
			if err := rows.Scan(&ts, &v); err != nil {
				return result, storage.DatabaseError("fetch_samples: blob scan", err)
			}
			result.Blobs = append(result.Blobs, datamodel.BlobSample{Time: fromMillis(ts), Value: []byte(v)})
		}
		return result, rows.Err()
	case datamodel.KindJSON:
		rows, err := s.conn.Query(ctx, `SELECT timestamp_ms, value FROM `+s.table("json_values")+` WHERE `+where+` ORDER BY timestamp_ms`+limitClause, args...)
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

func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "clickhouse://") {
		return "clickhouse://" + strings.TrimPrefix(dsn, "clickhouse://")
	}
	return dsn
}

func IsSource(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "clickhouse://") || strings.HasPrefix(lower, "tcp://")
}
