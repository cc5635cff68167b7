package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// MessageStorage is a SQLite-based archive of every received datalink
// message. Archival is independent of the live deduplication: the
// archive keeps all transmissions, the engine collapses them for
// display.
type MessageStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewMessageStorage creates a new SQLite-based message archive
func NewMessageStorage(dbPath string, log *logger.Logger) (*MessageStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &MessageStorage{db: db, logger: storageLogger}, nil
}

// Close closes the database connection
func (s *MessageStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection so other storages can share it
func (s *MessageStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL,
			protocol TEXT NOT NULL,
			timestamp REAL NOT NULL,
			station_id TEXT,
			label TEXT,
			msgno TEXT,
			flight TEXT,
			tail TEXT,
			icao_hex TEXT,
			text TEXT,
			data TEXT,
			libacars TEXT,
			depa TEXT,
			dsta TEXT,
			eta TEXT,
			gtout TEXT,
			gtin TEXT,
			wloff TEXT,
			wlin TEXT,
			lat REAL,
			lon REAL,
			alt REAL,
			matched INTEGER DEFAULT 0,
			matched_text TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	for name, stmt := range map[string]string{
		"timestamp": `CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
		"flight":    `CREATE INDEX IF NOT EXISTS idx_messages_flight ON messages(flight)`,
		"tail":      `CREATE INDEX IF NOT EXISTS idx_messages_tail ON messages(tail)`,
		"label":     `CREATE INDEX IF NOT EXISTS idx_messages_label ON messages(label)`,
		"protocol":  `CREATE INDEX IF NOT EXISTS idx_messages_protocol ON messages(protocol)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index on messages.%s: %w", name, err)
		}
	}

	return nil
}

// SaveMessage inserts one message into the archive
func (s *MessageStorage) SaveMessage(m *datalink.Message) error {
	var matchedText any
	if len(m.MatchedText) > 0 {
		encoded, err := json.Marshal(m.MatchedText)
		if err != nil {
			return fmt.Errorf("failed to encode matched terms: %w", err)
		}
		matchedText = string(encoded)
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (
			uid, protocol, timestamp, station_id, label, msgno,
			flight, tail, icao_hex,
			text, data, libacars,
			depa, dsta, eta, gtout, gtin, wloff, wlin,
			lat, lon, alt,
			matched, matched_text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UID, m.Protocol, m.Timestamp, m.StationID, m.Label, m.Msgno,
		m.Flight, m.Tail, m.Hex,
		nullStr(m.Text), nullStr(m.Data), nullStr(m.Libacars),
		nullStr(m.Depa), nullStr(m.Dsta), nullStr(m.Eta),
		nullStr(m.Gtout), nullStr(m.Gtin), nullStr(m.Wloff), nullStr(m.Wlin),
		nullFloat(m.Lat), nullFloat(m.Lon), nullFloat(m.Alt),
		m.Matched, matchedText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// messageColumns is the column list every message query selects, in
// the order scanMessages expects.
const messageColumns = `uid, protocol, timestamp, station_id, label, msgno,
	flight, tail, icao_hex,
	text, data, libacars,
	depa, dsta, eta, gtout, gtin, wloff, wlin,
	lat, lon, alt,
	matched, matched_text`

// RecentMessages returns the newest archived messages, newest first
func (s *MessageStorage) RecentMessages(limit int) ([]datalink.Message, error) {
	rows, err := s.db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	return s.scanMessages(rows)
}

// SearchQuery describes an archive search. String fields match as
// case-insensitive substrings and are ignored when empty; the time
// bounds are inclusive and ignored when zero.
type SearchQuery struct {
	Flight    string
	Tail      string
	Label     string
	Text      string
	Protocol  string
	StartTime float64
	EndTime   float64
	Limit     int
}

// SearchMessages queries the archive with the given filters, newest
// first.
func (s *MessageStorage) SearchMessages(q SearchQuery) ([]datalink.Message, error) {
	where := []string{"1=1"}
	var args []any

	for _, f := range []struct {
		column string
		value  string
	}{
		{"flight", q.Flight},
		{"tail", q.Tail},
		{"label", q.Label},
		{"text", q.Text},
	} {
		if f.value != "" {
			where = append(where, f.column+" LIKE ?")
			args = append(args, "%"+f.value+"%")
		}
	}
	if q.Protocol != "" {
		where = append(where, "protocol = ?")
		args = append(args, q.Protocol)
	}
	if q.StartTime > 0 {
		where = append(where, "timestamp >= ?")
		args = append(args, q.StartTime)
	}
	if q.EndTime > 0 {
		where = append(where, "timestamp <= ?")
		args = append(args, q.EndTime)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY timestamp DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	return s.scanMessages(rows)
}

// scanMessages reads a message query result set into messages.
func (s *MessageStorage) scanMessages(rows *sql.Rows) ([]datalink.Message, error) {
	var messages []datalink.Message
	for rows.Next() {
		var m datalink.Message
		var stationID, label, msgno, flight, tail, hex sql.NullString
		var text, data, libacars sql.NullString
		var depa, dsta, eta, gtout, gtin, wloff, wlin sql.NullString
		var lat, lon, alt sql.NullFloat64
		var matched sql.NullBool
		var matchedText sql.NullString

		if err := rows.Scan(
			&m.UID, &m.Protocol, &m.Timestamp, &stationID, &label, &msgno,
			&flight, &tail, &hex,
			&text, &data, &libacars,
			&depa, &dsta, &eta, &gtout, &gtin, &wloff, &wlin,
			&lat, &lon, &alt,
			&matched, &matchedText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		m.StationID = stationID.String
		m.Label = label.String
		m.Msgno = msgno.String
		m.Flight = flight.String
		m.Tail = tail.String
		m.Hex = hex.String
		m.Text = fromNullStr(text)
		m.Data = fromNullStr(data)
		m.Libacars = fromNullStr(libacars)
		m.Depa = fromNullStr(depa)
		m.Dsta = fromNullStr(dsta)
		m.Eta = fromNullStr(eta)
		m.Gtout = fromNullStr(gtout)
		m.Gtin = fromNullStr(gtin)
		m.Wloff = fromNullStr(wloff)
		m.Wlin = fromNullStr(wlin)
		m.Lat = fromNullFloat(lat)
		m.Lon = fromNullFloat(lon)
		m.Alt = fromNullFloat(alt)
		m.Matched = matched.Bool
		if matchedText.Valid && matchedText.String != "" {
			if err := json.Unmarshal([]byte(matchedText.String), &m.MatchedText); err != nil {
				s.logger.Warn("Failed to decode matched terms",
					logger.Error(err),
					logger.String("uid", m.UID))
			}
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// Count returns the total number of archived messages
func (s *MessageStorage) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// CountByProtocol returns per-protocol message counts
func (s *MessageStorage) CountByProtocol() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT protocol, COUNT(*) FROM messages GROUP BY protocol`)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages by protocol: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var protocol string
		var count int
		if err := rows.Scan(&protocol, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[protocol] = count
	}
	return counts, rows.Err()
}

func nullStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
