package database

import "database/sql"

// StatsProvider is implemented by backends that expose connection pool statistics.
type StatsProvider interface {
	DBStats() sql.DBStats
}

func (s *SQLiteDB) DBStats() sql.DBStats {
	return s.db.Stats()
}

func (p *PostgresDB) DBStats() sql.DBStats {
	return p.db.Stats()
}
