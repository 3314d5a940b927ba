package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  user_id VARCHAR(64) NOT NULL,
  framework VARCHAR(32) NOT NULL,
  risk_score DOUBLE NOT NULL,
  security_level VARCHAR(32) NOT NULL,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  INDEX idx_analyses_user_created (user_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS area_scores (
  analysis_id VARCHAR(64) NOT NULL,
  seq INT NOT NULL,
  area VARCHAR(191) NOT NULL,
  score DOUBLE NOT NULL,
  PRIMARY KEY (analysis_id, seq),
  UNIQUE KEY uq_area_scores_area (analysis_id, area),
  CONSTRAINT fk_area_scores_analysis FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS recommendations (
  analysis_id VARCHAR(64) NOT NULL,
  seq INT NOT NULL,
  description TEXT NOT NULL,
  category VARCHAR(191) NOT NULL,
  priority INT NOT NULL,
  PRIMARY KEY (analysis_id, seq),
  CONSTRAINT fk_recommendations_analysis FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS benchmark_comparisons (
  analysis_id VARCHAR(64) NOT NULL,
  area VARCHAR(191) NOT NULL,
  score DOUBLE NOT NULL,
  benchmark_score DOUBLE NOT NULL,
  percentile DOUBLE NOT NULL,
  created_at DATETIME(6) NOT NULL,
  PRIMARY KEY (analysis_id, area),
  CONSTRAINT fk_benchmarks_analysis FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS custom_rules (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  user_id VARCHAR(64) NOT NULL,
  name VARCHAR(200) NOT NULL,
  description TEXT NOT NULL,
  category VARCHAR(100) NOT NULL,
  severity INT NOT NULL,
  criteria JSON NOT NULL,
  active TINYINT(1) NOT NULL DEFAULT 1,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  INDEX idx_custom_rules_user_active (user_id, active, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS rule_results (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  analysis_id VARCHAR(64) NOT NULL,
  rule_id VARCHAR(64) NOT NULL,
  matched TINYINT(1) NOT NULL,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  UNIQUE KEY uq_rule_results_pair (analysis_id, rule_id),
  CONSTRAINT fk_rule_results_analysis FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE,
  CONSTRAINT fk_rule_results_rule FOREIGN KEY (rule_id) REFERENCES custom_rules(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  framework TEXT NOT NULL,
  risk_score DOUBLE PRECISION NOT NULL,
  security_level TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS area_scores (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  area TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (analysis_id, seq),
  UNIQUE (analysis_id, area)
)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  priority INTEGER NOT NULL,
  PRIMARY KEY (analysis_id, seq)
)`,
	`CREATE TABLE IF NOT EXISTS benchmark_comparisons (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  area TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  benchmark_score DOUBLE PRECISION NOT NULL,
  percentile DOUBLE PRECISION NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (analysis_id, area)
)`,
	`CREATE TABLE IF NOT EXISTS custom_rules (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  severity INTEGER NOT NULL CHECK (severity BETWEEN 1 AND 5),
  criteria JSONB NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_custom_rules_user_active ON custom_rules (user_id, active, created_at)`,
	`CREATE TABLE IF NOT EXISTS rule_results (
  id TEXT PRIMARY KEY,
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  rule_id TEXT NOT NULL REFERENCES custom_rules(id) ON DELETE CASCADE,
  matched BOOLEAN NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (analysis_id, rule_id)
)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  framework TEXT NOT NULL,
  risk_score REAL NOT NULL,
  security_level TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS area_scores (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  area TEXT NOT NULL,
  score REAL NOT NULL,
  PRIMARY KEY (analysis_id, seq),
  UNIQUE (analysis_id, area)
)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  priority INTEGER NOT NULL,
  PRIMARY KEY (analysis_id, seq)
)`,
	`CREATE TABLE IF NOT EXISTS benchmark_comparisons (
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  area TEXT NOT NULL,
  score REAL NOT NULL,
  benchmark_score REAL NOT NULL,
  percentile REAL NOT NULL,
  created_at DATETIME NOT NULL,
  PRIMARY KEY (analysis_id, area)
)`,
	`CREATE TABLE IF NOT EXISTS custom_rules (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  severity INTEGER NOT NULL CHECK (severity BETWEEN 1 AND 5),
  criteria TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_custom_rules_user_active ON custom_rules (user_id, active, created_at)`,
	`CREATE TABLE IF NOT EXISTS rule_results (
  id TEXT PRIMARY KEY,
  analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  rule_id TEXT NOT NULL REFERENCES custom_rules(id) ON DELETE CASCADE,
  matched INTEGER NOT NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  UNIQUE (analysis_id, rule_id)
)`,
}

// Migrate creates every table the service needs. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	var stmts []string
	switch d {
	case MySQL:
		stmts = mysqlSchema
	case Postgres:
		stmts = postgresSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported dialect: %q", d)
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
