package campaigns

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	channel    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS campaign_daily_metrics (
	campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	date        DATE NOT NULL,
	spend       REAL NOT NULL DEFAULT 0,
	clicks      REAL NOT NULL DEFAULT 0,
	conversions REAL NOT NULL DEFAULT 0,
	revenue     REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (campaign_id, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_metrics_campaign
	ON campaign_daily_metrics(campaign_id, date);
`

// Repository provides access to campaigns and their daily metrics.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new campaigns repository and ensures the schema exists.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize campaigns schema: %w", err)
	}
	return &Repository{
		db:  db,
		log: log.With().Str("component", "campaigns_repo").Logger(),
	}, nil
}

// Upsert inserts or updates a campaign.
func (r *Repository) Upsert(c Campaign) error {
	if c.ID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO campaigns (id, name, channel, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			channel = excluded.channel,
			status = excluded.status`,
		c.ID, c.Name, c.Channel, c.Status, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign %s: %w", c.ID, err)
	}
	return nil
}

// List returns all campaigns ordered by name.
func (r *Repository) List() ([]Campaign, error) {
	rows, err := r.db.Query(`
		SELECT id, name, channel, status, created_at
		FROM campaigns
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var result []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Channel, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Get returns a single campaign by ID.
func (r *Repository) Get(id string) (*Campaign, error) {
	var c Campaign
	err := r.db.QueryRow(`
		SELECT id, name, channel, status, created_at
		FROM campaigns
		WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Channel, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign %s: %w", id, err)
	}
	return &c, nil
}

// RecordMetrics inserts or replaces daily metric rows.
func (r *Repository) RecordMetrics(metrics []DailyMetric) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO campaign_daily_metrics
			(campaign_id, date, spend, clicks, conversions, revenue)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare metrics insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		if m.CampaignID == "" {
			return fmt.Errorf("metric row missing campaign id")
		}
		date := m.Date.UTC().Format("2006-01-02")
		if _, err := stmt.Exec(m.CampaignID, date, m.Spend, m.Clicks, m.Conversions, m.Revenue); err != nil {
			return fmt.Errorf("failed to insert metrics for %s: %w", m.CampaignID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics: %w", err)
	}

	r.log.Debug().Int("rows", len(metrics)).Msg("Recorded daily metrics")
	return nil
}

// MetricsForCampaign returns all daily metric rows for a campaign ordered by date.
func (r *Repository) MetricsForCampaign(campaignID string) ([]DailyMetric, error) {
	rows, err := r.db.Query(`
		SELECT campaign_id, date, spend, clicks, conversions, revenue
		FROM campaign_daily_metrics
		WHERE campaign_id = ?
		ORDER BY date`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics for %s: %w", campaignID, err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

// AllMetrics returns daily metric rows for every campaign, keyed by campaign ID.
func (r *Repository) AllMetrics() (map[string][]DailyMetric, error) {
	rows, err := r.db.Query(`
		SELECT campaign_id, date, spend, clicks, conversions, revenue
		FROM campaign_daily_metrics
		ORDER BY campaign_id, date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all metrics: %w", err)
	}
	defer rows.Close()

	metrics, err := scanMetrics(rows)
	if err != nil {
		return nil, err
	}

	byCampaign := make(map[string][]DailyMetric)
	for _, m := range metrics {
		byCampaign[m.CampaignID] = append(byCampaign[m.CampaignID], m)
	}
	return byCampaign, nil
}

// BuildRecords assembles aggregate Records for all campaigns from their daily
// metrics. Campaigns without any metric rows produce zero-valued records.
func (r *Repository) BuildRecords() ([]Record, error) {
	campaignsList, err := r.List()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(campaignsList))
	for _, c := range campaignsList {
		var spend, clicks, conversions, revenue float64
		var days int
		err := r.db.QueryRow(`
			SELECT COALESCE(SUM(spend), 0), COALESCE(SUM(clicks), 0),
			       COALESCE(SUM(conversions), 0), COALESCE(SUM(revenue), 0),
			       COUNT(*)
			FROM campaign_daily_metrics
			WHERE campaign_id = ?`, c.ID).
			Scan(&spend, &clicks, &conversions, &revenue, &days)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate metrics for %s: %w", c.ID, err)
		}
		records = append(records, NewRecord(c.ID, c.Name, spend, clicks, conversions, revenue, days))
	}

	return records, nil
}

func scanMetrics(rows *sql.Rows) ([]DailyMetric, error) {
	var result []DailyMetric
	for rows.Next() {
		var m DailyMetric
		var dateStr string
		if err := rows.Scan(&m.CampaignID, &dateStr, &m.Spend, &m.Clicks, &m.Conversions, &m.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			// Some drivers return full timestamps
			date, err = time.Parse(time.RFC3339, dateStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse metric date %q: %w", dateStr, err)
			}
		}
		m.Date = date
		result = append(result, m)
	}
	return result, rows.Err()
}
