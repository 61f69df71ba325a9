// Package query holds the read-only aggregates behind the summary,
// timeline, productivity and current-activity views. Everything here is a
// plain SELECT: no mutation, no business rules beyond grouping math.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"timely/internal/apperr"
	"timely/internal/domain"
	"timely/internal/store"
)

// GroupBy selects the summary's grouping column. Keeping it a closed enum
// means every variant maps to a fixed SQL string and user input never
// reaches the query text.
type GroupBy int

const (
	GroupByCategory GroupBy = iota
	GroupByApp
	GroupByURLDomain
)

// ParseGroupBy maps the CLI/API spelling to a GroupBy.
func ParseGroupBy(s string) (GroupBy, error) {
	switch s {
	case "", "category":
		return GroupByCategory, nil
	case "app":
		return GroupByApp, nil
	case "url", "url_domain":
		return GroupByURLDomain, nil
	default:
		return 0, fmt.Errorf("unknown group %q (use category, app or url)", s)
	}
}

func (g GroupBy) String() string {
	switch g {
	case GroupByApp:
		return "app"
	case GroupByURLDomain:
		return "url_domain"
	default:
		return "category"
	}
}

// groupExpr is the SELECT/GROUP BY expression for each variant. These are
// fixed literals, never built from input.
func (g GroupBy) groupExpr() string {
	switch g {
	case GroupByApp:
		return "e.app"
	case GroupByURLDomain:
		return "COALESCE(e.url_domain, e.app)"
	default:
		return "COALESCE(c.name, 'uncategorized')"
	}
}

type SummaryGroup struct {
	Label             string  `json:"label"`
	Seconds           float64 `json:"seconds"`
	Time              string  `json:"time"`
	EngagedSeconds    float64 `json:"engaged_seconds"`
	EngagedTime       string  `json:"engaged_time"`
	AFKSeconds        float64 `json:"afk_seconds"`
	AFKTime           string  `json:"afk_time"`
	Percentage        float64 `json:"percentage"`
	ProductivityScore float64 `json:"productivity_score"`
	EventCount        int64   `json:"event_count"`
}

type Summary struct {
	From                string         `json:"from"`
	To                  string         `json:"to"`
	TotalSeconds        float64        `json:"total_seconds"`
	TotalTime           string         `json:"total_time"`
	EngagedTotalSeconds float64        `json:"engaged_total_seconds"`
	EngagedTotalTime    string         `json:"engaged_total_time"`
	AFKTotalSeconds     float64        `json:"afk_total_seconds"`
	AFKTotalTime        string         `json:"afk_total_time"`
	ProductivityScore   float64        `json:"productivity_score"`
	Groups              []SummaryGroup `json:"groups"`
}

type TimelineEntry struct {
	Timestamp       string  `json:"timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
	DurationTime    string  `json:"duration_time"`
	App             string  `json:"app"`
	Title           string  `json:"title"`
	URL             *string `json:"url,omitempty"`
	Category        *string `json:"category,omitempty"`
	IsAFK           bool    `json:"is_afk"`
}

type Timeline struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Count   int             `json:"count"`
	Entries []TimelineEntry `json:"entries"`
}

// Productivity splits engaged time by score sign and normalizes the
// duration-weighted average score into a 0-100 value.
type Productivity struct {
	Score       int64 `json:"score"`
	Productive  int64 `json:"productive"`
	Neutral     int64 `json:"neutral"`
	Distracting int64 `json:"distracting"`
	Total       int64 `json:"total"`
}

type CurrentActivity struct {
	App             string  `json:"app"`
	Title           string  `json:"title"`
	URL             *string `json:"url,omitempty"`
	Category        string  `json:"category"`
	DurationSeconds float64 `json:"duration_seconds"`
	DurationTime    string  `json:"duration_time"`
	IsAFK           bool    `json:"is_afk"`
	Since           string  `json:"since"`
}

// Queries runs the aggregate reads. It holds its own *sql.DB handle because
// the grouping queries do not map onto the repositories' row shapes.
type Queries struct {
	db     *sql.DB
	events *store.EventRepository
}

func New(db *sql.DB, events *store.EventRepository) *Queries {
	return &Queries{db: db, events: events}
}

// Summary aggregates events in [from, to] by the selected group. Returns
// no-data when the range holds nothing.
func (q *Queries) Summary(ctx context.Context, from, to time.Time, groupBy GroupBy, excludeAFK bool) (*Summary, error) {
	afkFilter := ""
	if excludeAFK {
		afkFilter = " AND e.is_afk = 0"
	}
	expr := groupBy.groupExpr()
	stmt := `SELECT ` + expr + ` AS grp,
	            SUM(e.duration),
	            SUM(CASE WHEN e.is_afk = 0 THEN e.duration ELSE 0 END),
	            SUM(CASE WHEN e.is_afk = 1 THEN e.duration ELSE 0 END),
	            COUNT(*),
	            COALESCE(c.productivity_score, 0.0)
	         FROM events e
	         LEFT JOIN categories c ON c.id = e.category_id
	         WHERE e.timestamp >= ? AND e.timestamp <= ?` + afkFilter + `
	         GROUP BY grp
	         ORDER BY SUM(e.duration) DESC`

	rows, err := q.db.QueryContext(ctx, stmt,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	type groupRow struct {
		label             string
		dur, engaged, afk float64
		count             int64
		score             float64
	}
	var data []groupRow
	var totalSeconds, engagedTotal, afkTotal, weightedScore float64
	for rows.Next() {
		var g groupRow
		if err := rows.Scan(&g.label, &g.dur, &g.engaged, &g.afk, &g.count, &g.score); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		totalSeconds += g.dur
		engagedTotal += g.engaged
		afkTotal += g.afk
		weightedScore += g.dur * g.score
		data = append(data, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	if len(data) == 0 {
		return nil, apperr.ErrNoData
	}

	productivityScore := 0.0
	if totalSeconds > 0 {
		productivityScore = weightedScore / totalSeconds
	}

	s := &Summary{
		From:                from.UTC().Format(time.RFC3339),
		To:                  to.UTC().Format(time.RFC3339),
		TotalSeconds:        totalSeconds,
		TotalTime:           domain.FormatDuration(totalSeconds),
		EngagedTotalSeconds: engagedTotal,
		EngagedTotalTime:    domain.FormatDuration(engagedTotal),
		AFKTotalSeconds:     afkTotal,
		AFKTotalTime:        domain.FormatDuration(afkTotal),
		ProductivityScore:   math.Round(productivityScore*100) / 100,
	}
	for _, g := range data {
		pct := 0.0
		if totalSeconds > 0 {
			pct = g.dur / totalSeconds * 100
		}
		s.Groups = append(s.Groups, SummaryGroup{
			Label:             g.label,
			Seconds:           g.dur,
			Time:              domain.FormatDuration(g.dur),
			EngagedSeconds:    g.engaged,
			EngagedTime:       domain.FormatDuration(g.engaged),
			AFKSeconds:        g.afk,
			AFKTime:           domain.FormatDuration(g.afk),
			Percentage:        math.Round(pct*10) / 10,
			ProductivityScore: g.score,
			EventCount:        g.count,
		})
	}
	return s, nil
}

// Timeline lists events in [from, to] in chronological order.
func (q *Queries) Timeline(ctx context.Context, from, to time.Time, limit int64) (*Timeline, error) {
	events, err := q.events.QueryRange(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperr.ErrNoData
	}

	// the store returns newest-first
	tl := &Timeline{
		From:  from.UTC().Format(time.RFC3339),
		To:    to.UTC().Format(time.RFC3339),
		Count: len(events),
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		tl.Entries = append(tl.Entries, TimelineEntry{
			Timestamp:       e.Timestamp.Format(time.RFC3339),
			DurationSeconds: e.Duration,
			DurationTime:    domain.FormatDuration(e.Duration),
			App:             e.App,
			Title:           e.Title,
			URL:             e.URL,
			Category:        e.CategoryName,
			IsAFK:           e.IsAFK,
		})
	}
	return tl, nil
}

// Productivity buckets engaged (non-AFK) time by score sign over [from, to].
func (q *Queries) Productivity(ctx context.Context, from, to time.Time) (*Productivity, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT COALESCE(c.productivity_score, 0), SUM(e.duration)
		 FROM events e
		 LEFT JOIN categories c ON c.id = e.category_id
		 WHERE e.timestamp >= ? AND e.timestamp <= ? AND e.is_afk = 0
		 GROUP BY COALESCE(c.productivity_score, 0)`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query productivity: %w", err)
	}
	defer rows.Close()

	var productive, neutral, distracting, weightedSum, total float64
	for rows.Next() {
		var score, secs float64
		if err := rows.Scan(&score, &secs); err != nil {
			return nil, fmt.Errorf("scan productivity row: %w", err)
		}
		total += secs
		switch {
		case score > 0:
			productive += secs
			weightedSum += secs * score
		case score < 0:
			distracting += secs
			weightedSum += secs * score
		default:
			neutral += secs
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate productivity rows: %w", err)
	}

	weightedAvg := 0.0
	if total > 0 {
		weightedAvg = weightedSum / total
	}
	// map the [-2, 2] score range onto 0-100
	score := int64(math.Round((weightedAvg + 2) / 4 * 100))
	score = min(max(score, 0), 100)

	return &Productivity{
		Score:       score,
		Productive:  int64(math.Round(productive)),
		Neutral:     int64(math.Round(neutral)),
		Distracting: int64(math.Round(distracting)),
		Total:       int64(math.Round(total)),
	}, nil
}

// Current returns the most recent event, or nil when nothing was recorded
// yet.
func (q *Queries) Current(ctx context.Context) (*CurrentActivity, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT e.app, e.title, e.url, COALESCE(c.name, 'uncategorized'),
		        e.duration, e.is_afk, e.timestamp
		 FROM events e
		 LEFT JOIN categories c ON c.id = e.category_id
		 ORDER BY e.timestamp DESC
		 LIMIT 1`)

	var c CurrentActivity
	var afk int
	err := row.Scan(&c.App, &c.Title, &c.URL, &c.Category, &c.DurationSeconds, &afk, &c.Since)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query current activity: %w", err)
	}
	c.IsAFK = afk != 0
	c.DurationTime = domain.FormatDuration(c.DurationSeconds)
	return &c, nil
}
