package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Entry is one curated best-practice item.
type Entry struct {
	ID               string
	Title            string
	Platform         string
	Category         string
	Goal             string
	Description      string
	Content          string
	KeyInsights      []string
	Tags             []string
	Embedding        []float64
	QualityScore     float64
	SourceType       string
	ExtractionMethod string
	ConfidenceScore  float64
	CreatedAt        string
}

// SimilarEntry is a search hit with its cosine similarity to the query.
type SimilarEntry struct {
	ID         string
	Title      string
	Similarity float64
}

// InsertEntry stores a new entry, generating an ID if none is set.
func (db *DB) InsertEntry(e *Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	insights, _ := json.Marshal(e.KeyInsights)
	tags, _ := json.Marshal(e.Tags)
	var embedding []byte
	if len(e.Embedding) > 0 {
		embedding, _ = json.Marshal(e.Embedding)
	}

	_, err := db.conn.Exec(`
		INSERT INTO entries (id, title, platform, category, goal, description, content,
			key_insights, tags, embedding, quality_score, source_type, extraction_method, confidence_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Platform, e.Category, e.Goal, e.Description, e.Content,
		string(insights), string(tags), nullableString(embedding), e.QualityScore,
		e.SourceType, e.ExtractionMethod, e.ConfidenceScore)
	if err != nil {
		return "", fmt.Errorf("inserting entry: %w", err)
	}
	return e.ID, nil
}

// GetEntry returns one entry by ID, or nil if it does not exist.
func (db *DB) GetEntry(id string) (*Entry, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, platform, category, goal, description, content,
			key_insights, tags, embedding, quality_score, source_type,
			extraction_method, confidence_score, created_at
		FROM entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	return e, nil
}

// ListEntries returns the most recent entries, newest first.
func (db *DB) ListEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, title, platform, category, goal, description, content,
			key_insights, tags, embedding, quality_score, source_type,
			extraction_method, confidence_score, created_at
		FROM entries ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CountEntries returns the number of stored entries.
func (db *DB) CountEntries() (int, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// SearchSimilar finds stored entries whose embeddings are at least
// threshold-similar to the query vector, best first. Empty platform or goal
// filters match everything. Entries without embeddings are skipped.
func (db *DB) SearchSimilar(vector []float64, threshold float64, limit int, platform, goal string) ([]SimilarEntry, error) {
	query := "SELECT id, title, embedding FROM entries WHERE embedding IS NOT NULL"
	var args []any
	if platform != "" {
		query += " AND platform = ?"
		args = append(args, platform)
	}
	if goal != "" {
		query += " AND goal = ?"
		args = append(args, goal)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	defer rows.Close()

	var hits []SimilarEntry
	for rows.Next() {
		var id, title, raw string
		if err := rows.Scan(&id, &title, &raw); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}

		var embedding []float64
		if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
			continue
		}

		sim := cosineSimilarity(vector, embedding)
		if sim >= threshold {
			hits = append(hits, SimilarEntry{ID: id, Title: title, Similarity: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// CountIngestions returns the number of recorded ingestion attempts.
func (db *DB) CountIngestions() (int, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM ingestion_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ingestions: %w", err)
	}
	return n, nil
}

// LogIngestion records the outcome of one ingestion attempt.
func (db *DB) LogIngestion(entryID, sourceType string, overallScore float64, approved bool, duplicateOf string) error {
	_, err := db.conn.Exec(`
		INSERT INTO ingestion_log (entry_id, source_type, overall_score, approved, duplicate_of)
		VALUES (?, ?, ?, ?, ?)`,
		nullIfEmpty(entryID), sourceType, overallScore, boolToInt(approved), nullIfEmpty(duplicateOf))
	if err != nil {
		return fmt.Errorf("logging ingestion: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var insights, tags, embedding sql.NullString
	var description, sourceType, method sql.NullString

	err := row.Scan(&e.ID, &e.Title, &e.Platform, &e.Category, &e.Goal,
		&description, &e.Content, &insights, &tags, &embedding,
		&e.QualityScore, &sourceType, &method, &e.ConfidenceScore, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.Description = description.String
	e.SourceType = sourceType.String
	e.ExtractionMethod = method.String
	if insights.Valid {
		json.Unmarshal([]byte(insights.String), &e.KeyInsights)
	}
	if tags.Valid {
		json.Unmarshal([]byte(tags.String), &e.Tags)
	}
	if embedding.Valid {
		json.Unmarshal([]byte(embedding.String), &e.Embedding)
	}
	return &e, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
