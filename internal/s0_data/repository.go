package s0_data

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/carewatch/internal/contracts"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ contracts.LogStore        = (*Repository)(nil)
	_ contracts.AdherenceSource = (*Repository)(nil)
)

// Repository is the Postgres-backed log store.
// It implements contracts.LogStore and contracts.AdherenceSource.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

// EnsureSchema creates the care schema if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure care schema: %w", err)
	}
	return nil
}

// ListPatients returns the ids of all actively monitored patients
func (r *Repository) ListPatients(ctx context.Context) ([]string, error) {
	query := `
		SELECT id
		FROM care.patients
		WHERE active
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan patients: %w", err)
	}
	return ids, nil
}

// ListEntries returns the raw logs of a patient with log_date in [from, to], oldest first.
// Rows are returned as stored; validation happens in the engine.
func (r *Repository) ListEntries(ctx context.Context, patientID string, from, to time.Time) ([]contracts.HealthLogEntry, error) {
	query := `
		SELECT id, patient_id, log_date, submitted_at, pain_level, mood, vitals, notes
		FROM care.health_logs
		WHERE patient_id = $1 AND log_date BETWEEN $2 AND $3
		ORDER BY log_date ASC, submitted_at ASC
	`

	rows, err := r.db.Query(ctx, query, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query health logs: %w", err)
	}
	defer rows.Close()

	var entries []contracts.HealthLogEntry
	index := make(map[string]int)
	for rows.Next() {
		var (
			e          contracts.HealthLogEntry
			mood       string
			vitalsJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Date, &e.SubmittedAt, &e.PainLevel, &mood, &vitalsJSON, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan health log: %w", err)
		}
		e.Mood = contracts.Mood(mood)

		if len(vitalsJSON) > 0 {
			var v contracts.Vitals
			if err := json.Unmarshal(vitalsJSON, &v); err != nil {
				return nil, fmt.Errorf("unmarshal vitals of log %s: %w", e.ID, err)
			}
			e.Vitals = &v
		}

		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health logs: %w", err)
	}

	if len(entries) == 0 {
		return entries, nil
	}

	if err := r.attachSymptoms(ctx, entries, index); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) attachSymptoms(ctx context.Context, entries []contracts.HealthLogEntry, index map[string]int) error {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	query := `
		SELECT log_id, name, severity, duration
		FROM care.symptoms
		WHERE log_id = ANY($1)
		ORDER BY log_id, position
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("query symptoms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			logID string
			s     contracts.Symptom
		)
		if err := rows.Scan(&logID, &s.Name, &s.Severity, &s.Duration); err != nil {
			return fmt.Errorf("scan symptom: %w", err)
		}
		if i, ok := index[logID]; ok {
			entries[i].Symptoms = append(entries[i].Symptoms, s)
		}
	}
	return rows.Err()
}

// ListAdherence returns daily adherence with adherence_date in [from, to], oldest first
func (r *Repository) ListAdherence(ctx context.Context, patientID string, from, to time.Time) ([]contracts.AdherenceRecord, error) {
	query := `
		SELECT adherence_date, percent, missed_doses
		FROM care.daily_adherence
		WHERE patient_id = $1 AND adherence_date BETWEEN $2 AND $3
		ORDER BY adherence_date ASC
	`

	rows, err := r.db.Query(ctx, query, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query adherence: %w", err)
	}
	defer rows.Close()

	var records []contracts.AdherenceRecord
	for rows.Next() {
		var rec contracts.AdherenceRecord
		if err := rows.Scan(&rec.Date, &rec.Percent, &rec.MissedDoses); err != nil {
			return nil, fmt.Errorf("scan adherence: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpsertPatient registers a patient for monitoring
func (r *Repository) UpsertPatient(ctx context.Context, patientID string) error {
	query := `
		INSERT INTO care.patients (id, active)
		VALUES ($1, TRUE)
		ON CONFLICT (id) DO UPDATE SET active = TRUE
	`
	if _, err := r.db.Exec(ctx, query, patientID); err != nil {
		return fmt.Errorf("upsert patient %s: %w", patientID, err)
	}
	return nil
}

// SaveEntries upserts health logs and replaces their symptoms in one transaction
func (r *Repository) SaveEntries(ctx context.Context, patientID string, entries []contracts.HealthLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	logQuery := `
		INSERT INTO care.health_logs (
			id, patient_id, log_date, submitted_at, pain_level, mood, vitals, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			log_date = EXCLUDED.log_date,
			submitted_at = EXCLUDED.submitted_at,
			pain_level = EXCLUDED.pain_level,
			mood = EXCLUDED.mood,
			vitals = EXCLUDED.vitals,
			notes = EXCLUDED.notes
	`
	symptomQuery := `
		INSERT INTO care.symptoms (log_id, position, name, severity, duration)
		VALUES ($1, $2, $3, $4, $5)
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s-%d", patientID, contracts.Day(e.Date).Format("20060102"), i)
		}
		submitted := e.SubmittedAt
		if submitted.IsZero() {
			submitted = e.Date
		}

		var vitalsJSON []byte
		if !e.Vitals.IsEmpty() {
			vitalsJSON, err = json.Marshal(e.Vitals)
			if err != nil {
				return fmt.Errorf("marshal vitals of log %s: %w", id, err)
			}
		}

		if _, err := tx.Exec(ctx, logQuery,
			id, patientID, contracts.Day(e.Date), submitted, e.PainLevel, string(e.Mood), vitalsJSON, e.Notes,
		); err != nil {
			return fmt.Errorf("insert health log %s: %w", id, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM care.symptoms WHERE log_id = $1`, id); err != nil {
			return fmt.Errorf("clear symptoms of log %s: %w", id, err)
		}
		for pos, s := range e.Symptoms {
			if _, err := tx.Exec(ctx, symptomQuery, id, pos, s.Name, s.Severity, s.Duration); err != nil {
				return fmt.Errorf("insert symptom of log %s: %w", id, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveAdherence upserts daily adherence records
func (r *Repository) SaveAdherence(ctx context.Context, patientID string, records []contracts.AdherenceRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO care.daily_adherence (patient_id, adherence_date, percent, missed_doses, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (patient_id, adherence_date) DO UPDATE SET
			percent = EXCLUDED.percent,
			missed_doses = EXCLUDED.missed_doses,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, patientID, contracts.Day(rec.Date), rec.Percent, rec.MissedDoses)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert adherence: %w", err)
		}
	}
	return nil
}

// SaveWindow stores a full patient window (patient, logs, adherence)
func (r *Repository) SaveWindow(ctx context.Context, w contracts.PatientWindow) error {
	if err := r.UpsertPatient(ctx, w.PatientID); err != nil {
		return err
	}
	if err := r.SaveEntries(ctx, w.PatientID, w.Entries); err != nil {
		return err
	}
	return r.SaveAdherence(ctx, w.PatientID, w.Adherence)
}
