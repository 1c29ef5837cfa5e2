package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/wonny/carewatch/internal/contracts"
)

// AssessCohort assesses every window over a pool of workers.
// Results are returned in input order; a failed patient carries its error
// instead of aborting the run. Cancelling ctx fails the patients not yet
// started with ctx.Err().
func (e *Engine) AssessCohort(ctx context.Context, windows []contracts.PatientWindow, workers int) []contracts.CohortResult {
	if workers < 1 {
		workers = 1
	}
	if workers > len(windows) {
		workers = len(windows)
	}

	e.logger.WithFields(map[string]interface{}{
		"patients": len(windows),
		"workers":  workers,
	}).Info("Starting cohort assessment")

	results := make([]contracts.CohortResult, len(windows))
	indexCh := make(chan int, len(windows))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.assessWorker(ctx, workerID, windows, indexCh, results)
		}(i)
	}

	for i := range windows {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	assessed, insufficient, failed := 0, 0, 0
	for _, r := range results {
		var ide *contracts.InsufficientDataError
		switch {
		case r.Err == nil:
			assessed++
		case errors.As(r.Err, &ide):
			insufficient++
		default:
			failed++
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"assessed":     assessed,
		"insufficient": insufficient,
		"failed":       failed,
		"total":        len(results),
	}).Info("Cohort assessment completed")

	return results
}

// assessWorker owns results[i] for every index it receives
func (e *Engine) assessWorker(ctx context.Context, workerID int, windows []contracts.PatientWindow, indexCh <-chan int, results []contracts.CohortResult) {
	for i := range indexCh {
		w := windows[i]
		results[i].PatientID = w.PatientID

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		default:
		}

		assessment, err := e.ComputeAssessment(w.PatientID, w.Entries, w.Adherence)
		if err != nil {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"worker":     workerID,
				"patient_id": w.PatientID,
			}).Debug("Patient not assessed")
			results[i].Err = err
			continue
		}
		results[i].Assessment = assessment
	}
}

// Members converts the successful results into ranker input, keeping order
func Members(results []contracts.CohortResult) []contracts.CohortMember {
	members := make([]contracts.CohortMember, 0, len(results))
	for _, r := range results {
		if r.Err != nil || r.Assessment == nil {
			continue
		}
		members = append(members, contracts.CohortMember{
			PatientID:  r.PatientID,
			Assessment: r.Assessment,
			Alerts:     r.Assessment.Alerts,
		})
	}
	return members
}
