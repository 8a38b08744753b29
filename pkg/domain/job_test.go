package domain_test

import (
	"testing"

	"github.com/verdantlab/leafwise/pkg/domain"
)

func TestJobStatus(t *testing.T) {

	t.Run("every wire name parses to itself", func(t *testing.T) {
		for _, status := range []domain.JobStatus{
			domain.Idle, domain.Starting, domain.Downloading, domain.Preparing,
			domain.Training, domain.Finalizing, domain.Completed, domain.Error,
		} {
			parsed, err := domain.AsJobStatus(status.String())
			if err != nil {
				t.Errorf("%s does not parse: %v", status, err)
			}
			if parsed != status {
				t.Errorf("%s parsed to %s", status, parsed)
			}
		}
	})

	t.Run("an unknown name is rejected", func(t *testing.T) {
		if _, err := domain.AsJobStatus("paused"); err == nil {
			t.Error("'paused' was accepted")
		}
	})

	t.Run("every status of an accepted, unfinished job is in progress", func(t *testing.T) {
		inProgress := map[domain.JobStatus]bool{
			domain.Idle:        false,
			domain.Starting:    true,
			domain.Downloading: true,
			domain.Preparing:   true,
			domain.Training:    true,
			domain.Finalizing:  true,
			domain.Completed:   false,
			domain.Error:       false,
		}
		for status, expected := range inProgress {
			if status.InProgress() != expected {
				t.Errorf("%s.InProgress() = %v, expected %v", status, !expected, expected)
			}
		}
	})

	t.Run("only completed and error are terminal", func(t *testing.T) {
		terminal := map[domain.JobStatus]bool{
			domain.Idle:        false,
			domain.Starting:    false,
			domain.Downloading: false,
			domain.Preparing:   false,
			domain.Training:    false,
			domain.Finalizing:  false,
			domain.Completed:   true,
			domain.Error:       true,
		}
		for status, expected := range terminal {
			if status.Terminal() != expected {
				t.Errorf("%s.Terminal() = %v, expected %v", status, !expected, expected)
			}
		}
	})
}
