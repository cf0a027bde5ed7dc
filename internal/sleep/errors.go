// ABOUTME: Error values returned by the sleep session builder.
// ABOUTME: Input is validated up front; nothing is built from partially valid input.
package sleep

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/healthexport/internal/models"
)

var (
	// ErrSampleTypeMismatch is matched by any TypeMismatchError.
	ErrSampleTypeMismatch = errors.New("sample is not a sleep analysis sample")

	// ErrMixedSources is returned by BuildSource when samples come from more than one source.
	ErrMixedSources = errors.New("samples come from more than one source")
)

// TypeMismatchError reports the first sample that is not sleep analysis.
type TypeMismatchError struct {
	SampleID uuid.UUID
	Got      models.SampleType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("sample %s has type %s, want %s", e.SampleID, e.Got, models.SampleSleepAnalysis)
}

// Is makes errors.Is(err, ErrSampleTypeMismatch) succeed.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrSampleTypeMismatch
}

func validate(samples []models.Sample) error {
	for _, s := range samples {
		if s.SampleType != models.SampleSleepAnalysis {
			return &TypeMismatchError{SampleID: s.ID, Got: s.SampleType}
		}
	}
	return nil
}
