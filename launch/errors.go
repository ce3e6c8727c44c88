package launch

import (
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Error kinds attached with ftag
const (
	KindValidation   ftag.Kind = "VALIDATION"
	KindEngine       ftag.Kind = "ENGINE_UNAVAILABLE"
	KindStale        ftag.Kind = "STALE_CONFIRMATION"
	KindPartialScene ftag.Kind = "PARTIAL_SCENE_FAILURE"
)

var (
	// ErrValidation marks input rejected before any mutation
	ErrValidation = errors.New("validation failed")

	// ErrEngineUnavailable marks a failed or timed out engine call
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrStaleConfirmation marks a reconciliation older than the stored state
	ErrStaleConfirmation = errors.New("stale confirmation")

	// ErrPartialSceneFailure marks a scene launch where some tracks failed to start
	ErrPartialSceneFailure = errors.New("partial scene failure")
)

func validationError(internal, desc string) error {
	return fault.Wrap(ErrValidation,
		fmsg.WithDesc(internal, desc),
		ftag.With(KindValidation),
	)
}

func unknownEntity(id string) error {
	return validationError("unknown entity "+id, "Nothing is assigned to that slot")
}

func engineError(err error, id string) error {
	return fault.Wrap(errors.Join(ErrEngineUnavailable, err),
		fmsg.WithDesc("engine call for "+id, "Audio engine did not respond, try again"),
		ftag.With(KindEngine),
	)
}

func staleError(id string) error {
	return fault.Wrap(ErrStaleConfirmation,
		fmsg.With("dropped stale state for "+id),
		ftag.With(KindStale),
	)
}

func sceneError(err error, sceneID string) error {
	return fault.Wrap(errors.Join(ErrPartialSceneFailure, err),
		fmsg.WithDesc("scene "+sceneID+" partially launched", "Some clips in the scene did not start"),
		ftag.With(KindPartialScene),
	)
}

// Describe returns the user-facing text for an error produced by this package
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return err.Error()
}
