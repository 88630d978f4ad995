package pages

import "fmt"

// canEdit checks if a page's content can be changed in its current status.
func canEdit(status PageStatus) (bool, error) {
	switch status {
	case PageStatusDraft, PageStatusScheduled, PageStatusLive:
		return true, nil
	case PageStatusDeleted:
		return false, fmt.Errorf("%w: page has been deleted (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidPageStatus, status)
	}
}

// canPublish checks if a page can go live from its current status.
func canPublish(status PageStatus) (bool, error) {
	switch status {
	case PageStatusDraft, PageStatusScheduled:
		return true, nil
	case PageStatusLive:
		return false, fmt.Errorf("%w: page is already live (status: %s)", ErrInvalidTransition, status)
	case PageStatusDeleted:
		return false, fmt.Errorf("%w: page has been deleted (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidPageStatus, status)
	}
}

// canSchedule checks if a page can be scheduled for publication. A scheduled
// page may be rescheduled.
func canSchedule(status PageStatus) (bool, error) {
	switch status {
	case PageStatusDraft, PageStatusScheduled:
		return true, nil
	case PageStatusLive:
		return false, fmt.Errorf("%w: page is already live (status: %s)", ErrInvalidTransition, status)
	case PageStatusDeleted:
		return false, fmt.Errorf("%w: page has been deleted (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidPageStatus, status)
	}
}

// canUnpublish checks if a page can return to draft. Unpublishing a scheduled
// page cancels the schedule.
func canUnpublish(status PageStatus) (bool, error) {
	switch status {
	case PageStatusLive, PageStatusScheduled:
		return true, nil
	case PageStatusDraft:
		return false, fmt.Errorf("%w: page is not published (status: %s)", ErrInvalidTransition, status)
	case PageStatusDeleted:
		return false, fmt.Errorf("%w: page has been deleted (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidPageStatus, status)
	}
}

// canDelete checks if a page can be deleted.
func canDelete(status PageStatus) (bool, error) {
	switch status {
	case PageStatusDraft, PageStatusScheduled, PageStatusLive:
		return true, nil
	case PageStatusDeleted:
		return false, fmt.Errorf("%w: page has already been deleted (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidPageStatus, status)
	}
}
