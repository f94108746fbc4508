package world

import "errors"

var (
	ErrInvalidAppearance = errors.New("invalid appearance")
	ErrInvalidTag        = errors.New("invalid tag")
	ErrInvalidSpec       = errors.New("invalid occupant spec")
	ErrOutOfBounds       = errors.New("position out of bounds")
	ErrOccupied          = errors.New("position occupied")
	ErrNoSpace           = errors.New("no empty position nearby")
	ErrTooFar            = errors.New("too far to board")
	ErrVehicleFull       = errors.New("vehicle is full")
	ErrNotAPassenger     = errors.New("not a passenger")
	ErrAlreadyAboard     = errors.New("already aboard a vehicle")
	ErrInvalidSpeed      = errors.New("invalid speed")
	ErrMissingCapability = errors.New("missing capability")
	ErrInvalidAction     = errors.New("invalid action")
	ErrUnknownOccupant   = errors.New("unknown occupant")
	ErrDuplicateID       = errors.New("duplicate occupant ID")
	ErrInvalidState      = errors.New("invalid world state")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidAppearance, "invalid_appearance"},
	{ErrInvalidTag, "invalid_tag"},
	{ErrInvalidSpec, "invalid_spec"},
	{ErrOutOfBounds, "out_of_bounds"},
	{ErrOccupied, "occupied"},
	{ErrNoSpace, "no_space"},
	{ErrTooFar, "too_far"},
	{ErrVehicleFull, "vehicle_full"},
	{ErrNotAPassenger, "not_a_passenger"},
	{ErrAlreadyAboard, "already_aboard"},
	{ErrInvalidSpeed, "invalid_speed"},
	{ErrMissingCapability, "missing_capability"},
	{ErrInvalidAction, "invalid_action"},
	{ErrUnknownOccupant, "unknown_occupant"},
	{ErrDuplicateID, "duplicate_id"},
	{ErrInvalidState, "invalid_state"},
}

// ErrorCode returns a stable machine-friendly code for a world error,
// "internal" for anything else and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
