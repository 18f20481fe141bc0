package service

// ErrInvalidInput is returned when a request passes binding but breaks a
// rule the services own.
type ErrInvalidInput string

func (e ErrInvalidInput) Error() string { return string(e) }
