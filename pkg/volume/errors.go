package volume

// Error types attached to the errors returned by this package. Check them
// with errors.IsType from github.com/aukilabs/go-tooling/pkg/errors.
const (
	ErrTypeInvalidSpacing    = "invalid_spacing"
	ErrTypeInvalidDimensions = "invalid_dimensions"
	ErrTypeCapacityExceeded  = "capacity_exceeded"
	ErrTypeTopology          = "topology"
	ErrTypeDegenerateView    = "degenerate_view"
)
