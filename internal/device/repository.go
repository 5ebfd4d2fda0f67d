package device

import "context"

// Repository defines the interface for device persistence.
type Repository interface {
	// Get retrieves a device by unit.
	Get(ctx context.Context, unit int) (*Device, error)

	// List retrieves all devices ordered by unit.
	List(ctx context.Context) ([]*Device, error)

	// Create creates a new device. ErrDeviceExists is returned when the
	// unit is taken.
	Create(ctx context.Context, device *Device) error

	// Update overwrites an existing device. ErrDeviceNotFound is returned
	// when the unit does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device.
	Delete(ctx context.Context, unit int) error
}
