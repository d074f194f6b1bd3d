package widget

import (
	"context"
	"strconv"
)

// InstanceID addresses one placed copy of the widget.
type InstanceID int

func (id InstanceID) String() string {
	return strconv.Itoa(int(id))
}

// Host is the callback surface a widget host drives. Every method returns
// promptly and never reports an error; the work happens in the background.
type Host interface {
	OnPlacementBatchUpdate(ctx context.Context, ids []InstanceID)
	OnOptionsChanged(ctx context.Context, id InstanceID)
	OnAllInstancesRemoved(ctx context.Context)
}

// Alarm is the periodic trigger facility. Arm schedules fire once after the
// configured interval; at most one trigger is pending per instance.
type Alarm interface {
	Arm(id InstanceID, fire func()) error
	Cancel(id InstanceID) error
	CancelAll() error
}
