package request

// event is a manual-reset event. It is guarded by the table lock.
type event struct {
	ch    chan struct{}
	isSet bool
}

func newEvent() event {
	return event{ch: make(chan struct{})}
}

// wait returns a channel that is closed once the event is set.
func (e *event) wait() <-chan struct{} {
	return e.ch
}

func (e *event) set() {
	if !e.isSet {
		close(e.ch)
		e.isSet = true
	}
}

func (e *event) reset() {
	if e.isSet {
		e.ch = make(chan struct{})
		e.isSet = false
	}
}
