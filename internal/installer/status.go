package installer

// Status receives the human readable progress of one engine operation.
type Status interface {
	Info(msg string)
	Warn(msg string)
	Succeed(msg string)
	Fail(msg string)
	// Progress starts a byte progress display. total is -1 when the size
	// is unknown.
	Progress(total int64) Progress
}

// Progress is a running progress display.
type Progress interface {
	Update(n int64)
	Stop()
}

// Reporter hands out a Status per engine.
type Reporter interface {
	Engine(name string) Status
}

// NopReporter discards everything.
type NopReporter struct{}

// Engine returns a Status that discards everything.
func (NopReporter) Engine(string) Status { return nopStatus{} }

type nopStatus struct{}

func (nopStatus) Info(string)             {}
func (nopStatus) Warn(string)             {}
func (nopStatus) Succeed(string)          {}
func (nopStatus) Fail(string)             {}
func (nopStatus) Progress(int64) Progress { return nopProgress{} }

type nopProgress struct{}

func (nopProgress) Update(int64) {}
func (nopProgress) Stop()        {}
